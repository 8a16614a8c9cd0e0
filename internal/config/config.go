package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

const defaultFeedURL = "https://earthquake.usgs.gov/earthquakes/feed/v1.0/summary/all_hour.geojson"

// Config holds all service settings, populated from environment variables.
type Config struct {
	FeedURL         string
	FeedTimeout     time.Duration
	PollInterval    time.Duration
	RetentionWindow time.Duration
	SeenCacheSize   int

	DBPath          string
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Web Push configuration. Push is enabled when both VAPID keys are set,
	// overridable via PUSH_ENABLED.
	VAPIDPublicKey  string
	VAPIDPrivateKey string
	VAPIDSubscriber string
	PushEnabled     bool
	PushTimeout     time.Duration

	// Optional Kafka sink for downstream consumers of new events.
	KafkaEnabled   bool
	KafkaBrokers   []string
	KafkaSinkTopic string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	feedTimeout, err := parseDuration("FEED_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	pollInterval, err := parseDuration("POLL_INTERVAL", "60s")
	if err != nil {
		return nil, err
	}
	retention, err := parseDuration("RETENTION_WINDOW", "48h")
	if err != nil {
		return nil, err
	}
	pushTimeout, err := parseDuration("PUSH_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	vapidPublic := os.Getenv("VAPID_PUBLIC_KEY")
	vapidPrivate := os.Getenv("VAPID_PRIVATE_KEY")
	pushEnabled := vapidPublic != "" && vapidPrivate != ""
	if v := os.Getenv("PUSH_ENABLED"); v != "" {
		pushEnabled = v == "true"
	}

	cfg := &Config{
		FeedURL:         sharedcfg.EnvOrDefault("FEED_URL", defaultFeedURL),
		FeedTimeout:     feedTimeout,
		PollInterval:    pollInterval,
		RetentionWindow: retention,
		SeenCacheSize:   parseSeenCacheSize(),

		DBPath:          sharedcfg.EnvOrDefault("DB_PATH", "data/quake.db"),
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		VAPIDPublicKey:  vapidPublic,
		VAPIDPrivateKey: vapidPrivate,
		VAPIDSubscriber: sharedcfg.EnvOrDefault("VAPID_SUBSCRIBER", "mailto:alerts@couchcryptid.dev"),
		PushEnabled:     pushEnabled,
		PushTimeout:     pushTimeout,

		KafkaEnabled:   os.Getenv("KAFKA_ENABLED") == "true",
		KafkaBrokers:   sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSinkTopic: sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "quake-events"),
	}

	if cfg.FeedURL == "" {
		return nil, errors.New("FEED_URL is required")
	}
	if cfg.PushEnabled && (cfg.VAPIDPublicKey == "" || cfg.VAPIDPrivateKey == "") {
		return nil, errors.New("PUSH_ENABLED is true but VAPID_PUBLIC_KEY or VAPID_PRIVATE_KEY is not set")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is empty")
	}
	if cfg.KafkaEnabled && cfg.KafkaSinkTopic == "" {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_SINK_TOPIC is empty")
	}

	return cfg, nil
}

func parseDuration(name, fallback string) (time.Duration, error) {
	s := sharedcfg.EnvOrDefault(name, fallback)
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", name, s)
	}
	return d, nil
}

func parseSeenCacheSize() int {
	if s := os.Getenv("SEEN_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 4096
}
