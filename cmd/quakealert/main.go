package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"

	httpadapter "github.com/couchcryptid/quake-alert-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/quake-alert-service/internal/adapter/kafka"
	"github.com/couchcryptid/quake-alert-service/internal/adapter/sqlite"
	"github.com/couchcryptid/quake-alert-service/internal/adapter/usgs"
	webpushadapter "github.com/couchcryptid/quake-alert-service/internal/adapter/webpush"
	"github.com/couchcryptid/quake-alert-service/internal/config"
	"github.com/couchcryptid/quake-alert-service/internal/fanout"
	"github.com/couchcryptid/quake-alert-service/internal/ingest"
	"github.com/couchcryptid/quake-alert-service/internal/observability"
	"github.com/couchcryptid/quake-alert-service/internal/realtime"
	"github.com/couchcryptid/quake-alert-service/internal/subscription"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()
	clock := clockwork.NewRealClock()

	// The service has no meaningful function without persistence.
	store, err := sqlite.Open(cfg.DBPath, logger)
	if err != nil {
		logger.Error("failed to open store", "path", cfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer store.Close()

	registry := subscription.NewRegistry()
	hub := realtime.NewHub(logger, metrics)

	// Web Push is feature-flagged via the VAPID keys / PUSH_ENABLED.
	var pusher fanout.Pusher
	if cfg.PushEnabled {
		pusher = webpushadapter.NewSender(cfg.VAPIDPublicKey, cfg.VAPIDPrivateKey, cfg.VAPIDSubscriber, cfg.PushTimeout)
		logger.Info("web push enabled", "subscriber", cfg.VAPIDSubscriber, "timeout", cfg.PushTimeout)
	} else {
		logger.Info("web push disabled")
	}

	// Kafka sink is feature-flagged via KAFKA_ENABLED.
	var publisher fanout.Publisher
	var kafkaWriter *kafkaadapter.Writer
	if cfg.KafkaEnabled {
		kafkaWriter = kafkaadapter.NewWriter(cfg.KafkaBrokers, cfg.KafkaSinkTopic, logger)
		publisher = kafkaWriter
		logger.Info("kafka sink enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaSinkTopic)
	} else {
		logger.Info("kafka sink disabled")
	}

	dispatcher := fanout.NewDispatcher(hub, pusher, publisher, registry, logger, metrics, cfg.PushTimeout)
	fetcher := usgs.NewClient(cfg.FeedURL, cfg.FeedTimeout, logger)
	engine := ingest.New(fetcher, store, dispatcher, logger, metrics, clock, cfg.RetentionWindow, cfg.SeenCacheSize)
	scheduler := ingest.NewScheduler(engine, clock, cfg.PollInterval, logger, metrics)

	srv := httpadapter.NewServer(cfg.HTTPAddr, httpadapter.API{
		Ready:         engine,
		Events:        store,
		Subscriptions: registry,
		Trigger:       engine,
		Socket:        hub,
		Clock:         clock,
		Retention:     cfg.RetentionWindow,
	}, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start realtime hub.
	go func() {
		if err := hub.Run(ctx); err != nil {
			logger.Error("realtime hub error", "error", err)
		}
	}()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start poll scheduler.
	go func() {
		if err := scheduler.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("scheduler error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if kafkaWriter != nil {
		if err := kafkaWriter.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
