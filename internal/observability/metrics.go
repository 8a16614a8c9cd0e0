package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// ingestion pipeline and its fanout paths.
type Metrics struct {
	CyclesTotal      prometheus.Counter
	CyclesSkipped    prometheus.Counter
	FetchErrors      prometheus.Counter
	MalformedRecords prometheus.Counter
	StoreErrors      prometheus.Counter
	EventsInserted   prometheus.Counter
	EventsPruned     prometheus.Counter

	// Fanout metrics.
	BroadcastsSent  prometheus.Counter
	PushAttempts    *prometheus.CounterVec // labels: outcome={success,failure}
	EventsPublished prometheus.Counter
	PublishErrors   prometheus.Counter

	ConnectedClients prometheus.Gauge
	SchedulerRunning prometheus.Gauge
	CycleDuration    prometheus.Histogram
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		CyclesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "quake_alert",
			Name:      "ingest_cycles_total",
			Help:      "Total ingestion cycles started.",
		}),
		CyclesSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "quake_alert",
			Name:      "ingest_cycles_skipped_total",
			Help:      "Ticks dropped because the previous cycle was still running.",
		}),
		FetchErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "quake_alert",
			Name:      "feed_fetch_errors_total",
			Help:      "Failed upstream feed fetches.",
		}),
		MalformedRecords: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "quake_alert",
			Name:      "malformed_records_total",
			Help:      "Feed features skipped during normalization.",
		}),
		StoreErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "quake_alert",
			Name:      "store_errors_total",
			Help:      "Store operations that failed mid-cycle.",
		}),
		EventsInserted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "quake_alert",
			Name:      "events_inserted_total",
			Help:      "New events persisted to the store.",
		}),
		EventsPruned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "quake_alert",
			Name:      "events_pruned_total",
			Help:      "Events removed by retention pruning.",
		}),
		BroadcastsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "quake_alert",
			Name:      "broadcasts_total",
			Help:      "Batches broadcast to realtime subscribers.",
		}),
		PushAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quake_alert",
			Name:      "push_attempts_total",
			Help:      "Web Push delivery attempts by outcome.",
		}, []string{"outcome"}),
		EventsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "quake_alert",
			Name:      "sink_events_published_total",
			Help:      "Events published to the Kafka sink topic.",
		}),
		PublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "quake_alert",
			Name:      "sink_publish_errors_total",
			Help:      "Failed publishes to the Kafka sink topic.",
		}),
		ConnectedClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "quake_alert",
			Name:      "websocket_clients",
			Help:      "Currently connected realtime subscribers.",
		}),
		SchedulerRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "quake_alert",
			Name:      "scheduler_running",
			Help:      "1 when the poll scheduler is active, 0 when shut down.",
		}),
		CycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "quake_alert",
			Name:      "cycle_duration_seconds",
			Help:      "Duration of a complete fetch-dedup-persist-prune-fanout cycle.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
	}

	prometheus.MustRegister(
		m.CyclesTotal,
		m.CyclesSkipped,
		m.FetchErrors,
		m.MalformedRecords,
		m.StoreErrors,
		m.EventsInserted,
		m.EventsPruned,
		m.BroadcastsSent,
		m.PushAttempts,
		m.EventsPublished,
		m.PublishErrors,
		m.ConnectedClients,
		m.SchedulerRunning,
		m.CycleDuration,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		CyclesTotal:      prometheus.NewCounter(prometheus.CounterOpts{Namespace: "quake_alert", Name: "ingest_cycles_total"}),
		CyclesSkipped:    prometheus.NewCounter(prometheus.CounterOpts{Namespace: "quake_alert", Name: "ingest_cycles_skipped_total"}),
		FetchErrors:      prometheus.NewCounter(prometheus.CounterOpts{Namespace: "quake_alert", Name: "feed_fetch_errors_total"}),
		MalformedRecords: prometheus.NewCounter(prometheus.CounterOpts{Namespace: "quake_alert", Name: "malformed_records_total"}),
		StoreErrors:      prometheus.NewCounter(prometheus.CounterOpts{Namespace: "quake_alert", Name: "store_errors_total"}),
		EventsInserted:   prometheus.NewCounter(prometheus.CounterOpts{Namespace: "quake_alert", Name: "events_inserted_total"}),
		EventsPruned:     prometheus.NewCounter(prometheus.CounterOpts{Namespace: "quake_alert", Name: "events_pruned_total"}),
		BroadcastsSent:   prometheus.NewCounter(prometheus.CounterOpts{Namespace: "quake_alert", Name: "broadcasts_total"}),
		PushAttempts:     prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "quake_alert", Name: "push_attempts_total"}, []string{"outcome"}),
		EventsPublished:  prometheus.NewCounter(prometheus.CounterOpts{Namespace: "quake_alert", Name: "sink_events_published_total"}),
		PublishErrors:    prometheus.NewCounter(prometheus.CounterOpts{Namespace: "quake_alert", Name: "sink_publish_errors_total"}),
		ConnectedClients: prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "quake_alert", Name: "websocket_clients"}),
		SchedulerRunning: prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "quake_alert", Name: "scheduler_running"}),
		CycleDuration:    prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "quake_alert", Name: "cycle_duration_seconds"}),
	}
}
