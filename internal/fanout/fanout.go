// Package fanout delivers newly ingested events to realtime and push subscribers.
package fanout

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/couchcryptid/quake-alert-service/internal/domain"
	"github.com/couchcryptid/quake-alert-service/internal/observability"
)

// BroadcastEvent is the message name realtime clients subscribe to.
const BroadcastEvent = "newEarthquakes"

// Push endpoints are independent; a handful of concurrent deliveries keeps
// a large registry from serializing behind slow endpoints.
const maxConcurrentPushes = 8

// Broadcaster emits one message to all connected realtime clients.
type Broadcaster interface {
	Emit(event string, data any)
}

// Pusher delivers one payload to one push endpoint.
type Pusher interface {
	Deliver(ctx context.Context, sub domain.Subscription, payload []byte) error
}

// Publisher forwards a batch to a downstream sink.
type Publisher interface {
	PublishBatch(ctx context.Context, events []domain.Event) error
}

// SubscriptionSource snapshots the registered push endpoints.
type SubscriptionSource interface {
	All() []domain.Subscription
}

// Dispatcher fans one cycle's new events out to the realtime hub, every
// registered push endpoint, and the optional sink. The paths are
// failure-isolated from each other and per recipient.
type Dispatcher struct {
	broadcaster Broadcaster
	pusher      Pusher    // nil when push is disabled
	publisher   Publisher // nil when the sink is disabled
	subs        SubscriptionSource
	logger      *slog.Logger
	metrics     *observability.Metrics
	pushTimeout time.Duration
}

// NewDispatcher wires the delivery paths. pusher and publisher may be nil to
// disable their paths.
func NewDispatcher(broadcaster Broadcaster, pusher Pusher, publisher Publisher, subs SubscriptionSource, logger *slog.Logger, metrics *observability.Metrics, pushTimeout time.Duration) *Dispatcher {
	return &Dispatcher{
		broadcaster: broadcaster,
		pusher:      pusher,
		publisher:   publisher,
		subs:        subs,
		logger:      logger,
		metrics:     metrics,
		pushTimeout: pushTimeout,
	}
}

// Dispatch delivers one batch to all paths and blocks until every push
// attempt has finished. A failure on any path never prevents the others.
func (d *Dispatcher) Dispatch(ctx context.Context, events []domain.Event) {
	if len(events) == 0 {
		return
	}

	d.broadcaster.Emit(BroadcastEvent, events)
	d.metrics.BroadcastsSent.Inc()

	if d.publisher != nil {
		if err := d.publisher.PublishBatch(ctx, events); err != nil {
			d.logger.Error("sink publish failed", "error", err, "batch_size", len(events))
			d.metrics.PublishErrors.Inc()
		} else {
			d.metrics.EventsPublished.Add(float64(len(events)))
		}
	}

	if d.pusher == nil {
		return
	}
	subs := d.subs.All()
	if len(subs) == 0 {
		return
	}

	var wg sync.WaitGroup
	sem := make(chan struct{}, maxConcurrentPushes)
	for _, event := range events {
		payload, err := notificationPayload(event)
		if err != nil {
			d.logger.Error("build push payload failed", "error", err, "event_id", event.ID)
			continue
		}
		for _, sub := range subs {
			wg.Add(1)
			sem <- struct{}{}
			go func() {
				defer wg.Done()
				defer func() { <-sem }()
				d.deliver(ctx, sub, payload)
			}()
		}
	}
	wg.Wait()
}

// deliver attempts one push, isolating the outcome to this endpoint.
func (d *Dispatcher) deliver(ctx context.Context, sub domain.Subscription, payload []byte) {
	pushCtx, cancel := context.WithTimeout(ctx, d.pushTimeout)
	defer cancel()

	if err := d.pusher.Deliver(pushCtx, sub, payload); err != nil {
		d.logger.Warn("push delivery failed", "endpoint", sub.Endpoint, "error", err)
		d.metrics.PushAttempts.WithLabelValues("failure").Inc()
		return
	}
	d.metrics.PushAttempts.WithLabelValues("success").Inc()
}

// notificationPayload builds the human-readable {title, body} notification
// for one event.
func notificationPayload(event domain.Event) ([]byte, error) {
	magnitude := "unknown"
	if event.Magnitude != nil {
		magnitude = strconv.FormatFloat(*event.Magnitude, 'f', -1, 64)
	}
	return json.Marshal(map[string]string{
		"title": "New Earthquake Detected!",
		"body":  fmt.Sprintf("%s, %s\nMagnitude: %s", event.Location, event.Country, magnitude),
	})
}
