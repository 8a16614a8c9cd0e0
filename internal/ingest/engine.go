// Package ingest runs the periodic fetch-normalize-dedup-persist-fanout cycle.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/quake-alert-service/internal/domain"
	"github.com/couchcryptid/quake-alert-service/internal/observability"
)

// Fetcher retrieves the current upstream feed page.
type Fetcher interface {
	Fetch(ctx context.Context) ([]domain.RawFeature, error)
}

// Store is the durable event collection the engine dedups against and prunes.
type Store interface {
	ExistingIDs(ctx context.Context, ids []string) (map[string]struct{}, error)
	InsertNew(ctx context.Context, events []domain.Event) (int, error)
	PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// Dispatcher delivers a cycle's new events to subscribers.
type Dispatcher interface {
	Dispatch(ctx context.Context, events []domain.Event)
}

// Engine executes ingestion cycles. At most one cycle runs at a time; a
// cycle started while another is in flight is dropped, not queued.
type Engine struct {
	fetcher    Fetcher
	store      Store
	dispatcher Dispatcher
	logger     *slog.Logger
	metrics    *observability.Metrics
	clock      clockwork.Clock
	retention  time.Duration
	seen       *seenCache

	running atomic.Bool
	ready   atomic.Bool
}

// New creates an ingestion engine with the given retention window and
// seen-id cache size.
func New(fetcher Fetcher, store Store, dispatcher Dispatcher, logger *slog.Logger, metrics *observability.Metrics, clock clockwork.Clock, retention time.Duration, seenCacheSize int) *Engine {
	return &Engine{
		fetcher:    fetcher,
		store:      store,
		dispatcher: dispatcher,
		logger:     logger,
		metrics:    metrics,
		clock:      clock,
		retention:  retention,
		seen:       newSeenCache(seenCacheSize),
	}
}

// CheckReadiness reports whether at least one cycle has completed against the
// store since startup.
func (e *Engine) CheckReadiness(_ context.Context) error {
	if !e.ready.Load() {
		return errors.New("no ingestion cycle has completed yet")
	}
	return nil
}

// RunCycle executes one full ingestion cycle. If a previous cycle is still
// running the call returns immediately and the tick is dropped.
func (e *Engine) RunCycle(ctx context.Context) {
	if !e.running.CompareAndSwap(false, true) {
		e.logger.Warn("previous cycle still running, skipping tick")
		e.metrics.CyclesSkipped.Inc()
		return
	}
	defer e.running.Store(false)

	start := e.clock.Now()
	e.metrics.CyclesTotal.Inc()

	raw, err := e.fetcher.Fetch(ctx)
	if err != nil {
		e.logger.Error("feed fetch failed", "error", err)
		e.metrics.FetchErrors.Inc()
		return
	}

	events := e.normalize(raw)
	fresh, storeOK := e.dedupAndPersist(ctx, events)

	if storeOK && len(fresh) > 0 {
		e.dispatcher.Dispatch(ctx, fresh)
	}

	e.prune(ctx)

	if storeOK {
		e.ready.Store(true)
		e.metrics.CycleDuration.Observe(e.clock.Since(start).Seconds())
		e.logger.Info("cycle complete",
			"fetched", len(raw),
			"normalized", len(events),
			"new", len(fresh),
			"duration", e.clock.Since(start),
		)
	}
}

// TriggerTest synthesizes one event, persists it, and dispatches it through
// the regular fanout paths. It runs outside the cycle guard so a manual
// trigger never races the scheduler.
func (e *Engine) TriggerTest(ctx context.Context) (domain.Event, error) {
	now := e.clock.Now().UTC()
	mag := 4.5
	event := domain.Event{
		ID:         fmt.Sprintf("test-%d", now.UnixMilli()),
		Kind:       domain.KindSeismic,
		Location:   "Test City, CA",
		Country:    domain.CountryUnitedStates,
		Magnitude:  &mag,
		OccurredAt: now,
		IngestedAt: now,
	}

	if _, err := e.store.InsertNew(ctx, []domain.Event{event}); err != nil {
		e.metrics.StoreErrors.Inc()
		return domain.Event{}, fmt.Errorf("persist test event: %w", err)
	}
	e.seen.add(event.ID)
	e.dispatcher.Dispatch(ctx, []domain.Event{event})
	return event, nil
}

// normalize converts raw features to events, skipping malformed records.
func (e *Engine) normalize(raw []domain.RawFeature) []domain.Event {
	events := make([]domain.Event, 0, len(raw))
	for _, feature := range raw {
		event, err := domain.NormalizeFeature(feature)
		if err != nil {
			e.logger.Warn("skipping malformed feature", "feature_id", feature.ID, "error", err)
			e.metrics.MalformedRecords.Inc()
			continue
		}
		events = append(events, event)
	}
	return events
}

// dedupAndPersist filters out events already in the store, inserts the rest,
// and returns the ones that were genuinely new. storeOK is false when a store
// operation failed; callers must not fan out or mark readiness in that case.
func (e *Engine) dedupAndPersist(ctx context.Context, events []domain.Event) (fresh []domain.Event, storeOK bool) {
	candidates := make([]domain.Event, 0, len(events))
	for _, event := range events {
		if e.seen.contains(event.ID) {
			continue
		}
		candidates = append(candidates, event)
	}
	if len(candidates) == 0 {
		return nil, true
	}

	ids := make([]string, len(candidates))
	for i, event := range candidates {
		ids[i] = event.ID
	}
	existing, err := e.store.ExistingIDs(ctx, ids)
	if err != nil {
		e.logger.Error("dedup lookup failed", "error", err)
		e.metrics.StoreErrors.Inc()
		return nil, false
	}

	fresh = make([]domain.Event, 0, len(candidates))
	for _, event := range candidates {
		if _, ok := existing[event.ID]; ok {
			e.seen.add(event.ID)
			continue
		}
		fresh = append(fresh, event)
	}
	if len(fresh) == 0 {
		return nil, true
	}

	inserted, err := e.store.InsertNew(ctx, fresh)
	if err != nil {
		e.logger.Error("insert failed", "error", err)
		e.metrics.StoreErrors.Inc()
		return nil, false
	}
	for _, event := range fresh {
		e.seen.add(event.ID)
	}
	e.metrics.EventsInserted.Add(float64(inserted))
	return fresh, true
}

// prune drops events older than the retention window. A prune failure is
// logged but does not fail the cycle; the next cycle retries it.
func (e *Engine) prune(ctx context.Context) {
	cutoff := e.clock.Now().Add(-e.retention)
	pruned, err := e.store.PruneOlderThan(ctx, cutoff)
	if err != nil {
		e.logger.Error("retention prune failed", "error", err)
		e.metrics.StoreErrors.Inc()
		return
	}
	if pruned > 0 {
		e.logger.Info("pruned expired events", "count", pruned, "cutoff", cutoff)
		e.metrics.EventsPruned.Add(float64(pruned))
	}
}
