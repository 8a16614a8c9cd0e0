package ingest

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/quake-alert-service/internal/observability"
)

type recordingRunner struct {
	cycles chan struct{}
}

func newRecordingRunner() *recordingRunner {
	return &recordingRunner{cycles: make(chan struct{}, 16)}
}

func (r *recordingRunner) RunCycle(context.Context) {
	r.cycles <- struct{}{}
}

func (r *recordingRunner) waitForCycle(t *testing.T) {
	t.Helper()
	select {
	case <-r.cycles:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for a cycle")
	}
}

func startScheduler(t *testing.T, runner CycleRunner, clock clockwork.Clock, interval time.Duration) context.CancelFunc {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	s := NewScheduler(runner, clock, interval, slog.Default(), observability.NewMetricsForTesting())

	done := make(chan error, 1)
	go func() {
		done <- s.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.ErrorIs(t, err, context.Canceled)
		case <-time.After(time.Second):
			t.Fatal("scheduler did not stop")
		}
	})
	return cancel
}

func TestScheduler_RunsImmediatelyThenOnInterval(t *testing.T) {
	clock := clockwork.NewFakeClock()
	runner := newRecordingRunner()
	startScheduler(t, runner, clock, time.Minute)

	// Startup cycle fires without waiting for the first tick.
	runner.waitForCycle(t)

	clock.BlockUntil(1)
	clock.Advance(time.Minute)
	runner.waitForCycle(t)

	clock.Advance(time.Minute)
	runner.waitForCycle(t)
}

func TestScheduler_NoCycleBeforeInterval(t *testing.T) {
	clock := clockwork.NewFakeClock()
	runner := newRecordingRunner()
	startScheduler(t, runner, clock, time.Minute)

	runner.waitForCycle(t)

	clock.BlockUntil(1)
	clock.Advance(30 * time.Second)
	select {
	case <-runner.cycles:
		t.Fatal("cycle fired before the interval elapsed")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestScheduler_StopsOnContextCancel(t *testing.T) {
	clock := clockwork.NewFakeClock()
	runner := newRecordingRunner()
	cancel := startScheduler(t, runner, clock, time.Minute)

	runner.waitForCycle(t)
	cancel()

	// Cleanup asserts Run returned context.Canceled.
	require.NotNil(t, cancel)
}
