package sqlite_test

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/couchcryptid/quake-alert-service/internal/adapter/sqlite"
	"github.com/couchcryptid/quake-alert-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "quake.db"), slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

func makeEvent(id string, occurredAt time.Time) domain.Event {
	mag := 4.5
	return domain.Event{
		ID:         id,
		Kind:       domain.KindSeismic,
		Location:   "5km SW of Reno, NV",
		Country:    domain.CountryUnitedStates,
		Magnitude:  &mag,
		OccurredAt: occurredAt,
		IngestedAt: occurredAt.Add(time.Minute),
	}
}

func TestOpen_EmptyPath(t *testing.T) {
	_, err := sqlite.Open("  ", slog.Default())
	require.Error(t, err)
}

func TestInsertNew_Idempotent(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	batch := []domain.Event{makeEvent("us1", now), makeEvent("us2", now)}

	inserted, err := store.InsertNew(ctx, batch)
	require.NoError(t, err)
	assert.Equal(t, 2, inserted)

	// Redelivering the same batch inserts nothing and overwrites nothing.
	inserted, err = store.InsertNew(ctx, batch)
	require.NoError(t, err)
	assert.Equal(t, 0, inserted)

	events, err := store.Recent(ctx, now.Add(-time.Hour))
	require.NoError(t, err)
	assert.Len(t, events, 2)
}

func TestInsertNew_DoesNotOverwrite(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	original := makeEvent("us1", now)
	_, err := store.InsertNew(ctx, []domain.Event{original})
	require.NoError(t, err)

	changed := original
	changed.Location = "somewhere else entirely"
	_, err = store.InsertNew(ctx, []domain.Event{changed})
	require.NoError(t, err)

	events, err := store.Recent(ctx, now.Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, original.Location, events[0].Location)
}

func TestExistingIDs(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	_, err := store.InsertNew(ctx, []domain.Event{makeEvent("us-a", now)})
	require.NoError(t, err)

	existing, err := store.ExistingIDs(ctx, []string{"us-a", "us-b", "us-c"})
	require.NoError(t, err)
	assert.Len(t, existing, 1)
	assert.Contains(t, existing, "us-a")

	existing, err = store.ExistingIDs(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, existing)
}

func TestPruneOlderThan_Boundary(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	cutoff := time.Date(2026, time.March, 14, 0, 0, 0, 0, time.UTC)

	_, err := store.InsertNew(ctx, []domain.Event{
		makeEvent("expired", cutoff.Add(-time.Millisecond)),
		makeEvent("at-cutoff", cutoff),
		makeEvent("fresh", cutoff.Add(time.Hour)),
	})
	require.NoError(t, err)

	pruned, err := store.PruneOlderThan(ctx, cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(1), pruned)

	events, err := store.Recent(ctx, cutoff.Add(-24*time.Hour))
	require.NoError(t, err)
	require.Len(t, events, 2)
	for _, e := range events {
		assert.NotEqual(t, "expired", e.ID)
	}
}

func TestRecent_SortedNewestFirst(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, time.March, 14, 12, 0, 0, 0, time.UTC)

	_, err := store.InsertNew(ctx, []domain.Event{
		makeEvent("oldest", base),
		makeEvent("newest", base.Add(2*time.Hour)),
		makeEvent("middle", base.Add(time.Hour)),
	})
	require.NoError(t, err)

	events, err := store.Recent(ctx, base)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, "newest", events[0].ID)
	assert.Equal(t, "middle", events[1].ID)
	assert.Equal(t, "oldest", events[2].ID)
}

func TestRecent_NullMagnitudeRoundtrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	event := makeEvent("no-mag", now)
	event.Magnitude = nil
	_, err := store.InsertNew(ctx, []domain.Event{event})
	require.NoError(t, err)

	events, err := store.Recent(ctx, now.Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Nil(t, events[0].Magnitude)
	assert.Equal(t, now, events[0].OccurredAt)
}

func TestRecent_EmptyStoreReturnsEmptySlice(t *testing.T) {
	store := openTestStore(t)

	events, err := store.Recent(context.Background(), time.Now().Add(-48*time.Hour))
	require.NoError(t, err)
	assert.NotNil(t, events)
	assert.Empty(t, events)
}
