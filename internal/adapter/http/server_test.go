package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpadapter "github.com/couchcryptid/quake-alert-service/internal/adapter/http"
	"github.com/couchcryptid/quake-alert-service/internal/domain"
)

type stubReady struct {
	err error
}

func (s *stubReady) CheckReadiness(context.Context) error {
	return s.err
}

type stubEvents struct {
	events []domain.Event
	err    error
	since  time.Time
}

func (s *stubEvents) Recent(_ context.Context, since time.Time) ([]domain.Event, error) {
	s.since = since
	if s.err != nil {
		return nil, s.err
	}
	return s.events, nil
}

type stubSubs struct {
	added []domain.Subscription
}

func (s *stubSubs) Add(sub domain.Subscription) {
	s.added = append(s.added, sub)
}

type stubTrigger struct {
	event domain.Event
	err   error
}

func (s *stubTrigger) TriggerTest(context.Context) (domain.Event, error) {
	return s.event, s.err
}

type stubSocket struct{}

func (stubSocket) ServeWS(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusSwitchingProtocols)
}

func newTestServer(api httpadapter.API) *httpadapter.Server {
	if api.Ready == nil {
		api.Ready = &stubReady{}
	}
	if api.Events == nil {
		api.Events = &stubEvents{}
	}
	if api.Subscriptions == nil {
		api.Subscriptions = &stubSubs{}
	}
	if api.Trigger == nil {
		api.Trigger = &stubTrigger{}
	}
	if api.Socket == nil {
		api.Socket = stubSocket{}
	}
	if api.Clock == nil {
		api.Clock = clockwork.NewFakeClock()
	}
	if api.Retention == 0 {
		api.Retention = 48 * time.Hour
	}
	return httpadapter.NewServer(":0", api, slog.Default())
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(httpadapter.API{})

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())
}

func TestReadyz_NotReadyUntilFirstCycle(t *testing.T) {
	ready := &stubReady{err: errors.New("no ingestion cycle has completed yet")}
	srv := newTestServer(httpadapter.API{Ready: ready})

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	ready.err = nil
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRecentEarthquakes(t *testing.T) {
	now := time.Date(2026, time.March, 14, 12, 0, 0, 0, time.UTC)
	clock := clockwork.NewFakeClockAt(now)
	mag := 4.5
	events := &stubEvents{events: []domain.Event{{
		ID:         "us7000abcd",
		Kind:       domain.KindSeismic,
		Location:   "10km N of Ridgecrest, CA",
		Country:    domain.CountryUnitedStates,
		Magnitude:  &mag,
		OccurredAt: now.Add(-time.Hour),
		IngestedAt: now,
	}}}
	srv := newTestServer(httpadapter.API{Events: events, Clock: clock})

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/disaster/earthquakes", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, now.Add(-48*time.Hour), events.since)

	var got []domain.Event
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "us7000abcd", got[0].ID)
}

func TestRecentEarthquakes_EmptyStoreSerializesList(t *testing.T) {
	events := &stubEvents{events: []domain.Event{}}
	srv := newTestServer(httpadapter.API{Events: events})

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/disaster/earthquakes", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestRecentEarthquakes_StoreError(t *testing.T) {
	events := &stubEvents{err: errors.New("database is locked")}
	srv := newTestServer(httpadapter.API{Events: events})

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/disaster/earthquakes", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"error":"failed to fetch earthquakes"}`, rec.Body.String())
}

func TestSubscribe(t *testing.T) {
	subs := &stubSubs{}
	srv := newTestServer(httpadapter.API{Subscriptions: subs})

	body := `{"endpoint":"https://push.example.com/a","keys":{"p256dh":"pk","auth":"ak"}}`
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/subscribe", strings.NewReader(body)))

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"success":true}`, rec.Body.String())
	require.Len(t, subs.added, 1)
	assert.Equal(t, "https://push.example.com/a", subs.added[0].Endpoint)
	assert.Equal(t, "pk", subs.added[0].Keys.P256dh)
}

func TestSubscribe_DuplicateAccepted(t *testing.T) {
	subs := &stubSubs{}
	srv := newTestServer(httpadapter.API{Subscriptions: subs})

	body := `{"endpoint":"https://push.example.com/a","keys":{"p256dh":"pk","auth":"ak"}}`
	for range 2 {
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/subscribe", strings.NewReader(body)))
		require.Equal(t, http.StatusCreated, rec.Code)
	}
	assert.Len(t, subs.added, 2)
}

func TestSubscribe_MalformedJSON(t *testing.T) {
	subs := &stubSubs{}
	srv := newTestServer(httpadapter.API{Subscriptions: subs})

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/subscribe", strings.NewReader(`{not json`)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, subs.added)
}

func TestTestNotification(t *testing.T) {
	mag := 4.5
	trigger := &stubTrigger{event: domain.Event{
		ID:        "test-1765713600000",
		Kind:      domain.KindSeismic,
		Location:  "Test City, CA",
		Country:   domain.CountryUnitedStates,
		Magnitude: &mag,
	}}
	srv := newTestServer(httpadapter.API{Trigger: trigger})

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/test-notification", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var got struct {
		Message    string       `json:"message"`
		Earthquake domain.Event `json:"earthquake"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "Test notification triggered", got.Message)
	assert.Equal(t, "test-1765713600000", got.Earthquake.ID)
}

func TestTestNotification_Failure(t *testing.T) {
	trigger := &stubTrigger{err: errors.New("database is locked")}
	srv := newTestServer(httpadapter.API{Trigger: trigger})

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/test-notification", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestCORSHeadersPresent(t *testing.T) {
	srv := newTestServer(httpadapter.API{})

	req := httptest.NewRequest(http.MethodGet, "/api/disaster/earthquakes", nil)
	req.Header.Set("Origin", "https://dashboard.example.com")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
