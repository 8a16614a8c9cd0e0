// Package http exposes the service's REST API, websocket endpoint, and
// operational routes.
package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/quake-alert-service/internal/domain"
)

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// EventReader serves the recent-events query.
type EventReader interface {
	Recent(ctx context.Context, since time.Time) ([]domain.Event, error)
}

// Subscriber registers push subscriptions.
type Subscriber interface {
	Add(sub domain.Subscription)
}

// TestTrigger synthesizes one event and fans it out.
type TestTrigger interface {
	TriggerTest(ctx context.Context) (domain.Event, error)
}

// SocketHandler upgrades websocket connections.
type SocketHandler interface {
	ServeWS(w http.ResponseWriter, r *http.Request)
}

// API bundles the dependencies the HTTP routes are served from.
type API struct {
	Ready         ReadinessChecker
	Events        EventReader
	Subscriptions Subscriber
	Trigger       TestTrigger
	Socket        SocketHandler
	Clock         clockwork.Clock
	Retention     time.Duration
}

// Server exposes the REST API plus health, readiness, and metrics routes.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer builds the router and wires all routes.
func NewServer(addr string, api API, logger *slog.Logger) *Server {
	s := &Server{logger: logger}

	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	}))

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", handleReady(api.Ready))
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/api/disaster/earthquakes", s.handleRecent(api))
	r.Post("/subscribe", s.handleSubscribe(api.Subscriptions))
	r.Get("/test-notification", s.handleTestNotification(api.Trigger))
	r.Get("/ws", api.Socket.ServeWS)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func handleReady(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := checker.CheckReadiness(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

// handleRecent serves all stored events inside the retention window,
// newest first.
func (s *Server) handleRecent(api API) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		since := api.Clock.Now().Add(-api.Retention)
		events, err := api.Events.Recent(r.Context(), since)
		if err != nil {
			s.logger.Error("recent events query failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"error": "failed to fetch earthquakes",
			})
			return
		}
		writeJSON(w, http.StatusOK, events)
	}
}

func (s *Server) handleSubscribe(subs Subscriber) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var sub domain.Subscription
		if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": "invalid subscription payload",
			})
			return
		}
		subs.Add(sub)
		writeJSON(w, http.StatusCreated, map[string]bool{"success": true})
	}
}

func (s *Server) handleTestNotification(trigger TestTrigger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		event, err := trigger.TriggerTest(r.Context())
		if err != nil {
			s.logger.Error("test notification failed", "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"error": "failed to trigger test notification",
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"message":    "Test notification triggered",
			"earthquake": event,
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
