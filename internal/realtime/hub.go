// Package realtime broadcasts newly ingested events to connected websocket clients.
package realtime

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/couchcryptid/quake-alert-service/internal/observability"
)

// Message is one broadcast frame sent to every connected client.
type Message struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// Hub tracks connected clients and fans broadcast messages out to all of
// them. It implements fanout.Broadcaster.
type Hub struct {
	register   chan *client
	unregister chan *client
	broadcast  chan Message
	clients    map[*client]struct{}
	logger     *slog.Logger
	metrics    *observability.Metrics
	upgrader   websocket.Upgrader
}

// NewHub creates a hub. Run must be started before clients connect.
func NewHub(logger *slog.Logger, metrics *observability.Metrics) *Hub {
	return &Hub{
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan Message, 64),
		clients:    make(map[*client]struct{}),
		logger:     logger,
		metrics:    metrics,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The API already serves permissive CORS; the feed is public data.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Run owns the client set until ctx is cancelled. All mutation of the set
// happens on this goroutine.
func (h *Hub) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			h.metrics.ConnectedClients.Set(0)
			h.logger.Info("realtime hub stopping", "reason", ctx.Err())
			return nil

		case c := <-h.register:
			h.clients[c] = struct{}{}
			h.metrics.ConnectedClients.Set(float64(len(h.clients)))
			h.logger.Debug("websocket client connected", "total_clients", len(h.clients))

		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
				h.metrics.ConnectedClients.Set(float64(len(h.clients)))
				h.logger.Debug("websocket client disconnected", "total_clients", len(h.clients))
			}

		case msg := <-h.broadcast:
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					// Slow client: drop it rather than blocking the hub.
					delete(h.clients, c)
					close(c.send)
					h.metrics.ConnectedClients.Set(float64(len(h.clients)))
					h.logger.Warn("dropping slow websocket client", "total_clients", len(h.clients))
				}
			}
		}
	}
}

// Emit broadcasts one message to all connected clients, fire-and-forget.
// If the hub's buffer is full the message is dropped and logged.
func (h *Hub) Emit(event string, data any) {
	select {
	case h.broadcast <- Message{Event: event, Data: data}:
	default:
		h.logger.Warn("broadcast buffer full, dropping message", "event", event)
	}
}

// ServeWS upgrades the connection and registers the client with the hub.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	c := &client{hub: h, conn: conn, send: make(chan Message, 16)}
	h.register <- c
	go c.writePump()
	go c.readPump()
}
