// Package subscription tracks registered Web Push endpoints.
package subscription

import (
	"sync"

	"github.com/couchcryptid/quake-alert-service/internal/domain"
)

// Registry is the process-wide set of push subscriptions. It lives for the
// process lifetime and is not persisted; clients re-register after a restart.
type Registry struct {
	mu   sync.RWMutex
	subs []domain.Subscription
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Add appends a subscription. No validation and no dedup: registering the
// same endpoint twice means two delivery attempts per event.
func (r *Registry) Add(sub domain.Subscription) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subs = append(r.subs, sub)
}

// All returns a snapshot safe to iterate while Add runs concurrently.
func (r *Registry) All() []domain.Subscription {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Subscription, len(r.subs))
	copy(out, r.subs)
	return out
}

// Len reports the current number of registrations.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs)
}
