package checkout

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/backend-pos/internal/tender"
)

// Registry holds the live reconciliation sessions, one per order. Sessions are
// in-memory state of a single till process; an idle session is evicted after
// the TTL so abandoned checkouts do not accumulate.
type Registry struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[uuid.UUID]*registryEntry
	now     func() time.Time
}

type registryEntry struct {
	session *tender.Session
	touched time.Time
}

// NewRegistry constructs a registry with the given idle TTL.
func NewRegistry(ttl time.Duration) *Registry {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &Registry{
		ttl:     ttl,
		entries: make(map[uuid.UUID]*registryEntry),
		now:     time.Now,
	}
}

// Get returns the live session for the order, touching its idle timer.
func (r *Registry) Get(orderID uuid.UUID) (*tender.Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[orderID]
	if !ok {
		return nil, false
	}
	if r.now().Sub(e.touched) > r.ttl {
		delete(r.entries, orderID)
		return nil, false
	}
	e.touched = r.now()
	return e.session, true
}

// Put registers a session, replacing any expired predecessor. When a live
// session already exists it is returned instead, keeping Open idempotent.
func (r *Registry) Put(orderID uuid.UUID, s *tender.Session) *tender.Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[orderID]; ok && r.now().Sub(e.touched) <= r.ttl {
		e.touched = r.now()
		return e.session
	}
	r.entries[orderID] = &registryEntry{session: s, touched: r.now()}
	return s
}

// Drop removes the session for the order.
func (r *Registry) Drop(orderID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, orderID)
}

// PurgeExpired evicts idle sessions and reports how many were removed.
// Intended to run on a ticker from main.
func (r *Registry) PurgeExpired() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	var purged int
	cutoff := r.now().Add(-r.ttl)
	for id, e := range r.entries {
		if e.touched.Before(cutoff) {
			delete(r.entries, id)
			purged++
		}
	}
	return purged
}

// Len reports the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
