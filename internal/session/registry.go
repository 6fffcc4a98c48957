package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

type entry struct {
	gate      *Gate
	expiresAt time.Time
}

// Registry holds the gates of all mounted browser sessions in memory.
type Registry struct {
	mu    sync.RWMutex
	gates map[string]*entry
	opts  GateOptions
	ttl   time.Duration
	now   func() time.Time
}

// NewRegistry creates an empty registry whose gates are built with opts.
func NewRegistry(opts GateOptions, ttl time.Duration) *Registry {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &Registry{
		gates: make(map[string]*entry),
		opts:  opts,
		ttl:   ttl,
		now:   time.Now,
	}
}

// Open mounts a new session and returns its id and gate.
func (r *Registry) Open() (string, *Gate) {
	id := uuid.NewString()
	gate := NewGate(r.opts)
	r.mu.Lock()
	r.gates[id] = &entry{gate: gate, expiresAt: r.now().Add(r.ttl)}
	r.mu.Unlock()
	return id, gate
}

// Get returns the gate for id, or false if it is missing or expired.
func (r *Registry) Get(id string) (*Gate, bool) {
	r.mu.RLock()
	e, ok := r.gates[id]
	r.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if r.now().After(e.expiresAt) {
		r.Close(id)
		return nil, false
	}
	return e.gate, true
}

// Close unmounts the session; its gate is discarded.
func (r *Registry) Close(id string) {
	r.mu.Lock()
	delete(r.gates, id)
	r.mu.Unlock()
}

// Sweep drops expired sessions and returns how many were removed.
func (r *Registry) Sweep() int {
	now := r.now()
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for id, e := range r.gates {
		if now.After(e.expiresAt) {
			delete(r.gates, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of mounted sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.gates)
}

// TTL returns the lifetime of a mounted session.
func (r *Registry) TTL() time.Duration {
	return r.ttl
}
