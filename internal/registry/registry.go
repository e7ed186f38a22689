// Package registry holds the process-wide map from live connection id to the
// identity that connection declared.
package registry

import (
	"sort"
	"sync"

	"github.com/aviator-hackers/backend-avapk/internal/domain"
)

// Registry is the Session Registry. Writes happen on the hub goroutine only;
// the lock lets HTTP handlers take snapshots concurrently.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]domain.Connection
}

func New() *Registry {
	return &Registry{entries: make(map[string]domain.Connection)}
}

// Put overwrites any prior entry for connID.
func (r *Registry) Put(connID string, conn domain.Connection) {
	conn.ConnectionID = connID
	r.mu.Lock()
	r.entries[connID] = conn
	r.mu.Unlock()
}

// Get returns the descriptor for connID, if any.
func (r *Registry) Get(connID string) (domain.Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conn, ok := r.entries[connID]
	return conn, ok
}

// Remove deletes connID and returns what was stored. Removing an absent id is a no-op.
func (r *Registry) Remove(connID string) (domain.Connection, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	conn, ok := r.entries[connID]
	delete(r.entries, connID)
	return conn, ok
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Sessions returns a snapshot of the user entries ordered by join time.
func (r *Registry) Sessions() []domain.Connection {
	r.mu.RLock()
	out := make([]domain.Connection, 0, len(r.entries))
	for _, c := range r.entries {
		if c.Role == domain.RoleUser {
			out = append(out, c)
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].JoinedAt.Equal(out[j].JoinedAt) {
			return out[i].ConnectionID < out[j].ConnectionID
		}
		return out[i].JoinedAt.Before(out[j].JoinedAt)
	})
	return out
}
