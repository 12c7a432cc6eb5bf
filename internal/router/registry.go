package router

import (
	"slices"
	"sync"

	"gorm.io/gorm"

	"github.com/openkcm/compliance-hub/internal/metrics"
)

// Registry maps connection ids to live gorm connections.
type Registry interface {
	Register(id string, db *gorm.DB)
	Lookup(id string) (*gorm.DB, bool)
	Unregister(id string) (*gorm.DB, bool)
	IDs() []string
}

// MemoryRegistry is a Registry safe for concurrent use.
type MemoryRegistry struct {
	mu    sync.RWMutex
	conns map[string]*gorm.DB
}

func NewRegistry() *MemoryRegistry {
	return &MemoryRegistry{conns: make(map[string]*gorm.DB)}
}

// Register stores db under id, replacing any previous connection.
func (r *MemoryRegistry) Register(id string, db *gorm.DB) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.conns[id] = db
	metrics.RegisteredConnections.Set(float64(len(r.conns)))
}

func (r *MemoryRegistry) Lookup(id string) (*gorm.DB, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	db, ok := r.conns[id]

	return db, ok
}

// Unregister removes id and hands back the connection so the caller can close it.
func (r *MemoryRegistry) Unregister(id string) (*gorm.DB, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	db, ok := r.conns[id]
	delete(r.conns, id)
	metrics.RegisteredConnections.Set(float64(len(r.conns)))

	return db, ok
}

func (r *MemoryRegistry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.conns))
	for id := range r.conns {
		ids = append(ids, id)
	}

	slices.Sort(ids)

	return ids
}
