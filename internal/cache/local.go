package cache

import (
	"context"
	"sync"
	"time"

	"github.com/openkcm/compliance-hub/internal/model"
)

type entry struct {
	info      model.TenantInfo
	expiresAt time.Time
}

// Local is an in-process cache. Entries expire lazily on read.
type Local struct {
	mu      sync.RWMutex
	entries map[string]entry
	ttl     time.Duration
	now     func() time.Time
}

var _ TenantInfoCache = (*Local)(nil)

type LocalOption func(*Local)

// WithClock replaces the time source of the cache.
func WithClock(now func() time.Time) LocalOption {
	return func(l *Local) {
		l.now = now
	}
}

func NewLocal(ttl time.Duration, opts ...LocalOption) *Local {
	l := &Local{
		entries: make(map[string]entry),
		ttl:     ttl,
		now:     time.Now,
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

func (l *Local) Get(_ context.Context, slug string) (*model.TenantInfo, bool) {
	key := Key(slug)

	l.mu.RLock()
	e, ok := l.entries[key]
	l.mu.RUnlock()

	if !ok {
		return nil, false
	}

	if !l.now().Before(e.expiresAt) {
		l.mu.Lock()
		if current, still := l.entries[key]; still && current.expiresAt.Equal(e.expiresAt) {
			delete(l.entries, key)
		}
		l.mu.Unlock()

		return nil, false
	}

	info := e.info

	return &info, true
}

// Set stores a copy of info, callers may keep mutating theirs.
func (l *Local) Set(_ context.Context, info *model.TenantInfo) {
	if info == nil {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries[Key(info.Slug)] = entry{
		info:      *info,
		expiresAt: l.now().Add(l.ttl),
	}
}

func (l *Local) Invalidate(_ context.Context, slug string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.entries, Key(slug))
}
