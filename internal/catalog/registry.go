package catalog

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

const (
	defaultViewTTL  = 30 * time.Minute
	defaultMaxViews = 10000
)

var (
	// ErrViewNotFound is returned for unknown or expired view ids.
	ErrViewNotFound = errors.New("catalog: view not found")
	// ErrRegistryClosed is returned when mounting after Close.
	ErrRegistryClosed = errors.New("catalog: registry closed")
)

// RegistryOption customises a Registry.
type RegistryOption func(*Registry)

// WithViewTTL sets how long an untouched view is kept.
func WithViewTTL(ttl time.Duration) RegistryOption {
	return func(r *Registry) {
		if ttl > 0 {
			r.ttl = ttl
		}
	}
}

// WithViewPageSize sets the page size of every view the registry mounts.
func WithViewPageSize(size int) RegistryOption {
	return func(r *Registry) {
		if size >= 0 {
			r.pageSize = size
		}
	}
}

// WithMaxViews caps the number of live views. Mounting past the cap unmounts
// the least recently used view.
func WithMaxViews(n int) RegistryOption {
	return func(r *Registry) {
		if n > 0 {
			r.maxViews = n
		}
	}
}

// WithRegistryLogger attaches a logger.
func WithRegistryLogger(logger *zap.Logger) RegistryOption {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithClock overrides the time source used for expiry.
func WithClock(now func() time.Time) RegistryOption {
	return func(r *Registry) {
		if now != nil {
			r.now = now
		}
	}
}

type registryEntry struct {
	view     *View
	lastSeen time.Time
}

// Registry tracks mounted views by id and expires idle ones.
type Registry struct {
	fetcher  Fetcher
	ttl      time.Duration
	pageSize int
	maxViews int
	logger   *zap.Logger
	now      func() time.Time

	base   context.Context
	cancel context.CancelFunc

	// mu guards closed and entry timestamps; views has its own lock.
	mu     sync.Mutex
	views  *lru.Cache[string, *registryEntry]
	closed bool
}

// NewRegistry creates a registry whose views fetch through fetcher.
func NewRegistry(fetcher Fetcher, opts ...RegistryOption) *Registry {
	base, cancel := context.WithCancel(context.Background())
	r := &Registry{
		fetcher:  fetcher,
		ttl:      defaultViewTTL,
		pageSize: DefaultPageSize,
		logger:   zap.NewNop(),
		maxViews: defaultMaxViews,
		now:      time.Now,
		base:     base,
		cancel:   cancel,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	views, err := lru.NewWithEvict(r.maxViews, func(_ string, entry *registryEntry) {
		entry.view.Unmount()
	})
	if err != nil {
		// Only reachable with a non-positive size, which WithMaxViews rejects.
		panic(fmt.Sprintf("catalog: view cache: %v", err))
	}
	r.views = views
	return r
}

// Mount creates a view, mounts it and starts its fetch. The fetch is bound to
// the registry lifetime, not to the calling request.
func (r *Registry) Mount() (*View, error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, ErrRegistryClosed
	}
	id := ulid.Make().String()
	view := NewView(id, r.fetcher,
		WithPageSize(r.pageSize),
		WithViewLogger(r.logger),
	)
	evicted := r.views.Add(id, &registryEntry{view: view, lastSeen: r.now()})
	r.mu.Unlock()

	if evicted {
		r.logger.Info("view limit reached; evicted least recently used view", zap.Int("max_views", r.maxViews))
	}
	view.Mount(r.base)
	return view, nil
}

// Get returns the view for id and refreshes its expiry.
func (r *Registry) Get(id string) (*View, error) {
	entry, ok := r.views.Get(id)
	if !ok || !entry.view.Mounted() {
		return nil, fmt.Errorf("%w: %s", ErrViewNotFound, id)
	}
	r.mu.Lock()
	entry.lastSeen = r.now()
	r.mu.Unlock()
	return entry.view, nil
}

// Unmount tears down and forgets the view for id.
func (r *Registry) Unmount(id string) error {
	if !r.views.Remove(id) {
		return fmt.Errorf("%w: %s", ErrViewNotFound, id)
	}
	return nil
}

// Len returns the number of live views.
func (r *Registry) Len() int {
	return r.views.Len()
}

// Sweep unmounts views idle for longer than the TTL and returns how many
// were removed.
func (r *Registry) Sweep() int {
	cutoff := r.now().Add(-r.ttl)
	var expired []string

	r.mu.Lock()
	for _, id := range r.views.Keys() {
		if entry, ok := r.views.Peek(id); ok && entry.lastSeen.Before(cutoff) {
			expired = append(expired, id)
		}
	}
	r.mu.Unlock()

	removed := 0
	for _, id := range expired {
		if r.views.Remove(id) {
			removed++
		}
	}
	if removed > 0 {
		r.logger.Info("expired idle views", zap.Int("count", removed))
	}
	return removed
}

// Run sweeps on every interval tick until ctx is done.
func (r *Registry) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			r.Sweep()
		}
	}
}

// Close unmounts every view and waits for their fetches to return, or for ctx.
func (r *Registry) Close(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	entries := r.views.Values()
	r.mu.Unlock()

	r.cancel()
	r.views.Purge()
	for _, entry := range entries {
		select {
		case <-entry.view.FetchDone():
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}
