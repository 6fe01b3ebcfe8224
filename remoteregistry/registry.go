package remoteregistry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/skosovsky/promptsdk"
	"github.com/skosovsky/promptsdk/manifest"

	"golang.org/x/sync/singleflight"
)

const defaultTTL = 5 * time.Minute

// detachCancel returns a context that is not cancelled when parent is cancelled,
// but still respects parent's deadline so fetches (e.g. git clone) do not hang.
// The caller should call the returned cancel when done to release the deadline timer.
func detachCancel(parent context.Context) (context.Context, context.CancelFunc) {
	ctx := context.WithoutCancel(parent)
	if dl, ok := parent.Deadline(); ok {
		return context.WithDeadline(ctx, dl)
	}
	return context.WithCancel(ctx)
}

// Ensures Registry implements promptsdk.PromptRegistry.
var _ promptsdk.PromptRegistry = (*Registry)(nil)

type cacheEntry struct {
	p         *promptsdk.PromptVersion
	expiresAt time.Time
}

// valid reports whether the entry is still valid at the given time.
func (r *Registry) valid(ent *cacheEntry, now time.Time) bool {
	return r.ttl <= 0 || now.Before(ent.expiresAt)
}

// Registry loads prompt records via a Fetcher and caches them with TTL.
// GetPrompt returns a cloned record.
type Registry struct {
	fetcher      Fetcher
	ttl          time.Duration
	staleOnError bool
	logger       *slog.Logger
	mu           sync.RWMutex
	cache        map[string]*cacheEntry
	sf           singleflight.Group
	now          func() time.Time
}

// New creates a Registry that uses the given Fetcher. Options (e.g. WithTTL) configure cache behavior.
// Panics if fetcher is nil.
func New(fetcher Fetcher, opts ...Option) *Registry {
	if fetcher == nil {
		panic("remoteregistry: Fetcher must not be nil")
	}
	r := &Registry{
		fetcher: fetcher,
		ttl:     defaultTTL,
		cache:   make(map[string]*cacheEntry),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	return r
}

// GetPrompt returns a record by name and tag. Uses the TTL cache; on miss or expiry, fetches via Fetcher.
// Concurrent misses for the same key share one fetch.
func (r *Registry) GetPrompt(ctx context.Context, name, tag string) (*promptsdk.PromptVersion, error) {
	if err := ValidateName(name, tag); err != nil {
		return nil, err
	}
	key := name + ":" + tag

	r.mu.RLock()
	ent, ok := r.cache[key]
	r.mu.RUnlock()
	if ok && r.valid(ent, r.now()) {
		return promptsdk.CloneVersion(ent.p), nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	v, err, _ := r.sf.Do(key, func() (any, error) {
		fetchCtx, cancel := detachCancel(ctx)
		defer cancel()
		data, err := r.fetcher.Fetch(fetchCtx, name, tag)
		if err != nil {
			return nil, err
		}
		p, err := manifest.ParseBytes(data)
		if err != nil {
			return nil, err
		}
		p.Tag = tag
		r.store(key, p)
		return p, nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: %q", promptsdk.ErrPromptNotFound, name)
		}
		if ok && r.staleOnError {
			r.logger.Warn("remote prompt refetch failed, serving stale record",
				"prompt", name, "tag", tag, "err", err)
			return promptsdk.CloneVersion(ent.p), nil
		}
		return nil, err
	}
	return promptsdk.CloneVersion(v.(*promptsdk.PromptVersion)), nil
}

func (r *Registry) store(key string, p *promptsdk.PromptVersion) {
	var expiresAt time.Time
	if r.ttl > 0 {
		expiresAt = r.now().Add(r.ttl)
	}
	r.mu.Lock()
	r.cache[key] = &cacheEntry{p: p, expiresAt: expiresAt}
	r.mu.Unlock()
}

// List returns prompt names from the Fetcher if it implements Lister; otherwise returns nil, nil.
func (r *Registry) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if lister, ok := r.fetcher.(Lister); ok {
		return lister.ListNames(ctx)
	}
	return nil, nil
}

// Evict removes one record from the cache by name and tag. Safe for concurrent use.
func (r *Registry) Evict(name, tag string) {
	r.mu.Lock()
	delete(r.cache, name+":"+tag)
	r.mu.Unlock()
}

// EvictAll clears the entire cache. Safe for concurrent use.
func (r *Registry) EvictAll() {
	r.mu.Lock()
	r.cache = make(map[string]*cacheEntry)
	r.mu.Unlock()
}

// Close calls Close on the underlying Fetcher if it implements the interface.
// Use this to clean up resources (e.g. git.Fetcher removes the local clone).
func (r *Registry) Close() error {
	if c, ok := r.fetcher.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}
