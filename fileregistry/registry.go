package fileregistry

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sync"

	"github.com/skosovsky/promptsdk"
	"github.com/skosovsky/promptsdk/manifest"
)

// Ensures Registry implements promptsdk.PromptRegistry.
var _ promptsdk.PromptRegistry = (*Registry)(nil)

// extensions are tried in order for every candidate file name.
var extensions = []string{".yaml", ".yml", ".json"}

// Registry loads prompt records from the filesystem (lazy, cached).
// Resolves name+tag to {dir}/{name}.{tag}.{ext} with fallback to {dir}/{name}.{ext}.
type Registry struct {
	dir        string
	defaultTag string
	mu         sync.RWMutex
	cache      map[string]*promptsdk.PromptVersion
}

// Option configures a Registry.
type Option func(*Registry)

// WithDefaultTag sets the tag used when GetPrompt is called with an empty tag.
func WithDefaultTag(tag string) Option {
	return func(r *Registry) { r.defaultTag = tag }
}

// New creates a Registry that reads records from dir.
func New(dir string, opts ...Option) *Registry {
	r := &Registry{
		dir:   dir,
		cache: make(map[string]*promptsdk.PromptVersion),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// GetPrompt returns a prompt version by name and tag. Lazy-loads and caches; callers get a clone.
func (r *Registry) GetPrompt(ctx context.Context, name, tag string) (*promptsdk.PromptVersion, error) {
	if tag == "" {
		tag = r.defaultTag
	}
	if err := promptsdk.ValidateName(name, tag); err != nil {
		return nil, err
	}
	key := name + ":" + tag
	r.mu.RLock()
	p, ok := r.cache[key]
	r.mu.RUnlock()
	if ok {
		return promptsdk.CloneVersion(p), nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok = r.cache[key]; ok {
		return promptsdk.CloneVersion(p), nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var bases []string
	if tag != "" {
		bases = append(bases, name+"."+tag)
	}
	bases = append(bases, name)
	for _, base := range bases {
		for _, ext := range extensions {
			p, err := manifest.ParseFile(filepath.Join(r.dir, base+ext))
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("fileregistry: %s%s: %w", base, ext, err)
			}
			p.Tag = tag
			r.cache[key] = p
			return promptsdk.CloneVersion(p), nil
		}
	}
	return nil, fmt.Errorf("%w: %q", promptsdk.ErrPromptNotFound, name)
}

// Reload clears the cache (for hot-reload in development).
func (r *Registry) Reload() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache = make(map[string]*promptsdk.PromptVersion)
}
