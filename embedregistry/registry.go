package embedregistry

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/skosovsky/promptsdk"
	"github.com/skosovsky/promptsdk/manifest"
)

// Registry loads all records from an fs.FS at construction (eager). No mutex.
var _ promptsdk.PromptRegistry = (*Registry)(nil)

type Registry struct {
	cache      map[string]*promptsdk.PromptVersion
	defaultTag string
}

// Option configures a Registry.
type Option func(*Registry)

// WithDefaultTag sets the tag used when GetPrompt is called with an empty tag.
func WithDefaultTag(tag string) Option {
	return func(r *Registry) { r.defaultTag = tag }
}

// New walks fsys, parses every .yaml, .yml and .json file under root, and returns a Registry.
// Key format: "name:" for "name.yaml", "name:tag" for "name.tag.yaml". A parse failure aborts New.
func New(fsys fs.FS, root string, opts ...Option) (*Registry, error) {
	r := &Registry{cache: make(map[string]*promptsdk.PromptVersion)}
	for _, opt := range opts {
		opt(r)
	}
	err := fs.WalkDir(fsys, root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		ext := path.Ext(p)
		if d.IsDir() || (ext != ".yaml" && ext != ".yml" && ext != ".json") {
			return nil
		}
		rec, err := manifest.ParseFS(fsys, p)
		if err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
		name := strings.TrimSuffix(path.Base(p), ext)
		tag := ""
		if idx := strings.LastIndex(name, "."); idx >= 0 {
			name, tag = name[:idx], name[idx+1:]
		}
		rec.Tag = tag
		r.cache[name+":"+tag] = rec
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

// GetPrompt returns a prompt version by name and tag. O(1) map lookup.
// Prefer name:tag key; if missing, fallback to name: (base file).
func (r *Registry) GetPrompt(ctx context.Context, name, tag string) (*promptsdk.PromptVersion, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if tag == "" {
		tag = r.defaultTag
	}
	if err := promptsdk.ValidateName(name, tag); err != nil {
		return nil, err
	}
	if p, ok := r.cache[name+":"+tag]; ok {
		return promptsdk.CloneVersion(p), nil
	}
	if p, ok := r.cache[name+":"]; ok {
		out := promptsdk.CloneVersion(p)
		out.Tag = tag
		return out, nil
	}
	return nil, fmt.Errorf("%w: %q", promptsdk.ErrPromptNotFound, name)
}

// Names lists the loaded keys as "name" or "name.tag", unordered.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.cache))
	for key := range r.cache {
		name, tag, _ := strings.Cut(key, ":")
		if tag != "" {
			name += "." + tag
		}
		out = append(out, name)
	}
	return out
}
