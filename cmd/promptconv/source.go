package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/skosovsky/promptsdk"
	"github.com/skosovsky/promptsdk/fileregistry"
	"github.com/skosovsky/promptsdk/manifest"
	"github.com/skosovsky/promptsdk/remoteregistry"
	"github.com/skosovsky/promptsdk/remoteregistry/git"

	"github.com/skosovsky/promptsdk/internal/config"
)

// registry builds the registry selected by the configuration. The closer releases
// clones or caches held by remote registries.
func (a *app) registry() (promptsdk.PromptRegistry, io.Closer, error) {
	cfg := a.cfg
	switch cfg.Source() {
	case config.SourceRemote:
		f, err := remoteregistry.NewHTTPFetcher(cfg.RemoteURL, remoteregistry.WithAuthToken(cfg.RemoteToken))
		if err != nil {
			return nil, nil, err
		}
		r := a.remote(f)
		return withDefaultTag(r, cfg.DefaultTag), r, nil
	case config.SourceGit:
		f, err := git.NewFetcher(cfg.GitURL,
			git.WithBranch(cfg.GitBranch),
			git.WithDir(cfg.GitDir),
			git.WithAuth(cfg.RemoteToken),
			git.WithLogger(a.slog),
		)
		if err != nil {
			return nil, nil, err
		}
		r := a.remote(f)
		return withDefaultTag(r, cfg.DefaultTag), r, nil
	default:
		return fileregistry.New(cfg.PromptsDir, fileregistry.WithDefaultTag(cfg.DefaultTag)), closerFunc(func() error { return nil }), nil
	}
}

func (a *app) remote(f remoteregistry.Fetcher) *remoteregistry.Registry {
	return remoteregistry.New(f,
		remoteregistry.WithTTL(a.cfg.CacheTTL),
		remoteregistry.WithStaleOnError(a.cfg.StaleOnError),
		remoteregistry.WithLogger(a.slog),
	)
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// defaultTagRegistry substitutes a tag for empty lookups.
type defaultTagRegistry struct {
	next promptsdk.PromptRegistry
	tag  string
}

func withDefaultTag(r promptsdk.PromptRegistry, tag string) promptsdk.PromptRegistry {
	if tag == "" {
		return r
	}
	return defaultTagRegistry{next: r, tag: tag}
}

func (d defaultTagRegistry) GetPrompt(ctx context.Context, name, tag string) (*promptsdk.PromptVersion, error) {
	if tag == "" {
		tag = d.tag
	}
	return d.next.GetPrompt(ctx, name, tag)
}

// loadPrompt reads ref as a record file when it names an existing .yaml/.yml/.json file,
// otherwise looks it up by name in the configured registry.
func (a *app) loadPrompt(ctx context.Context, ref, tag string) (*promptsdk.PromptVersion, error) {
	switch filepath.Ext(ref) {
	case ".yaml", ".yml", ".json":
		if _, err := os.Stat(ref); err == nil {
			return manifest.ParseFile(ref)
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}
	reg, closer, err := a.registry()
	if err != nil {
		return nil, fmt.Errorf("prompt source: %w", err)
	}
	defer func() { _ = closer.Close() }()
	return reg.GetPrompt(ctx, ref, tag)
}
