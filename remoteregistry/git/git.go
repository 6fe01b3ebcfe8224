package git

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport/http"

	"github.com/skosovsky/promptsdk/remoteregistry"
)

var (
	_ remoteregistry.Fetcher = (*Fetcher)(nil)
	_ remoteregistry.Lister  = (*Fetcher)(nil)
)

// Fetcher reads prompt records from a Git repository working tree.
// The repo is cloned on first use and pulled on later fetches. Call Close to remove the clone.
type Fetcher struct {
	repoURL   string
	branch    string
	dir       string
	depth     int
	authToken string
	logger    *slog.Logger

	mu       sync.Mutex
	localDir string
	repo     *git.Repository
}

// NewFetcher creates a Fetcher for repoURL. Nothing is cloned until the first Fetch.
func NewFetcher(repoURL string, opts ...Option) (*Fetcher, error) {
	if strings.TrimSpace(repoURL) == "" {
		return nil, errors.New("remoteregistry/git: repo URL must not be empty")
	}
	g := &Fetcher{
		repoURL: repoURL,
		branch:  "main",
		depth:   1,
	}
	for _, opt := range opts {
		opt(g)
	}
	if strings.TrimSpace(g.branch) == "" {
		return nil, errors.New("remoteregistry/git: branch must not be empty")
	}
	if g.logger == nil {
		g.logger = slog.Default()
	}
	return g, nil
}

// Fetch returns the first existing record among remoteregistry.CandidatePaths under the configured dir.
func (g *Fetcher) Fetch(ctx context.Context, name, tag string) ([]byte, error) {
	if err := remoteregistry.ValidateName(name, tag); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.sync(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", remoteregistry.ErrFetchFailed, err)
	}
	root := g.root()
	for _, rel := range remoteregistry.CandidatePaths(name, tag) {
		path, ok := within(root, rel)
		if !ok {
			continue
		}
		data, err := os.ReadFile(path) // #nosec G304 -- path is confined to the clone by within
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("%w: read %s: %w", remoteregistry.ErrFetchFailed, rel, err)
		}
		return data, nil
	}
	return nil, fmt.Errorf("%w: %q", remoteregistry.ErrNotFound, name)
}

// ListNames returns the distinct prompt names found in the configured dir, sorted.
// Tagged files (name.tag.ext) contribute their base name.
func (g *Fetcher) ListNames(ctx context.Context) ([]string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.sync(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", remoteregistry.ErrFetchFailed, err)
	}
	entries, err := os.ReadDir(g.root())
	if err != nil {
		return nil, fmt.Errorf("%w: list: %w", remoteregistry.ErrFetchFailed, err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := filepath.Ext(e.Name())
		if ext != ".yaml" && ext != ".yml" && ext != ".json" {
			continue
		}
		base := strings.TrimSuffix(e.Name(), ext)
		if i := strings.Index(base, "."); i > 0 {
			base = base[:i]
		}
		if !slices.Contains(names, base) {
			names = append(names, base)
		}
	}
	slices.Sort(names)
	return names, nil
}

func (g *Fetcher) root() string {
	return filepath.Clean(filepath.Join(g.localDir, g.dir))
}

// within joins rel onto root and reports whether the result stays inside root.
func within(root, rel string) (string, bool) {
	path := filepath.Clean(filepath.Join(root, rel))
	r, err := filepath.Rel(root, path)
	if err != nil || strings.HasPrefix(r, "..") || filepath.IsAbs(r) {
		return "", false
	}
	return path, true
}

func (g *Fetcher) auth() *http.BasicAuth {
	if g.authToken == "" {
		return nil
	}
	return &http.BasicAuth{Username: "x-access-token", Password: g.authToken}
}

// sync clones on first use and pulls afterwards. Pull failures keep the existing tree.
func (g *Fetcher) sync(ctx context.Context) error {
	if g.repo != nil {
		if strings.HasPrefix(g.repoURL, "file://") {
			return nil
		}
		wt, err := g.repo.Worktree()
		if err != nil {
			return fmt.Errorf("worktree: %w", err)
		}
		pullOpts := &git.PullOptions{ReferenceName: plumbing.NewBranchReferenceName(g.branch), SingleBranch: true}
		if a := g.auth(); a != nil {
			pullOpts.Auth = a
		}
		err = wt.PullContext(ctx, pullOpts)
		if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
			g.logger.Warn("git pull failed, using cached clone", "repo", g.repoURL, "err", err)
		}
		return nil
	}
	dir, err := os.MkdirTemp("", "promptsdk-git-*")
	if err != nil {
		return fmt.Errorf("temp dir: %w", err)
	}
	cloneOpts := &git.CloneOptions{
		URL:           g.repoURL,
		ReferenceName: plumbing.NewBranchReferenceName(g.branch),
		SingleBranch:  true,
	}
	if g.depth > 0 {
		cloneOpts.Depth = g.depth
	}
	if a := g.auth(); a != nil {
		cloneOpts.Auth = a
	}
	repo, err := git.PlainCloneContext(ctx, dir, false, cloneOpts)
	if err != nil {
		_ = os.RemoveAll(dir)
		return fmt.Errorf("clone %s: %w", g.repoURL, err)
	}
	g.localDir = dir
	g.repo = repo
	return nil
}

// Close removes the local clone. Safe to call multiple times.
func (g *Fetcher) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.localDir == "" {
		return nil
	}
	dir := g.localDir
	g.localDir = ""
	g.repo = nil
	return os.RemoveAll(dir)
}
