package git

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/skosovsky/promptsdk"
	"github.com/skosovsky/promptsdk/remoteregistry"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var gitEnv = []string{
	"GIT_AUTHOR_NAME=test", "GIT_AUTHOR_EMAIL=test@test",
	"GIT_COMMITTER_NAME=test", "GIT_COMMITTER_EMAIL=test@test",
}

func record(id, text string) string {
	return "id: " + id + "\nmodel_name: gpt-4o\ntemplate:\n  messages:\n    - role: system\n      content: " + text + "\n"
}

func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for path, content := range files {
		full := filepath.Join(dir, path)
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))     // #nosec G301 -- test dir
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644)) // #nosec G306 -- test fixture
	}
}

func runGit(t *testing.T, dir string, cmds ...string) {
	t.Helper()
	for _, c := range cmds {
		cmd := exec.Command("sh", "-c", c) // #nosec G204 -- fixed command list
		cmd.Dir = dir
		cmd.Env = append(os.Environ(), gitEnv...)
		out, err := cmd.CombinedOutput()
		require.NoError(t, err, "run %q: %s", c, out)
	}
}

// initRepo creates a repo on branch main with one commit holding files.
func initRepo(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	writeFiles(t, dir, files)
	runGit(t, dir, "git init", "git branch -M main", "git add .", "git commit -m init")
}

func newFetcher(t *testing.T, dir string, opts ...Option) *Fetcher {
	t.Helper()
	g, err := NewFetcher("file://"+dir, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = g.Close() })
	return g
}

func TestFetcher_Fetch_Success(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	initRepo(t, dir, map[string]string{"support_agent.yaml": record("pv-1", "Hello {{ user_name }}")})
	data, err := newFetcher(t, dir).Fetch(context.Background(), "support_agent", "")
	require.NoError(t, err)
	require.Contains(t, string(data), "pv-1")
}

func TestFetcher_Fetch_TagSpecific(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	initRepo(t, dir, map[string]string{
		"p.yaml":            record("pv-base", "Base"),
		"p.production.json": `{"id":"pv-prod","model_name":"m","template":{"messages":[{"role":"user","content":"Production"}]}}`,
	})
	g := newFetcher(t, dir)
	ctx := context.Background()

	data, err := g.Fetch(ctx, "p", "production")
	require.NoError(t, err)
	require.Contains(t, string(data), "pv-prod")

	data, err = g.Fetch(ctx, "p", "staging")
	require.NoError(t, err)
	require.Contains(t, string(data), "pv-base")
}

func TestFetcher_Fetch_NotFound(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	initRepo(t, dir, map[string]string{"a.yaml": record("a", "x")})
	_, err := newFetcher(t, dir).Fetch(context.Background(), "missing", "")
	require.ErrorIs(t, err, remoteregistry.ErrNotFound)
}

func TestFetcher_Fetch_WithDir(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	initRepo(t, dir, map[string]string{"prompts/agent.yml": record("pv-sub", "From subdir")})
	data, err := newFetcher(t, dir, WithDir("prompts")).Fetch(context.Background(), "agent", "")
	require.NoError(t, err)
	require.Contains(t, string(data), "From subdir")
}

func TestFetcher_Fetch_WithBranch(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	initRepo(t, dir, map[string]string{"main_only.yaml": record("main", "FromMain")})
	writeFiles(t, dir, map[string]string{"dev_only.yaml": record("dev", "FromDev")})
	runGit(t, dir, "git checkout -b dev", "git add .", "git commit -m dev")

	data, err := newFetcher(t, dir, WithBranch("dev")).Fetch(context.Background(), "dev_only", "")
	require.NoError(t, err)
	require.Contains(t, string(data), "FromDev")
}

func TestFetcher_Fetch_InvalidNameRejected(t *testing.T) {
	t.Parallel()
	g, err := NewFetcher("file:///nonexistent")
	require.NoError(t, err)
	_, err = g.Fetch(context.Background(), "../../etc/passwd", "")
	require.ErrorIs(t, err, promptsdk.ErrInvalidName)
}

func TestFetcher_Fetch_CloneFailure(t *testing.T) {
	t.Parallel()
	g, err := NewFetcher("file://" + filepath.Join(t.TempDir(), "no-repo"))
	require.NoError(t, err)
	_, err = g.Fetch(context.Background(), "a", "")
	require.ErrorIs(t, err, remoteregistry.ErrFetchFailed)
	require.NoError(t, g.Close())
}

func TestFetcher_ListNames(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	initRepo(t, dir, map[string]string{
		"b.yml":       record("b", "B"),
		"a.yaml":      record("a", "A"),
		"a.prod.json": `{"id":"a"}`,
		"README.md":   "docs",
		"sub/c.yaml":  record("c", "C"),
	})
	names, err := newFetcher(t, dir).ListNames(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, names)
}

func TestFetcher_IntegrationWithRegistry(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	initRepo(t, dir, map[string]string{"integ.yaml": record("pv-integ", "Integrated")})
	g, err := NewFetcher("file://" + dir)
	require.NoError(t, err)
	reg := remoteregistry.New(g)
	defer func() { require.NoError(t, reg.Close()) }()

	p, err := reg.GetPrompt(context.Background(), "integ", "")
	require.NoError(t, err)
	require.Equal(t, "pv-integ", p.ID)

	names, err := reg.List(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"integ"}, names)
}

func TestFetcher_FetchAfterClose(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	initRepo(t, dir, map[string]string{"a.yaml": record("a", "x")})
	g := newFetcher(t, dir)
	_, err := g.Fetch(context.Background(), "a", "")
	require.NoError(t, err)
	require.NoError(t, g.Close())
	// A fetch after Close clones again.
	data, err := g.Fetch(context.Background(), "a", "")
	require.NoError(t, err)
	require.Contains(t, string(data), "id: a")
}

func TestFetcher_Concurrent(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	initRepo(t, dir, map[string]string{"c.yaml": record("c", "concurrent")})
	g := newFetcher(t, dir)
	ctx := context.Background()
	type result struct {
		data []byte
		err  error
	}
	results := make(chan result, 20)
	for range 20 {
		go func() {
			data, err := g.Fetch(ctx, "c", "")
			results <- result{data: data, err: err}
		}()
	}
	for range 20 {
		r := <-results
		require.NoError(t, r.err)
		require.Contains(t, string(r.data), "concurrent")
	}
}

func TestFetcher_Close_Idempotent(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	initRepo(t, dir, map[string]string{"a.yaml": record("a", "x")})
	g, err := NewFetcher("file://" + dir)
	require.NoError(t, err)
	_, _ = g.Fetch(context.Background(), "a", "")
	require.NoError(t, g.Close())
	require.NoError(t, g.Close())
}

func TestNewFetcher_Invalid(t *testing.T) {
	t.Parallel()
	_, err := NewFetcher("")
	require.Error(t, err)
	_, err = NewFetcher("   ")
	require.Error(t, err)
	_, err = NewFetcher("file:///x", WithBranch(" "))
	require.Error(t, err)
}

func TestFetcher_Options(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	initRepo(t, dir, map[string]string{"d.yaml": record("d", "depth")})
	// Auth is not used for file:// URLs; the fetch must still succeed.
	g := newFetcher(t, dir, WithDepth(0), WithAuth("token"), WithLogger(nil))
	require.Equal(t, 0, g.depth)
	require.NotNil(t, g.logger)
	data, err := g.Fetch(context.Background(), "d", "")
	require.NoError(t, err)
	require.Contains(t, string(data), "depth")
}
