package git

import "log/slog"

// Option configures Fetcher.
type Option func(*Fetcher)

// WithBranch sets the branch to clone. Default is "main".
func WithBranch(branch string) Option {
	return func(g *Fetcher) { g.branch = branch }
}

// WithDir sets the subdirectory holding prompt records (e.g. "prompts"). Default is the repo root.
func WithDir(dir string) Option {
	return func(g *Fetcher) { g.dir = dir }
}

// WithDepth sets the clone depth. Default is 1; 0 clones the full history.
func WithDepth(depth int) Option {
	return func(g *Fetcher) { g.depth = depth }
}

// WithAuth sets an HTTPS access token, sent as basic auth with user "x-access-token".
func WithAuth(token string) Option {
	return func(g *Fetcher) { g.authToken = token }
}

// WithLogger sets the logger used for pull warnings. Default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(g *Fetcher) { g.logger = l }
}
