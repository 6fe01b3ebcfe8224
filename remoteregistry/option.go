package remoteregistry

import (
	"log/slog"
	"time"
)

// Option configures a Registry (functional options pattern).
type Option func(*Registry)

// WithTTL sets the cache TTL. Records are refetched after this duration.
// Default is 5 minutes. TTL <= 0 means entries never expire.
func WithTTL(d time.Duration) Option {
	return func(r *Registry) {
		r.ttl = d
	}
}

// WithStaleOnError serves an expired cache entry when a refetch fails, logging the failure.
func WithStaleOnError(enabled bool) Option {
	return func(r *Registry) {
		r.staleOnError = enabled
	}
}

// WithLogger sets the logger for stale-cache warnings. Default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) {
		r.logger = l
	}
}
