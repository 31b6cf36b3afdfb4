package store

import (
	"context"
	"io"
	"log/slog"

	"github.com/goliatone/go-flowx/cache"
)

// SnapshotStore persists store slices across sessions. The persist package
// provides the implementations.
type SnapshotStore interface {
	Load(ctx context.Context, key string, dest any) (bool, error)
	Save(ctx context.Context, key string, value any) error
}

// Option configures a store.
type Option func(*options)

type options struct {
	logger    *slog.Logger
	keys      cache.KeySerializer
	snapshots SnapshotStore
}

func defaultOptions() options {
	return options{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		keys:   cache.NewDefaultKeySerializer(),
	}
}

func buildOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithLogger sets the logger used for cache diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithKeySerializer replaces the default cache key serializer.
func WithKeySerializer(keys cache.KeySerializer) Option {
	return func(o *options) {
		if keys != nil {
			o.keys = keys
		}
	}
}

// WithSnapshots enables Persist and Restore.
func WithSnapshots(s SnapshotStore) Option {
	return func(o *options) {
		o.snapshots = s
	}
}
