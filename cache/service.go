package cache

import (
	"context"
	"errors"
)

// ErrInvalidResultType is returned when a cached value does not have the type
// the caller asked for.
var ErrInvalidResultType = errors.New("cache: cached value has unexpected type")

// KeySerializer builds a cache key from a namespace and arbitrary args.
// It is responsible for producing stable keys across calls.
type KeySerializer interface {
	SerializeKey(namespace string, args ...any) string
}

// FetchFn is the function signature CacheService expects when fetching from the source of truth.
type FetchFn[T any] func(ctx context.Context) (T, error)

// CacheService exposes the operations the entity stores need: read-through
// fetching for simple lookups plus direct access for stores that patch cached
// values in place.
type CacheService interface {
	GetOrFetch(ctx context.Context, key string, fetchFn any) (any, error)
	Get(ctx context.Context, key string) (any, bool)
	Set(ctx context.Context, key string, value any) error
	Delete(ctx context.Context, key string) error
	DeleteByPrefix(ctx context.Context, prefix string) error
	InvalidateKeys(ctx context.Context, keys []string) error
	Keys(ctx context.Context) []string
	Clear(ctx context.Context) error
}

// GetOrFetch is a type-safe wrapper function that provides generic support for CacheService.
func GetOrFetch[T any](ctx context.Context, service CacheService, key string, fetchFn FetchFn[T]) (T, error) {
	var zero T
	result, err := service.GetOrFetch(ctx, key, fetchFn)
	if err != nil {
		return zero, err
	}
	if result == nil {
		return zero, nil
	}
	typed, ok := result.(T)
	if !ok {
		return zero, ErrInvalidResultType
	}
	return typed, nil
}

// Get returns the cached value for key when present and of type T.
func Get[T any](ctx context.Context, service CacheService, key string) (T, bool) {
	var zero T
	result, ok := service.Get(ctx, key)
	if !ok {
		return zero, false
	}
	typed, ok := result.(T)
	if !ok {
		return zero, false
	}
	return typed, true
}
