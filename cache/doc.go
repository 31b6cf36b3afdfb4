// Package cache provides the caching interfaces the FlowX entity stores are
// built on, plus key serialization and cache configuration.
//
// # Overview
//
// This package exports two main interfaces and their default implementations:
//
//   - CacheService: read-through fetching plus direct get/set/delete access
//   - KeySerializer: builds stable cache keys from a namespace and arguments
//
// NewCacheService returns the sturdyc-backed implementation. sturdyc
// deduplicates concurrent GetOrFetch calls for the same key, so two callers
// asking for the same department at the same time share one request.
//
// # Basic Usage
//
//	serializer := cache.NewDefaultKeySerializer()
//	key := serializer.SerializeKey("department", 12)      // "department::12"
//	dept, err := cache.GetOrFetch(ctx, svc, key, func(ctx context.Context) (model.Department, error) {
//		return departments.Get(ctx, 12)
//	})
//
// # Key Layout
//
// Scalar arguments (strings, numbers, booleans) are written verbatim, which
// keeps keys readable and lets stores invalidate whole families of keys by
// prefix ("project_member::idx::project::" drops every by-project list).
// Composite arguments such as query structs or id slices are rendered
// deterministically (map keys sorted, unexported fields skipped) and replaced
// by their xxhash digest so keys stay short.
//
// Function and channel arguments render by pointer, which is only stable
// within one process. Do not use them in keys that get persisted.
package cache
