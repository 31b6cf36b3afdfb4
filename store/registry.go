package store

import (
	"context"

	"github.com/puzpuzpuz/xsync/v3"
	"golang.org/x/sync/singleflight"
)

// inflight shares one fetch per cache key between every caller that asks for
// it while the fetch runs. keys holds the keys whose fetch has started and not
// yet finished.
type inflight[V any] struct {
	group singleflight.Group
	keys  *xsync.MapOf[string, struct{}]
}

func newInflight[V any]() *inflight[V] {
	return &inflight[V]{keys: xsync.NewMapOf[string, struct{}]()}
}

// do runs fn for key unless a call for key is already running, in which case
// it waits for that call's result. shared reports whether the result was
// handed to more than one caller. A waiter whose ctx ends stops waiting; the
// fetch itself keeps running for the others.
func (f *inflight[V]) do(ctx context.Context, key string, fn func(context.Context) (V, error)) (V, bool, error) {
	ch := f.group.DoChan(key, func() (any, error) {
		f.keys.Store(key, struct{}{})
		defer f.keys.Delete(key)
		return fn(ctx)
	})

	select {
	case res := <-ch:
		val, _ := res.Val.(V)
		return val, res.Shared, res.Err
	case <-ctx.Done():
		var zero V
		return zero, false, ctx.Err()
	}
}

func (f *inflight[V]) loading(key string) bool {
	_, ok := f.keys.Load(key)
	return ok
}

// fence tracks the tickets handed out for one key and the newest one applied.
type fence struct {
	issued  uint64
	applied uint64
}

// fences orders responses per key. Every request takes a ticket before it is
// sent; its response may only touch the cache if no newer ticket for the same
// key has been applied in the meantime.
type fences struct {
	m *xsync.MapOf[string, fence]
}

func newFences() *fences {
	return &fences{m: xsync.NewMapOf[string, fence]()}
}

func (f *fences) next(key string) uint64 {
	v, _ := f.m.Compute(key, func(old fence, _ bool) (fence, bool) {
		old.issued++
		return old, false
	})
	return v.issued
}

// apply records ticket as applied and reports true when it is the newest
// ticket seen for key so far.
func (f *fences) apply(key string, ticket uint64) bool {
	ok := false
	f.m.Compute(key, func(old fence, _ bool) (fence, bool) {
		if ticket > old.applied {
			old.applied = ticket
			ok = true
		}
		return old, false
	})
	return ok
}

// advance issues and applies a fresh ticket, so every response still in
// flight for key is discarded when it arrives.
func (f *fences) advance(key string) {
	f.apply(key, f.next(key))
}
