package store

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/goliatone/go-flowx/api"
	"github.com/goliatone/go-flowx/cache"
	"github.com/puzpuzpuz/xsync/v3"
)

// indexRef names one secondary index entry a record belongs to.
type indexRef struct {
	index string
	fk    int64
}

// keyInfo is what the registry remembers about a key the store has used.
type keyInfo struct {
	primary bool
	id      int64
	index   string
	fk      int64
}

// entityCache holds the cached records of one entity type: a primary entry per
// id and secondary index lists keyed by foreign key. All cache mutations run
// under mu; network calls never do.
type entityCache[E any] struct {
	ns       string
	cache    cache.CacheService
	keys     cache.KeySerializer
	idOf     func(E) int64
	refsOf   func(E) []indexRef
	logger   *slog.Logger
	registry *xsync.MapOf[string, keyInfo]
	lists    *inflight[[]E]
	records  *inflight[E]
	fences   *fences

	mu sync.Mutex

	errMu   sync.RWMutex
	lastErr error
}

func newEntityCache[E any](svc cache.CacheService, o options, idOf func(E) int64, refsOf func(E) []indexRef) *entityCache[E] {
	return &entityCache[E]{
		ns:       namespaceOf[E](),
		cache:    svc,
		keys:     o.keys,
		idOf:     idOf,
		refsOf:   refsOf,
		logger:   o.logger,
		registry: xsync.NewMapOf[string, keyInfo](),
		lists:    newInflight[[]E](),
		records:  newInflight[E](),
		fences:   newFences(),
	}
}

func (c *entityCache[E]) primaryKey(id int64) string {
	return c.keys.SerializeKey(c.ns+cache.KeySeparator+"id", id)
}

func (c *entityCache[E]) indexKey(index string, fk int64) string {
	return c.keys.SerializeKey(c.ns+cache.KeySeparator+"idx", index, fk)
}

func (c *entityCache[E]) trackPrimary(key string, id int64) {
	c.registry.Store(key, keyInfo{primary: true, id: id})
}

func (c *entityCache[E]) trackIndex(key, index string, fk int64) {
	c.registry.Store(key, keyInfo{index: index, fk: fk})
}

// Err returns the last absorbed failure, or nil after a successful operation.
func (c *entityCache[E]) Err() error {
	c.errMu.RLock()
	defer c.errMu.RUnlock()
	return c.lastErr
}

func (c *entityCache[E]) fail(op string, err error) {
	c.errMu.Lock()
	c.lastErr = err
	c.errMu.Unlock()
	c.logger.Warn("store operation failed", "store", c.ns, "op", op, "error", api.Message(err))
}

func (c *entityCache[E]) succeed() {
	c.errMu.Lock()
	c.lastErr = nil
	c.errMu.Unlock()
}

// list serves a secondary index read: cached list when present and not being
// refreshed, otherwise one shared fetch whose result is cached if no newer
// write touched the key while it was in flight.
func (c *entityCache[E]) list(ctx context.Context, index string, fk int64, force bool, fetch func(context.Context) ([]E, error)) ([]E, error) {
	key := c.indexKey(index, fk)
	if !force && !c.lists.loading(key) {
		if cached, ok := cache.Get[[]E](ctx, c.cache, key); ok {
			return cloneList(cached), nil
		}
	}

	c.trackIndex(key, index, fk)
	items, _, err := c.lists.do(ctx, key, func(ctx context.Context) ([]E, error) {
		ticket := c.fences.next(key)
		items, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		if items == nil {
			items = []E{}
		}

		c.mu.Lock()
		defer c.mu.Unlock()
		if !c.fences.apply(key, ticket) {
			c.logger.Debug("discarding stale list response", "key", key, "ticket", ticket)
			return items, nil
		}
		_ = c.cache.Set(ctx, key, cloneList(items))
		return items, nil
	})
	if err != nil {
		return nil, err
	}
	return cloneList(items), nil
}

// record serves a primary read with the same rules as list.
func (c *entityCache[E]) record(ctx context.Context, id int64, force bool, fetch func(context.Context) (E, error)) (E, error) {
	key := c.primaryKey(id)
	if !force && !c.records.loading(key) {
		if cached, ok := cache.Get[E](ctx, c.cache, key); ok {
			return cached, nil
		}
	}

	c.trackPrimary(key, id)
	rec, _, err := c.records.do(ctx, key, func(ctx context.Context) (E, error) {
		ticket := c.fences.next(key)
		rec, err := fetch(ctx)
		if err != nil {
			return rec, err
		}
		if c.idOf(rec) == 0 {
			return rec, ErrNotFound
		}

		c.mu.Lock()
		defer c.mu.Unlock()
		if !c.fences.apply(key, ticket) {
			c.logger.Debug("discarding stale record response", "key", key, "ticket", ticket)
			return rec, nil
		}
		_ = c.cache.Set(ctx, key, rec)
		return rec, nil
	})
	return rec, err
}

// loading reports whether a read for the index list is in flight.
func (c *entityCache[E]) loading(index string, fk int64) bool {
	return c.lists.loading(c.indexKey(index, fk))
}

// created stores a freshly created record and drops every index list keyed
// by one of its foreign keys so the next read refetches it.
func (c *entityCache[E]) created(ctx context.Context, rec E) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := c.primaryKey(c.idOf(rec))
	c.fences.advance(key)
	c.trackPrimary(key, c.idOf(rec))
	_ = c.cache.Set(ctx, key, rec)

	for _, ref := range c.refsOf(rec) {
		ik := c.indexKey(ref.index, ref.fk)
		c.fences.advance(ik)
		_ = c.cache.Delete(ctx, ik)
	}
}

// updated applies a write response taken with ticket. It patches the primary
// entry and every cached list holding the id. A list under an index whose
// foreign key no longer matches the record, or that the record no longer
// belongs to at all, loses the entry; lists keyed by
// the record's current foreign keys that do not hold it yet are dropped.
// It returns false when a newer write for the same id was already applied.
func (c *entityCache[E]) updated(ctx context.Context, ticket uint64, rec E) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.idOf(rec)
	key := c.primaryKey(id)
	if !c.fences.apply(key, ticket) {
		c.logger.Debug("discarding stale write response", "key", key, "ticket", ticket)
		return false
	}
	c.trackPrimary(key, id)
	_ = c.cache.Set(ctx, key, rec)

	current := make(map[string]int64)
	for _, ref := range c.refsOf(rec) {
		current[ref.index] = ref.fk
	}

	c.eachList(ctx, func(ik string, info keyInfo, items []E) {
		pos := c.indexOf(items, id)
		fk, indexed := current[info.index]
		switch {
		case pos >= 0 && (!indexed || fk != info.fk):
			c.storeList(ctx, ik, append(items[:pos:pos], items[pos+1:]...))
		case pos >= 0:
			patched := cloneList(items)
			patched[pos] = rec
			c.storeList(ctx, ik, patched)
		case indexed && fk == info.fk:
			c.fences.advance(ik)
			_ = c.cache.Delete(ctx, ik)
		}
	})
	return true
}

// removed drops id from the primary map and filters it out of every list.
func (c *entityCache[E]) removed(ctx context.Context, id int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := c.primaryKey(id)
	c.fences.advance(key)
	_ = c.cache.Delete(ctx, key)
	c.registry.Delete(key)

	c.eachList(ctx, func(ik string, _ keyInfo, items []E) {
		if pos := c.indexOf(items, id); pos >= 0 {
			c.storeList(ctx, ik, append(items[:pos:pos], items[pos+1:]...))
		}
	})
}

// clear drops every primary and secondary entry of the store. Responses still
// in flight for any known key are discarded when they arrive.
func (c *entityCache[E]) clear(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.registry.Range(func(key string, _ keyInfo) bool {
		c.fences.advance(key)
		return true
	})
	c.registry.Clear()
	_ = c.cache.DeleteByPrefix(ctx, c.ns+cache.KeySeparator)
}

// eachList calls fn for every cached index list. Callers hold mu.
func (c *entityCache[E]) eachList(ctx context.Context, fn func(key string, info keyInfo, items []E)) {
	c.registry.Range(func(key string, info keyInfo) bool {
		if info.primary {
			return true
		}
		items, ok := cache.Get[[]E](ctx, c.cache, key)
		if !ok {
			return true
		}
		fn(key, info, items)
		return true
	})
}

// storeList writes a patched list and discards reads of it still in flight.
func (c *entityCache[E]) storeList(ctx context.Context, key string, items []E) {
	c.fences.advance(key)
	_ = c.cache.Set(ctx, key, items)
}

func (c *entityCache[E]) indexOf(items []E, id int64) int {
	for i, item := range items {
		if c.idOf(item) == id {
			return i
		}
	}
	return -1
}

// cachedRecord returns the primary entry for id without touching the network.
func (c *entityCache[E]) cachedRecord(ctx context.Context, id int64) (E, bool) {
	return cache.Get[E](ctx, c.cache, c.primaryKey(id))
}

// cachedList returns the index list without touching the network.
func (c *entityCache[E]) cachedList(ctx context.Context, index string, fk int64) ([]E, bool) {
	items, ok := cache.Get[[]E](ctx, c.cache, c.indexKey(index, fk))
	return cloneList(items), ok
}

// snapshot is the persisted shape of an entity cache.
type snapshot[E any] struct {
	Records []E                       `json:"records" msgpack:"records"`
	Indexes map[string]map[string][]E `json:"indexes" msgpack:"indexes"`
}

func (c *entityCache[E]) snapshot(ctx context.Context) snapshot[E] {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := snapshot[E]{Records: []E{}, Indexes: map[string]map[string][]E{}}
	c.registry.Range(func(key string, info keyInfo) bool {
		if info.primary {
			if rec, ok := cache.Get[E](ctx, c.cache, key); ok {
				snap.Records = append(snap.Records, rec)
			}
			return true
		}
		items, ok := cache.Get[[]E](ctx, c.cache, key)
		if !ok {
			return true
		}
		if snap.Indexes[info.index] == nil {
			snap.Indexes[info.index] = map[string][]E{}
		}
		snap.Indexes[info.index][strconv.FormatInt(info.fk, 10)] = cloneList(items)
		return true
	})
	return snap
}

func (c *entityCache[E]) restore(ctx context.Context, snap snapshot[E]) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, rec := range snap.Records {
		key := c.primaryKey(c.idOf(rec))
		c.trackPrimary(key, c.idOf(rec))
		_ = c.cache.Set(ctx, key, rec)
	}
	for index, lists := range snap.Indexes {
		for rawFK, items := range lists {
			fk, err := strconv.ParseInt(rawFK, 10, 64)
			if err != nil {
				return fmt.Errorf("restore %s index %s: bad key %q: %w", c.ns, index, rawFK, err)
			}
			key := c.indexKey(index, fk)
			c.trackIndex(key, index, fk)
			if items == nil {
				items = []E{}
			}
			_ = c.cache.Set(ctx, key, items)
		}
	}
	return nil
}

// size returns the number of cached entries the store owns.
func (c *entityCache[E]) size(ctx context.Context) int {
	n := 0
	prefix := c.ns + cache.KeySeparator
	for _, key := range c.cache.Keys(ctx) {
		if strings.HasPrefix(key, prefix) {
			n++
		}
	}
	return n
}

func cloneList[E any](items []E) []E {
	if items == nil {
		return nil
	}
	out := make([]E, len(items))
	copy(out, items)
	return out
}
