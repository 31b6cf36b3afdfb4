package store

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/goliatone/go-flowx/cache"
	"github.com/goliatone/go-flowx/model"
)

// NotificationAPI is the slice of the notification service the store calls.
type NotificationAPI interface {
	List(ctx context.Context, q model.NotificationQuery) (model.Page[model.Notification], error)
	MarkRead(ctx context.Context, id int64) error
	MarkAllRead(ctx context.Context) error
	UnreadCount(ctx context.Context) (int, error)
}

const (
	NotificationsSnapshotKey = "flowx.notifications"

	notificationNamespace = "notification"
	unreadKey             = "notification::unread"
)

// NotificationStore keeps the notification feed: fetched pages, live pushes
// from the WebSocket listener, and the unread counter.
type NotificationStore struct {
	api       NotificationAPI
	cache     cache.CacheService
	keys      cache.KeySerializer
	logger    *slog.Logger
	snapshots SnapshotStore
	pages     *inflight[model.Page[model.Notification]]
	counts    *inflight[int]
	fences    *fences

	mu          sync.Mutex
	items       []model.Notification
	unread      int
	unreadKnown bool

	errMu   sync.RWMutex
	lastErr error
}

type notificationSnapshot struct {
	Items  []model.Notification `json:"items" msgpack:"items"`
	Unread int                  `json:"unread" msgpack:"unread"`
}

// NewNotificationStore returns an empty feed over api.
func NewNotificationStore(api NotificationAPI, svc cache.CacheService, opts ...Option) *NotificationStore {
	o := buildOptions(opts)
	return &NotificationStore{
		api:       api,
		cache:     svc,
		keys:      o.keys,
		logger:    o.logger,
		snapshots: o.snapshots,
		pages:     newInflight[model.Page[model.Notification]](),
		counts:    newInflight[int](),
		fences:    newFences(),
		items:     []model.Notification{},
	}
}

func (s *NotificationStore) pageKey(q model.NotificationQuery) string {
	return s.keys.SerializeKey(notificationNamespace+cache.KeySeparator+"page", q.Page, q.Size, q.UnreadOnly)
}

// Page returns one page of the feed. The first page of the unfiltered feed
// replaces the local item list; later pages are appended to it.
func (s *NotificationStore) Page(ctx context.Context, q model.NotificationQuery, force bool) model.Page[model.Notification] {
	q = q.Normalize()
	if err := q.Validate(); err != nil {
		s.settle("page", err)
		return model.Page[model.Notification]{Items: []model.Notification{}, Page: q.Page, Size: q.Size}
	}

	key := s.pageKey(q)
	if !force && !s.pages.loading(key) {
		if page, ok := cache.Get[model.Page[model.Notification]](ctx, s.cache, key); ok {
			return page
		}
	}

	page, _, err := s.pages.do(ctx, key, func(ctx context.Context) (model.Page[model.Notification], error) {
		ticket := s.fences.next(key)
		page, err := s.api.List(ctx, q)
		if err != nil {
			return page, err
		}
		if page.Items == nil {
			page.Items = []model.Notification{}
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		if !s.fences.apply(key, ticket) {
			return page, nil
		}
		_ = s.cache.Set(ctx, key, page)
		if !q.UnreadOnly {
			s.merge(q.Page, page.Items)
		}
		return page, nil
	})
	if !s.settle("page", err) {
		return model.Page[model.Notification]{Items: []model.Notification{}, Page: q.Page, Size: q.Size}
	}
	return page
}

// merge folds fetched items into the feed. Callers hold mu.
func (s *NotificationStore) merge(pageNo int, fetched []model.Notification) {
	if pageNo == 1 {
		s.items = append([]model.Notification{}, fetched...)
		return
	}
	seen := make(map[int64]struct{}, len(s.items))
	for _, n := range s.items {
		seen[n.ID] = struct{}{}
	}
	for _, n := range fetched {
		if _, ok := seen[n.ID]; !ok {
			s.items = append(s.items, n)
		}
	}
}

// Push prepends a live notification. Duplicates by id are ignored.
func (s *NotificationStore) Push(n model.Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.items {
		if existing.ID == n.ID {
			return
		}
	}
	s.items = append([]model.Notification{n}, s.items...)
	if !n.Read {
		s.unread++
	}
	s.fences.advance(unreadKey)
	s.dropPages(context.Background())
}

// MarkRead flips the local read flag before calling the backend and flips it
// back if the call fails.
func (s *NotificationStore) MarkRead(ctx context.Context, id int64) bool {
	s.mu.Lock()
	pos := -1
	for i, n := range s.items {
		if n.ID == id {
			pos = i
			break
		}
	}
	flipped := pos >= 0 && !s.items[pos].Read
	if flipped {
		s.items[pos].Read = true
		s.adjustUnread(-1)
	}
	s.mu.Unlock()

	if err := s.api.MarkRead(ctx, id); err != nil {
		if flipped {
			s.mu.Lock()
			s.revertRead(id)
			s.mu.Unlock()
		}
		s.settle("mark_read", err)
		return false
	}

	s.mu.Lock()
	s.dropPages(ctx)
	s.mu.Unlock()
	s.settle("mark_read", nil)
	return true
}

func (s *NotificationStore) revertRead(id int64) {
	for i := range s.items {
		if s.items[i].ID == id && s.items[i].Read {
			s.items[i].Read = false
			s.adjustUnread(1)
			return
		}
	}
}

func (s *NotificationStore) adjustUnread(delta int) {
	s.fences.advance(unreadKey)
	s.unread += delta
	if s.unread < 0 {
		s.unread = 0
	}
}

// MarkAllRead marks the whole feed read once the backend confirms.
func (s *NotificationStore) MarkAllRead(ctx context.Context) bool {
	if err := s.api.MarkAllRead(ctx); err != nil {
		s.settle("mark_all_read", err)
		return false
	}

	s.mu.Lock()
	for i := range s.items {
		s.items[i].Read = true
	}
	s.fences.advance(unreadKey)
	s.unread = 0
	s.unreadKnown = true
	s.dropPages(ctx)
	s.mu.Unlock()

	s.settle("mark_all_read", nil)
	return true
}

// UnreadCount returns the unread counter, asking the backend the first time
// or when force is set.
func (s *NotificationStore) UnreadCount(ctx context.Context, force bool) int {
	s.mu.Lock()
	if s.unreadKnown && !force {
		n := s.unread
		s.mu.Unlock()
		return n
	}
	s.mu.Unlock()

	n, _, err := s.counts.do(ctx, unreadKey, func(ctx context.Context) (int, error) {
		ticket := s.fences.next(unreadKey)
		n, err := s.api.UnreadCount(ctx)
		if err != nil {
			return 0, err
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		if !s.fences.apply(unreadKey, ticket) {
			return s.unread, nil
		}
		s.unread = n
		s.unreadKnown = true
		return n, nil
	})
	if !s.settle("unread_count", err) {
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.unread
	}
	return n
}

// Items returns a copy of the local feed, newest first.
func (s *NotificationStore) Items() []model.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Notification{}, s.items...)
}

// Loading reports whether the page for q is being fetched.
func (s *NotificationStore) Loading(q model.NotificationQuery) bool {
	return s.pages.loading(s.pageKey(q.Normalize()))
}

// Clear empties the feed and forgets the unread counter.
func (s *NotificationStore) Clear(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = []model.Notification{}
	s.unread = 0
	s.unreadKnown = false
	s.fences.advance(unreadKey)
	s.dropPages(ctx)
}

// dropPages discards every cached page. Callers hold mu.
func (s *NotificationStore) dropPages(ctx context.Context) {
	prefix := notificationNamespace + cache.KeySeparator + "page"
	for _, key := range s.cache.Keys(ctx) {
		if strings.HasPrefix(key, prefix) {
			s.fences.advance(key)
		}
	}
	_ = s.cache.DeleteByPrefix(ctx, prefix)
}

// Err returns the last absorbed failure.
func (s *NotificationStore) Err() error {
	s.errMu.RLock()
	defer s.errMu.RUnlock()
	return s.lastErr
}

func (s *NotificationStore) settle(op string, err error) bool {
	s.errMu.Lock()
	s.lastErr = err
	s.errMu.Unlock()
	if err != nil {
		s.logger.Warn("notification store operation failed", "op", op, "error", err)
		return false
	}
	return true
}

// Persist writes the feed and unread counter under NotificationsSnapshotKey.
func (s *NotificationStore) Persist(ctx context.Context) error {
	if s.snapshots == nil {
		return ErrNoSnapshots
	}
	s.mu.Lock()
	snap := notificationSnapshot{Items: append([]model.Notification{}, s.items...), Unread: s.unread}
	s.mu.Unlock()
	return s.snapshots.Save(ctx, NotificationsSnapshotKey, snap)
}

// Restore loads a persisted feed. Restored counters are treated as unknown
// so the next UnreadCount asks the backend.
func (s *NotificationStore) Restore(ctx context.Context) (bool, error) {
	if s.snapshots == nil {
		return false, ErrNoSnapshots
	}
	var snap notificationSnapshot
	ok, err := s.snapshots.Load(ctx, NotificationsSnapshotKey, &snap)
	if err != nil || !ok {
		return ok, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if snap.Items == nil {
		snap.Items = []model.Notification{}
	}
	s.items = snap.Items
	s.unread = snap.Unread
	return true, nil
}
