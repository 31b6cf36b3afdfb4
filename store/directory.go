package store

import (
	"context"
	"log/slog"
	"sync"

	"github.com/goliatone/go-flowx/cache"
	"github.com/goliatone/go-flowx/model"
)

// DirectoryAPI covers the read-only user and department endpoints.
type DirectoryAPI interface {
	User(ctx context.Context, id int64) (model.User, error)
	AllUsers(ctx context.Context) ([]model.User, error)
	SearchUsers(ctx context.Context, q string) ([]model.User, error)
	Department(ctx context.Context, id int64) (model.Department, error)
	AllDepartments(ctx context.Context) ([]model.Department, error)
	DepartmentUsers(ctx context.Context, id int64) ([]model.User, error)
}

const directoryNamespace = "directory"

// DirectoryStore is a read-through cache of users and departments. Directory
// data is never written by the client, so entries only leave the cache on
// TTL expiry or Invalidate.
type DirectoryStore struct {
	api    DirectoryAPI
	cache  cache.CacheService
	keys   cache.KeySerializer
	logger *slog.Logger

	errMu   sync.RWMutex
	lastErr error
}

// NewDirectoryStore returns a read-through DirectoryStore over api.
func NewDirectoryStore(api DirectoryAPI, svc cache.CacheService, opts ...Option) *DirectoryStore {
	o := buildOptions(opts)
	return &DirectoryStore{api: api, cache: svc, keys: o.keys, logger: o.logger}
}

func (s *DirectoryStore) key(kind string, args ...any) string {
	return s.keys.SerializeKey(directoryNamespace+cache.KeySeparator+kind, args...)
}

// User returns one user, or nil on failure.
func (s *DirectoryStore) User(ctx context.Context, id int64) *model.User {
	u, err := cache.GetOrFetch(ctx, s.cache, s.key("user", id), func(ctx context.Context) (model.User, error) {
		return s.api.User(ctx, id)
	})
	if !s.settle("user", err) {
		return nil
	}
	return &u
}

// Users returns every user.
func (s *DirectoryStore) Users(ctx context.Context) []model.User {
	users, err := cache.GetOrFetch(ctx, s.cache, s.key("users"), s.api.AllUsers)
	if !s.settle("users", err) {
		return []model.User{}
	}
	return users
}

// SearchUsers is never cached; results depend on free text.
func (s *DirectoryStore) SearchUsers(ctx context.Context, q string) []model.User {
	users, err := s.api.SearchUsers(ctx, q)
	if !s.settle("search_users", err) {
		return []model.User{}
	}
	return users
}

// Department returns one department, or nil on failure.
func (s *DirectoryStore) Department(ctx context.Context, id int64) *model.Department {
	d, err := cache.GetOrFetch(ctx, s.cache, s.key("department", id), func(ctx context.Context) (model.Department, error) {
		return s.api.Department(ctx, id)
	})
	if !s.settle("department", err) {
		return nil
	}
	return &d
}

// Departments returns every department.
func (s *DirectoryStore) Departments(ctx context.Context) []model.Department {
	deps, err := cache.GetOrFetch(ctx, s.cache, s.key("departments"), s.api.AllDepartments)
	if !s.settle("departments", err) {
		return []model.Department{}
	}
	return deps
}

// DepartmentUsers returns the users of one department.
func (s *DirectoryStore) DepartmentUsers(ctx context.Context, id int64) []model.User {
	users, err := cache.GetOrFetch(ctx, s.cache, s.key("department_users", id), func(ctx context.Context) ([]model.User, error) {
		return s.api.DepartmentUsers(ctx, id)
	})
	if !s.settle("department_users", err) {
		return []model.User{}
	}
	return users
}

// Invalidate drops every cached directory entry.
func (s *DirectoryStore) Invalidate(ctx context.Context) {
	_ = s.cache.DeleteByPrefix(ctx, directoryNamespace+cache.KeySeparator)
}

// Err returns the last absorbed failure.
func (s *DirectoryStore) Err() error {
	s.errMu.RLock()
	defer s.errMu.RUnlock()
	return s.lastErr
}

func (s *DirectoryStore) settle(op string, err error) bool {
	s.errMu.Lock()
	s.lastErr = err
	s.errMu.Unlock()
	if err != nil {
		s.logger.Warn("directory lookup failed", "op", op, "error", err)
		return false
	}
	return true
}
