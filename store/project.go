package store

import (
	"context"

	"github.com/goliatone/go-flowx/cache"
	"github.com/goliatone/go-flowx/model"
)

// ProjectAPI is the slice of the project service the store calls.
type ProjectAPI interface {
	Create(ctx context.Context, req model.CreateProjectRequest) (model.Project, error)
	Get(ctx context.Context, id int64) (model.Project, error)
	List(ctx context.Context) ([]model.Project, error)
	Update(ctx context.Context, id int64, req model.UpdateProjectRequest) (model.Project, error)
	Delete(ctx context.Context, id int64) error
}

// ProjectsSnapshotKey names the project snapshot in a SnapshotStore.
const ProjectsSnapshotKey = "flowx.projects"

// ProjectStore caches projects by id plus the list of all visible projects.
type ProjectStore struct {
	api       ProjectAPI
	entities  *entityCache[model.Project]
	snapshots SnapshotStore
}

// NewProjectStore returns a ProjectStore over api that keeps its entries in svc.
func NewProjectStore(api ProjectAPI, svc cache.CacheService, opts ...Option) *ProjectStore {
	o := buildOptions(opts)
	return &ProjectStore{
		api:       api,
		entities:  newEntityCache(svc, o, projectID, projectRefs),
		snapshots: o.snapshots,
	}
}

func projectID(p model.Project) int64 { return p.ID }

func projectRefs(model.Project) []indexRef {
	return []indexRef{{indexAll, 0}}
}

// Projects returns every visible project, from cache unless force is set.
func (s *ProjectStore) Projects(ctx context.Context, force bool) []model.Project {
	items, err := s.entities.list(ctx, indexAll, 0, force, s.api.List)
	if err != nil {
		s.entities.fail("projects", err)
		return []model.Project{}
	}
	s.entities.succeed()
	return items
}

// Project returns one project, or nil on failure.
func (s *ProjectStore) Project(ctx context.Context, id int64, force bool) *model.Project {
	p, err := s.entities.record(ctx, id, force, func(ctx context.Context) (model.Project, error) {
		return s.api.Get(ctx, id)
	})
	if err != nil {
		s.entities.fail("project", err)
		return nil
	}
	s.entities.succeed()
	return &p
}

// Create creates a project and returns nil on failure.
func (s *ProjectStore) Create(ctx context.Context, req model.CreateProjectRequest) *model.Project {
	p, err := s.CreateE(ctx, req)
	if err != nil {
		return nil
	}
	return &p
}

// CreateE creates a project and returns the failure to the caller.
func (s *ProjectStore) CreateE(ctx context.Context, req model.CreateProjectRequest) (model.Project, error) {
	p, err := s.api.Create(ctx, req)
	if err != nil {
		s.entities.fail("create", err)
		return p, err
	}
	s.entities.created(ctx, p)
	s.entities.succeed()
	return p, nil
}

// Update changes project fields and patches the cached entries.
func (s *ProjectStore) Update(ctx context.Context, id int64, req model.UpdateProjectRequest) bool {
	ticket := s.entities.fences.next(s.entities.primaryKey(id))
	p, err := s.api.Update(ctx, id, req)
	if err != nil {
		s.entities.fail("update", err)
		return false
	}
	s.entities.updated(ctx, ticket, p)
	s.entities.succeed()
	return true
}

// Delete removes a project, returning false on failure.
func (s *ProjectStore) Delete(ctx context.Context, id int64) bool {
	return s.DeleteE(ctx, id) == nil
}

// DeleteE deletes a project and returns the failure to the caller.
func (s *ProjectStore) DeleteE(ctx context.Context, id int64) error {
	if err := s.api.Delete(ctx, id); err != nil {
		s.entities.fail("delete", err)
		return err
	}
	s.entities.removed(ctx, id)
	s.entities.succeed()
	return nil
}

// Loading reports whether the project list is being fetched.
func (s *ProjectStore) Loading() bool {
	return s.entities.loading(indexAll, 0)
}

// Cached returns the cached project without touching the network.
func (s *ProjectStore) Cached(ctx context.Context, id int64) (model.Project, bool) {
	return s.entities.cachedRecord(ctx, id)
}

// CachedList returns the cached project list, if any.
func (s *ProjectStore) CachedList(ctx context.Context) ([]model.Project, bool) {
	return s.entities.cachedList(ctx, indexAll, 0)
}

// Err returns the last absorbed failure.
func (s *ProjectStore) Err() error { return s.entities.Err() }

// Clear drops every cached project.
func (s *ProjectStore) Clear(ctx context.Context) { s.entities.clear(ctx) }

// Persist writes the cached projects under ProjectsSnapshotKey.
func (s *ProjectStore) Persist(ctx context.Context) error {
	return persistEntities(ctx, s.snapshots, ProjectsSnapshotKey, s.entities)
}

// Restore loads a project snapshot into the cache.
func (s *ProjectStore) Restore(ctx context.Context) (bool, error) {
	return restoreEntities(ctx, s.snapshots, ProjectsSnapshotKey, s.entities)
}
