package store

import (
	"context"

	"github.com/goliatone/go-flowx/cache"
	"github.com/goliatone/go-flowx/model"
)

// TaskAPI is the slice of the task service the store calls.
type TaskAPI interface {
	Create(ctx context.Context, req model.CreateTaskRequest) (model.Task, error)
	Get(ctx context.Context, id int64) (model.Task, error)
	GetByProject(ctx context.Context, projectID int64) ([]model.Task, error)
	GetByAssignee(ctx context.Context, userID int64) ([]model.Task, error)
	Update(ctx context.Context, id int64, req model.UpdateTaskRequest) (model.Task, error)
	UpdateStatus(ctx context.Context, id int64, status model.TaskStatus) (model.Task, error)
	Delete(ctx context.Context, id int64) error
}

// TasksSnapshotKey names the task snapshot in a SnapshotStore.
const TasksSnapshotKey = "flowx.tasks"

// TaskStore caches tasks by id, by project and by assignee.
type TaskStore struct {
	api       TaskAPI
	entities  *entityCache[model.Task]
	snapshots SnapshotStore
}

// NewTaskStore returns a TaskStore over api that keeps its entries in svc.
func NewTaskStore(api TaskAPI, svc cache.CacheService, opts ...Option) *TaskStore {
	o := buildOptions(opts)
	return &TaskStore{
		api:       api,
		entities:  newEntityCache(svc, o, taskID, taskRefs),
		snapshots: o.snapshots,
	}
}

func taskID(t model.Task) int64 { return t.ID }

func taskRefs(t model.Task) []indexRef {
	refs := []indexRef{{indexProject, t.ProjectID}}
	if t.AssigneeID != 0 {
		refs = append(refs, indexRef{indexAssignee, t.AssigneeID})
	}
	return refs
}

// Task returns one task, from cache unless force is set. It returns nil on
// failure and records the error for Err.
func (s *TaskStore) Task(ctx context.Context, id int64, force bool) *model.Task {
	t, err := s.entities.record(ctx, id, force, func(ctx context.Context) (model.Task, error) {
		return s.api.Get(ctx, id)
	})
	if err != nil {
		s.entities.fail("task", err)
		return nil
	}
	s.entities.succeed()
	return &t
}

// TasksByProject returns the tasks of a project, from cache unless force is
// set. A failed fetch yields an empty list.
func (s *TaskStore) TasksByProject(ctx context.Context, projectID int64, force bool) []model.Task {
	items, err := s.entities.list(ctx, indexProject, projectID, force, func(ctx context.Context) ([]model.Task, error) {
		return s.api.GetByProject(ctx, projectID)
	})
	if err != nil {
		s.entities.fail("tasks_by_project", err)
		return []model.Task{}
	}
	s.entities.succeed()
	return items
}

// TasksByAssignee returns the tasks assigned to a user, with the same rules as
// TasksByProject.
func (s *TaskStore) TasksByAssignee(ctx context.Context, userID int64, force bool) []model.Task {
	items, err := s.entities.list(ctx, indexAssignee, userID, force, func(ctx context.Context) ([]model.Task, error) {
		return s.api.GetByAssignee(ctx, userID)
	})
	if err != nil {
		s.entities.fail("tasks_by_assignee", err)
		return []model.Task{}
	}
	s.entities.succeed()
	return items
}

// Filter returns the project's tasks that match f, in list order.
func (s *TaskStore) Filter(ctx context.Context, projectID int64, f model.TaskFilter) []model.Task {
	return f.Apply(s.TasksByProject(ctx, projectID, false))
}

// Create adds a task, returning nil on failure.
func (s *TaskStore) Create(ctx context.Context, req model.CreateTaskRequest) *model.Task {
	t, err := s.CreateE(ctx, req)
	if err != nil {
		return nil
	}
	return &t
}

// CreateE is Create for explicit user flows: the failure is returned.
func (s *TaskStore) CreateE(ctx context.Context, req model.CreateTaskRequest) (model.Task, error) {
	t, err := s.api.Create(ctx, req)
	if err != nil {
		s.entities.fail("create", err)
		return t, err
	}
	s.entities.created(ctx, t)
	s.entities.succeed()
	return t, nil
}

// Update replaces task fields. A task moved to another project or assignee
// leaves the lists of its old keys and the lists of its new keys refetch.
func (s *TaskStore) Update(ctx context.Context, id int64, req model.UpdateTaskRequest) bool {
	return s.update(ctx, "update", id, func(ctx context.Context) (model.Task, error) {
		return s.api.Update(ctx, id, req)
	})
}

// UpdateStatus moves a task to status and patches every cached list holding it.
func (s *TaskStore) UpdateStatus(ctx context.Context, id int64, status model.TaskStatus) bool {
	return s.update(ctx, "update_status", id, func(ctx context.Context) (model.Task, error) {
		return s.api.UpdateStatus(ctx, id, status)
	})
}

func (s *TaskStore) update(ctx context.Context, op string, id int64, call func(context.Context) (model.Task, error)) bool {
	ticket := s.entities.fences.next(s.entities.primaryKey(id))
	t, err := call(ctx)
	if err != nil {
		s.entities.fail(op, err)
		return false
	}
	s.entities.updated(ctx, ticket, t)
	s.entities.succeed()
	return true
}

// Delete removes a task, returning false on failure.
func (s *TaskStore) Delete(ctx context.Context, id int64) bool {
	return s.DeleteE(ctx, id) == nil
}

// DeleteE is Delete returning the failure; workflows use it to compensate.
func (s *TaskStore) DeleteE(ctx context.Context, id int64) error {
	if err := s.api.Delete(ctx, id); err != nil {
		s.entities.fail("delete", err)
		return err
	}
	s.entities.removed(ctx, id)
	s.entities.succeed()
	return nil
}

// LoadingProject reports whether the project's task list is being fetched.
func (s *TaskStore) LoadingProject(projectID int64) bool {
	return s.entities.loading(indexProject, projectID)
}

// Cached returns the cached task without touching the network.
func (s *TaskStore) Cached(ctx context.Context, id int64) (model.Task, bool) {
	return s.entities.cachedRecord(ctx, id)
}

// CachedByProject returns the cached task list of a project, if any.
func (s *TaskStore) CachedByProject(ctx context.Context, projectID int64) ([]model.Task, bool) {
	return s.entities.cachedList(ctx, indexProject, projectID)
}

// CachedByAssignee returns the cached task list of an assignee, if any.
func (s *TaskStore) CachedByAssignee(ctx context.Context, userID int64) ([]model.Task, bool) {
	return s.entities.cachedList(ctx, indexAssignee, userID)
}

// Err returns the last absorbed failure.
func (s *TaskStore) Err() error { return s.entities.Err() }

// Clear drops every cached task.
func (s *TaskStore) Clear(ctx context.Context) { s.entities.clear(ctx) }

// Persist writes the cached tasks under TasksSnapshotKey.
func (s *TaskStore) Persist(ctx context.Context) error {
	return persistEntities(ctx, s.snapshots, TasksSnapshotKey, s.entities)
}

// Restore loads a task snapshot into the cache. It reports false when none
// exists.
func (s *TaskStore) Restore(ctx context.Context) (bool, error) {
	return restoreEntities(ctx, s.snapshots, TasksSnapshotKey, s.entities)
}
