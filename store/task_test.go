package store

import (
	"context"
	"sort"
	"sync"
	"testing"

	"github.com/goliatone/go-flowx/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTasks struct {
	mu     sync.Mutex
	tasks  map[int64]model.Task
	nextID int64
	calls  map[string]int
	err    error

	// unassign makes Update drop the assignee, as the backend does when the
	// assignee leaves the project.
	unassign bool
}

func newFakeTasks(tasks ...model.Task) *fakeTasks {
	f := &fakeTasks{tasks: map[int64]model.Task{}, calls: map[string]int{}}
	for _, t := range tasks {
		f.tasks[t.ID] = t
		if t.ID > f.nextID {
			f.nextID = t.ID
		}
	}
	return f
}

func (f *fakeTasks) hit(op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[op]++
	return f.err
}

func (f *fakeTasks) where(keep func(model.Task) bool) []model.Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.Task{}
	for _, t := range f.tasks {
		if keep(t) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (f *fakeTasks) Create(ctx context.Context, req model.CreateTaskRequest) (model.Task, error) {
	if err := f.hit("create"); err != nil {
		return model.Task{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	t := model.Task{ID: f.nextID, ProjectID: req.ProjectID, AssigneeID: req.AssigneeID, Title: req.Title, Status: model.TaskTodo, Priority: req.Priority}
	f.tasks[t.ID] = t
	return t, nil
}

func (f *fakeTasks) Get(ctx context.Context, id int64) (model.Task, error) {
	if err := f.hit("get"); err != nil {
		return model.Task{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tasks[id], nil
}

func (f *fakeTasks) GetByProject(ctx context.Context, projectID int64) ([]model.Task, error) {
	if err := f.hit("by_project"); err != nil {
		return nil, err
	}
	return f.where(func(t model.Task) bool { return t.ProjectID == projectID }), nil
}

func (f *fakeTasks) GetByAssignee(ctx context.Context, userID int64) ([]model.Task, error) {
	if err := f.hit("by_assignee"); err != nil {
		return nil, err
	}
	return f.where(func(t model.Task) bool { return t.AssigneeID == userID }), nil
}

func (f *fakeTasks) Update(ctx context.Context, id int64, req model.UpdateTaskRequest) (model.Task, error) {
	if err := f.hit("update"); err != nil {
		return model.Task{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	t := f.tasks[id]
	if req.Title != "" {
		t.Title = req.Title
	}
	if req.AssigneeID != 0 {
		t.AssigneeID = req.AssigneeID
	}
	if f.unassign {
		t.AssigneeID = 0
	}
	if req.Priority != "" {
		t.Priority = req.Priority
	}
	f.tasks[id] = t
	return t, nil
}

func (f *fakeTasks) UpdateStatus(ctx context.Context, id int64, status model.TaskStatus) (model.Task, error) {
	if err := f.hit("update_status"); err != nil {
		return model.Task{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	t := f.tasks[id]
	t.Status = status
	f.tasks[id] = t
	return t, nil
}

func (f *fakeTasks) Delete(ctx context.Context, id int64) error {
	if err := f.hit("delete"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.tasks[id]; !ok {
		return ErrNotFound
	}
	delete(f.tasks, id)
	return nil
}

func seedTasks() []model.Task {
	return []model.Task{
		{ID: 1, ProjectID: 5, AssigneeID: 3, Title: "Draft plan", Status: model.TaskTodo, Priority: model.PriorityHigh},
		{ID: 2, ProjectID: 5, AssigneeID: 3, Title: "Review budget", Status: model.TaskReview, Priority: model.PriorityLow},
		{ID: 3, ProjectID: 5, Title: "Book venue", Status: model.TaskTodo, Priority: model.PriorityMedium},
		{ID: 4, ProjectID: 6, AssigneeID: 4, Title: "Ship release", Status: model.TaskInProgress, Priority: model.PriorityUrgent},
	}
}

func taskIDs(tasks []model.Task) []int64 {
	out := make([]int64, len(tasks))
	for i, t := range tasks {
		out[i] = t.ID
	}
	return out
}

func TestTaskStore_UnassignedTasksHaveNoAssigneeList(t *testing.T) {
	refs := taskRefs(model.Task{ID: 3, ProjectID: 5})
	assert.Equal(t, []indexRef{{indexProject, 5}}, refs)
}

func TestTaskStore_CreateInvalidatesProjectAndAssignee(t *testing.T) {
	ctx := context.Background()
	api := newFakeTasks(seedTasks()...)
	s := NewTaskStore(api, newTestCache(t))

	s.TasksByProject(ctx, 5, false)
	s.TasksByAssignee(ctx, 3, false)
	s.TasksByProject(ctx, 6, false)

	created, err := s.CreateE(ctx, model.CreateTaskRequest{ProjectID: 5, AssigneeID: 3, Title: "Send invites", Priority: model.PriorityLow})
	require.NoError(t, err)

	_, ok := s.CachedByProject(ctx, 5)
	assert.False(t, ok)
	_, ok = s.CachedByAssignee(ctx, 3)
	assert.False(t, ok)
	_, ok = s.CachedByProject(ctx, 6)
	assert.True(t, ok)

	assert.Equal(t, []int64{1, 2, 3, created.ID}, taskIDs(s.TasksByProject(ctx, 5, false)))
}

func TestTaskStore_CreateEReturnsError(t *testing.T) {
	api := newFakeTasks()
	api.err = errBackend
	s := NewTaskStore(api, newTestCache(t))

	_, err := s.CreateE(context.Background(), model.CreateTaskRequest{ProjectID: 5, Title: "x"})
	assert.ErrorIs(t, err, errBackend)
	assert.Nil(t, s.Create(context.Background(), model.CreateTaskRequest{ProjectID: 5, Title: "x"}))
}

func TestTaskStore_ReassignMovesBetweenLists(t *testing.T) {
	ctx := context.Background()
	api := newFakeTasks(seedTasks()...)
	s := NewTaskStore(api, newTestCache(t))

	s.TasksByProject(ctx, 5, false)
	s.TasksByAssignee(ctx, 3, false)
	s.TasksByAssignee(ctx, 4, false)

	require.True(t, s.Update(ctx, 1, model.UpdateTaskRequest{AssigneeID: 4}))

	byProject, ok := s.CachedByProject(ctx, 5)
	require.True(t, ok)
	assert.Equal(t, []int64{1, 2, 3}, taskIDs(byProject))
	assert.Equal(t, int64(4), byProject[0].AssigneeID)

	byOld, ok := s.CachedByAssignee(ctx, 3)
	require.True(t, ok)
	assert.Equal(t, []int64{2}, taskIDs(byOld), "task leaves its old assignee's list")

	_, ok = s.CachedByAssignee(ctx, 4)
	assert.False(t, ok, "new assignee's list refetches")
	assert.Equal(t, []int64{1, 4}, taskIDs(s.TasksByAssignee(ctx, 4, false)))
}

func TestTaskStore_ClearedAssigneeLeavesList(t *testing.T) {
	ctx := context.Background()
	api := newFakeTasks(seedTasks()...)
	api.unassign = true
	s := NewTaskStore(api, newTestCache(t))

	require.Equal(t, []int64{1, 2}, taskIDs(s.TasksByAssignee(ctx, 3, false)))
	s.TasksByProject(ctx, 5, false)

	require.True(t, s.Update(ctx, 1, model.UpdateTaskRequest{Title: "Draft final plan"}))

	byOld, ok := s.CachedByAssignee(ctx, 3)
	require.True(t, ok)
	assert.Equal(t, []int64{2}, taskIDs(byOld))
	assert.Equal(t, taskIDs(api.where(func(t model.Task) bool { return t.AssigneeID == 3 })), taskIDs(byOld))

	byProject, ok := s.CachedByProject(ctx, 5)
	require.True(t, ok)
	assert.Equal(t, []int64{1, 2, 3}, taskIDs(byProject))
	assert.Equal(t, int64(0), byProject[0].AssigneeID)
	assert.Equal(t, "Draft final plan", byProject[0].Title)
}

func TestTaskStore_UpdateStatusAndFilter(t *testing.T) {
	ctx := context.Background()
	api := newFakeTasks(seedTasks()...)
	s := NewTaskStore(api, newTestCache(t))

	require.True(t, s.UpdateStatus(ctx, 3, model.TaskDone))

	todo := s.Filter(ctx, 5, model.TaskFilter{Status: model.TaskTodo})
	assert.Equal(t, []int64{1}, taskIDs(todo))

	query := s.Filter(ctx, 5, model.TaskFilter{Query: "BUDGET"})
	assert.Equal(t, []int64{2}, taskIDs(query))
	assert.Equal(t, 1, api.calls["by_project"])
}

func TestTaskStore_Delete(t *testing.T) {
	ctx := context.Background()
	api := newFakeTasks(seedTasks()...)
	s := NewTaskStore(api, newTestCache(t))

	s.TasksByProject(ctx, 5, false)
	s.Task(ctx, 2, false)

	require.True(t, s.Delete(ctx, 2))
	list, _ := s.CachedByProject(ctx, 5)
	assert.Equal(t, []int64{1, 3}, taskIDs(list))
	_, ok := s.Cached(ctx, 2)
	assert.False(t, ok)

	assert.ErrorIs(t, s.DeleteE(ctx, 2), ErrNotFound)
	assert.False(t, s.Delete(ctx, 2))
}
