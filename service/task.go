package service

import (
	"context"
	"fmt"

	"github.com/goliatone/go-flowx/api"
	"github.com/goliatone/go-flowx/model"
)

const taskBase = "/api/task"

// TaskService wraps the /api/task endpoints.
type TaskService struct {
	client *api.Client
}

// NewTaskService returns a TaskService backed by client.
func NewTaskService(client *api.Client) *TaskService {
	return &TaskService{client: client}
}

// Create posts a new task.
func (s *TaskService) Create(ctx context.Context, req model.CreateTaskRequest) (model.Task, error) {
	return api.Post[model.Task](ctx, s.client, taskBase+"/create", req)
}

// Get fetches one task.
func (s *TaskService) Get(ctx context.Context, id int64) (model.Task, error) {
	return api.Get[model.Task](ctx, s.client, fmt.Sprintf("%s/%d", taskBase, id), nil)
}

// GetByProject lists the tasks of a project.
func (s *TaskService) GetByProject(ctx context.Context, projectID int64) ([]model.Task, error) {
	return api.Get[[]model.Task](ctx, s.client, fmt.Sprintf("%s/get-by-project/%d", taskBase, projectID), nil)
}

// GetByAssignee lists the tasks assigned to a user.
func (s *TaskService) GetByAssignee(ctx context.Context, userID int64) ([]model.Task, error) {
	return api.Get[[]model.Task](ctx, s.client, fmt.Sprintf("%s/get-by-assignee/%d", taskBase, userID), nil)
}

// Update changes task fields and returns the stored task.
func (s *TaskService) Update(ctx context.Context, id int64, req model.UpdateTaskRequest) (model.Task, error) {
	return api.Put[model.Task](ctx, s.client, fmt.Sprintf("%s/%d", taskBase, id), req)
}

// UpdateStatus moves a task to status.
func (s *TaskService) UpdateStatus(ctx context.Context, id int64, status model.TaskStatus) (model.Task, error) {
	return api.Put[model.Task](ctx, s.client, fmt.Sprintf("%s/%d/status", taskBase, id), model.UpdateTaskStatusRequest{Status: status})
}

// Delete removes a task.
func (s *TaskService) Delete(ctx context.Context, id int64) error {
	_, err := api.Delete[struct{}](ctx, s.client, fmt.Sprintf("%s/%d", taskBase, id))
	return err
}
