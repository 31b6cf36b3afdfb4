package service

import (
	"context"
	"fmt"

	"github.com/goliatone/go-flowx/api"
	"github.com/goliatone/go-flowx/model"
)

const projectBase = "/api/project"

// ProjectService wraps the /api/project endpoints.
type ProjectService struct {
	client *api.Client
}

// NewProjectService returns a ProjectService backed by client.
func NewProjectService(client *api.Client) *ProjectService {
	return &ProjectService{client: client}
}

// Create posts a new project. Member invites are not sent here.
func (s *ProjectService) Create(ctx context.Context, req model.CreateProjectRequest) (model.Project, error) {
	return api.Post[model.Project](ctx, s.client, projectBase+"/create", req)
}

// Get fetches one project.
func (s *ProjectService) Get(ctx context.Context, id int64) (model.Project, error) {
	return api.Get[model.Project](ctx, s.client, fmt.Sprintf("%s/%d", projectBase, id), nil)
}

// List returns every project visible to the caller.
func (s *ProjectService) List(ctx context.Context) ([]model.Project, error) {
	return api.Get[[]model.Project](ctx, s.client, projectBase+"/list", nil)
}

// Update changes project fields and returns the stored project.
func (s *ProjectService) Update(ctx context.Context, id int64, req model.UpdateProjectRequest) (model.Project, error) {
	return api.Put[model.Project](ctx, s.client, fmt.Sprintf("%s/%d", projectBase, id), req)
}

// Delete removes a project.
func (s *ProjectService) Delete(ctx context.Context, id int64) error {
	_, err := api.Delete[struct{}](ctx, s.client, fmt.Sprintf("%s/%d", projectBase, id))
	return err
}
