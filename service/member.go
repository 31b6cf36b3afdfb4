package service

import (
	"context"
	"fmt"

	"github.com/goliatone/go-flowx/api"
	"github.com/goliatone/go-flowx/model"
)

const memberBase = "/api/project-member"

// ProjectMemberService wraps the /api/project-member endpoints.
type ProjectMemberService struct {
	client *api.Client
}

// NewProjectMemberService returns a ProjectMemberService backed by client.
func NewProjectMemberService(client *api.Client) *ProjectMemberService {
	return &ProjectMemberService{client: client}
}

// Add puts a user on a project. The backend answers 409 when the user is already a member.
func (s *ProjectMemberService) Add(ctx context.Context, req model.AddMemberRequest) (model.ProjectMember, error) {
	return api.Post[model.ProjectMember](ctx, s.client, memberBase+"/add", req)
}

// GetByProject lists the members of a project.
func (s *ProjectMemberService) GetByProject(ctx context.Context, projectID int64) ([]model.ProjectMember, error) {
	return api.Get[[]model.ProjectMember](ctx, s.client, fmt.Sprintf("%s/get-by-project/%d", memberBase, projectID), nil)
}

// GetByUser lists the memberships of a user.
func (s *ProjectMemberService) GetByUser(ctx context.Context, userID int64) ([]model.ProjectMember, error) {
	return api.Get[[]model.ProjectMember](ctx, s.client, fmt.Sprintf("%s/get-by-user/%d", memberBase, userID), nil)
}

// Get fetches one membership.
func (s *ProjectMemberService) Get(ctx context.Context, id int64) (model.ProjectMember, error) {
	return api.Get[model.ProjectMember](ctx, s.client, fmt.Sprintf("%s/%d", memberBase, id), nil)
}

// UpdateRole changes a member's role.
func (s *ProjectMemberService) UpdateRole(ctx context.Context, id int64, role model.MemberRole) (model.ProjectMember, error) {
	return api.Put[model.ProjectMember](ctx, s.client, fmt.Sprintf("%s/%d/role", memberBase, id), model.UpdateRoleRequest{Role: role})
}

// UpdateStatus changes a member's status.
func (s *ProjectMemberService) UpdateStatus(ctx context.Context, id int64, status model.MemberStatus) (model.ProjectMember, error) {
	return api.Put[model.ProjectMember](ctx, s.client, fmt.Sprintf("%s/%d/status", memberBase, id), model.UpdateStatusRequest{Status: status})
}

// Remove deletes a membership.
func (s *ProjectMemberService) Remove(ctx context.Context, id int64) error {
	_, err := api.Delete[struct{}](ctx, s.client, fmt.Sprintf("%s/%d", memberBase, id))
	return err
}

// BulkUpdateStatus sets status on every listed membership in one request.
func (s *ProjectMemberService) BulkUpdateStatus(ctx context.Context, ids []int64, status model.MemberStatus) error {
	_, err := api.Put[struct{}](ctx, s.client, memberBase+"/bulk-status", model.BulkStatusRequest{IDs: ids, Status: status})
	return err
}
