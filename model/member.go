package model

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// MemberRole is the role a user holds inside a project.
type MemberRole string

const (
	RoleOwner   MemberRole = "OWNER"
	RoleManager MemberRole = "MANAGER"
	RoleMember  MemberRole = "MEMBER"
	RoleViewer  MemberRole = "VIEWER"
)

// MemberStatus tracks whether a membership is in effect.
type MemberStatus string

const (
	MemberActive   MemberStatus = "ACTIVE"
	MemberInactive MemberStatus = "INACTIVE"
	MemberPending  MemberStatus = "PENDING"
)

// ProjectMember links a user to a project.
type ProjectMember struct {
	ID        int64        `json:"id" msgpack:"id"`
	ProjectID int64        `json:"projectId" msgpack:"projectId"`
	UserID    int64        `json:"userId" msgpack:"userId"`
	Role      MemberRole   `json:"role" msgpack:"role"`
	Status    MemberStatus `json:"status" msgpack:"status"`
	CreatedAt time.Time    `json:"createdAt" msgpack:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt" msgpack:"updatedAt"`
}

// AddMemberRequest is the payload of POST /api/project-member/add.
type AddMemberRequest struct {
	ProjectID int64      `json:"projectId"`
	UserID    int64      `json:"userId"`
	Role      MemberRole `json:"role"`
}

// Validate requires a project, a user and a known role.
func (r AddMemberRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.ProjectID, validation.Required),
		validation.Field(&r.UserID, validation.Required),
		validation.Field(&r.Role, validation.Required, validation.In(roles()...)),
	)
}

// MemberInvite is a member to add once the owning project exists.
type MemberInvite struct {
	UserID int64      `json:"userId"`
	Role   MemberRole `json:"role"`
}

// Validate requires a user and a known role.
func (m MemberInvite) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.UserID, validation.Required),
		validation.Field(&m.Role, validation.Required, validation.In(roles()...)),
	)
}

// For returns the add request for the given project.
func (m MemberInvite) For(projectID int64) AddMemberRequest {
	return AddMemberRequest{ProjectID: projectID, UserID: m.UserID, Role: m.Role}
}

// UpdateRoleRequest is the payload of PUT /api/project-member/{id}/role.
type UpdateRoleRequest struct {
	Role MemberRole `json:"role"`
}

// Validate requires a known role.
func (r UpdateRoleRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Role, validation.Required, validation.In(roles()...)),
	)
}

// UpdateStatusRequest is the payload of PUT /api/project-member/{id}/status.
type UpdateStatusRequest struct {
	Status MemberStatus `json:"status"`
}

// Validate requires a known status.
func (r UpdateStatusRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Status, validation.Required, validation.In(memberStatuses()...)),
	)
}

// BulkStatusRequest is the payload of PUT /api/project-member/bulk-status.
type BulkStatusRequest struct {
	IDs    []int64      `json:"ids"`
	Status MemberStatus `json:"status"`
}

// Validate requires at least one id and a known status.
func (r BulkStatusRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.IDs, validation.Required),
		validation.Field(&r.Status, validation.Required, validation.In(memberStatuses()...)),
	)
}

func roles() []any {
	return []any{RoleOwner, RoleManager, RoleMember, RoleViewer}
}

func memberStatuses() []any {
	return []any{MemberActive, MemberInactive, MemberPending}
}
