package service

import (
	"context"
	"fmt"
	"net/url"

	"github.com/goliatone/go-flowx/api"
	"github.com/goliatone/go-flowx/model"
)

// UserService wraps the /api/user endpoints.
type UserService struct {
	client *api.Client
}

// NewUserService returns a UserService backed by client.
func NewUserService(client *api.Client) *UserService {
	return &UserService{client: client}
}

// Get fetches one user.
func (s *UserService) Get(ctx context.Context, id int64) (model.User, error) {
	return api.Get[model.User](ctx, s.client, fmt.Sprintf("/api/user/%d", id), nil)
}

// List returns every user.
func (s *UserService) List(ctx context.Context) ([]model.User, error) {
	return api.Get[[]model.User](ctx, s.client, "/api/user/list", nil)
}

// Search matches q against user names.
func (s *UserService) Search(ctx context.Context, q string) ([]model.User, error) {
	return api.Get[[]model.User](ctx, s.client, "/api/user/search", url.Values{"q": {q}})
}

// DepartmentService wraps the /api/department endpoints.
type DepartmentService struct {
	client *api.Client
}

// NewDepartmentService returns a DepartmentService backed by client.
func NewDepartmentService(client *api.Client) *DepartmentService {
	return &DepartmentService{client: client}
}

// List returns every department.
func (s *DepartmentService) List(ctx context.Context) ([]model.Department, error) {
	return api.Get[[]model.Department](ctx, s.client, "/api/department/list", nil)
}

// Get fetches one department.
func (s *DepartmentService) Get(ctx context.Context, id int64) (model.Department, error) {
	return api.Get[model.Department](ctx, s.client, fmt.Sprintf("/api/department/%d", id), nil)
}

// Users lists the members of a department.
func (s *DepartmentService) Users(ctx context.Context, id int64) ([]model.User, error) {
	return api.Get[[]model.User](ctx, s.client, fmt.Sprintf("/api/department/%d/users", id), nil)
}

// Directory joins the user and department services behind one lookup surface.
type Directory struct {
	Users       *UserService
	Departments *DepartmentService
}

// NewDirectory builds both directory services over client.
func NewDirectory(client *api.Client) *Directory {
	return &Directory{Users: NewUserService(client), Departments: NewDepartmentService(client)}
}

// User fetches one user.
func (d *Directory) User(ctx context.Context, id int64) (model.User, error) {
	return d.Users.Get(ctx, id)
}

// AllUsers lists every user.
func (d *Directory) AllUsers(ctx context.Context) ([]model.User, error) {
	return d.Users.List(ctx)
}

// SearchUsers runs a free-text user search.
func (d *Directory) SearchUsers(ctx context.Context, q string) ([]model.User, error) {
	return d.Users.Search(ctx, q)
}

// Department fetches one department.
func (d *Directory) Department(ctx context.Context, id int64) (model.Department, error) {
	return d.Departments.Get(ctx, id)
}

// AllDepartments lists every department.
func (d *Directory) AllDepartments(ctx context.Context) ([]model.Department, error) {
	return d.Departments.List(ctx)
}

// DepartmentUsers lists the users of one department.
func (d *Directory) DepartmentUsers(ctx context.Context, id int64) ([]model.User, error) {
	return d.Departments.Users(ctx, id)
}
