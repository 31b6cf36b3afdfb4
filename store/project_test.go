package store

import (
	"context"
	"sync"
	"testing"

	"github.com/goliatone/go-flowx/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProjects struct {
	mu       sync.Mutex
	projects []model.Project
	lists    int
}

func (f *fakeProjects) Create(ctx context.Context, req model.CreateProjectRequest) (model.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := model.Project{ID: int64(len(f.projects) + 1), Name: req.Name, Status: model.ProjectPlanning}
	f.projects = append(f.projects, p)
	return p, nil
}

func (f *fakeProjects) Get(ctx context.Context, id int64) (model.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.projects {
		if p.ID == id {
			return p, nil
		}
	}
	return model.Project{}, ErrNotFound
}

func (f *fakeProjects) List(ctx context.Context) ([]model.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists++
	return append([]model.Project{}, f.projects...), nil
}

func (f *fakeProjects) Update(ctx context.Context, id int64, req model.UpdateProjectRequest) (model.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, p := range f.projects {
		if p.ID == id {
			if req.Name != "" {
				f.projects[i].Name = req.Name
			}
			return f.projects[i], nil
		}
	}
	return model.Project{}, ErrNotFound
}

func (f *fakeProjects) Delete(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, p := range f.projects {
		if p.ID == id {
			f.projects = append(f.projects[:i], f.projects[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func TestProjectStore_Lifecycle(t *testing.T) {
	ctx := context.Background()
	api := &fakeProjects{projects: []model.Project{{ID: 1, Name: "Apollo"}, {ID: 2, Name: "Gemini"}}}
	s := NewProjectStore(api, newTestCache(t))

	assert.Len(t, s.Projects(ctx, false), 2)
	assert.Len(t, s.Projects(ctx, false), 2)
	assert.Equal(t, 1, api.lists)

	created, err := s.CreateE(ctx, model.CreateProjectRequest{Name: "Mercury"})
	require.NoError(t, err)
	_, ok := s.CachedList(ctx)
	assert.False(t, ok, "create drops the project list")
	assert.Len(t, s.Projects(ctx, false), 3)

	require.True(t, s.Update(ctx, 2, model.UpdateProjectRequest{Name: "Gemini II"}))
	list, _ := s.CachedList(ctx)
	assert.Equal(t, "Gemini II", list[1].Name)

	require.NoError(t, s.DeleteE(ctx, created.ID))
	list, _ = s.CachedList(ctx)
	assert.Len(t, list, 2)
	assert.False(t, s.Delete(ctx, created.ID))

	p := s.Project(ctx, 1, false)
	require.NotNil(t, p)
	assert.Equal(t, "Apollo", p.Name)
	assert.Nil(t, s.Project(ctx, 42, false))
	assert.Error(t, s.Err())
}
