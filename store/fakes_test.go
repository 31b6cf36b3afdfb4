package store

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/goliatone/go-flowx/cache"
	"github.com/goliatone/go-flowx/internal/cacheinfra"
	"github.com/goliatone/go-flowx/model"
)

var errBackend = errors.New("backend unavailable")

func newTestCache(t *testing.T) cache.CacheService {
	t.Helper()
	svc, err := cacheinfra.NewSturdycService(cacheinfra.DefaultConfig())
	if err != nil {
		t.Fatalf("cache: %v", err)
	}
	return svc
}

// fakeMembers is an in-memory MemberAPI that records calls.
type fakeMembers struct {
	mu      sync.Mutex
	members map[int64]model.ProjectMember
	nextID  int64
	calls   map[string]int
	fail    map[string]error

	// gate blocks GetByProject until closed when set.
	gate chan struct{}
	// roleGates block UpdateRole for a given role until closed.
	roleGates map[model.MemberRole]chan struct{}
	started   chan string
}

func newFakeMembers(members ...model.ProjectMember) *fakeMembers {
	f := &fakeMembers{
		members:   map[int64]model.ProjectMember{},
		calls:     map[string]int{},
		fail:      map[string]error{},
		roleGates: map[model.MemberRole]chan struct{}{},
		started:   make(chan string, 16),
	}
	for _, m := range members {
		f.members[m.ID] = m
		if m.ID > f.nextID {
			f.nextID = m.ID
		}
	}
	return f
}

func (f *fakeMembers) record(op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[op]++
	return f.fail[op]
}

func (f *fakeMembers) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeMembers) failOn(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail[op] = err
}

func (f *fakeMembers) filter(keep func(model.ProjectMember) bool) []model.ProjectMember {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.ProjectMember{}
	for _, m := range f.members {
		if keep(m) {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (f *fakeMembers) Add(ctx context.Context, req model.AddMemberRequest) (model.ProjectMember, error) {
	if err := f.record("add"); err != nil {
		return model.ProjectMember{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	m := model.ProjectMember{ID: f.nextID, ProjectID: req.ProjectID, UserID: req.UserID, Role: req.Role, Status: model.MemberActive}
	f.members[m.ID] = m
	return m, nil
}

func (f *fakeMembers) GetByProject(ctx context.Context, projectID int64) ([]model.ProjectMember, error) {
	if err := f.record("by_project"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	gate := f.gate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	return f.filter(func(m model.ProjectMember) bool { return m.ProjectID == projectID }), nil
}

func (f *fakeMembers) GetByUser(ctx context.Context, userID int64) ([]model.ProjectMember, error) {
	if err := f.record("by_user"); err != nil {
		return nil, err
	}
	return f.filter(func(m model.ProjectMember) bool { return m.UserID == userID }), nil
}

func (f *fakeMembers) Get(ctx context.Context, id int64) (model.ProjectMember, error) {
	if err := f.record("get"); err != nil {
		return model.ProjectMember{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.members[id], nil
}

func (f *fakeMembers) UpdateRole(ctx context.Context, id int64, role model.MemberRole) (model.ProjectMember, error) {
	if err := f.record("update_role"); err != nil {
		return model.ProjectMember{}, err
	}
	f.mu.Lock()
	gate := f.roleGates[role]
	m := f.members[id]
	m.Role = role
	f.mu.Unlock()

	f.started <- string(role)
	if gate != nil {
		<-gate
	}
	return m, nil
}

func (f *fakeMembers) UpdateStatus(ctx context.Context, id int64, status model.MemberStatus) (model.ProjectMember, error) {
	if err := f.record("update_status"); err != nil {
		return model.ProjectMember{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	m := f.members[id]
	m.Status = status
	f.members[id] = m
	return m, nil
}

func (f *fakeMembers) Remove(ctx context.Context, id int64) error {
	if err := f.record("remove"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.members[id]; !ok {
		return ErrNotFound
	}
	delete(f.members, id)
	return nil
}

func (f *fakeMembers) BulkUpdateStatus(ctx context.Context, ids []int64, status model.MemberStatus) error {
	if err := f.record("bulk_status"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range ids {
		m := f.members[id]
		m.Status = status
		f.members[id] = m
	}
	return nil
}

// memSnapshots is a SnapshotStore that keeps JSON documents in a map.
type memSnapshots struct {
	mu   sync.Mutex
	docs map[string][]byte
}

func newMemSnapshots() *memSnapshots {
	return &memSnapshots{docs: map[string][]byte{}}
}

func (m *memSnapshots) Save(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[key] = raw
	return nil
}

func (m *memSnapshots) Load(ctx context.Context, key string, dest any) (bool, error) {
	m.mu.Lock()
	raw, ok := m.docs[key]
	m.mu.Unlock()
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dest)
}
