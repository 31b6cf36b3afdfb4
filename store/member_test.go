package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-flowx/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedMembers() []model.ProjectMember {
	return []model.ProjectMember{
		{ID: 1, ProjectID: 5, UserID: 7, Role: model.RoleOwner, Status: model.MemberActive},
		{ID: 2, ProjectID: 5, UserID: 8, Role: model.RoleMember, Status: model.MemberActive},
		{ID: 3, ProjectID: 5, UserID: 9, Role: model.RoleViewer, Status: model.MemberActive},
		{ID: 4, ProjectID: 6, UserID: 8, Role: model.RoleOwner, Status: model.MemberActive},
	}
}

func newMemberFixture(t *testing.T) (*MemberStore, *fakeMembers) {
	t.Helper()
	api := newFakeMembers(seedMembers()...)
	return NewMemberStore(api, newTestCache(t)), api
}

func ids(members []model.ProjectMember) []int64 {
	out := make([]int64, len(members))
	for i, m := range members {
		out[i] = m.ID
	}
	return out
}

func TestMemberStore_CacheHitSkipsNetwork(t *testing.T) {
	ctx := context.Background()
	s, api := newMemberFixture(t)

	first := s.MembersByProject(ctx, 5, false)
	second := s.MembersByProject(ctx, 5, false)

	assert.Equal(t, []int64{1, 2, 3}, ids(first))
	assert.Equal(t, first, second)
	assert.Equal(t, 1, api.count("by_project"))

	s.MembersByProject(ctx, 5, true)
	assert.Equal(t, 2, api.count("by_project"), "force must refetch")
}

func TestMemberStore_LoadingWhileFetchInFlight(t *testing.T) {
	ctx := context.Background()
	s, api := newMemberFixture(t)
	api.gate = make(chan struct{})

	results := make([][]model.ProjectMember, 2)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0] = s.MembersByProject(ctx, 5, false)
	}()

	require.Eventually(t, func() bool { return s.LoadingProject(5) }, time.Second, time.Millisecond)
	assert.False(t, s.LoadingProject(6))

	wg.Add(1)
	go func() {
		defer wg.Done()
		results[1] = s.MembersByProject(ctx, 5, false)
	}()

	close(api.gate)
	wg.Wait()

	assert.False(t, s.LoadingProject(5))
	assert.Equal(t, []int64{1, 2, 3}, ids(results[0]))
	assert.Equal(t, results[0], results[1])
	assert.Equal(t, 1, api.count("by_project"))
}

func TestMemberStore_ReadFailureIsAbsorbed(t *testing.T) {
	ctx := context.Background()
	s, api := newMemberFixture(t)
	api.failOn("by_project", errBackend)

	got := s.MembersByProject(ctx, 5, false)
	require.NotNil(t, got)
	assert.Empty(t, got)
	assert.ErrorIs(t, s.Err(), errBackend)

	_, cached := s.CachedByProject(ctx, 5)
	assert.False(t, cached, "failed reads must not be cached")

	api.failOn("by_project", nil)
	assert.Len(t, s.MembersByProject(ctx, 5, false), 3)
	assert.NoError(t, s.Err())
}

func TestMemberStore_MemberReadsPrimary(t *testing.T) {
	ctx := context.Background()
	s, api := newMemberFixture(t)

	m := s.Member(ctx, 2, false)
	require.NotNil(t, m)
	assert.Equal(t, int64(8), m.UserID)

	s.Member(ctx, 2, false)
	assert.Equal(t, 1, api.count("get"))

	assert.Nil(t, s.Member(ctx, 99, false))
	assert.ErrorIs(t, s.Err(), ErrNotFound)
}

func TestMemberStore_AddInvalidatesIndexLists(t *testing.T) {
	ctx := context.Background()
	s, api := newMemberFixture(t)

	s.MembersByProject(ctx, 5, false)
	s.MembersByUser(ctx, 10, false)
	s.MembersByProject(ctx, 6, false)

	added := s.Add(ctx, model.AddMemberRequest{ProjectID: 5, UserID: 10, Role: model.RoleMember})
	require.NotNil(t, added)

	cached, ok := s.Cached(ctx, added.ID)
	require.True(t, ok)
	assert.Equal(t, *added, cached)

	_, ok = s.CachedByProject(ctx, 5)
	assert.False(t, ok, "project list must be dropped")
	_, ok = s.CachedByUser(ctx, 10)
	assert.False(t, ok, "user list must be dropped")
	_, ok = s.CachedByProject(ctx, 6)
	assert.True(t, ok, "unrelated lists survive")

	got := s.MembersByProject(ctx, 5, false)
	assert.Equal(t, []int64{1, 2, 3, added.ID}, ids(got))
	assert.Equal(t, 3, api.count("by_project"))
}

func TestMemberStore_AddFailureReturnsNil(t *testing.T) {
	ctx := context.Background()
	s, api := newMemberFixture(t)
	api.failOn("add", errBackend)

	assert.Nil(t, s.Add(ctx, model.AddMemberRequest{ProjectID: 5, UserID: 10, Role: model.RoleMember}))
	assert.ErrorIs(t, s.Err(), errBackend)
}

func TestMemberStore_AddManyStopsAtFirstFailure(t *testing.T) {
	ctx := context.Background()
	s, api := newMemberFixture(t)

	added, err := s.AddMany(ctx, 5, []model.MemberInvite{
		{UserID: 20, Role: model.RoleMember},
		{UserID: 21, Role: model.RoleViewer},
	})
	require.NoError(t, err)
	assert.Len(t, added, 2)

	api.failOn("add", errBackend)
	added, err = s.AddMany(ctx, 5, []model.MemberInvite{{UserID: 22, Role: model.RoleMember}})
	assert.ErrorIs(t, err, errBackend)
	assert.Empty(t, added)
}

func TestMemberStore_UpdateRolePatchesInPlace(t *testing.T) {
	ctx := context.Background()
	s, _ := newMemberFixture(t)

	s.MembersByProject(ctx, 5, false)
	s.MembersByUser(ctx, 8, false)

	require.True(t, s.UpdateRole(ctx, 2, model.RoleManager))

	byProject, ok := s.CachedByProject(ctx, 5)
	require.True(t, ok)
	assert.Equal(t, []int64{1, 2, 3}, ids(byProject), "order is preserved")
	assert.Equal(t, model.RoleManager, byProject[1].Role)

	byUser, ok := s.CachedByUser(ctx, 8)
	require.True(t, ok)
	assert.Equal(t, []int64{2, 4}, ids(byUser))
	assert.Equal(t, model.RoleManager, byUser[0].Role)

	primary, ok := s.Cached(ctx, 2)
	require.True(t, ok)
	assert.Equal(t, model.RoleManager, primary.Role)
}

func TestMemberStore_UpdateFailureLeavesCache(t *testing.T) {
	ctx := context.Background()
	s, api := newMemberFixture(t)
	s.MembersByProject(ctx, 5, false)
	api.failOn("update_status", errBackend)

	assert.False(t, s.UpdateStatus(ctx, 2, model.MemberInactive))

	list, _ := s.CachedByProject(ctx, 5)
	assert.Equal(t, model.MemberActive, list[1].Status)
	assert.ErrorIs(t, s.Err(), errBackend)
}

func TestMemberStore_StaleWriteResponseIsDiscarded(t *testing.T) {
	ctx := context.Background()
	s, api := newMemberFixture(t)
	s.MembersByProject(ctx, 5, false)

	slow := make(chan struct{})
	api.roleGates[model.RoleViewer] = slow

	done := make(chan bool)
	go func() { done <- s.UpdateRole(ctx, 2, model.RoleViewer) }()
	require.Equal(t, string(model.RoleViewer), <-api.started)

	require.True(t, s.UpdateRole(ctx, 2, model.RoleManager))
	<-api.started

	close(slow)
	assert.True(t, <-done, "the call itself succeeded")

	primary, _ := s.Cached(ctx, 2)
	assert.Equal(t, model.RoleManager, primary.Role)
	list, _ := s.CachedByProject(ctx, 5)
	assert.Equal(t, model.RoleManager, list[1].Role)
}

func TestMemberStore_RemoveFiltersEveryList(t *testing.T) {
	ctx := context.Background()
	s, _ := newMemberFixture(t)

	s.MembersByProject(ctx, 5, false)
	s.MembersByUser(ctx, 8, false)
	s.Member(ctx, 2, false)

	require.True(t, s.Remove(ctx, 2))

	byProject, _ := s.CachedByProject(ctx, 5)
	assert.Equal(t, []int64{1, 3}, ids(byProject))
	byUser, _ := s.CachedByUser(ctx, 8)
	assert.Equal(t, []int64{4}, ids(byUser))
	_, ok := s.Cached(ctx, 2)
	assert.False(t, ok)

	assert.NotPanics(t, func() {
		assert.False(t, s.Remove(ctx, 2), "second remove fails at the backend")
	})
	byProject, _ = s.CachedByProject(ctx, 5)
	assert.Equal(t, []int64{1, 3}, ids(byProject))
}

func TestMemberStore_BulkUpdateStatusClearsEverything(t *testing.T) {
	ctx := context.Background()
	s, api := newMemberFixture(t)

	s.MembersByProject(ctx, 5, false)
	s.MembersByUser(ctx, 8, false)
	s.Member(ctx, 1, false)
	require.Greater(t, s.Size(ctx), 0)

	require.True(t, s.BulkUpdateStatus(ctx, []int64{1, 2}, model.MemberInactive))
	assert.Equal(t, 0, s.Size(ctx))

	list := s.MembersByProject(ctx, 5, false)
	assert.Equal(t, 2, api.count("by_project"))
	assert.Equal(t, model.MemberInactive, list[0].Status)
	assert.Equal(t, model.MemberActive, list[2].Status)
}

func TestMemberStore_ClearDiscardsInFlightResponses(t *testing.T) {
	ctx := context.Background()
	s, api := newMemberFixture(t)
	api.gate = make(chan struct{})

	done := make(chan []model.ProjectMember)
	go func() { done <- s.MembersByProject(ctx, 5, false) }()
	require.Eventually(t, func() bool { return api.count("by_project") == 1 }, time.Second, time.Millisecond)

	s.Clear(ctx)
	close(api.gate)

	assert.Len(t, <-done, 3, "the caller still receives its result")
	_, ok := s.CachedByProject(ctx, 5)
	assert.False(t, ok, "the response predates Clear and is not cached")
}

func TestMemberStore_PersistAndRestore(t *testing.T) {
	ctx := context.Background()
	snaps := newMemSnapshots()
	api := newFakeMembers(seedMembers()...)

	s := NewMemberStore(api, newTestCache(t), WithSnapshots(snaps))
	s.MembersByProject(ctx, 5, false)
	s.Member(ctx, 4, false)
	require.NoError(t, s.Persist(ctx))

	restored := NewMemberStore(api, newTestCache(t), WithSnapshots(snaps))
	ok, err := restored.Restore(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	list, ok := restored.CachedByProject(ctx, 5)
	require.True(t, ok)
	assert.Equal(t, []int64{1, 2, 3}, ids(list))
	m, ok := restored.Cached(ctx, 4)
	require.True(t, ok)
	assert.Equal(t, int64(6), m.ProjectID)

	restored.MembersByProject(ctx, 5, false)
	assert.Equal(t, 1, api.count("by_project"), "restored lists serve reads")
}

func TestMemberStore_PersistWithoutSnapshots(t *testing.T) {
	s, _ := newMemberFixture(t)
	assert.ErrorIs(t, s.Persist(context.Background()), ErrNoSnapshots)
	ok, err := s.Restore(context.Background())
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrNoSnapshots)
}
