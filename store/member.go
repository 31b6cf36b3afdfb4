package store

import (
	"context"
	"fmt"

	"github.com/goliatone/go-flowx/cache"
	"github.com/goliatone/go-flowx/model"
)

// MemberAPI is the slice of the project-member service the store calls.
type MemberAPI interface {
	Add(ctx context.Context, req model.AddMemberRequest) (model.ProjectMember, error)
	GetByProject(ctx context.Context, projectID int64) ([]model.ProjectMember, error)
	GetByUser(ctx context.Context, userID int64) ([]model.ProjectMember, error)
	Get(ctx context.Context, id int64) (model.ProjectMember, error)
	UpdateRole(ctx context.Context, id int64, role model.MemberRole) (model.ProjectMember, error)
	UpdateStatus(ctx context.Context, id int64, status model.MemberStatus) (model.ProjectMember, error)
	Remove(ctx context.Context, id int64) error
	BulkUpdateStatus(ctx context.Context, ids []int64, status model.MemberStatus) error
}

const (
	indexProject  = "project"
	indexUser     = "user"
	indexAssignee = "assignee"
	indexAll      = "all"
)

// MembersSnapshotKey is the storage key the member store persists under.
const MembersSnapshotKey = "flowx.members"

// MemberStore caches project members by id, by project and by user.
//
// Reads never fail: a failed fetch returns an empty result and the error is
// kept for Err. Single-entity writes return nil or false on failure. AddMany
// returns its error because it backs explicit user flows.
type MemberStore struct {
	api       MemberAPI
	entities  *entityCache[model.ProjectMember]
	snapshots SnapshotStore
}

// NewMemberStore returns a MemberStore over api that keeps its entries in svc.
func NewMemberStore(api MemberAPI, svc cache.CacheService, opts ...Option) *MemberStore {
	o := buildOptions(opts)
	return &MemberStore{
		api:       api,
		entities:  newEntityCache(svc, o, memberID, memberRefs),
		snapshots: o.snapshots,
	}
}

func memberID(m model.ProjectMember) int64 { return m.ID }

func memberRefs(m model.ProjectMember) []indexRef {
	return []indexRef{{indexProject, m.ProjectID}, {indexUser, m.UserID}}
}

// MembersByProject returns the members of a project, from cache unless force
// is set or nothing is cached yet.
func (s *MemberStore) MembersByProject(ctx context.Context, projectID int64, force bool) []model.ProjectMember {
	items, err := s.entities.list(ctx, indexProject, projectID, force, func(ctx context.Context) ([]model.ProjectMember, error) {
		return s.api.GetByProject(ctx, projectID)
	})
	if err != nil {
		s.entities.fail("members_by_project", err)
		return []model.ProjectMember{}
	}
	s.entities.succeed()
	return items
}

// MembersByUser returns the memberships of a user.
func (s *MemberStore) MembersByUser(ctx context.Context, userID int64, force bool) []model.ProjectMember {
	items, err := s.entities.list(ctx, indexUser, userID, force, func(ctx context.Context) ([]model.ProjectMember, error) {
		return s.api.GetByUser(ctx, userID)
	})
	if err != nil {
		s.entities.fail("members_by_user", err)
		return []model.ProjectMember{}
	}
	s.entities.succeed()
	return items
}

// Member returns one membership or nil when it cannot be loaded.
func (s *MemberStore) Member(ctx context.Context, id int64, force bool) *model.ProjectMember {
	m, err := s.entities.record(ctx, id, force, func(ctx context.Context) (model.ProjectMember, error) {
		return s.api.Get(ctx, id)
	})
	if err != nil {
		s.entities.fail("member", err)
		return nil
	}
	s.entities.succeed()
	return &m
}

// Add creates a membership. The new record lands in the primary map; the
// project and user lists it belongs to are dropped so they refetch.
func (s *MemberStore) Add(ctx context.Context, req model.AddMemberRequest) *model.ProjectMember {
	m, err := s.add(ctx, req)
	if err != nil {
		s.entities.fail("add", err)
		return nil
	}
	s.entities.succeed()
	return &m
}

// AddMany adds invites to a project one by one and stops at the first
// failure, returning the members added so far along with the error.
func (s *MemberStore) AddMany(ctx context.Context, projectID int64, invites []model.MemberInvite) ([]model.ProjectMember, error) {
	added := make([]model.ProjectMember, 0, len(invites))
	for _, invite := range invites {
		m, err := s.add(ctx, invite.For(projectID))
		if err != nil {
			s.entities.fail("add_many", err)
			return added, fmt.Errorf("add user %d to project %d: %w", invite.UserID, projectID, err)
		}
		added = append(added, m)
	}
	s.entities.succeed()
	return added, nil
}

func (s *MemberStore) add(ctx context.Context, req model.AddMemberRequest) (model.ProjectMember, error) {
	m, err := s.api.Add(ctx, req)
	if err != nil {
		return m, err
	}
	s.entities.created(ctx, m)
	return m, nil
}

// UpdateRole changes a member's role and patches every cached copy.
func (s *MemberStore) UpdateRole(ctx context.Context, id int64, role model.MemberRole) bool {
	return s.update(ctx, "update_role", id, func(ctx context.Context) (model.ProjectMember, error) {
		return s.api.UpdateRole(ctx, id, role)
	})
}

// UpdateStatus changes a member's status and patches every cached copy.
func (s *MemberStore) UpdateStatus(ctx context.Context, id int64, status model.MemberStatus) bool {
	return s.update(ctx, "update_status", id, func(ctx context.Context) (model.ProjectMember, error) {
		return s.api.UpdateStatus(ctx, id, status)
	})
}

func (s *MemberStore) update(ctx context.Context, op string, id int64, call func(context.Context) (model.ProjectMember, error)) bool {
	ticket := s.entities.fences.next(s.entities.primaryKey(id))
	m, err := call(ctx)
	if err != nil {
		s.entities.fail(op, err)
		return false
	}
	s.entities.updated(ctx, ticket, m)
	s.entities.succeed()
	return true
}

// Remove deletes a membership and filters it out of every cached list.
// Removing an id twice is safe: the second call reports false.
func (s *MemberStore) Remove(ctx context.Context, id int64) bool {
	if err := s.api.Remove(ctx, id); err != nil {
		s.entities.fail("remove", err)
		return false
	}
	s.entities.removed(ctx, id)
	s.entities.succeed()
	return true
}

// BulkUpdateStatus changes the status of many memberships. The response does
// not say which lists are affected, so the whole store is cleared.
func (s *MemberStore) BulkUpdateStatus(ctx context.Context, ids []int64, status model.MemberStatus) bool {
	if err := s.api.BulkUpdateStatus(ctx, ids, status); err != nil {
		s.entities.fail("bulk_update_status", err)
		return false
	}
	s.entities.clear(ctx)
	s.entities.succeed()
	return true
}

// LoadingProject reports whether the member list of a project is being fetched.
func (s *MemberStore) LoadingProject(projectID int64) bool {
	return s.entities.loading(indexProject, projectID)
}

// LoadingUser reports whether the membership list of a user is being fetched.
func (s *MemberStore) LoadingUser(userID int64) bool {
	return s.entities.loading(indexUser, userID)
}

// Cached returns the primary entry for id without touching the network.
func (s *MemberStore) Cached(ctx context.Context, id int64) (model.ProjectMember, bool) {
	return s.entities.cachedRecord(ctx, id)
}

// CachedByProject returns the cached member list of a project, if any.
func (s *MemberStore) CachedByProject(ctx context.Context, projectID int64) ([]model.ProjectMember, bool) {
	return s.entities.cachedList(ctx, indexProject, projectID)
}

// CachedByUser returns the cached membership list of a user, if any.
func (s *MemberStore) CachedByUser(ctx context.Context, userID int64) ([]model.ProjectMember, bool) {
	return s.entities.cachedList(ctx, indexUser, userID)
}

// Size is the number of cache entries the store holds.
func (s *MemberStore) Size(ctx context.Context) int {
	return s.entities.size(ctx)
}

// Err returns the last absorbed failure.
func (s *MemberStore) Err() error {
	return s.entities.Err()
}

// Clear drops everything the store has cached.
func (s *MemberStore) Clear(ctx context.Context) {
	s.entities.clear(ctx)
}

// Persist writes the cached members under MembersSnapshotKey.
func (s *MemberStore) Persist(ctx context.Context) error {
	return persistEntities(ctx, s.snapshots, MembersSnapshotKey, s.entities)
}

// Restore loads the members persisted under MembersSnapshotKey, if any.
func (s *MemberStore) Restore(ctx context.Context) (bool, error) {
	return restoreEntities(ctx, s.snapshots, MembersSnapshotKey, s.entities)
}
