package persist

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-flowx/internal/cacheinfra"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type feed struct {
	Items  []string `json:"items" msgpack:"items"`
	Unread int      `json:"unread" msgpack:"unread"`
}

// mockSnapshotRepo implements the calls BunStore makes; the embedded
// interface panics on anything else.
type mockSnapshotRepo struct {
	repository.Repository[*Snapshot]

	mu      sync.Mutex
	rows    map[string]*Snapshot
	lists   int
	creates int
	updates int
	listErr error
}

func newMockSnapshotRepo() *mockSnapshotRepo {
	return &mockSnapshotRepo{rows: map[string]*Snapshot{}}
}

func (m *mockSnapshotRepo) List(ctx context.Context, criteria ...repository.SelectCriteria) ([]*Snapshot, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lists++
	if m.listErr != nil {
		return nil, 0, m.listErr
	}
	out := make([]*Snapshot, 0, len(m.rows))
	for _, row := range m.rows {
		cp := *row
		out = append(out, &cp)
	}
	return out, len(out), nil
}

func (m *mockSnapshotRepo) Create(ctx context.Context, record *Snapshot, criteria ...repository.InsertCriteria) (*Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creates++
	cp := *record
	m.rows[record.Key] = &cp
	return record, nil
}

func (m *mockSnapshotRepo) Update(ctx context.Context, record *Snapshot, criteria ...repository.UpdateCriteria) (*Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updates++
	cp := *record
	m.rows[record.Key] = &cp
	return record, nil
}

func (m *mockSnapshotRepo) Delete(ctx context.Context, record *Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, record.Key)
	return nil
}

func TestCodecByName(t *testing.T) {
	tests := []struct {
		name    string
		want    string
		wantErr bool
	}{
		{"", CodecJSON, false},
		{"JSON", CodecJSON, false},
		{"msgpack", CodecMsgpack, false},
		{"xml", "", true},
	}
	for _, tt := range tests {
		c, err := CodecByName(tt.name)
		if tt.wantErr {
			assert.Error(t, err, tt.name)
			continue
		}
		require.NoError(t, err, tt.name)
		assert.Equal(t, tt.want, c.Name())
	}
}

func TestMemoryStore_SaveCopiesValue(t *testing.T) {
	ctx := context.Background()
	for _, codec := range []Codec{JSON(), Msgpack()} {
		t.Run(codec.Name(), func(t *testing.T) {
			s := NewMemoryStore(codec)
			value := feed{Items: []string{"a", "b"}, Unread: 1}
			require.NoError(t, s.Save(ctx, "flowx.notifications", value))
			value.Items[0] = "changed"

			var got feed
			ok, err := s.Load(ctx, "flowx.notifications", &got)
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, feed{Items: []string{"a", "b"}, Unread: 1}, got)

			ok, err = s.Load(ctx, "missing", &got)
			assert.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestBunStore_SaveCreatesThenUpdates(t *testing.T) {
	ctx := context.Background()
	repo := newMockSnapshotRepo()
	s := NewBunStore(repo, WithCodec(Msgpack()))
	s.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }

	require.NoError(t, s.Save(ctx, "flowx.members", feed{Items: []string{"x"}}))
	require.NoError(t, s.Save(ctx, "flowx.members", feed{Items: []string{"y"}, Unread: 2}))
	assert.Equal(t, 1, repo.creates)
	assert.Equal(t, 1, repo.updates)

	row := repo.rows["flowx.members"]
	require.NotNil(t, row)
	assert.Equal(t, SnapshotID("flowx.members"), row.ID)
	assert.Equal(t, CodecMsgpack, row.Codec)
	assert.Equal(t, s.now(), row.UpdatedAt)

	var got feed
	ok, err := s.Load(ctx, "flowx.members", &got)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, feed{Items: []string{"y"}, Unread: 2}, got)
}

func TestBunStore_LoadDecodesWithRowCodec(t *testing.T) {
	ctx := context.Background()
	repo := newMockSnapshotRepo()
	require.NoError(t, NewBunStore(repo).Save(ctx, "flowx.tasks", feed{Unread: 7}))

	var got feed
	ok, err := NewBunStore(repo, WithCodec(Msgpack())).Load(ctx, "flowx.tasks", &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 7, got.Unread)
}

func TestBunStore_CachedLoads(t *testing.T) {
	ctx := context.Background()
	svc, err := cacheinfra.NewSturdycService(cacheinfra.DefaultConfig())
	require.NoError(t, err)

	repo := newMockSnapshotRepo()
	s := NewBunStore(repo, WithCache(svc, nil))
	require.NoError(t, s.Save(ctx, "flowx.projects", feed{Unread: 1}))
	listsAfterSave := repo.lists

	var got feed
	for i := 0; i < 3; i++ {
		_, err := s.Load(ctx, "flowx.projects", &got)
		require.NoError(t, err)
	}
	assert.Equal(t, listsAfterSave+1, repo.lists, "repeated loads hit the cache")

	require.NoError(t, s.Save(ctx, "flowx.projects", feed{Unread: 4}))
	_, err = s.Load(ctx, "flowx.projects", &got)
	require.NoError(t, err)
	assert.Equal(t, 4, got.Unread, "save invalidates the cached row")
}

func TestBunStore_Errors(t *testing.T) {
	ctx := context.Background()
	repo := newMockSnapshotRepo()
	boom := errors.New("database is locked")
	repo.listErr = boom
	s := NewBunStore(repo)

	var got feed
	ok, err := s.Load(ctx, "flowx.members", &got)
	assert.False(t, ok)
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, s.Save(ctx, "flowx.members", got), boom)

	repo.listErr = nil
	ok, err = s.Load(ctx, "flowx.members", &got)
	assert.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, s.Delete(ctx, "flowx.members"))
}

func TestOpenBun_UnsupportedDriver(t *testing.T) {
	_, err := OpenBun(context.Background(), "oracle", "")
	assert.Error(t, err)
}
