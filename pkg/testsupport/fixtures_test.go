package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/goliatone/go-flowx/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFixture(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.txt")
	require.NoError(t, os.WriteFile(path, []byte("test fixture content"), 0o644))

	assert.Equal(t, "test fixture content", string(LoadFixture(t, path)))
}

func TestLoadFixtureJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "member.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"id":7,"projectId":1,"userId":2,"role":"VIEWER"}`), 0o644))

	var m model.ProjectMember
	LoadFixtureJSON(t, path, &m)

	assert.Equal(t, int64(7), m.ID)
	assert.Equal(t, model.RoleViewer, m.Role)
}

func TestLoadSeed(t *testing.T) {
	seed := LoadSeed(t, FixturePath("seed.json"))

	require.Len(t, seed.Users, 2)
	require.Len(t, seed.Notifications, 2)
	assert.Equal(t, "Gateway", seed.Projects[0].Name)
	assert.Equal(t, model.RoleOwner, seed.Members[0].Role)
	assert.True(t, seed.Notifications[1].Read)
}

func TestFixturePath(t *testing.T) {
	assert.Equal(t, filepath.Join("testdata", "seed.json"), FixturePath("seed.json"))
}

func TestDefaultSeed_IsConsistent(t *testing.T) {
	seed := DefaultSeed()

	users := map[int64]bool{}
	for _, u := range seed.Users {
		users[u.ID] = true
	}
	for _, m := range seed.Members {
		assert.True(t, users[m.UserID], "member %d references unknown user", m.ID)
		assert.Equal(t, seed.Projects[0].ID, m.ProjectID)
	}
	for _, task := range seed.Tasks {
		if task.AssigneeID != 0 {
			assert.True(t, users[task.AssigneeID])
		}
	}
}
