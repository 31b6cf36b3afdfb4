package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-flowx/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMembersList(t *testing.T) {
	withBackend(t)

	out, err := execute(t, "members", "list", "--project", "10")
	require.NoError(t, err)
	assert.Contains(t, out, "2 members")
	assert.Contains(t, out, "OWNER")
}

func TestMembersList_JSON(t *testing.T) {
	withBackend(t)

	out, err := execute(t, "members", "list", "--user", "2", "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Status string                `json:"status"`
		Data   []model.ProjectMember `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Data, 1)
	assert.Equal(t, int64(101), resp.Data[0].ID)
}

func TestMembersList_BackendFailure(t *testing.T) {
	b := withBackend(t)
	b.Fail(http.MethodGet, "/api/project-member/get-by-project/10", http.StatusBadGateway)

	_, err := execute(t, "members", "list", "--project", "10")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestMembersAddAndRole(t *testing.T) {
	withBackend(t)

	out, err := execute(t, "members", "add", "--project", "10", "--user", "3", "--role", "viewer")
	require.NoError(t, err)
	assert.Contains(t, out, "Added user 3 to project 10 as VIEWER")

	out, err = execute(t, "members", "role", "101", "manager")
	require.NoError(t, err)
	assert.Contains(t, out, "Member 101 is now MANAGER")

	_, err = execute(t, "members", "role", "101", "boss")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestMembersRemove_Twice(t *testing.T) {
	withBackend(t)

	_, err := execute(t, "members", "remove", "101")
	require.NoError(t, err)

	_, err = execute(t, "members", "remove", "101")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestProjectsCreate(t *testing.T) {
	withBackend(t)

	out, err := execute(t, "projects", "create", "--name", "Gemini", "--member", "2:MANAGER", "--member", "3")
	require.NoError(t, err)
	assert.Contains(t, out, `"Gemini" with 2 members`)

	out, err = execute(t, "projects", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "2 projects")
}

func TestProjectsCreate_PartialMembers(t *testing.T) {
	b := withBackend(t)
	b.Fail(http.MethodPost, "/api/project-member/add", http.StatusInternalServerError)

	out, err := execute(t, "projects", "create", "--name", "Mercury", "--member", "2:MEMBER")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Warning:")
}

func TestTasksListFilters(t *testing.T) {
	withBackend(t)

	out, err := execute(t, "tasks", "list", "--project", "10")
	require.NoError(t, err)
	assert.Contains(t, out, "2 tasks")

	out, err = execute(t, "tasks", "list", "--project", "10", "--priority", "low")
	require.NoError(t, err)
	assert.Contains(t, out, "1 task\n")
	assert.Contains(t, out, "Pick a mascot")
}

func TestTasksCreateWithAttachment(t *testing.T) {
	b := withBackend(t)
	path := filepath.Join(t.TempDir(), "brief.txt")
	require.NoError(t, os.WriteFile(path, []byte("ship it"), 0o644))

	out, err := execute(t, "tasks", "create", "--project", "10", "--title", "Write brief", "--attach", path, "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Data struct {
			Task  model.Task
			Files []model.File
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, model.PriorityMedium, resp.Data.Task.Priority)
	require.Len(t, resp.Data.Files, 1)

	data, ok := b.Object(resp.Data.Files[0].ObjectKey)
	require.True(t, ok)
	assert.Equal(t, "ship it", string(data))
}

func TestTasksStatus(t *testing.T) {
	withBackend(t)

	out, err := execute(t, "tasks", "status", "200", "done")
	require.NoError(t, err)
	assert.Contains(t, out, "Task 200 is now DONE")
}

func TestUploadAndDownload(t *testing.T) {
	withBackend(t)
	dir := t.TempDir()
	src := filepath.Join(dir, "notes.json")
	require.NoError(t, os.WriteFile(src, []byte(`{"done":true}`), 0o644))

	out, err := execute(t, "upload", "--entity", "project", "--id", "10", src, "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Data []model.File `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "application/json", resp.Data[0].ContentType)

	dst := filepath.Join(dir, "copy.json")
	_, err = execute(t, "upload", "download", strconv.FormatInt(resp.Data[0].ID, 10), "-o", dst)
	require.NoError(t, err)
	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, `{"done":true}`, string(got))
}

func TestUpload_MissingFile(t *testing.T) {
	withBackend(t)

	_, err := execute(t, "upload", "--id", "10", filepath.Join(t.TempDir(), "missing.bin"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestUsers(t *testing.T) {
	withBackend(t)

	out, err := execute(t, "users")
	require.NoError(t, err)
	assert.Contains(t, out, "3 users")

	out, err = execute(t, "users", "grace")
	require.NoError(t, err)
	assert.Contains(t, out, "1 user\n")
	assert.Contains(t, out, "Design")
}

func TestNotificationsListAndRead(t *testing.T) {
	withBackend(t)

	out, err := execute(t, "notifications", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "1 notification, 1 unread")

	_, err = execute(t, "notifications", "read", "300")
	require.NoError(t, err)

	out, err = execute(t, "notif", "list", "--unread")
	require.NoError(t, err)
	assert.Contains(t, out, "0 notifications, 0 unread")
}

func TestNotificationsTail(t *testing.T) {
	b := withBackend(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out := &syncBuffer{}
	cmd := NewRootCommand()
	cmd.SetArgs([]string{"notifications", "tail"})
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})

	errc := make(chan error, 1)
	go func() { errc <- cmd.ExecuteContext(ctx) }()

	require.Eventually(t, func() bool { return b.Subscribers() == 1 }, 2*time.Second, 10*time.Millisecond)
	b.Publish(model.Notification{ID: 901, Type: "TASK_ASSIGNED", Title: "Review the brief", CreatedAt: time.Now()})
	require.Eventually(t, func() bool { return strings.Contains(out.String(), "Review the brief") }, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-errc:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("tail did not stop")
	}
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.String()
}
