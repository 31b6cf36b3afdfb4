package testsupport

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/goliatone/go-flowx/model"
)

// LoadFixture loads test data from a fixture file.
// The path is relative to the test package directory.
func LoadFixture(t testing.TB, path string) []byte {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to load fixture from %s: %v", path, err)
	}

	return data
}

// LoadFixtureJSON loads JSON test data from a fixture file and unmarshals it.
func LoadFixtureJSON(t testing.TB, path string, dest any) {
	t.Helper()

	data := LoadFixture(t, path)
	if err := json.Unmarshal(data, dest); err != nil {
		t.Fatalf("failed to unmarshal JSON fixture from %s: %v", path, err)
	}
}

// LoadSeed reads a backend Seed from a JSON fixture.
func LoadSeed(t testing.TB, path string) Seed {
	t.Helper()

	var seed Seed
	LoadFixtureJSON(t, path, &seed)
	return seed
}

// FixturePath constructs a path to a fixture file relative to the testdata directory.
func FixturePath(filename string) string {
	return filepath.Join("testdata", filename)
}

// DefaultSeed is a small organisation: two departments, three users, one
// project with two members and two tasks, and an unread notification.
func DefaultSeed() Seed {
	created := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	return Seed{
		Departments: []model.Department{
			{ID: 1, Name: "Engineering", ManagerID: 1},
			{ID: 2, Name: "Design", ManagerID: 3},
		},
		Users: []model.User{
			{ID: 1, Username: "ada", FullName: "Ada Lovelace", Email: "ada@flowx.test", DepartmentID: 1, Active: true},
			{ID: 2, Username: "alan", FullName: "Alan Turing", Email: "alan@flowx.test", DepartmentID: 1, Active: true},
			{ID: 3, Username: "grace", FullName: "Grace Hopper", Email: "grace@flowx.test", DepartmentID: 2, Active: true},
		},
		Projects: []model.Project{
			{ID: 10, Name: "Apollo", OwnerID: 1, DepartmentID: 1, Status: model.ProjectActive, CreatedAt: created, UpdatedAt: created},
		},
		Members: []model.ProjectMember{
			{ID: 100, ProjectID: 10, UserID: 1, Role: model.RoleOwner, Status: model.MemberActive, CreatedAt: created, UpdatedAt: created},
			{ID: 101, ProjectID: 10, UserID: 2, Role: model.RoleMember, Status: model.MemberActive, CreatedAt: created, UpdatedAt: created},
		},
		Tasks: []model.Task{
			{ID: 200, ProjectID: 10, AssigneeID: 2, Title: "Draft launch plan", Status: model.TaskInProgress, Priority: model.PriorityHigh, CreatedAt: created, UpdatedAt: created},
			{ID: 201, ProjectID: 10, Title: "Pick a mascot", Status: model.TaskTodo, Priority: model.PriorityLow, CreatedAt: created, UpdatedAt: created},
		},
		Notifications: []model.Notification{
			{ID: 300, UserID: 1, Type: "TASK_ASSIGNED", Title: "New task", Message: "Draft launch plan", EntityType: model.EntityTask, EntityID: 200, CreatedAt: created},
		},
	}
}
