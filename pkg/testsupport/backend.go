package testsupport

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/goliatone/go-flowx/model"
	"github.com/gorilla/websocket"
)

// DefaultToken is the bearer token a Backend accepts unless told otherwise.
const DefaultToken = "test-token"

// Seed is the initial data of a fake backend.
type Seed struct {
	Members       []model.ProjectMember `json:"members"`
	Projects      []model.Project       `json:"projects"`
	Tasks         []model.Task          `json:"tasks"`
	Users         []model.User          `json:"users"`
	Departments   []model.Department    `json:"departments"`
	Notifications []model.Notification  `json:"notifications"`
}

// Backend is an in-memory FlowX server for tests and examples. It speaks the
// REST envelope, hands out presigned URLs to its own object storage routes
// and pushes notifications over a WebSocket.
type Backend struct {
	Server *httptest.Server
	Token  string

	mu            sync.Mutex
	nextID        int64
	members       map[int64]model.ProjectMember
	projects      map[int64]model.Project
	tasks         map[int64]model.Task
	users         map[int64]model.User
	departments   map[int64]model.Department
	notifications []model.Notification
	files         map[int64]model.File
	objects       map[string][]byte
	failures      map[string]int
	hits          map[string]int
	subscribers   map[*websocket.Conn]struct{}
}

// NewBackend starts a backend serving seed. Call Close when done.
func NewBackend(seed Seed) *Backend {
	b := &Backend{
		Token:       DefaultToken,
		members:     map[int64]model.ProjectMember{},
		projects:    map[int64]model.Project{},
		tasks:       map[int64]model.Task{},
		users:       map[int64]model.User{},
		departments: map[int64]model.Department{},
		files:       map[int64]model.File{},
		objects:     map[string][]byte{},
		failures:    map[string]int{},
		hits:        map[string]int{},
		subscribers: map[*websocket.Conn]struct{}{},
	}
	for _, m := range seed.Members {
		b.members[m.ID] = m
		b.bump(m.ID)
	}
	for _, p := range seed.Projects {
		b.projects[p.ID] = p
		b.bump(p.ID)
	}
	for _, t := range seed.Tasks {
		b.tasks[t.ID] = t
		b.bump(t.ID)
	}
	for _, u := range seed.Users {
		b.users[u.ID] = u
	}
	for _, d := range seed.Departments {
		b.departments[d.ID] = d
	}
	b.notifications = append(b.notifications, seed.Notifications...)
	sort.SliceStable(b.notifications, func(i, j int) bool { return b.notifications[i].ID > b.notifications[j].ID })

	b.Server = httptest.NewServer(b.routes())
	return b
}

// StartBackend is NewBackend bound to the lifetime of t.
func StartBackend(t testing.TB, seed Seed) *Backend {
	t.Helper()
	b := NewBackend(seed)
	t.Cleanup(b.Close)
	return b
}

// Close shuts down the server and every open notification socket.
func (b *Backend) Close() {
	b.mu.Lock()
	for conn := range b.subscribers {
		_ = conn.Close()
	}
	b.mu.Unlock()
	b.Server.Close()
}

// URL is the HTTP origin of the backend.
func (b *Backend) URL() string { return b.Server.URL }

// WebSocketURL is the notification socket address.
func (b *Backend) WebSocketURL() string {
	return "ws" + strings.TrimPrefix(b.Server.URL, "http") + "/ws/notifications"
}

// Fail makes the next request for method and path answer with status.
func (b *Backend) Fail(method, path string, status int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures[method+" "+path] = status
}

// Hits returns how often the route pattern was served, e.g.
// Hits("GET", "/api/project-member/get-by-project/{id}").
func (b *Backend) Hits(method, pattern string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.hits[method+" "+pattern]
}

// Object returns what was uploaded under an object key.
func (b *Backend) Object(key string) ([]byte, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.objects[key]
	return data, ok
}

// Subscribers is the number of open notification sockets.
func (b *Backend) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subscribers)
}

// Publish stores n and pushes it to every connected listener.
func (b *Backend) Publish(n model.Notification) {
	raw, _ := json.Marshal(n)
	b.mu.Lock()
	defer b.mu.Unlock()
	b.notifications = append([]model.Notification{n}, b.notifications...)
	for conn := range b.subscribers {
		if err := conn.WriteMessage(websocket.TextMessage, raw); err != nil {
			_ = conn.Close()
			delete(b.subscribers, conn)
		}
	}
}

func (b *Backend) bump(id int64) {
	if id > b.nextID {
		b.nextID = id
	}
}

func (b *Backend) newID() int64 {
	b.nextID++
	return b.nextID
}

func (b *Backend) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(b.count)

	r.Put("/storage/*", b.putObject)
	r.Get("/storage/*", b.getObject)
	r.Get("/ws/notifications", b.subscribe)

	r.Group(func(r chi.Router) {
		r.Use(b.authenticate)
		r.Use(b.injectFailures)

		r.Route("/api/project-member", func(r chi.Router) {
			r.Post("/add", b.addMember)
			r.Get("/get-by-project/{id}", b.membersBy(func(m model.ProjectMember) int64 { return m.ProjectID }))
			r.Get("/get-by-user/{id}", b.membersBy(func(m model.ProjectMember) int64 { return m.UserID }))
			r.Put("/bulk-status", b.bulkMemberStatus)
			r.Get("/{id}", b.getMember)
			r.Put("/{id}/role", b.patchMember(func(m *model.ProjectMember, req memberPatch) { m.Role = req.Role }))
			r.Put("/{id}/status", b.patchMember(func(m *model.ProjectMember, req memberPatch) { m.Status = req.Status }))
			r.Delete("/{id}", b.removeMember)
		})
		r.Route("/api/project", func(r chi.Router) {
			r.Post("/create", b.createProject)
			r.Get("/list", b.listProjects)
			r.Get("/{id}", b.getProject)
			r.Put("/{id}", b.updateProject)
			r.Delete("/{id}", b.deleteProject)
		})
		r.Route("/api/task", func(r chi.Router) {
			r.Post("/create", b.createTask)
			r.Get("/get-by-project/{id}", b.tasksBy(func(t model.Task) int64 { return t.ProjectID }))
			r.Get("/get-by-assignee/{id}", b.tasksBy(func(t model.Task) int64 { return t.AssigneeID }))
			r.Get("/{id}", b.getTask)
			r.Put("/{id}", b.updateTask)
			r.Put("/{id}/status", b.updateTaskStatus)
			r.Delete("/{id}", b.deleteTask)
		})
		r.Route("/api/file", func(r chi.Router) {
			r.Post("/presigned-upload", b.presignUpload)
			r.Get("/presigned-download/{id}", b.presignDownload)
			r.Get("/get-by-entity/{type}/{id}", b.filesByEntity)
			r.Delete("/{id}", b.deleteFile)
		})
		r.Route("/api/user", func(r chi.Router) {
			r.Get("/list", b.listUsers)
			r.Get("/search", b.searchUsers)
			r.Get("/{id}", b.getUser)
		})
		r.Route("/api/department", func(r chi.Router) {
			r.Get("/list", b.listDepartments)
			r.Get("/{id}", b.getDepartment)
			r.Get("/{id}/users", b.departmentUsers)
		})
		r.Route("/api/notification", func(r chi.Router) {
			r.Get("/", b.listNotifications)
			r.Get("/unread-count", b.unreadCount)
			r.Put("/read-all", b.readAll)
			r.Put("/{id}/read", b.markRead)
		})
	})
	return r
}

func (b *Backend) count(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r)
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			b.mu.Lock()
			b.hits[r.Method+" "+rctx.RoutePattern()]++
			b.mu.Unlock()
		}
	})
}

func (b *Backend) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+b.Token {
			respond(w, http.StatusUnauthorized, nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (b *Backend) injectFailures(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + r.URL.Path
		b.mu.Lock()
		status, ok := b.failures[key]
		delete(b.failures, key)
		b.mu.Unlock()
		if ok {
			respond(w, status, nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type envelope struct {
	Code    int    `json:"code"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// respond writes the FlowX envelope. Error statuses carry no data.
func respond(w http.ResponseWriter, status int, data any) {
	env := envelope{Code: status, Data: data}
	if status >= http.StatusBadRequest {
		env.Message = http.StatusText(status)
		env.Data = nil
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}

func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	return id, err == nil
}

func decode(r *http.Request, v any) bool {
	return json.NewDecoder(r.Body).Decode(v) == nil
}

// members

type memberPatch struct {
	Role   model.MemberRole   `json:"role"`
	Status model.MemberStatus `json:"status"`
}

func (b *Backend) addMember(w http.ResponseWriter, r *http.Request) {
	var req model.AddMemberRequest
	if !decode(r, &req) || req.Validate() != nil {
		respond(w, http.StatusBadRequest, nil)
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, m := range b.members {
		if m.ProjectID == req.ProjectID && m.UserID == req.UserID {
			respond(w, http.StatusConflict, nil)
			return
		}
	}
	now := time.Now().UTC()
	m := model.ProjectMember{
		ID: b.newID(), ProjectID: req.ProjectID, UserID: req.UserID,
		Role: req.Role, Status: model.MemberActive, CreatedAt: now, UpdatedAt: now,
	}
	b.members[m.ID] = m
	respond(w, http.StatusCreated, m)
}

func (b *Backend) membersBy(key func(model.ProjectMember) int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r, "id")
		if !ok {
			respond(w, http.StatusBadRequest, nil)
			return
		}
		b.mu.Lock()
		defer b.mu.Unlock()
		out := []model.ProjectMember{}
		for _, m := range b.members {
			if key(m) == id {
				out = append(out, m)
			}
		}
		sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
		respond(w, http.StatusOK, out)
	}
}

func (b *Backend) getMember(w http.ResponseWriter, r *http.Request) {
	id, _ := pathID(r, "id")
	b.mu.Lock()
	defer b.mu.Unlock()
	m, ok := b.members[id]
	if !ok {
		respond(w, http.StatusNotFound, nil)
		return
	}
	respond(w, http.StatusOK, m)
}

func (b *Backend) patchMember(apply func(*model.ProjectMember, memberPatch)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, _ := pathID(r, "id")
		var req memberPatch
		if !decode(r, &req) {
			respond(w, http.StatusBadRequest, nil)
			return
		}
		b.mu.Lock()
		defer b.mu.Unlock()
		m, ok := b.members[id]
		if !ok {
			respond(w, http.StatusNotFound, nil)
			return
		}
		apply(&m, req)
		m.UpdatedAt = time.Now().UTC()
		b.members[id] = m
		respond(w, http.StatusOK, m)
	}
}

func (b *Backend) removeMember(w http.ResponseWriter, r *http.Request) {
	id, _ := pathID(r, "id")
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.members[id]; !ok {
		respond(w, http.StatusNotFound, nil)
		return
	}
	delete(b.members, id)
	respond(w, http.StatusOK, nil)
}

func (b *Backend) bulkMemberStatus(w http.ResponseWriter, r *http.Request) {
	var req model.BulkStatusRequest
	if !decode(r, &req) || req.Validate() != nil {
		respond(w, http.StatusBadRequest, nil)
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, id := range req.IDs {
		if m, ok := b.members[id]; ok {
			m.Status = req.Status
			b.members[id] = m
		}
	}
	respond(w, http.StatusOK, nil)
}

// projects

func (b *Backend) createProject(w http.ResponseWriter, r *http.Request) {
	var req model.CreateProjectRequest
	if !decode(r, &req) || req.Validate() != nil {
		respond(w, http.StatusBadRequest, nil)
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	now := time.Now().UTC()
	p := model.Project{
		ID: b.newID(), Name: req.Name, Description: req.Description, DepartmentID: req.DepartmentID,
		Status: req.Status, StartDate: req.StartDate, EndDate: req.EndDate, CreatedAt: now, UpdatedAt: now,
	}
	if p.Status == "" {
		p.Status = model.ProjectPlanning
	}
	b.projects[p.ID] = p
	respond(w, http.StatusCreated, p)
}

func (b *Backend) listProjects(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]model.Project, 0, len(b.projects))
	for _, p := range b.projects {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	respond(w, http.StatusOK, out)
}

func (b *Backend) getProject(w http.ResponseWriter, r *http.Request) {
	id, _ := pathID(r, "id")
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.projects[id]
	if !ok {
		respond(w, http.StatusNotFound, nil)
		return
	}
	respond(w, http.StatusOK, p)
}

func (b *Backend) updateProject(w http.ResponseWriter, r *http.Request) {
	id, _ := pathID(r, "id")
	var req model.UpdateProjectRequest
	if !decode(r, &req) {
		respond(w, http.StatusBadRequest, nil)
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.projects[id]
	if !ok {
		respond(w, http.StatusNotFound, nil)
		return
	}
	if req.Name != "" {
		p.Name = req.Name
	}
	if req.Description != "" {
		p.Description = req.Description
	}
	if req.Status != "" {
		p.Status = req.Status
	}
	if req.StartDate != nil {
		p.StartDate = req.StartDate
	}
	if req.EndDate != nil {
		p.EndDate = req.EndDate
	}
	p.UpdatedAt = time.Now().UTC()
	b.projects[id] = p
	respond(w, http.StatusOK, p)
}

func (b *Backend) deleteProject(w http.ResponseWriter, r *http.Request) {
	id, _ := pathID(r, "id")
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.projects[id]; !ok {
		respond(w, http.StatusNotFound, nil)
		return
	}
	delete(b.projects, id)
	for mid, m := range b.members {
		if m.ProjectID == id {
			delete(b.members, mid)
		}
	}
	respond(w, http.StatusOK, nil)
}

// tasks

func (b *Backend) createTask(w http.ResponseWriter, r *http.Request) {
	var req model.CreateTaskRequest
	if !decode(r, &req) || req.Validate() != nil {
		respond(w, http.StatusBadRequest, nil)
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	now := time.Now().UTC()
	t := model.Task{
		ID: b.newID(), ProjectID: req.ProjectID, AssigneeID: req.AssigneeID, Title: req.Title,
		Description: req.Description, Status: model.TaskTodo, Priority: req.Priority, DueDate: req.DueDate,
		CreatedAt: now, UpdatedAt: now,
	}
	if t.Priority == "" {
		t.Priority = model.PriorityMedium
	}
	b.tasks[t.ID] = t
	respond(w, http.StatusCreated, t)
}

func (b *Backend) tasksBy(key func(model.Task) int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, _ := pathID(r, "id")
		b.mu.Lock()
		defer b.mu.Unlock()
		out := []model.Task{}
		for _, t := range b.tasks {
			if key(t) == id {
				out = append(out, t)
			}
		}
		sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
		respond(w, http.StatusOK, out)
	}
}

func (b *Backend) getTask(w http.ResponseWriter, r *http.Request) {
	id, _ := pathID(r, "id")
	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.tasks[id]
	if !ok {
		respond(w, http.StatusNotFound, nil)
		return
	}
	respond(w, http.StatusOK, t)
}

func (b *Backend) updateTask(w http.ResponseWriter, r *http.Request) {
	id, _ := pathID(r, "id")
	var req model.UpdateTaskRequest
	if !decode(r, &req) {
		respond(w, http.StatusBadRequest, nil)
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.tasks[id]
	if !ok {
		respond(w, http.StatusNotFound, nil)
		return
	}
	if req.ProjectID != 0 {
		t.ProjectID = req.ProjectID
	}
	if req.AssigneeID != 0 {
		t.AssigneeID = req.AssigneeID
	}
	if req.Title != "" {
		t.Title = req.Title
	}
	if req.Description != "" {
		t.Description = req.Description
	}
	if req.Priority != "" {
		t.Priority = req.Priority
	}
	if req.DueDate != nil {
		t.DueDate = req.DueDate
	}
	t.UpdatedAt = time.Now().UTC()
	b.tasks[id] = t
	respond(w, http.StatusOK, t)
}

func (b *Backend) updateTaskStatus(w http.ResponseWriter, r *http.Request) {
	id, _ := pathID(r, "id")
	var req model.UpdateTaskStatusRequest
	if !decode(r, &req) || req.Validate() != nil {
		respond(w, http.StatusBadRequest, nil)
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.tasks[id]
	if !ok {
		respond(w, http.StatusNotFound, nil)
		return
	}
	t.Status = req.Status
	t.UpdatedAt = time.Now().UTC()
	b.tasks[id] = t
	respond(w, http.StatusOK, t)
}

func (b *Backend) deleteTask(w http.ResponseWriter, r *http.Request) {
	id, _ := pathID(r, "id")
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.tasks[id]; !ok {
		respond(w, http.StatusNotFound, nil)
		return
	}
	delete(b.tasks, id)
	respond(w, http.StatusOK, nil)
}

// files and object storage

func (b *Backend) presignUpload(w http.ResponseWriter, r *http.Request) {
	var req model.PresignedUploadRequest
	if !decode(r, &req) || req.Validate() != nil {
		respond(w, http.StatusBadRequest, nil)
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.newID()
	key := fmt.Sprintf("%s/%d/%d-%s", strings.ToLower(string(req.EntityType)), req.EntityID, id, req.FileName)
	b.files[id] = model.File{
		ID: id, Name: req.FileName, ContentType: req.ContentType, Size: req.Size,
		EntityType: req.EntityType, EntityID: req.EntityID, ObjectKey: key, CreatedAt: time.Now().UTC(),
	}
	respond(w, http.StatusOK, model.PresignedUpload{
		FileID:    id,
		URL:       b.Server.URL + "/storage/" + key,
		ObjectKey: key,
		ExpiresAt: time.Now().Add(15 * time.Minute).UTC(),
	})
}

func (b *Backend) presignDownload(w http.ResponseWriter, r *http.Request) {
	id, _ := pathID(r, "id")
	b.mu.Lock()
	defer b.mu.Unlock()
	f, ok := b.files[id]
	if !ok {
		respond(w, http.StatusNotFound, nil)
		return
	}
	respond(w, http.StatusOK, model.PresignedDownload{
		URL:       b.Server.URL + "/storage/" + f.ObjectKey,
		FileName:  f.Name,
		ExpiresAt: time.Now().Add(15 * time.Minute).UTC(),
	})
}

func (b *Backend) filesByEntity(w http.ResponseWriter, r *http.Request) {
	entity := model.EntityType(strings.ToUpper(chi.URLParam(r, "type")))
	id, _ := pathID(r, "id")
	b.mu.Lock()
	defer b.mu.Unlock()
	out := []model.File{}
	for _, f := range b.files {
		if f.EntityType == entity && f.EntityID == id {
			if _, uploaded := b.objects[f.ObjectKey]; uploaded {
				out = append(out, f)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	respond(w, http.StatusOK, out)
}

func (b *Backend) deleteFile(w http.ResponseWriter, r *http.Request) {
	id, _ := pathID(r, "id")
	b.mu.Lock()
	defer b.mu.Unlock()
	f, ok := b.files[id]
	if !ok {
		respond(w, http.StatusNotFound, nil)
		return
	}
	delete(b.files, id)
	delete(b.objects, f.ObjectKey)
	respond(w, http.StatusOK, nil)
}

func (b *Backend) putObject(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "*")
	failKey := r.Method + " " + r.URL.Path
	b.mu.Lock()
	status, fail := b.failures[failKey]
	delete(b.failures, failKey)
	b.mu.Unlock()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if fail {
		w.WriteHeader(status)
		return
	}
	b.mu.Lock()
	b.objects[key] = body
	b.mu.Unlock()
	w.WriteHeader(http.StatusOK)
}

func (b *Backend) getObject(w http.ResponseWriter, r *http.Request) {
	data, ok := b.Object(chi.URLParam(r, "*"))
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	_, _ = w.Write(data)
}

// directory

func (b *Backend) listUsers(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, b.usersWhere(func(model.User) bool { return true }))
}

func (b *Backend) searchUsers(w http.ResponseWriter, r *http.Request) {
	q := strings.ToLower(r.URL.Query().Get("q"))
	respond(w, http.StatusOK, b.usersWhere(func(u model.User) bool {
		return strings.Contains(strings.ToLower(u.Username), q) || strings.Contains(strings.ToLower(u.FullName), q)
	}))
}

func (b *Backend) usersWhere(keep func(model.User) bool) []model.User {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := []model.User{}
	for _, u := range b.users {
		if keep(u) {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (b *Backend) getUser(w http.ResponseWriter, r *http.Request) {
	id, _ := pathID(r, "id")
	b.mu.Lock()
	defer b.mu.Unlock()
	u, ok := b.users[id]
	if !ok {
		respond(w, http.StatusNotFound, nil)
		return
	}
	respond(w, http.StatusOK, u)
}

func (b *Backend) listDepartments(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]model.Department, 0, len(b.departments))
	for _, d := range b.departments {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	respond(w, http.StatusOK, out)
}

func (b *Backend) getDepartment(w http.ResponseWriter, r *http.Request) {
	id, _ := pathID(r, "id")
	b.mu.Lock()
	defer b.mu.Unlock()
	d, ok := b.departments[id]
	if !ok {
		respond(w, http.StatusNotFound, nil)
		return
	}
	respond(w, http.StatusOK, d)
}

func (b *Backend) departmentUsers(w http.ResponseWriter, r *http.Request) {
	id, _ := pathID(r, "id")
	respond(w, http.StatusOK, b.usersWhere(func(u model.User) bool { return u.DepartmentID == id }))
}

// notifications

func (b *Backend) listNotifications(w http.ResponseWriter, r *http.Request) {
	q := model.NotificationQuery{UnreadOnly: r.URL.Query().Get("unread") == "true"}
	q.Page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	q.Size, _ = strconv.Atoi(r.URL.Query().Get("size"))
	q = q.Normalize()

	b.mu.Lock()
	defer b.mu.Unlock()
	var all []model.Notification
	for _, n := range b.notifications {
		if !q.UnreadOnly || !n.Read {
			all = append(all, n)
		}
	}
	start := min((q.Page-1)*q.Size, len(all))
	end := min(start+q.Size, len(all))
	items := append([]model.Notification{}, all[start:end]...)
	respond(w, http.StatusOK, model.Page[model.Notification]{Items: items, Page: q.Page, Size: q.Size, Total: len(all)})
}

func (b *Backend) unreadCount(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, item := range b.notifications {
		if !item.Read {
			n++
		}
	}
	respond(w, http.StatusOK, n)
}

func (b *Backend) markRead(w http.ResponseWriter, r *http.Request) {
	id, _ := pathID(r, "id")
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.notifications {
		if b.notifications[i].ID == id {
			b.notifications[i].Read = true
			respond(w, http.StatusOK, nil)
			return
		}
	}
	respond(w, http.StatusNotFound, nil)
}

func (b *Backend) readAll(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.notifications {
		b.notifications[i].Read = true
	}
	respond(w, http.StatusOK, nil)
}

var upgrader = websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}

func (b *Backend) subscribe(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Authorization") != "Bearer "+b.Token {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	b.mu.Lock()
	b.subscribers[conn] = struct{}{}
	b.mu.Unlock()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	b.mu.Lock()
	delete(b.subscribers, conn)
	b.mu.Unlock()
	_ = conn.Close()
}
