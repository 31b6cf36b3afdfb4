package model

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// TaskStatus is the workflow column a task sits in.
type TaskStatus string

const (
	TaskTodo       TaskStatus = "TODO"
	TaskInProgress TaskStatus = "IN_PROGRESS"
	TaskReview     TaskStatus = "REVIEW"
	TaskDone       TaskStatus = "DONE"
)

// TaskPriority orders tasks within a column.
type TaskPriority string

const (
	PriorityLow    TaskPriority = "LOW"
	PriorityMedium TaskPriority = "MEDIUM"
	PriorityHigh   TaskPriority = "HIGH"
	PriorityUrgent TaskPriority = "URGENT"
)

// Task is a unit of work inside a project, optionally assigned to a user.
type Task struct {
	ID          int64        `json:"id" msgpack:"id"`
	ProjectID   int64        `json:"projectId" msgpack:"projectId"`
	AssigneeID  int64        `json:"assigneeId,omitempty" msgpack:"assigneeId"`
	Title       string       `json:"title" msgpack:"title"`
	Description string       `json:"description,omitempty" msgpack:"description"`
	Status      TaskStatus   `json:"status" msgpack:"status"`
	Priority    TaskPriority `json:"priority" msgpack:"priority"`
	DueDate     *time.Time   `json:"dueDate,omitempty" msgpack:"dueDate"`
	CreatedAt   time.Time    `json:"createdAt" msgpack:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt" msgpack:"updatedAt"`
}

// Overdue reports whether the task is past its due date and still open.
func (t Task) Overdue(now time.Time) bool {
	if t.Status == TaskDone || t.DueDate == nil {
		return false
	}
	return t.DueDate.Before(now)
}

// CreateTaskRequest is the payload for creating a task.
type CreateTaskRequest struct {
	ProjectID   int64        `json:"projectId"`
	AssigneeID  int64        `json:"assigneeId,omitempty"`
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	Priority    TaskPriority `json:"priority"`
	DueDate     *time.Time   `json:"dueDate,omitempty"`
}

// Validate checks required fields and enum values.
func (r CreateTaskRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.ProjectID, validation.Required),
		validation.Field(&r.Title, validation.Required, validation.Length(1, 255)),
		validation.Field(&r.Priority, validation.Required, validation.In(priorities()...)),
	)
}

// UpdateTaskRequest carries the fields PUT /api/task/{id} replaces. Zero
// values are omitted from the payload and left untouched by the backend.
type UpdateTaskRequest struct {
	AssigneeID  int64        `json:"assigneeId,omitempty"`
	ProjectID   int64        `json:"projectId,omitempty"`
	Title       string       `json:"title,omitempty"`
	Description string       `json:"description,omitempty"`
	Priority    TaskPriority `json:"priority,omitempty"`
	DueDate     *time.Time   `json:"dueDate,omitempty"`
}

// Validate checks the enum values that are set.
func (r UpdateTaskRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.Length(1, 255)),
		validation.Field(&r.Priority, validation.In(priorities()...)),
	)
}

// UpdateTaskStatusRequest moves a task to another status.
type UpdateTaskStatusRequest struct {
	Status TaskStatus `json:"status"`
}

// Validate requires a known status.
func (r UpdateTaskStatusRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Status, validation.Required, validation.In(taskStatuses()...)),
	)
}

func priorities() []any {
	return []any{PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent}
}

func taskStatuses() []any {
	return []any{TaskTodo, TaskInProgress, TaskReview, TaskDone}
}
