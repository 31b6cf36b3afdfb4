package model

import "strings"

// TaskFilter narrows a task list on the client. Empty fields match everything.
type TaskFilter struct {
	Status     TaskStatus
	Priority   TaskPriority
	AssigneeID int64
	Query      string
}

// Apply returns the tasks matching the filter, in their original order.
func (f TaskFilter) Apply(tasks []Task) []Task {
	query := strings.ToLower(strings.TrimSpace(f.Query))
	out := make([]Task, 0, len(tasks))
	for _, t := range tasks {
		if f.Status != "" && t.Status != f.Status {
			continue
		}
		if f.Priority != "" && t.Priority != f.Priority {
			continue
		}
		if f.AssigneeID != 0 && t.AssigneeID != f.AssigneeID {
			continue
		}
		if query != "" &&
			!strings.Contains(strings.ToLower(t.Title), query) &&
			!strings.Contains(strings.ToLower(t.Description), query) {
			continue
		}
		out = append(out, t)
	}
	return out
}
