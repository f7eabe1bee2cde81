package models

import "time"

type Task struct {
	ID          string
	Title       string
	Description *string
	Urgency     Urgency
	Status      Status
	Department  string
	ProjectID   *string
	// ProjectName is populated on reads that join the projects table.
	ProjectName *string
	// AssigneeID is the legacy single-assignee column, kept alongside
	// the task_assignees relation for backward compatibility.
	AssigneeID  *string
	CreatedBy   string
	Deadline    time.Time
	CompletedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Completed reports whether the task is in its terminal completed state.
// CompletedAt is set if and only if this is true.
func (t *Task) Completed() bool {
	return t.Status == StatusCompleted
}
