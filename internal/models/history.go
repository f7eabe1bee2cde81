package models

import "time"

const (
	ActionCreated       = "created"
	ActionUpdated       = "updated"
	ActionStatusChanged = "status_changed"
	ActionDeleted       = "deleted"
)

// HistoryEntry is one append-only record of a task mutation. Entries are
// never updated or deleted and outlive the task they reference.
type HistoryEntry struct {
	ID           string
	TaskID       string
	UserID       string
	Action       string
	FieldChanged *string
	OldValue     *string
	NewValue     *string
	CreatedAt    time.Time
}
