package models

import "time"

// SystemActor attributes assignments created by the engine itself,
// e.g. when a task inherits its project's membership.
const SystemActor = "system"

type Assignment struct {
	ID         string
	TaskID     string
	UserID     string
	AssignedAt time.Time
	AssignedBy string
}

// Assignee is an assignment joined with the user's display fields.
type Assignee struct {
	UserID     string
	FirstName  string
	LastName   string
	AssignedAt time.Time
	AssignedBy string
}
