package services

import (
	"context"
	"errors"
	"time"

	"github.com/planhub/go-tasks/internal/models"
)

var (
	ErrTaskNotFound       = errors.New("task not found")
	ErrAssignmentNotFound = errors.New("assignment not found")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidTaskStatus  = errors.New("invalid task status")
	ErrInvalidTaskUrgency = errors.New("invalid task urgency")
	ErrEmptyTaskTitle     = errors.New("task title must not be empty")
	ErrMissingDeadline    = errors.New("task deadline is required")
	ErrNoFieldsToUpdate   = errors.New("no fields to update")
	ErrStatusTransition   = errors.New("status transition not allowed")
)

// TaskService owns the persisted task rows.
type TaskService interface {
	// CreateTask inserts the task with a fresh id, status pending and
	// no completion timestamp, and returns it with the storage-assigned
	// fields populated.
	CreateTask(ctx context.Context, task *models.Task) (*models.Task, error)

	GetTaskByID(ctx context.Context, taskID string) (*models.Task, error)

	// UpdateTask applies only the fields present in the given set and
	// refreshes updated_at. It returns the refreshed task or
	// ErrTaskNotFound.
	UpdateTask(ctx context.Context, taskID string, fields UpdateTaskFields) (*models.Task, error)

	// SetTaskStatus writes the status and completion timestamp together.
	// A nil completedAt clears the column.
	SetTaskStatus(ctx context.Context, taskID string, status models.Status, completedAt *time.Time) error

	// DeleteTask removes the task row and its assignment rows. History
	// rows are retained as a forensic record.
	DeleteTask(ctx context.Context, taskID string) error

	// GetTasks returns the filtered page ordered by deadline ascending,
	// together with the unpaged total.
	GetTasks(ctx context.Context, filter TaskFilter) ([]*models.Task, int, error)

	GetUrgentTasks(ctx context.Context) ([]*models.Task, error)

	// GetTasksDueToday returns the tasks with the given deadline date
	// that are not completed and are reachable by the user through the
	// legacy assignee column, the task_assignees relation, or membership
	// in the task's project. A task reachable through several paths
	// appears once.
	GetTasksDueToday(ctx context.Context, userID string, day time.Time) ([]*models.Task, error)
}

// AssigneeService owns the many-to-many relation between tasks and the
// users responsible for them.
type AssigneeService interface {
	// Assign adds the (task, user) pair and reports whether a row was
	// inserted. Assigning an already-assigned user is a no-op, not an
	// error. Returns ErrTaskNotFound if the task does not exist.
	Assign(ctx context.Context, taskID, userID, assignedBy string) (bool, error)

	// Unassign removes the pair or returns ErrAssignmentNotFound.
	Unassign(ctx context.Context, taskID, userID string) error

	GetTaskAssignees(ctx context.Context, taskID string) ([]*models.Assignee, error)

	GetTaskIDsForUser(ctx context.Context, userID string) ([]string, error)

	// CascadeFromProject assigns every member of the project to the
	// task, attributing the rows to the system actor. Used when a task
	// is created under a project without an explicit assignee list.
	CascadeFromProject(ctx context.Context, taskID, projectID string) ([]string, error)
}

// HistoryService is the append-only audit trail. Entries are never
// updated or deleted, even after the task itself is gone.
type HistoryService interface {
	Record(ctx context.Context, params RecordHistoryParams) error

	// GetTaskHistory returns the task's entries newest first.
	GetTaskHistory(ctx context.Context, taskID string) ([]*models.HistoryEntry, error)
}

// DirectoryService is a read-only view over the externally owned user
// and project membership tables.
type DirectoryService interface {
	UserExists(ctx context.Context, userID string) (bool, error)

	// MembersOf returns the project's member user ids in join order.
	MembersOf(ctx context.Context, projectID string) ([]string, error)
}

// LifecycleService composes the stores above into the public task
// operations. It is stateless between calls; composite operations run as
// sequential statements without a wrapping transaction, so a history
// write that fails after a successful mutation surfaces the error
// without rolling the mutation back.
type LifecycleService interface {
	// CreateTask validates the input, inserts the task, records the
	// created history entry and resolves the initial assignees: the
	// explicit list when given, otherwise the project's membership,
	// otherwise none. It returns the task and the resolved assignee ids.
	CreateTask(ctx context.Context, params CreateTaskParams) (*models.Task, []string, error)

	// UpdateTask applies a partial update and records one history entry
	// for the call: status_changed with old and new values when the
	// field set includes status, a plain updated marker otherwise.
	UpdateTask(ctx context.Context, params UpdateTaskParams) (*models.Task, error)

	// ChangeTaskStatus moves the task to the given status, setting the
	// completion timestamp on entering completed and clearing it on
	// leaving, and records a status_changed entry with old and new
	// values.
	ChangeTaskStatus(ctx context.Context, params ChangeTaskStatusParams) (*models.Task, error)

	// DeleteTask records the deleted history entry and then removes the
	// task together with its assignments. The recorded history outlives
	// the task.
	DeleteTask(ctx context.Context, taskID, actorID string) error

	GetTask(ctx context.Context, taskID string) (*models.Task, error)
	GetTasks(ctx context.Context, filter TaskFilter) ([]*models.Task, int, error)
	GetUrgentTasks(ctx context.Context) ([]*models.Task, error)
	GetTaskHistory(ctx context.Context, taskID string) ([]*models.HistoryEntry, error)

	// AddAssignees assigns each user to the task and returns how many
	// rows were actually inserted. Assignee changes record no history
	// entry.
	AddAssignees(ctx context.Context, taskID string, userIDs []string, actorID string) (int, error)

	RemoveAssignee(ctx context.Context, taskID, userID string) error
	GetTaskAssignees(ctx context.Context, taskID string) ([]*models.Assignee, error)

	// GetTasksDueToday returns the caller's tasks whose deadline is the
	// current date and that are not yet completed.
	GetTasksDueToday(ctx context.Context, userID string) ([]*models.Task, error)
}

type CreateTaskParams struct {
	Title       string
	Description *string
	Urgency     string
	Department  string
	ProjectID   *string
	AssigneeID  *string
	AssigneeIDs []string
	Deadline    time.Time
	CreatedBy   string
}

type UpdateTaskParams struct {
	TaskID      string
	ActorID     string
	Title       *string
	Description *string
	Urgency     *string
	Department  *string
	ProjectID   *string
	AssigneeID  *string
	Deadline    *time.Time
	Status      *string
}

type ChangeTaskStatusParams struct {
	TaskID  string
	ActorID string
	Status  string
}

// UpdateTaskFields is the validated partial field set handed to the
// task store. Nil pointers leave the column untouched.
type UpdateTaskFields struct {
	Title       *string
	Description *string
	Urgency     *models.Urgency
	Department  *string
	ProjectID   *string
	AssigneeID  *string
	Deadline    *time.Time
	Status      *models.Status
	// CompletedAt is written only when SetCompletedAt is true; a nil
	// value then clears the column.
	CompletedAt    *time.Time
	SetCompletedAt bool
}

func (f UpdateTaskFields) Empty() bool {
	return f.Title == nil && f.Description == nil && f.Urgency == nil &&
		f.Department == nil && f.ProjectID == nil && f.AssigneeID == nil &&
		f.Deadline == nil && f.Status == nil
}

type TaskFilter struct {
	Status      string
	Urgency     string
	Department  string
	ProjectID   string
	AssigneeID  string
	IsCompleted *bool
	Limit       int
	Offset      int
}

type RecordHistoryParams struct {
	TaskID       string
	UserID       string
	Action       string
	FieldChanged *string
	OldValue     *string
	NewValue     *string
}
