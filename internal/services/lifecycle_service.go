package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/planhub/go-tasks/internal/models"
)

// lifecycleServiceImpl orchestrates the task, assignee, history and
// directory services. Composite operations run their statements
// sequentially: the first error aborts the remaining steps and already
// applied mutations stay in place. In particular a failed history write
// after a successful mutation surfaces the storage error to the caller
// while the mutation itself persists; reconciling that window is left
// to an out-of-band repair pass.
type lifecycleServiceImpl struct {
	logger    zerolog.Logger
	tasks     TaskService
	assignees AssigneeService
	history   HistoryService
	directory DirectoryService
	// enforceGraph turns on strict lifecycle transition checking.
	// Off by default: any valid status may be written directly.
	enforceGraph bool
}

func NewLifecycleService(
	logger zerolog.Logger,
	tasks TaskService,
	assignees AssigneeService,
	history HistoryService,
	directory DirectoryService,
	enforceGraph bool,
) LifecycleService {
	return &lifecycleServiceImpl{
		logger:       logger,
		tasks:        tasks,
		assignees:    assignees,
		history:      history,
		directory:    directory,
		enforceGraph: enforceGraph,
	}
}

func (s *lifecycleServiceImpl) CreateTask(ctx context.Context, params CreateTaskParams) (*models.Task, []string, error) {
	if strings.TrimSpace(params.Title) == "" {
		return nil, nil, ErrEmptyTaskTitle
	}
	if params.Deadline.IsZero() {
		return nil, nil, ErrMissingDeadline
	}

	urgency := models.UrgencyMedium
	if params.Urgency != "" {
		var err error
		urgency, err = models.ParseUrgency(params.Urgency)
		if err != nil {
			return nil, nil, ErrInvalidTaskUrgency
		}
	}

	if params.AssigneeID != nil {
		if err := s.requireUser(ctx, *params.AssigneeID); err != nil {
			return nil, nil, err
		}
	}
	for _, userID := range params.AssigneeIDs {
		if err := s.requireUser(ctx, userID); err != nil {
			return nil, nil, err
		}
	}

	task, err := s.tasks.CreateTask(ctx, &models.Task{
		Title:       params.Title,
		Description: params.Description,
		Urgency:     urgency,
		Department:  params.Department,
		ProjectID:   params.ProjectID,
		AssigneeID:  params.AssigneeID,
		CreatedBy:   params.CreatedBy,
		Deadline:    params.Deadline,
	})
	if err != nil {
		return nil, nil, err
	}

	err = s.history.Record(ctx, RecordHistoryParams{
		TaskID: task.ID,
		UserID: params.CreatedBy,
		Action: models.ActionCreated,
	})
	if err != nil {
		return nil, nil, err
	}

	var assigneeIDs []string
	switch {
	case len(params.AssigneeIDs) > 0:
		for _, userID := range params.AssigneeIDs {
			if _, err = s.assignees.Assign(ctx, task.ID, userID, params.CreatedBy); err != nil {
				return nil, nil, err
			}
		}
		assigneeIDs = params.AssigneeIDs
	case params.ProjectID != nil:
		assigneeIDs, err = s.assignees.CascadeFromProject(ctx, task.ID, *params.ProjectID)
		if err != nil {
			return nil, nil, err
		}
	}

	s.logger.Info().
		Str("task_id", task.ID).
		Str("created_by", params.CreatedBy).
		Int("assignees", len(assigneeIDs)).
		Msg("created task")
	return task, assigneeIDs, nil
}

func (s *lifecycleServiceImpl) UpdateTask(ctx context.Context, params UpdateTaskParams) (*models.Task, error) {
	fields := UpdateTaskFields{
		Title:       params.Title,
		Description: params.Description,
		Department:  params.Department,
		ProjectID:   params.ProjectID,
		AssigneeID:  params.AssigneeID,
		Deadline:    params.Deadline,
	}
	if params.Urgency != nil {
		urgency, err := models.ParseUrgency(*params.Urgency)
		if err != nil {
			return nil, ErrInvalidTaskUrgency
		}
		fields.Urgency = &urgency
	}

	// A status inside a general update goes through the same side
	// effect and audit shape as the dedicated status operation.
	var oldStatus models.Status
	if params.Status != nil {
		status, err := models.ParseStatus(*params.Status)
		if err != nil {
			return nil, ErrInvalidTaskStatus
		}

		current, err := s.tasks.GetTaskByID(ctx, params.TaskID)
		if err != nil {
			return nil, err
		}
		oldStatus = current.Status
		if s.enforceGraph && !oldStatus.CanTransitionTo(status) {
			return nil, fmt.Errorf("%w: %s -> %s", ErrStatusTransition, oldStatus, status)
		}

		fields.Status = &status
		fields.SetCompletedAt = true
		if status == models.StatusCompleted {
			now := time.Now()
			fields.CompletedAt = &now
		}
	}

	if fields.Empty() {
		return nil, ErrNoFieldsToUpdate
	}

	task, err := s.tasks.UpdateTask(ctx, params.TaskID, fields)
	if err != nil {
		return nil, err
	}

	record := RecordHistoryParams{
		TaskID: params.TaskID,
		UserID: params.ActorID,
		Action: models.ActionUpdated,
	}
	if fields.Status != nil {
		field := "status"
		oldValue := string(oldStatus)
		newValue := string(*fields.Status)
		record.Action = models.ActionStatusChanged
		record.FieldChanged = &field
		record.OldValue = &oldValue
		record.NewValue = &newValue
	}
	if err = s.history.Record(ctx, record); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("task_id", params.TaskID).
		Str("actor_id", params.ActorID).
		Msg("updated task")
	return task, nil
}

func (s *lifecycleServiceImpl) ChangeTaskStatus(ctx context.Context, params ChangeTaskStatusParams) (*models.Task, error) {
	status, err := models.ParseStatus(params.Status)
	if err != nil {
		return nil, ErrInvalidTaskStatus
	}

	current, err := s.tasks.GetTaskByID(ctx, params.TaskID)
	if err != nil {
		return nil, err
	}
	if s.enforceGraph && !current.Status.CanTransitionTo(status) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrStatusTransition, current.Status, status)
	}

	// Entering completed stamps the completion time; any other status
	// clears it.
	var completedAt *time.Time
	if status == models.StatusCompleted {
		now := time.Now()
		completedAt = &now
	}

	if err = s.tasks.SetTaskStatus(ctx, params.TaskID, status, completedAt); err != nil {
		return nil, err
	}

	field := "status"
	oldValue := string(current.Status)
	newValue := string(status)
	err = s.history.Record(ctx, RecordHistoryParams{
		TaskID:       params.TaskID,
		UserID:       params.ActorID,
		Action:       models.ActionStatusChanged,
		FieldChanged: &field,
		OldValue:     &oldValue,
		NewValue:     &newValue,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("task_id", params.TaskID).
		Str("old_status", oldValue).
		Str("new_status", newValue).
		Msg("changed task status")

	current.Status = status
	current.CompletedAt = completedAt
	current.UpdatedAt = time.Now()
	return current, nil
}

func (s *lifecycleServiceImpl) DeleteTask(ctx context.Context, taskID, actorID string) error {
	// Existence is checked first so a missing task doesn't leave a
	// stray deleted entry in the trail.
	if _, err := s.tasks.GetTaskByID(ctx, taskID); err != nil {
		return err
	}

	// The entry is recorded before the row disappears; it survives the
	// deletion and keeps referencing the task id.
	err := s.history.Record(ctx, RecordHistoryParams{
		TaskID: taskID,
		UserID: actorID,
		Action: models.ActionDeleted,
	})
	if err != nil {
		return err
	}

	if err = s.tasks.DeleteTask(ctx, taskID); err != nil {
		return err
	}

	s.logger.Info().
		Str("task_id", taskID).
		Str("actor_id", actorID).
		Msg("deleted task")
	return nil
}

func (s *lifecycleServiceImpl) GetTask(ctx context.Context, taskID string) (*models.Task, error) {
	return s.tasks.GetTaskByID(ctx, taskID)
}

func (s *lifecycleServiceImpl) GetTasks(ctx context.Context, filter TaskFilter) ([]*models.Task, int, error) {
	return s.tasks.GetTasks(ctx, filter)
}

func (s *lifecycleServiceImpl) GetUrgentTasks(ctx context.Context) ([]*models.Task, error) {
	return s.tasks.GetUrgentTasks(ctx)
}

func (s *lifecycleServiceImpl) GetTaskHistory(ctx context.Context, taskID string) ([]*models.HistoryEntry, error) {
	return s.history.GetTaskHistory(ctx, taskID)
}

// AddAssignees records no history entry, matching the rest of the
// system: assignee changes are the one mutation outside the trail.
func (s *lifecycleServiceImpl) AddAssignees(ctx context.Context, taskID string, userIDs []string, actorID string) (int, error) {
	added := 0
	for _, userID := range userIDs {
		inserted, err := s.assignees.Assign(ctx, taskID, userID, actorID)
		if err != nil {
			return added, err
		}
		if inserted {
			added++
		}
	}
	return added, nil
}

func (s *lifecycleServiceImpl) RemoveAssignee(ctx context.Context, taskID, userID string) error {
	return s.assignees.Unassign(ctx, taskID, userID)
}

func (s *lifecycleServiceImpl) GetTaskAssignees(ctx context.Context, taskID string) ([]*models.Assignee, error) {
	return s.assignees.GetTaskAssignees(ctx, taskID)
}

func (s *lifecycleServiceImpl) GetTasksDueToday(ctx context.Context, userID string) ([]*models.Task, error) {
	return s.tasks.GetTasksDueToday(ctx, userID, today())
}

func (s *lifecycleServiceImpl) requireUser(ctx context.Context, userID string) error {
	exists, err := s.directory.UserExists(ctx, userID)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: %s", ErrUserNotFound, userID)
	}
	return nil
}

func today() time.Time {
	year, month, day := time.Now().Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
