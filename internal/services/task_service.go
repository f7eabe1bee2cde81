package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/planhub/go-tasks/internal/models"
)

const defaultTaskPageLimit = 50

type taskServiceImpl struct {
	logger zerolog.Logger
	pgPool *pgxpool.Pool
}

func NewTaskService(
	logger zerolog.Logger,
	pgPool *pgxpool.Pool,
) TaskService {
	return &taskServiceImpl{
		logger: logger,
		pgPool: pgPool,
	}
}

// taskColumns is the shared select list; every read joins projects so
// scanning stays uniform.
const taskColumns = `t.id,
       t.title,
       t.description,
       t.urgency,
       t.status,
       t.department,
       t.project_id,
       p.name AS project_name,
       t.assignee_id,
       t.created_by,
       t.deadline,
       t.completed_at,
       t.created_at,
       t.updated_at`

func (s *taskServiceImpl) CreateTask(ctx context.Context, task *models.Task) (*models.Task, error) {
	if strings.TrimSpace(task.Title) == "" {
		return nil, ErrEmptyTaskTitle
	}
	if task.Deadline.IsZero() {
		return nil, ErrMissingDeadline
	}

	now := time.Now()
	task.ID = uuid.NewString()
	task.Status = models.StatusPending
	task.CompletedAt = nil
	task.CreatedAt = now
	task.UpdatedAt = now
	if task.Urgency == "" {
		task.Urgency = models.UrgencyMedium
	}

	const insertTaskQuery = `
INSERT INTO tasks (id,
                   title,
                   description,
                   urgency,
                   status,
                   department,
                   project_id,
                   assignee_id,
                   created_by,
                   deadline,
                   created_at,
                   updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
`
	_, err := s.pgPool.Exec(
		ctx,
		insertTaskQuery,
		task.ID,
		task.Title,
		task.Description,
		task.Urgency,
		task.Status,
		task.Department,
		task.ProjectID,
		task.AssigneeID,
		task.CreatedBy,
		task.Deadline,
		task.CreatedAt,
		task.UpdatedAt,
	)
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to insert task")
		return nil, err
	}
	s.logger.Info().
		Str("task_id", task.ID).
		Msg("created task")
	return task, nil
}

func (s *taskServiceImpl) GetTaskByID(ctx context.Context, taskID string) (*models.Task, error) {
	query := `
SELECT ` + taskColumns + `
FROM tasks t
LEFT JOIN projects p ON t.project_id = p.id
WHERE t.id = $1
`
	task, err := scanTask(s.pgPool.QueryRow(ctx, query, taskID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTaskNotFound
		}

		s.logger.Error().
			Err(err).
			Str("task_id", taskID).
			Msg("failed to select task")
		return nil, err
	}
	return task, nil
}

func (s *taskServiceImpl) UpdateTask(ctx context.Context, taskID string, fields UpdateTaskFields) (*models.Task, error) {
	set := make([]string, 0, 10)
	args := make([]any, 0, 11)
	add := func(column string, value any) {
		args = append(args, value)
		set = append(set, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if fields.Title != nil {
		add("title", *fields.Title)
	}
	if fields.Description != nil {
		add("description", *fields.Description)
	}
	if fields.Urgency != nil {
		add("urgency", *fields.Urgency)
	}
	if fields.Department != nil {
		add("department", *fields.Department)
	}
	if fields.ProjectID != nil {
		add("project_id", *fields.ProjectID)
	}
	if fields.AssigneeID != nil {
		add("assignee_id", *fields.AssigneeID)
	}
	if fields.Deadline != nil {
		add("deadline", *fields.Deadline)
	}
	if fields.Status != nil {
		add("status", *fields.Status)
	}
	if fields.SetCompletedAt {
		add("completed_at", fields.CompletedAt)
	}
	if len(set) == 0 {
		return nil, ErrNoFieldsToUpdate
	}
	add("updated_at", time.Now())

	args = append(args, taskID)
	query := fmt.Sprintf("UPDATE tasks SET %s WHERE id = $%d",
		strings.Join(set, ", "), len(args))

	tag, err := s.pgPool.Exec(ctx, query, args...)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("task_id", taskID).
			Msg("failed to update task")
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrTaskNotFound
	}
	s.logger.Info().
		Str("task_id", taskID).
		Int("fields", len(set)).
		Msg("updated task")

	return s.GetTaskByID(ctx, taskID)
}

func (s *taskServiceImpl) SetTaskStatus(ctx context.Context, taskID string, status models.Status, completedAt *time.Time) error {
	const setStatusQuery = `
UPDATE tasks
SET status = $1,
    completed_at = $2,
    updated_at = $3
WHERE id = $4
`
	tag, err := s.pgPool.Exec(ctx, setStatusQuery, status, completedAt, time.Now(), taskID)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("task_id", taskID).
			Msg("failed to set task status")
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrTaskNotFound
	}
	s.logger.Info().
		Str("task_id", taskID).
		Str("status", string(status)).
		Msg("set task status")
	return nil
}

func (s *taskServiceImpl) DeleteTask(ctx context.Context, taskID string) error {
	// Assignments don't outlive the task. The two deletes run as
	// sequential statements, matching the rest of the engine.
	const deleteAssigneesQuery = `
DELETE FROM task_assignees
WHERE task_id = $1
`
	if _, err := s.pgPool.Exec(ctx, deleteAssigneesQuery, taskID); err != nil {
		s.logger.Error().
			Err(err).
			Str("task_id", taskID).
			Msg("failed to delete task assignees")
		return err
	}

	const deleteTaskQuery = `
DELETE FROM tasks
WHERE id = $1
`
	tag, err := s.pgPool.Exec(ctx, deleteTaskQuery, taskID)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("task_id", taskID).
			Msg("failed to delete task")
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrTaskNotFound
	}
	s.logger.Info().
		Str("task_id", taskID).
		Msg("deleted task")
	return nil
}

func (s *taskServiceImpl) GetTasks(ctx context.Context, filter TaskFilter) ([]*models.Task, int, error) {
	where := make([]string, 0, 6)
	args := make([]any, 0, 8)
	match := func(column, value string) {
		args = append(args, value)
		where = append(where, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if filter.Status != "" {
		match("t.status", filter.Status)
	}
	if filter.Urgency != "" {
		match("t.urgency", filter.Urgency)
	}
	if filter.Department != "" {
		match("t.department", filter.Department)
	}
	if filter.ProjectID != "" {
		match("t.project_id", filter.ProjectID)
	}
	if filter.AssigneeID != "" {
		match("t.assignee_id", filter.AssigneeID)
	}
	if filter.IsCompleted != nil {
		if *filter.IsCompleted {
			where = append(where, "t.status = 'completed'")
		} else {
			where = append(where, "t.status <> 'completed'")
		}
	}

	whereClause := ""
	if len(where) > 0 {
		whereClause = "WHERE " + strings.Join(where, " AND ")
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM tasks t %s", whereClause)
	var total int
	err := s.pgPool.QueryRow(ctx, countQuery, args...).Scan(&total)
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to count tasks")
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultTaskPageLimit
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	args = append(args, limit, offset)
	query := fmt.Sprintf(`
SELECT %s
FROM tasks t
LEFT JOIN projects p ON t.project_id = p.id
%s
ORDER BY t.deadline ASC
LIMIT $%d OFFSET $%d`,
		taskColumns, whereClause, len(args)-1, len(args))

	tasks, err := s.queryTasks(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	s.logger.Debug().
		Int("count", len(tasks)).
		Int("total", total).
		Msg("selected tasks")
	return tasks, total, nil
}

func (s *taskServiceImpl) GetUrgentTasks(ctx context.Context) ([]*models.Task, error) {
	query := `
SELECT ` + taskColumns + `
FROM tasks t
LEFT JOIN projects p ON t.project_id = p.id
WHERE t.urgency = 'urgent'
  AND t.status <> 'completed'
ORDER BY t.deadline ASC
`
	return s.queryTasks(ctx, query)
}

func (s *taskServiceImpl) GetTasksDueToday(ctx context.Context, userID string, day time.Time) ([]*models.Task, error) {
	// One query covers the three assignment paths; DISTINCT keeps a
	// task reachable through several of them from appearing twice.
	query := `
SELECT DISTINCT ` + taskColumns + `
FROM tasks t
LEFT JOIN projects p ON t.project_id = p.id
LEFT JOIN task_assignees ta ON ta.task_id = t.id
LEFT JOIN project_members pm ON pm.project_id = t.project_id
WHERE t.deadline = $1
  AND t.status <> 'completed'
  AND (t.assignee_id = $2 OR ta.user_id = $2 OR pm.user_id = $2)
ORDER BY t.id
`
	tasks, err := s.queryTasks(ctx, query, day, userID)
	if err != nil {
		return nil, err
	}
	s.logger.Debug().
		Int("count", len(tasks)).
		Str("user_id", userID).
		Msg("selected tasks due today")
	return tasks, nil
}

func (s *taskServiceImpl) queryTasks(ctx context.Context, query string, args ...any) ([]*models.Task, error) {
	rows, err := s.pgPool.Query(ctx, query, args...)
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to select tasks")
		return nil, err
	}
	defer rows.Close()

	tasks := make([]*models.Task, 0)
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			s.logger.Error().
				Err(err).
				Msg("failed to scan task")
			return nil, err
		}
		tasks = append(tasks, task)
	}

	err = rows.Err()
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to iterate over rows")
		return nil, err
	}
	return tasks, nil
}

func scanTask(row pgx.Row) (*models.Task, error) {
	task := new(models.Task)
	err := row.Scan(
		&task.ID,
		&task.Title,
		&task.Description,
		&task.Urgency,
		&task.Status,
		&task.Department,
		&task.ProjectID,
		&task.ProjectName,
		&task.AssigneeID,
		&task.CreatedBy,
		&task.Deadline,
		&task.CompletedAt,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return task, nil
}
