package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/planhub/go-tasks/internal/models"
)

type assigneeServiceImpl struct {
	logger    zerolog.Logger
	pgPool    *pgxpool.Pool
	directory DirectoryService
}

func NewAssigneeService(
	logger zerolog.Logger,
	pgPool *pgxpool.Pool,
	directory DirectoryService,
) AssigneeService {
	return &assigneeServiceImpl{
		logger:    logger,
		pgPool:    pgPool,
		directory: directory,
	}
}

func (s *assigneeServiceImpl) Assign(ctx context.Context, taskID, userID, assignedBy string) (bool, error) {
	const insertAssigneeQuery = `
INSERT INTO task_assignees (id,
                            task_id,
                            user_id,
                            assigned_at,
                            assigned_by)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (task_id, user_id) DO NOTHING
`
	tag, err := s.pgPool.Exec(
		ctx,
		insertAssigneeQuery,
		uuid.NewString(),
		taskID,
		userID,
		time.Now(),
		assignedBy,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
			return false, ErrTaskNotFound
		}

		s.logger.Error().
			Err(err).
			Str("task_id", taskID).
			Str("user_id", userID).
			Msg("failed to insert task assignee")
		return false, err
	}

	inserted := tag.RowsAffected() > 0
	if inserted {
		s.logger.Info().
			Str("task_id", taskID).
			Str("user_id", userID).
			Str("assigned_by", assignedBy).
			Msg("assigned user to task")
	}
	return inserted, nil
}

func (s *assigneeServiceImpl) Unassign(ctx context.Context, taskID, userID string) error {
	const deleteAssigneeQuery = `
DELETE FROM task_assignees
WHERE task_id = $1 AND user_id = $2
`
	tag, err := s.pgPool.Exec(ctx, deleteAssigneeQuery, taskID, userID)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("task_id", taskID).
			Str("user_id", userID).
			Msg("failed to delete task assignee")
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAssignmentNotFound
	}
	s.logger.Info().
		Str("task_id", taskID).
		Str("user_id", userID).
		Msg("unassigned user from task")
	return nil
}

func (s *assigneeServiceImpl) GetTaskAssignees(ctx context.Context, taskID string) ([]*models.Assignee, error) {
	const selectAssigneesQuery = `
SELECT ta.user_id,
       u.first_name,
       u.last_name,
       ta.assigned_at,
       ta.assigned_by
FROM task_assignees ta
JOIN users u ON ta.user_id = u.id
WHERE ta.task_id = $1
ORDER BY ta.assigned_at ASC
`
	rows, err := s.pgPool.Query(ctx, selectAssigneesQuery, taskID)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("task_id", taskID).
			Msg("failed to select task assignees")
		return nil, err
	}
	defer rows.Close()

	assignees := make([]*models.Assignee, 0)
	for rows.Next() {
		assignee := new(models.Assignee)
		err = rows.Scan(
			&assignee.UserID,
			&assignee.FirstName,
			&assignee.LastName,
			&assignee.AssignedAt,
			&assignee.AssignedBy,
		)
		if err != nil {
			s.logger.Error().
				Err(err).
				Msg("failed to scan task assignee")
			return nil, err
		}
		assignees = append(assignees, assignee)
	}

	err = rows.Err()
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to iterate over rows")
		return nil, err
	}
	return assignees, nil
}

func (s *assigneeServiceImpl) GetTaskIDsForUser(ctx context.Context, userID string) ([]string, error) {
	const selectTaskIDsQuery = `
SELECT task_id
FROM task_assignees
WHERE user_id = $1
ORDER BY assigned_at ASC
`
	rows, err := s.pgPool.Query(ctx, selectTaskIDsQuery, userID)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("user_id", userID).
			Msg("failed to select task ids for user")
		return nil, err
	}
	defer rows.Close()

	taskIDs := make([]string, 0)
	for rows.Next() {
		var taskID string
		if err = rows.Scan(&taskID); err != nil {
			s.logger.Error().
				Err(err).
				Msg("failed to scan task id")
			return nil, err
		}
		taskIDs = append(taskIDs, taskID)
	}

	err = rows.Err()
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to iterate over rows")
		return nil, err
	}
	return taskIDs, nil
}

func (s *assigneeServiceImpl) CascadeFromProject(ctx context.Context, taskID, projectID string) ([]string, error) {
	memberIDs, err := s.directory.MembersOf(ctx, projectID)
	if err != nil {
		return nil, err
	}

	for _, memberID := range memberIDs {
		if _, err = s.Assign(ctx, taskID, memberID, models.SystemActor); err != nil {
			return nil, err
		}
	}
	s.logger.Info().
		Str("task_id", taskID).
		Str("project_id", projectID).
		Int("count", len(memberIDs)).
		Msg("cascaded assignees from project")
	return memberIDs, nil
}
