package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/planhub/go-tasks/internal/models"
)

type historyServiceImpl struct {
	logger zerolog.Logger
	pgPool *pgxpool.Pool
}

func NewHistoryService(
	logger zerolog.Logger,
	pgPool *pgxpool.Pool,
) HistoryService {
	return &historyServiceImpl{
		logger: logger,
		pgPool: pgPool,
	}
}

func (s *historyServiceImpl) Record(ctx context.Context, params RecordHistoryParams) error {
	const insertHistoryQuery = `
INSERT INTO task_history (id,
                          task_id,
                          user_id,
                          action,
                          field_changed,
                          old_value,
                          new_value,
                          created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
`
	_, err := s.pgPool.Exec(
		ctx,
		insertHistoryQuery,
		uuid.NewString(),
		params.TaskID,
		params.UserID,
		params.Action,
		params.FieldChanged,
		params.OldValue,
		params.NewValue,
		time.Now(),
	)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("task_id", params.TaskID).
			Str("action", params.Action).
			Msg("failed to insert history entry")
		return err
	}
	s.logger.Debug().
		Str("task_id", params.TaskID).
		Str("action", params.Action).
		Msg("recorded history entry")
	return nil
}

func (s *historyServiceImpl) GetTaskHistory(ctx context.Context, taskID string) ([]*models.HistoryEntry, error) {
	const selectHistoryQuery = `
SELECT id,
       task_id,
       user_id,
       action,
       field_changed,
       old_value,
       new_value,
       created_at
FROM task_history
WHERE task_id = $1
ORDER BY created_at DESC
`
	rows, err := s.pgPool.Query(ctx, selectHistoryQuery, taskID)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("task_id", taskID).
			Msg("failed to select task history")
		return nil, err
	}
	defer rows.Close()

	entries := make([]*models.HistoryEntry, 0)
	for rows.Next() {
		entry := new(models.HistoryEntry)
		err = rows.Scan(
			&entry.ID,
			&entry.TaskID,
			&entry.UserID,
			&entry.Action,
			&entry.FieldChanged,
			&entry.OldValue,
			&entry.NewValue,
			&entry.CreatedAt,
		)
		if err != nil {
			s.logger.Error().
				Err(err).
				Msg("failed to scan history entry")
			return nil, err
		}
		entries = append(entries, entry)
	}

	err = rows.Err()
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to iterate over rows")
		return nil, err
	}
	return entries, nil
}
