package services

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// directoryServiceImpl reads the user and project membership tables
// owned by the external directory. It never writes them.
type directoryServiceImpl struct {
	logger zerolog.Logger
	pgPool *pgxpool.Pool
}

func NewDirectoryService(
	logger zerolog.Logger,
	pgPool *pgxpool.Pool,
) DirectoryService {
	return &directoryServiceImpl{
		logger: logger,
		pgPool: pgPool,
	}
}

func (s *directoryServiceImpl) UserExists(ctx context.Context, userID string) (bool, error) {
	const userExistsQuery = `
SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)
`
	var exists bool
	err := s.pgPool.QueryRow(ctx, userExistsQuery, userID).Scan(&exists)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("user_id", userID).
			Msg("failed to check user existence")
		return false, err
	}
	return exists, nil
}

func (s *directoryServiceImpl) MembersOf(ctx context.Context, projectID string) ([]string, error) {
	const selectMembersQuery = `
SELECT user_id
FROM project_members
WHERE project_id = $1
ORDER BY added_at ASC
`
	rows, err := s.pgPool.Query(ctx, selectMembersQuery, projectID)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("project_id", projectID).
			Msg("failed to select project members")
		return nil, err
	}
	defer rows.Close()

	memberIDs := make([]string, 0)
	for rows.Next() {
		var userID string
		if err = rows.Scan(&userID); err != nil {
			s.logger.Error().
				Err(err).
				Msg("failed to scan project member")
			return nil, err
		}
		memberIDs = append(memberIDs, userID)
	}

	err = rows.Err()
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to iterate over rows")
		return nil, err
	}
	return memberIDs, nil
}
