package app

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/planhub/go-tasks/internal/config"
)

var globalPostgresPool *pgxpool.Pool

func MustConnectPostgres() {
	cfg := config.Global().Postgres
	connURL := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.Username, cfg.Password, cfg.Host,
		cfg.Port, cfg.Database, cfg.SSLMode)

	poolCfg, err := pgxpool.ParseConfig(connURL)
	if err != nil {
		globalLogger.Error().
			Err(err).
			Msg("failed to parse postgres config")
		panic(err)
	}
	poolCfg.ConnConfig.ConnectTimeout = cfg.ConnectTimeout

	globalPostgresPool, err = pgxpool.NewWithConfig(context.Background(), poolCfg)
	if err != nil {
		globalLogger.Error().
			Err(err).
			Msg("failed to connect to postgres")
		panic(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.PingTimeout)
	defer cancel()

	err = globalPostgresPool.Ping(ctx)
	if err != nil {
		globalLogger.Error().
			Err(err).
			Msg("failed to ping postgres")
		panic(err)
	}
	globalLogger.Info().
		Str("host", cfg.Host).
		Int("port", cfg.Port).
		Msg("connected to postgres")
}

// Tables owned by the engine. The users, projects and project_members
// tables belong to the directory service and are expected to already
// exist in the shared database.
//
// task_history intentionally has no foreign key to tasks: history must
// survive task deletion.
const engineSchema = `
CREATE TABLE IF NOT EXISTS tasks (
	id           TEXT PRIMARY KEY,
	title        TEXT NOT NULL,
	description  TEXT,
	urgency      TEXT NOT NULL DEFAULT 'medium',
	status       TEXT NOT NULL DEFAULT 'pending',
	department   TEXT NOT NULL DEFAULT '',
	project_id   TEXT,
	assignee_id  TEXT,
	created_by   TEXT NOT NULL,
	deadline     DATE NOT NULL,
	completed_at TIMESTAMPTZ,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS task_assignees (
	id          TEXT PRIMARY KEY,
	task_id     TEXT NOT NULL REFERENCES tasks (id),
	user_id     TEXT NOT NULL,
	assigned_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	assigned_by TEXT NOT NULL DEFAULT 'system',
	UNIQUE (task_id, user_id)
);

CREATE TABLE IF NOT EXISTS task_history (
	id            TEXT PRIMARY KEY,
	task_id       TEXT NOT NULL,
	user_id       TEXT NOT NULL,
	action        TEXT NOT NULL,
	field_changed TEXT,
	old_value     TEXT,
	new_value     TEXT,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

func MustMigratePostgres() {
	_, err := globalPostgresPool.Exec(context.Background(), engineSchema)
	if err != nil {
		globalLogger.Error().
			Err(err).
			Msg("failed to create engine tables")
		panic(err)
	}
	globalLogger.Info().Msg("ensured engine tables")
}

func DisconnectPostgres() {
	globalPostgresPool.Close()
	globalLogger.Info().Msg("disconnected from postgres")
}
