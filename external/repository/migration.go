package repository

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

var migrationStatements = []string{
	`CREATE TABLE IF NOT EXISTS bot_sessions (
		id TEXT PRIMARY KEY,
		call_id TEXT,
		user_id TEXT NOT NULL,
		meeting_url TEXT NOT NULL,
		bot_display_name TEXT NOT NULL,
		meeting_id TEXT,
		status TEXT NOT NULL,
		participants JSONB NOT NULL DEFAULT '[]'::jsonb,
		transcript_entries JSONB NOT NULL DEFAULT '[]'::jsonb,
		started_at TIMESTAMPTZ,
		ended_at TIMESTAMPTZ,
		error_message TEXT,
		last_activity_at TIMESTAMPTZ NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_bot_sessions_call_id ON bot_sessions (call_id) WHERE call_id IS NOT NULL`,
	`CREATE INDEX IF NOT EXISTS idx_bot_sessions_user_created ON bot_sessions (user_id, created_at DESC)`,
}

var sqliteMigrationStatements = []string{
	`CREATE TABLE IF NOT EXISTS bot_sessions (
		id TEXT PRIMARY KEY,
		call_id TEXT,
		user_id TEXT NOT NULL,
		meeting_url TEXT NOT NULL,
		bot_display_name TEXT NOT NULL,
		meeting_id TEXT,
		status TEXT NOT NULL,
		participants TEXT NOT NULL DEFAULT '[]',
		transcript_entries TEXT NOT NULL DEFAULT '[]',
		started_at TEXT,
		ended_at TEXT,
		error_message TEXT,
		last_activity_at TEXT NOT NULL,
		created_at TEXT NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_bot_sessions_call_id ON bot_sessions (call_id) WHERE call_id IS NOT NULL`,
	`CREATE INDEX IF NOT EXISTS idx_bot_sessions_user_created ON bot_sessions (user_id, created_at DESC)`,
}

func RunMigration(ctx context.Context, pool *pgxpool.Pool) error {
	for _, s := range migrationStatements {
		stmt := strings.TrimSpace(s)
		if stmt == "" {
			continue
		}
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
