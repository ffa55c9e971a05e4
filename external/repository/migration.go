package repository

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

var migrationStatements = []string{
	`DO $$ BEGIN CREATE TYPE session_status AS ENUM ('running', 'completed'); EXCEPTION WHEN duplicate_object THEN NULL; END $$`,
	`CREATE TABLE IF NOT EXISTS sessions (
		id UUID PRIMARY KEY,
		primary_language TEXT NOT NULL,
		secondary_language TEXT NOT NULL,
		started_at TIMESTAMPTZ NOT NULL,
		ended_at TIMESTAMPTZ,
		status session_status NOT NULL DEFAULT 'running',
		stop_reason TEXT,
		entry_count INTEGER NOT NULL DEFAULT 0,
		original_text TEXT NOT NULL DEFAULT '',
		primary_text TEXT NOT NULL DEFAULT '',
		secondary_text TEXT NOT NULL DEFAULT '',
		webhook_payload JSONB,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_sessions_completed ON sessions (started_at DESC) WHERE status = 'completed'`,
	`CREATE TABLE IF NOT EXISTS conversation_entries (
		id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
		session_id UUID NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
		entry_index INTEGER NOT NULL,
		speaker TEXT NOT NULL,
		content TEXT NOT NULL,
		language TEXT NOT NULL,
		translation_status TEXT NOT NULL,
		spoken_at TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE(session_id, entry_index)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_conversation_entries_session ON conversation_entries (session_id, entry_index)`,
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
