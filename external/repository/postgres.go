package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medtalklab/duoscribe/internal/repository"
)

type PostgresRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRepository(pool *pgxpool.Pool) repository.Repository {
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) CreateSession(ctx context.Context, input repository.CreateSessionInput) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO sessions (id, primary_language, secondary_language, started_at, status)
		 VALUES ($1, $2, $3, $4, 'running')`,
		input.ID, input.PrimaryLanguage, input.SecondaryLanguage, input.StartedAt)
	return err
}

func (r *PostgresRepository) CompleteSession(ctx context.Context, input repository.CompleteSessionInput) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE sessions SET
			status = 'completed',
			ended_at = $2,
			stop_reason = $3,
			entry_count = $4,
			original_text = $5,
			primary_text = $6,
			secondary_text = $7,
			webhook_payload = $8,
			updated_at = NOW()
		 WHERE id = $1`,
		input.SessionID, input.EndedAt, input.StopReason, input.EntryCount,
		input.OriginalText, input.PrimaryText, input.SecondaryText, input.WebhookPayloadJSON)
	return err
}

func (r *PostgresRepository) ListCompletedSessions(ctx context.Context) ([]repository.Session, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, primary_language, secondary_language, started_at, ended_at, status, stop_reason, entry_count, created_at, updated_at
		 FROM sessions WHERE status = 'completed' ORDER BY started_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []repository.Session
	for rows.Next() {
		var s repository.Session
		var endedAt *time.Time
		var stopReason *string
		if err := rows.Scan(&s.ID, &s.PrimaryLanguage, &s.SecondaryLanguage, &s.StartedAt, &endedAt, &s.Status, &stopReason, &s.EntryCount, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		s.EndedAt = endedAt
		if stopReason != nil {
			s.StopReason = *stopReason
		}
		list = append(list, s)
	}
	return list, rows.Err()
}

func (r *PostgresRepository) InsertEntries(ctx context.Context, entries []repository.InsertEntryInput) error {
	if len(entries) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, e := range entries {
		batch.Queue(
			`INSERT INTO conversation_entries (session_id, entry_index, speaker, content, language, translation_status, spoken_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			e.SessionID, e.EntryIndex, e.Speaker, e.Text, e.Language, e.TranslationStatus, e.SpokenAt)
	}
	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()
	for range entries {
		if _, err := results.Exec(); err != nil {
			return err
		}
	}
	return nil
}

func (r *PostgresRepository) ListEntriesBySessionID(ctx context.Context, sessionID string) ([]repository.ConversationEntry, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, session_id, entry_index, speaker, content, language, translation_status, spoken_at, created_at
		 FROM conversation_entries WHERE session_id = $1 ORDER BY entry_index ASC`,
		sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []repository.ConversationEntry
	for rows.Next() {
		var e repository.ConversationEntry
		if err := rows.Scan(&e.ID, &e.SessionID, &e.EntryIndex, &e.Speaker, &e.Text, &e.Language, &e.TranslationStatus, &e.SpokenAt, &e.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, e)
	}
	return list, rows.Err()
}
