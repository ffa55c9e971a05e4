// Package repository defines persistence interfaces for sessions and their
// conversation entries.
package repository

import "context"

type SessionRepository interface {
	CreateSession(ctx context.Context, input CreateSessionInput) error
	CompleteSession(ctx context.Context, input CompleteSessionInput) error
	ListCompletedSessions(ctx context.Context) ([]Session, error)
}

type EntryRepository interface {
	InsertEntries(ctx context.Context, entries []InsertEntryInput) error
	ListEntriesBySessionID(ctx context.Context, sessionID string) ([]ConversationEntry, error)
}

type Repository interface {
	SessionRepository
	EntryRepository
}
