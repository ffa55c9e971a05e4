package repository

import "time"

// Session statuses.
const (
	SessionStatusRunning   = "running"
	SessionStatusCompleted = "completed"
)

type Session struct {
	ID                string
	PrimaryLanguage   string
	SecondaryLanguage string
	StartedAt         time.Time
	EndedAt           *time.Time
	Status            string
	StopReason        string
	EntryCount        int
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

type ConversationEntry struct {
	ID                int64
	SessionID         string
	EntryIndex        int
	Speaker           string
	Text              string
	Language          string
	TranslationStatus string
	SpokenAt          string
	CreatedAt         time.Time
}

type CreateSessionInput struct {
	ID                string
	PrimaryLanguage   string
	SecondaryLanguage string
	StartedAt         time.Time
}

type CompleteSessionInput struct {
	SessionID  string
	EndedAt    time.Time
	StopReason string
	EntryCount int

	OriginalText  string
	PrimaryText   string
	SecondaryText string

	WebhookPayloadJSON []byte
}

type InsertEntryInput struct {
	SessionID         string
	EntryIndex        int
	Speaker           string
	Text              string
	Language          string
	TranslationStatus string
	SpokenAt          string
}
