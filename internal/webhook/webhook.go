// Package webhook defines the outbound conversation notification contract.
package webhook

import "context"

// SchemaVersion is the payload schema version sent to webhook consumers.
const SchemaVersion = 1

type EntryPayload struct {
	Index             int    `json:"index"`
	Timestamp         string `json:"timestamp"`
	Speaker           string `json:"speaker"`
	Text              string `json:"text"`
	Language          string `json:"language"`
	TranslationStatus string `json:"translation_status"`
}

type ConversationPayload struct {
	SchemaVersion     int    `json:"schema_version"`
	SessionID         string `json:"session_id"`
	PrimaryLanguage   string `json:"primary_language"`
	SecondaryLanguage string `json:"secondary_language"`
	StartAt           string `json:"start_at"`
	EndAt             string `json:"end_at"`
	DurationSeconds   int    `json:"duration_seconds"`
	StopReason        string `json:"stop_reason"`
	EntryCount        int    `json:"entry_count"`

	OriginalText  string `json:"original_text"`
	PrimaryText   string `json:"primary_text"`
	SecondaryText string `json:"secondary_text"`

	Entries []EntryPayload `json:"entries"`
}

// Sender delivers a completed conversation to an external consumer.
type Sender interface {
	SendConversation(ctx context.Context, payload ConversationPayload) error
}
