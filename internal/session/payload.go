package session

import (
	"encoding/json"
	"time"

	"github.com/medtalklab/duoscribe/internal/recognizer"
	"github.com/medtalklab/duoscribe/internal/router"
	"github.com/medtalklab/duoscribe/internal/webhook"
)

func buildConversationPayload(sessionID string, langs recognizer.LanguagePair, startedAt, endedAt time.Time, stopReason, original, primary, secondary string, entries []router.Entry) webhook.ConversationPayload {
	durationSeconds := int(endedAt.Sub(startedAt).Seconds())
	if durationSeconds < 0 {
		durationSeconds = 0
	}

	entryPayloads := make([]webhook.EntryPayload, 0, len(entries))
	for i, e := range entries {
		entryPayloads = append(entryPayloads, webhook.EntryPayload{
			Index:             i,
			Timestamp:         e.Timestamp,
			Speaker:           e.Speaker,
			Text:              e.Text,
			Language:          e.Language,
			TranslationStatus: string(e.Status),
		})
	}

	return webhook.ConversationPayload{
		SchemaVersion:     webhook.SchemaVersion,
		SessionID:         sessionID,
		PrimaryLanguage:   langs.Primary,
		SecondaryLanguage: langs.Secondary,
		StartAt:           startedAt.UTC().Format(time.RFC3339),
		EndAt:             endedAt.UTC().Format(time.RFC3339),
		DurationSeconds:   durationSeconds,
		StopReason:        stopReason,
		EntryCount:        len(entries),
		OriginalText:      original,
		PrimaryText:       primary,
		SecondaryText:     secondary,
		Entries:           entryPayloads,
	}
}

func encodePayload(payload webhook.ConversationPayload) ([]byte, error) {
	return json.Marshal(payload)
}
