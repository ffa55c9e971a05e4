package session

import (
	"testing"
	"time"

	"github.com/medtalklab/duoscribe/internal/recognizer"
	"github.com/medtalklab/duoscribe/internal/router"
	"github.com/medtalklab/duoscribe/internal/token"
	"github.com/medtalklab/duoscribe/internal/webhook"
)

func TestBuildConversationPayload(t *testing.T) {
	startedAt := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	endedAt := startedAt.Add(90 * time.Second)
	entries := []router.Entry{
		{Timestamp: "2026-03-14T09:00:01Z", Speaker: "Doctor", Text: "Hello.", Language: "en", Status: token.StatusOriginal},
		{Timestamp: "2026-03-14T09:00:05Z", Speaker: "Patient", Text: "నమస్కారం.", Language: "te", Status: token.StatusOriginal},
	}

	payload := buildConversationPayload("session-1", recognizer.LanguagePair{Primary: "en", Secondary: "te"},
		startedAt, endedAt, StopReasonClientClosed, "orig", "prim", "sec", entries)

	if payload.SchemaVersion != webhook.SchemaVersion {
		t.Fatalf("unexpected schema version: %d", payload.SchemaVersion)
	}
	if payload.SessionID != "session-1" || payload.StopReason != StopReasonClientClosed {
		t.Fatalf("unexpected payload identity: %+v", payload)
	}
	if payload.DurationSeconds != 90 {
		t.Fatalf("unexpected duration: %d", payload.DurationSeconds)
	}
	if payload.EntryCount != 2 || len(payload.Entries) != 2 {
		t.Fatalf("unexpected entry count: %+v", payload)
	}
	if payload.Entries[1].Index != 1 || payload.Entries[1].Speaker != "Patient" {
		t.Fatalf("unexpected entry mapping: %+v", payload.Entries[1])
	}
	if payload.OriginalText != "orig" || payload.PrimaryText != "prim" || payload.SecondaryText != "sec" {
		t.Fatalf("unexpected view texts: %+v", payload)
	}
}

func TestBuildConversationPayload_ClampsNegativeDuration(t *testing.T) {
	startedAt := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	payload := buildConversationPayload("session-1", recognizer.LanguagePair{Primary: "en", Secondary: "en"},
		startedAt, startedAt.Add(-time.Minute), StopReasonServerClosed, "", "", "", nil)
	if payload.DurationSeconds != 0 {
		t.Fatalf("expected clamped duration, got %d", payload.DurationSeconds)
	}
}
