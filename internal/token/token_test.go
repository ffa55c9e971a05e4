package token

import (
	"testing"
	"time"
)

var arrival = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func TestNormalize_DropsEmptyText(t *testing.T) {
	cases := []string{"", "   ", "\t\n", "\x00\x07"}
	for _, text := range cases {
		if _, ok := Normalize(Token{Text: text, IsFinal: true}, arrival); ok {
			t.Errorf("expected token with text %q to be dropped", text)
		}
	}
}

func TestNormalize_StripsControlCharactersKeepsWhitespace(t *testing.T) {
	got, ok := Normalize(Token{Text: " hel\x00lo\x07"}, arrival)
	if !ok {
		t.Fatal("expected token to survive normalization")
	}
	if got.Text != " hello" {
		t.Fatalf("unexpected text: %q", got.Text)
	}
}

func TestNormalize_Defaults(t *testing.T) {
	got, ok := Normalize(Token{Text: "hello"}, arrival)
	if !ok {
		t.Fatal("expected token to survive normalization")
	}
	if got.Status != StatusNone {
		t.Fatalf("unexpected status: %q", got.Status)
	}
	if got.Language != LanguageUnknown {
		t.Fatalf("unexpected language: %q", got.Language)
	}
	if got.Timestamp != arrival.Format(time.RFC3339Nano) {
		t.Fatalf("unexpected timestamp: %q", got.Timestamp)
	}
}

func TestNormalize_KeepsProvidedFields(t *testing.T) {
	in := Token{Text: "hola", Language: "es", Status: StatusTranslation, Timestamp: "2026-03-14T09:00:00Z"}
	got, ok := Normalize(in, arrival)
	if !ok {
		t.Fatal("expected token to survive normalization")
	}
	if got != in {
		t.Fatalf("normalization changed an already complete token: %+v", got)
	}
}

func TestHasSpeakerHint(t *testing.T) {
	cases := []struct {
		hint string
		want bool
	}{
		{"", false},
		{"unknown", false},
		{"Unknown", false},
		{"spk:1", true},
		{"2", true},
	}
	for _, tc := range cases {
		if got := (Token{SpeakerHint: tc.hint}).HasSpeakerHint(); got != tc.want {
			t.Errorf("HasSpeakerHint(%q) = %v, want %v", tc.hint, got, tc.want)
		}
	}
}

func TestHasKnownLanguage(t *testing.T) {
	if (Token{Language: "unknown"}).HasKnownLanguage() {
		t.Fatal("expected unknown language to be unusable")
	}
	if !(Token{Language: "te"}).HasKnownLanguage() {
		t.Fatal("expected language tag to be usable")
	}
}
