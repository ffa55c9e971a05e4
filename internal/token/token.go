package token

import (
	"strings"
	"time"
	"unicode"
)

// TranslationStatus mirrors the upstream recognizer's labeling of a token:
// spoken text, machine translation of spoken text, or unlabeled.
type TranslationStatus string

const (
	StatusOriginal    TranslationStatus = "original"
	StatusTranslation TranslationStatus = "translation"
	StatusNone        TranslationStatus = "none"
)

const (
	// SpeakerUnknown is the sentinel some recognizers emit when diarization
	// has no confident assignment. Treated the same as an absent hint.
	SpeakerUnknown = "unknown"

	// LanguageUnknown marks tokens without a language tag.
	LanguageUnknown = "unknown"
)

// Token is one unit of recognized speech text with its routing metadata.
// Tokens arrive in strict temporal order from the recognizer stream and are
// immutable once received.
type Token struct {
	Text        string
	SpeakerHint string
	Language    string
	Status      TranslationStatus
	IsFinal     bool
	Timestamp   string
}

// IsTranslation reports whether the token was produced by the recognizer's
// translation pass rather than spoken directly.
func (t Token) IsTranslation() bool {
	return t.Status == StatusTranslation
}

// HasSpeakerHint reports whether the token carries a usable diarization hint.
func (t Token) HasSpeakerHint() bool {
	return t.SpeakerHint != "" && !strings.EqualFold(t.SpeakerHint, SpeakerUnknown)
}

// HasKnownLanguage reports whether the token carries a usable language tag.
func (t Token) HasKnownLanguage() bool {
	return t.Language != "" && !strings.EqualFold(t.Language, LanguageUnknown)
}

// Normalize cleans up a raw token before routing. Non-whitespace control
// characters are stripped, missing fields get their defaults and the
// timestamp falls back to the arrival time. The second return value is false
// when the token reduces to nothing and must be dropped.
func Normalize(t Token, arrivedAt time.Time) (Token, bool) {
	t.Text = stripControl(t.Text)
	if strings.TrimSpace(t.Text) == "" {
		return Token{}, false
	}
	if t.Status == "" {
		t.Status = StatusNone
	}
	if t.Language == "" {
		t.Language = LanguageUnknown
	}
	if t.Timestamp == "" {
		t.Timestamp = arrivedAt.Format(time.RFC3339Nano)
	}
	return t, true
}

func stripControl(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && !unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}
