// Package recognizer defines the streaming speech recognition boundary.
package recognizer

import (
	"context"

	"github.com/medtalklab/duoscribe/internal/token"
)

// LanguagePair is the language configuration for a recognition stream.
type LanguagePair struct {
	Primary   string
	Secondary string
}

// SameLanguage reports whether both parties speak the same language and no
// translation should be requested from the backend.
func (p LanguagePair) SameLanguage() bool {
	return p.Primary == p.Secondary
}

// StreamWriter accepts raw PCM audio for an open recognition stream.
// Close signals end of audio and releases the stream.
type StreamWriter interface {
	Write(pcm []byte) error
	Close() error
}

// ResultReceiver receives recognition results asynchronously. Callbacks are
// invoked from the recognizer's read goroutine, one at a time.
type ResultReceiver interface {
	OnTokens(tokens []token.Token)
	OnError(err error)
}

// Recognizer opens streaming recognition sessions against a speech backend.
type Recognizer interface {
	StartStreaming(ctx context.Context, sessionID string, langs LanguagePair, receiver ResultReceiver) (StreamWriter, error)
}
