package router

import (
	"strings"

	"github.com/medtalklab/duoscribe/internal/token"
)

// Entry is one raw routed token, retained in full for export regardless of
// display truncation.
type Entry struct {
	Timestamp string                  `json:"timestamp"`
	Speaker   string                  `json:"speaker"`
	Text      string                  `json:"text"`
	Language  string                  `json:"language"`
	Status    token.TranslationStatus `json:"translation_status"`
}

// placeholder shown while a view has no content yet.
const waitingPlaceholder = "[Waiting for speech...]"

// box accumulates one display view: finalized lines plus one in-progress
// sentence bound to the current speaker. It moves between two states,
// idle (no pending text) and accumulating (pending text bound to one
// speaker); a flush on speaker change or sentence-terminal punctuation
// returns it to idle.
type box struct {
	tagged bool // prefix each line with "[Speaker]: "

	lines          strings.Builder // finalized display text, append-only
	pending        string
	pendingSpeaker string
	entries        []Entry
}

type appendResult struct {
	flushed       bool
	terminalFlush bool
}

func newBox(tagged bool) *box {
	return &box{tagged: tagged}
}

// appendFinal merges a finalized token into the pending sentence. A speaker
// change flushes the previous speaker's pending text first; sentence-terminal
// punctuation flushes the merged buffer immediately. The raw entry log
// records every call independent of flushing.
func (b *box) appendFinal(speaker string, entry Entry) appendResult {
	b.entries = append(b.entries, entry)

	var res appendResult
	if b.pending != "" && speaker != b.pendingSpeaker {
		b.flush()
		res.flushed = true
	}
	b.pendingSpeaker = speaker
	b.pending = Merge(b.pending, entry.Text)
	if endsSentence(b.pending) {
		b.flush()
		res.flushed = true
		res.terminalFlush = true
	}
	return res
}

// flush commits the pending sentence as a finalized line tagged with the
// speaker it is bound to.
func (b *box) flush() {
	if b.pending == "" {
		return
	}
	b.lines.WriteString(b.formatLine(b.pendingSpeaker, b.pending))
	b.lines.WriteByte('\n')
	b.pending = ""
}

func (b *box) formatLine(speaker, text string) string {
	if b.tagged {
		return "[" + speaker + "]: " + text
	}
	return text
}

// text renders the full untruncated display text, including the in-progress
// sentence.
func (b *box) text() string {
	if b.pending == "" {
		return b.lines.String()
	}
	return b.lines.String() + b.formatLine(b.pendingSpeaker, b.pending)
}

// snapshot returns the display text truncated to the trailing window runes,
// or a placeholder while the view is empty.
func (b *box) snapshot(window int) string {
	s := b.text()
	if s == "" {
		return waitingPlaceholder
	}
	runes := []rune(s)
	if len(runes) > window {
		return string(runes[len(runes)-window:])
	}
	return s
}

// exportEntries returns a copy of the raw entry log.
func (b *box) exportEntries() []Entry {
	out := make([]Entry, len(b.entries))
	copy(out, b.entries)
	return out
}
