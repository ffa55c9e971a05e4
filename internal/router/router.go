// Package router is the routing-and-buffering engine at the heart of
// duoscribe. It consumes an ordered stream of recognized tokens for a
// two-party conversation and incrementally builds three synchronized text
// views: the raw bilingual transcript tagged by speaker and one monolingual
// view per party.
package router

import (
	"errors"
	"fmt"
	"time"

	"github.com/medtalklab/duoscribe/internal/token"
)

// ErrEqualLanguages is returned by New when the caller requires translation
// mode but supplies the same language for both parties.
var ErrEqualLanguages = errors.New("party languages must differ in translation mode")

// DefaultDisplayWindow is the trailing-rune display budget per view snapshot.
const DefaultDisplayWindow = 2000

// Config is the per-session routing configuration. Equal party languages are
// valid and select same-language mode, where routing relies on diarization
// alone; RequireTranslation rejects that combination instead.
type Config struct {
	PrimaryLanguage    string
	SecondaryLanguage  string
	RequireTranslation bool

	// Role labels for the two parties. Defaults: Doctor and Patient.
	PrimaryRole   string
	SecondaryRole string

	// DisplayWindow is the trailing-rune budget for snapshots.
	DisplayWindow int

	// Now overrides the timestamp source, for tests.
	Now func() time.Time
}

// Snapshot is the truncated display state of the three views.
type Snapshot struct {
	Original  string `json:"original"`
	Primary   string `json:"primary"`
	Secondary string `json:"secondary"`
}

// Update is the per-token result handed to the transport layer. Speaker is
// empty when the token was dropped. Snapshot is set only for final tokens.
type Update struct {
	Speaker  string
	Final    bool
	Text     string
	Partials map[string]string
	Snapshot *Snapshot
}

// Conversation is the routing facade for one session. It owns all mutable
// routing state; each session gets its own instance and the surrounding
// transport serializes calls. The type is not safe for concurrent use.
type Conversation struct {
	cfg      Config
	resolver *speakerResolver

	original  *box
	primary   *box
	secondary *box

	// latest provisional text per speaker, never persisted.
	partials map[string]string
}

// New validates the configuration and creates a fresh Conversation.
func New(cfg Config) (*Conversation, error) {
	if cfg.PrimaryRole == "" {
		cfg.PrimaryRole = DefaultPrimaryRole
	}
	if cfg.SecondaryRole == "" {
		cfg.SecondaryRole = DefaultSecondaryRole
	}
	if cfg.DisplayWindow <= 0 {
		cfg.DisplayWindow = DefaultDisplayWindow
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.RequireTranslation && cfg.PrimaryLanguage == cfg.SecondaryLanguage {
		return nil, fmt.Errorf("configure %q/%q: %w", cfg.PrimaryLanguage, cfg.SecondaryLanguage, ErrEqualLanguages)
	}

	c := &Conversation{cfg: cfg}
	c.Reset()
	return c, nil
}

// SameLanguageMode reports whether both parties share one language and
// routing relies on diarization rather than language tags.
func (c *Conversation) SameLanguageMode() bool {
	return c.cfg.PrimaryLanguage == c.cfg.SecondaryLanguage
}

// Languages returns the configured party language pair.
func (c *Conversation) Languages() (primary, secondary string) {
	return c.cfg.PrimaryLanguage, c.cfg.SecondaryLanguage
}

// ProcessToken routes a single token. It never fails: tokens that reduce to
// empty text are dropped with a zero Update and all other anomalies degrade
// through the resolver tiers.
func (c *Conversation) ProcessToken(raw token.Token) Update {
	tok, ok := token.Normalize(raw, c.cfg.Now())
	if !ok {
		return Update{}
	}

	speaker := c.resolver.resolve(tok)
	if !tok.IsFinal {
		c.partials[speaker] = tok.Text
		return Update{Speaker: speaker, Text: tok.Text, Partials: c.partialsCopy()}
	}
	delete(c.partials, speaker)

	entry := Entry{
		Timestamp: tok.Timestamp,
		Speaker:   speaker,
		Text:      tok.Text,
		Language:  tok.Language,
		Status:    tok.Status,
	}
	res := c.distribute(speaker, tok, entry)
	if res.terminalFlush && c.SameLanguageMode() {
		c.resolver.alternate()
	}

	snap := c.Snapshot()
	return Update{
		Speaker:  speaker,
		Final:    true,
		Text:     tok.Text,
		Partials: c.partialsCopy(),
		Snapshot: &snap,
	}
}

// distribute forwards a finalized token to the views it belongs in. The
// Original view receives spoken (non-translation) tokens from both parties.
// In same-language mode the per-party views separate by speaker, so a token
// whose detected language disagrees with its speaker's view is treated as
// noise and dropped from that view. In translation mode the language tag
// picks the target view; a translation without a usable tag reaches both
// party views, since a translation is by construction rendered in the
// target party's language.
func (c *Conversation) distribute(speaker string, tok token.Token, entry Entry) appendResult {
	var res appendResult
	if !tok.IsTranslation() {
		res = c.original.appendFinal(speaker, entry)
	}

	if c.SameLanguageMode() {
		if tok.Language == c.cfg.PrimaryLanguage && speaker == c.cfg.PrimaryRole {
			c.primary.appendFinal(speaker, entry)
		}
		if tok.Language == c.cfg.SecondaryLanguage && speaker == c.cfg.SecondaryRole {
			c.secondary.appendFinal(speaker, entry)
		}
		return res
	}

	untagged := tok.IsTranslation() && !tok.HasKnownLanguage()
	if tok.Language == c.cfg.PrimaryLanguage || untagged {
		c.primary.appendFinal(speaker, entry)
	}
	if tok.Language == c.cfg.SecondaryLanguage || untagged {
		c.secondary.appendFinal(speaker, entry)
	}
	return res
}

// Snapshot returns the display state of the three views, each truncated to
// the trailing display window but always consistent with the untruncated
// entry logs.
func (c *Conversation) Snapshot() Snapshot {
	return Snapshot{
		Original:  c.original.snapshot(c.cfg.DisplayWindow),
		Primary:   c.primary.snapshot(c.cfg.DisplayWindow),
		Secondary: c.secondary.snapshot(c.cfg.DisplayWindow),
	}
}

// ViewTexts returns the full untruncated text of the three views for export.
func (c *Conversation) ViewTexts() (original, primary, secondary string) {
	return c.original.text(), c.primary.text(), c.secondary.text()
}

// ExportEntries returns the complete ordered entry log of the conversation
// (the Original view's log, which records every spoken token) for downstream
// persistence.
func (c *Conversation) ExportEntries() []Entry {
	return c.original.exportEntries()
}

// Reset clears all state back to session start. The Conversation is reusable
// between sessions without being reconstructed.
func (c *Conversation) Reset() {
	c.resolver = newSpeakerResolver(c.cfg)
	c.original = newBox(true)
	c.primary = newBox(false)
	c.secondary = newBox(false)
	c.partials = make(map[string]string)
}

func (c *Conversation) partialsCopy() map[string]string {
	out := make(map[string]string, len(c.partials))
	for k, v := range c.partials {
		out[k] = v
	}
	return out
}
