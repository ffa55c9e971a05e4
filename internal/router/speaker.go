package router

import (
	"fmt"

	"github.com/medtalklab/duoscribe/internal/token"
)

// Default role labels for the two parties.
const (
	DefaultPrimaryRole   = "Doctor"
	DefaultSecondaryRole = "Patient"
)

// speakerRegistry maps opaque diarization hints to stable role labels in
// insertion order: the first hint seen becomes the primary role, the second
// distinct hint the secondary role, and any further hints get generated
// labels. A mapping is never reassigned within a session.
type speakerRegistry struct {
	primaryRole   string
	secondaryRole string
	byHint        map[string]string
	order         []string
}

func newSpeakerRegistry(primaryRole, secondaryRole string) *speakerRegistry {
	return &speakerRegistry{
		primaryRole:   primaryRole,
		secondaryRole: secondaryRole,
		byHint:        make(map[string]string),
	}
}

func (r *speakerRegistry) labelFor(hint string) string {
	if label, ok := r.byHint[hint]; ok {
		return label
	}
	var label string
	switch len(r.order) {
	case 0:
		label = r.primaryRole
	case 1:
		label = r.secondaryRole
	default:
		label = fmt.Sprintf("Speaker %d", len(r.order)+1)
	}
	r.byHint[hint] = label
	r.order = append(r.order, hint)
	return label
}

// speakerResolver assigns a label to every token, degrading gracefully:
// tier 1 uses the diarization hint, tier 2 the language tag (translation
// mode only, where language identifies the party), tier 3 a turn-taking
// approximation that alternates at sentence boundaries. The fallback exists
// because upstream diarization is unreliable exactly when both parties share
// a language.
type speakerResolver struct {
	registry          *speakerRegistry
	primaryLanguage   string
	secondaryLanguage string
	primaryRole       string
	secondaryRole     string
	translationMode   bool

	// active is the tier-3 turn state, empty until the first fallback
	// resolution initializes it to the primary role.
	active string
}

func newSpeakerResolver(cfg Config) *speakerResolver {
	return &speakerResolver{
		registry:          newSpeakerRegistry(cfg.PrimaryRole, cfg.SecondaryRole),
		primaryLanguage:   cfg.PrimaryLanguage,
		secondaryLanguage: cfg.SecondaryLanguage,
		primaryRole:       cfg.PrimaryRole,
		secondaryRole:     cfg.SecondaryRole,
		translationMode:   cfg.PrimaryLanguage != cfg.SecondaryLanguage,
	}
}

// resolve never fails; it always returns a non-empty label.
func (r *speakerResolver) resolve(tok token.Token) string {
	if tok.HasSpeakerHint() {
		return r.registry.labelFor(tok.SpeakerHint)
	}
	if r.translationMode && tok.HasKnownLanguage() {
		switch tok.Language {
		case r.primaryLanguage:
			return r.primaryRole
		case r.secondaryLanguage:
			return r.secondaryRole
		}
	}
	if r.active == "" {
		r.active = r.primaryRole
	}
	return r.active
}

// alternate flips the turn-taking state after a sentence-terminal flush.
// A no-op until the fallback has been engaged at least once.
func (r *speakerResolver) alternate() {
	switch r.active {
	case "":
		return
	case r.primaryRole:
		r.active = r.secondaryRole
	default:
		r.active = r.primaryRole
	}
}
