package router

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Scripts whose words join without inter-word spacing. A boundary character
// from any of these scripts means the fragments concatenate directly.
var joiningScripts = []*unicode.RangeTable{
	unicode.Telugu,
	unicode.Devanagari,
	unicode.Tamil,
	unicode.Kannada,
	unicode.Malayalam,
	unicode.Bengali,
	unicode.Gurmukhi,
	unicode.Oriya,
}

// Upstream tokenization occasionally splits one word into fragments, e.g.
// "Great" followed by "er". Short alphanumeric fragments in this set glue
// onto the previous token instead of starting a new word.
var continuationFragments = map[string]struct{}{
	"s": {}, "d": {}, "t": {}, "m": {},
	"ed": {}, "er": {}, "es": {}, "ly": {}, "ll": {}, "re": {}, "ve": {},
}

const clausePunctuation = ".,!?;:"

// Merge joins two text fragments without corrupting word boundaries across
// script families. It is pure and never fails; empty inputs return the other
// argument unchanged.
func Merge(existing, incoming string) string {
	if existing == "" {
		return incoming
	}
	if incoming == "" {
		return existing
	}

	first, _ := utf8.DecodeRuneInString(incoming)
	last, _ := utf8.DecodeLastRuneInString(existing)

	switch {
	case unicode.IsSpace(first):
		// Incoming supplies its own separation.
		return existing + incoming
	case isJoiningScript(last) || isJoiningScript(first):
		return existing + incoming
	case unicode.IsSpace(last):
		return existing + incoming
	case isClausePunct(first):
		// No space before punctuation.
		return existing + incoming
	case isClausePunct(last):
		return existing + " " + incoming
	case isWordRune(last) && isWordRune(first):
		if isContinuationFragment(incoming) {
			return existing + incoming
		}
		return existing + " " + incoming
	default:
		return existing + incoming
	}
}

// endsSentence reports whether a buffered fragment is a complete display
// line, ignoring trailing whitespace.
func endsSentence(s string) bool {
	trimmed := strings.TrimRightFunc(s, unicode.IsSpace)
	r, _ := utf8.DecodeLastRuneInString(trimmed)
	return r == '.' || r == '!' || r == '?'
}

func isJoiningScript(r rune) bool {
	for _, script := range joiningScripts {
		if unicode.Is(script, r) {
			return true
		}
	}
	return false
}

func isClausePunct(r rune) bool {
	return strings.ContainsRune(clausePunctuation, r)
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

func isContinuationFragment(s string) bool {
	if utf8.RuneCountInString(s) > 2 {
		return false
	}
	_, ok := continuationFragments[strings.ToLower(s)]
	return ok
}
