package model

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// ReplyIntent is the interpreted meaning of a free-text response to an
// invitation. Ambiguous replies map to ReplyUnknown and must never mutate
// the employee's status.
type ReplyIntent string

const (
	ReplyAvailable   ReplyIntent = "available"
	ReplyUnavailable ReplyIntent = "unavailable"
	ReplyUnknown     ReplyIntent = "unknown"
)

// Negative phrases are matched before positive ones so that replies like
// "kann nicht" or "leider ja nicht" don't hit a positive keyword first.
var negativePhrases = []string{
	"kann nicht",
	"kann leider nicht",
	"bin nicht",
	"nicht dabei",
	"nein",
	"no",
	"absage",
	"unavailable",
	"leider",
}

var positivePhrases = []string{
	"ja",
	"yes",
	"dabei",
	"kann",
	"gerne",
	"zusage",
	"available",
	"ok",
	"passt",
}

// ParseReplyIntent maps a free-text reply to an intent. Matching is
// case-insensitive and keyword-based; anything that matches neither list,
// or both via conflicting phrases, resolves to ReplyUnknown.
func ParseReplyIntent(text string) ReplyIntent {
	normalized := strings.ToLower(strings.TrimSpace(text))
	if normalized == "" {
		return ReplyUnknown
	}

	for _, phrase := range negativePhrases {
		if containsWord(normalized, phrase) {
			return ReplyUnavailable
		}
	}
	for _, phrase := range positivePhrases {
		if containsWord(normalized, phrase) {
			return ReplyAvailable
		}
	}
	return ReplyUnknown
}

// containsWord checks for the phrase on word boundaries so that "jaguar"
// does not count as "ja". Boundaries are rune-aware, otherwise German
// letters like the ä in "jährlich" would pass as separators.
func containsWord(text, phrase string) bool {
	idx := 0
	for {
		i := strings.Index(text[idx:], phrase)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(phrase)
		startOK := start == 0 || !isWordRune(lastRuneBefore(text, start))
		endOK := end == len(text) || !isWordRune(runeAt(text, end))
		if startOK && endOK {
			return true
		}
		idx = start + 1
		if idx >= len(text) {
			return false
		}
	}
}

func lastRuneBefore(s string, i int) rune {
	r, _ := utf8.DecodeLastRuneInString(s[:i])
	return r
}

func runeAt(s string, i int) rune {
	r, _ := utf8.DecodeRuneInString(s[i:])
	return r
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
