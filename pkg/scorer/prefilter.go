package scorer

import (
	"strings"
	"unicode/utf8"

	"github.com/theapemachine/goldmine/pkg/memory"
)

// junkSubstrings reject a record outright when present anywhere in the
// text, case-insensitively. These are operational noise the agents write
// during diagnostics, never knowledge worth keeping.
var junkSubstrings = []string{
	"hook test",
	"skipping:",
	"no output",
}

// junkTokens reject a record whose entire trimmed text is one of these.
var junkTokens = []string{"ok", "yes", "no", "done", "test"}

// Keep decides whether a record is worth scoring at all. It is a total,
// deterministic function with no side effects.
func Keep(rec memory.Record) bool {
	trimmed := strings.TrimSpace(rec.Text)

	// Character count, not bytes: the corpus is bilingual and CJK
	// text packs three bytes into every rune.
	if utf8.RuneCountInString(trimmed) < 20 {
		return false
	}

	lowered := strings.ToLower(trimmed)

	for _, junk := range junkSubstrings {
		if strings.Contains(lowered, junk) {
			return false
		}
	}

	for _, token := range junkTokens {
		if lowered == token {
			return false
		}
	}

	return true
}

// Prefilter returns the records that pass Keep, preserving order.
func Prefilter(records []memory.Record) []memory.Record {
	kept := make([]memory.Record, 0, len(records))

	for _, rec := range records {
		if Keep(rec) {
			kept = append(kept, rec)
		}
	}

	return kept
}
