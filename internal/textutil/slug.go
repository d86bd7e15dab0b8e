package textutil

import (
	"strings"
	"unicode"
)

// Slug converts a human title into a filesystem-safe token. Unicode letters,
// digits, underscores, and hyphens are kept; every other run of characters
// collapses to a single underscore. Leading and trailing underscores are
// trimmed. Returns fallback when the input reduces to nothing.
func Slug(value, fallback string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback
	}
	var b strings.Builder
	b.Grow(len(value))
	pendingGap := false
	for _, r := range value {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '-' {
			if pendingGap {
				b.WriteByte('_')
				pendingGap = false
			}
			b.WriteRune(r)
			continue
		}
		if b.Len() > 0 {
			pendingGap = true
		}
	}
	out := strings.Trim(b.String(), "_")
	if out == "" {
		return fallback
	}
	return out
}
