package textutil

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// sentence terminators: CJK full stops plus ASCII ! and ?
var sentenceTerminators = map[rune]struct{}{
	'。': {},
	'！': {},
	'？': {},
	'!':  {},
	'?':  {},
}

// SplitSentences splits running text on CJK and ASCII sentence terminators,
// dropping empty fragments. Terminators are not retained.
func SplitSentences(text string) []string {
	var out []string
	var b strings.Builder
	flush := func() {
		if s := strings.TrimSpace(b.String()); s != "" {
			out = append(out, s)
		}
		b.Reset()
	}
	for _, r := range text {
		if _, ok := sentenceTerminators[r]; ok {
			flush()
			continue
		}
		b.WriteRune(r)
	}
	flush()
	return out
}

// NormalizeText applies NFKC normalization and collapses whitespace runs to a
// single space. Full-width ASCII variants fold to their half-width forms, so
// scraped pages using ｈａｃｈｉｍｉ-style text still match plain keywords.
func NormalizeText(text string) string {
	text = norm.NFKC.String(text)
	return strings.Join(strings.Fields(text), " ")
}
