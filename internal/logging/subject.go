package logging

import "strings"

// FormatSubject renders the console line prefix identifying who is
// speaking, e.g. "Foreground · Item #12 (composing)". Blank components are
// dropped.
func FormatSubject(lane, itemID, stage string) string {
	lane = strings.TrimSpace(lane)
	itemID = strings.TrimSpace(itemID)
	stage = strings.TrimSpace(stage)

	parts := make([]string, 0, 2)
	if lane != "" {
		parts = append(parts, titleCase(lane))
	}
	switch {
	case itemID != "" && stage != "":
		parts = append(parts, "Item #"+itemID+" ("+stage+")")
	case itemID != "":
		parts = append(parts, "Item #"+itemID)
	case stage != "":
		parts = append(parts, stage)
	}
	return strings.Join(parts, " · ")
}

func titleCase(word string) string {
	if len(word) <= 1 {
		return strings.ToUpper(word)
	}
	return strings.ToUpper(word[:1]) + strings.ToLower(word[1:])
}
