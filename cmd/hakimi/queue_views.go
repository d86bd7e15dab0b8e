package main

import (
	"sort"
	"strconv"
	"strings"

	"hakimi/internal/api"
)

// needPreviewRunes caps how much of the raw request text the list view shows
// when an item has no title yet.
const needPreviewRunes = 32

func buildQueueStatusRows(stats map[string]int) [][]string {
	if len(stats) == 0 {
		return nil
	}
	keys := make([]string, 0, len(stats))
	for key := range stats {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	rows := make([][]string, 0, len(keys))
	for _, key := range keys {
		rows = append(rows, []string{formatStatusLabel(key), strconv.Itoa(stats[key])})
	}
	return rows
}

func buildQueueListRows(items []api.QueueItem) [][]string {
	sorted := api.SortQueueItemsNewestFirst(items)
	rows := make([][]string, 0, len(sorted))
	for _, item := range sorted {
		rows = append(rows, []string{
			strconv.FormatInt(item.ID, 10),
			queueItemTitle(item),
			formatStatusLabel(item.Status),
			item.Progress.Stage,
			formatDisplayTime(item.CreatedAt),
		})
	}
	return rows
}

// queueItemTitle prefers the resolved track title and falls back to a preview
// of the request text; items enqueue before any stage has named them.
func queueItemTitle(item api.QueueItem) string {
	if title := strings.TrimSpace(item.Title); title != "" {
		return title
	}
	if need := strings.TrimSpace(item.Need); need != "" {
		return truncateRunes(need, needPreviewRunes)
	}
	return "Untitled"
}

func truncateRunes(value string, limit int) string {
	runes := []rune(value)
	if limit <= 0 || len(runes) <= limit {
		return value
	}
	return string(runes[:limit]) + "..."
}

// formatStatusLabel renders queue status identifiers for humans, for example
// "reset_stuck" becomes "Reset Stuck".
func formatStatusLabel(status string) string {
	status = strings.TrimSpace(status)
	if status == "" {
		return ""
	}
	parts := strings.Split(strings.ReplaceAll(status, "_", " "), " ")
	for i, part := range parts {
		if part == "" {
			continue
		}
		runes := []rune(strings.ToLower(part))
		runes[0] = []rune(strings.ToUpper(string(runes[0])))[0]
		parts[i] = string(runes)
	}
	return strings.Join(parts, " ")
}

func formatDisplayTime(value string) string {
	parsed := api.ParseQueueTime(value)
	if parsed.IsZero() {
		return value
	}
	return parsed.UTC().Format("2006-01-02 15:04")
}
