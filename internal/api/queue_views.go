package api

import (
	"sort"
	"time"
)

// SortQueueItemsNewestFirst returns a copy of items ordered by CreatedAt
// descending. Items sharing a timestamp fall back to ID descending so
// `queue list` output is stable across calls.
func SortQueueItemsNewestFirst(items []QueueItem) []QueueItem {
	if len(items) == 0 {
		return nil
	}
	sorted := append([]QueueItem(nil), items...)
	sort.Slice(sorted, func(i, j int) bool {
		a := parseQueueTime(sorted[i].CreatedAt)
		b := parseQueueTime(sorted[j].CreatedAt)
		if a.Equal(b) {
			return sorted[i].ID > sorted[j].ID
		}
		return a.After(b)
	})
	return sorted
}

// ParseQueueTime parses a queue timestamp for display formatting. Items
// with missing or malformed timestamps sort last via the zero time.
func ParseQueueTime(value string) time.Time {
	return parseQueueTime(value)
}

func parseQueueTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return t
}
