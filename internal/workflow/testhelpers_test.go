package workflow_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"hakimi/internal/notifications"
	"hakimi/internal/queue"
)

// recordingNotifier captures every published event so tests can assert on the
// notification stream without a live ntfy endpoint.
type recordingNotifier struct {
	mu       sync.Mutex
	events   []notifications.Event
	payloads []notifications.Payload
}

func (r *recordingNotifier) Publish(_ context.Context, event notifications.Event, payload notifications.Payload) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	r.payloads = append(r.payloads, payload)
	return nil
}

func (r *recordingNotifier) count(event notifications.Event) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	total := 0
	for _, recorded := range r.events {
		if recorded == event {
			total++
		}
	}
	return total
}

func (r *recordingNotifier) lastPayload(event notifications.Event) notifications.Payload {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.events) - 1; i >= 0; i-- {
		if r.events[i] == event {
			return r.payloads[i]
		}
	}
	return nil
}

// waitForStatus polls the store until the item reaches the wanted status and
// returns the final snapshot.
func waitForStatus(t *testing.T, store *queue.Store, id int64, want queue.Status, timeout time.Duration) *queue.Item {
	t.Helper()
	ctx := context.Background()
	deadline := time.After(timeout)
	for {
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for status %s", want)
		default:
		}
		updated, err := store.GetByID(ctx, id)
		if err != nil {
			t.Fatalf("GetByID failed: %v", err)
		}
		if updated == nil {
			t.Fatal("queue item disappeared")
		}
		if updated.Status == want {
			return updated
		}
		time.Sleep(25 * time.Millisecond)
	}
}

// waitForEvent polls the notifier until the event shows up at least once.
// Queue-level notifications land after the final status update, so status
// polling alone cannot observe them.
func waitForEvent(t *testing.T, notifier *recordingNotifier, event notifications.Event, timeout time.Duration) {
	t.Helper()
	deadline := time.After(timeout)
	for notifier.count(event) == 0 {
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for %s notification", event)
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
}
