package testsupport

import (
	"context"
	"testing"

	"hakimi/internal/config"
	"hakimi/internal/queue"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewNeed creates a queued request item for tests using the provided store.
func NewNeed(t testing.TB, store *queue.Store, need, title, tags string) *queue.Item {
	t.Helper()

	item, err := store.NewNeed(context.Background(), need, title, tags)
	if err != nil {
		t.Fatalf("store.NewNeed: %v", err)
	}
	return item
}
