package daemon

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"hakimi/internal/api"
	"hakimi/internal/logging"
	"hakimi/internal/queue"
)

type queueStoreStub struct {
	items []*queue.Item
}

func (s *queueStoreStub) List(ctx context.Context, statuses ...queue.Status) ([]*queue.Item, error) {
	if len(statuses) == 0 {
		return s.items, nil
	}
	var filtered []*queue.Item
	for _, item := range s.items {
		for _, status := range statuses {
			if item.Status == status {
				filtered = append(filtered, item)
				break
			}
		}
	}
	return filtered, nil
}

func (s *queueStoreStub) Stats(ctx context.Context) (map[queue.Status]int, error) {
	stats := make(map[queue.Status]int)
	for _, item := range s.items {
		stats[item.Status]++
	}
	return stats, nil
}

func (s *queueStoreStub) GetByID(ctx context.Context, id int64) (*queue.Item, error) {
	for _, item := range s.items {
		if item.ID == id {
			return item, nil
		}
	}
	return nil, nil
}

func newStubServer(items ...*queue.Item) *apiServer {
	return &apiServer{
		queueSvc: api.NewQueueService(&queueStoreStub{items: items}),
	}
}

func TestHandleQueueFiltersByStatus(t *testing.T) {
	srv := newStubServer(
		&queue.Item{ID: 1, Need: "哈基米猫猫进行曲", Status: queue.StatusComposed, CreatedAt: time.Now()},
		&queue.Item{ID: 2, Need: "早八摆烂摇", Status: queue.StatusPending, CreatedAt: time.Now()},
	)

	req := httptest.NewRequest(http.MethodGet, "/api/queue?status=composed", nil)
	rec := httptest.NewRecorder()
	srv.handleQueue(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	var resp api.QueueListResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(resp.Items))
	}
	if resp.Items[0].ID != 1 {
		t.Fatalf("expected item 1, got %d", resp.Items[0].ID)
	}
	if resp.Items[0].Status != string(queue.StatusComposed) {
		t.Fatalf("expected composed status, got %q", resp.Items[0].Status)
	}
}

func TestHandleQueueRejectsUnknownStatus(t *testing.T) {
	srv := newStubServer()

	req := httptest.NewRequest(http.MethodGet, "/api/queue?status=bogus", nil)
	rec := httptest.NewRecorder()
	srv.handleQueue(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
}

func TestHandleQueueItemLookups(t *testing.T) {
	srv := newStubServer(
		&queue.Item{ID: 42, Need: "猫meme改编", Status: queue.StatusCompleted, CreatedAt: time.Now()},
	)

	req := httptest.NewRequest(http.MethodGet, "/api/queue/42", nil)
	rec := httptest.NewRecorder()
	srv.handleQueueItem(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	var resp api.QueueItemResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Item.ID != 42 {
		t.Fatalf("expected item 42, got %d", resp.Item.ID)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/queue/99", nil)
	rec = httptest.NewRecorder()
	srv.handleQueueItem(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404 for missing item, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/queue/not-a-number", nil)
	rec = httptest.NewRecorder()
	srv.handleQueueItem(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 for bad id, got %d", rec.Code)
	}
}

func TestHandleLogsTail(t *testing.T) {
	hub := logging.NewStreamHub(16)
	hub.Publish(logging.LogEvent{Level: "INFO", Message: "stage started", Component: "composer", ItemID: 7})
	hub.Publish(logging.LogEvent{Level: "INFO", Message: "stage completed", Component: "composer", ItemID: 7})
	hub.Publish(logging.LogEvent{Level: "INFO", Message: "queue idle", Component: "workflow"})

	d := &Daemon{}
	d.AttachLogStream(hub, nil)
	srv := &apiServer{daemon: d}

	req := httptest.NewRequest(http.MethodGet, "/api/logs?tail=1&component=composer", nil)
	rec := httptest.NewRecorder()
	srv.handleLogs(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	var resp api.LogStreamResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Events) != 2 {
		t.Fatalf("expected 2 composer events, got %d", len(resp.Events))
	}
	if resp.Events[0].Message != "stage started" {
		t.Fatalf("expected first event message %q, got %q", "stage started", resp.Events[0].Message)
	}
	if resp.Next == 0 {
		t.Fatal("expected non-zero cursor")
	}
}

func TestAuthMiddleware(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	handler := authMiddleware("secret", next)

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/status", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with wrong token, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/status", nil)
	req.Header.Set("Authorization", "Bearer secret")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204 with valid token, got %d", rec.Code)
	}

	passthrough := authMiddleware("", next)
	req = httptest.NewRequest(http.MethodGet, "/api/status", nil)
	rec = httptest.NewRecorder()
	passthrough.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204 without auth configured, got %d", rec.Code)
	}
}

func TestAuthMiddlewareRejectsNearMisses(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	handler := authMiddleware("secret", next)

	// Same length, prefix match, and superstring tokens must all fail
	// identically to a blatantly wrong one.
	for _, token := range []string{"secrej", "secre", "secrets", "SECRET"} {
		req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("token %q: expected 401, got %d", token, rec.Code)
		}
	}
}
