package main

import (
	"context"
	"fmt"
	"strings"

	"hakimi/internal/api"
	"hakimi/internal/ipc"
	"hakimi/internal/queue"
)

// queueAPI is the queue operation surface shared by the IPC-backed and the
// direct-store paths. Command bodies stay single-path; withQueueAPI picks the
// adapter.
type queueAPI interface {
	Stats(ctx context.Context) (map[string]int, error)
	List(ctx context.Context, statuses []string) ([]api.QueueItem, error)
	Describe(ctx context.Context, id int64) (*api.QueueItem, error)
	Retry(ctx context.Context, ids []int64) (int64, error)
	RetryAll(ctx context.Context) (int64, error)
	ClearAll(ctx context.Context) (int64, error)
	ClearCompleted(ctx context.Context) (int64, error)
	ClearFailed(ctx context.Context) (int64, error)
	Remove(ctx context.Context, ids []int64) (int64, error)
	ResetStuck(ctx context.Context) (int64, error)
	Health(ctx context.Context) (ipc.QueueHealthResponse, error)
}

func (c *commandContext) withQueueAPI(fn func(q queueAPI) error) error {
	return c.withStore(func(client *ipc.Client, store *queue.Store) error {
		if client != nil {
			return fn(&queueIPCAdapter{client: client})
		}
		return fn(&queueStoreAdapter{store: store, service: api.NewQueueService(store)})
	})
}

// queueIPCAdapter serves queue operations through the running daemon.
type queueIPCAdapter struct {
	client *ipc.Client
}

func (a *queueIPCAdapter) Stats(context.Context) (map[string]int, error) {
	status, err := a.client.Status()
	if err != nil {
		return nil, err
	}
	return status.QueueStats, nil
}

func (a *queueIPCAdapter) List(_ context.Context, statuses []string) ([]api.QueueItem, error) {
	resp, err := a.client.QueueList(statuses)
	if err != nil {
		return nil, err
	}
	return resp.Items, nil
}

func (a *queueIPCAdapter) Describe(_ context.Context, id int64) (*api.QueueItem, error) {
	resp, err := a.client.QueueDescribe(id)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			return nil, nil
		}
		return nil, err
	}
	item := resp.Item
	return &item, nil
}

func (a *queueIPCAdapter) Retry(_ context.Context, ids []int64) (int64, error) {
	resp, err := a.client.QueueRetry(ids)
	if err != nil {
		return 0, err
	}
	return resp.Updated, nil
}

func (a *queueIPCAdapter) RetryAll(ctx context.Context) (int64, error) {
	return a.Retry(ctx, nil)
}

func (a *queueIPCAdapter) ClearAll(context.Context) (int64, error) {
	resp, err := a.client.QueueClear()
	if err != nil {
		return 0, err
	}
	return resp.Removed, nil
}

func (a *queueIPCAdapter) ClearCompleted(context.Context) (int64, error) {
	resp, err := a.client.QueueClearCompleted()
	if err != nil {
		return 0, err
	}
	return resp.Removed, nil
}

func (a *queueIPCAdapter) ClearFailed(context.Context) (int64, error) {
	resp, err := a.client.QueueClearFailed()
	if err != nil {
		return 0, err
	}
	return resp.Removed, nil
}

func (a *queueIPCAdapter) Remove(_ context.Context, ids []int64) (int64, error) {
	resp, err := a.client.QueueRemove(ids)
	if err != nil {
		return 0, err
	}
	return resp.Removed, nil
}

func (a *queueIPCAdapter) ResetStuck(context.Context) (int64, error) {
	resp, err := a.client.QueueReset()
	if err != nil {
		return 0, err
	}
	return resp.Updated, nil
}

func (a *queueIPCAdapter) Health(context.Context) (ipc.QueueHealthResponse, error) {
	resp, err := a.client.QueueHealth()
	if err != nil {
		return ipc.QueueHealthResponse{}, err
	}
	return *resp, nil
}

// queueStoreAdapter serves queue operations directly from the database when
// no daemon is listening.
type queueStoreAdapter struct {
	store   *queue.Store
	service *api.QueueService
}

func (a *queueStoreAdapter) Stats(ctx context.Context) (map[string]int, error) {
	return a.service.Stats(ctx)
}

func (a *queueStoreAdapter) List(ctx context.Context, statuses []string) ([]api.QueueItem, error) {
	parsed := make([]queue.Status, 0, len(statuses))
	for _, status := range statuses {
		if s, ok := queue.ParseStatus(status); ok {
			parsed = append(parsed, s)
		}
	}
	return a.service.List(ctx, parsed...)
}

func (a *queueStoreAdapter) Describe(ctx context.Context, id int64) (*api.QueueItem, error) {
	return a.service.Describe(ctx, id)
}

func (a *queueStoreAdapter) Retry(ctx context.Context, ids []int64) (int64, error) {
	return a.store.RetryFailed(ctx, ids...)
}

func (a *queueStoreAdapter) RetryAll(ctx context.Context) (int64, error) {
	return a.store.RetryFailed(ctx)
}

func (a *queueStoreAdapter) ClearAll(ctx context.Context) (int64, error) {
	return a.store.Clear(ctx)
}

func (a *queueStoreAdapter) ClearCompleted(ctx context.Context) (int64, error) {
	return a.store.ClearCompleted(ctx)
}

func (a *queueStoreAdapter) ClearFailed(ctx context.Context) (int64, error) {
	return a.store.ClearFailed(ctx)
}

func (a *queueStoreAdapter) Remove(ctx context.Context, ids []int64) (int64, error) {
	var removed int64
	for _, id := range ids {
		ok, err := a.store.Remove(ctx, id)
		if err != nil {
			return removed, fmt.Errorf("remove item %d: %w", id, err)
		}
		if ok {
			removed++
		}
	}
	return removed, nil
}

func (a *queueStoreAdapter) ResetStuck(ctx context.Context) (int64, error) {
	return a.store.ResetStuckProcessing(ctx)
}

func (a *queueStoreAdapter) Health(ctx context.Context) (ipc.QueueHealthResponse, error) {
	health, err := a.store.Health(ctx)
	if err != nil {
		return ipc.QueueHealthResponse{}, err
	}
	return ipc.QueueHealthResponse{
		Total:      health.Total,
		Pending:    health.Pending,
		Processing: health.Processing,
		Failed:     health.Failed,
		Review:     health.Review,
		Completed:  health.Completed,
	}, nil
}
