package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gofrs/flock"

	"hakimi/internal/config"
	"hakimi/internal/deps"
	"hakimi/internal/logging"
	"hakimi/internal/notifications"
	"hakimi/internal/preflight"
	"hakimi/internal/queue"
	"hakimi/internal/workflow"
)

// Daemon coordinates the queue store, the workflow manager, and the
// optional HTTP observation API for a single hakimi instance.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *queue.Store
	workflow *workflow.Manager
	notifier notifications.Service

	api        *apiServer
	logHub     *logging.StreamHub
	logArchive *logging.EventArchive

	logPath  string
	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
}

// Status reports the externally visible state of a daemon instance.
type Status struct {
	Running      bool
	PID          int
	Workflow     workflow.StatusSummary
	QueueDBPath  string
	LockFilePath string
	Dependencies []deps.Status
}

// New constructs a daemon with initialized dependencies. The instance
// lock and log paths are derived from the configured log directory.
func New(cfg *config.Config, store *queue.Store, logger *slog.Logger, wf *workflow.Manager, notifier notifications.Service) (*Daemon, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if store == nil {
		return nil, fmt.Errorf("queue store is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if wf == nil {
		return nil, fmt.Errorf("workflow manager is required")
	}
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}

	logDir := cfg.Paths.LogDir
	d := &Daemon{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		workflow: wf,
		notifier: notifier,
		logPath:  filepath.Join(logDir, "hakimi.log"),
		lockPath: filepath.Join(logDir, "hakimid.lock"),
	}
	d.lock = flock.New(d.lockPath)

	api, err := newAPIServer(cfg, d, logger)
	if err != nil {
		return nil, fmt.Errorf("configure api server: %w", err)
	}
	d.api = api
	return d, nil
}

// AttachLogStream wires the live log hub and its on-disk archive so the
// IPC and HTTP log endpoints can serve history and follow requests.
func (d *Daemon) AttachLogStream(hub *logging.StreamHub, archive *logging.EventArchive) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.logHub = hub
	d.logArchive = archive
}

// LogStream returns the live log hub, or nil when none is attached.
func (d *Daemon) LogStream() *logging.StreamHub {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.logHub
}

// LogArchive returns the persistent log archive, or nil when none is
// attached.
func (d *Daemon) LogArchive() *logging.EventArchive {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.logArchive
}

// Start acquires the instance lock and launches the workflow manager.
// It fails when another daemon already holds the lock.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running.Load() {
		return fmt.Errorf("daemon already running")
	}

	locked, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock file %s: %w", d.lockPath, err)
	}
	if !locked {
		return fmt.Errorf("another hakimi daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	if err := d.workflow.Start(runCtx); err != nil {
		cancel()
		if unlockErr := d.lock.Unlock(); unlockErr != nil {
			d.logger.Warn("failed to release lock after start failure", logging.Error(unlockErr))
		}
		return fmt.Errorf("start workflow: %w", err)
	}
	d.ctx = runCtx
	d.cancel = cancel

	if d.api != nil {
		if err := d.api.start(runCtx); err != nil {
			d.logger.Warn("api server unavailable", logging.Error(err))
			d.api = nil
		}
	}

	d.running.Store(true)
	d.logger.Info("daemon started",
		logging.String("lock_file", d.lockPath),
		logging.String("queue_db", d.QueueDBPath()))
	return nil
}

// Stop halts the workflow manager and releases the instance lock. It is
// safe to call on a daemon that never started.
func (d *Daemon) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if d.api != nil {
		d.api.stop()
	}
	d.workflow.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release lock file", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("daemon stopped")
}

// Close stops the daemon and closes the queue store.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Running reports whether Start has completed and Stop has not.
func (d *Daemon) Running() bool {
	return d.running.Load()
}

// LogPath returns the daemon log file location.
func (d *Daemon) LogPath() string {
	return d.logPath
}

// QueueDBPath returns the queue database location.
func (d *Daemon) QueueDBPath() string {
	return filepath.Join(d.cfg.Paths.LogDir, "queue.db")
}

// Status summarizes the daemon, its workflow, and external tool
// availability.
func (d *Daemon) Status(ctx context.Context) Status {
	summary := d.workflow.Status(ctx)
	return Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		Workflow:     summary,
		QueueDBPath:  d.QueueDBPath(),
		LockFilePath: d.lockPath,
		Dependencies: preflight.CheckSystemDeps(d.cfg),
	}
}

// Enqueue registers a new meme need for the workflow to pick up.
func (d *Daemon) Enqueue(ctx context.Context, need, title, tags string) (*queue.Item, error) {
	if d.store == nil {
		return nil, fmt.Errorf("queue store unavailable")
	}
	trimmed := strings.TrimSpace(need)
	if trimmed == "" {
		return nil, fmt.Errorf("need text is required")
	}
	item, err := d.store.NewNeed(ctx, trimmed, strings.TrimSpace(title), strings.TrimSpace(tags))
	if err != nil {
		return nil, err
	}
	d.logger.Info("need queued",
		logging.Int64(logging.FieldItemID, item.ID),
		logging.String("need", item.Need))
	return item, nil
}

// ListQueue returns queue items, optionally filtered by status.
func (d *Daemon) ListQueue(ctx context.Context, statuses ...queue.Status) ([]*queue.Item, error) {
	if d.store == nil {
		return nil, fmt.Errorf("queue store unavailable")
	}
	return d.store.List(ctx, statuses...)
}

// GetQueueItem fetches a single queue item, or nil when absent.
func (d *Daemon) GetQueueItem(ctx context.Context, id int64) (*queue.Item, error) {
	if d.store == nil {
		return nil, fmt.Errorf("queue store unavailable")
	}
	return d.store.GetByID(ctx, id)
}

// RemoveQueueItems removes the given items and reports how many existed.
func (d *Daemon) RemoveQueueItems(ctx context.Context, ids ...int64) (int64, error) {
	if d.store == nil {
		return 0, fmt.Errorf("queue store unavailable")
	}
	var removed int64
	for _, id := range ids {
		ok, err := d.store.Remove(ctx, id)
		if err != nil {
			return removed, err
		}
		if ok {
			removed++
		}
	}
	return removed, nil
}

// ClearQueue removes every item from the queue.
func (d *Daemon) ClearQueue(ctx context.Context) (int64, error) {
	if d.store == nil {
		return 0, fmt.Errorf("queue store unavailable")
	}
	return d.store.Clear(ctx)
}

// ClearCompleted removes completed items from the queue.
func (d *Daemon) ClearCompleted(ctx context.Context) (int64, error) {
	if d.store == nil {
		return 0, fmt.Errorf("queue store unavailable")
	}
	return d.store.ClearCompleted(ctx)
}

// ClearFailed removes failed items from the queue.
func (d *Daemon) ClearFailed(ctx context.Context) (int64, error) {
	if d.store == nil {
		return 0, fmt.Errorf("queue store unavailable")
	}
	return d.store.ClearFailed(ctx)
}

// ResetStuck returns items stranded in processing statuses to pending.
func (d *Daemon) ResetStuck(ctx context.Context) (int64, error) {
	if d.store == nil {
		return 0, fmt.Errorf("queue store unavailable")
	}
	return d.store.ResetStuckProcessing(ctx)
}

// RetryFailed re-queues failed and review items. With no ids it retries
// every eligible item.
func (d *Daemon) RetryFailed(ctx context.Context, ids ...int64) (int64, error) {
	if d.store == nil {
		return 0, fmt.Errorf("queue store unavailable")
	}
	return d.store.RetryFailed(ctx, ids...)
}

// QueueHealth reports aggregate queue counts.
func (d *Daemon) QueueHealth(ctx context.Context) (queue.HealthSummary, error) {
	if d.store == nil {
		return queue.HealthSummary{}, fmt.Errorf("queue store unavailable")
	}
	return d.store.Health(ctx)
}

// DatabaseHealth inspects the queue database file and schema.
func (d *Daemon) DatabaseHealth(ctx context.Context) (queue.DatabaseHealth, error) {
	if d.store == nil {
		return queue.DatabaseHealth{}, fmt.Errorf("queue store unavailable")
	}
	return d.store.CheckHealth(ctx)
}

// TestNotification sends a test event through the configured notifier.
// It reports false without error when notifications are not configured.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if strings.TrimSpace(d.cfg.Notifications.NtfyTopic) == "" {
		return false, "ntfy topic not configured", nil
	}
	payload := notifications.Payload{
		"message": "Test notification from hakimi daemon",
	}
	if err := d.notifier.Publish(ctx, notifications.EventTest, payload); err != nil {
		return false, "", fmt.Errorf("send test notification: %w", err)
	}
	return true, "test notification sent", nil
}
