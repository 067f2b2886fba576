package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/procurehq/procure-server/internal/models"
)

// NotificationQueue is the pending-notification slice of the
// notification repository.
type NotificationQueue interface {
	ListPending(ctx context.Context, limit int) ([]*models.Notification, error)
	MarkSent(ctx context.Context, id string, at time.Time) error
	MarkFailed(ctx context.Context, id, message string) error
}

// RecipientDirectory resolves notification recipients
type RecipientDirectory interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
}

// Messenger pushes one notification to an external channel
type Messenger interface {
	Send(ctx context.Context, recipient *models.User, n *models.Notification) error
}

// NotificationDispatcher periodically drains pending notifications and
// pushes them through the messenger. Rows stay readable in-app
// regardless of delivery outcome; a failed push is recorded on the row
// and not retried.
type NotificationDispatcher struct {
	queue     NotificationQueue
	directory RecipientDirectory
	messenger Messenger
	logger    *zap.Logger

	pollInterval time.Duration
	batchSize    int

	mu        sync.Mutex
	isRunning bool
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewNotificationDispatcher creates a notification dispatcher
func NewNotificationDispatcher(queue NotificationQueue, directory RecipientDirectory, messenger Messenger, interval time.Duration, batchSize int, logger *zap.Logger) *NotificationDispatcher {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if batchSize <= 0 {
		batchSize = 50
	}
	return &NotificationDispatcher{
		queue:        queue,
		directory:    directory,
		messenger:    messenger,
		logger:       logger,
		pollInterval: interval,
		batchSize:    batchSize,
	}
}

// Start launches the dispatch loop
func (d *NotificationDispatcher) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.isRunning {
		return fmt.Errorf("notification dispatcher is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	d.isRunning = true

	d.logger.Info("NotificationDispatcher started",
		zap.Duration("poll_interval", d.pollInterval),
		zap.Int("batch_size", d.batchSize))

	go d.pollLoop()
	return nil
}

// Stop cancels the dispatch loop
func (d *NotificationDispatcher) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.isRunning {
		return
	}
	d.isRunning = false
	if d.cancel != nil {
		d.cancel()
	}
	d.logger.Info("NotificationDispatcher stopped")
}

// Name returns the worker name for identification
func (d *NotificationDispatcher) Name() string {
	return "NotificationDispatcher"
}

func (d *NotificationDispatcher) pollLoop() {
	ticker := time.NewTicker(d.pollInterval)
	defer ticker.Stop()

	// Dispatch immediately on start
	d.DispatchPending(d.ctx)

	for {
		select {
		case <-d.ctx.Done():
			return
		case <-ticker.C:
			d.DispatchPending(d.ctx)
		}
	}
}

// DispatchPending pushes one batch of pending notifications. Exported
// so callers can flush synchronously.
func (d *NotificationDispatcher) DispatchPending(ctx context.Context) {
	pending, err := d.queue.ListPending(ctx, d.batchSize)
	if err != nil {
		d.logger.Error("Failed to list pending notifications", zap.Error(err))
		return
	}
	if len(pending) == 0 {
		return
	}

	sent := 0
	for _, n := range pending {
		if err := d.dispatchOne(ctx, n); err != nil {
			d.logger.Warn("Notification delivery failed",
				zap.String("notification_id", n.ID),
				zap.String("user_id", n.UserID),
				zap.Error(err))
			if markErr := d.queue.MarkFailed(ctx, n.ID, err.Error()); markErr != nil {
				d.logger.Error("Failed to record delivery failure",
					zap.String("notification_id", n.ID),
					zap.Error(markErr))
			}
			continue
		}
		if err := d.queue.MarkSent(ctx, n.ID, time.Now().UTC()); err != nil {
			d.logger.Error("Failed to mark notification sent",
				zap.String("notification_id", n.ID),
				zap.Error(err))
			continue
		}
		sent++
	}

	d.logger.Debug("Dispatched notifications",
		zap.Int("batch", len(pending)),
		zap.Int("sent", sent))
}

func (d *NotificationDispatcher) dispatchOne(ctx context.Context, n *models.Notification) error {
	recipient, err := d.directory.GetByID(ctx, n.UserID)
	if err != nil {
		return fmt.Errorf("failed to resolve recipient: %w", err)
	}
	if recipient == nil {
		return fmt.Errorf("recipient %s not found", n.UserID)
	}
	return d.messenger.Send(ctx, recipient, n)
}
