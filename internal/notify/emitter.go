// Package notify records workflow notifications and delivers them to
// external channels. Recording is fire-and-forget: the workflow write
// that triggered a notification has already committed, so nothing here
// may surface an error back to the caller.
package notify

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/procurehq/procure-server/internal/models"
)

// Repository is the notification persistence the emitter writes to
type Repository interface {
	Create(ctx context.Context, n *models.Notification) error
}

// Emitter persists notifications for in-app display and later outbound
// dispatch. It satisfies the workflow engine's Notifier.
type Emitter struct {
	repo   Repository
	logger *zap.Logger
}

// NewEmitter creates a notification emitter
func NewEmitter(repo Repository, logger *zap.Logger) *Emitter {
	return &Emitter{repo: repo, logger: logger}
}

// Emit records the notification. Failures are logged and swallowed.
func (e *Emitter) Emit(ctx context.Context, n *models.Notification) {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if n.Status == "" {
		n.Status = models.NotificationStatusPending
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}

	if err := e.repo.Create(ctx, n); err != nil {
		e.logger.Warn("Failed to record notification",
			zap.String("user_id", n.UserID),
			zap.String("item_type", n.ItemType),
			zap.String("item_id", n.ItemID),
			zap.Error(err))
	}
}
