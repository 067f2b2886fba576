package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/procurehq/procure-server/internal/models"
	"github.com/procurehq/procure-server/pkg/database"
)

const notificationColumns = `id, user_id, item_type, item_id, item_number, item_title,
	requested_by, message, status, sent_at, read_at, error_message, created_at`

// NotificationRepository handles notification database operations
type NotificationRepository struct {
	db     *database.DB
	logger *zap.Logger
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(db *database.DB, logger *zap.Logger) *NotificationRepository {
	return &NotificationRepository{db: db, logger: logger}
}

// Create inserts a new notification row
func (r *NotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	query := `
		INSERT INTO notifications (id, user_id, item_type, item_id, item_number, item_title,
			requested_by, message, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	if n.Status == "" {
		n.Status = models.NotificationStatusPending
	}

	_, err := r.db.ExecContext(ctx, query,
		n.ID, n.UserID, n.ItemType, n.ItemID,
		nullString(n.ItemNumber), nullString(n.ItemTitle), nullString(n.RequestedBy),
		n.Message, n.Status, n.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

// ListPending returns up to limit undelivered notifications, oldest first
func (r *NotificationRepository) ListPending(ctx context.Context, limit int) ([]*models.Notification, error) {
	query := `SELECT ` + notificationColumns + `
		FROM notifications WHERE status = ? ORDER BY created_at LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, models.NotificationStatusPending, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending notifications: %w", err)
	}
	defer rows.Close()
	return collectNotifications(rows)
}

// ListByUser returns a user's notifications, newest first
func (r *NotificationRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*models.Notification, error) {
	query := `SELECT ` + notificationColumns + `
		FROM notifications WHERE user_id = ? ORDER BY created_at DESC LIMIT ? OFFSET ?`

	rows, err := r.db.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()
	return collectNotifications(rows)
}

// CountUnread returns the number of unread notifications for a user
func (r *NotificationRepository) CountUnread(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notifications WHERE user_id = ? AND read_at IS NULL`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return count, nil
}

// MarkSent records a successful delivery
func (r *NotificationRepository) MarkSent(ctx context.Context, id string, at time.Time) error {
	query := `UPDATE notifications SET status = ?, sent_at = ?, error_message = NULL WHERE id = ?`

	if _, err := r.db.ExecContext(ctx, query, models.NotificationStatusSent, at, id); err != nil {
		return fmt.Errorf("failed to mark notification sent: %w", err)
	}
	return nil
}

// MarkFailed records a delivery failure
func (r *NotificationRepository) MarkFailed(ctx context.Context, id, message string) error {
	query := `UPDATE notifications SET status = ?, error_message = ? WHERE id = ?`

	if _, err := r.db.ExecContext(ctx, query, models.NotificationStatusFailed, message, id); err != nil {
		return fmt.Errorf("failed to mark notification failed: %w", err)
	}
	return nil
}

// MarkRead stamps one of the user's notifications as read. Returns
// sql.ErrNoRows when the notification does not exist or belongs to
// someone else.
func (r *NotificationRepository) MarkRead(ctx context.Context, id, userID string) error {
	query := `UPDATE notifications SET read_at = ? WHERE id = ? AND user_id = ? AND read_at IS NULL`

	result, err := r.db.ExecContext(ctx, query, time.Now().UTC(), id, userID)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// MarkAllRead stamps every unread notification of the user as read
func (r *NotificationRepository) MarkAllRead(ctx context.Context, userID string) error {
	query := `UPDATE notifications SET read_at = ? WHERE user_id = ? AND read_at IS NULL`

	if _, err := r.db.ExecContext(ctx, query, time.Now().UTC(), userID); err != nil {
		return fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return nil
}

func collectNotifications(rows *sql.Rows) ([]*models.Notification, error) {
	var notifications []*models.Notification
	for rows.Next() {
		var n models.Notification
		var itemNumber, itemTitle, requestedBy, errorMessage sql.NullString
		var sentAt, readAt sql.NullTime

		err := rows.Scan(&n.ID, &n.UserID, &n.ItemType, &n.ItemID, &itemNumber, &itemTitle,
			&requestedBy, &n.Message, &n.Status, &sentAt, &readAt, &errorMessage, &n.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}

		n.ItemNumber = itemNumber.String
		n.ItemTitle = itemTitle.String
		n.RequestedBy = requestedBy.String
		n.ErrorMessage = errorMessage.String
		if sentAt.Valid {
			n.SentAt = &sentAt.Time
		}
		if readAt.Valid {
			n.ReadAt = &readAt.Time
		}
		notifications = append(notifications, &n)
	}
	return notifications, rows.Err()
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
