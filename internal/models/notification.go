package models

import "time"

// Notification delivery status values
const (
	NotificationStatusPending = "pending"
	NotificationStatusSent    = "sent"
	NotificationStatusFailed  = "failed"
)

// Notification is an in-app notification row. The dispatcher worker
// additionally pushes pending rows through the configured messenger.
type Notification struct {
	ID           string     `json:"id"`
	UserID       string     `json:"user_id"`
	ItemType     string     `json:"item_type"`
	ItemID       string     `json:"item_id"`
	ItemNumber   string     `json:"item_number,omitempty"`
	ItemTitle    string     `json:"item_title,omitempty"`
	RequestedBy  string     `json:"requested_by,omitempty"`
	Message      string     `json:"message"`
	Status       string     `json:"status"`
	SentAt       *time.Time `json:"sent_at,omitempty"`
	ReadAt       *time.Time `json:"read_at,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}
