package models

import "time"

// Document is an uploaded file attached to a procurement entity
type Document struct {
	ID          string    `json:"id"`
	EntityType  string    `json:"entity_type"`
	EntityID    string    `json:"entity_id"`
	FileName    string    `json:"file_name"`
	StorageKey  string    `json:"storage_key"`
	ContentType string    `json:"content_type,omitempty"`
	SizeBytes   int64     `json:"size_bytes"`
	UploadedBy  string    `json:"uploaded_by,omitempty"`
	Analysis    string    `json:"analysis,omitempty"` // JSON blob from the classifier
	CreatedAt   time.Time `json:"created_at"`
}
