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

const documentColumns = `id, entity_type, entity_id, file_name, storage_key,
	content_type, size_bytes, uploaded_by, analysis, created_at`

// DocumentRepository handles document metadata; file bytes live in the
// object storage backend under storage_key.
type DocumentRepository struct {
	db     *database.DB
	logger *zap.Logger
}

// NewDocumentRepository creates a new document repository
func NewDocumentRepository(db *database.DB, logger *zap.Logger) *DocumentRepository {
	return &DocumentRepository{db: db, logger: logger}
}

// Create inserts a new document row
func (r *DocumentRepository) Create(ctx context.Context, doc *models.Document) error {
	query := `
		INSERT INTO documents (id, entity_type, entity_id, file_name, storage_key,
			content_type, size_bytes, uploaded_by, analysis, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, query,
		doc.ID, doc.EntityType, doc.EntityID, doc.FileName, doc.StorageKey,
		nullString(doc.ContentType), doc.SizeBytes, nullString(doc.UploadedBy),
		nullString(doc.Analysis), doc.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create document: %w", err)
	}
	return nil
}

// GetByID returns the document with the given id, or nil when absent
func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*models.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE id = ?`

	doc, err := scanDocument(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// ListByEntity returns the documents attached to one entity, oldest first
func (r *DocumentRepository) ListByEntity(ctx context.Context, entityType, entityID string) ([]*models.Document, error) {
	query := `SELECT ` + documentColumns + `
		FROM documents WHERE entity_type = ? AND entity_id = ? ORDER BY created_at`

	rows, err := r.db.QueryContext(ctx, query, entityType, entityID)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var docs []*models.Document
	for rows.Next() {
		doc, err := scanDocumentRow(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// UpdateAnalysis stores the classifier output for a document
func (r *DocumentRepository) UpdateAnalysis(ctx context.Context, id, analysis string) error {
	query := `UPDATE documents SET analysis = ? WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query, analysis, id)
	if err != nil {
		return fmt.Errorf("failed to update document analysis: %w", err)
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

// Delete removes a document row. Returns sql.ErrNoRows when absent.
func (r *DocumentRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
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

func scanDocument(row *sql.Row) (*models.Document, error) {
	var doc models.Document
	var contentType, uploadedBy, analysis sql.NullString

	err := row.Scan(&doc.ID, &doc.EntityType, &doc.EntityID, &doc.FileName, &doc.StorageKey,
		&contentType, &doc.SizeBytes, &uploadedBy, &analysis, &doc.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan document: %w", err)
	}

	doc.ContentType = contentType.String
	doc.UploadedBy = uploadedBy.String
	doc.Analysis = analysis.String
	return &doc, nil
}

func scanDocumentRow(rows *sql.Rows) (*models.Document, error) {
	var doc models.Document
	var contentType, uploadedBy, analysis sql.NullString

	err := rows.Scan(&doc.ID, &doc.EntityType, &doc.EntityID, &doc.FileName, &doc.StorageKey,
		&contentType, &doc.SizeBytes, &uploadedBy, &analysis, &doc.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to scan document: %w", err)
	}

	doc.ContentType = contentType.String
	doc.UploadedBy = uploadedBy.String
	doc.Analysis = analysis.String
	return &doc, nil
}
