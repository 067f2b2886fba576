// Package documents handles file attachments on procurement entities:
// upload into object storage, listing, and AI-assisted classification
// of the extracted text.
package documents

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/procurehq/procure-server/internal/ai"
	"github.com/procurehq/procure-server/internal/errs"
	"github.com/procurehq/procure-server/internal/models"
	"github.com/procurehq/procure-server/internal/registry"
	"github.com/procurehq/procure-server/internal/storage"
	"github.com/procurehq/procure-server/internal/store"
)

// MaxUploadBytes caps single document uploads
const MaxUploadBytes = 20 << 20

// Repository is the slice of the document repository the service needs
type Repository interface {
	Create(ctx context.Context, doc *models.Document) error
	GetByID(ctx context.Context, id string) (*models.Document, error)
	ListByEntity(ctx context.Context, entityType, entityID string) ([]*models.Document, error)
	UpdateAnalysis(ctx context.Context, id, analysis string) error
}

// Classifier produces an analysis of extracted document text
type Classifier interface {
	Classify(ctx context.Context, text string) (*ai.DocumentClassification, error)
}

// Service manages document attachments
type Service struct {
	repo       Repository
	objects    storage.ObjectStorage
	store      store.Store
	registry   *registry.Registry
	extractor  *TextExtractor
	classifier Classifier // nil when no API key is configured
	logger     *zap.Logger
	now        func() time.Time
	newID      func() string
}

func NewService(repo Repository, objects storage.ObjectStorage, st store.Store, reg *registry.Registry, extractor *TextExtractor, classifier Classifier, logger *zap.Logger) *Service {
	return &Service{
		repo:       repo,
		objects:    objects,
		store:      st,
		registry:   reg,
		extractor:  extractor,
		classifier: classifier,
		logger:     logger,
		now:        time.Now,
		newID:      func() string { return uuid.New().String() },
	}
}

// Upload stores the file content and records the document row
func (s *Service) Upload(ctx context.Context, actor models.Actor, entityType, entityID, fileName, contentType string, size int64, r io.Reader) (*models.Document, error) {
	def, err := s.registry.Get(entityType)
	if err != nil {
		return nil, err
	}
	if !models.IsOfficerTier(actor.Role) {
		return nil, errs.Forbidden("role %s may not upload documents", actor.Role)
	}
	fileName = filepath.Base(strings.TrimSpace(fileName))
	if fileName == "" || fileName == "." || fileName == "/" {
		return nil, errs.InvalidInput("file name is required")
	}
	if size <= 0 || size > MaxUploadBytes {
		return nil, errs.InvalidInput("file size must be between 1 byte and %d MB", MaxUploadBytes>>20)
	}

	rec, err := s.store.FindOne(ctx, def.Table, entityID)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", entityType, err)
	}
	if rec == nil {
		return nil, errs.NotFound("%s %s not found", entityType, entityID)
	}

	key := fmt.Sprintf("%s/%s/%s%s", entityType, entityID,
		strings.ReplaceAll(uuid.New().String(), "-", "")[:8], filepath.Ext(fileName))
	if err := s.objects.Put(ctx, key, r, size, contentType); err != nil {
		return nil, fmt.Errorf("failed to store file: %w", err)
	}

	doc := &models.Document{
		ID:          s.newID(),
		EntityType:  entityType,
		EntityID:    entityID,
		FileName:    fileName,
		StorageKey:  key,
		ContentType: contentType,
		SizeBytes:   size,
		UploadedBy:  actor.ID,
		CreatedAt:   s.now(),
	}
	if err := s.repo.Create(ctx, doc); err != nil {
		// The row is authoritative; orphaned content gets cleaned up.
		if derr := s.objects.Delete(ctx, key); derr != nil {
			s.logger.Warn("Failed to clean up orphaned object",
				zap.String("key", key),
				zap.Error(derr))
		}
		return nil, fmt.Errorf("failed to record document: %w", err)
	}

	s.logger.Info("Document uploaded",
		zap.String("document_id", doc.ID),
		zap.String("entity_type", entityType),
		zap.String("entity_id", entityID),
		zap.String("file_name", fileName),
		zap.Int64("size_bytes", size))
	return doc, nil
}

// List returns the documents attached to an entity
func (s *Service) List(ctx context.Context, entityType, entityID string) ([]*models.Document, error) {
	def, err := s.registry.Get(entityType)
	if err != nil {
		return nil, err
	}
	rec, err := s.store.FindOne(ctx, def.Table, entityID)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", entityType, err)
	}
	if rec == nil {
		return nil, errs.NotFound("%s %s not found", entityType, entityID)
	}

	docs, err := s.repo.ListByEntity(ctx, entityType, entityID)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	if docs == nil {
		docs = []*models.Document{}
	}
	return docs, nil
}

// Download returns the document row and a reader over its content
func (s *Service) Download(ctx context.Context, documentID string) (*models.Document, io.ReadCloser, error) {
	doc, err := s.repo.GetByID(ctx, documentID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load document: %w", err)
	}
	if doc == nil {
		return nil, nil, errs.NotFound("document %s not found", documentID)
	}
	rc, err := s.objects.Get(ctx, doc.StorageKey)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch content: %w", err)
	}
	return doc, rc, nil
}

// Classify extracts the document text, runs the classifier and stores
// the analysis on the document row.
func (s *Service) Classify(ctx context.Context, documentID string) (*ai.DocumentClassification, error) {
	if s.classifier == nil {
		return nil, fmt.Errorf("document classification is not configured")
	}

	doc, err := s.repo.GetByID(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load document: %w", err)
	}
	if doc == nil {
		return nil, errs.NotFound("document %s not found", documentID)
	}

	rc, err := s.objects.Get(ctx, doc.StorageKey)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch content: %w", err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read content: %w", err)
	}

	text, err := s.extractor.Extract(doc.FileName, data)
	if err != nil {
		return nil, errs.InvalidInput("%v", err)
	}

	result, err := s.classifier.Classify(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to classify document: %w", err)
	}

	analysis, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("failed to encode analysis: %w", err)
	}
	if err := s.repo.UpdateAnalysis(ctx, doc.ID, string(analysis)); err != nil {
		return nil, fmt.Errorf("failed to store analysis: %w", err)
	}

	s.logger.Info("Document classified",
		zap.String("document_id", doc.ID),
		zap.String("category", result.Category))
	return result, nil
}
