// Package procurement implements the registry-driven CRUD surface. One
// service handles every registered entity type; the registry supplies
// the table, the writable-column whitelist and the required fields, so
// adding an entity type never adds handler code.
package procurement

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/procurehq/procure-server/internal/errs"
	"github.com/procurehq/procure-server/internal/models"
	"github.com/procurehq/procure-server/internal/registry"
	"github.com/procurehq/procure-server/internal/store"
	"github.com/procurehq/procure-server/pkg/utils"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// ListOptions narrows and pages List results
type ListOptions struct {
	Status   string
	Search   string
	Page     int
	PageSize int
}

// Page is one page of records plus the unpaged total
type Page struct {
	Items    []store.Record `json:"items"`
	Total    int            `json:"total"`
	Page     int            `json:"page"`
	PageSize int            `json:"page_size"`
}

// Service implements create/read/update/delete for all entity types
type Service struct {
	store    store.Store
	registry *registry.Registry
	scorer   VendorScorer
	logger   *zap.Logger
	now      func() time.Time
	newID    func() string
}

// NewService builds the CRUD service. scorer may be nil when no risk
// scoring backend is configured.
func NewService(st store.Store, reg *registry.Registry, scorer VendorScorer, logger *zap.Logger) *Service {
	return &Service{
		store:    st,
		registry: reg,
		scorer:   scorer,
		logger:   logger,
		now:      time.Now,
		newID:    func() string { return uuid.New().String() },
	}
}

// Create inserts a new entity with a generated id and display number.
// Business status defaults to draft unless the caller set one.
func (s *Service) Create(ctx context.Context, actor models.Actor, entityType string, fields map[string]any) (store.Record, error) {
	def, err := s.registry.Get(entityType)
	if err != nil {
		return nil, err
	}
	if !models.IsOfficerTier(actor.Role) {
		return nil, errs.Forbidden("role %s may not create %s records", actor.Role, entityType)
	}
	if err := s.checkWritable(def, fields); err != nil {
		return nil, err
	}
	fields = sanitizeFields(fields)
	for _, col := range def.Required {
		if emptyValue(fields[col]) {
			return nil, errs.InvalidInput("%s is required", col)
		}
	}

	now := s.now()
	rec := store.Record{
		"id":            s.newID(),
		def.NumberField: s.newNumber(def.NumberPrefix),
		"status":        registry.StatusDraft,
		"created_by":    actor.ID,
		"created_at":    now,
		"updated_at":    now,
	}
	for col, v := range fields {
		rec[col] = v
	}

	if err := s.store.InsertOne(ctx, def.Table, rec); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", entityType, err)
	}

	s.logger.Info("Entity created",
		zap.String("entity_type", entityType),
		zap.String("id", rec.String("id")),
		zap.String("number", rec.String(def.NumberField)),
		zap.String("created_by", actor.ID))
	return rec, nil
}

// Get returns one entity by id
func (s *Service) Get(ctx context.Context, entityType, id string) (store.Record, error) {
	def, err := s.registry.Get(entityType)
	if err != nil {
		return nil, err
	}
	rec, err := s.store.FindOne(ctx, def.Table, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", entityType, err)
	}
	if rec == nil {
		return nil, errs.NotFound("%s %s not found", entityType, id)
	}
	return rec, nil
}

// List returns a page of entities, optionally narrowed by business
// status and a substring match on the title field.
func (s *Service) List(ctx context.Context, entityType string, opts ListOptions) (*Page, error) {
	def, err := s.registry.Get(entityType)
	if err != nil {
		return nil, err
	}

	page := opts.Page
	if page < 1 {
		page = 1
	}
	size := opts.PageSize
	if size < 1 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}

	q := store.Query{
		OrderBy: "created_at",
		Desc:    true,
		Limit:   size,
		Offset:  (page - 1) * size,
	}
	if opts.Status != "" {
		q.Filter = map[string]any{"status": opts.Status}
	}
	if opts.Search != "" {
		q.Search = map[string]string{def.TitleField: opts.Search}
	}

	items, err := s.store.FindMany(ctx, def.Table, q)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", entityType, err)
	}
	total, err := s.store.Count(ctx, def.Table, q)
	if err != nil {
		return nil, fmt.Errorf("failed to count %s: %w", entityType, err)
	}
	if items == nil {
		items = []store.Record{}
	}
	return &Page{Items: items, Total: total, Page: page, PageSize: size}, nil
}

// Update writes the given domain columns. Workflow bookkeeping columns
// are not writable through this path.
func (s *Service) Update(ctx context.Context, actor models.Actor, entityType, id string, fields map[string]any) (store.Record, error) {
	def, err := s.registry.Get(entityType)
	if err != nil {
		return nil, err
	}
	if !models.IsOfficerTier(actor.Role) {
		return nil, errs.Forbidden("role %s may not update %s records", actor.Role, entityType)
	}
	if len(fields) == 0 {
		return nil, errs.InvalidInput("no fields to update")
	}
	if err := s.checkWritable(def, fields); err != nil {
		return nil, err
	}
	fields = sanitizeFields(fields)
	for _, col := range def.Required {
		if v, ok := fields[col]; ok && emptyValue(v) {
			return nil, errs.InvalidInput("%s cannot be cleared", col)
		}
	}

	updates := store.Record{"updated_at": s.now()}
	for col, v := range fields {
		updates[col] = v
	}
	if err := s.store.UpdateOne(ctx, def.Table, id, updates, nil); err != nil {
		if err == store.ErrNoMatch {
			return nil, errs.NotFound("%s %s not found", entityType, id)
		}
		return nil, fmt.Errorf("failed to update %s: %w", entityType, err)
	}

	s.logger.Info("Entity updated",
		zap.String("entity_type", entityType),
		zap.String("id", id),
		zap.String("updated_by", actor.ID))
	return s.Get(ctx, entityType, id)
}

// Delete removes an entity. Only admins may delete, and only while the
// approval workflow has not touched the record.
func (s *Service) Delete(ctx context.Context, actor models.Actor, entityType, id string) error {
	def, err := s.registry.Get(entityType)
	if err != nil {
		return err
	}
	if actor.Role != models.RoleAdmin {
		return errs.Forbidden("only admins may delete %s records", entityType)
	}
	rec, err := s.store.FindOne(ctx, def.Table, id)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", entityType, err)
	}
	if rec == nil {
		return errs.NotFound("%s %s not found", entityType, id)
	}
	if rec["workflow_status"] != nil && rec.String("workflow_status") != "" {
		return errs.Conflict("%s %s has entered the approval workflow and can no longer be deleted", entityType, id)
	}

	if err := s.store.DeleteOne(ctx, def.Table, id); err != nil {
		if err == store.ErrNoMatch {
			return errs.NotFound("%s %s not found", entityType, id)
		}
		return fmt.Errorf("failed to delete %s: %w", entityType, err)
	}

	s.logger.Info("Entity deleted",
		zap.String("entity_type", entityType),
		zap.String("id", id),
		zap.String("deleted_by", actor.ID))
	return nil
}

func (s *Service) checkWritable(def *registry.Definition, fields map[string]any) error {
	for col := range fields {
		if !def.WritableColumn(col) {
			return errs.InvalidInput("column %q is not writable on %s", col, def.Type)
		}
	}
	return nil
}

func (s *Service) newNumber(prefix string) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:4])
	return fmt.Sprintf("%s-%s-%s", prefix, s.now().Format("20060102"), suffix)
}

// sanitizeFields strips control characters from string values before
// they reach storage.
func sanitizeFields(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for col, v := range fields {
		if s, ok := v.(string); ok {
			out[col] = utils.SanitizeString(s)
			continue
		}
		out[col] = v
	}
	return out
}

func emptyValue(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	return false
}
