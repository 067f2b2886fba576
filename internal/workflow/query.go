package workflow

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/procurehq/procure-server/internal/errs"
	"github.com/procurehq/procure-server/internal/models"
	"github.com/procurehq/procure-server/internal/registry"
	"github.com/procurehq/procure-server/internal/store"
)

// Query answers read-only workflow questions: the status view with the
// caller's allowed next actions, and the per-user pending worklist.
// Nothing here mutates state, including the audit trail.
type Query struct {
	store    store.Store
	registry *registry.Registry
	logger   *zap.Logger
}

// NewQuery creates a workflow query service
func NewQuery(st store.Store, reg *registry.Registry, logger *zap.Logger) *Query {
	return &Query{store: st, registry: reg, logger: logger}
}

// Status returns one entity's workflow view. The four capability
// booleans reflect the caller's role, reviewer membership and the
// current workflow state; a failing gate condition turns all of them
// off regardless of role.
func (q *Query) Status(ctx context.Context, actor models.Actor, entityType, entityID string) (*models.WorkflowStatus, error) {
	def, err := q.registry.Get(entityType)
	if err != nil {
		return nil, err
	}
	if !def.Workflow {
		return nil, errs.InvalidInput("entity type %q is not governed by the approval workflow", entityType)
	}
	rec, err := q.store.FindOne(ctx, def.Table, entityID)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s %s: %w", def.Type, entityID, err)
	}
	if rec == nil {
		return nil, errs.NotFound("%s %s not found", def.Type, entityID)
	}

	reviewers, err := decodeReviewers(rec["reviewers"])
	if err != nil {
		return nil, err
	}
	trail, err := decodeAudit(rec["audit_trail"])
	if err != nil {
		return nil, err
	}
	if reviewers == nil {
		reviewers = []models.ReviewerAssignment{}
	}
	if trail == nil {
		trail = []models.AuditEntry{}
	}

	ws := rec.String("workflow_status")
	gateOK := def.Gate == nil || def.Gate(rec) == nil
	officer := models.IsOfficerTier(actor.Role)

	pendingReviewer := false
	for _, r := range reviewers {
		if r.UserID == actor.ID && r.Status == models.ReviewerPending {
			pendingReviewer = true
			break
		}
	}

	return &models.WorkflowStatus{
		EntityType:        def.Type,
		EntityID:          entityID,
		Status:            rec.String("status"),
		WorkflowStatus:    ws,
		Reviewers:         reviewers,
		ReviewRequestedBy: rec.String("review_requested_by"),
		ReviewRequestedAt: rec.Time("review_requested_at"),
		HoPRequestedBy:    rec.String("hop_requested_by"),
		HoPRequestedAt:    rec.Time("hop_requested_at"),
		HoPDecision:       rec.String("hop_decision"),
		HoPDecisionBy:     rec.String("hop_decision_by"),
		HoPDecisionAt:     rec.Time("hop_decision_at"),
		AuditTrail:        trail,
		CanForwardReview:  officer && gateOK,
		CanForwardHoP:     officer && gateOK,
		CanReview:         pendingReviewer && ws == models.WorkflowPendingReview && gateOK,
		CanHoPDecide:      models.IsHoPTier(actor.Role) && ws == models.WorkflowPendingHoPApproval && gateOK,
	}, nil
}

// PendingForUser builds the caller's worklist across every governed
// entity type, in registration order. The review list holds entities
// where the caller is a still-pending reviewer; the approval list is
// populated only for approval-tier callers.
func (q *Query) PendingForUser(ctx context.Context, actor models.Actor) (*models.PendingWork, error) {
	work := &models.PendingWork{
		PendingReview:      []models.PendingItem{},
		PendingHoPApproval: []models.PendingItem{},
	}
	hopTier := models.IsHoPTier(actor.Role)

	for _, t := range q.registry.WorkflowTypes() {
		def, err := q.registry.Get(t)
		if err != nil {
			return nil, err
		}

		rows, err := q.store.FindMany(ctx, def.Table, store.Query{
			Filter:  map[string]any{"workflow_status": models.WorkflowPendingReview},
			OrderBy: "created_at",
		})
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s for pending reviews: %w", def.Table, err)
		}
		for _, rec := range rows {
			reviewers, err := decodeReviewers(rec["reviewers"])
			if err != nil {
				q.logger.Warn("Skipping record with undecodable reviewers",
					zap.String("table", def.Table),
					zap.String("id", rec.String("id")),
					zap.Error(err))
				continue
			}
			for _, r := range reviewers {
				if r.UserID == actor.ID && r.Status == models.ReviewerPending {
					work.PendingReview = append(work.PendingReview, pendingItem(def, rec))
					break
				}
			}
		}

		if !hopTier {
			continue
		}
		rows, err = q.store.FindMany(ctx, def.Table, store.Query{
			Filter:  map[string]any{"workflow_status": models.WorkflowPendingHoPApproval},
			OrderBy: "created_at",
		})
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s for pending approvals: %w", def.Table, err)
		}
		for _, rec := range rows {
			work.PendingHoPApproval = append(work.PendingHoPApproval, pendingItem(def, rec))
		}
	}
	return work, nil
}

func pendingItem(def *registry.Definition, rec store.Record) models.PendingItem {
	return models.PendingItem{
		EntityType: def.Type,
		EntityID:   rec.String("id"),
		Number:     rec.String(def.NumberField),
		Title:      rec.String(def.TitleField),
	}
}
