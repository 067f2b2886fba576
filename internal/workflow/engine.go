// Package workflow implements the approval workflow shared by every
// governed entity type: an officer forwards an entity to named
// reviewers, the reviewers respond independently, and the Head of
// Procurement records the final decision. All state lives on the entity
// record itself; every transition is a single guarded write.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/procurehq/procure-server/internal/errs"
	"github.com/procurehq/procure-server/internal/models"
	"github.com/procurehq/procure-server/internal/registry"
	"github.com/procurehq/procure-server/internal/store"
)

// UserDirectory resolves reviewer ids and role tiers. GetByID returns
// nil without error when no such user exists.
type UserDirectory interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	ListByRoles(ctx context.Context, roles ...string) ([]*models.User, error)
}

// Notifier records a notification for later delivery. Emit returns
// nothing: a lost notification must never fail the workflow write that
// triggered it, so implementations log and swallow their own errors.
type Notifier interface {
	Emit(ctx context.Context, n *models.Notification)
}

// Engine executes workflow transitions. It holds no per-entity state;
// concurrency control is the conditional update on the entity row.
type Engine struct {
	store    store.Store
	registry *registry.Registry
	users    UserDirectory
	notifier Notifier
	logger   *zap.Logger
	now      func() time.Time
}

// NewEngine creates a workflow engine
func NewEngine(st store.Store, reg *registry.Registry, users UserDirectory, notifier Notifier, logger *zap.Logger) *Engine {
	return &Engine{
		store:    st,
		registry: reg,
		users:    users,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

// ForwardForReview opens a review round: it builds a fresh reviewer
// list (discarding any previous round wholesale), moves the entity to
// pending review and notifies each reviewer. Allowed from any current
// workflow state.
func (e *Engine) ForwardForReview(ctx context.Context, actor models.Actor, entityType, entityID string, reviewerIDs []string, notes string) error {
	def, err := e.governedDefinition(entityType)
	if err != nil {
		return err
	}
	if !models.IsOfficerTier(actor.Role) {
		return errs.Forbidden("role %q may not forward for review", actor.Role)
	}
	rec, err := e.loadGated(ctx, def, entityID)
	if err != nil {
		return err
	}
	if len(reviewerIDs) == 0 {
		return errs.InvalidInput("at least one reviewer is required")
	}

	now := e.now().UTC()
	seen := make(map[string]bool, len(reviewerIDs))
	assignments := make([]models.ReviewerAssignment, 0, len(reviewerIDs))
	for _, id := range reviewerIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		user, err := e.users.GetByID(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to resolve reviewer %s: %w", id, err)
		}
		if user == nil || !user.Active {
			return errs.NotFound("reviewer %s not found", id)
		}
		assignments = append(assignments, models.ReviewerAssignment{
			UserID:     user.ID,
			UserName:   user.Name,
			Status:     models.ReviewerPending,
			AssignedAt: now,
		})
	}

	reviewersJSON, err := encodeReviewers(assignments)
	if err != nil {
		return err
	}
	trailJSON, err := appendAudit(rec["audit_trail"], models.AuditEntry{
		Action:    models.AuditForwardedForReview,
		UserID:    actor.ID,
		Timestamp: now,
		Notes:     notes,
	})
	if err != nil {
		return err
	}

	updates := store.Record{
		"workflow_status":     models.WorkflowPendingReview,
		"reviewers":           reviewersJSON,
		"review_requested_by": actor.ID,
		"review_requested_at": now,
		"review_notes":        nullable(notes),
		"audit_trail":         trailJSON,
		"updated_at":          now,
	}
	guard := store.Guard{"workflow_status": rec["workflow_status"]}
	if err := e.applyUpdate(ctx, def, entityID, updates, guard); err != nil {
		return err
	}

	e.logger.Info("Forwarded entity for review",
		zap.String("entity_type", def.Type),
		zap.String("entity_id", entityID),
		zap.String("requested_by", actor.ID),
		zap.Int("reviewers", len(assignments)))

	number := rec.String(def.NumberField)
	title := rec.String(def.TitleField)
	for _, a := range assignments {
		e.notifier.Emit(ctx, &models.Notification{
			UserID:      a.UserID,
			ItemType:    def.Type,
			ItemID:      entityID,
			ItemNumber:  number,
			ItemTitle:   title,
			RequestedBy: actor.ID,
			Message:     fmt.Sprintf("%s asked you to review %s %s", actor.Name, def.Type, number),
		})
	}
	return nil
}

// ReviewerDecision records one assigned reviewer's verdict. The round
// advances only once every reviewer has responded; a single "returned"
// among the responses sends the entity back for revision even when all
// others validated.
func (e *Engine) ReviewerDecision(ctx context.Context, actor models.Actor, entityType, entityID, decision, notes string) error {
	if decision != models.ReviewerValidated && decision != models.ReviewerReturned {
		return errs.InvalidInput("decision must be %q or %q, got %q",
			models.ReviewerValidated, models.ReviewerReturned, decision)
	}
	def, err := e.governedDefinition(entityType)
	if err != nil {
		return err
	}
	rec, err := e.loadGated(ctx, def, entityID)
	if err != nil {
		return err
	}
	if rec.String("workflow_status") != models.WorkflowPendingReview {
		return errs.Conflict("%s %s is not pending review", def.Type, entityID)
	}

	reviewersRaw := rec["reviewers"]
	reviewers, err := decodeReviewers(reviewersRaw)
	if err != nil {
		return err
	}
	idx := -1
	for i := range reviewers {
		if reviewers[i].UserID == actor.ID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return errs.Forbidden("user %s is not an assigned reviewer", actor.ID)
	}
	if reviewers[idx].Status != models.ReviewerPending {
		return errs.Conflict("reviewer %s has already responded", actor.ID)
	}

	now := e.now().UTC()
	reviewers[idx].Status = decision
	reviewers[idx].DecisionAt = &now
	reviewers[idx].Notes = notes

	allResponded := true
	anyReturned := false
	for _, r := range reviewers {
		if r.Status == models.ReviewerPending {
			allResponded = false
		}
		if r.Status == models.ReviewerReturned {
			anyReturned = true
		}
	}
	nextStatus := models.WorkflowPendingReview
	if allResponded {
		if anyReturned {
			nextStatus = models.WorkflowReturnedForRevision
		} else {
			nextStatus = models.WorkflowReviewComplete
		}
	}

	action := models.AuditReviewerValidated
	if decision == models.ReviewerReturned {
		action = models.AuditReviewerReturned
	}
	trailJSON, err := appendAudit(rec["audit_trail"], models.AuditEntry{
		Action:    action,
		UserID:    actor.ID,
		Timestamp: now,
		Notes:     notes,
	})
	if err != nil {
		return err
	}
	reviewersJSON, err := encodeReviewers(reviewers)
	if err != nil {
		return err
	}

	updates := store.Record{
		"workflow_status": nextStatus,
		"reviewers":       reviewersJSON,
		"audit_trail":     trailJSON,
		"updated_at":      now,
	}
	// Guarding on the reviewers column as read catches a concurrent
	// decision by another reviewer, not just a state change.
	guard := store.Guard{
		"workflow_status": rec["workflow_status"],
		"reviewers":       reviewersRaw,
	}
	if err := e.applyUpdate(ctx, def, entityID, updates, guard); err != nil {
		return err
	}

	e.logger.Info("Recorded reviewer decision",
		zap.String("entity_type", def.Type),
		zap.String("entity_id", entityID),
		zap.String("reviewer", actor.ID),
		zap.String("decision", decision),
		zap.String("workflow_status", nextStatus))

	if allResponded {
		if requester := rec.String("review_requested_by"); requester != "" {
			number := rec.String(def.NumberField)
			message := fmt.Sprintf("All reviewers validated %s %s", def.Type, number)
			if anyReturned {
				message = fmt.Sprintf("%s %s was returned for revision", def.Type, number)
			}
			e.notifier.Emit(ctx, &models.Notification{
				UserID:      requester,
				ItemType:    def.Type,
				ItemID:      entityID,
				ItemNumber:  number,
				ItemTitle:   rec.String(def.TitleField),
				RequestedBy: actor.ID,
				Message:     message,
			})
		}
	}
	return nil
}

// ForwardToHoP sends the entity to the Head of Procurement for the
// final decision and notifies every approval-tier user. Review is
// optional: the forward is allowed from any workflow state, including
// one that never went through review.
func (e *Engine) ForwardToHoP(ctx context.Context, actor models.Actor, entityType, entityID, notes string) error {
	def, err := e.governedDefinition(entityType)
	if err != nil {
		return err
	}
	if !models.IsOfficerTier(actor.Role) {
		return errs.Forbidden("role %q may not forward for approval", actor.Role)
	}
	rec, err := e.loadGated(ctx, def, entityID)
	if err != nil {
		return err
	}

	now := e.now().UTC()
	trailJSON, err := appendAudit(rec["audit_trail"], models.AuditEntry{
		Action:    models.AuditForwardedToHoP,
		UserID:    actor.ID,
		Timestamp: now,
		Notes:     notes,
	})
	if err != nil {
		return err
	}

	updates := store.Record{
		"workflow_status":   models.WorkflowPendingHoPApproval,
		"hop_requested_by":  actor.ID,
		"hop_requested_at":  now,
		"hop_request_notes": nullable(notes),
		"audit_trail":       trailJSON,
		"updated_at":        now,
	}
	guard := store.Guard{"workflow_status": rec["workflow_status"]}
	if err := e.applyUpdate(ctx, def, entityID, updates, guard); err != nil {
		return err
	}

	e.logger.Info("Forwarded entity for final approval",
		zap.String("entity_type", def.Type),
		zap.String("entity_id", entityID),
		zap.String("requested_by", actor.ID))

	approvers, err := e.users.ListByRoles(ctx, models.HoPTierRoles()...)
	if err != nil {
		// The state write already succeeded; losing the notifications
		// is acceptable, losing the transition is not.
		e.logger.Warn("Failed to list approvers for notification",
			zap.String("entity_type", def.Type),
			zap.String("entity_id", entityID),
			zap.Error(err))
		return nil
	}
	number := rec.String(def.NumberField)
	title := rec.String(def.TitleField)
	for _, u := range approvers {
		e.notifier.Emit(ctx, &models.Notification{
			UserID:      u.ID,
			ItemType:    def.Type,
			ItemID:      entityID,
			ItemNumber:  number,
			ItemTitle:   title,
			RequestedBy: actor.ID,
			Message:     fmt.Sprintf("%s %s awaits your approval decision", def.Type, number),
		})
	}
	return nil
}

// HoPDecision records the final verdict. Approval moves the entity's
// business status to its type-specific terminal value; rejection always
// sets it to rejected. Only the HoP path produces a terminal rejection.
func (e *Engine) HoPDecision(ctx context.Context, actor models.Actor, entityType, entityID, decision, notes string) error {
	if decision != models.DecisionApproved && decision != models.DecisionRejected {
		return errs.InvalidInput("decision must be %q or %q, got %q",
			models.DecisionApproved, models.DecisionRejected, decision)
	}
	def, err := e.governedDefinition(entityType)
	if err != nil {
		return err
	}
	if !models.IsHoPTier(actor.Role) {
		return errs.Forbidden("role %q may not record approval decisions", actor.Role)
	}
	rec, err := e.loadGated(ctx, def, entityID)
	if err != nil {
		return err
	}
	if rec.String("workflow_status") != models.WorkflowPendingHoPApproval {
		return errs.Conflict("%s %s is not awaiting approval", def.Type, entityID)
	}

	now := e.now().UTC()
	workflowStatus := models.WorkflowApproved
	businessStatus := def.ApprovedStatus
	action := models.AuditHoPApproved
	if decision == models.DecisionRejected {
		workflowStatus = models.WorkflowRejected
		businessStatus = registry.StatusRejected
		action = models.AuditHoPRejected
	}
	trailJSON, err := appendAudit(rec["audit_trail"], models.AuditEntry{
		Action:    action,
		UserID:    actor.ID,
		Timestamp: now,
		Notes:     notes,
	})
	if err != nil {
		return err
	}

	updates := store.Record{
		"workflow_status":    workflowStatus,
		"status":             businessStatus,
		"hop_decision":       decision,
		"hop_decision_by":    actor.ID,
		"hop_decision_at":    now,
		"hop_decision_notes": nullable(notes),
		"audit_trail":        trailJSON,
		"updated_at":         now,
	}
	guard := store.Guard{"workflow_status": rec["workflow_status"]}
	if err := e.applyUpdate(ctx, def, entityID, updates, guard); err != nil {
		return err
	}

	e.logger.Info("Recorded final decision",
		zap.String("entity_type", def.Type),
		zap.String("entity_id", entityID),
		zap.String("decision", decision),
		zap.String("decided_by", actor.ID))

	if requester := rec.String("hop_requested_by"); requester != "" {
		number := rec.String(def.NumberField)
		e.notifier.Emit(ctx, &models.Notification{
			UserID:      requester,
			ItemType:    def.Type,
			ItemID:      entityID,
			ItemNumber:  number,
			ItemTitle:   rec.String(def.TitleField),
			RequestedBy: actor.ID,
			Message:     fmt.Sprintf("%s %s was %s by %s", def.Type, number, decision, actor.Name),
		})
	}
	return nil
}

// governedDefinition resolves entityType and rejects types outside the
// approval workflow.
func (e *Engine) governedDefinition(entityType string) (*registry.Definition, error) {
	def, err := e.registry.Get(entityType)
	if err != nil {
		return nil, err
	}
	if !def.Workflow {
		return nil, errs.InvalidInput("entity type %q is not governed by the approval workflow", entityType)
	}
	return def, nil
}

// loadGated fetches the entity and applies the type's gate condition.
// A gated-out entity refuses every workflow operation.
func (e *Engine) loadGated(ctx context.Context, def *registry.Definition, entityID string) (store.Record, error) {
	rec, err := e.store.FindOne(ctx, def.Table, entityID)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s %s: %w", def.Type, entityID, err)
	}
	if rec == nil {
		return nil, errs.NotFound("%s %s not found", def.Type, entityID)
	}
	if def.Gate != nil {
		if gerr := def.Gate(rec); gerr != nil {
			return nil, errs.Forbidden("%v", gerr)
		}
	}
	return rec, nil
}

// applyUpdate performs the guarded write, translating a zero-row match
// into a Conflict so callers can re-fetch and retry.
func (e *Engine) applyUpdate(ctx context.Context, def *registry.Definition, entityID string, updates store.Record, guard store.Guard) error {
	err := e.store.UpdateOne(ctx, def.Table, entityID, updates, guard)
	if err == nil {
		return nil
	}
	if errors.Is(err, store.ErrNoMatch) {
		return errs.Conflict("%s %s was modified by a concurrent request", def.Type, entityID)
	}
	return fmt.Errorf("failed to update %s %s: %w", def.Type, entityID, err)
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
