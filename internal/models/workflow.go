package models

import "time"

// Workflow status values. A NULL workflow_status column means the
// entity has never been forwarded; there is no explicit "draft" state
// in the workflow itself.
const (
	WorkflowPendingReview       = "pending_review"
	WorkflowReviewComplete      = "review_complete"
	WorkflowReturnedForRevision = "returned_for_revision"
	WorkflowPendingHoPApproval  = "pending_hop_approval"
	WorkflowApproved            = "approved"
	WorkflowRejected            = "rejected"
)

// Reviewer assignment status values
const (
	ReviewerPending   = "pending"
	ReviewerValidated = "validated"
	ReviewerReturned  = "returned"
)

// HoP decision values
const (
	DecisionApproved = "approved"
	DecisionRejected = "rejected"
)

// Audit trail action values, one per workflow operation outcome
const (
	AuditForwardedForReview = "forwarded_for_review"
	AuditReviewerValidated  = "reviewer_validated"
	AuditReviewerReturned   = "reviewer_returned"
	AuditForwardedToHoP     = "forwarded_to_hop"
	AuditHoPApproved        = "hop_approved"
	AuditHoPRejected        = "hop_rejected"
)

// ReviewerAssignment is one reviewer's slot on an entity under review.
// Once Status leaves "pending" the assignment is immutable; a fresh
// forward-for-review replaces the whole list.
type ReviewerAssignment struct {
	UserID     string     `json:"user_id"`
	UserName   string     `json:"user_name"`
	Status     string     `json:"status"`
	AssignedAt time.Time  `json:"assigned_at"`
	DecisionAt *time.Time `json:"decision_at,omitempty"`
	Notes      string     `json:"notes,omitempty"`
}

// AuditEntry is one append-only record in an entity's audit trail.
// Slice order is the authoritative ordering.
type AuditEntry struct {
	Action    string    `json:"action"`
	UserID    string    `json:"user_id"`
	Timestamp time.Time `json:"timestamp"`
	Notes     string    `json:"notes,omitempty"`
}

// WorkflowStatus is the read-only view returned by the status query
type WorkflowStatus struct {
	EntityType        string               `json:"entity_type"`
	EntityID          string               `json:"entity_id"`
	Status            string               `json:"status"`
	WorkflowStatus    string               `json:"workflow_status"`
	Reviewers         []ReviewerAssignment `json:"reviewers"`
	ReviewRequestedBy string               `json:"review_requested_by,omitempty"`
	ReviewRequestedAt *time.Time           `json:"review_requested_at,omitempty"`
	HoPRequestedBy    string               `json:"hop_requested_by,omitempty"`
	HoPRequestedAt    *time.Time           `json:"hop_requested_at,omitempty"`
	HoPDecision       string               `json:"hop_decision,omitempty"`
	HoPDecisionBy     string               `json:"hop_decision_by,omitempty"`
	HoPDecisionAt     *time.Time           `json:"hop_decision_at,omitempty"`
	AuditTrail        []AuditEntry         `json:"audit_trail"`
	CanForwardReview  bool                 `json:"can_forward_for_review"`
	CanForwardHoP     bool                 `json:"can_forward_to_hop"`
	CanReview         bool                 `json:"can_review"`
	CanHoPDecide      bool                 `json:"can_hop_decide"`
}

// PendingItem is one entry in a user's approval worklist
type PendingItem struct {
	EntityType string `json:"entity_type"`
	EntityID   string `json:"entity_id"`
	Number     string `json:"number"`
	Title      string `json:"title"`
}

// PendingWork groups a user's worklist by the action awaited from them.
// PendingHoPApproval is always empty for callers below HoP tier.
type PendingWork struct {
	PendingReview      []PendingItem `json:"pending_review"`
	PendingHoPApproval []PendingItem `json:"pending_hop_approval"`
}
