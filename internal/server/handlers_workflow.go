package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/procurehq/procure-server/internal/errs"
)

type forwardReviewRequest struct {
	ReviewerIDs []string `json:"reviewer_ids"`
	Notes       string   `json:"notes"`
}

type decisionRequest struct {
	Decision string `json:"decision"`
	Notes    string `json:"notes"`
}

// bindOptionalJSON fills req from the body when one was sent. The
// workflow engine validates field values itself, so an empty body is
// not a bind error here.
func (h *Handlers) bindOptionalJSON(c *gin.Context, req any) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(req); err != nil {
		h.respondError(c, errs.InvalidInput("invalid request body: %v", err))
		return false
	}
	return true
}

// ForwardForReview handles POST /api/v1/:entityType/:id/workflow/forward-review
func (h *Handlers) ForwardForReview(c *gin.Context) {
	def, ok := h.definitionFromPath(c)
	if !ok {
		return
	}
	var req forwardReviewRequest
	if !h.bindOptionalJSON(c, &req) {
		return
	}

	if err := h.engine.ForwardForReview(c.Request.Context(), actorFrom(c), def.Type, c.Param("id"), req.ReviewerIDs, req.Notes); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true})
}

// ReviewerDecision handles POST /api/v1/:entityType/:id/workflow/review-decision
func (h *Handlers) ReviewerDecision(c *gin.Context) {
	def, ok := h.definitionFromPath(c)
	if !ok {
		return
	}
	var req decisionRequest
	if !h.bindOptionalJSON(c, &req) {
		return
	}

	if err := h.engine.ReviewerDecision(c.Request.Context(), actorFrom(c), def.Type, c.Param("id"), req.Decision, req.Notes); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true})
}

// ForwardToHoP handles POST /api/v1/:entityType/:id/workflow/forward-hop
func (h *Handlers) ForwardToHoP(c *gin.Context) {
	def, ok := h.definitionFromPath(c)
	if !ok {
		return
	}
	var req decisionRequest
	if !h.bindOptionalJSON(c, &req) {
		return
	}

	if err := h.engine.ForwardToHoP(c.Request.Context(), actorFrom(c), def.Type, c.Param("id"), req.Notes); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true})
}

// HoPDecision handles POST /api/v1/:entityType/:id/workflow/hop-decision
func (h *Handlers) HoPDecision(c *gin.Context) {
	def, ok := h.definitionFromPath(c)
	if !ok {
		return
	}
	var req decisionRequest
	if !h.bindOptionalJSON(c, &req) {
		return
	}

	if err := h.engine.HoPDecision(c.Request.Context(), actorFrom(c), def.Type, c.Param("id"), req.Decision, req.Notes); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true})
}

// WorkflowStatus handles GET /api/v1/:entityType/:id/workflow
func (h *Handlers) WorkflowStatus(c *gin.Context) {
	def, ok := h.definitionFromPath(c)
	if !ok {
		return
	}

	view, err := h.query.Status(c.Request.Context(), actorFrom(c), def.Type, c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: view})
}

// PendingWork handles GET /api/v1/workflow/pending
func (h *Handlers) PendingWork(c *gin.Context) {
	work, err := h.query.PendingForUser(c.Request.Context(), actorFrom(c))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: work})
}
