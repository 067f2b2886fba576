package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/procurehq/procure-server/internal/errs"
	"github.com/procurehq/procure-server/internal/procurement"
	"github.com/procurehq/procure-server/internal/registry"
)

type listEntitiesQuery struct {
	Status   string `form:"status"`
	Search   string `form:"search"`
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
}

// ListEntities handles GET /api/v1/:entityType
func (h *Handlers) ListEntities(c *gin.Context) {
	def, ok := h.definitionFromPath(c)
	if !ok {
		return
	}

	var q listEntitiesQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.respondError(c, errs.InvalidInput("invalid query: %v", err))
		return
	}

	page, err := h.procurement.List(c.Request.Context(), def.Type, procurement.ListOptions{
		Status:   q.Status,
		Search:   q.Search,
		Page:     q.Page,
		PageSize: q.PageSize,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: page})
}

// CreateEntity handles POST /api/v1/:entityType
func (h *Handlers) CreateEntity(c *gin.Context) {
	def, ok := h.definitionFromPath(c)
	if !ok {
		return
	}

	var fields map[string]any
	if err := c.ShouldBindJSON(&fields); err != nil {
		h.respondError(c, errs.InvalidInput("invalid request body: %v", err))
		return
	}

	rec, err := h.procurement.Create(c.Request.Context(), actorFrom(c), def.Type, fields)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: rec})
}

// GetEntity handles GET /api/v1/:entityType/:id
func (h *Handlers) GetEntity(c *gin.Context) {
	def, ok := h.definitionFromPath(c)
	if !ok {
		return
	}

	rec, err := h.procurement.Get(c.Request.Context(), def.Type, c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: rec})
}

// UpdateEntity handles PUT /api/v1/:entityType/:id
func (h *Handlers) UpdateEntity(c *gin.Context) {
	def, ok := h.definitionFromPath(c)
	if !ok {
		return
	}

	var fields map[string]any
	if err := c.ShouldBindJSON(&fields); err != nil {
		h.respondError(c, errs.InvalidInput("invalid request body: %v", err))
		return
	}

	rec, err := h.procurement.Update(c.Request.Context(), actorFrom(c), def.Type, c.Param("id"), fields)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: rec})
}

// DeleteEntity handles DELETE /api/v1/:entityType/:id
func (h *Handlers) DeleteEntity(c *gin.Context) {
	def, ok := h.definitionFromPath(c)
	if !ok {
		return
	}

	if err := h.procurement.Delete(c.Request.Context(), actorFrom(c), def.Type, c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true})
}

// AssessVendorRisk handles POST /api/v1/vendors/:id/risk-assessment
func (h *Handlers) AssessVendorRisk(c *gin.Context) {
	rec, result, err := h.procurement.AssessVendorRisk(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: gin.H{
		"vendor":          rec,
		"assessment":      result,
		"meets_threshold": result.RiskScore >= registry.MinVendorRiskScore,
	}})
}
