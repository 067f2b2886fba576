package server

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// WorkflowSummaryReport handles GET /api/v1/reports/workflow-summary
func (h *Handlers) WorkflowSummaryReport(c *gin.Context) {
	summary, err := h.reports.WorkflowSummary(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: summary})
}

// VendorSpendReport handles GET /api/v1/reports/vendor-spend
func (h *Handlers) VendorSpendReport(c *gin.Context) {
	spend, err := h.reports.VendorSpend(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: spend})
}

// PendingAgeingReport handles GET /api/v1/reports/pending-ageing
func (h *Handlers) PendingAgeingReport(c *gin.Context) {
	ageing, err := h.reports.PendingAgeing(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: ageing})
}

// ExportWorkbook handles GET /api/v1/reports/export. The workbook is
// built in memory so a failed export can still answer with JSON.
func (h *Handlers) ExportWorkbook(c *gin.Context) {
	var buf bytes.Buffer
	if err := h.exporter.Export(c.Request.Context(), &buf); err != nil {
		h.respondError(c, err)
		return
	}

	filename := fmt.Sprintf("procurement-%s.xlsx", time.Now().UTC().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}
