package server

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/procurehq/procure-server/internal/errs"
)

// UploadDocument handles POST /api/v1/:entityType/:id/documents.
// The body is multipart form data with the content in a "file" field.
func (h *Handlers) UploadDocument(c *gin.Context) {
	def, ok := h.definitionFromPath(c)
	if !ok {
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		h.respondError(c, errs.InvalidInput("multipart field %q is required", "file"))
		return
	}
	src, err := file.Open()
	if err != nil {
		h.respondError(c, fmt.Errorf("failed to open upload: %w", err))
		return
	}
	defer src.Close()

	doc, err := h.documents.Upload(c.Request.Context(), actorFrom(c), def.Type, c.Param("id"),
		file.Filename, file.Header.Get("Content-Type"), file.Size, src)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: doc})
}

// ListDocuments handles GET /api/v1/:entityType/:id/documents
func (h *Handlers) ListDocuments(c *gin.Context) {
	def, ok := h.definitionFromPath(c)
	if !ok {
		return
	}

	docs, err := h.documents.List(c.Request.Context(), def.Type, c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: docs})
}

// DownloadDocument handles GET /api/v1/documents/:id/download
func (h *Handlers) DownloadDocument(c *gin.Context) {
	doc, content, err := h.documents.Download(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	defer content.Close()

	contentType := doc.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.FileName))
	c.DataFromReader(http.StatusOK, doc.SizeBytes, contentType, content, nil)
}

// ClassifyDocument handles POST /api/v1/documents/:id/classify
func (h *Handlers) ClassifyDocument(c *gin.Context) {
	result, err := h.documents.Classify(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: result})
}
