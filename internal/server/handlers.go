// Package server exposes the HTTP API. Every JSON endpoint wraps its
// payload in one envelope, and service error kinds map onto HTTP status
// codes in a single place.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/procurehq/procure-server/internal/auth"
	"github.com/procurehq/procure-server/internal/documents"
	"github.com/procurehq/procure-server/internal/errs"
	"github.com/procurehq/procure-server/internal/models"
	"github.com/procurehq/procure-server/internal/procurement"
	"github.com/procurehq/procure-server/internal/registry"
	"github.com/procurehq/procure-server/internal/report"
	"github.com/procurehq/procure-server/internal/workflow"
)

// Version reported by the health endpoint
const Version = "1.0.0"

// UserDirectory is the account lookup the API needs beyond what the
// access token carries.
type UserDirectory interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
}

// NotificationInbox is the per-user notification view
type NotificationInbox interface {
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]*models.Notification, error)
	CountUnread(ctx context.Context, userID string) (int, error)
	MarkRead(ctx context.Context, id, userID string) error
	MarkAllRead(ctx context.Context, userID string) error
}

// ResetMailer delivers password reset tokens out of band
type ResetMailer interface {
	SendPasswordReset(ctx context.Context, email, token string, ttl time.Duration) error
}

// Services collects everything the HTTP layer fronts. ResetMail may be
// nil when no delivery channel is configured.
type Services struct {
	Auth          *auth.Service
	Procurement   *procurement.Service
	Workflow      *workflow.Engine
	WorkflowQuery *workflow.Query
	Documents     *documents.Service
	Reports       *report.Service
	Exporter      *report.ExcelExporter
	Users         UserDirectory
	Notifications NotificationInbox
	ResetMail     ResetMailer
	Registry      *registry.Registry
}

// Response is the envelope every JSON endpoint replies with
type Response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// HealthResponse is the health check payload
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
}

// Handlers hosts the HTTP route handlers
type Handlers struct {
	auth          *auth.Service
	procurement   *procurement.Service
	engine        *workflow.Engine
	query         *workflow.Query
	documents     *documents.Service
	reports       *report.Service
	exporter      *report.ExcelExporter
	users         UserDirectory
	notifications NotificationInbox
	resetMail     ResetMailer
	registry      *registry.Registry
	logger        *zap.Logger
}

// NewHandlers creates the handler set
func NewHandlers(services Services, logger *zap.Logger) *Handlers {
	return &Handlers{
		auth:          services.Auth,
		procurement:   services.Procurement,
		engine:        services.Workflow,
		query:         services.WorkflowQuery,
		documents:     services.Documents,
		reports:       services.Reports,
		exporter:      services.Exporter,
		users:         services.Users,
		notifications: services.Notifications,
		resetMail:     services.ResetMail,
		registry:      services.Registry,
		logger:        logger,
	}
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Version:   Version,
	})
}

// respondError maps service error kinds onto HTTP status codes.
// Anything unrecognized is an internal failure and keeps its detail out
// of the response.
func (h *Handlers) respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	message := err.Error()

	switch {
	case errs.IsInvalidInput(err):
		status = http.StatusBadRequest
	case errs.IsForbidden(err):
		status = http.StatusForbidden
	case errs.IsNotFound(err):
		status = http.StatusNotFound
	case errs.IsConflict(err):
		status = http.StatusConflict
	case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrTokenInvalid):
		status = http.StatusUnauthorized
	case errors.Is(err, auth.ErrRateLimited):
		status = http.StatusTooManyRequests
	default:
		h.logger.Error("Request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Error(err))
		message = "internal error"
	}

	c.JSON(status, Response{Success: false, Error: message})
}

// definitionFromPath resolves the :entityType URL segment. On failure
// the 404 has already been written.
func (h *Handlers) definitionFromPath(c *gin.Context) (*registry.Definition, bool) {
	def, err := h.registry.GetByTable(c.Param("entityType"))
	if err != nil {
		h.respondError(c, err)
		return nil, false
	}
	return def, true
}
