package server

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/procurehq/procure-server/internal/errs"
	"github.com/procurehq/procure-server/internal/models"
)

type notificationsQuery struct {
	Limit  int `form:"limit"`
	Offset int `form:"offset"`
}

// ListNotifications handles GET /api/v1/notifications
func (h *Handlers) ListNotifications(c *gin.Context) {
	var q notificationsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.respondError(c, errs.InvalidInput("invalid query: %v", err))
		return
	}
	if q.Limit < 1 {
		q.Limit = 20
	}
	if q.Limit > 100 {
		q.Limit = 100
	}
	if q.Offset < 0 {
		q.Offset = 0
	}

	actor := actorFrom(c)
	items, err := h.notifications.ListByUser(c.Request.Context(), actor.ID, q.Limit, q.Offset)
	if err != nil {
		h.respondError(c, err)
		return
	}
	unread, err := h.notifications.CountUnread(c.Request.Context(), actor.ID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	if items == nil {
		items = []*models.Notification{}
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: gin.H{
		"items":  items,
		"unread": unread,
	}})
}

// MarkNotificationRead handles POST /api/v1/notifications/:id/read.
// Only the recipient can mark a notification, and only once.
func (h *Handlers) MarkNotificationRead(c *gin.Context) {
	err := h.notifications.MarkRead(c.Request.Context(), c.Param("id"), actorFrom(c).ID)
	if errors.Is(err, sql.ErrNoRows) {
		h.respondError(c, errs.NotFound("no unread notification %s", c.Param("id")))
		return
	}
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true})
}

// MarkAllNotificationsRead handles POST /api/v1/notifications/read-all
func (h *Handlers) MarkAllNotificationsRead(c *gin.Context) {
	if err := h.notifications.MarkAllRead(c.Request.Context(), actorFrom(c).ID); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true})
}
