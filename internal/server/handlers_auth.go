package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/procurehq/procure-server/internal/auth"
	"github.com/procurehq/procure-server/internal/errs"
	"github.com/procurehq/procure-server/internal/models"
)

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type loginResult struct {
	Token *auth.TokenPair `json:"token"`
	User  *models.User    `json:"user"`
}

// Login handles POST /api/v1/auth/login
func (h *Handlers) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, errs.InvalidInput("invalid request body: %v", err))
		return
	}

	pair, user, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: loginResult{Token: pair, User: user}})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// Refresh handles POST /api/v1/auth/refresh
func (h *Handlers) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, errs.InvalidInput("invalid request body: %v", err))
		return
	}

	pair, err := h.auth.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: pair})
}

// Logout handles POST /api/v1/auth/logout
func (h *Handlers) Logout(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, errs.InvalidInput("invalid request body: %v", err))
		return
	}

	if err := h.auth.Logout(c.Request.Context(), req.RefreshToken); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true})
}

// Me handles GET /api/v1/auth/me
func (h *Handlers) Me(c *gin.Context) {
	actor := actorFrom(c)

	user, err := h.users.GetByID(c.Request.Context(), actor.ID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if user == nil {
		h.respondError(c, errs.NotFound("user %s not found", actor.ID))
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: user})
}

type passwordResetRequest struct {
	Email string `json:"email" binding:"required"`
}

// RequestPasswordReset handles POST /api/v1/auth/password-reset/request
func (h *Handlers) RequestPasswordReset(c *gin.Context) {
	var req passwordResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, errs.InvalidInput("invalid request body: %v", err))
		return
	}

	token, err := h.auth.RequestReset(c.Request.Context(), req.Email)
	if err != nil {
		h.respondError(c, err)
		return
	}

	data := gin.H{"message": "if the account exists, a reset token has been issued"}
	if token != "" {
		if h.resetMail != nil {
			// Delivery failures are logged, never surfaced; the response
			// must not reveal whether the account exists.
			if err := h.resetMail.SendPasswordReset(c.Request.Context(), req.Email, token, auth.ResetTokenTTL); err != nil {
				h.logger.Warn("Failed to deliver reset token",
					zap.Error(err))
			}
		} else {
			// No delivery channel configured; hand the token back.
			data["reset_token"] = token
		}
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: data})
}

type passwordResetConfirm struct {
	Token       string `json:"token" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

// ConfirmPasswordReset handles POST /api/v1/auth/password-reset/confirm
func (h *Handlers) ConfirmPasswordReset(c *gin.Context) {
	var req passwordResetConfirm
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, errs.InvalidInput("invalid request body: %v", err))
		return
	}

	if err := h.auth.ResetPassword(c.Request.Context(), req.Token, req.NewPassword); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true})
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required"`
}

// ChangePassword handles POST /api/v1/auth/change-password
func (h *Handlers) ChangePassword(c *gin.Context) {
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, errs.InvalidInput("invalid request body: %v", err))
		return
	}

	if err := h.auth.ChangePassword(c.Request.Context(), actorFrom(c).ID, req.CurrentPassword, req.NewPassword); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true})
}
