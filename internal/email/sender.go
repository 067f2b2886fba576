// Package email delivers account mail. The deployment has no SMTP
// relay; messages go out as Lark DMs addressed by account email, which
// is where this team reads anyway.
package email

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/procurehq/procure-server/internal/lark"
)

// Sender pushes account messages through the Lark message API
type Sender struct {
	api    *lark.MessageAPI
	logger *zap.Logger
}

// NewSender creates a Lark-backed mail sender
func NewSender(api *lark.MessageAPI, logger *zap.Logger) *Sender {
	return &Sender{api: api, logger: logger}
}

// SendPasswordReset delivers a single-use reset token to the account
// holder. The token is never echoed back over the API, so this message
// is the only place it appears.
func (s *Sender) SendPasswordReset(ctx context.Context, email, token string, ttl time.Duration) error {
	body := fmt.Sprintf(
		"A password reset was requested for your account.\n\nReset token: %s\n\nThe token can be used once and expires in %s. If you did not request this, you can ignore this message.",
		token, formatTTL(ttl))

	messageID, err := s.api.SendText(ctx, email, body)
	if err != nil {
		return fmt.Errorf("failed to send password reset: %w", err)
	}

	s.logger.Info("Password reset message sent",
		zap.String("email", email),
		zap.String("message_id", messageID))
	return nil
}

func formatTTL(ttl time.Duration) string {
	if ttl >= time.Hour && ttl%time.Hour == 0 {
		hours := int(ttl / time.Hour)
		if hours == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", hours)
	}
	return ttl.String()
}
