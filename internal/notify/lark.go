package notify

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/procurehq/procure-server/internal/lark"
	"github.com/procurehq/procure-server/internal/models"
)

// LarkMessenger pushes notifications to recipients over Lark, addressed
// by account email.
type LarkMessenger struct {
	api    *lark.MessageAPI
	logger *zap.Logger
}

// NewLarkMessenger creates a Lark-backed messenger
func NewLarkMessenger(api *lark.MessageAPI, logger *zap.Logger) *LarkMessenger {
	return &LarkMessenger{api: api, logger: logger}
}

// Send delivers one notification as a text message
func (m *LarkMessenger) Send(ctx context.Context, recipient *models.User, n *models.Notification) error {
	if recipient.Email == "" {
		return fmt.Errorf("recipient %s has no email address", recipient.ID)
	}

	text := n.Message
	if n.ItemTitle != "" {
		text = fmt.Sprintf("%s\n%s: %s", n.Message, n.ItemNumber, n.ItemTitle)
	}

	if _, err := m.api.SendText(ctx, recipient.Email, text); err != nil {
		return fmt.Errorf("failed to deliver notification %s: %w", n.ID, err)
	}
	return nil
}
