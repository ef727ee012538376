package data

import (
	"context"

	"github.com/classroom-tools/lesson-tutor/internal/biz/repo"
)

// TextSender is the transport the messenger repository sends through
type TextSender interface {
	SendText(ctx context.Context, to, body string) (string, error)
	Reply(ctx context.Context, to, body, replyToID string) (string, error)
}

// whatsappRepo implements the messenger repository
type whatsappRepo struct {
	client TextSender
}

// NewWhatsAppRepo creates a new WhatsApp repository
func NewWhatsAppRepo(client TextSender) repo.MessengerRepo {
	return &whatsappRepo{client: client}
}

// SendText sends a text message
func (r *whatsappRepo) SendText(ctx context.Context, recipient, text string) (string, error) {
	return r.client.SendText(ctx, recipient, text)
}

// Reply sends a reply to an inbound message
func (r *whatsappRepo) Reply(ctx context.Context, recipient, text, replyToID string) (string, error) {
	return r.client.Reply(ctx, recipient, text, replyToID)
}
