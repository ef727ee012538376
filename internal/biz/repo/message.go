package repo

import "context"

// MessengerRepo is the outbound messaging interface
// Responsible for delivering text over WhatsApp
type MessengerRepo interface {
	// SendText sends a text message, returns the provider message ID
	SendText(ctx context.Context, recipient, text string) (string, error)

	// Reply sends a text message in response to an inbound message
	Reply(ctx context.Context, recipient, text, replyToID string) (string, error)
}
