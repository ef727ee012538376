package repo

import (
	"context"

	"github.com/classroom-tools/lesson-tutor/internal/biz/domain"
)

// LLMRepo is the chat model interface
type LLMRepo interface {
	// Chat sends the system prompt, prior turns and a new user message, returns the reply text
	Chat(ctx context.Context, systemPrompt string, history []domain.Turn, message string) (string, error)
}
