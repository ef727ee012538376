package data

import (
	"context"

	"github.com/classroom-tools/lesson-tutor/internal/biz/domain"
	"github.com/classroom-tools/lesson-tutor/internal/biz/repo"
	"github.com/classroom-tools/lesson-tutor/internal/infra/openai"
)

// ChatClient is the chat-completion client the LLM repository calls
type ChatClient interface {
	Chat(ctx context.Context, systemPrompt string, history []openai.Turn, userMessage string) (string, error)
}

// llmRepo implements the LLM repository
type llmRepo struct {
	client ChatClient
}

// NewLLMRepo creates a new LLM repository
func NewLLMRepo(client ChatClient) repo.LLMRepo {
	return &llmRepo{client: client}
}

// Chat maps the conversation onto chat-completion roles and calls the model
func (r *llmRepo) Chat(ctx context.Context, systemPrompt string, history []domain.Turn, message string) (string, error) {
	turns := make([]openai.Turn, 0, len(history))
	for _, t := range history {
		role := openai.RoleUser
		if t.Role == domain.RoleModel {
			role = openai.RoleAssistant
		}
		turns = append(turns, openai.Turn{Role: role, Content: t.Text})
	}
	return r.client.Chat(ctx, systemPrompt, turns, message)
}
