package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/classroom-tools/lesson-tutor/internal/biz/domain"
	"github.com/classroom-tools/lesson-tutor/internal/biz/repo"
)

// ErrEmptyReply is returned when the model answered with no text
var ErrEmptyReply = errors.New("empty reply")

// ConversationUsecase handles conversation logic (aggregate)
type ConversationUsecase struct {
	sessionUC      *SessionUsecase
	llmRepo        repo.LLMRepo
	transcriptRepo repo.TranscriptRepo
	maxHistory     int
}

// NewConversationUsecase creates a new conversation usecase.
// transcriptRepo may be nil; maxHistory <= 0 sends the whole history.
func NewConversationUsecase(
	sessionUC *SessionUsecase,
	llmRepo repo.LLMRepo,
	transcriptRepo repo.TranscriptRepo,
	maxHistory int,
) *ConversationUsecase {
	return &ConversationUsecase{
		sessionUC:      sessionUC,
		llmRepo:        llmRepo,
		transcriptRepo: transcriptRepo,
		maxHistory:     maxHistory,
	}
}

// AskResult represents the outcome of one question
type AskResult struct {
	Reply     string
	SessionID string
	IsNew     bool
}

// Ask forwards a student's message to the tutor session bound to lesson (core method).
// Asks for one recipient run one at a time, whichever entry point they come from.
func (uc *ConversationUsecase) Ask(ctx context.Context, recipient string, lesson *domain.Lesson, text string) (*AskResult, error) {
	unlock := uc.sessionUC.Lock(recipient)
	defer unlock()

	// 1. Resolve session
	session, isNew, err := uc.sessionUC.resolveLocked(ctx, recipient, lesson)
	if err != nil {
		return nil, fmt.Errorf("resolve session: %w", err)
	}

	// 2. Call the model with the windowed history
	history := session.Window(uc.maxHistory)
	fmt.Printf("[ConvUC] Asking for %s (session=%s, new=%v, history=%d turns)\n", recipient, session.ID, isNew, len(history))

	reply, err := uc.llmRepo.Chat(ctx, session.SystemPrompt, history, text)
	if err != nil {
		return nil, fmt.Errorf("chat: %w", err)
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return nil, ErrEmptyReply
	}

	// 3. Record the exchange
	turns := []domain.Turn{
		{Role: domain.RoleUser, Text: text},
		{Role: domain.RoleModel, Text: reply},
	}
	if err := uc.sessionUC.AppendTurns(ctx, recipient, turns...); err != nil {
		fmt.Printf("[ConvUC] Warning: failed to append turns: %v\n", err)
	}
	uc.recordTranscript(ctx, recipient, session.LessonDate, turns)

	return &AskResult{
		Reply:     reply,
		SessionID: session.ID,
		IsNew:     isNew,
	}, nil
}

func (uc *ConversationUsecase) recordTranscript(ctx context.Context, recipient, lessonDate string, turns []domain.Turn) {
	if uc.transcriptRepo == nil {
		return
	}
	now := time.Now()
	for _, t := range turns {
		entry := &domain.TranscriptEntry{
			Recipient:  recipient,
			LessonDate: lessonDate,
			Role:       t.Role,
			Content:    t.Text,
			CreatedAt:  now,
		}
		if err := uc.transcriptRepo.AppendTurn(ctx, entry); err != nil {
			fmt.Printf("[ConvUC] Warning: failed to record transcript: %v\n", err)
			return
		}
	}
}
