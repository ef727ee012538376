package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/classroom-tools/lesson-tutor/internal/biz/domain"
	"github.com/classroom-tools/lesson-tutor/internal/biz/repo"
	"github.com/classroom-tools/lesson-tutor/internal/biz/usecase"
)

// InboundService answers student messages
type InboundService struct {
	scheduleUC *usecase.ScheduleUsecase
	convUC     *usecase.ConversationUsecase
	composer   *usecase.PromptComposer
	messenger  repo.MessengerRepo
}

// NewInboundService creates a new inbound service
func NewInboundService(
	scheduleUC *usecase.ScheduleUsecase,
	convUC *usecase.ConversationUsecase,
	composer *usecase.PromptComposer,
	messenger repo.MessengerRepo,
) *InboundService {
	return &InboundService{
		scheduleUC: scheduleUC,
		convUC:     convUC,
		composer:   composer,
		messenger:  messenger,
	}
}

// HandleMessage processes one inbound message. Every failure ends in a fallback reply.
func (s *InboundService) HandleMessage(ctx context.Context, msg *domain.InboundMessage) {
	if msg == nil || msg.IsGroup || msg.From == "" {
		return
	}

	text := msg.Text()
	fmt.Printf("[Inbound] Message %s from %s (%d chars)\n", msg.ID, msg.From, len(text))

	// 1. No words, nothing to ask
	if domain.IsWordless(text) {
		s.reply(ctx, msg, s.composer.WordlessReply())
		return
	}

	// 2. Today's lesson, fetched fresh
	lesson, err := s.scheduleUC.LessonFor(ctx, msg.From)
	if err != nil {
		fmt.Printf("[Inbound] Lesson lookup failed: %v\n", err)
		s.reply(ctx, msg, s.composer.ApologyReply())
		return
	}
	if lesson == nil {
		s.reply(ctx, msg, s.composer.NoClassReply())
		return
	}

	// 3. Ask the tutor
	result, err := s.convUC.Ask(ctx, msg.From, lesson, text)
	if err != nil {
		fmt.Printf("[Inbound] Ask failed for %s: %v\n", msg.From, err)
		if errors.Is(err, usecase.ErrEmptyReply) {
			s.reply(ctx, msg, s.composer.EmptyReply())
		} else {
			s.reply(ctx, msg, s.composer.ApologyReply())
		}
		return
	}

	s.reply(ctx, msg, result.Reply)
}

func (s *InboundService) reply(ctx context.Context, msg *domain.InboundMessage, text string) {
	if _, err := s.messenger.Reply(ctx, msg.From, text, msg.ID); err != nil {
		fmt.Printf("[Inbound] Failed to reply to %s: %v\n", msg.From, err)
	}
}
