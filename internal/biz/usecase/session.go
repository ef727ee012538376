package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/classroom-tools/lesson-tutor/internal/biz/domain"
	"github.com/classroom-tools/lesson-tutor/internal/biz/repo"
)

// defaultRetention is how long an untouched session is kept when no idle timeout is set
const defaultRetention = 24 * time.Hour

// SessionUsecase handles session logic
type SessionUsecase struct {
	sessionRepo repo.SessionRepo
	composer    *PromptComposer
	config      domain.SessionConfig
	locks       *keyedMutex
	now         func() time.Time
}

// NewSessionUsecase creates a new session usecase
func NewSessionUsecase(
	sessionRepo repo.SessionRepo,
	composer *PromptComposer,
	config domain.SessionConfig,
) *SessionUsecase {
	return &SessionUsecase{
		sessionRepo: sessionRepo,
		composer:    composer,
		config:      config,
		locks:       newKeyedMutex(),
		now:         time.Now,
	}
}

// Resolve gets the recipient's session for a lesson or creates it.
// A session seeded for another lesson, or no longer fresh, is replaced.
func (uc *SessionUsecase) Resolve(ctx context.Context, recipient string, lesson *domain.Lesson) (*domain.Session, bool, error) {
	unlock := uc.locks.Lock(recipient)
	defer unlock()
	return uc.resolveLocked(ctx, recipient, lesson)
}

// Lock serializes work on a recipient's session and returns the unlock function.
// Callers holding it must use resolveLocked instead of Resolve.
func (uc *SessionUsecase) Lock(recipient string) func() {
	return uc.locks.Lock(recipient)
}

func (uc *SessionUsecase) resolveLocked(ctx context.Context, recipient string, lesson *domain.Lesson) (*domain.Session, bool, error) {
	session, err := uc.sessionRepo.Get(ctx, recipient)
	if err != nil {
		return nil, false, fmt.Errorf("get session: %w", err)
	}

	now := uc.now()
	if session != nil && session.BelongsTo(lesson) && session.IsFresh(uc.config, now) {
		return session, false, nil
	}

	if session != nil {
		fmt.Printf("[SessionUC] Re-seeding session for %s (was %q, now %q)\n", recipient, session.LessonKey, lessonKey(lesson))
	}

	return uc.create(ctx, recipient, lesson, now)
}

func (uc *SessionUsecase) create(ctx context.Context, recipient string, lesson *domain.Lesson, now time.Time) (*domain.Session, bool, error) {
	prompt, err := uc.composer.SystemPrompt(lesson)
	if err != nil {
		return nil, false, fmt.Errorf("compose prompt: %w", err)
	}

	session := &domain.Session{
		ID:           uuid.NewString(),
		Recipient:    recipient,
		LessonKey:    lesson.Key(),
		LessonDate:   lesson.Date,
		Topic:        lesson.Topic,
		SystemPrompt: prompt,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := uc.sessionRepo.Save(ctx, session); err != nil {
		return nil, false, fmt.Errorf("save session: %w", err)
	}

	return session, true, nil
}

// AppendTurns records a completed exchange
func (uc *SessionUsecase) AppendTurns(ctx context.Context, recipient string, turns ...domain.Turn) error {
	return uc.sessionRepo.AppendTurns(ctx, recipient, turns...)
}

// GetSession gets a session
func (uc *SessionUsecase) GetSession(ctx context.Context, recipient string) (*domain.Session, error) {
	return uc.sessionRepo.Get(ctx, recipient)
}

// ListSessions lists all sessions
func (uc *SessionUsecase) ListSessions(ctx context.Context) ([]*domain.Session, error) {
	return uc.sessionRepo.ListAll(ctx)
}

// Reset drops a recipient's session; the next message starts over
func (uc *SessionUsecase) Reset(ctx context.Context, recipient string) error {
	unlock := uc.locks.Lock(recipient)
	defer unlock()
	return uc.sessionRepo.Delete(ctx, recipient)
}

// CleanupStale evicts sessions idle longer than the idle timeout (one day when unset)
func (uc *SessionUsecase) CleanupStale(ctx context.Context) (int64, error) {
	retention := uc.config.IdleTimeout
	if retention <= 0 {
		retention = defaultRetention
	}
	return uc.sessionRepo.CleanupStale(ctx, uc.now().Add(-retention))
}

func lessonKey(l *domain.Lesson) string {
	if l == nil {
		return ""
	}
	return l.Key()
}
