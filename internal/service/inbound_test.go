package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/classroom-tools/lesson-tutor/internal/biz/domain"
	"github.com/classroom-tools/lesson-tutor/internal/biz/usecase"
)

// Mock implementations

type mockScheduleRepo struct {
	lessons  []domain.Lesson
	students []domain.Student
	err      error
}

func (m *mockScheduleRepo) LessonsOn(ctx context.Context, date string) ([]domain.Lesson, error) {
	if m.err != nil {
		return nil, m.err
	}
	var result []domain.Lesson
	for _, l := range m.lessons {
		if l.IsOn(date) {
			result = append(result, l)
		}
	}
	return result, nil
}

func (m *mockScheduleRepo) StudentsForClass(ctx context.Context, class string) ([]domain.Student, error) {
	var result []domain.Student
	for _, s := range m.students {
		if s.Class == class {
			result = append(result, s)
		}
	}
	return result, nil
}

func (m *mockScheduleRepo) AllStudents(ctx context.Context) ([]domain.Student, error) {
	return m.students, nil
}

type mockSessionRepo struct {
	sessions map[string]*domain.Session
	mu       sync.Mutex
}

func (m *mockSessionRepo) Get(ctx context.Context, recipient string) (*domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[recipient]; ok {
		return s.Clone(), nil
	}
	return nil, nil
}

func (m *mockSessionRepo) Save(ctx context.Context, session *domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[session.Recipient] = session.Clone()
	return nil
}

func (m *mockSessionRepo) Delete(ctx context.Context, recipient string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, recipient)
	return nil
}

func (m *mockSessionRepo) AppendTurns(ctx context.Context, recipient string, turns ...domain.Turn) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[recipient]; ok {
		s.Append(time.Now(), turns...)
	}
	return nil
}

func (m *mockSessionRepo) CleanupStale(ctx context.Context, before time.Time) (int64, error) {
	return 0, nil
}

func (m *mockSessionRepo) ListAll(ctx context.Context) ([]*domain.Session, error) {
	return nil, nil
}

type mockLLMRepo struct {
	reply string
	err   error
	calls int
	mu    sync.Mutex
}

func (m *mockLLMRepo) Chat(ctx context.Context, systemPrompt string, history []domain.Turn, message string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return m.reply, m.err
}

type mockMessenger struct {
	replies []string
	replyTo []string
	err     error
	mu      sync.Mutex
}

func (m *mockMessenger) SendText(ctx context.Context, recipient, text string) (string, error) {
	return m.Reply(ctx, recipient, text, "")
}

func (m *mockMessenger) Reply(ctx context.Context, recipient, text, replyToID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replies = append(m.replies, text)
	m.replyTo = append(m.replyTo, replyToID)
	return "SM1", m.err
}

// Fixture

type inboundFixture struct {
	svc       *InboundService
	schedule  *mockScheduleRepo
	sessions  *mockSessionRepo
	llm       *mockLLMRepo
	messenger *mockMessenger
}

func newInboundFixture(lessons ...domain.Lesson) *inboundFixture {
	f := &inboundFixture{
		schedule:  &mockScheduleRepo{lessons: lessons},
		sessions:  &mockSessionRepo{sessions: make(map[string]*domain.Session)},
		llm:       &mockLLMRepo{reply: "Plants make food using sunlight."},
		messenger: &mockMessenger{},
	}

	composer := usecase.NewPromptComposer(usecase.DefaultPromptConfig)
	scheduleUC := usecase.NewScheduleUsecase(f.schedule, "91", time.Local)
	sessionUC := usecase.NewSessionUsecase(f.sessions, composer, domain.SessionConfig{ResetHour: -1})
	convUC := usecase.NewConversationUsecase(sessionUC, f.llm, nil, 0)

	f.svc = NewInboundService(scheduleUC, convUC, composer, f.messenger)
	return f
}

func todayLesson() domain.Lesson {
	return domain.Lesson{
		Date:    time.Now().Format(domain.DateLayout),
		Topic:   "Photosynthesis",
		Subject: "Science",
		Class:   "7A",
		Teacher: "Ms. Rao",
	}
}

func message(body string) *domain.InboundMessage {
	return &domain.InboundMessage{ID: "SMin", From: "919876543210", Body: body, ReceivedAt: time.Now()}
}

// Tests

func TestHandleMessage_AnswersFromLLM(t *testing.T) {
	f := newInboundFixture(todayLesson())

	f.svc.HandleMessage(context.Background(), message("what is photosynthesis?"))

	if len(f.messenger.replies) != 1 {
		t.Fatalf("Expected 1 reply, got %d", len(f.messenger.replies))
	}
	if f.messenger.replies[0] != "Plants make food using sunlight." {
		t.Errorf("Expected LLM reply verbatim, got %q", f.messenger.replies[0])
	}
	if f.messenger.replyTo[0] != "SMin" {
		t.Errorf("Expected reply to SMin, got %q", f.messenger.replyTo[0])
	}
}

func TestHandleMessage_ReusesSession(t *testing.T) {
	f := newInboundFixture(todayLesson())

	f.svc.HandleMessage(context.Background(), message("first"))
	first := f.sessions.sessions["919876543210"].ID

	f.svc.HandleMessage(context.Background(), message("second"))
	second := f.sessions.sessions["919876543210"]

	if second.ID != first {
		t.Error("Expected the same session for the second message")
	}
	if len(second.History) != 4 {
		t.Errorf("Expected 4 turns, got %d", len(second.History))
	}
}

func TestHandleMessage_NoClassToday(t *testing.T) {
	yesterday := todayLesson()
	yesterday.Date = time.Now().AddDate(0, 0, -1).Format(domain.DateLayout)
	f := newInboundFixture(yesterday)

	f.svc.HandleMessage(context.Background(), message("hello"))

	if f.llm.calls != 0 {
		t.Error("Expected no LLM call without a lesson")
	}
	if len(f.messenger.replies) != 1 || f.messenger.replies[0] != usecase.DefaultPromptConfig.NoClassReply {
		t.Errorf("Expected no-class reply, got %q", f.messenger.replies)
	}
}

func TestHandleMessage_WordlessNeverReachesLLM(t *testing.T) {
	for _, body := range []string{"", "   ", "😊", "👍🎉"} {
		f := newInboundFixture(todayLesson())

		f.svc.HandleMessage(context.Background(), message(body))

		if f.llm.calls != 0 {
			t.Errorf("Body %q: expected no LLM call", body)
		}
		if len(f.messenger.replies) != 1 || f.messenger.replies[0] != usecase.DefaultPromptConfig.WordlessReply {
			t.Errorf("Body %q: expected wordless reply, got %q", body, f.messenger.replies)
		}
	}
}

func TestHandleMessage_LLMErrorBecomesApology(t *testing.T) {
	f := newInboundFixture(todayLesson())
	f.llm.err = errors.New("deadline exceeded")

	f.svc.HandleMessage(context.Background(), message("hello"))

	if len(f.messenger.replies) != 1 || f.messenger.replies[0] != usecase.DefaultPromptConfig.ApologyReply {
		t.Errorf("Expected apology, got %q", f.messenger.replies)
	}
}

func TestHandleMessage_EmptyLLMReply(t *testing.T) {
	f := newInboundFixture(todayLesson())
	f.llm.reply = ""

	f.svc.HandleMessage(context.Background(), message("hello"))

	if len(f.messenger.replies) != 1 || f.messenger.replies[0] != usecase.DefaultPromptConfig.EmptyReply {
		t.Errorf("Expected empty-reply fallback, got %q", f.messenger.replies)
	}
}

func TestHandleMessage_LessonLookupError(t *testing.T) {
	f := newInboundFixture()
	f.schedule.err = errors.New("invalid_grant")

	f.svc.HandleMessage(context.Background(), message("hello"))

	if len(f.messenger.replies) != 1 || f.messenger.replies[0] != usecase.DefaultPromptConfig.ApologyReply {
		t.Errorf("Expected apology, got %q", f.messenger.replies)
	}
}

func TestHandleMessage_IgnoresNilAndGroup(t *testing.T) {
	f := newInboundFixture(todayLesson())

	f.svc.HandleMessage(context.Background(), nil)

	group := message("hello")
	group.IsGroup = true
	f.svc.HandleMessage(context.Background(), group)

	if len(f.messenger.replies) != 0 || f.llm.calls != 0 {
		t.Error("Expected nil and group messages to be ignored")
	}
}

func TestHandleMessage_SendFailureDoesNotPanic(t *testing.T) {
	f := newInboundFixture(todayLesson())
	f.messenger.err = errors.New("send failed")

	f.svc.HandleMessage(context.Background(), message("hello"))
}
