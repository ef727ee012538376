package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/classroom-tools/lesson-tutor/internal/biz/domain"
	"github.com/classroom-tools/lesson-tutor/internal/biz/repo"
	"github.com/classroom-tools/lesson-tutor/internal/biz/usecase"
	"github.com/classroom-tools/lesson-tutor/internal/data"
)

// MockScheduleRepo implements repo.ScheduleRepo for testing
type MockScheduleRepo struct {
	lessons  []domain.Lesson
	students []domain.Student
	err      error
}

func (m *MockScheduleRepo) LessonsOn(ctx context.Context, date string) ([]domain.Lesson, error) {
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

func (m *MockScheduleRepo) StudentsForClass(ctx context.Context, class string) ([]domain.Student, error) {
	var result []domain.Student
	for _, s := range m.students {
		if s.Class == class {
			result = append(result, s)
		}
	}
	return result, nil
}

func (m *MockScheduleRepo) AllStudents(ctx context.Context) ([]domain.Student, error) {
	return m.students, nil
}

// MockLLMRepo implements repo.LLMRepo for testing
type MockLLMRepo struct {
	reply string
	err   error
}

func (m *MockLLMRepo) Chat(ctx context.Context, systemPrompt string, history []domain.Turn, message string) (string, error) {
	return m.reply, m.err
}

// MockMessenger implements repo.MessengerRepo for testing
type MockMessenger struct {
	sent []string
}

func (m *MockMessenger) SendText(ctx context.Context, recipient, text string) (string, error) {
	m.sent = append(m.sent, recipient)
	return "SM" + recipient, nil
}

func (m *MockMessenger) Reply(ctx context.Context, recipient, text, replyToID string) (string, error) {
	return m.SendText(ctx, recipient, text)
}

type MockReady struct{ ready bool }

func (m MockReady) IsReady() bool { return m.ready }

type testEnv struct {
	app        *fiber.App
	schedule   *MockScheduleRepo
	llm        *MockLLMRepo
	messenger  *MockMessenger
	sessions   repo.SessionRepo
	transcript repo.TranscriptRepo
}

func newTestEnv(t *testing.T, token string) *testEnv {
	t.Helper()

	transcript, err := data.NewTranscriptRepo(filepath.Join(t.TempDir(), "tutor.db"))
	if err != nil {
		t.Fatalf("Failed to open transcript: %v", err)
	}
	t.Cleanup(func() { transcript.Close() })

	env := &testEnv{
		schedule: &MockScheduleRepo{
			lessons: []domain.Lesson{{
				Date:    time.Now().In(time.UTC).Format(domain.DateLayout),
				Topic:   "Photosynthesis",
				Subject: "Science",
				Class:   "7A",
				Teacher: "Ms. Rao",
			}},
			students: []domain.Student{
				{Name: "Asha", Phone: "9876543210", Class: "7A"},
				{Name: "Ravi", Phone: "9876500000", Class: "7B"},
			},
		},
		llm:        &MockLLMRepo{reply: "Chlorophyll captures light."},
		messenger:  &MockMessenger{},
		sessions:   data.NewSessionRepo(),
		transcript: transcript,
	}

	composer := usecase.NewPromptComposer(usecase.DefaultPromptConfig)
	scheduleUC := usecase.NewScheduleUsecase(env.schedule, "91", time.UTC)
	sessionUC := usecase.NewSessionUsecase(env.sessions, composer, domain.SessionConfig{ResetHour: -1})
	convUC := usecase.NewConversationUsecase(sessionUC, env.llm, transcript, 0)
	pushUC := usecase.NewPushUsecase(scheduleUC, sessionUC, composer, env.messenger, transcript)

	server := NewServer(Options{
		Schedule:     scheduleUC,
		Session:      sessionUC,
		Conversation: convUC,
		Push:         pushUC,
		Transcript:   transcript,
		Ready:        MockReady{ready: true},
		Token:        token,
	})

	env.app = fiber.New()
	server.Register(env.app)
	return env
}

func (e *testEnv) do(t *testing.T, method, path, body string, headers ...string) (int, map[string]interface{}) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	resp, err := e.app.Test(req, -1)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	var result map[string]interface{}
	raw, _ := io.ReadAll(resp.Body)
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &result); err != nil {
			t.Fatalf("Failed to parse response %q: %v", raw, err)
		}
	}
	return resp.StatusCode, result
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, "secret")

	// health is open even with a token
	code, result := env.do(t, http.MethodGet, "/health", "")
	if code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", code)
	}
	if result["status"] != "ok" || result["whatsapp_ready"] != true {
		t.Errorf("Unexpected health: %v", result)
	}
}

func TestAuth(t *testing.T) {
	env := newTestEnv(t, "secret")

	code, _ := env.do(t, http.MethodGet, "/api/lesson/today", "")
	if code != http.StatusUnauthorized {
		t.Errorf("Expected status 401 without token, got %d", code)
	}

	code, _ = env.do(t, http.MethodGet, "/api/lesson/today", "", "Authorization", "Bearer wrong")
	if code != http.StatusUnauthorized {
		t.Errorf("Expected status 401 with wrong token, got %d", code)
	}

	code, _ = env.do(t, http.MethodGet, "/api/lesson/today", "", "Authorization", "Bearer secret")
	if code != http.StatusOK {
		t.Errorf("Expected status 200 with token, got %d", code)
	}
}

func TestHandleTodayLesson(t *testing.T) {
	env := newTestEnv(t, "")

	code, result := env.do(t, http.MethodGet, "/api/lesson/today", "")
	if code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", code)
	}

	lessons := result["lessons"].([]interface{})
	if len(lessons) != 1 {
		t.Fatalf("Expected 1 lesson, got %d", len(lessons))
	}
	if lessons[0].(map[string]interface{})["topic"] != "Photosynthesis" {
		t.Errorf("Unexpected lesson: %v", lessons[0])
	}
}

func TestHandleTodayLesson_SheetError(t *testing.T) {
	env := newTestEnv(t, "")
	env.schedule.err = errors.New("invalid_grant")

	code, result := env.do(t, http.MethodGet, "/api/lesson/today", "")
	if code != http.StatusInternalServerError {
		t.Errorf("Expected status 500, got %d", code)
	}
	if !strings.Contains(result["error"].(string), "invalid_grant") {
		t.Errorf("Expected error to be reported, got %v", result)
	}
}

func TestHandleClassStudents(t *testing.T) {
	env := newTestEnv(t, "")

	code, result := env.do(t, http.MethodGet, "/api/classes/7A/students", "")
	if code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", code)
	}

	students := result["students"].([]interface{})
	if len(students) != 1 {
		t.Fatalf("Expected 1 student, got %d", len(students))
	}
	if students[0].(map[string]interface{})["recipient"] != "919876543210" {
		t.Errorf("Unexpected student: %v", students[0])
	}
}

func TestHandlePush(t *testing.T) {
	env := newTestEnv(t, "")

	code, result := env.do(t, http.MethodPost, "/api/push", "")
	if code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", code)
	}
	if result["sent"] != float64(1) {
		t.Errorf("Expected 1 sent, got %v", result["sent"])
	}
	if len(env.messenger.sent) != 1 || env.messenger.sent[0] != "919876543210" {
		t.Errorf("Expected push to 7A only, got %v", env.messenger.sent)
	}

	// delivery is queryable afterwards
	code, result = env.do(t, http.MethodGet, "/api/deliveries", "")
	if code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", code)
	}
	if deliveries := result["deliveries"].([]interface{}); len(deliveries) != 1 {
		t.Errorf("Expected 1 delivery, got %d", len(deliveries))
	}
}

func TestSessionLifecycle(t *testing.T) {
	env := newTestEnv(t, "")

	code, result := env.do(t, http.MethodPost, "/api/debug/ask", `{"recipient":"9876543210","message":"what is chlorophyll?"}`)
	if code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", code)
	}
	if result["reply"] != "Chlorophyll captures light." || result["is_new"] != true {
		t.Errorf("Unexpected ask result: %v", result)
	}

	// Listed
	_, result = env.do(t, http.MethodGet, "/api/sessions", "")
	sessions := result["sessions"].([]interface{})
	if len(sessions) != 1 {
		t.Fatalf("Expected 1 session, got %d", len(sessions))
	}
	if sessions[0].(map[string]interface{})["turns"] != float64(2) {
		t.Errorf("Expected 2 turns, got %v", sessions[0])
	}

	// Detail with history
	code, result = env.do(t, http.MethodGet, "/api/sessions/919876543210", "")
	if code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", code)
	}
	if history := result["history"].([]interface{}); len(history) != 2 {
		t.Errorf("Expected 2 history turns, got %d", len(history))
	}

	// Transcript
	_, result = env.do(t, http.MethodGet, "/api/transcripts/919876543210", "")
	if entries := result["entries"].([]interface{}); len(entries) != 2 {
		t.Errorf("Expected 2 transcript entries, got %d", len(entries))
	}

	// Reset
	code, _ = env.do(t, http.MethodDelete, "/api/sessions/919876543210", "")
	if code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", code)
	}
	code, _ = env.do(t, http.MethodGet, "/api/sessions/919876543210", "")
	if code != http.StatusNotFound {
		t.Errorf("Expected status 404 after reset, got %d", code)
	}
}

func TestHandleDebugAsk_Validation(t *testing.T) {
	env := newTestEnv(t, "")

	code, _ := env.do(t, http.MethodPost, "/api/debug/ask", `{"recipient":"9876543210"}`)
	if code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", code)
	}
}

func TestHandleDebugAsk_NoClass(t *testing.T) {
	env := newTestEnv(t, "")
	env.schedule.lessons = nil

	_, result := env.do(t, http.MethodPost, "/api/debug/ask", `{"recipient":"9876543210","message":"hi"}`)
	if result["error"] != "no class scheduled today" {
		t.Errorf("Expected no-class error, got %v", result)
	}
}

func TestHandleDebugAsk_LLMError(t *testing.T) {
	env := newTestEnv(t, "")
	env.llm.err = errors.New("quota exceeded")

	_, result := env.do(t, http.MethodPost, "/api/debug/ask", `{"recipient":"9876543210","message":"hi"}`)
	if result["error"] == nil || !strings.Contains(result["error"].(string), "quota exceeded") {
		t.Errorf("Expected LLM error, got %v", result)
	}
}

func TestHandleDebugAsk_FormMessageKeptIntact(t *testing.T) {
	env := newTestEnv(t, "")
	form := "application/x-www-form-urlencoded"

	code, _ := env.do(t, http.MethodPost, "/api/debug/ask", "recipient=9876543210&message=what+is+chlorophyll", "Content-Type", form)
	if code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", code)
	}
	env.do(t, http.MethodPost, "/api/debug/ask", "recipient=9876500000&message=XXXXXXXXXXXXXXXXXXX", "Content-Type", form)

	session, err := env.sessions.Get(context.Background(), "919876543210")
	if err != nil || session == nil {
		t.Fatalf("Expected session, got %v (err=%v)", session, err)
	}
	if session.History[0].Text != "what is chlorophyll" {
		t.Errorf("Expected stored question 'what is chlorophyll', got %q", session.History[0].Text)
	}
}
