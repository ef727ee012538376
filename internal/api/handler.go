package api

import (
	"crypto/subtle"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"

	"github.com/classroom-tools/lesson-tutor/internal/biz/domain"
	"github.com/classroom-tools/lesson-tutor/internal/biz/repo"
	"github.com/classroom-tools/lesson-tutor/internal/biz/usecase"
)

// ReadyChecker reports whether the messaging client is logged in
type ReadyChecker interface {
	IsReady() bool
}

// Server provides the admin HTTP API used by operators and classroom-mcp
type Server struct {
	scheduleUC     *usecase.ScheduleUsecase
	sessionUC      *usecase.SessionUsecase
	convUC         *usecase.ConversationUsecase
	pushUC         *usecase.PushUsecase
	transcriptRepo repo.TranscriptRepo
	ready          ReadyChecker
	token          string
}

// Options contains the dependencies of the admin API
type Options struct {
	Schedule     *usecase.ScheduleUsecase
	Session      *usecase.SessionUsecase
	Conversation *usecase.ConversationUsecase
	Push         *usecase.PushUsecase
	Transcript   repo.TranscriptRepo // nil disables transcript and delivery endpoints
	Ready        ReadyChecker        // may be nil
	Token        string              // bearer token; empty leaves the API open
}

// NewServer creates a new API server
func NewServer(opts Options) *Server {
	return &Server{
		scheduleUC:     opts.Schedule,
		sessionUC:      opts.Session,
		convUC:         opts.Conversation,
		pushUC:         opts.Push,
		transcriptRepo: opts.Transcript,
		ready:          opts.Ready,
		token:          opts.Token,
	}
}

// Register mounts the API routes
func (s *Server) Register(router fiber.Router) {
	// Health check
	router.Get("/health", s.handleHealth)

	api := router.Group("/api", s.authenticate)

	// Schedule
	api.Get("/lesson/today", s.handleTodayLesson)
	api.Get("/classes/:class/students", s.handleClassStudents)

	// Push
	api.Post("/push", s.handlePush)

	// Sessions
	api.Get("/sessions", s.handleListSessions)
	api.Get("/sessions/:recipient", s.handleGetSession)
	api.Delete("/sessions/:recipient", s.handleResetSession)

	// History
	api.Get("/transcripts/:recipient", s.handleTranscript)
	api.Get("/deliveries", s.handleDeliveries)

	// Debug endpoint for asking the tutor without WhatsApp
	api.Post("/debug/ask", s.handleDebugAsk)
}

func (s *Server) authenticate(c *fiber.Ctx) error {
	if s.token == "" {
		return c.Next()
	}
	got := strings.TrimPrefix(c.Get(fiber.HeaderAuthorization), "Bearer ")
	if subtle.ConstantTimeCompare([]byte(got), []byte(s.token)) != 1 {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
	}
	return c.Next()
}

// ============ DTOs ============

// Lesson is the API view of a scheduled class
type Lesson struct {
	Date    string `json:"date"`
	Topic   string `json:"topic"`
	Subject string `json:"subject"`
	Class   string `json:"class"`
	Teacher string `json:"teacher"`
}

// Student is the API view of a roster entry
type Student struct {
	Name      string `json:"name"`
	Class     string `json:"class"`
	Recipient string `json:"recipient"`
}

// Turn is one conversation turn
type Turn struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// Session summarizes a tutoring session
type Session struct {
	ID         string    `json:"id"`
	Recipient  string    `json:"recipient"`
	LessonDate string    `json:"lesson_date"`
	Topic      string    `json:"topic"`
	Turns      int       `json:"turns"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	History    []Turn    `json:"history,omitempty"`
}

// AskRequest is the request for a debug question
type AskRequest struct {
	Recipient string `json:"recipient" form:"recipient"`
	Message   string `json:"message" form:"message"`
}

// AskResponse is the tutor's answer to a debug question
type AskResponse struct {
	SessionID string `json:"session_id,omitempty"`
	IsNew     bool   `json:"is_new"`
	Reply     string `json:"reply"`
	Error     string `json:"error,omitempty"`
}

// ConvertLesson converts domain.Lesson to api.Lesson
func ConvertLesson(l *domain.Lesson) Lesson {
	return Lesson{Date: l.Date, Topic: l.Topic, Subject: l.Subject, Class: l.Class, Teacher: l.Teacher}
}

// ConvertSession converts domain.Session to api.Session
func ConvertSession(sess *domain.Session, withHistory bool) Session {
	out := Session{
		ID:         sess.ID,
		Recipient:  sess.Recipient,
		LessonDate: sess.LessonDate,
		Topic:      sess.Topic,
		Turns:      len(sess.History),
		CreatedAt:  sess.CreatedAt,
		UpdatedAt:  sess.UpdatedAt,
	}
	if withHistory {
		out.History = make([]Turn, len(sess.History))
		for i, t := range sess.History {
			out.History[i] = Turn{Role: string(t.Role), Text: t.Text}
		}
	}
	return out
}

// ============ Handlers ============

func (s *Server) handleHealth(c *fiber.Ctx) error {
	ready := s.ready == nil || s.ready.IsReady()
	status := "ok"
	if !ready {
		status = "starting"
	}
	return c.JSON(fiber.Map{"status": status, "whatsapp_ready": ready})
}

func (s *Server) handleTodayLesson(c *fiber.Ctx) error {
	lessons, err := s.scheduleUC.TodayLessons(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}

	result := make([]Lesson, len(lessons))
	for i := range lessons {
		result[i] = ConvertLesson(&lessons[i])
	}
	return c.JSON(fiber.Map{"date": s.scheduleUC.Today(), "lessons": result})
}

func (s *Server) handleClassStudents(c *fiber.Ctx) error {
	class := c.Params("class")
	students, err := s.scheduleUC.Roster(c.UserContext(), class)
	if err != nil {
		return writeError(c, err)
	}

	cc := s.scheduleUC.CountryCode()
	result := make([]Student, len(students))
	for i := range students {
		result[i] = Student{
			Name:      students[i].Name,
			Class:     students[i].Class,
			Recipient: students[i].RecipientID(cc),
		}
	}
	return c.JSON(fiber.Map{"class": class, "students": result})
}

func (s *Server) handlePush(c *fiber.Ctx) error {
	fmt.Println("[API] Manual push requested")
	report, err := s.pushUC.Run(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(report)
}

func (s *Server) handleListSessions(c *fiber.Ctx) error {
	sessions, err := s.sessionUC.ListSessions(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}

	result := make([]Session, len(sessions))
	for i, sess := range sessions {
		result[i] = ConvertSession(sess, false)
	}
	return c.JSON(fiber.Map{"sessions": result})
}

func (s *Server) handleGetSession(c *fiber.Ctx) error {
	sess, err := s.sessionUC.GetSession(c.UserContext(), c.Params("recipient"))
	if err != nil {
		return writeError(c, err)
	}
	if sess == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "session not found"})
	}
	return c.JSON(ConvertSession(sess, true))
}

func (s *Server) handleResetSession(c *fiber.Ctx) error {
	if err := s.sessionUC.Reset(c.UserContext(), c.Params("recipient")); err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"success": true})
}

func (s *Server) handleTranscript(c *fiber.Ctx) error {
	if s.transcriptRepo == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "transcript store disabled"})
	}

	date := c.Query("date", s.scheduleUC.Today())
	entries, err := s.transcriptRepo.ListTurns(c.UserContext(), c.Params("recipient"), date, queryLimit(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"date": date, "entries": entries})
}

func (s *Server) handleDeliveries(c *fiber.Ctx) error {
	if s.transcriptRepo == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "transcript store disabled"})
	}

	date := c.Query("date", s.scheduleUC.Today())
	deliveries, err := s.transcriptRepo.ListDeliveries(c.UserContext(), date, queryLimit(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"date": date, "deliveries": deliveries})
}

func (s *Server) handleDebugAsk(c *fiber.Ctx) error {
	var req AskRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	if req.Recipient == "" || strings.TrimSpace(req.Message) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "recipient and message are required"})
	}

	ctx := c.UserContext()
	recipient := domain.RecipientID(s.scheduleUC.CountryCode(), req.Recipient)

	lesson, err := s.scheduleUC.LessonFor(ctx, recipient)
	if err != nil {
		return writeError(c, err)
	}
	if lesson == nil {
		return c.JSON(AskResponse{Error: "no class scheduled today"})
	}

	// The message is kept in session history, past the request's buffers
	message := utils.CopyString(strings.TrimSpace(req.Message))
	result, err := s.convUC.Ask(ctx, recipient, lesson, message)
	if err != nil {
		return c.JSON(AskResponse{Error: err.Error()})
	}

	return c.JSON(AskResponse{
		SessionID: result.SessionID,
		IsNew:     result.IsNew,
		Reply:     result.Reply,
	})
}

// ============ Helpers ============

func writeError(c *fiber.Ctx, err error) error {
	fmt.Printf("[API] %s %s failed: %v\n", c.Method(), c.Path(), err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
}

func queryLimit(c *fiber.Ctx) int {
	limit, err := strconv.Atoi(c.Query("limit"))
	if err != nil || limit <= 0 {
		return 0
	}
	return limit
}
