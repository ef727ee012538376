package mcp

import (
	"context"
	"fmt"
	"strings"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

// Handler implements the classroom tools on top of the admin API
type Handler struct {
	client *Client
}

// NewHandler creates a new MCP handler
func NewHandler(client *Client) *Handler {
	return &Handler{client: client}
}

// ============ Schedule Tools ============

// TodayLessonInput is empty - no input needed
type TodayLessonInput struct{}

// TodayLessonOutput contains today's lessons
type TodayLessonOutput struct {
	Date    string   `json:"date"`
	Lessons []Lesson `json:"lessons"`
	Note    string   `json:"note,omitempty"`
}

func (h *Handler) TodayLesson(ctx context.Context, req *sdk.CallToolRequest, input TodayLessonInput) (*sdk.CallToolResult, TodayLessonOutput, error) {
	date, lessons, err := h.client.TodayLessons(ctx)
	if err != nil {
		return nil, TodayLessonOutput{}, err
	}

	out := TodayLessonOutput{Date: date, Lessons: lessons}
	if len(lessons) == 0 {
		out.Note = "No class scheduled today"
	}
	return nil, out, nil
}

// ListStudentsInput selects a class
type ListStudentsInput struct {
	Class string `json:"class" jsonschema:"The class name exactly as written in the Student sheet"`
}

// ListStudentsOutput contains the roster
type ListStudentsOutput struct {
	Class    string    `json:"class"`
	Students []Student `json:"students"`
}

func (h *Handler) ListStudents(ctx context.Context, req *sdk.CallToolRequest, input ListStudentsInput) (*sdk.CallToolResult, ListStudentsOutput, error) {
	class := strings.TrimSpace(input.Class)
	if class == "" {
		return nil, ListStudentsOutput{}, fmt.Errorf("class is required")
	}

	students, err := h.client.ClassStudents(ctx, class)
	if err != nil {
		return nil, ListStudentsOutput{}, err
	}
	return nil, ListStudentsOutput{Class: class, Students: students}, nil
}

// ============ Push Tools ============

// PushNowInput is empty - no input needed
type PushNowInput struct{}

func (h *Handler) PushNow(ctx context.Context, req *sdk.CallToolRequest, input PushNowInput) (*sdk.CallToolResult, PushReport, error) {
	report, err := h.client.Push(ctx)
	if err != nil {
		return nil, PushReport{}, err
	}
	return nil, *report, nil
}

// ListDeliveriesInput filters push attempts
type ListDeliveriesInput struct {
	Date  string `json:"date,omitempty" jsonschema:"Lesson date as YYYY-MM-DD (default today)"`
	Limit int    `json:"limit,omitempty" jsonschema:"Maximum number of deliveries (default 100)"`
}

// ListDeliveriesOutput contains push attempts
type ListDeliveriesOutput struct {
	Deliveries []Delivery `json:"deliveries"`
	Sent       int        `json:"sent"`
	Failed     int        `json:"failed"`
	Skipped    int        `json:"skipped"`
}

func (h *Handler) ListDeliveries(ctx context.Context, req *sdk.CallToolRequest, input ListDeliveriesInput) (*sdk.CallToolResult, ListDeliveriesOutput, error) {
	deliveries, err := h.client.Deliveries(ctx, input.Date, input.Limit)
	if err != nil {
		return nil, ListDeliveriesOutput{}, err
	}

	out := ListDeliveriesOutput{Deliveries: deliveries}
	for _, d := range deliveries {
		switch d.Status {
		case "sent":
			out.Sent++
		case "failed":
			out.Failed++
		case "skipped":
			out.Skipped++
		}
	}
	return nil, out, nil
}

// ============ Session Tools ============

// ListSessionsInput is empty - no input needed
type ListSessionsInput struct{}

// ListSessionsOutput contains active sessions
type ListSessionsOutput struct {
	Sessions []Session `json:"sessions"`
}

func (h *Handler) ListSessions(ctx context.Context, req *sdk.CallToolRequest, input ListSessionsInput) (*sdk.CallToolResult, ListSessionsOutput, error) {
	sessions, err := h.client.ListSessions(ctx)
	if err != nil {
		return nil, ListSessionsOutput{}, err
	}
	return nil, ListSessionsOutput{Sessions: sessions}, nil
}

// RecipientInput selects a student
type RecipientInput struct {
	Recipient string `json:"recipient" jsonschema:"The student's WhatsApp number with country code, digits only"`
}

func (h *Handler) GetSession(ctx context.Context, req *sdk.CallToolRequest, input RecipientInput) (*sdk.CallToolResult, Session, error) {
	if input.Recipient == "" {
		return nil, Session{}, fmt.Errorf("recipient is required")
	}

	sess, err := h.client.GetSession(ctx, input.Recipient)
	if err != nil {
		return nil, Session{}, err
	}
	return nil, *sess, nil
}

// ResetSessionOutput reports a reset
type ResetSessionOutput struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (h *Handler) ResetSession(ctx context.Context, req *sdk.CallToolRequest, input RecipientInput) (*sdk.CallToolResult, ResetSessionOutput, error) {
	if input.Recipient == "" {
		return nil, ResetSessionOutput{}, fmt.Errorf("recipient is required")
	}

	if err := h.client.ResetSession(ctx, input.Recipient); err != nil {
		return nil, ResetSessionOutput{}, err
	}
	return nil, ResetSessionOutput{
		Success: true,
		Message: fmt.Sprintf("Session of %s reset; the next message starts fresh", input.Recipient),
	}, nil
}

// GetTranscriptInput selects a student's recorded turns
type GetTranscriptInput struct {
	Recipient string `json:"recipient" jsonschema:"The student's WhatsApp number with country code, digits only"`
	Date      string `json:"date,omitempty" jsonschema:"Lesson date as YYYY-MM-DD (default today)"`
	Limit     int    `json:"limit,omitempty" jsonschema:"Maximum number of turns (default 100)"`
}

// GetTranscriptOutput contains recorded turns
type GetTranscriptOutput struct {
	Entries []TranscriptEntry `json:"entries"`
}

func (h *Handler) GetTranscript(ctx context.Context, req *sdk.CallToolRequest, input GetTranscriptInput) (*sdk.CallToolResult, GetTranscriptOutput, error) {
	if input.Recipient == "" {
		return nil, GetTranscriptOutput{}, fmt.Errorf("recipient is required")
	}

	entries, err := h.client.Transcript(ctx, input.Recipient, input.Date, input.Limit)
	if err != nil {
		return nil, GetTranscriptOutput{}, err
	}
	return nil, GetTranscriptOutput{Entries: entries}, nil
}

// ============ Tutor Tools ============

// AskTutorInput is a question asked on behalf of a student
type AskTutorInput struct {
	Recipient string `json:"recipient" jsonschema:"The student's WhatsApp number; the country code is added when missing"`
	Message   string `json:"message" jsonschema:"The question to ask the tutor"`
}

func (h *Handler) AskTutor(ctx context.Context, req *sdk.CallToolRequest, input AskTutorInput) (*sdk.CallToolResult, AskResult, error) {
	if input.Recipient == "" || strings.TrimSpace(input.Message) == "" {
		return nil, AskResult{}, fmt.Errorf("recipient and message are required")
	}

	result, err := h.client.Ask(ctx, input.Recipient, input.Message)
	if err != nil {
		return nil, AskResult{}, err
	}
	if result.Error != "" {
		return nil, AskResult{}, fmt.Errorf("tutor: %s", result.Error)
	}
	return nil, *result, nil
}
