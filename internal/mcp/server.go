package mcp

import (
	"context"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

// NewServer creates an MCP server exposing the classroom tools
func NewServer(h *Handler, version string) *sdk.Server {
	server := sdk.NewServer(&sdk.Implementation{
		Name:    "classroom-tools",
		Version: version,
	}, nil)

	// Schedule
	sdk.AddTool(server, &sdk.Tool{
		Name:        "classroom_today_lesson",
		Description: "Get today's lessons from the course plan (topic, subject, class, teacher).",
	}, h.TodayLesson)
	sdk.AddTool(server, &sdk.Tool{
		Name:        "classroom_list_students",
		Description: "List the students enrolled in a class and their WhatsApp recipient IDs.",
	}, h.ListStudents)

	// Push
	sdk.AddTool(server, &sdk.Tool{
		Name:        "classroom_push_now",
		Description: "Send today's lesson message to every enrolled student now. Use sparingly: students receive a WhatsApp message each time.",
	}, h.PushNow)
	sdk.AddTool(server, &sdk.Tool{
		Name:        "classroom_list_deliveries",
		Description: "List the push attempts of a day with their status (sent, failed, skipped).",
	}, h.ListDeliveries)

	// Sessions
	sdk.AddTool(server, &sdk.Tool{
		Name:        "classroom_list_sessions",
		Description: "List active tutoring sessions.",
	}, h.ListSessions)
	sdk.AddTool(server, &sdk.Tool{
		Name:        "classroom_get_session",
		Description: "Get a student's tutoring session including the conversation history.",
	}, h.GetSession)
	sdk.AddTool(server, &sdk.Tool{
		Name:        "classroom_reset_session",
		Description: "Drop a student's tutoring session so the next message starts a fresh conversation.",
	}, h.ResetSession)
	sdk.AddTool(server, &sdk.Tool{
		Name:        "classroom_get_transcript",
		Description: "Get the recorded conversation of a student for a lesson date.",
	}, h.GetTranscript)

	// Tutor
	sdk.AddTool(server, &sdk.Tool{
		Name:        "classroom_ask_tutor",
		Description: "Ask the tutor a question as a student would. Nothing is sent over WhatsApp, but the exchange joins the student's session.",
	}, h.AskTutor)

	return server
}

// Run serves the MCP server over stdio until ctx ends
func Run(ctx context.Context, server *sdk.Server) error {
	return server.Run(ctx, &sdk.StdioTransport{})
}
