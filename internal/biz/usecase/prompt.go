package usecase

import (
	"errors"
	"fmt"
	"strings"

	"github.com/classroom-tools/lesson-tutor/internal/biz/domain"
)

// ErrIncompleteLesson is returned when a lesson lacks a field the tutor prompt needs
var ErrIncompleteLesson = errors.New("incomplete lesson")

// PromptConfig contains prompt configuration
type PromptConfig struct {
	SystemPrompt string // Tutor template (supports {{topic}}, {{subject}}, {{teacher}}, {{class}})
	PushMessage  string // Daily push template (also supports {{name}})

	// Fixed replies
	NoClassReply  string
	ApologyReply  string
	WordlessReply string
	EmptyReply    string
}

// DefaultPromptConfig is the default prompt configuration
var DefaultPromptConfig = PromptConfig{
	SystemPrompt: `You are a school *{{subject}}* educator for a classroom. Design a Universal Design for Learning topic recap for a class *{{class}}* student explaining *{{topic}}*, which has been taught by *{{teacher}}* in class. Tailor the lesson for an inquiry based class and include an engaging real world analogy. Make the learning visual wherever relevant. Stay grounded in the curriculum and answer questions *only* about today's lesson topic.

- Do not use Markdown formatting. Use plain text with single asterisks (e.g., *important*) for emphasis.

Instructions:
- When asked for a recap, send an explanation of the full topic first, then offer an example.
- After your first explanation, ask the student if they would like examples or have any doubts.
- Answer questions related to today's topic with clear, concise explanations.
- Politely decline questions about unrelated topics.

You SHOULD:
- Explain key points simply using analogies and plain language.
- Be conversational: speak directly to one student (use *you*, not *everyone*).
- Give bullet-point recaps if asked for a summary.
- Use simple English words.
- Encourage curiosity and gently guide the student if they are confused.
- Stick to factual and educational content.

You SHOULD NOT:
- Answer questions unrelated to the topic. Instead reply:
  "This question is about a different topic. Please ask about today's topic: {{topic}}."
- Use complex academic terms without explanation.
- Give an example first when the student wants an explanation.
- Mention AI, Gemini, or that you are a language model.
- Answer for other subjects or days.
- Give opinions, emotional support, or life advice.
- Ask for any personal information from the student.
- Discuss sensitive topics or triggering content.

Audience:
- You are speaking directly to one student in a private message.
- Be friendly, warm, and conversational.
- Assume they may need simplified explanations.

Today's topic is: *{{topic}}*
Only answer questions about today's topic.

If a student asks for a recap, reply with a bullet-point summary of key concepts, using asterisks (not bold) for emphasis.

At the end of every response, show:
📚 *{{topic}}*
📘 *{{subject}}*`,
	PushMessage: "👋 Hello {{name}},\n\n" +
		"Today in class *{{class}}* with {{teacher}}, we covered:\n" +
		"📚 *{{topic}}*\n\n" +
		"Need a recap or have doubts?\nJust reply here!",
	NoClassReply:  "No class today — enjoy your break 🎉",
	ApologyReply:  "Sorry, I hit a snag. Please try again?",
	WordlessReply: "Please send your question in words so I can help you better 😊",
	EmptyReply:    "I couldn't generate a response. Please try again.",
}

// PromptComposer renders tutor prompts and student-facing messages
type PromptComposer struct {
	cfg PromptConfig
}

// NewPromptComposer creates a new prompt composer
func NewPromptComposer(cfg PromptConfig) *PromptComposer {
	return &PromptComposer{cfg: cfg}
}

// SystemPrompt fills the tutor template with the lesson.
// All of topic, subject, teacher and class must be present.
func (c *PromptComposer) SystemPrompt(lesson *domain.Lesson) (string, error) {
	if lesson == nil {
		return "", fmt.Errorf("%w: no lesson", ErrIncompleteLesson)
	}
	if missing := lesson.MissingFields(); len(missing) > 0 {
		return "", fmt.Errorf("%w: missing %s", ErrIncompleteLesson, strings.Join(missing, ", "))
	}
	return strings.TrimSpace(fill(c.cfg.SystemPrompt, lesson, "")), nil
}

// PushMessage renders the daily push message for a student
func (c *PromptComposer) PushMessage(student *domain.Student, lesson *domain.Lesson) string {
	return fill(c.cfg.PushMessage, lesson, student.Name)
}

// NoClassReply returns the reply sent when no lesson is scheduled today
func (c *PromptComposer) NoClassReply() string { return c.cfg.NoClassReply }

// ApologyReply returns the reply sent when something went wrong
func (c *PromptComposer) ApologyReply() string { return c.cfg.ApologyReply }

// WordlessReply returns the reply sent for empty or emoji-only messages
func (c *PromptComposer) WordlessReply() string { return c.cfg.WordlessReply }

// EmptyReply returns the reply sent when the model produced no text
func (c *PromptComposer) EmptyReply() string { return c.cfg.EmptyReply }

func fill(tmpl string, lesson *domain.Lesson, name string) string {
	r := strings.NewReplacer(
		"{{topic}}", strings.TrimSpace(lesson.Topic),
		"{{subject}}", strings.TrimSpace(lesson.Subject),
		"{{teacher}}", strings.TrimSpace(lesson.Teacher),
		"{{class}}", strings.TrimSpace(lesson.Class),
		"{{date}}", strings.TrimSpace(lesson.Date),
		"{{name}}", strings.TrimSpace(name),
	)
	return r.Replace(tmpl)
}
