package server

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/classroom-tools/lesson-tutor/internal/biz/domain"
	"github.com/classroom-tools/lesson-tutor/internal/infra/whatsapp"
)

const (
	// DefaultWebhookPath is where Twilio posts inbound WhatsApp messages
	DefaultWebhookPath = "/webhook/whatsapp"

	dedupeWindow = 5 * time.Minute
	emptyTwiML   = `<?xml version="1.0" encoding="UTF-8"?><Response></Response>`
)

// SignatureValidator verifies X-Twilio-Signature
type SignatureValidator interface {
	ValidateSignature(url string, params map[string]string, signature string) bool
}

// MessageQueue accepts inbound messages for processing
type MessageQueue interface {
	Enqueue(msg *domain.InboundMessage) error
}

// WebhookConfig contains webhook configuration
type WebhookConfig struct {
	Path      string
	PublicURL string // externally visible base URL Twilio signs against; empty derives it from the request
}

// webhookPayload is the subset of Twilio's inbound message form we read
type webhookPayload struct {
	MessageSid    string `form:"MessageSid"`
	AccountSid    string `form:"AccountSid"`
	From          string `form:"From"`
	To            string `form:"To"`
	Body          string `form:"Body"`
	NumMedia      int    `form:"NumMedia"`
	ProfileName   string `form:"ProfileName"`
	MessageStatus string `form:"MessageStatus"`
}

// WhatsAppServer receives Twilio WhatsApp webhooks
type WhatsAppServer struct {
	queue     MessageQueue
	validator SignatureValidator
	config    WebhookConfig
	now       func() time.Time

	// Message deduplication cache
	seenMsgsMu sync.Mutex
	seenMsgs   map[string]time.Time // MessageSid -> timestamp
}

// NewWhatsAppServer creates a new webhook server (validator nil disables signature checks)
func NewWhatsAppServer(queue MessageQueue, validator SignatureValidator, config WebhookConfig) *WhatsAppServer {
	if config.Path == "" {
		config.Path = DefaultWebhookPath
	}
	config.PublicURL = strings.TrimRight(config.PublicURL, "/")
	if validator == nil {
		fmt.Println("[Server] WARNING: webhook signature validation disabled")
	}
	return &WhatsAppServer{
		queue:     queue,
		validator: validator,
		config:    config,
		now:       time.Now,
		seenMsgs:  make(map[string]time.Time),
	}
}

// Register mounts the webhook route
func (s *WhatsAppServer) Register(router fiber.Router) {
	router.Post(s.config.Path, s.handleWebhook)
}

// handleWebhook handles one Twilio callback. Anything past the signature check is acknowledged
// with an empty TwiML response; replies are sent asynchronously through the REST API.
func (s *WhatsAppServer) handleWebhook(c *fiber.Ctx) error {
	if s.validator != nil {
		params := make(map[string]string)
		c.Request().PostArgs().VisitAll(func(key, value []byte) {
			params[string(key)] = string(value)
		})
		if !s.validator.ValidateSignature(s.requestURL(c), params, c.Get("X-Twilio-Signature")) {
			fmt.Printf("[Server] Rejected webhook with invalid signature from %s\n", c.IP())
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "invalid signature"})
		}
	}

	var payload webhookPayload
	if err := c.BodyParser(&payload); err != nil {
		fmt.Printf("[Server] Error parsing webhook: %v\n", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid webhook payload"})
	}

	// Status callbacks carry no inbound message
	if payload.MessageSid == "" || payload.MessageStatus != "" {
		return twiml(c)
	}

	if !s.markSeen(payload.MessageSid) {
		fmt.Printf("[Server] Duplicate message ignored: %s\n", payload.MessageSid)
		return twiml(c)
	}

	msg := &domain.InboundMessage{
		ID:          payload.MessageSid,
		From:        whatsapp.ParseAddress(payload.From),
		Body:        payload.Body,
		ProfileName: payload.ProfileName,
		ReceivedAt:  s.now(),
	}
	if msg.From == "" {
		fmt.Printf("[Server] Message %s has no sender, ignored\n", payload.MessageSid)
		return twiml(c)
	}

	fmt.Printf("[Server] Received %s from %s (media=%d): %s\n",
		msg.ID, msg.From, payload.NumMedia, truncate(msg.Body, 50))

	if err := s.queue.Enqueue(msg); err != nil {
		fmt.Printf("[Server] Failed to enqueue %s: %v\n", msg.ID, err)
	}
	return twiml(c)
}

// requestURL rebuilds the URL Twilio signed
func (s *WhatsAppServer) requestURL(c *fiber.Ctx) string {
	if s.config.PublicURL != "" {
		return s.config.PublicURL + c.OriginalURL()
	}
	return fmt.Sprintf("%s://%s%s", c.Protocol(), c.Hostname(), c.OriginalURL())
}

func twiml(c *fiber.Ctx) error {
	c.Set(fiber.HeaderContentType, "text/xml")
	return c.SendString(emptyTwiML)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

// markSeen records a MessageSid and forgets entries older than the dedupe window.
// Returns false when the message was already seen.
func (s *WhatsAppServer) markSeen(msgID string) bool {
	s.seenMsgsMu.Lock()
	defer s.seenMsgsMu.Unlock()

	now := s.now()
	cutoff := now.Add(-dedupeWindow)
	for id, ts := range s.seenMsgs {
		if ts.Before(cutoff) {
			delete(s.seenMsgs, id)
		}
	}

	if _, exists := s.seenMsgs[msgID]; exists {
		return false
	}
	s.seenMsgs[msgID] = now
	return true
}
