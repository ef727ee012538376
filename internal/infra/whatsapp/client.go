package whatsapp

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"
	"unicode"

	"github.com/twilio/twilio-go"
	twilioclient "github.com/twilio/twilio-go/client"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

const (
	// MaxBodyLength is the longest body Twilio accepts for one message
	MaxBodyLength = 1600

	addressPrefix = "whatsapp:"
	accountActive = "active"
)

// MessageAPI is the subset of the Twilio REST API the client uses
type MessageAPI interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
	FetchAccount(sid string) (*twilioApi.ApiV2010Account, error)
}

// Config contains Twilio configuration
type Config struct {
	AccountSID string
	AuthToken  string
	From       string // sender number, with or without the "whatsapp:" prefix
	Session    string // label used in logs
}

// Client sends WhatsApp messages through Twilio
type Client struct {
	api        MessageAPI
	accountSID string
	from       string
	session    string
	validator  twilioclient.RequestValidator
	ready      atomic.Bool
}

// NewClient creates a client backed by the Twilio REST API
func NewClient(cfg Config) *Client {
	rest := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})
	return NewClientWithAPI(rest.Api, cfg)
}

// NewClientWithAPI creates a client on top of an explicit API implementation
func NewClientWithAPI(api MessageAPI, cfg Config) *Client {
	from := cfg.From
	if !strings.HasPrefix(from, addressPrefix) {
		from = Address(ParseAddress(from))
	}
	return &Client{
		api:        api,
		accountSID: cfg.AccountSID,
		from:       from,
		session:    cfg.Session,
		validator:  twilioclient.NewRequestValidator(cfg.AuthToken),
	}
}

// Address renders a digits-only recipient as a Twilio WhatsApp address
func Address(digits string) string {
	return addressPrefix + "+" + digits
}

// ParseAddress turns "whatsapp:+919876543210" back into "919876543210"
func ParseAddress(addr string) string {
	addr = strings.TrimPrefix(strings.TrimSpace(addr), addressPrefix)
	var sb strings.Builder
	for _, r := range addr {
		if r >= '0' && r <= '9' {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// WaitUntilReady polls the account until Twilio reports it active
func (c *Client) WaitUntilReady(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Second
	}

	fmt.Printf("[WhatsApp] Waiting for account %s (session %s)...\n", c.accountSID, c.session)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		account, err := c.api.FetchAccount(c.accountSID)
		switch {
		case err != nil:
			fmt.Printf("[WhatsApp] Account check failed: %v\n", err)
		case account.Status != nil && *account.Status == accountActive:
			c.ready.Store(true)
			fmt.Println("[WhatsApp] Account active, ready to send")
			return nil
		case account.Status != nil:
			return fmt.Errorf("account %s is %s", c.accountSID, *account.Status)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// IsReady returns true once the account was seen active
func (c *Client) IsReady() bool {
	return c.ready.Load()
}

// SendText sends a text message to a digits-only recipient.
// Long bodies go out as several messages; the SID of the last one is returned.
func (c *Client) SendText(ctx context.Context, to, body string) (string, error) {
	digits := ParseAddress(to)
	if digits == "" {
		return "", fmt.Errorf("invalid recipient %q", to)
	}

	var sid string
	for _, part := range SplitBody(body, MaxBodyLength) {
		if err := ctx.Err(); err != nil {
			return sid, err
		}

		params := &twilioApi.CreateMessageParams{}
		params.SetFrom(c.from)
		params.SetTo(Address(digits))
		params.SetBody(part)

		resp, err := c.api.CreateMessage(params)
		if err != nil {
			return sid, fmt.Errorf("create message: %w", err)
		}
		if resp != nil && resp.Sid != nil {
			sid = *resp.Sid
		}
	}

	return sid, nil
}

// Reply answers an inbound message. Twilio has no quoted replies on WhatsApp,
// so replyToID is only logged.
func (c *Client) Reply(ctx context.Context, to, body, replyToID string) (string, error) {
	sid, err := c.SendText(ctx, to, body)
	if err != nil {
		return "", err
	}
	fmt.Printf("[WhatsApp] Replied to %s (in reply to %s): %s\n", to, replyToID, sid)
	return sid, nil
}

// ValidateSignature checks the X-Twilio-Signature of a webhook request
func (c *Client) ValidateSignature(url string, params map[string]string, signature string) bool {
	return c.validator.Validate(url, params, signature)
}

// SplitBody splits text into chunks of at most limit runes, preferring line and word breaks
func SplitBody(text string, limit int) []string {
	runes := []rune(text)
	if limit <= 0 || len(runes) <= limit {
		return []string{text}
	}

	var parts []string
	for len(runes) > limit {
		cut := breakPoint(runes[:limit])
		part := strings.TrimRightFunc(string(runes[:cut]), unicode.IsSpace)
		if part != "" {
			parts = append(parts, part)
		}
		runes = []rune(strings.TrimLeftFunc(string(runes[cut:]), unicode.IsSpace))
	}
	if len(runes) > 0 {
		parts = append(parts, string(runes))
	}
	return parts
}

// breakPoint returns where to cut window: after the last newline, else the last space, else at the end
func breakPoint(window []rune) int {
	floor := len(window) / 2
	for i := len(window) - 1; i >= floor; i-- {
		if window[i] == '\n' {
			return i + 1
		}
	}
	for i := len(window) - 1; i >= floor; i-- {
		if unicode.IsSpace(window[i]) {
			return i + 1
		}
	}
	return len(window)
}
