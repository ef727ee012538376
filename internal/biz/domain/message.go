package domain

import (
	"strings"
	"time"
	"unicode"
)

// Role is the author of a conversation turn
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Turn is one message in a conversation history
type Turn struct {
	Role Role
	Text string
}

// InboundMessage represents a message received from a student
type InboundMessage struct {
	ID          string
	From        string // recipient identifier (digits)
	Body        string
	ProfileName string
	IsGroup     bool
	ReceivedAt  time.Time
}

// Text returns the trimmed message body
func (m *InboundMessage) Text() string {
	return strings.TrimSpace(m.Body)
}

// IsWordless checks if text carries no letters or digits (empty, emoji-only, punctuation)
func IsWordless(text string) bool {
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
