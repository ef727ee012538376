package openai

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

const (
	// GeminiBaseURL is Gemini's OpenAI-compatible endpoint
	GeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai"

	defaultModel   = "gemini-2.5-pro"
	defaultTimeout = 60 * time.Second
)

// Roles accepted in Turn.Role
const (
	RoleUser      = openai.ChatMessageRoleUser
	RoleAssistant = openai.ChatMessageRoleAssistant
)

// Config contains client configuration
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float32
	TopP        float32
	Timeout     time.Duration // per call
}

// Turn is one prior message of a chat
type Turn struct {
	Role    string
	Content string
}

// Client is a chat client for any OpenAI-compatible API
type Client struct {
	client *openai.Client
	cfg    Config
}

// NewClient creates a new client
func NewClient(cfg Config) *Client {
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = GeminiBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	config := openai.DefaultConfig(cfg.APIKey)
	config.BaseURL = cfg.BaseURL

	return &Client{
		client: openai.NewClientWithConfig(config),
		cfg:    cfg,
	}
}

// Model returns the model name
func (c *Client) Model() string {
	return c.cfg.Model
}

// Chat sends the system prompt, prior turns and a new user message, returns the response text
func (c *Client) Chat(ctx context.Context, systemPrompt string, history []Turn, userMessage string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	messages := make([]openai.ChatCompletionMessage, 0, len(history)+2)
	if systemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: systemPrompt})
	}
	for _, t := range history {
		messages = append(messages, openai.ChatCompletionMessage{Role: t.Role, Content: t.Content})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: userMessage})

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.cfg.Model,
		Messages:    messages,
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
		TopP:        c.cfg.TopP,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response choices")
	}

	choice := resp.Choices[0]
	if choice.FinishReason == openai.FinishReasonLength {
		fmt.Printf("[LLM] Response truncated at %d tokens\n", c.cfg.MaxTokens)
	}

	return choice.Message.Content, nil
}
