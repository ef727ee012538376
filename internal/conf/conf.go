package conf

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // timezone database for minimal containers

	"github.com/classroom-tools/lesson-tutor/internal/biz/domain"
	"github.com/classroom-tools/lesson-tutor/internal/biz/usecase"
)

// Config represents application configuration
type Config struct {
	// Google Sheets configuration
	Sheets SheetsConfig

	// Gemini configuration
	LLM LLMConfig

	// Twilio WhatsApp configuration
	WhatsApp WhatsAppConfig

	// Daily push configuration
	Push PushConfig

	// Session configuration
	Session SessionConfig

	// HTTP configuration (webhook + admin API)
	HTTP HTTPConfig

	// Prompts configuration (loaded from YAML)
	Prompts *PromptsConfig

	// Transcript database path (empty disables the transcript)
	TranscriptDBPath string

	// Per-sender inbound queue depth
	InboundQueueDepth int

	// Debug mode
	Debug bool

	promptsErr error
}

// SheetsConfig contains spreadsheet configuration
type SheetsConfig struct {
	SpreadsheetID   string
	Credentials     string // path to a service account key file, or the JSON itself
	CoursePlanSheet string
	StudentSheet    string
}

// LLMConfig contains chat model configuration
type LLMConfig struct {
	APIKey          string
	BaseURL         string
	Model           string
	MaxOutputTokens int
	Temperature     float32
	TopP            float32
	TimeoutSeconds  int
	MaxHistoryTurns int
}

// WhatsAppConfig contains Twilio configuration
type WhatsAppConfig struct {
	Session     string
	AccountSID  string
	AuthToken   string
	From        string
	CountryCode string
}

// PushConfig contains the daily push schedule
type PushConfig struct {
	Timezone  string
	Hour      int
	Minute    int
	OnStartup bool
}

// SessionConfig contains session configuration
type SessionConfig struct {
	IdleMinutes int
	ResetHour   int
}

// HTTPConfig contains HTTP server configuration
type HTTPConfig struct {
	Port       int    // public webhook port
	PublicURL  string
	AdminAddr  string // admin API listen address, loopback by default
	AdminToken string
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() *Config {
	session := envString("WHATSAPP_SESSION", "classroom")

	// Transcript DB path
	transcriptDBPath, ok := os.LookupEnv("TRANSCRIPT_DB_PATH")
	if !ok {
		homeDir, _ := os.UserHomeDir()
		transcriptDBPath = filepath.Join(homeDir, ".lesson-tutor", session+".db")
	}

	// Load prompts from YAML
	promptsConfig, promptsErr := LoadPromptsConfig(os.Getenv("PROMPTS_CONFIG_PATH"))
	if promptsErr != nil {
		promptsConfig = DefaultPromptsConfig()
	}

	return &Config{
		Sheets: SheetsConfig{
			SpreadsheetID:   os.Getenv("GOOGLE_SHEET_ID"),
			Credentials:     os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"),
			CoursePlanSheet: envString("COURSE_PLAN_SHEET_NAME", "Course Plan"),
			StudentSheet:    envString("STUDENT_SHEET_NAME", "Student"),
		},
		LLM: LLMConfig{
			APIKey:          os.Getenv("GEMINI_API_KEY"),
			BaseURL:         os.Getenv("LLM_BASE_URL"),
			Model:           envString("GEMINI_MODEL", "gemini-2.5-pro"),
			MaxOutputTokens: envInt("MAX_OUTPUT_TOKENS", 4096),
			Temperature:     envFloat("TEMPERATURE", 0.7),
			TopP:            envFloat("TOP_P", 0.9),
			TimeoutSeconds:  envInt("LLM_TIMEOUT_SECONDS", 60),
			MaxHistoryTurns: envInt("MAX_HISTORY_TURNS", 30),
		},
		WhatsApp: WhatsAppConfig{
			Session:     session,
			AccountSID:  os.Getenv("TWILIO_ACCOUNT_SID"),
			AuthToken:   os.Getenv("TWILIO_AUTH_TOKEN"),
			From:        os.Getenv("TWILIO_WHATSAPP_FROM"),
			CountryCode: strings.TrimPrefix(envString("COUNTRY_CODE", "91"), "+"),
		},
		Push: PushConfig{
			Timezone:  envString("TIMEZONE", "Asia/Kolkata"),
			Hour:      envInt("PUSH_HOUR", 16),
			Minute:    envInt("PUSH_MINUTE", 0),
			OnStartup: envBool("PUSH_ON_STARTUP", true),
		},
		Session: SessionConfig{
			IdleMinutes: envInt("SESSION_IDLE_MINUTES", 0),
			ResetHour:   envInt("SESSION_RESET_HOUR", -1),
		},
		HTTP: HTTPConfig{
			Port:       envInt("HTTP_PORT", 8080),
			PublicURL:  os.Getenv("PUBLIC_URL"),
			AdminAddr:  envString("ADMIN_ADDR", "127.0.0.1:8081"),
			AdminToken: os.Getenv("ADMIN_TOKEN"),
		},
		Prompts:           promptsConfig,
		TranscriptDBPath:  transcriptDBPath,
		InboundQueueDepth: envInt("INBOUND_QUEUE_DEPTH", 20),
		Debug:             envBool("DEBUG", false),
		promptsErr:        promptsErr,
	}
}

// Location loads the push timezone
func (c *PushConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// Timeout returns the per-call LLM timeout
func (c *LLMConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// ToSessionConfig converts to domain session configuration
func (c *SessionConfig) ToSessionConfig() domain.SessionConfig {
	return domain.SessionConfig{
		IdleTimeout: time.Duration(c.IdleMinutes) * time.Minute,
		ResetHour:   c.ResetHour,
	}
}

// ToPromptConfig converts to prompt configuration
func (c *Config) ToPromptConfig() usecase.PromptConfig {
	if c.Prompts == nil {
		return usecase.DefaultPromptConfig
	}

	return usecase.PromptConfig{
		SystemPrompt:  c.Prompts.Tutor.SystemPrompt,
		PushMessage:   c.Prompts.Tutor.PushMessage,
		NoClassReply:  c.Prompts.Replies.NoClass,
		ApologyReply:  c.Prompts.Replies.Apology,
		WordlessReply: c.Prompts.Replies.Wordless,
		EmptyReply:    c.Prompts.Replies.EmptyReply,
	}
}

// Validate validates the configuration. Every missing variable is reported at once.
func (c *Config) Validate() error {
	var missing []string
	required := []struct {
		name  string
		value string
	}{
		{"GOOGLE_SHEET_ID", c.Sheets.SpreadsheetID},
		{"GOOGLE_SERVICE_ACCOUNT_JSON", c.Sheets.Credentials},
		{"GEMINI_API_KEY", c.LLM.APIKey},
		{"TWILIO_ACCOUNT_SID", c.WhatsApp.AccountSID},
		{"TWILIO_AUTH_TOKEN", c.WhatsApp.AuthToken},
		{"TWILIO_WHATSAPP_FROM", c.WhatsApp.From},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			missing = append(missing, r.name)
		}
	}
	if len(missing) > 0 {
		return &ConfigError{Field: strings.Join(missing, ", "), Message: "required"}
	}

	if c.Push.Hour < 0 || c.Push.Hour > 23 {
		return &ConfigError{Field: "PUSH_HOUR", Message: "must be between 0 and 23"}
	}
	if c.Push.Minute < 0 || c.Push.Minute > 59 {
		return &ConfigError{Field: "PUSH_MINUTE", Message: "must be between 0 and 59"}
	}
	if c.Session.ResetHour < -1 || c.Session.ResetHour > 23 {
		return &ConfigError{Field: "SESSION_RESET_HOUR", Message: "must be -1 or between 0 and 23"}
	}
	if _, err := c.Push.Location(); err != nil {
		return &ConfigError{Field: "TIMEZONE", Message: err.Error()}
	}
	if c.WhatsApp.CountryCode == "" || domain.NormalizePhone(c.WhatsApp.CountryCode) != c.WhatsApp.CountryCode {
		return &ConfigError{Field: "COUNTRY_CODE", Message: "must be digits"}
	}
	if c.promptsErr != nil {
		return &ConfigError{Field: "PROMPTS_CONFIG_PATH", Message: c.promptsErr.Error()}
	}
	if _, _, err := net.SplitHostPort(c.HTTP.AdminAddr); err != nil {
		return &ConfigError{Field: "ADMIN_ADDR", Message: err.Error()}
	}
	if c.HTTP.AdminToken == "" && !IsLoopback(c.HTTP.AdminAddr) {
		return &ConfigError{Field: "ADMIN_TOKEN", Message: "required when ADMIN_ADDR is not a loopback address"}
	}
	return nil
}

// IsLoopback checks if a listen address only accepts local connections
func IsLoopback(addr string) bool {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return false
	}
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Field + ": " + e.Message
}

func envString(key, def string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return def
}

func envInt(key string, def int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
			return parsed
		}
		fmt.Printf("[Config] Ignoring invalid %s=%q\n", key, val)
	}
	return def
}

func envFloat(key string, def float32) float32 {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(val), 32); err == nil {
			return float32(parsed)
		}
		fmt.Printf("[Config] Ignoring invalid %s=%q\n", key, val)
	}
	return def
}

func envBool(key string, def bool) bool {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseBool(strings.TrimSpace(val)); err == nil {
			return parsed
		}
		fmt.Printf("[Config] Ignoring invalid %s=%q\n", key, val)
	}
	return def
}
