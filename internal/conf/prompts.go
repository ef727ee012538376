package conf

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/classroom-tools/lesson-tutor/internal/biz/usecase"
)

// PromptsConfig contains all prompt configurations loaded from YAML
type PromptsConfig struct {
	Tutor   TutorPrompts  `yaml:"tutor"`
	Replies ReplyMessages `yaml:"replies"`
}

// TutorPrompts contains the tutor system prompt and the daily push text
type TutorPrompts struct {
	SystemPrompt string `yaml:"system_prompt"`
	PushMessage  string `yaml:"push_message"`
}

// ReplyMessages contains the fixed replies sent instead of a tutor answer
type ReplyMessages struct {
	NoClass    string `yaml:"no_class"`
	Apology    string `yaml:"apology"`
	Wordless   string `yaml:"wordless"`
	EmptyReply string `yaml:"empty_reply"`
}

// LoadPromptsConfig loads prompts configuration from YAML file
func LoadPromptsConfig(configPath string) (*PromptsConfig, error) {
	// Try multiple paths
	paths := []string{configPath}
	if configPath == "" {
		paths = []string{
			"configs/prompts.yaml",
			"/etc/lesson-tutor/prompts.yaml",
		}
		// Add path relative to executable
		if execPath, err := os.Executable(); err == nil {
			paths = append(paths, filepath.Join(filepath.Dir(execPath), "configs", "prompts.yaml"))
		}
	}

	var data []byte
	var loadedPath string

	for _, p := range paths {
		b, err := os.ReadFile(p)
		if err == nil {
			data = b
			loadedPath = p
			break
		}
	}

	if data == nil {
		if configPath != "" {
			return nil, fmt.Errorf("read prompts config %s: not found", configPath)
		}
		fmt.Println("[Config] No prompts.yaml found, using defaults")
		return DefaultPromptsConfig(), nil
	}

	fmt.Printf("[Config] Loading prompts from: %s\n", loadedPath)

	var config PromptsConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("parse %s: %w", loadedPath, err)
	}

	// Fill in defaults for empty values
	config.fillDefaults()

	return &config, nil
}

// fillDefaults fills in default values for empty fields
func (c *PromptsConfig) fillDefaults() {
	defaults := DefaultPromptsConfig()

	if c.Tutor.SystemPrompt == "" {
		c.Tutor.SystemPrompt = defaults.Tutor.SystemPrompt
	}
	if c.Tutor.PushMessage == "" {
		c.Tutor.PushMessage = defaults.Tutor.PushMessage
	}

	if c.Replies.NoClass == "" {
		c.Replies.NoClass = defaults.Replies.NoClass
	}
	if c.Replies.Apology == "" {
		c.Replies.Apology = defaults.Replies.Apology
	}
	if c.Replies.Wordless == "" {
		c.Replies.Wordless = defaults.Replies.Wordless
	}
	if c.Replies.EmptyReply == "" {
		c.Replies.EmptyReply = defaults.Replies.EmptyReply
	}
}

// DefaultPromptsConfig returns the built-in prompts
func DefaultPromptsConfig() *PromptsConfig {
	d := usecase.DefaultPromptConfig
	return &PromptsConfig{
		Tutor: TutorPrompts{
			SystemPrompt: d.SystemPrompt,
			PushMessage:  d.PushMessage,
		},
		Replies: ReplyMessages{
			NoClass:    d.NoClassReply,
			Apology:    d.ApologyReply,
			Wordless:   d.WordlessReply,
			EmptyReply: d.EmptyReply,
		},
	}
}
