// Package config loads agent settings from YAML and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"agentrpg.ai/internal/behavior"
	"agentrpg.ai/internal/llm"
	"agentrpg.ai/internal/protocol"
)

const (
	BehaviorScripted   = "scripted"
	BehaviorReasoned   = "reasoned"
	BehaviorSingleShot = "single_shot"
)

const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

const (
	DefaultName      = "Hero"
	DefaultColor     = "ff3300"
	DefaultMission   = "Explore the codebase and report findings"
	DefaultServerURL = "ws://localhost:3001"
	DefaultModel     = "gpt-4o-mini"
)

type Config struct {
	AgentID       string `yaml:"agent_id"`
	Name          string `yaml:"name"`
	Color         string `yaml:"color"`
	Mission       string `yaml:"mission"`
	ServerURL     string `yaml:"server_url"`
	Behavior      string `yaml:"behavior"`
	HistoryLimit  int    `yaml:"history_limit"`
	TranscriptDir string `yaml:"transcript_dir"`

	Backend Backend             `yaml:"backend"`
	Script  []behavior.Template `yaml:"script"`
}

type Backend struct {
	Provider    string        `yaml:"provider"`
	Model       string        `yaml:"model"`
	BaseURL     string        `yaml:"base_url"`
	APIKey      string        `yaml:"api_key"`
	Timeout     time.Duration `yaml:"timeout"`
	MaxTokens   int           `yaml:"max_tokens"`
	Temperature float32       `yaml:"temperature"`
}

func Defaults() Config {
	return Config{
		AgentID:      "agent_" + uuid.NewString()[:8],
		Name:         DefaultName,
		Color:        DefaultColor,
		Mission:      DefaultMission,
		ServerURL:    DefaultServerURL,
		Behavior:     BehaviorScripted,
		HistoryLimit: behavior.DefaultHistoryLimit,
		Backend: Backend{
			Provider:    ProviderOpenAI,
			Timeout:     llm.DefaultTimeout,
			MaxTokens:   500,
			Temperature: 0.7,
		},
	}
}

// Load reads path over the defaults. Keys absent from the file keep their
// default values.
func Load(path string) (Config, error) {
	c := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return c, err
	}
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return c, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// ApplyEnv overrides fields from environment variables that are set and
// non-empty.
func (c *Config) ApplyEnv(getenv func(string) string) {
	set := func(dst *string, key string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	set(&c.AgentID, "AGENT_ID")
	set(&c.Name, "AGENT_NAME")
	set(&c.Color, "AGENT_COLOR")
	set(&c.Mission, "AGENT_MISSION")
	set(&c.ServerURL, "BRIDGE_URL")
	set(&c.Behavior, "AGENT_BEHAVIOR")
	set(&c.Backend.Provider, "LLM_PROVIDER")
	set(&c.Backend.Model, "LLM_MODEL")
	set(&c.Backend.BaseURL, "LLM_BASE_URL")
	if c.Backend.APIKey == "" {
		switch c.Backend.Provider {
		case ProviderGemini:
			set(&c.Backend.APIKey, "GEMINI_API_KEY")
		default:
			set(&c.Backend.APIKey, "OPENAI_API_KEY")
		}
	}
}

// ModelName returns the configured model or the provider's default.
func (b Backend) ModelName() string {
	if b.Model != "" {
		return b.Model
	}
	if b.Provider == ProviderGemini {
		return llm.DefaultGeminiModel
	}
	return DefaultModel
}

func (b Backend) Options() llm.Options {
	return llm.Options{Model: b.ModelName(), MaxTokens: b.MaxTokens, Temperature: b.Temperature, Timeout: b.Timeout}
}

func (c Config) ColorValue() (int, error) {
	return ParseColor(c.Color)
}

// ParseColor accepts "ff3300", "#ff3300" or "0xff3300".
func ParseColor(s string) (int, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "#")
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if s == "" || len(s) > 6 {
		return 0, fmt.Errorf("bad color %q", s)
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("bad color %q: %w", s, err)
	}
	return int(v), nil
}

func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.AgentID) == "" {
		errs = append(errs, errors.New("agent_id is required"))
	}
	switch c.Behavior {
	case BehaviorScripted, BehaviorReasoned, BehaviorSingleShot:
	default:
		errs = append(errs, fmt.Errorf("unknown behavior %q", c.Behavior))
	}
	switch c.Backend.Provider {
	case ProviderOpenAI, ProviderGemini:
	default:
		errs = append(errs, fmt.Errorf("unknown backend provider %q", c.Backend.Provider))
	}
	if c.HistoryLimit <= 0 {
		errs = append(errs, fmt.Errorf("history_limit must be positive, got %d", c.HistoryLimit))
	}
	if _, err := c.ColorValue(); err != nil {
		errs = append(errs, err)
	}
	for i, t := range c.Script {
		if !protocol.IsKnownAction(t.Action) {
			errs = append(errs, fmt.Errorf("script[%d]: unknown action %q", i, t.Action))
		}
	}
	return errors.Join(errs...)
}
