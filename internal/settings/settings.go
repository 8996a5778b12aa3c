package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const DefaultSystemPrompt = "You are a helpful assistant. Use what you remember about the user when it is relevant."

// Providers lists the provider names the CLI knows how to build.
var Providers = []string{"gemini", "openai", "anthropic", "ollama", "cli", "stub"}

// Settings holds the user-tunable behaviour of recall.
type Settings struct {
	Provider      string   `json:"provider" yaml:"provider"`
	Model         string   `json:"model,omitempty" yaml:"model,omitempty"`
	BaseURL       string   `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	CLICommand    []string `json:"cli_command,omitempty" yaml:"cli_command,omitempty"`
	SystemPrompt  string   `json:"system_prompt" yaml:"system_prompt"`
	Temperature   float32  `json:"temperature" yaml:"temperature"`
	MaxTokens     int      `json:"max_tokens" yaml:"max_tokens"`
	MemoryLimit   int      `json:"memory_limit" yaml:"memory_limit"`
	HistoryLimit  int      `json:"history_limit" yaml:"history_limit"`
	MemoryBackend string   `json:"memory_backend" yaml:"memory_backend"`
	RedisURL      string   `json:"redis_url,omitempty" yaml:"redis_url,omitempty"`
}

// ValidationResult represents the outcome of a validation pass.
type ValidationResult struct {
	Valid    bool
	Warnings []string
	Errors   []string
}

// Err folds the errors of an invalid result into one error.
func (r ValidationResult) Err() error {
	if r.Valid {
		return nil
	}
	return fmt.Errorf("invalid settings: %s", strings.Join(r.Errors, "; "))
}

func Default() Settings {
	return Settings{
		Provider:      "gemini",
		SystemPrompt:  DefaultSystemPrompt,
		Temperature:   0.7,
		MaxTokens:     2048,
		MemoryLimit:   5,
		HistoryLimit:  40,
		MemoryBackend: "sqlite",
	}
}

// Load reads settings from a JSON or YAML file on top of the defaults.
func Load(path string) (*Settings, error) {
	data, err := os.ReadFile(path) // #nosec G304
	if err != nil {
		return nil, fmt.Errorf("failed to read settings file: %w", err)
	}

	s := Default()
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, fmt.Errorf("failed to unmarshal JSON settings: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &s); err != nil {
			return nil, fmt.Errorf("failed to unmarshal YAML settings: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported settings format: %s (use .json or .yaml)", ext)
	}
	return &s, nil
}

// LoadOrDefault is Load, except a missing file yields the defaults.
func LoadOrDefault(path string) (*Settings, error) {
	s, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		d := Default()
		return &d, nil
	}
	return s, err
}

// Save writes the settings in the format implied by the file extension.
func (s *Settings) Save(path string) error {
	var data []byte
	var err error
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		data, err = json.MarshalIndent(s, "", "  ")
	case ".yaml", ".yml":
		data, err = yaml.Marshal(s)
	default:
		return fmt.Errorf("unsupported settings format: %s (use .json or .yaml)", ext)
	}
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// Validate checks the settings for values recall cannot run with.
func (s Settings) Validate() ValidationResult {
	res := ValidationResult{
		Valid:    true,
		Warnings: []string{},
		Errors:   []string{},
	}
	fail := func(msg string) {
		res.Valid = false
		res.Errors = append(res.Errors, msg)
	}

	known := false
	for _, p := range Providers {
		if s.Provider == p {
			known = true
			break
		}
	}
	if !known {
		fail(fmt.Sprintf("unknown provider %q (one of %s)", s.Provider, strings.Join(Providers, ", ")))
	}

	if s.Temperature < 0 || s.Temperature > 2 {
		fail("temperature must be between 0 and 2")
	}
	if s.MaxTokens < 0 {
		fail("max_tokens must not be negative")
	}
	if s.MemoryLimit < 0 {
		fail("memory_limit must not be negative")
	} else if s.MemoryLimit > 20 {
		res.Warnings = append(res.Warnings, "memory_limit above 20 makes system prompts very long")
	}
	if s.HistoryLimit < 0 {
		fail("history_limit must not be negative")
	}

	switch s.MemoryBackend {
	case "sqlite":
	case "redis":
		if s.RedisURL == "" {
			fail("redis memory backend requires redis_url")
		}
	default:
		fail(fmt.Sprintf("unknown memory backend %q (sqlite or redis)", s.MemoryBackend))
	}

	if strings.TrimSpace(s.SystemPrompt) == "" {
		res.Warnings = append(res.Warnings, "system prompt is empty; only memories will be sent as instructions")
	}
	return res
}

// overrides maps configuration-table keys onto settings fields.
var overrides = map[string]func(s *Settings, v string) error{
	"chat.provider":      func(s *Settings, v string) error { s.Provider = v; return nil },
	"chat.model":         func(s *Settings, v string) error { s.Model = v; return nil },
	"chat.base_url":      func(s *Settings, v string) error { s.BaseURL = v; return nil },
	"chat.system_prompt": func(s *Settings, v string) error { s.SystemPrompt = v; return nil },
	"chat.cli_command":   func(s *Settings, v string) error { s.CLICommand = strings.Fields(v); return nil },
	"chat.temperature": func(s *Settings, v string) error {
		f, err := strconv.ParseFloat(v, 32)
		if err != nil {
			return err
		}
		s.Temperature = float32(f)
		return nil
	},
	"chat.max_tokens":    intField(func(s *Settings) *int { return &s.MaxTokens }),
	"chat.history_limit": intField(func(s *Settings) *int { return &s.HistoryLimit }),
	"memory.limit":       intField(func(s *Settings) *int { return &s.MemoryLimit }),
	"memory.backend":     func(s *Settings, v string) error { s.MemoryBackend = v; return nil },
	"memory.redis_url":   func(s *Settings, v string) error { s.RedisURL = v; return nil },
}

func intField(field func(*Settings) *int) func(*Settings, string) error {
	return func(s *Settings, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		*field(s) = n
		return nil
	}
}

// Keys returns the configuration keys that override settings, sorted.
func Keys() []string {
	keys := make([]string, 0, len(overrides))
	for k := range overrides {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// IsKey reports whether key overrides a setting.
func IsKey(key string) bool {
	_, ok := overrides[key]
	return ok
}

// Apply overlays configuration-table values on the settings. Unknown keys
// are ignored so the table can hold credentials and other entries.
func (s *Settings) Apply(cfg map[string]string) error {
	for key, value := range cfg {
		set, ok := overrides[key]
		if !ok {
			continue
		}
		if err := set(s, value); err != nil {
			return fmt.Errorf("invalid value for %s: %w", key, err)
		}
	}
	return nil
}
