package cli

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/recall/internal/chat"
	"github.com/felixgeelhaar/recall/internal/credential"
	"github.com/felixgeelhaar/recall/internal/guard"
	"github.com/felixgeelhaar/recall/internal/memory"
	"github.com/felixgeelhaar/recall/internal/memory/redisstore"
	"github.com/felixgeelhaar/recall/internal/observe"
	"github.com/felixgeelhaar/recall/internal/provider"
	"github.com/felixgeelhaar/recall/internal/settings"
	"github.com/felixgeelhaar/recall/internal/store"
)

// apiKeyEnv maps providers to the environment variable used when no key is
// stored in the configuration table.
var apiKeyEnv = map[string]string{
	"gemini":    "GEMINI_API_KEY",
	"openai":    "OPENAI_API_KEY",
	"anthropic": "ANTHROPIC_API_KEY",
}

func dataDir() string {
	if dataDirFlag != "" {
		return dataDirFlag
	}
	if env := os.Getenv("RECALL_HOME"); env != "" {
		return env
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".recall")
}

func defaultSettingsPath() string {
	if settingsPath != "" {
		return settingsPath
	}
	return filepath.Join(dataDir(), "settings.yaml")
}

func getStore() (*store.SQLiteStore, error) {
	dir := dataDir()
	s, err := store.NewSQLiteStore(
		filepath.Join(dir, "recall.db"),
		filepath.Join(dir, "attachments"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to init store: %w", err)
	}
	return s, nil
}

// app bundles what a command needs for one invocation.
type app struct {
	obs      *observe.Observer
	store    *store.SQLiteStore
	settings *settings.Settings
	creds    *credential.Manager
	closers  []func() error
}

func newApp(cmd *cobra.Command) (*app, error) {
	var obs *observe.Observer
	if jsonLogs {
		obs = observe.NewJSON(cmd.ErrOrStderr(), verbose)
	} else {
		obs = observe.New(cmd.ErrOrStderr(), verbose)
	}

	s, err := getStore()
	if err != nil {
		return nil, err
	}
	a := &app{obs: obs, store: s, closers: []func() error{s.Close, obs.Close}}

	creds, err := credential.NewManager()
	if err != nil {
		a.Close()
		return nil, err
	}
	a.creds = creds

	cfg, err := loadSettings(s)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.settings = cfg
	return a, nil
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		_ = a.closers[i]()
	}
}

// loadSettings applies defaults, the settings file, the configuration
// table and finally the command-line flags.
func loadSettings(s store.Storage) (*settings.Settings, error) {
	cfg, err := settings.LoadOrDefault(defaultSettingsPath())
	if err != nil {
		return nil, err
	}

	table, err := s.ListConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration: %w", err)
	}
	if err := cfg.Apply(table); err != nil {
		return nil, err
	}

	if providerType != "" {
		cfg.Provider = providerType
	}
	if modelName != "" {
		cfg.Model = modelName
	}

	if err := cfg.Validate().Err(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (a *app) apiKey(name string) (string, error) {
	stored, err := a.store.GetConfig(name + credential.SecretSuffix)
	if err != nil {
		return "", err
	}
	if stored != "" {
		return a.creds.Decrypt(stored)
	}
	return os.Getenv(apiKeyEnv[name]), nil
}

func (a *app) provider() (provider.Provider, error) {
	cfg := a.settings
	switch cfg.Provider {
	case "gemini":
		key, err := a.apiKey("gemini")
		if err != nil {
			return nil, err
		}
		p, err := provider.NewGeminiProvider(key, cfg.Model)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, p.Close)
		return p, nil
	case "openai":
		key, err := a.apiKey("openai")
		if err != nil {
			return nil, err
		}
		return provider.NewOpenAIProvider(key, cfg.BaseURL, cfg.Model)
	case "anthropic":
		key, err := a.apiKey("anthropic")
		if err != nil {
			return nil, err
		}
		return provider.NewAnthropicProvider(key, cfg.BaseURL, cfg.Model)
	case "ollama":
		return provider.NewOllamaProvider(cfg.Model)
	case "cli":
		return detectCLIProvider(cfg.CLICommand)
	case "stub":
		return provider.NewStubProvider(), nil
	}
	return nil, fmt.Errorf("unknown provider: %s", cfg.Provider)
}

func detectCLIProvider(command []string) (provider.Provider, error) {
	if len(command) > 0 {
		return provider.NewCLIProvider(command[0], command[1:])
	}

	tools := []string{"claude", "llm", "gemini", "codex"}
	for _, t := range tools {
		if path, err := exec.LookPath(t); err == nil {
			return provider.NewCLIProvider(path, []string{})
		}
	}
	return nil, fmt.Errorf("no local CLI agents detected (tried claude, llm, gemini, codex)")
}

func (a *app) memorySource() (memory.Source, error) {
	if a.settings.MemoryBackend != "redis" {
		return a.store, nil
	}
	r, err := redisstore.New(a.settings.RedisURL, redisstore.DefaultPrefix)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, r.Close)
	return r, nil
}

func (a *app) policy() guard.Policy {
	p := guard.DefaultPolicy
	p.MaxHistoryMessages = a.settings.HistoryLimit
	return p
}

func (a *app) service() (*chat.Service, error) {
	p, err := a.provider()
	if err != nil {
		return nil, err
	}
	mem, err := a.memorySource()
	if err != nil {
		return nil, err
	}

	a.obs.Log().Info().
		Str("provider", p.Name()).
		Str("memory", a.settings.MemoryBackend).
		Msg("chat service ready")

	return chat.New(a.store, mem, p, guard.New(a.policy()), a.obs, chat.Options{
		SystemPrompt: a.settings.SystemPrompt,
		Temperature:  a.settings.Temperature,
		MaxTokens:    a.settings.MaxTokens,
		MemoryLimit:  a.settings.MemoryLimit,
	}), nil
}
