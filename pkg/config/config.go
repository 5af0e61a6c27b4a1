package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultConfigPath is read when --config is not given; its absence is not an error.
const DefaultConfigPath = "creator.yaml"

const (
	ProviderAuto   = "auto"
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
)

type Config struct {
	App       AppConfig                 `yaml:"app"`
	Gateways  map[string]GatewayConfig  `yaml:"gateways"`
	Providers map[string]ProviderConfig `yaml:"providers"`
	Memory    MemoryConfig              `yaml:"memory"`
	Policy    PolicyConfig              `yaml:"policy"`
	Log       LogConfig                 `yaml:"log"`
}

type AppConfig struct {
	Workspace  string `yaml:"workspace"`
	Iterations int    `yaml:"iterations"`
	UseLLM     bool   `yaml:"use_llm"`
	Provider   string `yaml:"provider"`
	Prompts    string `yaml:"prompts"`
}

type GatewayConfig struct {
	Token     string `yaml:"token"`
	ChatID    string `yaml:"chat_id,omitempty"`
	ChannelID string `yaml:"channel_id,omitempty"`
	Enabled   bool   `yaml:"enabled"`
}

type ProviderConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url,omitempty"`
	Enabled bool   `yaml:"enabled"`
}

type MemoryConfig struct {
	Transcript   bool `yaml:"transcript"`
	HistoryLimit int  `yaml:"history_limit"`
}

type PolicyConfig struct {
	DenyPaths   []string `yaml:"deny_paths"`
	DenyActions []string `yaml:"deny_actions"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// Default returns the settings used when no file or environment overrides them.
func Default() *Config {
	return &Config{
		App: AppConfig{
			Workspace:  "generated",
			Iterations: 2,
			Provider:   ProviderAuto,
		},
		Gateways: map[string]GatewayConfig{},
		Providers: map[string]ProviderConfig{
			ProviderOpenAI: {Model: "gpt-4o-mini"},
			ProviderOllama: {Model: "llama3.2:3b", BaseURL: "http://127.0.0.1:11434"},
		},
		Memory: MemoryConfig{Transcript: true, HistoryLimit: 10},
		Log:    LogConfig{Level: "info"},
	}
}

// LoadConfig loads configuration from a YAML file and environment overrides.
// A missing file is only an error when the path was given explicitly.
func LoadConfig(path string, explicit bool) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
			cfg.fillProviderDefaults()
		case errors.Is(err, os.ErrNotExist) && !explicit:
		default:
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg.applyEnv()
	cfg.App.Iterations = ClampIterations(cfg.App.Iterations)
	return cfg, nil
}

// fillProviderDefaults restores default model and base URL for provider
// blocks that set only some fields; yaml.v3 decodes map values from zero.
func (c *Config) fillProviderDefaults() {
	if c.Providers == nil {
		c.Providers = map[string]ProviderConfig{}
	}
	for name, def := range Default().Providers {
		p := c.Providers[name]
		if p.Model == "" {
			p.Model = def.Model
		}
		if p.BaseURL == "" {
			p.BaseURL = def.BaseURL
		}
		c.Providers[name] = p
	}
}

func (c *Config) applyEnv() {
	if c.Providers == nil {
		c.Providers = map[string]ProviderConfig{}
	}
	if c.Gateways == nil {
		c.Gateways = map[string]GatewayConfig{}
	}
	setProvider := func(name string, apply func(*ProviderConfig)) {
		p := c.Providers[name]
		apply(&p)
		c.Providers[name] = p
	}
	setGateway := func(name string, apply func(*GatewayConfig)) {
		g := c.Gateways[name]
		apply(&g)
		c.Gateways[name] = g
	}

	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		setProvider(ProviderOpenAI, func(p *ProviderConfig) { p.APIKey = v })
	}
	if v := os.Getenv("OPENAI_MODEL"); v != "" {
		setProvider(ProviderOpenAI, func(p *ProviderConfig) { p.Model = v })
	}
	if v := os.Getenv("OPENAI_BASE_URL"); v != "" {
		setProvider(ProviderOpenAI, func(p *ProviderConfig) { p.BaseURL = v })
	}
	if v := os.Getenv("OLLAMA_HOST"); v != "" {
		setProvider(ProviderOllama, func(p *ProviderConfig) { p.BaseURL = v })
	}
	if v := os.Getenv("OLLAMA_MODEL"); v != "" {
		setProvider(ProviderOllama, func(p *ProviderConfig) { p.Model = v })
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		setGateway("telegram", func(g *GatewayConfig) { g.ChatID = v })
	}
	if v := os.Getenv("DISCORD_CHANNEL_ID"); v != "" {
		setGateway("discord", func(g *GatewayConfig) { g.ChannelID = v })
	}
	// A token from the environment turns the gateway on once it knows where to post.
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		setGateway("telegram", func(g *GatewayConfig) {
			g.Token = v
			g.Enabled = g.Enabled || g.ChatID != ""
		})
	}
	if v := os.Getenv("DISCORD_BOT_TOKEN"); v != "" {
		setGateway("discord", func(g *GatewayConfig) {
			g.Token = v
			g.Enabled = g.Enabled || g.ChannelID != ""
		})
	}
	if v := os.Getenv("CREATOR_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
}

// ClampIterations enforces at least one round.
func ClampIterations(n int) int {
	if n < 1 {
		return 1
	}
	return n
}

// ResolveProvider maps a provider selection to a concrete provider.
// auto prefers an enabled provider, then openai when an API key is
// configured, otherwise ollama.
func (c *Config) ResolveProvider(name string) (string, ProviderConfig, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = c.App.Provider
	}
	switch name {
	case ProviderAuto, "":
		if p := c.Providers[ProviderOpenAI]; p.Enabled && p.APIKey != "" {
			return ProviderOpenAI, p, nil
		}
		if p := c.Providers[ProviderOllama]; p.Enabled {
			return ProviderOllama, p, nil
		}
		if p := c.Providers[ProviderOpenAI]; p.APIKey != "" {
			return ProviderOpenAI, p, nil
		}
		return ProviderOllama, c.Providers[ProviderOllama], nil
	case ProviderOpenAI:
		p := c.Providers[ProviderOpenAI]
		if p.APIKey == "" {
			return "", ProviderConfig{}, fmt.Errorf("provider openai requires OPENAI_API_KEY or providers.openai.api_key")
		}
		return name, p, nil
	case ProviderOllama:
		return name, c.Providers[ProviderOllama], nil
	default:
		return "", ProviderConfig{}, fmt.Errorf("unknown provider %q (want auto, openai or ollama)", name)
	}
}

// GetGatewayConfig returns a gateway's config if it is enabled and has a token.
func (c *Config) GetGatewayConfig(name string) (GatewayConfig, bool) {
	g, ok := c.Gateways[name]
	if ok && g.Enabled && g.Token != "" {
		return g, true
	}
	return GatewayConfig{}, false
}
