package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

const envPrefix = "UDAHUB_"

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides (UDAHUB_*). Nested keys use a double
// underscore: UDAHUB_TRIAGE__MAX_TURNS sets triage.max_turns.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	// Start from defaults.
	cfg := DefaultConfig()

	// Load YAML file if it exists.
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("accessing config %s: %w", path, err)
	}

	if err := k.Load(env.Provider(envPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	return cfg, nil
}

// envKey maps UDAHUB_KNOWLEDGE__BACKEND to knowledge.backend.
func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, envPrefix))
	return strings.ReplaceAll(key, "__", ".")
}

// Save writes the configuration to the given YAML file path.
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// validProviders is the set of recognized provider values.
var validProviders = map[ProviderType]bool{
	ProviderAnthropic:  true,
	ProviderOpenAI:     true,
	ProviderOpenRouter: true,
	ProviderOllama:     true,
}

// validEmbeddingProviders is the subset of providers that can embed text.
var validEmbeddingProviders = map[ProviderType]bool{
	ProviderOpenAI: true,
	ProviderOllama: true,
}

var validBackends = map[string]bool{
	BackendLexical: true,
	BackendVector:  true,
}

var validCheckpointBackends = map[string]bool{
	CheckpointSQLite:   true,
	CheckpointPostgres: true,
	CheckpointMemory:   true,
}

// Validate checks that the configuration contains valid values.
func (c *Config) Validate() error {
	if c.Provider == "" {
		return fmt.Errorf("provider is required")
	}
	if !validProviders[c.Provider] {
		return fmt.Errorf("invalid provider %q: must be one of anthropic, openai, openrouter, ollama", c.Provider)
	}

	if c.Model == "" {
		return fmt.Errorf("model is required")
	}

	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("temperature must be between 0 and 2")
	}

	if c.StorePath == "" {
		return fmt.Errorf("store_path is required")
	}

	if !validBackends[c.Knowledge.Backend] {
		return fmt.Errorf("invalid knowledge.backend %q: must be lexical or vector", c.Knowledge.Backend)
	}
	if c.Knowledge.Backend == BackendVector {
		if !validEmbeddingProviders[c.Knowledge.EmbeddingProvider] {
			return fmt.Errorf("invalid knowledge.embedding_provider %q: must be openai or ollama", c.Knowledge.EmbeddingProvider)
		}
		if c.Knowledge.EmbeddingModel == "" {
			return fmt.Errorf("knowledge.embedding_model is required for the vector backend")
		}
	}
	if c.Knowledge.CacheSize < 0 {
		return fmt.Errorf("knowledge.cache_size must be non-negative")
	}

	t := c.Triage
	if t.EscalationThreshold < 0 || t.EscalationThreshold > 1 {
		return fmt.Errorf("triage.escalation_threshold must be between 0 and 1")
	}
	if t.MaxTurns < 1 {
		return fmt.Errorf("triage.max_turns must be at least 1")
	}
	if t.StageTimeout < 0 {
		return fmt.Errorf("triage.stage_timeout must be non-negative")
	}
	if t.LLMRetries < 0 {
		return fmt.Errorf("triage.llm_retries must be non-negative")
	}
	if t.RequestsPerMinute < 0 {
		return fmt.Errorf("triage.requests_per_minute must be non-negative")
	}

	if !validCheckpointBackends[c.Checkpoint.Backend] {
		return fmt.Errorf("invalid checkpoint.backend %q: must be one of sqlite, postgres, memory", c.Checkpoint.Backend)
	}
	if c.Checkpoint.Backend == CheckpointSQLite && c.Checkpoint.Path == "" {
		return fmt.Errorf("checkpoint.path is required for the sqlite backend")
	}
	if c.Checkpoint.Backend == CheckpointPostgres && c.Checkpoint.DSN == "" {
		return fmt.Errorf("checkpoint.dsn is required for the postgres backend")
	}

	if len(c.Events.Brokers) > 0 && c.Events.Topic == "" {
		return fmt.Errorf("events.topic is required when brokers are set")
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}

	return nil
}

// APIKeyEnvVar returns the conventional environment variable name for
// the API key of the given provider.
func APIKeyEnvVar(provider ProviderType) string {
	switch provider {
	case ProviderAnthropic:
		return "ANTHROPIC_API_KEY"
	case ProviderOpenAI:
		return "OPENAI_API_KEY"
	case ProviderOpenRouter:
		return "OPENROUTER_API_KEY"
	default:
		return ""
	}
}
