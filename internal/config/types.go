package config

import "time"

// QualityTier selects a model preset in the setup wizard.
type QualityTier string

const (
	QualityLite   QualityTier = "lite"
	QualityNormal QualityTier = "normal"
	QualityMax    QualityTier = "max"
)

// ProviderType identifies an LLM provider.
type ProviderType string

const (
	ProviderAnthropic  ProviderType = "anthropic"
	ProviderOpenAI     ProviderType = "openai"
	ProviderOpenRouter ProviderType = "openrouter"
	ProviderOllama     ProviderType = "ollama"
)

// Knowledge retrieval backends.
const (
	BackendLexical = "lexical"
	BackendVector  = "vector"
)

// Checkpoint store backends.
const (
	CheckpointSQLite   = "sqlite"
	CheckpointPostgres = "postgres"
	CheckpointMemory   = "memory"
)

// FileName is the default configuration file, looked up in the working directory.
const FileName = ".udahub.yml"

// Config is the top-level udahub configuration, corresponding to .udahub.yml.
type Config struct {
	Provider    ProviderType     `yaml:"provider" koanf:"provider"`
	Model       string           `yaml:"model" koanf:"model"`
	Temperature float64          `yaml:"temperature" koanf:"temperature"`
	StorePath   string           `yaml:"store_path" koanf:"store_path"`
	Knowledge   KnowledgeConfig  `yaml:"knowledge" koanf:"knowledge"`
	Triage      TriageConfig     `yaml:"triage" koanf:"triage"`
	Checkpoint  CheckpointConfig `yaml:"checkpoint" koanf:"checkpoint"`
	Events      EventsConfig     `yaml:"events" koanf:"events"`
	Server      ServerConfig     `yaml:"server" koanf:"server"`
}

// KnowledgeConfig controls how the article corpus is loaded and searched.
type KnowledgeConfig struct {
	Paths             []string      `yaml:"paths" koanf:"paths"`
	Backend           string        `yaml:"backend" koanf:"backend"`
	EmbeddingProvider ProviderType  `yaml:"embedding_provider" koanf:"embedding_provider"`
	EmbeddingModel    string        `yaml:"embedding_model" koanf:"embedding_model"`
	IndexDir          string        `yaml:"index_dir" koanf:"index_dir"`
	CacheSize         int           `yaml:"cache_size" koanf:"cache_size"`
	CacheTTL          time.Duration `yaml:"cache_ttl" koanf:"cache_ttl"`
}

// TriageConfig holds pipeline and agent-loop limits.
type TriageConfig struct {
	EscalationThreshold float64       `yaml:"escalation_threshold" koanf:"escalation_threshold"`
	MaxTurns            int           `yaml:"max_turns" koanf:"max_turns"`
	StageTimeout        time.Duration `yaml:"stage_timeout" koanf:"stage_timeout"`
	LLMRetries          int           `yaml:"llm_retries" koanf:"llm_retries"`
	RequestsPerMinute   int           `yaml:"requests_per_minute" koanf:"requests_per_minute"`
}

// CheckpointConfig selects where per-thread pipeline state is persisted.
type CheckpointConfig struct {
	Backend string `yaml:"backend" koanf:"backend"`
	Path    string `yaml:"path" koanf:"path"`
	DSN     string `yaml:"dsn" koanf:"dsn"`
}

// EventsConfig configures publishing of finished ticket results.
// Publishing is disabled when Brokers is empty.
type EventsConfig struct {
	Brokers []string `yaml:"brokers" koanf:"brokers"`
	Topic   string   `yaml:"topic" koanf:"topic"`
}

// ServerConfig holds HTTP API settings.
type ServerConfig struct {
	Port           int      `yaml:"port" koanf:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" koanf:"allowed_origins"`
}
