package config

import "time"

// QualityPreset describes the models to use for a given quality tier.
type QualityPreset struct {
	Model          string
	EmbeddingModel string
}

// qualityPresets maps each provider+quality combination to its model choices.
var qualityPresets = map[ProviderType]map[QualityTier]QualityPreset{
	ProviderAnthropic: {
		QualityLite:   {Model: "claude-haiku-4-5-20251001", EmbeddingModel: "text-embedding-3-small"},
		QualityNormal: {Model: "claude-sonnet-4-5-20250929", EmbeddingModel: "text-embedding-3-small"},
		QualityMax:    {Model: "claude-opus-4-6", EmbeddingModel: "text-embedding-3-large"},
	},
	ProviderOpenAI: {
		QualityLite:   {Model: "gpt-4o-mini", EmbeddingModel: "text-embedding-3-small"},
		QualityNormal: {Model: "gpt-4o", EmbeddingModel: "text-embedding-3-small"},
		QualityMax:    {Model: "gpt-4.1", EmbeddingModel: "text-embedding-3-large"},
	},
	ProviderOpenRouter: {
		QualityLite:   {Model: "openai/gpt-4o-mini", EmbeddingModel: "text-embedding-3-small"},
		QualityNormal: {Model: "openai/gpt-4o", EmbeddingModel: "text-embedding-3-small"},
		QualityMax:    {Model: "anthropic/claude-sonnet-4.5", EmbeddingModel: "text-embedding-3-large"},
	},
	ProviderOllama: {
		QualityLite:   {Model: "llama3.1", EmbeddingModel: "nomic-embed-text"},
		QualityNormal: {Model: "llama3.1", EmbeddingModel: "nomic-embed-text"},
		QualityMax:    {Model: "llama3.1:70b", EmbeddingModel: "nomic-embed-text"},
	},
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Provider:    ProviderAnthropic,
		Model:       "claude-sonnet-4-5-20250929",
		Temperature: 0,
		StorePath:   "data/core/udahub.db",
		Knowledge: KnowledgeConfig{
			Paths:             []string{"data/knowledge/**/*.jsonl"},
			Backend:           BackendLexical,
			EmbeddingProvider: ProviderOpenAI,
			EmbeddingModel:    "text-embedding-3-small",
			IndexDir:          ".udahub/index",
			CacheSize:         256,
			CacheTTL:          10 * time.Minute,
		},
		Triage: TriageConfig{
			EscalationThreshold: 0.55,
			MaxTurns:            6,
			StageTimeout:        60 * time.Second,
			LLMRetries:          2,
			RequestsPerMinute:   50,
		},
		Checkpoint: CheckpointConfig{
			Backend: CheckpointSQLite,
			Path:    ".udahub/checkpoints.db",
		},
		Events: EventsConfig{
			Topic: "udahub.ticket-results",
		},
		Server: ServerConfig{
			Port:           8080,
			AllowedOrigins: []string{"http://localhost:*"},
		},
	}
}

// GetPreset returns the quality preset for the given provider and tier.
// Returns the Normal Anthropic preset if the combination is not found.
func GetPreset(provider ProviderType, tier QualityTier) QualityPreset {
	if tiers, ok := qualityPresets[provider]; ok {
		if preset, ok := tiers[tier]; ok {
			return preset
		}
	}
	return qualityPresets[ProviderAnthropic][QualityNormal]
}
