package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/manifoldco/promptui"
)

// RunWizard runs an interactive configuration wizard and returns the
// resulting Config. It also saves the config to path.
func RunWizard(path string) (*Config, error) {
	fmt.Println("Welcome to udahub! Let's configure ticket triage.")
	fmt.Println()

	cfg := DefaultConfig()

	// 1. Provider selection.
	providerPrompt := promptui.Select{
		Label: "Select LLM provider",
		Items: []string{"anthropic", "openai", "openrouter", "ollama"},
	}
	_, providerStr, err := providerPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("provider selection: %w", err)
	}
	cfg.Provider = ProviderType(providerStr)

	// 2. Quality tier.
	qualityPrompt := promptui.Select{
		Label: "Select model tier",
		Items: []string{
			"lite:   fast and cheap",
			"normal: balanced",
			"max:    highest quality",
		},
	}
	qualityIdx, _, err := qualityPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("tier selection: %w", err)
	}
	tiers := []QualityTier{QualityLite, QualityNormal, QualityMax}
	preset := GetPreset(cfg.Provider, tiers[qualityIdx])
	cfg.Model = preset.Model

	// 3. Customer store.
	storePrompt := promptui.Prompt{
		Label:   "Path to the customer SQLite store",
		Default: cfg.StorePath,
	}
	if cfg.StorePath, err = storePrompt.Run(); err != nil {
		return nil, fmt.Errorf("store path: %w", err)
	}

	// 4. Knowledge corpus.
	knowledgePrompt := promptui.Prompt{
		Label:   "Knowledge article globs (comma-separated)",
		Default: strings.Join(cfg.Knowledge.Paths, ","),
	}
	knowledgeStr, err := knowledgePrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("knowledge paths: %w", err)
	}
	cfg.Knowledge.Paths = splitAndTrim(knowledgeStr)

	backendPrompt := promptui.Select{
		Label: "Knowledge retrieval backend",
		Items: []string{BackendLexical, BackendVector},
	}
	if _, cfg.Knowledge.Backend, err = backendPrompt.Run(); err != nil {
		return nil, fmt.Errorf("backend selection: %w", err)
	}
	cfg.Knowledge.EmbeddingProvider = embeddingProviderFor(cfg.Provider)
	cfg.Knowledge.EmbeddingModel = preset.EmbeddingModel

	// 5. Checkpoints.
	checkpointPrompt := promptui.Select{
		Label: "Where should conversation checkpoints be kept?",
		Items: []string{CheckpointSQLite, CheckpointPostgres, CheckpointMemory},
	}
	if _, cfg.Checkpoint.Backend, err = checkpointPrompt.Run(); err != nil {
		return nil, fmt.Errorf("checkpoint selection: %w", err)
	}
	if cfg.Checkpoint.Backend == CheckpointPostgres {
		dsnPrompt := promptui.Prompt{
			Label:   "Postgres DSN",
			Default: "postgres://localhost:5432/udahub",
		}
		if cfg.Checkpoint.DSN, err = dsnPrompt.Run(); err != nil {
			return nil, fmt.Errorf("postgres dsn: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Check for API key.
	envVar := APIKeyEnvVar(cfg.Provider)
	if envVar != "" {
		if os.Getenv(envVar) == "" {
			fmt.Printf("\nNote: Set %s in your environment before running udahub run.\n", envVar)
		}
	}

	if err := cfg.Save(path); err != nil {
		return nil, fmt.Errorf("saving config: %w", err)
	}

	fmt.Printf("\nConfiguration saved to %s\n", path)
	return cfg, nil
}

// embeddingProviderFor returns the default embedding provider for a given
// LLM provider. OpenAI embeddings are used for all cloud providers.
func embeddingProviderFor(p ProviderType) ProviderType {
	if p == ProviderOllama {
		return ProviderOllama
	}
	return ProviderOpenAI
}

// splitAndTrim splits a comma-separated string and drops empty entries.
func splitAndTrim(s string) []string {
	var result []string
	for _, part := range strings.Split(s, ",") {
		if token := strings.TrimSpace(part); token != "" {
			result = append(result, token)
		}
	}
	return result
}
