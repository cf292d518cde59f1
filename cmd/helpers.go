package cmd

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/ziadkadry99/udahub/internal/checkpoint"
	"github.com/ziadkadry99/udahub/internal/config"
	"github.com/ziadkadry99/udahub/internal/embeddings"
	"github.com/ziadkadry99/udahub/internal/events"
	"github.com/ziadkadry99/udahub/internal/gateway"
	"github.com/ziadkadry99/udahub/internal/knowledge"
	"github.com/ziadkadry99/udahub/internal/llm"
	"github.com/ziadkadry99/udahub/internal/pipeline"
	"github.com/ziadkadry99/udahub/internal/specialist"
	"github.com/ziadkadry99/udahub/internal/triage"
)

// loadConfig loads and validates the config, providing a user-friendly error.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w\nRun `udahub init` to create a config file", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", cfgFile, err)
	}
	return cfg, nil
}

// createLLMProviderFromConfig builds the provider shared by every stage:
// rate limited per attempt, retried on transport errors, and metered.
func createLLMProviderFromConfig(cfg *config.Config) (*llm.Meter, error) {
	provider, err := llm.NewProvider(string(cfg.Provider), cfg.Model)
	if err != nil {
		return nil, err
	}
	if rpm := cfg.Triage.RequestsPerMinute; rpm > 0 {
		provider = llm.NewRateLimitedProvider(provider, rpm)
	}
	if cfg.Triage.LLMRetries > 0 {
		provider = llm.NewRetryingProvider(provider, llm.DefaultRetryPolicy(cfg.Triage.LLMRetries))
	}
	return llm.NewMeter(provider), nil
}

// createEmbedderFromConfig returns nil for the lexical backend, which needs
// no embeddings.
func createEmbedderFromConfig(cfg *config.Config) (embeddings.Embedder, error) {
	if cfg.Knowledge.Backend != config.BackendVector {
		return nil, nil
	}
	return embeddings.New(string(cfg.Knowledge.EmbeddingProvider), cfg.Knowledge.EmbeddingModel)
}

func openRetriever(ctx context.Context, cfg *config.Config) (knowledge.Retriever, error) {
	embedder, err := createEmbedderFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}
	return knowledge.Open(ctx, knowledge.Options{
		Paths:     cfg.Knowledge.Paths,
		Backend:   cfg.Knowledge.Backend,
		Embedder:  embedder,
		IndexDir:  cfg.Knowledge.IndexDir,
		CacheSize: cfg.Knowledge.CacheSize,
		CacheTTL:  cfg.Knowledge.CacheTTL,
	})
}

// app holds everything a ticket run needs.
type app struct {
	cfg         *config.Config
	meter       *llm.Meter
	retriever   knowledge.Retriever
	gateway     *gateway.Gateway
	checkpoints checkpoint.Checkpointer
	publisher   events.Publisher
	pipeline    *pipeline.Pipeline
}

// newApp wires the provider, gateway, specialists and pipeline from cfg.
// withLLM false skips the provider for commands that only use the gateway.
func newApp(ctx context.Context, cfg *config.Config, withLLM bool) (*app, error) {
	a := &app{cfg: cfg}

	if _, err := os.Stat(cfg.StorePath); os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Warning: customer store %s not found. Run `udahub seed` to create a demo store.\n", cfg.StorePath)
	}

	retriever, err := openRetriever(ctx, cfg)
	if err != nil {
		log.Printf("knowledge: %v; retrieve_knowledge will report retrieval_failed", err)
	} else {
		a.retriever = retriever
	}

	a.gateway, err = gateway.New(cfg.StorePath, a.retriever, nil)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("creating gateway: %w", err)
	}

	if !withLLM {
		return a, nil
	}

	a.meter, err = createLLMProviderFromConfig(cfg)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("creating LLM provider: %w", err)
	}

	a.checkpoints, err = checkpoint.Open(ctx, cfg.Checkpoint)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("opening checkpoints: %w", err)
	}

	a.publisher, err = events.Open(cfg.Events.Brokers, cfg.Events.Topic)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("opening events publisher: %w", err)
	}

	t := cfg.Triage
	classifier := triage.NewClassifier(a.meter, cfg.Model, cfg.Temperature)
	router := triage.NewRouter(a.meter, cfg.Model, cfg.Temperature, t.EscalationThreshold)
	dispatcher := specialist.NewDispatcher(a.meter, cfg.Model, cfg.Temperature, t.MaxTurns, specialist.NewToolbox(a.gateway))

	a.pipeline = pipeline.New(classifier, router, dispatcher, pipeline.Options{
		StageTimeout: t.StageTimeout,
		Checkpointer: a.checkpoints,
		Publisher:    a.publisher,
	})

	if verbose {
		fmt.Fprintf(os.Stderr, "provider=%s model=%s knowledge=%s checkpoints=%s\n",
			cfg.Provider, cfg.Model, cfg.Knowledge.Backend, cfg.Checkpoint.Backend)
	}

	return a, nil
}

func (a *app) close() {
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			log.Printf("events: closing publisher: %v", err)
		}
	}
	if a.checkpoints != nil {
		if err := a.checkpoints.Close(); err != nil {
			log.Printf("checkpoint: closing store: %v", err)
		}
	}
	if a.gateway != nil {
		a.gateway.Close()
	}
	if r, ok := a.retriever.(io.Closer); ok {
		if err := r.Close(); err != nil {
			log.Printf("knowledge: closing retriever: %v", err)
		}
	}
}

// printUsage reports token usage and estimated cost on stderr.
func (a *app) printUsage() {
	if a.meter == nil {
		return
	}
	u := a.meter.Usage()
	fmt.Fprintf(os.Stderr, "LLM calls: %d, tokens: %d in / %d out, estimated cost: $%.4f\n",
		u.Calls, u.InputTokens, u.OutputTokens, u.CostUSD)
}
