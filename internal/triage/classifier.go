package triage

import (
	"context"
	"fmt"

	"github.com/ziadkadry99/udahub/internal/llm"
)

// Classifier turns ticket text into a TicketClassification.
type Classifier struct {
	provider    llm.Provider
	model       string
	temperature float64
}

// NewClassifier creates a classifier calling provider with model.
func NewClassifier(provider llm.Provider, model string, temperature float64) *Classifier {
	return &Classifier{provider: provider, model: model, temperature: temperature}
}

// Classify asks the model for a classification. Every failure, including
// schema violations and provider errors, matches ErrClassificationFailed.
func (c *Classifier) Classify(ctx context.Context, ticketText string, metadata map[string]any) (TicketClassification, error) {
	out, err := llm.Infer[TicketClassification](ctx, c.provider, llm.InferRequest{
		Model:       c.model,
		System:      classifierSystemPrompt,
		User:        buildClassifierPrompt(ticketText, metadata),
		Temperature: c.temperature,
		MaxTokens:   512,
		Schema:      ClassificationSchema,
	})
	if err != nil {
		return TicketClassification{}, fmt.Errorf("%w: %w", ErrClassificationFailed, err)
	}
	return out, nil
}
