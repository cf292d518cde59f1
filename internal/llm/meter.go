package llm

import (
	"context"
	"sync"
)

// Usage is the running token and cost total observed by a Meter.
type Usage struct {
	Calls        int
	InputTokens  int
	OutputTokens int
	CostUSD      float64
}

// Meter wraps a Provider and accumulates usage across calls.
type Meter struct {
	provider Provider
	mu       sync.Mutex
	usage    Usage
}

// NewMeter wraps provider with usage accounting.
func NewMeter(provider Provider) *Meter {
	return &Meter{provider: provider}
}

func (m *Meter) Name() string {
	return m.provider.Name()
}

func (m *Meter) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	resp, err := m.provider.Complete(ctx, req)
	if err != nil {
		return nil, err
	}

	model := resp.Model
	if model == "" {
		model = req.Model
	}

	m.mu.Lock()
	m.usage.Calls++
	m.usage.InputTokens += resp.InputTokens
	m.usage.OutputTokens += resp.OutputTokens
	m.usage.CostUSD += EstimateCost(model, resp.InputTokens, resp.OutputTokens)
	m.mu.Unlock()

	return resp, nil
}

// Usage returns a snapshot of the accumulated totals.
func (m *Meter) Usage() Usage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.usage
}
