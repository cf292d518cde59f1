// Package llmtest provides scripted llm.Provider implementations for tests.
package llmtest

import (
	"context"
	"fmt"
	"sync"

	"github.com/ziadkadry99/udahub/internal/llm"
)

// Step is one canned reply. Exactly one of Response or Err is used.
type Step struct {
	Response *llm.CompletionResponse
	Err      error
}

// Text is a Step replying with plain content.
func Text(content string) Step {
	return Step{Response: &llm.CompletionResponse{Content: content, Model: "scripted", InputTokens: 10, OutputTokens: 5}}
}

// ToolCalls is a Step requesting the given tool calls.
func ToolCalls(calls ...llm.ToolCall) Step {
	return Step{Response: &llm.CompletionResponse{ToolCalls: calls, Model: "scripted", InputTokens: 10, OutputTokens: 5}}
}

// Fail is a Step returning err.
func Fail(err error) Step {
	return Step{Err: err}
}

// Call builds a tool call with the given arguments JSON.
func Call(id, name, args string) llm.ToolCall {
	return llm.ToolCall{ID: id, Name: name, Arguments: args}
}

// Provider replays Steps in order and records every request. Once the
// script is exhausted, Complete returns an error.
type Provider struct {
	mu    sync.Mutex
	steps []Step
	calls []llm.CompletionRequest
}

// New creates a Provider that replays steps.
func New(steps ...Step) *Provider {
	return &Provider{steps: steps}
}

func (p *Provider) Name() string {
	return "scripted"
}

func (p *Provider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.calls = append(p.calls, req)
	if len(p.steps) == 0 {
		return nil, fmt.Errorf("llmtest: script exhausted after %d calls", len(p.calls)-1)
	}
	step := p.steps[0]
	p.steps = p.steps[1:]
	if step.Err != nil {
		return nil, step.Err
	}
	return step.Response, nil
}

// Calls returns a copy of the recorded requests.
func (p *Provider) Calls() []llm.CompletionRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]llm.CompletionRequest(nil), p.calls...)
}

// Remaining returns the number of unused steps.
func (p *Provider) Remaining() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.steps)
}

// Blocking is a Provider whose Complete waits for the context to end.
type Blocking struct{}

func (Blocking) Name() string {
	return "blocking"
}

func (Blocking) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}
