package llm

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// MockProvider is a test provider that records calls and returns canned responses.
type MockProvider struct {
	mu       sync.Mutex
	Calls    []CompletionRequest
	Response *CompletionResponse
	Err      error
	ProvName string
}

func NewMockProvider(name string) *MockProvider {
	return &MockProvider{
		ProvName: name,
		Response: &CompletionResponse{
			Content:      "mock response",
			InputTokens:  10,
			OutputTokens: 20,
			Model:        "mock-model",
			FinishReason: "stop",
		},
	}
}

func (m *MockProvider) Name() string {
	return m.ProvName
}

func (m *MockProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, req)
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Response, nil
}

func (m *MockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

func TestNewProvider(t *testing.T) {
	env := map[string]string{
		"ANTHROPIC_API_KEY":  "a-key",
		"OPENAI_API_KEY":     "o-key",
		"OPENROUTER_API_KEY": "r-key",
	}
	withKeys := func(k string) string { return env[k] }
	noKeys := func(string) string { return "" }

	tests := []struct {
		provider string
		getenv   func(string) string
		wantName string
		wantErr  bool
	}{
		{"anthropic", withKeys, "anthropic", false},
		{"openai", withKeys, "openai", false},
		{"openrouter", withKeys, "openrouter", false},
		{"ollama", noKeys, "ollama", false},
		{"anthropic", noKeys, "", true},
		{"openai", noKeys, "", true},
		{"openrouter", noKeys, "", true},
		{"gemini", withKeys, "", true},
	}

	for _, tt := range tests {
		p, err := newProvider(tt.provider, "m", tt.getenv)
		if tt.wantErr {
			if err == nil {
				t.Errorf("%s: expected error", tt.provider)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tt.provider, err)
		}
		if p.Name() != tt.wantName {
			t.Errorf("%s: Name = %q, want %q", tt.provider, p.Name(), tt.wantName)
		}
	}
}

func TestOllamaHostFromEnv(t *testing.T) {
	p, _ := newProvider("ollama", "llama3.1", func(string) string { return "" })
	if got := p.(*OllamaProvider).baseURL; got != defaultOllamaHost {
		t.Errorf("expected default host, got %q", got)
	}

	p, _ = newProvider("ollama", "llama3.1", func(k string) string {
		if k == "OLLAMA_HOST" {
			return "http://gpu-box:11434"
		}
		return ""
	})
	if got := p.(*OllamaProvider).baseURL; got != "http://gpu-box:11434" {
		t.Errorf("expected OLLAMA_HOST, got %q", got)
	}
}

func TestRateLimiterPassesThrough(t *testing.T) {
	mock := NewMockProvider("test")
	rl := NewRateLimitedProvider(mock, 60)

	ctx := context.Background()
	req := CompletionRequest{
		Model:    "test-model",
		Messages: []Message{{Role: RoleUser, Content: "hello"}},
	}

	resp, err := rl.Complete(ctx, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Content != "mock response" {
		t.Errorf("expected 'mock response', got %q", resp.Content)
	}
	if rl.Name() != "test" {
		t.Errorf("expected name 'test', got %q", rl.Name())
	}
}

func TestRateLimiterLimitsRequests(t *testing.T) {
	mock := NewMockProvider("test")
	// Allow only 2 requests per minute.
	rl := NewRateLimitedProvider(mock, 2)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	req := CompletionRequest{
		Model:    "test-model",
		Messages: []Message{{Role: RoleUser, Content: "hello"}},
	}

	// First two should succeed immediately.
	for i := 0; i < 2; i++ {
		_, err := rl.Complete(ctx, req)
		if err != nil {
			t.Fatalf("request %d: unexpected error: %v", i, err)
		}
	}

	// Third should block and eventually fail due to context timeout.
	_, err := rl.Complete(ctx, req)
	if err == nil {
		t.Error("expected error due to rate limiting + context timeout")
	}
}

func TestEstimateCostKnownModels(t *testing.T) {
	tests := []struct {
		model        string
		inputTokens  int
		outputTokens int
		wantMin      float64
	}{
		{"claude-sonnet-4-5-20250929", 1000, 500, 0.0},
		{"gpt-4o", 1000, 500, 0.0},
		{"openai/gpt-4o-mini", 1000, 500, 0.0},
	}

	for _, tt := range tests {
		cost := EstimateCost(tt.model, tt.inputTokens, tt.outputTokens)
		if cost <= tt.wantMin {
			t.Errorf("EstimateCost(%q, %d, %d) = %f, expected > %f",
				tt.model, tt.inputTokens, tt.outputTokens, cost, tt.wantMin)
		}
	}
}

func TestEstimateCostUnknownModel(t *testing.T) {
	cost := EstimateCost("unknown-model", 1000, 500)
	if cost != 0 {
		t.Errorf("expected 0 for unknown model, got %f", cost)
	}
}

func TestEstimateCostAccuracy(t *testing.T) {
	// claude-sonnet-4-5: $3/1M input, $15/1M output
	// 1M input + 1M output = $3 + $15 = $18
	cost := EstimateCost("claude-sonnet-4-5-20250929", 1_000_000, 1_000_000)
	expected := 18.0
	if cost < expected-0.01 || cost > expected+0.01 {
		t.Errorf("expected cost ~$%.2f, got $%.2f", expected, cost)
	}
}

func TestEstimateTokens(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"", 0},
		{"hi", 1},
		{"hello world!!", 3},
		{"a longer piece of text that has more characters", 11},
	}

	for _, tt := range tests {
		got := EstimateTokens(tt.text)
		if got != tt.want {
			t.Errorf("EstimateTokens(%q) = %d, want %d", tt.text, got, tt.want)
		}
	}
}

func TestRateLimiterDisabledForZeroRPM(t *testing.T) {
	mock := NewMockProvider("test")
	if got := NewRateLimitedProvider(mock, 0); got != Provider(mock) {
		t.Error("expected rpm=0 to return the wrapped provider unchanged")
	}
}

func TestMeterAccumulatesUsage(t *testing.T) {
	mock := NewMockProvider("test")
	mock.Response.Model = "gpt-4o"
	m := NewMeter(mock)

	req := CompletionRequest{Messages: []Message{{Role: RoleUser, Content: "hi"}}}
	for i := 0; i < 3; i++ {
		if _, err := m.Complete(context.Background(), req); err != nil {
			t.Fatalf("Complete failed: %v", err)
		}
	}

	u := m.Usage()
	if u.Calls != 3 {
		t.Errorf("expected 3 calls, got %d", u.Calls)
	}
	if u.InputTokens != 30 || u.OutputTokens != 60 {
		t.Errorf("unexpected token totals: %+v", u)
	}
	if u.CostUSD <= 0 {
		t.Errorf("expected positive cost for gpt-4o, got %f", u.CostUSD)
	}
}

func TestMeterSkipsFailedCalls(t *testing.T) {
	mock := NewMockProvider("test")
	mock.Err = errors.New("boom")
	m := NewMeter(mock)

	if _, err := m.Complete(context.Background(), CompletionRequest{}); err == nil {
		t.Fatal("expected error")
	}
	if u := m.Usage(); u.Calls != 0 {
		t.Errorf("expected 0 metered calls, got %d", u.Calls)
	}
}
