package llm

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// flakyProvider fails the first n calls, then succeeds.
type flakyProvider struct {
	mu    sync.Mutex
	fails int
	calls int
	err   error
}

func (f *flakyProvider) Name() string { return "flaky" }

func (f *flakyProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls <= f.fails {
		return nil, f.err
	}
	return &CompletionResponse{Content: "ok"}, nil
}

func fastPolicy(retries int) RetryPolicy {
	return RetryPolicy{MaxRetries: retries, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, Multiplier: 2}
}

func TestRetryRecoversFromTransientErrors(t *testing.T) {
	flaky := &flakyProvider{fails: 2, err: errors.New("503 service unavailable")}
	p := NewRetryingProvider(flaky, fastPolicy(2))

	resp, err := p.Complete(context.Background(), CompletionRequest{})
	if err != nil {
		t.Fatalf("expected recovery, got %v", err)
	}
	if resp.Content != "ok" {
		t.Errorf("unexpected content %q", resp.Content)
	}
	if flaky.calls != 3 {
		t.Errorf("expected 3 calls, got %d", flaky.calls)
	}
}

func TestRetryGivesUpAfterMaxRetries(t *testing.T) {
	flaky := &flakyProvider{fails: 10, err: errors.New("timeout")}
	p := NewRetryingProvider(flaky, fastPolicy(2))

	if _, err := p.Complete(context.Background(), CompletionRequest{}); err == nil {
		t.Fatal("expected error")
	}
	if flaky.calls != 3 {
		t.Errorf("expected 3 calls, got %d", flaky.calls)
	}
}

func TestRetryDoesNotRetryCancellation(t *testing.T) {
	flaky := &flakyProvider{fails: 10, err: context.Canceled}
	p := NewRetryingProvider(flaky, fastPolicy(3))

	_, err := p.Complete(context.Background(), CompletionRequest{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if flaky.calls != 1 {
		t.Errorf("expected 1 call, got %d", flaky.calls)
	}
}

func TestRetryZeroReturnsProvider(t *testing.T) {
	flaky := &flakyProvider{}
	if got := NewRetryingProvider(flaky, fastPolicy(0)); got != Provider(flaky) {
		t.Error("expected unwrapped provider")
	}
}

func TestRetryPolicyDelayIsCapped(t *testing.T) {
	p := RetryPolicy{InitialDelay: time.Second, MaxDelay: 3 * time.Second, Multiplier: 2}
	if d := p.delay(0); d != time.Second {
		t.Errorf("delay(0) = %s, want 1s", d)
	}
	if d := p.delay(5); d != 3*time.Second {
		t.Errorf("delay(5) = %s, want 3s", d)
	}
}
