package llm

import (
	"context"
	"errors"
	"log"
	"math"
	"math/rand"
	"time"
)

// RetryPolicy controls how transport failures are retried.
type RetryPolicy struct {
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	Jitter       float64
}

// DefaultRetryPolicy returns the policy used when only a retry count is configured.
func DefaultRetryPolicy(maxRetries int) RetryPolicy {
	return RetryPolicy{
		MaxRetries:   maxRetries,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     8 * time.Second,
		Multiplier:   2.0,
		Jitter:       0.2,
	}
}

// delay returns the backoff before retry number attempt (0-based).
func (p RetryPolicy) delay(attempt int) time.Duration {
	multiplier := p.Multiplier
	if multiplier <= 0 {
		multiplier = 2.0
	}
	d := time.Duration(float64(p.InitialDelay) * math.Pow(multiplier, float64(attempt)))
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}
	if p.Jitter > 0 {
		offset := (rand.Float64()*2 - 1) * float64(d) * p.Jitter
		d = time.Duration(float64(d) + offset)
	}
	if d < time.Millisecond {
		d = time.Millisecond
	}
	return d
}

// RetryingProvider retries failed completions with exponential backoff.
// Context cancellation is never retried.
type RetryingProvider struct {
	provider Provider
	policy   RetryPolicy
}

// NewRetryingProvider wraps provider. A policy with MaxRetries <= 0 returns
// the provider unchanged.
func NewRetryingProvider(provider Provider, policy RetryPolicy) Provider {
	if policy.MaxRetries <= 0 {
		return provider
	}
	return &RetryingProvider{provider: provider, policy: policy}
}

func (r *RetryingProvider) Name() string {
	return r.provider.Name()
}

func (r *RetryingProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	var lastErr error
	for attempt := 0; attempt <= r.policy.MaxRetries; attempt++ {
		if attempt > 0 {
			d := r.policy.delay(attempt - 1)
			log.Printf("llm: %s request failed (attempt %d/%d), retrying in %s: %v",
				r.provider.Name(), attempt, r.policy.MaxRetries+1, d.Round(time.Millisecond), lastErr)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(d):
			}
		}

		resp, err := r.provider.Complete(ctx, req)
		if err == nil {
			return resp, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}
