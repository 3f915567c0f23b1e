package embedder

import (
	"context"
	"time"

	"github.com/dshills/patternfinder-mcp/pkg/types"
)

// RetryConfig configures fixed-delay retry behavior
type RetryConfig struct {
	Attempts int           // Total attempts, including the first
	Delay    time.Duration // Wait between attempts
}

// DefaultRetryConfig returns sensible defaults for API retry
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		Attempts: 3,
		Delay:    500 * time.Millisecond,
	}
}

// retryTransient calls fn until it succeeds, fails permanently, or runs out of
// attempts. Every failure is returned as a *types.ProviderError. onAttempt is
// called before each attempt and may be nil.
func retryTransient[T any](ctx context.Context, provider string, config RetryConfig, onAttempt func(), fn func(context.Context) (T, error)) (T, error) {
	var zero T
	attempts := config.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if onAttempt != nil {
			onAttempt()
		}
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		// Caller gave up; not a provider fault
		if ctx.Err() == context.Canceled {
			return zero, &types.ProviderError{Provider: provider, Attempts: attempt, Err: ctx.Err()}
		}

		if !IsTransient(err) {
			return zero, &types.ProviderError{Provider: provider, Attempts: attempt, Err: err}
		}

		if attempt < attempts {
			timer := time.NewTimer(config.Delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return zero, &types.ProviderError{Provider: provider, Transient: true, Attempts: attempt, Err: ctx.Err()}
			case <-timer.C:
			}
		}
	}

	return zero, &types.ProviderError{
		Provider:  provider,
		Transient: true,
		Exhausted: true,
		Attempts:  attempts,
		Err:       lastErr,
	}
}
