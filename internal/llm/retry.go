package llm

import (
	"context"
	"fmt"
	"time"
)

// RetryNotifier receives a progress notification before every attempt after
// the first. attempt counts retries (1, 2, ...), max is the total number of
// retries that will be made.
type RetryNotifier func(modelID string, attempt, max int)

// Executor wraps a gateway call with bounded sequential retry and exponential
// backoff. MaxAttempts=1 disables retry entirely.
type Executor struct {
	MaxAttempts int
	BaseBackoff time.Duration
	OnRetry     RetryNotifier

	// sleep is swappable for tests; defaults to a context-aware wait.
	sleep func(ctx context.Context, d time.Duration) error
}

func NewExecutor(maxAttempts int, baseBackoff time.Duration, onRetry RetryNotifier) *Executor {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if baseBackoff <= 0 {
		baseBackoff = time.Second
	}
	return &Executor{
		MaxAttempts: maxAttempts,
		BaseBackoff: baseBackoff,
		OnRetry:     onRetry,
		sleep:       sleepCtx,
	}
}

// SetSleep overrides the backoff wait for testing.
func (e *Executor) SetSleep(fn func(ctx context.Context, d time.Duration) error) {
	e.sleep = fn
}

// Execute runs fn up to MaxAttempts times. Attempts are strictly sequential;
// a non-retryable error or a cancelled context ends the loop early. The
// returned error is the last attempt's error once everything is exhausted.
func (e *Executor) Execute(ctx context.Context, modelID string, fn func(ctx context.Context) (string, error)) (string, error) {
	var lastErr error

	for attempt := 1; attempt <= e.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return "", lastErr
			}
			return "", err
		}

		if attempt > 1 {
			if e.OnRetry != nil {
				e.OnRetry(modelID, attempt-1, e.MaxAttempts-1)
			}
			backoff := e.BaseBackoff << (attempt - 2)
			if err := e.sleep(ctx, backoff); err != nil {
				return "", lastErr
			}
		}

		text, err := fn(ctx)
		if err == nil {
			return text, nil
		}
		lastErr = err

		if !Retryable(err) {
			return "", err
		}
	}

	return "", fmt.Errorf("all %d attempts failed: %w", e.MaxAttempts, lastErr)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
