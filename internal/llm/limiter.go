package llm

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Limiter bounds how many retry-wrapped gateway calls run at once across a
// stage-wide fan-out. Waiters are served in FIFO order.
type Limiter struct {
	sem *semaphore.Weighted
}

func NewLimiter(maxConcurrent int) *Limiter {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Limiter{sem: semaphore.NewWeighted(int64(maxConcurrent))}
}

func (l *Limiter) Acquire(ctx context.Context) error {
	return l.sem.Acquire(ctx, 1)
}

func (l *Limiter) Release() {
	l.sem.Release(1)
}
