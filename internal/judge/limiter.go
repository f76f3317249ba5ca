package judge

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/semaphore"
)

// Limited wraps a Judge with a process-wide counting semaphore so that the
// number of simultaneous LLM calls never exceeds the configured capacity,
// across every inflight request. An optional per-call timeout cancels slow
// calls; the slot is released either way.
type Limited struct {
	inner       Judge
	sem         *semaphore.Weighted
	callTimeout time.Duration
}

func NewLimited(inner Judge, capacity int64, callTimeout time.Duration) *Limited {
	return &Limited{
		inner:       inner,
		sem:         semaphore.NewWeighted(capacity),
		callTimeout: callTimeout,
	}
}

func (l *Limited) Judge(ctx context.Context, req Request) (string, error) {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return "", fmt.Errorf("waiting for judge slot: %w", err)
	}
	defer l.sem.Release(1)

	if l.callTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.callTimeout)
		defer cancel()
	}

	return l.inner.Judge(ctx, req)
}
