package orchestrator

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/semaphore"
)

// #region guard

// Guard serializes access to a backend and bounds every call with a timeout.
// Only one generation is in flight at a time. The timeout covers the wait for
// the slot as well as the call, so a call abandoned on timeout that still holds
// the slot makes later callers fail after their own timeout.
type Guard struct {
	backend Backend
	sem     *semaphore.Weighted
	timeout time.Duration
}

// NewGuard wraps b. timeout <= 0 disables the per-call deadline.
func NewGuard(b Backend, timeout time.Duration) *Guard {
	return &Guard{backend: b, sem: semaphore.NewWeighted(1), timeout: timeout}
}

// Complete waits for the backend to be free, then runs one completion.
func (g *Guard) Complete(ctx context.Context, prompt string, maxNewTokens int, temperature float64) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("generation: %w", err)
	}
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return "", fmt.Errorf("wait for backend: %w", err)
	}

	type result struct {
		text string
		err  error
	}
	done := make(chan result, 1)
	go func() {
		defer g.sem.Release(1)
		text, err := g.backend.Complete(ctx, prompt, maxNewTokens, temperature)
		done <- result{text, err}
	}()

	select {
	case r := <-done:
		return r.text, r.err
	case <-ctx.Done():
		return "", fmt.Errorf("generation: %w", ctx.Err())
	}
}

// Name forwards the wrapped backend's name when it has one.
func (g *Guard) Name() string {
	if n, ok := g.backend.(namedBackend); ok {
		return n.Name()
	}
	return "backend"
}

// #endregion
