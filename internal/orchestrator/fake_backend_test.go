package orchestrator

import (
	"context"
	"sync"
)

// fakeBackend returns replies in order, repeating the last one.
type fakeBackend struct {
	mu      sync.Mutex
	replies []string
	err     error
	block   bool

	calls   int
	prompts []string
	temps   []float64
}

func (f *fakeBackend) Complete(ctx context.Context, prompt string, _ int, temperature float64) (string, error) {
	f.mu.Lock()
	i := f.calls
	f.calls++
	f.prompts = append(f.prompts, prompt)
	f.temps = append(f.temps, temperature)
	f.mu.Unlock()

	if f.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if f.err != nil {
		return "", f.err
	}
	if len(f.replies) == 0 {
		return "", nil
	}
	if i >= len(f.replies) {
		i = len(f.replies) - 1
	}
	return f.replies[i], nil
}

func (f *fakeBackend) Name() string { return "fake" }

func (f *fakeBackend) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}
