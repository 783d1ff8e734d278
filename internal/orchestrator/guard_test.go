package orchestrator

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/danielpatrickdp/phase-negotiator/go-controller/internal/phase"
)

type concurrencyProbe struct {
	inFlight atomic.Int32
	maxSeen  atomic.Int32
}

func (p *concurrencyProbe) Complete(_ context.Context, _ string, _ int, _ float64) (string, error) {
	n := p.inFlight.Add(1)
	for {
		m := p.maxSeen.Load()
		if n <= m || p.maxSeen.CompareAndSwap(m, n) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)
	p.inFlight.Add(-1)
	return "done", nil
}

func TestGuard_Serializes(t *testing.T) {
	defer goleak.VerifyNone(t)

	probe := &concurrencyProbe{}
	g := NewGuard(probe, time.Second)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = g.Complete(context.Background(), "p", 10, 0.7)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), probe.maxSeen.Load())
	assert.Equal(t, "backend", g.Name())
}

func TestGuard_Timeout(t *testing.T) {
	defer goleak.VerifyNone(t)

	g := NewGuard(&fakeBackend{block: true}, 10*time.Millisecond)
	_, err := g.Complete(context.Background(), "p", 10, 0.7)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestGuard_CanceledBeforeCall(t *testing.T) {
	fb := &fakeBackend{replies: []string{"hi"}}
	g := NewGuard(fb, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := g.Complete(ctx, "p", 10, 0.7)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, fb.callCount())
	assert.Equal(t, "fake", NewGuard(fb, 0).Name())
}

// stuckBackend ignores its context and returns only once release is closed.
type stuckBackend struct {
	release chan struct{}
	calls   atomic.Int32
}

func (s *stuckBackend) Complete(_ context.Context, _ string, _ int, _ float64) (string, error) {
	s.calls.Add(1)
	<-s.release
	return goodReply, nil
}

func TestGuard_SlotWaitIsBounded(t *testing.T) {
	defer goleak.VerifyNone(t)

	sb := &stuckBackend{release: make(chan struct{})}
	defer close(sb.release)
	g := NewGuard(sb, 30*time.Millisecond)

	_, err := g.Complete(context.Background(), "p", 10, 0.7)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	start := time.Now()
	_, err = g.Complete(context.Background(), "p", 10, 0.7)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, int32(1), sb.calls.Load())
}

func TestGenerate_AllModesBoundedByTimeout(t *testing.T) {
	defer goleak.VerifyNone(t)

	sb := &stuckBackend{release: make(chan struct{})}
	defer close(sb.release)
	o := New(nil, sb, WithTimeout(50*time.Millisecond))

	start := time.Now()
	b, err := o.Generate(context.Background(), Request{Phase: phase.AskDetails, Transcript: sampleTranscript(), Mode: ModeAll})
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.True(t, b.Degraded)
	for _, r := range b.Results[1:] {
		assert.True(t, r.Degraded, r.Mode)
		assert.Contains(t, r.Reason, "deadline exceeded")
	}
}
