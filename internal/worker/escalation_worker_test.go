package worker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-sla/internal/service"
)

type countingSweeper struct {
	calls atomic.Int32
}

func (c *countingSweeper) Sweep(context.Context) (service.SweepResult, error) {
	c.calls.Add(1)
	return service.SweepResult{}, nil
}

func TestEscalationWorkerSweepsUntilCancelled(t *testing.T) {
	sweeper := &countingSweeper{}
	ctx, cancel := context.WithCancel(context.Background())

	done := StartEscalationWorker(ctx, sweeper, 5*time.Millisecond, nil)
	require.Eventually(t, func() bool { return sweeper.calls.Load() >= 2 }, time.Second, time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}

func TestEscalationWorkerDisabled(t *testing.T) {
	sweeper := &countingSweeper{}

	done := StartEscalationWorker(context.Background(), sweeper, 0, nil)

	_, open := <-done
	assert.False(t, open)
	assert.Zero(t, sweeper.calls.Load())
}
