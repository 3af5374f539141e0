package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-sla/internal/service"
)

// Sweeper runs one escalation sweep.
type Sweeper interface {
	Sweep(ctx context.Context) (service.SweepResult, error)
}

// StartEscalationWorker sweeps every interval until ctx is done. The returned channel closes when
// the loop exits. A non-positive interval starts nothing.
func StartEscalationWorker(ctx context.Context, sweeper Sweeper, interval time.Duration, logger *zap.Logger) <-chan struct{} {
	done := make(chan struct{})
	if sweeper == nil || interval <= 0 {
		close(done)
		return done
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		logger.Info("escalation worker started", zap.Duration("interval", interval))
		for {
			select {
			case <-ctx.Done():
				logger.Info("escalation worker stopped")
				return
			case <-ticker.C:
				if _, err := sweeper.Sweep(ctx); err != nil && ctx.Err() == nil {
					logger.Error("scheduled sla sweep failed", zap.Error(err))
				}
			}
		}
	}()
	return done
}
