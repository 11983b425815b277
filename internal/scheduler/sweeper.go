package scheduler

import (
	"context"
	"time"

	"pawtrait_backend/platform/logger"
)

const (
	outboxSweepInterval    = 5 * time.Second
	reconcileSweepInterval = time.Hour
)

// OutboxDispatcher claims due outbox rows and enqueues their delivery.
type OutboxDispatcher interface {
	DispatchDue(ctx context.Context) (int, error)
}

// Sweeper runs the periodic loops: pumping the notification outbox onto the
// queue and scheduling reconciliation sweeps.
type Sweeper struct {
	outbox    OutboxDispatcher
	reconcile *Client
	log       *logger.Logger
}

func NewSweeper(outbox OutboxDispatcher, client *Client, log *logger.Logger) *Sweeper {
	return &Sweeper{outbox: outbox, reconcile: client, log: log}
}

// Run blocks until the context is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	outboxTicker := time.NewTicker(outboxSweepInterval)
	defer outboxTicker.Stop()
	reconcileTicker := time.NewTicker(reconcileSweepInterval)
	defer reconcileTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-outboxTicker.C:
			if s.outbox == nil {
				continue
			}
			if _, err := s.outbox.DispatchDue(ctx); err != nil {
				s.log.Warn("outbox sweep failed", "error", err)
			}
		case <-reconcileTicker.C:
			if s.reconcile == nil {
				continue
			}
			if err := s.reconcile.EnqueueReconcileSweep(ctx); err != nil {
				s.log.Warn("failed to schedule reconcile sweep", "error", err)
			}
		}
	}
}
