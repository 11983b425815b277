package adapters

import (
	"context"
	"time"

	ordersvc "pawtrait_backend/internal/order/service"
	"pawtrait_backend/internal/scheduler"
)

// reconcileSweepWindow bounds how far back the periodic sweep re-checks
// recent payment sessions against the provider.
const reconcileSweepWindow = 24 * time.Hour

// SchedulerReconcileSweeper runs the order reconciliation pass from the
// periodic sweep task.
type SchedulerReconcileSweeper struct {
	svc *ordersvc.Service
}

func NewSchedulerReconcileSweeper(svc *ordersvc.Service) *SchedulerReconcileSweeper {
	return &SchedulerReconcileSweeper{svc: svc}
}

func (a *SchedulerReconcileSweeper) SweepRecentSessions(ctx context.Context) error {
	_, err := a.svc.ReconcileWindow(ctx, reconcileSweepWindow)
	return err
}

var _ scheduler.ReconcileSweeper = (*SchedulerReconcileSweeper)(nil)
