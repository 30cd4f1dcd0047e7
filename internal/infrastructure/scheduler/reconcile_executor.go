package scheduler

import (
	"context"

	"github.com/sellsync/backend/internal/application/reconcile"
)

// ReconcileExecutor runs reconciliation jobs through the reconciliation engine
type ReconcileExecutor struct {
	engine *reconcile.Engine
}

// NewReconcileExecutor creates an executor backed by the reconciliation engine
func NewReconcileExecutor(engine *reconcile.Engine) *ReconcileExecutor {
	return &ReconcileExecutor{engine: engine}
}

// Execute pulls the account's order feed for the job's range and records
// the run results on the job
func (e *ReconcileExecutor) Execute(ctx context.Context, job *Job) error {
	report, err := e.engine.Reconcile(ctx, job.AccountID, reconcile.DateRange{
		From: job.DateFrom,
		To:   job.DateTo,
	})
	if err != nil {
		return err
	}

	job.Complete(report.Synced, report.Failed, report.Pages, report.Skipped)
	return nil
}

var _ Executor = (*ReconcileExecutor)(nil)
