package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sellsync/backend/internal/domain/marketplace"
)

// TriggerConfig holds configuration for the periodic reconciliation trigger
type TriggerConfig struct {
	// Interval is how often connected accounts are enumerated and scheduled
	Interval time.Duration
	// Lookback is how far back each scheduled run reaches
	Lookback time.Duration
}

// DefaultTriggerConfig returns default trigger configuration
func DefaultTriggerConfig() TriggerConfig {
	return TriggerConfig{
		Interval: 10 * time.Minute,
		Lookback: 24 * time.Hour,
	}
}

// ReconcileTrigger periodically schedules reconciliation jobs for every
// connected marketplace account
type ReconcileTrigger struct {
	config    TriggerConfig
	scheduler *Scheduler
	accounts  marketplace.AccountRepository
	logger    *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool

	// Track last scheduled time per account to avoid duplicate scheduling
	lastScheduledMu sync.RWMutex
	lastScheduled   map[uuid.UUID]time.Time
}

// NewReconcileTrigger creates a periodic reconciliation trigger
func NewReconcileTrigger(
	config TriggerConfig,
	scheduler *Scheduler,
	accounts marketplace.AccountRepository,
	logger *zap.Logger,
) *ReconcileTrigger {
	return &ReconcileTrigger{
		config:        config,
		scheduler:     scheduler,
		accounts:      accounts,
		logger:        logger,
		lastScheduled: make(map[uuid.UUID]time.Time),
	}
}

// Start starts the trigger loop
func (t *ReconcileTrigger) Start(ctx context.Context) error {
	t.mu.Lock()
	if t.isRunning {
		t.mu.Unlock()
		return nil
	}
	t.isRunning = true
	t.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	t.cancel = cancel

	t.wg.Add(1)
	go t.runLoop(ctx)

	t.logger.Info("Reconciliation trigger started",
		zap.Duration("interval", t.config.Interval),
		zap.Duration("lookback", t.config.Lookback),
	)

	return nil
}

// Stop stops the trigger loop
func (t *ReconcileTrigger) Stop(ctx context.Context) error {
	t.mu.Lock()
	if !t.isRunning {
		t.mu.Unlock()
		return nil
	}
	t.isRunning = false
	t.mu.Unlock()

	if t.cancel != nil {
		t.cancel()
	}

	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		t.logger.Info("Reconciliation trigger stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// runLoop periodically schedules reconciliation jobs
func (t *ReconcileTrigger) runLoop(ctx context.Context) {
	defer t.wg.Done()

	ticker := time.NewTicker(t.config.Interval)
	defer ticker.Stop()

	// Run immediately on start
	t.checkAndSchedule(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.checkAndSchedule(ctx)
		}
	}
}

// checkAndSchedule enumerates connected accounts and schedules jobs as needed
func (t *ReconcileTrigger) checkAndSchedule(ctx context.Context) {
	accounts, err := t.accounts.FindConnected(ctx)
	if err != nil {
		t.logger.Error("Failed to list connected accounts", zap.Error(err))
		return
	}

	if len(accounts) == 0 {
		t.logger.Debug("No connected accounts to reconcile")
		return
	}

	now := time.Now()
	scheduled := 0

	for i := range accounts {
		account := &accounts[i]
		if !t.shouldSchedule(account.ID, now) {
			continue
		}

		dateFrom := now.Add(-t.config.Lookback)
		if err := t.scheduler.ScheduleReconcile(account.ID, dateFrom, now); err != nil {
			t.logger.Error("Failed to schedule reconciliation",
				zap.String("account_id", account.ID.String()),
				zap.String("marketplace", account.Marketplace.String()),
				zap.Error(err),
			)
			continue
		}

		t.updateLastScheduled(account.ID, now)
		scheduled++
	}

	if scheduled > 0 {
		t.logger.Info("Reconciliation jobs scheduled",
			zap.Int("accounts", scheduled),
		)
	}
}

// shouldSchedule returns false while a recently scheduled run is still fresh
func (t *ReconcileTrigger) shouldSchedule(accountID uuid.UUID, now time.Time) bool {
	t.lastScheduledMu.RLock()
	last, exists := t.lastScheduled[accountID]
	t.lastScheduledMu.RUnlock()

	return !exists || now.Sub(last) >= t.config.Interval
}

func (t *ReconcileTrigger) updateLastScheduled(accountID uuid.UUID, at time.Time) {
	t.lastScheduledMu.Lock()
	t.lastScheduled[accountID] = at
	t.lastScheduledMu.Unlock()
}

// TriggerManualReconcile schedules an immediate run for one account
func (t *ReconcileTrigger) TriggerManualReconcile(accountID uuid.UUID, dateFrom, dateTo time.Time) error {
	if dateFrom.After(dateTo) {
		return ErrInvalidTimeRange
	}
	// Max 7 days per run keeps single jobs bounded
	if dateTo.Sub(dateFrom) > 7*24*time.Hour {
		return ErrInvalidTimeRange
	}

	t.logger.Info("Manual reconciliation triggered",
		zap.String("account_id", accountID.String()),
		zap.Time("date_from", dateFrom),
		zap.Time("date_to", dateTo),
	)

	return t.scheduler.ScheduleReconcile(accountID, dateFrom, dateTo)
}
