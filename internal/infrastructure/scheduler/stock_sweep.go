package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// StockSweepEngine re-syncs inventories mutated since a cutoff. It backs up
// the event-driven stock sync path for changes whose events were missed.
type StockSweepEngine interface {
	SyncRecentlyMutated(ctx context.Context, cutoff time.Time) (int, error)
}

// SweepConfig holds configuration for the periodic stock sweep
type SweepConfig struct {
	// Interval is how often the sweep runs
	Interval time.Duration
	// Lookback is how far back the sweep scans for mutated inventories
	Lookback time.Duration
	// Timeout bounds a single sweep pass
	Timeout time.Duration
}

// DefaultSweepConfig returns default sweep configuration
func DefaultSweepConfig() SweepConfig {
	return SweepConfig{
		Interval: 5 * time.Minute,
		Lookback: 10 * time.Minute,
		Timeout:  10 * time.Minute,
	}
}

// StockSweeper periodically re-syncs recently mutated inventories
type StockSweeper struct {
	config SweepConfig
	engine StockSweepEngine
	logger *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewStockSweeper creates a periodic stock sweeper
func NewStockSweeper(config SweepConfig, engine StockSweepEngine, logger *zap.Logger) *StockSweeper {
	return &StockSweeper{
		config: config,
		engine: engine,
		logger: logger,
	}
}

// Start starts the sweep loop
func (s *StockSweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.runLoop(ctx)

	s.logger.Info("Stock sweep started",
		zap.Duration("interval", s.config.Interval),
		zap.Duration("lookback", s.config.Lookback),
	)

	return nil
}

// Stop stops the sweep loop
func (s *StockSweeper) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Stock sweep stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// runLoop runs the sweep on every tick
func (s *StockSweeper) runLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

// sweep re-syncs every inventory mutated within the lookback window
func (s *StockSweeper) sweep(ctx context.Context) {
	sweepCtx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	cutoff := time.Now().Add(-s.config.Lookback)
	synced, err := s.engine.SyncRecentlyMutated(sweepCtx, cutoff)
	if err != nil {
		s.logger.Error("Stock sweep failed",
			zap.Time("cutoff", cutoff),
			zap.Error(err),
		)
		return
	}

	if synced > 0 {
		s.logger.Info("Stock sweep completed",
			zap.Time("cutoff", cutoff),
			zap.Int("inventories_synced", synced),
		)
	}
}
