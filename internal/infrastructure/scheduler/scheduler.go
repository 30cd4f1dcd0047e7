package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// JobStatus represents the status of a reconciliation job
type JobStatus string

const (
	JobStatusPending JobStatus = "PENDING"
	JobStatusRunning JobStatus = "RUNNING"
	JobStatusSuccess JobStatus = "SUCCESS"
	JobStatusPartial JobStatus = "PARTIAL"
	JobStatusSkipped JobStatus = "SKIPPED"
	JobStatusFailed  JobStatus = "FAILED"
)

// Job represents one scheduled reconciliation run for a marketplace account
type Job struct {
	ID          uuid.UUID
	AccountID   uuid.UUID
	DateFrom    time.Time
	DateTo      time.Time
	Status      JobStatus
	Error       string
	StartedAt   *time.Time
	CompletedAt *time.Time
	RetryCount  int
	MaxRetries  int
	NextRetryAt *time.Time

	// Run results
	Synced int
	Failed int
	Pages  int
}

// NewJob creates a pending reconciliation job
func NewJob(accountID uuid.UUID, dateFrom, dateTo time.Time, maxRetries int) *Job {
	return &Job{
		ID:         uuid.New(),
		AccountID:  accountID,
		DateFrom:   dateFrom,
		DateTo:     dateTo,
		Status:     JobStatusPending,
		MaxRetries: maxRetries,
	}
}

// Start marks the job as running
func (j *Job) Start() {
	now := time.Now()
	j.Status = JobStatusRunning
	j.StartedAt = &now
	j.Error = ""
}

// Complete records the run results and derives the final status
func (j *Job) Complete(synced, failed, pages int, skipped bool) {
	now := time.Now()
	j.Synced = synced
	j.Failed = failed
	j.Pages = pages
	j.CompletedAt = &now

	switch {
	case skipped:
		j.Status = JobStatusSkipped
	case failed == 0:
		j.Status = JobStatusSuccess
	case synced > 0:
		j.Status = JobStatusPartial
	default:
		j.Status = JobStatusFailed
	}
}

// Fail marks the job as failed
func (j *Job) Fail(err string) {
	now := time.Now()
	j.Status = JobStatusFailed
	j.CompletedAt = &now
	j.Error = err
}

// ShouldRetry returns true if the job should be retried
func (j *Job) ShouldRetry() bool {
	return j.Status == JobStatusFailed && j.RetryCount < j.MaxRetries
}

// ScheduleRetry schedules the job for retry with exponential backoff
func (j *Job) ScheduleRetry(baseDelay time.Duration) {
	j.RetryCount++
	j.Status = JobStatusPending
	delay := baseDelay * time.Duration(1<<(j.RetryCount-1))
	if delay > 30*time.Minute {
		delay = 30 * time.Minute
	}
	nextRetry := time.Now().Add(delay)
	j.NextRetryAt = &nextRetry
	j.Error = ""
}

// Executor runs one reconciliation job
type Executor interface {
	Execute(ctx context.Context, job *Job) error
}

// Config holds scheduler configuration
type Config struct {
	MaxConcurrentJobs int
	JobTimeout        time.Duration
	RetryAttempts     int
	RetryDelay        time.Duration
}

// DefaultConfig returns default scheduler configuration
func DefaultConfig() Config {
	return Config{
		MaxConcurrentJobs: 3,
		JobTimeout:        10 * time.Minute,
		RetryAttempts:     3,
		RetryDelay:        1 * time.Minute,
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.MaxConcurrentJobs <= 0 {
		return ErrInvalidConfig
	}
	if c.JobTimeout <= 0 {
		return ErrInvalidConfig
	}
	if c.RetryAttempts < 0 {
		return ErrInvalidConfig
	}
	return nil
}

// Scheduler runs reconciliation jobs on a bounded worker pool
type Scheduler struct {
	config   Config
	executor Executor
	logger   *zap.Logger

	jobs      chan *Job
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool

	// Job history for monitoring (in-memory, limited size)
	historyMu  sync.RWMutex
	history    []*Job
	maxHistory int
}

// NewScheduler creates a reconciliation scheduler
func NewScheduler(config Config, executor Executor, logger *zap.Logger) (*Scheduler, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &Scheduler{
		config:     config,
		executor:   executor,
		logger:     logger,
		jobs:       make(chan *Job, 100),
		history:    make([]*Job, 0, 100),
		maxHistory: 100,
	}, nil
}

// Start starts the worker pool
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	for i := 0; i < s.config.MaxConcurrentJobs; i++ {
		s.wg.Add(1)
		go s.worker(ctx, i)
	}

	s.logger.Info("Reconciliation scheduler started",
		zap.Int("workers", s.config.MaxConcurrentJobs),
		zap.Duration("job_timeout", s.config.JobTimeout),
	)

	return nil
}

// Stop gracefully stops the scheduler
func (s *Scheduler) Stop(ctx context.Context) error {
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

	close(s.jobs)

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Reconciliation scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Reconciliation scheduler stop timed out")
		return ctx.Err()
	}
}

// SubmitJob submits a job for execution
func (s *Scheduler) SubmitJob(job *Job) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return ErrSchedulerNotRunning
	}
	s.mu.Unlock()

	select {
	case s.jobs <- job:
		s.logger.Debug("Reconciliation job submitted",
			zap.String("job_id", job.ID.String()),
			zap.String("account_id", job.AccountID.String()),
		)
		return nil
	default:
		return ErrJobQueueFull
	}
}

// ScheduleReconcile submits a reconciliation job for one account and range
func (s *Scheduler) ScheduleReconcile(accountID uuid.UUID, dateFrom, dateTo time.Time) error {
	if dateFrom.After(dateTo) {
		return ErrInvalidTimeRange
	}
	job := NewJob(accountID, dateFrom, dateTo, s.config.RetryAttempts)
	return s.SubmitJob(job)
}

// worker processes jobs from the queue
func (s *Scheduler) worker(ctx context.Context, workerID int) {
	defer s.wg.Done()

	s.logger.Debug("Reconciliation worker started", zap.Int("worker_id", workerID))

	for {
		select {
		case <-ctx.Done():
			s.logger.Debug("Reconciliation worker stopping", zap.Int("worker_id", workerID))
			return
		case job, ok := <-s.jobs:
			if !ok {
				s.logger.Debug("Reconciliation job channel closed", zap.Int("worker_id", workerID))
				return
			}
			s.processJob(ctx, job, workerID)
		}
	}
}

// processJob executes a single job
func (s *Scheduler) processJob(ctx context.Context, job *Job, workerID int) {
	// Check if job is ready to run (for retries)
	if job.NextRetryAt != nil && time.Now().Before(*job.NextRetryAt) {
		select {
		case s.jobs <- job:
		default:
			s.logger.Warn("Failed to re-queue reconciliation job for retry",
				zap.String("job_id", job.ID.String()),
			)
		}
		return
	}

	job.Start()
	s.logger.Info("Processing reconciliation job",
		zap.Int("worker_id", workerID),
		zap.String("job_id", job.ID.String()),
		zap.String("account_id", job.AccountID.String()),
		zap.Time("date_from", job.DateFrom),
		zap.Time("date_to", job.DateTo),
	)

	jobCtx, cancel := context.WithTimeout(ctx, s.config.JobTimeout)
	defer cancel()

	err := s.executor.Execute(jobCtx, job)
	if err != nil {
		job.Fail(err.Error())
		s.logger.Error("Reconciliation job failed",
			zap.Int("worker_id", workerID),
			zap.String("job_id", job.ID.String()),
			zap.String("account_id", job.AccountID.String()),
			zap.Error(err),
		)

		if job.ShouldRetry() {
			job.ScheduleRetry(s.config.RetryDelay)
			s.logger.Info("Reconciliation job scheduled for retry",
				zap.String("job_id", job.ID.String()),
				zap.Int("retry_count", job.RetryCount),
				zap.Int("max_retries", job.MaxRetries),
				zap.Time("next_retry_at", *job.NextRetryAt),
			)
			select {
			case s.jobs <- job:
			default:
				s.logger.Warn("Failed to re-queue reconciliation job for retry",
					zap.String("job_id", job.ID.String()),
				)
			}
		}

		s.addToHistory(job)
		return
	}

	s.logger.Info("Reconciliation job completed",
		zap.Int("worker_id", workerID),
		zap.String("job_id", job.ID.String()),
		zap.String("account_id", job.AccountID.String()),
		zap.String("status", string(job.Status)),
		zap.Int("synced", job.Synced),
		zap.Int("failed", job.Failed),
		zap.Int("pages", job.Pages),
	)

	s.addToHistory(job)
}

// addToHistory adds a completed job to history
func (s *Scheduler) addToHistory(job *Job) {
	s.historyMu.Lock()
	defer s.historyMu.Unlock()

	s.history = append([]*Job{job}, s.history...)

	if len(s.history) > s.maxHistory {
		s.history = s.history[:s.maxHistory]
	}
}

// GetJobHistory returns recent job history, most recent first
func (s *Scheduler) GetJobHistory(limit int) []*Job {
	s.historyMu.RLock()
	defer s.historyMu.RUnlock()

	if limit <= 0 || limit > len(s.history) {
		limit = len(s.history)
	}

	result := make([]*Job, limit)
	copy(result, s.history[:limit])
	return result
}

// GetJobHistoryByAccount returns job history for one account
func (s *Scheduler) GetJobHistoryByAccount(accountID uuid.UUID, limit int) []*Job {
	s.historyMu.RLock()
	defer s.historyMu.RUnlock()

	result := make([]*Job, 0, limit)
	for _, job := range s.history {
		if job.AccountID == accountID {
			result = append(result, job)
			if len(result) >= limit {
				break
			}
		}
	}
	return result
}
