package stocksync

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/sellsync/backend/internal/domain/shared"
)

// SyncStatus is the aggregate outcome of one rule invocation
type SyncStatus string

const (
	SyncStatusSuccess SyncStatus = "SUCCESS"
	SyncStatusPartial SyncStatus = "PARTIAL"
	SyncStatusFailed  SyncStatus = "FAILED"
)

// TargetResult records the outcome for one target account during fan-out
type TargetResult struct {
	AccountID         uuid.UUID `json:"account_id"`
	Marketplace       string    `json:"marketplace"`
	ExternalProductID string    `json:"external_product_id"`
	ExternalVariantID string    `json:"external_variant_id,omitempty"`
	SyncedStock       int       `json:"synced_stock"`
	Success           bool      `json:"success"`
	Skipped           bool      `json:"skipped"` // no mapping for this target
	ErrorMessage      string    `json:"error_message,omitempty"`
}

// SyncLog is the persisted record of one rule invocation: the computed
// target stock plus the per-target result list with success/failure counts.
type SyncLog struct {
	shared.OwnedAggregateRoot
	RuleID       uuid.UUID      `gorm:"type:uuid;not null;index"`
	ProductID    uuid.UUID      `gorm:"type:uuid;not null;index"`
	VariantID    *uuid.UUID     `gorm:"type:uuid"`
	Trigger      string         `gorm:"size:255;not null"` // trigger token, plus the caller's reason for manual runs
	SourceStock  int            `gorm:"not null"`
	TargetStock  int            `gorm:"not null"`
	UsedFallback bool           `gorm:"not null;default:false"`
	Results      []TargetResult `gorm:"serializer:json"`
	SuccessCount int            `gorm:"not null;default:0"`
	FailureCount int            `gorm:"not null;default:0"`
	SkippedCount int            `gorm:"not null;default:0"`
	Status       SyncStatus     `gorm:"size:10;not null"`
	CompletedAt  time.Time      `gorm:"not null"`
}

// TableName returns the table name for GORM
func (SyncLog) TableName() string {
	return "stock_sync_logs"
}

// NewSyncLog starts a log for one rule invocation
func NewSyncLog(userID, ruleID, productID uuid.UUID, variantID *uuid.UUID, trigger string, sourceStock, targetStock int, usedFallback bool) *SyncLog {
	return &SyncLog{
		OwnedAggregateRoot: shared.NewOwnedAggregateRoot(userID),
		RuleID:             ruleID,
		ProductID:          productID,
		VariantID:          variantID,
		Trigger:            trigger,
		SourceStock:        sourceStock,
		TargetStock:        targetStock,
		UsedFallback:       usedFallback,
		Results:            make([]TargetResult, 0),
	}
}

// AddResult appends a per-target result and updates the counters
func (l *SyncLog) AddResult(result TargetResult) {
	l.Results = append(l.Results, result)
	switch {
	case result.Skipped:
		l.SkippedCount++
	case result.Success:
		l.SuccessCount++
	default:
		l.FailureCount++
	}
}

// Finalize sets the aggregate status from the counters
func (l *SyncLog) Finalize() {
	l.CompletedAt = time.Now()
	switch {
	case l.FailureCount == 0:
		l.Status = SyncStatusSuccess
	case l.SuccessCount > 0:
		l.Status = SyncStatusPartial
	default:
		l.Status = SyncStatusFailed
	}
}

// SyncStats aggregates log counts over a time range for the management surface
type SyncStats struct {
	TotalRuns    int64 `json:"total_runs"`
	SuccessRuns  int64 `json:"success_runs"`
	PartialRuns  int64 `json:"partial_runs"`
	FailedRuns   int64 `json:"failed_runs"`
	TargetPushes int64 `json:"target_pushes"`
}

// SyncLogRepository defines persistence for sync logs
type SyncLogRepository interface {
	// Save persists a completed sync log
	Save(ctx context.Context, log *SyncLog) error

	// FindByRule lists logs for a rule, newest first
	FindByRule(ctx context.Context, ruleID uuid.UUID, limit int) ([]SyncLog, error)

	// FindForUser lists logs for a user with filtering
	FindForUser(ctx context.Context, userID uuid.UUID, filter shared.Filter) ([]SyncLog, error)

	// StatsForUser aggregates counts over a time range
	StatsForUser(ctx context.Context, userID uuid.UUID, from, to time.Time) (*SyncStats, error)
}
