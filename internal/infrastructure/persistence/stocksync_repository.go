package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sellsync/backend/internal/domain/shared"
	"github.com/sellsync/backend/internal/domain/stocksync"
)

// GormSyncRuleRepository implements stocksync.RuleRepository using GORM
type GormSyncRuleRepository struct {
	db *gorm.DB
}

// NewGormSyncRuleRepository creates a new GormSyncRuleRepository
func NewGormSyncRuleRepository(db *gorm.DB) *GormSyncRuleRepository {
	return &GormSyncRuleRepository{db: db}
}

// FindByID finds a rule by ID
func (r *GormSyncRuleRepository) FindByID(ctx context.Context, id uuid.UUID) (*stocksync.Rule, error) {
	var rule stocksync.Rule
	if err := r.db.WithContext(ctx).First(&rule, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, stocksync.ErrRuleNotFound
		}
		return nil, err
	}
	return &rule, nil
}

// FindActiveForUser lists a user's active rules
func (r *GormSyncRuleRepository) FindActiveForUser(ctx context.Context, userID uuid.UUID) ([]stocksync.Rule, error) {
	var rules []stocksync.Rule
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND active = ?", userID, true).
		Order("created_at ASC").
		Find(&rules).Error
	if err != nil {
		return nil, err
	}
	return rules, nil
}

// FindAllForUser lists all rules for a user
func (r *GormSyncRuleRepository) FindAllForUser(ctx context.Context, userID uuid.UUID, filter shared.Filter) ([]stocksync.Rule, error) {
	query := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if active, ok := filter.Filters["active"]; ok {
		query = query.Where("active = ?", active)
	}
	if filter.Page > 0 && filter.PageSize > 0 {
		query = query.Offset((filter.Page - 1) * filter.PageSize).Limit(filter.PageSize)
	}

	var rules []stocksync.Rule
	if err := query.Order("created_at DESC").Find(&rules).Error; err != nil {
		return nil, err
	}
	return rules, nil
}

// Save creates or updates a rule
func (r *GormSyncRuleRepository) Save(ctx context.Context, rule *stocksync.Rule) error {
	return r.db.WithContext(ctx).Save(rule).Error
}

// Delete removes a rule
func (r *GormSyncRuleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&stocksync.Rule{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return stocksync.ErrRuleNotFound
	}
	return nil
}

// GormSyncLogRepository implements stocksync.SyncLogRepository using GORM
type GormSyncLogRepository struct {
	db *gorm.DB
}

// NewGormSyncLogRepository creates a new GormSyncLogRepository
func NewGormSyncLogRepository(db *gorm.DB) *GormSyncLogRepository {
	return &GormSyncLogRepository{db: db}
}

// Save persists a completed sync log
func (r *GormSyncLogRepository) Save(ctx context.Context, log *stocksync.SyncLog) error {
	return r.db.WithContext(ctx).Save(log).Error
}

// FindByRule lists logs for a rule, newest first
func (r *GormSyncLogRepository) FindByRule(ctx context.Context, ruleID uuid.UUID, limit int) ([]stocksync.SyncLog, error) {
	if limit <= 0 {
		limit = 50
	}
	var logs []stocksync.SyncLog
	err := r.db.WithContext(ctx).
		Where("rule_id = ?", ruleID).
		Order("created_at DESC").
		Limit(limit).
		Find(&logs).Error
	if err != nil {
		return nil, err
	}
	return logs, nil
}

// FindForUser lists logs for a user with filtering
func (r *GormSyncLogRepository) FindForUser(ctx context.Context, userID uuid.UUID, filter shared.Filter) ([]stocksync.SyncLog, error) {
	query := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if status, ok := filter.Filters["status"]; ok {
		query = query.Where("status = ?", status)
	}
	if trigger, ok := filter.Filters["trigger"]; ok {
		// Manual runs append the caller's reason after the trigger token
		query = query.Where("trigger LIKE ?", fmt.Sprintf("%v%%", trigger))
	}
	if filter.Page > 0 && filter.PageSize > 0 {
		query = query.Offset((filter.Page - 1) * filter.PageSize).Limit(filter.PageSize)
	}

	sortField := ValidateSortField(filter.OrderBy, SyncLogSortFields, "created_at")
	var logs []stocksync.SyncLog
	if err := query.Order(sortField + " " + ValidateSortOrder(filter.OrderDir)).Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}

// StatsForUser aggregates counts over a time range
func (r *GormSyncLogRepository) StatsForUser(ctx context.Context, userID uuid.UUID, from, to time.Time) (*stocksync.SyncStats, error) {
	base := r.db.WithContext(ctx).
		Model(&stocksync.SyncLog{}).
		Where("user_id = ? AND created_at >= ? AND created_at < ?", userID, from, to)

	stats := &stocksync.SyncStats{}
	if err := base.Session(&gorm.Session{}).Count(&stats.TotalRuns).Error; err != nil {
		return nil, err
	}
	if err := base.Session(&gorm.Session{}).Where("status = ?", stocksync.SyncStatusSuccess).Count(&stats.SuccessRuns).Error; err != nil {
		return nil, err
	}
	if err := base.Session(&gorm.Session{}).Where("status = ?", stocksync.SyncStatusPartial).Count(&stats.PartialRuns).Error; err != nil {
		return nil, err
	}
	if err := base.Session(&gorm.Session{}).Where("status = ?", stocksync.SyncStatusFailed).Count(&stats.FailedRuns).Error; err != nil {
		return nil, err
	}

	var pushes *int64
	err := base.Session(&gorm.Session{}).
		Select("SUM(success_count + failure_count)").
		Scan(&pushes).Error
	if err != nil {
		return nil, err
	}
	if pushes != nil {
		stats.TargetPushes = *pushes
	}
	return stats, nil
}

var (
	_ stocksync.RuleRepository    = (*GormSyncRuleRepository)(nil)
	_ stocksync.SyncLogRepository = (*GormSyncLogRepository)(nil)
)
