package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sellsync/backend/internal/domain/automation"
	"github.com/sellsync/backend/internal/domain/shared"
)

// GormAutomationRuleRepository implements automation.Repository using GORM
type GormAutomationRuleRepository struct {
	db *gorm.DB
}

// NewGormAutomationRuleRepository creates a new GormAutomationRuleRepository
func NewGormAutomationRuleRepository(db *gorm.DB) *GormAutomationRuleRepository {
	return &GormAutomationRuleRepository{db: db}
}

// FindByID finds a rule by ID
func (r *GormAutomationRuleRepository) FindByID(ctx context.Context, id uuid.UUID) (*automation.Rule, error) {
	var rule automation.Rule
	if err := r.db.WithContext(ctx).First(&rule, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &rule, nil
}

// FindActiveForUser lists a user's active rules ordered by priority
// ascending, then creation time. The evaluator relies on this order so the
// highest priority rule applies last.
func (r *GormAutomationRuleRepository) FindActiveForUser(ctx context.Context, userID uuid.UUID) ([]automation.Rule, error) {
	var rules []automation.Rule
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND active = ?", userID, true).
		Order("priority ASC, created_at ASC").
		Find(&rules).Error
	if err != nil {
		return nil, err
	}
	return rules, nil
}

// Save creates or updates a rule
func (r *GormAutomationRuleRepository) Save(ctx context.Context, rule *automation.Rule) error {
	return r.db.WithContext(ctx).Save(rule).Error
}

// Delete removes a rule
func (r *GormAutomationRuleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&automation.Rule{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

var _ automation.Repository = (*GormAutomationRuleRepository)(nil)
