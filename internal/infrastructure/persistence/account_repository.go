package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sellsync/backend/internal/domain/marketplace"
	"github.com/sellsync/backend/internal/domain/shared"
)

// GormAccountRepository implements marketplace.AccountRepository using GORM
type GormAccountRepository struct {
	db *gorm.DB
}

// NewGormAccountRepository creates a new GormAccountRepository
func NewGormAccountRepository(db *gorm.DB) *GormAccountRepository {
	return &GormAccountRepository{db: db}
}

// FindByID finds an account by ID
func (r *GormAccountRepository) FindByID(ctx context.Context, id uuid.UUID) (*marketplace.Account, error) {
	var account marketplace.Account
	if err := r.db.WithContext(ctx).First(&account, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, marketplace.ErrAccountNotFound
		}
		return nil, err
	}
	return &account, nil
}

// FindByIDForUser finds an account by ID scoped to its owner
func (r *GormAccountRepository) FindByIDForUser(ctx context.Context, userID, id uuid.UUID) (*marketplace.Account, error) {
	var account marketplace.Account
	if err := r.db.WithContext(ctx).First(&account, "id = ? AND user_id = ?", id, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, marketplace.ErrAccountNotFound
		}
		return nil, err
	}
	return &account, nil
}

// FindConnected lists every connected account across all users.
// The reconciliation scheduler uses this to enumerate sync targets.
func (r *GormAccountRepository) FindConnected(ctx context.Context) ([]marketplace.Account, error) {
	var accounts []marketplace.Account
	err := r.db.WithContext(ctx).
		Where("status = ?", marketplace.ConnectionStatusConnected).
		Order("created_at ASC").
		Find(&accounts).Error
	if err != nil {
		return nil, err
	}
	return accounts, nil
}

// FindAllForUser lists a user's accounts with filtering
func (r *GormAccountRepository) FindAllForUser(ctx context.Context, userID uuid.UUID, filter shared.Filter) ([]marketplace.Account, error) {
	query := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if mp, ok := filter.Filters["marketplace"]; ok {
		query = query.Where("marketplace = ?", mp)
	}
	if status, ok := filter.Filters["status"]; ok {
		query = query.Where("status = ?", status)
	}
	if filter.Page > 0 && filter.PageSize > 0 {
		query = query.Offset((filter.Page - 1) * filter.PageSize).Limit(filter.PageSize)
	}

	var accounts []marketplace.Account
	if err := query.Order("created_at DESC").Find(&accounts).Error; err != nil {
		return nil, err
	}
	return accounts, nil
}

// Save creates or updates an account
func (r *GormAccountRepository) Save(ctx context.Context, account *marketplace.Account) error {
	return r.db.WithContext(ctx).Save(account).Error
}

var _ marketplace.AccountRepository = (*GormAccountRepository)(nil)
