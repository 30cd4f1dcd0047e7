package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sellsync/backend/internal/domain/marketplace"
)

// GormProductMappingRepository implements ProductMappingRepository using GORM
type GormProductMappingRepository struct {
	db *gorm.DB
}

// NewGormProductMappingRepository creates a new GormProductMappingRepository
func NewGormProductMappingRepository(db *gorm.DB) *GormProductMappingRepository {
	return &GormProductMappingRepository{db: db}
}

// FindByTarget resolves the mapping for a product/variant on one account
func (r *GormProductMappingRepository) FindByTarget(ctx context.Context, accountID, productID uuid.UUID, variantID *uuid.UUID) (*marketplace.ProductMapping, error) {
	query := r.db.WithContext(ctx).Where("account_id = ? AND product_id = ?", accountID, productID)
	if variantID == nil {
		query = query.Where("variant_id IS NULL")
	} else {
		query = query.Where("variant_id = ?", *variantID)
	}

	var mapping marketplace.ProductMapping
	if err := query.First(&mapping).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, marketplace.ErrMappingNotFound
		}
		return nil, err
	}
	return &mapping, nil
}

// FindByAccount lists all mappings for an account
func (r *GormProductMappingRepository) FindByAccount(ctx context.Context, accountID uuid.UUID) ([]marketplace.ProductMapping, error) {
	var mappings []marketplace.ProductMapping
	err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("created_at ASC").
		Find(&mappings).Error
	if err != nil {
		return nil, err
	}
	return mappings, nil
}

// Save creates or updates a mapping
func (r *GormProductMappingRepository) Save(ctx context.Context, mapping *marketplace.ProductMapping) error {
	return r.db.WithContext(ctx).Save(mapping).Error
}

// Delete removes a mapping
func (r *GormProductMappingRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&marketplace.ProductMapping{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return marketplace.ErrMappingNotFound
	}
	return nil
}

var _ marketplace.ProductMappingRepository = (*GormProductMappingRepository)(nil)
