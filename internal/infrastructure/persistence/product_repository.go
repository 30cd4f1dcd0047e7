package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sellsync/backend/internal/domain/catalog"
)

// GormProductRepository implements catalog.Repository using GORM
type GormProductRepository struct {
	db *gorm.DB
}

// NewGormProductRepository creates a new GormProductRepository
func NewGormProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

// FindByID finds a product by ID with its variants
func (r *GormProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	var p catalog.Product
	err := r.db.WithContext(ctx).Preload("Variants").First(&p, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, catalog.ErrProductNotFound
		}
		return nil, err
	}
	return &p, nil
}

// FindBySKU resolves a SKU to a product/variant reference. Product SKUs
// match first; variant SKUs resolve to their parent product plus variant ID.
func (r *GormProductRepository) FindBySKU(ctx context.Context, userID uuid.UUID, sku string) (*catalog.SKURef, error) {
	var p catalog.Product
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND sku = ? AND active = ?", userID, sku, true).
		First(&p).Error
	if err == nil {
		return &catalog.SKURef{ProductID: p.ID}, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	var v catalog.Variant
	err = r.db.WithContext(ctx).
		Joins("JOIN products ON products.id = product_variants.product_id").
		Where("products.user_id = ? AND product_variants.sku = ? AND products.active = ?", userID, sku, true).
		First(&v).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, catalog.ErrProductNotFound
		}
		return nil, err
	}
	variantID := v.ID
	return &catalog.SKURef{ProductID: v.ProductID, VariantID: &variantID}, nil
}

// FindByIDs finds products by IDs
func (r *GormProductRepository) FindByIDs(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) ([]catalog.Product, error) {
	if len(ids) == 0 {
		return []catalog.Product{}, nil
	}
	var products []catalog.Product
	err := r.db.WithContext(ctx).
		Preload("Variants").
		Where("user_id = ? AND id IN ?", userID, ids).
		Find(&products).Error
	if err != nil {
		return nil, err
	}
	return products, nil
}

// Save creates or updates a product with its variants
func (r *GormProductRepository) Save(ctx context.Context, p *catalog.Product) error {
	return r.db.WithContext(ctx).
		Session(&gorm.Session{FullSaveAssociations: true}).
		Save(p).Error
}

var _ catalog.Repository = (*GormProductRepository)(nil)
