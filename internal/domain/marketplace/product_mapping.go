package marketplace

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ProductMapping links a local product (and optional variant) to its
// identity on one marketplace account. The stock sync engine resolves these
// mappings during fan-out; a missing mapping skips that target only.
type ProductMapping struct {
	ID                uuid.UUID  `gorm:"type:uuid;primaryKey"`
	UserID            uuid.UUID  `gorm:"type:uuid;not null;index"`
	AccountID         uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_product_mappings_target,priority:1"`
	ProductID         uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_product_mappings_target,priority:2"`
	VariantID         *uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_product_mappings_target,priority:3"`
	ExternalProductID string     `gorm:"size:128;not null"`
	ExternalVariantID string     `gorm:"size:128"`
	ExternalSKU       string     `gorm:"size:128;index"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// TableName returns the table name for GORM
func (ProductMapping) TableName() string {
	return "marketplace_product_mappings"
}

// NewProductMapping creates a product mapping
func NewProductMapping(userID, accountID, productID uuid.UUID, variantID *uuid.UUID, externalProductID, externalVariantID, externalSKU string) (*ProductMapping, error) {
	if accountID == uuid.Nil || productID == uuid.Nil {
		return nil, ErrInvalidMappingTarget
	}
	if externalProductID == "" {
		return nil, ErrInvalidExternalID
	}
	now := time.Now()
	return &ProductMapping{
		ID:                uuid.New(),
		UserID:            userID,
		AccountID:         accountID,
		ProductID:         productID,
		VariantID:         variantID,
		ExternalProductID: externalProductID,
		ExternalVariantID: externalVariantID,
		ExternalSKU:       externalSKU,
		CreatedAt:         now,
		UpdatedAt:         now,
	}, nil
}

// ProductMappingRepository defines persistence for product mappings
type ProductMappingRepository interface {
	// FindByTarget resolves the mapping for a product/variant on one account
	FindByTarget(ctx context.Context, accountID, productID uuid.UUID, variantID *uuid.UUID) (*ProductMapping, error)

	// FindByAccount lists all mappings for an account
	FindByAccount(ctx context.Context, accountID uuid.UUID) ([]ProductMapping, error)

	// Save creates or updates a mapping
	Save(ctx context.Context, mapping *ProductMapping) error

	// Delete removes a mapping
	Delete(ctx context.Context, id uuid.UUID) error
}
