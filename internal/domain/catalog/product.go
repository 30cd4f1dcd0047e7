package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/sellsync/backend/internal/domain/shared"
)

var (
	ErrProductNotFound = errors.New("catalog: product not found")
	ErrInvalidSKU      = errors.New("catalog: SKU cannot be empty")
	ErrInvalidName     = errors.New("catalog: product name cannot be empty")
)

// Product is the seller's canonical catalog entry. Line items from
// marketplace orders resolve against it by SKU; stock sync rules match it
// by ID or category.
type Product struct {
	shared.OwnedAggregateRoot
	SKU        string     `gorm:"size:128;not null;index"`
	Name       string     `gorm:"size:512;not null"`
	CategoryID *uuid.UUID `gorm:"type:uuid;index"`
	Active     bool       `gorm:"not null;default:true"`

	Variants []Variant `gorm:"foreignKey:ProductID;references:ID"`
}

// TableName returns the table name for GORM
func (Product) TableName() string {
	return "products"
}

// NewProduct creates a catalog product
func NewProduct(userID uuid.UUID, sku, name string, categoryID *uuid.UUID) (*Product, error) {
	if sku == "" {
		return nil, ErrInvalidSKU
	}
	if name == "" {
		return nil, ErrInvalidName
	}
	return &Product{
		OwnedAggregateRoot: shared.NewOwnedAggregateRoot(userID),
		SKU:                sku,
		Name:               name,
		CategoryID:         categoryID,
		Active:             true,
		Variants:           make([]Variant, 0),
	}, nil
}

// AddVariant appends a variant
func (p *Product) AddVariant(sku, name string) (*Variant, error) {
	if sku == "" {
		return nil, ErrInvalidSKU
	}
	v := Variant{
		ID:        uuid.New(),
		ProductID: p.ID,
		SKU:       sku,
		Name:      name,
		CreatedAt: time.Now(),
	}
	p.Variants = append(p.Variants, v)
	p.UpdatedAt = time.Now()
	return &p.Variants[len(p.Variants)-1], nil
}

// Variant is one sellable variation of a product with its own SKU
type Variant struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	ProductID uuid.UUID `gorm:"type:uuid;not null;index"`
	SKU       string    `gorm:"size:128;not null;index"`
	Name      string    `gorm:"size:255"`
	CreatedAt time.Time
}

// TableName returns the table name for GORM
func (Variant) TableName() string {
	return "product_variants"
}

// SKURef is the result of a SKU lookup: a product and optionally the
// matched variant
type SKURef struct {
	ProductID uuid.UUID
	VariantID *uuid.UUID
}

// Repository defines persistence for catalog products
type Repository interface {
	// FindByID finds a product by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Product, error)

	// FindBySKU resolves a SKU to a product/variant reference. Both product
	// and variant SKUs are searched; variant matches return the variant ID.
	FindBySKU(ctx context.Context, userID uuid.UUID, sku string) (*SKURef, error)

	// FindByIDs finds products by IDs
	FindByIDs(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) ([]Product, error)

	// Save creates or updates a product with its variants
	Save(ctx context.Context, p *Product) error
}
