package inventory

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sellsync/backend/internal/domain/shared"
)

// Inventory tracks stock for one (product, variant) pair. It is the primary
// mutable shared state of the system: reconciliation decrements it, manual
// edits adjust it, and every mutation is the trigger input for stock sync.
// Each mutation appends a StockMovement that must be persisted in the same
// transaction as the inventory row.
type Inventory struct {
	shared.OwnedAggregateRoot
	ProductID     uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_inventory_product_variant,priority:1"`
	VariantID     *uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_inventory_product_variant,priority:2"`
	Stock         int        `gorm:"not null;default:0"`
	Reserved      int        `gorm:"not null;default:0"`
	MinStockLevel int        `gorm:"not null;default:0"`

	// pendingMovements collects movements produced by mutations since the
	// aggregate was loaded; the repository persists and clears them.
	pendingMovements []StockMovement `gorm:"-"`
}

// TableName returns the table name for GORM
func (Inventory) TableName() string {
	return "inventories"
}

// NewInventory creates an inventory row for a product/variant
func NewInventory(userID, productID uuid.UUID, variantID *uuid.UUID, initialStock int) (*Inventory, error) {
	if productID == uuid.Nil {
		return nil, shared.NewValidationError("Product ID cannot be empty")
	}
	if initialStock < 0 {
		return nil, shared.NewValidationError("Initial stock cannot be negative")
	}
	inv := &Inventory{
		OwnedAggregateRoot: shared.NewOwnedAggregateRoot(userID),
		ProductID:          productID,
		VariantID:          variantID,
		Stock:              initialStock,
	}
	return inv, nil
}

// Available returns the sellable quantity: max(0, stock - reserved)
func (i *Inventory) Available() int {
	available := i.Stock - i.Reserved
	if available < 0 {
		return 0
	}
	return available
}

// Decrement reduces stock by quantity, recording an OUT movement.
// Stock may go below the minimum level but never below zero; an order for
// more than the remaining stock clamps at zero and records the actual delta.
func (i *Inventory) Decrement(quantity int, refType string, refID uuid.UUID, note string) error {
	if quantity <= 0 {
		return shared.NewValidationError("Decrement quantity must be positive")
	}
	before := i.Stock
	after := before - quantity
	if after < 0 {
		after = 0
	}
	i.applyChange(before, after, MovementTypeOut, refType, refID, note)
	return nil
}

// Increment raises stock by quantity, recording an IN movement
func (i *Inventory) Increment(quantity int, refType string, refID uuid.UUID, note string) error {
	if quantity <= 0 {
		return shared.NewValidationError("Increment quantity must be positive")
	}
	i.applyChange(i.Stock, i.Stock+quantity, MovementTypeIn, refType, refID, note)
	return nil
}

// SetStock adjusts stock to an absolute level, recording an ADJUST movement
func (i *Inventory) SetStock(newStock int, refType string, refID uuid.UUID, note string) error {
	if newStock < 0 {
		return shared.NewValidationError("Stock cannot be negative")
	}
	if newStock == i.Stock {
		return nil
	}
	i.applyChange(i.Stock, newStock, MovementTypeAdjust, refType, refID, note)
	return nil
}

func (i *Inventory) applyChange(before, after int, movementType MovementType, refType string, refID uuid.UUID, note string) {
	i.Stock = after
	i.UpdatedAt = time.Now()
	i.IncrementVersion()

	movement := NewStockMovement(i.ID, movementType, before, after, refType, refID, note)
	i.pendingMovements = append(i.pendingMovements, *movement)

	i.AddDomainEvent(NewInventoryChangedEvent(i, before, after, movementType, refType))
	if i.MinStockLevel > 0 && after < i.MinStockLevel && before >= i.MinStockLevel {
		i.AddDomainEvent(NewLowStockEvent(i))
	}
}

// PendingMovements returns movements produced since load
func (i *Inventory) PendingMovements() []StockMovement {
	return i.pendingMovements
}

// ClearPendingMovements clears recorded movements after persistence
func (i *Inventory) ClearPendingMovements() {
	i.pendingMovements = nil
}

// Key returns the stable idempotency key fragment for this inventory row
func (i *Inventory) Key() string {
	if i.VariantID != nil {
		return fmt.Sprintf("%s:%s", i.ProductID, i.VariantID)
	}
	return i.ProductID.String()
}
