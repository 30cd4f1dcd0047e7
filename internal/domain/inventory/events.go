package inventory

import (
	"github.com/google/uuid"

	"github.com/sellsync/backend/internal/domain/shared"
)

// Event types emitted by the inventory aggregate
const (
	EventTypeInventoryChanged = "inventory.changed"
	EventTypeLowStock         = "inventory.low_stock"
)

// InventoryChangedEvent is emitted on every stock mutation. It is the sole
// trigger input for the stock synchronization engine.
type InventoryChangedEvent struct {
	shared.BaseDomainEvent
	ProductID   uuid.UUID    `json:"product_id"`
	VariantID   *uuid.UUID   `json:"variant_id,omitempty"`
	BeforeStock int          `json:"before_stock"`
	AfterStock  int          `json:"after_stock"`
	Movement    MovementType `json:"movement_type"`
	Cause       string       `json:"cause"` // reference type of the movement
}

// NewInventoryChangedEvent creates an InventoryChangedEvent
func NewInventoryChangedEvent(inv *Inventory, before, after int, movementType MovementType, cause string) *InventoryChangedEvent {
	return &InventoryChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInventoryChanged, "Inventory", inv.ID, inv.UserID),
		ProductID:       inv.ProductID,
		VariantID:       inv.VariantID,
		BeforeStock:     before,
		AfterStock:      after,
		Movement:        movementType,
		Cause:           cause,
	}
}

// LowStockEvent is emitted when stock crosses below the minimum level
type LowStockEvent struct {
	shared.BaseDomainEvent
	ProductID     uuid.UUID `json:"product_id"`
	Stock         int       `json:"stock"`
	MinStockLevel int       `json:"min_stock_level"`
}

// NewLowStockEvent creates a LowStockEvent
func NewLowStockEvent(inv *Inventory) *LowStockEvent {
	return &LowStockEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeLowStock, "Inventory", inv.ID, inv.UserID),
		ProductID:       inv.ProductID,
		Stock:           inv.Stock,
		MinStockLevel:   inv.MinStockLevel,
	}
}
