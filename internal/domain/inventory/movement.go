package inventory

import (
	"time"

	"github.com/google/uuid"
)

// MovementType classifies a stock movement
type MovementType string

const (
	MovementTypeIn     MovementType = "IN"
	MovementTypeOut    MovementType = "OUT"
	MovementTypeAdjust MovementType = "ADJUST"
)

// IsValid checks if the movement type is valid
func (t MovementType) IsValid() bool {
	switch t {
	case MovementTypeIn, MovementTypeOut, MovementTypeAdjust:
		return true
	}
	return false
}

// StockMovement is an immutable audit row written atomically with every
// inventory mutation. Delta is signed: negative for OUT movements.
type StockMovement struct {
	ID            uuid.UUID    `gorm:"type:uuid;primaryKey"`
	InventoryID   uuid.UUID    `gorm:"type:uuid;not null;index"`
	Type          MovementType `gorm:"size:10;not null"`
	Delta         int          `gorm:"not null"`
	BeforeStock   int          `gorm:"not null"`
	AfterStock    int          `gorm:"not null"`
	ReferenceType string       `gorm:"size:40;index"` // e.g. "order", "manual", "stock_sync"
	ReferenceID   uuid.UUID    `gorm:"type:uuid;index"`
	Note          string       `gorm:"size:512"`
	CreatedAt     time.Time    `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (StockMovement) TableName() string {
	return "stock_movements"
}

// NewStockMovement creates a movement row
func NewStockMovement(inventoryID uuid.UUID, movementType MovementType, before, after int, refType string, refID uuid.UUID, note string) *StockMovement {
	return &StockMovement{
		ID:            uuid.New(),
		InventoryID:   inventoryID,
		Type:          movementType,
		Delta:         after - before,
		BeforeStock:   before,
		AfterStock:    after,
		ReferenceType: refType,
		ReferenceID:   refID,
		Note:          note,
		CreatedAt:     time.Now(),
	}
}
