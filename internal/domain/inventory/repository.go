package inventory

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository defines persistence for inventory rows. Save must persist the
// row and its pending movements in one transaction when invoked inside a
// transaction scope.
type Repository interface {
	// FindByID finds an inventory row by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Inventory, error)

	// FindByProduct finds the inventory row for a product/variant pair
	FindByProduct(ctx context.Context, userID, productID uuid.UUID, variantID *uuid.UUID) (*Inventory, error)

	// FindByProductIDs finds inventory rows for a set of products
	FindByProductIDs(ctx context.Context, userID uuid.UUID, productIDs []uuid.UUID) ([]Inventory, error)

	// FindMutatedSince lists inventory rows touched after the cutoff.
	// Used by the periodic stock sweep as a backstop for missed events.
	FindMutatedSince(ctx context.Context, cutoff time.Time) ([]Inventory, error)

	// Save persists the inventory row and its pending movements
	Save(ctx context.Context, inv *Inventory) error
}

// MovementRepository defines read access to the movement audit trail.
// Movements are written through Inventory.Save only.
type MovementRepository interface {
	// FindByInventory lists movements for an inventory row, newest first
	FindByInventory(ctx context.Context, inventoryID uuid.UUID, limit int) ([]StockMovement, error)

	// FindByReference lists movements caused by one reference
	FindByReference(ctx context.Context, refType string, refID uuid.UUID) ([]StockMovement, error)
}
