package order

import (
	"context"

	"github.com/google/uuid"

	"github.com/sellsync/backend/internal/domain/shared"
)

// Repository defines persistence for canonical orders
type Repository interface {
	// FindByID finds an order by its surrogate ID
	FindByID(ctx context.Context, id uuid.UUID) (*Order, error)

	// FindByExternalID finds an order by its marketplace identity.
	// This is the dedup lookup used by the reconciliation engine.
	FindByExternalID(ctx context.Context, accountID uuid.UUID, externalOrderID string) (*Order, error)

	// FindAllForUser lists orders for a user with filtering
	FindAllForUser(ctx context.Context, userID uuid.UUID, filter shared.Filter) ([]Order, error)

	// CountForUser counts orders matching the filter
	CountForUser(ctx context.Context, userID uuid.UUID, filter shared.Filter) (int64, error)

	// Save creates or updates an order together with its line items and
	// any new status history entries
	Save(ctx context.Context, o *Order) error

	// AppendHistory persists a single new status history entry
	AppendHistory(ctx context.Context, entry *StatusHistoryEntry) error
}
