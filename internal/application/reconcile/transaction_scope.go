package reconcile

import (
	"context"

	"github.com/sellsync/backend/internal/domain/inventory"
	"github.com/sellsync/backend/internal/domain/order"
)

// TransactionScope provides transactional access to the repositories the
// reconciliation engine writes together. Creating an order, decrementing
// inventory and appending the stock movement for one item must commit or
// roll back as a unit so a failure never leaves the order or inventory
// partially written.
type TransactionScope interface {
	// Execute runs the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides repositories bound to one transaction
type TransactionalRepositories interface {
	// Orders returns the order repository scoped to the current transaction
	Orders() order.Repository
	// Inventories returns the inventory repository scoped to the current
	// transaction; Save persists pending stock movements in the same unit
	Inventories() inventory.Repository
}

// NoOpTransactionScope runs the function against the plain repositories
// without a real transaction. Used in tests.
type NoOpTransactionScope struct {
	OrderRepo     order.Repository
	InventoryRepo inventory.Repository
}

// Execute runs the function without transactional guarantees
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// Orders returns the order repository
func (s *NoOpTransactionScope) Orders() order.Repository {
	return s.OrderRepo
}

// Inventories returns the inventory repository
func (s *NoOpTransactionScope) Inventories() inventory.Repository {
	return s.InventoryRepo
}

var (
	_ TransactionScope          = (*NoOpTransactionScope)(nil)
	_ TransactionalRepositories = (*NoOpTransactionScope)(nil)
)
