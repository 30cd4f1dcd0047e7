package persistence

import (
	"context"

	"gorm.io/gorm"

	"github.com/sellsync/backend/internal/application/reconcile"
	"github.com/sellsync/backend/internal/domain/inventory"
	"github.com/sellsync/backend/internal/domain/order"
)

// GormTransactionScope implements the reconciliation TransactionScope using
// GORM transactions so an order and its inventory decrements commit as one
// unit.
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute runs the given function within a database transaction.
// If the function returns an error, the transaction is rolled back.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos reconcile.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx})
	})
}

type gormTransactionalRepositories struct {
	tx *gorm.DB
}

// Orders returns the order repository scoped to the current transaction
func (r *gormTransactionalRepositories) Orders() order.Repository {
	return NewGormOrderRepository(r.tx)
}

// Inventories returns the inventory repository scoped to the current
// transaction. Reads take FOR UPDATE row locks: the reconcile decrement is a
// read-modify-write, and without the lock two concurrent runs ordering the
// same SKU would both write from the same stale stock level.
func (r *gormTransactionalRepositories) Inventories() inventory.Repository {
	return NewGormInventoryRepository(r.tx).WithRowLocking()
}

var (
	_ reconcile.TransactionScope          = (*GormTransactionScope)(nil)
	_ reconcile.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
)
