package persistence

import (
	"gorm.io/gorm"

	"github.com/sellsync/backend/internal/domain/automation"
	"github.com/sellsync/backend/internal/domain/catalog"
	"github.com/sellsync/backend/internal/domain/inventory"
	"github.com/sellsync/backend/internal/domain/marketplace"
	"github.com/sellsync/backend/internal/domain/order"
	"github.com/sellsync/backend/internal/domain/stocksync"
)

// AutoMigrate creates or updates the schema for every persisted aggregate
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&marketplace.Account{},
		&marketplace.ProductMapping{},
		&catalog.Product{},
		&catalog.Variant{},
		&order.Order{},
		&order.LineItem{},
		&order.StatusHistoryEntry{},
		&inventory.Inventory{},
		&inventory.StockMovement{},
		&stocksync.Rule{},
		&stocksync.SyncLog{},
		&automation.Rule{},
	)
}
