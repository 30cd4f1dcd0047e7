package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sellsync/backend/internal/domain/inventory"
	"github.com/sellsync/backend/internal/domain/shared"
)

// GormInventoryRepository implements inventory.Repository using GORM
type GormInventoryRepository struct {
	db            *gorm.DB
	lockForUpdate bool
}

// NewGormInventoryRepository creates a new GormInventoryRepository
func NewGormInventoryRepository(db *gorm.DB) *GormInventoryRepository {
	return &GormInventoryRepository{db: db}
}

// WithRowLocking returns a copy whose single-row reads take FOR UPDATE locks.
// Transactional read-modify-write paths need it so two concurrent decrements
// of the same row serialize instead of both writing from a stale read.
func (r *GormInventoryRepository) WithRowLocking() *GormInventoryRepository {
	return &GormInventoryRepository{db: r.db, lockForUpdate: true}
}

// readSession returns a query session, locked when row locking is enabled
func (r *GormInventoryRepository) readSession(ctx context.Context) *gorm.DB {
	session := r.db.WithContext(ctx)
	if r.lockForUpdate {
		session = session.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return session
}

// FindByID finds an inventory row by ID
func (r *GormInventoryRepository) FindByID(ctx context.Context, id uuid.UUID) (*inventory.Inventory, error) {
	var inv inventory.Inventory
	if err := r.readSession(ctx).First(&inv, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &inv, nil
}

// FindByProduct finds the inventory row for a product/variant pair
func (r *GormInventoryRepository) FindByProduct(ctx context.Context, userID, productID uuid.UUID, variantID *uuid.UUID) (*inventory.Inventory, error) {
	query := r.readSession(ctx).Where("user_id = ? AND product_id = ?", userID, productID)
	if variantID == nil {
		query = query.Where("variant_id IS NULL")
	} else {
		query = query.Where("variant_id = ?", *variantID)
	}

	var inv inventory.Inventory
	if err := query.First(&inv).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &inv, nil
}

// FindByProductIDs finds inventory rows for a set of products
func (r *GormInventoryRepository) FindByProductIDs(ctx context.Context, userID uuid.UUID, productIDs []uuid.UUID) ([]inventory.Inventory, error) {
	if len(productIDs) == 0 {
		return []inventory.Inventory{}, nil
	}
	var rows []inventory.Inventory
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND product_id IN ?", userID, productIDs).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// FindMutatedSince lists inventory rows touched after the cutoff
func (r *GormInventoryRepository) FindMutatedSince(ctx context.Context, cutoff time.Time) ([]inventory.Inventory, error) {
	var rows []inventory.Inventory
	err := r.db.WithContext(ctx).
		Where("updated_at > ?", cutoff).
		Order("updated_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Save persists the inventory row and any pending stock movements. When
// called inside a transaction scope the movements commit with the row.
func (r *GormInventoryRepository) Save(ctx context.Context, inv *inventory.Inventory) error {
	if err := r.db.WithContext(ctx).Save(inv).Error; err != nil {
		return err
	}
	movements := inv.PendingMovements()
	if len(movements) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Create(&movements).Error; err != nil {
		return err
	}
	inv.ClearPendingMovements()
	return nil
}

// GormMovementRepository implements inventory.MovementRepository using GORM
type GormMovementRepository struct {
	db *gorm.DB
}

// NewGormMovementRepository creates a new GormMovementRepository
func NewGormMovementRepository(db *gorm.DB) *GormMovementRepository {
	return &GormMovementRepository{db: db}
}

// FindByInventory lists movements for an inventory row, newest first
func (r *GormMovementRepository) FindByInventory(ctx context.Context, inventoryID uuid.UUID, limit int) ([]inventory.StockMovement, error) {
	if limit <= 0 {
		limit = 50
	}
	var movements []inventory.StockMovement
	err := r.db.WithContext(ctx).
		Where("inventory_id = ?", inventoryID).
		Order("created_at DESC").
		Limit(limit).
		Find(&movements).Error
	if err != nil {
		return nil, err
	}
	return movements, nil
}

// FindByReference lists movements caused by one reference
func (r *GormMovementRepository) FindByReference(ctx context.Context, refType string, refID uuid.UUID) ([]inventory.StockMovement, error) {
	var movements []inventory.StockMovement
	err := r.db.WithContext(ctx).
		Where("reference_type = ? AND reference_id = ?", refType, refID).
		Order("created_at ASC").
		Find(&movements).Error
	if err != nil {
		return nil, err
	}
	return movements, nil
}

var (
	_ inventory.Repository         = (*GormInventoryRepository)(nil)
	_ inventory.MovementRepository = (*GormMovementRepository)(nil)
)
