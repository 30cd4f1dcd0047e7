package order

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sellsync/backend/internal/domain/shared"
)

// Order is the canonical, locally-owned representation of a marketplace
// order. It is unique per (AccountID, ExternalOrderID) and is never deleted;
// terminal lifecycle states are expressed through Status only.
type Order struct {
	shared.OwnedAggregateRoot
	AccountID       uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_orders_account_external,priority:1"`
	ExternalOrderID string    `gorm:"size:128;not null;uniqueIndex:idx_orders_account_external,priority:2"`
	// OrderNumber is display-only; uniqueness is keyed strictly off the
	// surrogate ID plus (AccountID, ExternalOrderID).
	OrderNumber     string          `gorm:"size:160;not null;index"`
	Marketplace     string          `gorm:"size:32;not null;index"`
	Status          Status          `gorm:"size:20;not null;index"`
	CustomerName    string          `gorm:"size:255"`
	CustomerEmail   string          `gorm:"size:255;index"`
	CustomerPhone   string          `gorm:"size:64"`
	ShippingAddress string          `gorm:"type:text"`
	TotalAmount     decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	ShippingFee     decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Currency        string          `gorm:"size:8;not null;default:'USD'"`
	Tags            []string        `gorm:"serializer:json"`
	AssigneeID      *uuid.UUID      `gorm:"type:uuid"`

	Items   []LineItem           `gorm:"foreignKey:OrderID;references:ID"`
	History []StatusHistoryEntry `gorm:"foreignKey:OrderID;references:ID"`
}

// TableName returns the table name for GORM
func (Order) TableName() string {
	return "canonical_orders"
}

// NewOrder creates a canonical order in the given initial status and records
// the first status history entry (SYSTEM actor, no previous status).
func NewOrder(userID, accountID uuid.UUID, marketplace, externalOrderID string, initial Status) (*Order, error) {
	if accountID == uuid.Nil {
		return nil, shared.NewValidationError("Account ID cannot be empty")
	}
	if externalOrderID == "" {
		return nil, shared.NewValidationError("External order ID cannot be empty")
	}
	if !initial.IsValid() {
		return nil, shared.NewValidationError(fmt.Sprintf("Invalid initial status %q", initial))
	}

	o := &Order{
		OwnedAggregateRoot: shared.NewOwnedAggregateRoot(userID),
		AccountID:          accountID,
		ExternalOrderID:    externalOrderID,
		OrderNumber:        DisplayOrderNumber(marketplace, externalOrderID),
		Marketplace:        marketplace,
		Status:             initial,
		Currency:           "USD",
		Items:              make([]LineItem, 0),
		History:            make([]StatusHistoryEntry, 0),
	}
	o.History = append(o.History, newStatusHistoryEntry(o.ID, initial, nil, ActorSystem, "order imported from marketplace"))
	o.AddDomainEvent(NewOrderCreatedEvent(o))
	return o, nil
}

// DisplayOrderNumber derives the human-facing order number.
// It is deterministic so repeated reconciliation of the same external order
// always produces the same display value.
func DisplayOrderNumber(marketplace, externalOrderID string) string {
	return fmt.Sprintf("%s-%s", strings.ToUpper(marketplace), externalOrderID)
}

// AddItem appends a line item
func (o *Order) AddItem(item LineItem) {
	item.OrderID = o.ID
	o.Items = append(o.Items, item)
	o.UpdatedAt = time.Now()
}

// CurrentStatus returns the order status; the invariant is that it always
// equals the status of the latest history entry.
func (o *Order) CurrentStatus() Status {
	return o.Status
}

// ApplyMarketplaceStatus applies a marketplace-driven status change.
// The marketplace is the source of truth, so any canonical status is
// accepted; no history entry is written when the status is unchanged.
func (o *Order) ApplyMarketplaceStatus(status Status, reason string) bool {
	if !status.IsValid() || status == o.Status {
		return false
	}
	o.changeStatus(status, ActorSystem, reason)
	return true
}

// ApplyAutomationStatus applies a status change made by an automation rule.
// Automation follows the marketplace trust level: transitions are not
// validated against the manual graph.
func (o *Order) ApplyAutomationStatus(status Status, reason string) bool {
	if !status.IsValid() || status == o.Status {
		return false
	}
	o.changeStatus(status, ActorAutomation, reason)
	return true
}

// ApplyManualStatus applies a user-driven status change, enforcing the
// explicit transition graph. Violations fail with a validation error.
func (o *Order) ApplyManualStatus(status Status, reason string) error {
	if !status.IsValid() {
		return shared.NewValidationError(fmt.Sprintf("Invalid status %q", status))
	}
	if status == o.Status {
		return nil
	}
	if !o.Status.CanTransitionTo(status) {
		return shared.NewDomainError("INVALID_TRANSITION",
			fmt.Sprintf("Manual transition %s -> %s is not allowed", o.Status, status))
	}
	o.changeStatus(status, ActorUser, reason)
	return nil
}

func (o *Order) changeStatus(status Status, actor Actor, reason string) {
	previous := o.Status
	o.History = append(o.History, newStatusHistoryEntry(o.ID, status, &previous, actor, reason))
	o.Status = status
	o.UpdatedAt = time.Now()
	o.IncrementVersion()
	o.AddDomainEvent(NewOrderStatusChangedEvent(o, previous, status, actor))
}

// RefreshFromMarketplace updates the mutable order fields from a fresh
// marketplace payload. Totals and addresses treat the marketplace as the
// source of truth; line items and inventory are never touched on update.
func (o *Order) RefreshFromMarketplace(totalAmount, shippingFee decimal.Decimal, customerName, customerEmail, customerPhone, shippingAddress string) {
	o.TotalAmount = totalAmount
	o.ShippingFee = shippingFee
	if customerName != "" {
		o.CustomerName = customerName
	}
	if customerEmail != "" {
		o.CustomerEmail = customerEmail
	}
	if customerPhone != "" {
		o.CustomerPhone = customerPhone
	}
	if shippingAddress != "" {
		o.ShippingAddress = shippingAddress
	}
	o.UpdatedAt = time.Now()
}

// AddTag appends a tag if not already present
func (o *Order) AddTag(tag string) bool {
	for _, t := range o.Tags {
		if t == tag {
			return false
		}
	}
	o.Tags = append(o.Tags, tag)
	o.UpdatedAt = time.Now()
	return true
}

// AssignTo sets the assignee
func (o *Order) AssignTo(userID uuid.UUID) {
	o.AssigneeID = &userID
	o.UpdatedAt = time.Now()
}

// LineItem represents one line of a canonical order. Product and variant
// references are resolved best-effort by SKU during reconciliation; when
// resolution fails the raw marketplace payload is retained for audit and the
// references stay nil.
type LineItem struct {
	ID         uuid.UUID       `gorm:"type:uuid;primaryKey"`
	OrderID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	SKU        string          `gorm:"size:128;not null;index"`
	ProductID  *uuid.UUID      `gorm:"type:uuid;index"`
	VariantID  *uuid.UUID      `gorm:"type:uuid"`
	Name       string          `gorm:"size:512"`
	Quantity   int             `gorm:"not null"`
	UnitPrice  decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	TotalPrice decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	RawPayload string          `gorm:"type:text"`
	CreatedAt  time.Time
}

// TableName returns the table name for GORM
func (LineItem) TableName() string {
	return "order_line_items"
}

// NewLineItem creates a line item
func NewLineItem(sku, name string, quantity int, unitPrice decimal.Decimal) (*LineItem, error) {
	if sku == "" {
		return nil, shared.NewValidationError("SKU cannot be empty")
	}
	if quantity <= 0 {
		return nil, shared.NewValidationError("Quantity must be positive")
	}
	return &LineItem{
		ID:         uuid.New(),
		SKU:        sku,
		Name:       name,
		Quantity:   quantity,
		UnitPrice:  unitPrice,
		TotalPrice: unitPrice.Mul(decimal.NewFromInt(int64(quantity))),
		CreatedAt:  time.Now(),
	}, nil
}

// Resolve attaches the resolved product/variant references
func (i *LineItem) Resolve(productID uuid.UUID, variantID *uuid.UUID) {
	i.ProductID = &productID
	i.VariantID = variantID
}

// IsResolved reports whether the item has a resolved product reference
func (i *LineItem) IsResolved() bool {
	return i.ProductID != nil
}

// StatusHistoryEntry is one immutable row of an order's append-only status
// trail, ordered by CreatedAt.
type StatusHistoryEntry struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	OrderID        uuid.UUID `gorm:"type:uuid;not null;index"`
	Status         Status    `gorm:"size:20;not null"`
	PreviousStatus *Status   `gorm:"size:20"`
	Actor          Actor     `gorm:"size:20;not null"`
	Reason         string    `gorm:"size:512"`
	CreatedAt      time.Time `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (StatusHistoryEntry) TableName() string {
	return "order_status_history"
}

func newStatusHistoryEntry(orderID uuid.UUID, status Status, previous *Status, actor Actor, reason string) StatusHistoryEntry {
	return StatusHistoryEntry{
		ID:             uuid.New(),
		OrderID:        orderID,
		Status:         status,
		PreviousStatus: previous,
		Actor:          actor,
		Reason:         reason,
		CreatedAt:      time.Now(),
	}
}

// LatestHistory returns the most recent history entry, or nil when empty.
// Entries are append-only, so the last element is always the latest.
func (o *Order) LatestHistory() *StatusHistoryEntry {
	if len(o.History) == 0 {
		return nil
	}
	return &o.History[len(o.History)-1]
}
