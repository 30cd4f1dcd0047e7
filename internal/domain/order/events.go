package order

import (
	"github.com/sellsync/backend/internal/domain/shared"
)

// Event types emitted by the order aggregate
const (
	EventTypeOrderCreated       = "order.created"
	EventTypeOrderStatusChanged = "order.status_changed"
)

// OrderCreatedEvent is emitted when reconciliation creates a canonical order
type OrderCreatedEvent struct {
	shared.BaseDomainEvent
	AccountID       string `json:"account_id"`
	ExternalOrderID string `json:"external_order_id"`
	Marketplace     string `json:"marketplace"`
	Status          Status `json:"status"`
}

// NewOrderCreatedEvent creates an OrderCreatedEvent
func NewOrderCreatedEvent(o *Order) *OrderCreatedEvent {
	return &OrderCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderCreated, "Order", o.ID, o.UserID),
		AccountID:       o.AccountID.String(),
		ExternalOrderID: o.ExternalOrderID,
		Marketplace:     o.Marketplace,
		Status:          o.Status,
	}
}

// OrderStatusChangedEvent is emitted on every actual status change
type OrderStatusChangedEvent struct {
	shared.BaseDomainEvent
	OrderNumber    string `json:"order_number"`
	PreviousStatus Status `json:"previous_status"`
	NewStatus      Status `json:"new_status"`
	Actor          Actor  `json:"actor"`
}

// NewOrderStatusChangedEvent creates an OrderStatusChangedEvent
func NewOrderStatusChangedEvent(o *Order, previous, next Status, actor Actor) *OrderStatusChangedEvent {
	return &OrderStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderStatusChanged, "Order", o.ID, o.UserID),
		OrderNumber:     o.OrderNumber,
		PreviousStatus:  previous,
		NewStatus:       next,
		Actor:           actor,
	}
}
