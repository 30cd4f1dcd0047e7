package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sellsync/backend/internal/domain/order"
	"github.com/sellsync/backend/internal/domain/shared"
	"github.com/sellsync/backend/internal/interfaces/http/dto"
)

// OrderStatusUpdater applies a user-initiated status change to an order
type OrderStatusUpdater interface {
	UpdateStatus(ctx context.Context, userID, orderID uuid.UUID, status order.Status, reason string) (*order.Order, error)
}

// OrderHandler exposes read access to canonical orders plus the manual
// status transition endpoint
type OrderHandler struct {
	BaseHandler
	orders  order.Repository
	updater OrderStatusUpdater
}

// NewOrderHandler creates the order handler
func NewOrderHandler(orders order.Repository, updater OrderStatusUpdater) *OrderHandler {
	return &OrderHandler{orders: orders, updater: updater}
}

// RegisterRoutes registers the order endpoints
func (h *OrderHandler) RegisterRoutes(rg *gin.RouterGroup) {
	orders := rg.Group("/orders")
	{
		orders.GET("", h.ListOrders)
		orders.GET("/:id", h.GetOrder)
		orders.PATCH("/:id/status", h.UpdateOrderStatus)
	}
}

// LineItemResponse is one order line in API responses
type LineItemResponse struct {
	ID         uuid.UUID       `json:"id"`
	SKU        string          `json:"sku"`
	ProductID  *uuid.UUID      `json:"product_id,omitempty"`
	VariantID  *uuid.UUID      `json:"variant_id,omitempty"`
	Name       string          `json:"name"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	TotalPrice decimal.Decimal `json:"total_price"`
}

// StatusHistoryResponse is one status change in API responses
type StatusHistoryResponse struct {
	Status         order.Status  `json:"status"`
	PreviousStatus *order.Status `json:"previous_status,omitempty"`
	Actor          order.Actor   `json:"actor"`
	Reason         string        `json:"reason,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
}

// OrderResponse is one canonical order in API responses
type OrderResponse struct {
	ID              uuid.UUID               `json:"id"`
	AccountID       uuid.UUID               `json:"account_id"`
	ExternalOrderID string                  `json:"external_order_id"`
	OrderNumber     string                  `json:"order_number"`
	Marketplace     string                  `json:"marketplace"`
	Status          order.Status            `json:"status"`
	CustomerName    string                  `json:"customer_name,omitempty"`
	CustomerEmail   string                  `json:"customer_email,omitempty"`
	TotalAmount     decimal.Decimal         `json:"total_amount"`
	ShippingFee     decimal.Decimal         `json:"shipping_fee"`
	Currency        string                  `json:"currency"`
	Tags            []string                `json:"tags,omitempty"`
	AssigneeID      *uuid.UUID              `json:"assignee_id,omitempty"`
	Items           []LineItemResponse      `json:"items,omitempty"`
	History         []StatusHistoryResponse `json:"history,omitempty"`
	CreatedAt       time.Time               `json:"created_at"`
	UpdatedAt       time.Time               `json:"updated_at"`
}

func toOrderResponse(o *order.Order) OrderResponse {
	resp := OrderResponse{
		ID:              o.ID,
		AccountID:       o.AccountID,
		ExternalOrderID: o.ExternalOrderID,
		OrderNumber:     o.OrderNumber,
		Marketplace:     o.Marketplace,
		Status:          o.Status,
		CustomerName:    o.CustomerName,
		CustomerEmail:   o.CustomerEmail,
		TotalAmount:     o.TotalAmount,
		ShippingFee:     o.ShippingFee,
		Currency:        o.Currency,
		Tags:            o.Tags,
		AssigneeID:      o.AssigneeID,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
	for _, item := range o.Items {
		resp.Items = append(resp.Items, LineItemResponse{
			ID:         item.ID,
			SKU:        item.SKU,
			ProductID:  item.ProductID,
			VariantID:  item.VariantID,
			Name:       item.Name,
			Quantity:   item.Quantity,
			UnitPrice:  item.UnitPrice,
			TotalPrice: item.TotalPrice,
		})
	}
	for _, entry := range o.History {
		resp.History = append(resp.History, StatusHistoryResponse{
			Status:         entry.Status,
			PreviousStatus: entry.PreviousStatus,
			Actor:          entry.Actor,
			Reason:         entry.Reason,
			CreatedAt:      entry.CreatedAt,
		})
	}
	return resp
}

// ListOrders lists the caller's orders with pagination and optional
// status/marketplace filters
func (h *OrderHandler) ListOrders(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, err.Error())
		return
	}

	var listReq dto.ListRequest
	if err := c.ShouldBindQuery(&listReq); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	listReq.Normalize()

	filter := shared.Filter{
		Page:     listReq.Page,
		PageSize: listReq.PageSize,
		OrderBy:  listReq.OrderBy,
		OrderDir: listReq.OrderDir,
		Search:   listReq.Search,
		Filters:  map[string]interface{}{},
	}
	if status := c.Query("status"); status != "" {
		filter.Filters["status"] = status
	}
	if mp := c.Query("marketplace"); mp != "" {
		filter.Filters["marketplace"] = mp
	}
	if accountID := c.Query("account_id"); accountID != "" {
		filter.Filters["account_id"] = accountID
	}

	orders, err := h.orders.FindAllForUser(c.Request.Context(), userID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	total, err := h.orders.CountForUser(c.Request.Context(), userID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	responses := make([]OrderResponse, len(orders))
	for i := range orders {
		responses[i] = toOrderResponse(&orders[i])
	}
	h.SuccessWithMeta(c, responses, total, filter.Page, filter.PageSize)
}

// GetOrder returns one order with its line items and status history
func (h *OrderHandler) GetOrder(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, err.Error())
		return
	}

	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "invalid order ID")
		return
	}

	o, err := h.orders.FindByID(c.Request.Context(), orderID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if o.UserID != userID {
		h.NotFound(c, "order not found")
		return
	}
	h.Success(c, toOrderResponse(o))
}

// UpdateOrderStatusRequest requests a manual status transition
type UpdateOrderStatusRequest struct {
	Status string `json:"status" binding:"required,order_status"`
	Reason string `json:"reason" binding:"omitempty,max=512"`
}

// UpdateOrderStatus applies a user-driven status change. Transitions go
// through the manual transition graph; marketplace-driven updates do not
// pass through this endpoint.
func (h *OrderHandler) UpdateOrderStatus(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, err.Error())
		return
	}

	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "invalid order ID")
		return
	}

	var req UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	updated, err := h.updater.UpdateStatus(c.Request.Context(), userID, orderID, order.Status(req.Status), req.Reason)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toOrderResponse(updated))
}
