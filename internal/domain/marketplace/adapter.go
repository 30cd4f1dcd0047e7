package marketplace

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// RawOrder is an order exactly as the marketplace reported it, before status
// normalization and dedup. RawData keeps the original payload for audit.
type RawOrder struct {
	ExternalOrderID string
	Status          string // marketplace-specific status token
	CustomerName    string
	CustomerEmail   string
	CustomerPhone   string
	ShippingAddress string
	TotalAmount     decimal.Decimal
	ShippingFee     decimal.Decimal
	Currency        string
	Items           []RawOrderItem
	OrderedAt       time.Time
	RawData         string
}

// RawOrderItem is one line of a raw marketplace order
type RawOrderItem struct {
	ExternalItemID    string
	ExternalProductID string
	SKU               string
	Name              string
	Quantity          int
	UnitPrice         decimal.Decimal
	TotalPrice        decimal.Decimal
	RawData           string
}

// OrderPage is one page of an account's order feed
type OrderPage struct {
	Orders  []RawOrder
	Total   int64
	HasMore bool
}

// GetOrdersRequest bounds one page fetch of the order feed
type GetOrdersRequest struct {
	Page     int // 1-indexed
	PageSize int
	DateFrom time.Time
	DateTo   time.Time
	Status   string // marketplace status token filter, empty = all
}

// StockUpdateResult is the outcome of pushing one stock level to a marketplace
type StockUpdateResult struct {
	ExternalProductID string
	ExternalVariantID string
	Quantity          int
	Success           bool
	ErrorMessage      string
}

// Adapter is the uniform per-platform contract for fetching orders and
// pushing stock updates. Each marketplace is a variant behind this single
// interface; adapters translate canonical operations to the platform's
// native API (request signing, pagination quirks, field mapping). Every call
// is expected to honor ctx deadlines; a timeout surfaces as a per-call error.
type Adapter interface {
	// Marketplace returns the code this adapter handles
	Marketplace() Code

	// GetOrders fetches one page of the account's order feed
	GetOrders(ctx context.Context, account *Account, req GetOrdersRequest) (*OrderPage, error)

	// GetOrder fetches a single raw order by its external ID
	GetOrder(ctx context.Context, account *Account, externalOrderID string) (*RawOrder, error)

	// UpdateStock pushes a stock level for an external product/variant
	UpdateStock(ctx context.Context, account *Account, externalProductID, externalVariantID string, quantity int) (*StockUpdateResult, error)
}

// AdapterRegistry resolves the adapter variant for a marketplace code.
// Implementations are factories keyed on Code, not ad hoc conditionals.
type AdapterRegistry interface {
	// Get returns the adapter for the given marketplace code
	Get(code Code) (Adapter, error)

	// List returns all registered adapters
	List() []Adapter
}
