package marketplace

import (
	"context"
	"sync"

	"github.com/sellsync/backend/internal/domain/marketplace"
	"github.com/sellsync/backend/internal/domain/shared"
)

// SandboxAdapter is an in-memory Adapter used in development and tests.
// Orders are seeded per account, stock pushes are recorded, and both
// operations can be forced to fail.
type SandboxAdapter struct {
	code marketplace.Code

	mu          sync.Mutex
	orders      map[string][]marketplace.RawOrder // accountID -> seeded feed
	pushes      []StockPush
	ordersErr   error
	stockErr    error
	stockReject string // non-empty makes pushes fail with this platform message
}

// StockPush records one UpdateStock call against the sandbox
type StockPush struct {
	AccountID         string
	ExternalProductID string
	ExternalVariantID string
	Quantity          int
}

// NewSandboxAdapter creates a sandbox adapter for one marketplace code
func NewSandboxAdapter(code marketplace.Code) *SandboxAdapter {
	return &SandboxAdapter{
		code:   code,
		orders: make(map[string][]marketplace.RawOrder),
	}
}

// Marketplace returns the code this adapter handles
func (a *SandboxAdapter) Marketplace() marketplace.Code {
	return a.code
}

// SeedOrders replaces the seeded order feed for an account
func (a *SandboxAdapter) SeedOrders(accountID string, orders []marketplace.RawOrder) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.orders[accountID] = orders
}

// FailOrders forces GetOrders to fail with the given error
func (a *SandboxAdapter) FailOrders(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.ordersErr = err
}

// FailStock forces UpdateStock to fail with the given error
func (a *SandboxAdapter) FailStock(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stockErr = err
}

// RejectStock makes UpdateStock return an unsuccessful result with the
// given platform message
func (a *SandboxAdapter) RejectStock(message string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stockReject = message
}

// Pushes returns a copy of the recorded stock pushes
func (a *SandboxAdapter) Pushes() []StockPush {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]StockPush(nil), a.pushes...)
}

// GetOrders returns one page of the seeded feed
func (a *SandboxAdapter) GetOrders(ctx context.Context, account *marketplace.Account, req marketplace.GetOrdersRequest) (*marketplace.OrderPage, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.ordersErr != nil {
		return nil, a.ordersErr
	}

	feed := a.orders[account.ID.String()]
	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}
	start := (req.Page - 1) * pageSize
	if start >= len(feed) {
		return &marketplace.OrderPage{Total: int64(len(feed))}, nil
	}
	end := start + pageSize
	if end > len(feed) {
		end = len(feed)
	}
	return &marketplace.OrderPage{
		Orders:  append([]marketplace.RawOrder(nil), feed[start:end]...),
		Total:   int64(len(feed)),
		HasMore: end < len(feed),
	}, nil
}

// GetOrder returns a seeded order by its external ID
func (a *SandboxAdapter) GetOrder(ctx context.Context, account *marketplace.Account, externalOrderID string) (*marketplace.RawOrder, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.ordersErr != nil {
		return nil, a.ordersErr
	}
	for _, raw := range a.orders[account.ID.String()] {
		if raw.ExternalOrderID == externalOrderID {
			order := raw
			return &order, nil
		}
	}
	return nil, shared.ErrNotFound
}

// UpdateStock records the push and returns a successful result unless a
// failure was configured
func (a *SandboxAdapter) UpdateStock(ctx context.Context, account *marketplace.Account, externalProductID, externalVariantID string, quantity int) (*marketplace.StockUpdateResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.stockErr != nil {
		return nil, a.stockErr
	}

	result := &marketplace.StockUpdateResult{
		ExternalProductID: externalProductID,
		ExternalVariantID: externalVariantID,
		Quantity:          quantity,
		Success:           a.stockReject == "",
		ErrorMessage:      a.stockReject,
	}
	if result.Success {
		a.pushes = append(a.pushes, StockPush{
			AccountID:         account.ID.String(),
			ExternalProductID: externalProductID,
			ExternalVariantID: externalVariantID,
			Quantity:          quantity,
		})
	}
	return result, nil
}

var _ marketplace.Adapter = (*SandboxAdapter)(nil)
