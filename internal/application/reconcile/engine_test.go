package reconcile

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sellsync/backend/internal/domain/catalog"
	"github.com/sellsync/backend/internal/domain/inventory"
	"github.com/sellsync/backend/internal/domain/marketplace"
	"github.com/sellsync/backend/internal/domain/order"
	"github.com/sellsync/backend/internal/domain/shared"
)

type memAccountRepo struct {
	accounts map[uuid.UUID]*marketplace.Account
}

func (r *memAccountRepo) FindByID(_ context.Context, id uuid.UUID) (*marketplace.Account, error) {
	a, ok := r.accounts[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return a, nil
}

func (r *memAccountRepo) FindByIDForUser(_ context.Context, userID, id uuid.UUID) (*marketplace.Account, error) {
	a, ok := r.accounts[id]
	if !ok || a.UserID != userID {
		return nil, shared.ErrNotFound
	}
	return a, nil
}

func (r *memAccountRepo) FindConnected(_ context.Context) ([]marketplace.Account, error) {
	var out []marketplace.Account
	for _, a := range r.accounts {
		if a.IsConnected() {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (r *memAccountRepo) FindAllForUser(_ context.Context, userID uuid.UUID, _ shared.Filter) ([]marketplace.Account, error) {
	var out []marketplace.Account
	for _, a := range r.accounts {
		if a.UserID == userID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (r *memAccountRepo) Save(_ context.Context, account *marketplace.Account) error {
	r.accounts[account.ID] = account
	return nil
}

type memOrderRepo struct {
	orders map[uuid.UUID]*order.Order
}

func (r *memOrderRepo) FindByID(_ context.Context, id uuid.UUID) (*order.Order, error) {
	o, ok := r.orders[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return o, nil
}

func (r *memOrderRepo) FindByExternalID(_ context.Context, accountID uuid.UUID, externalOrderID string) (*order.Order, error) {
	for _, o := range r.orders {
		if o.AccountID == accountID && o.ExternalOrderID == externalOrderID {
			return o, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memOrderRepo) FindAllForUser(_ context.Context, userID uuid.UUID, _ shared.Filter) ([]order.Order, error) {
	var out []order.Order
	for _, o := range r.orders {
		if o.UserID == userID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (r *memOrderRepo) CountForUser(_ context.Context, userID uuid.UUID, _ shared.Filter) (int64, error) {
	var n int64
	for _, o := range r.orders {
		if o.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (r *memOrderRepo) Save(_ context.Context, o *order.Order) error {
	r.orders[o.ID] = o
	return nil
}

func (r *memOrderRepo) AppendHistory(_ context.Context, _ *order.StatusHistoryEntry) error {
	return nil
}

type memInventoryRepo struct {
	rows  map[uuid.UUID]*inventory.Inventory
	saves int
}

func (r *memInventoryRepo) FindByID(_ context.Context, id uuid.UUID) (*inventory.Inventory, error) {
	inv, ok := r.rows[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return inv, nil
}

func (r *memInventoryRepo) FindByProduct(_ context.Context, userID, productID uuid.UUID, variantID *uuid.UUID) (*inventory.Inventory, error) {
	for _, inv := range r.rows {
		if inv.UserID != userID || inv.ProductID != productID {
			continue
		}
		if variantID == nil && inv.VariantID == nil {
			return inv, nil
		}
		if variantID != nil && inv.VariantID != nil && *variantID == *inv.VariantID {
			return inv, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memInventoryRepo) FindByProductIDs(_ context.Context, userID uuid.UUID, productIDs []uuid.UUID) ([]inventory.Inventory, error) {
	var out []inventory.Inventory
	for _, inv := range r.rows {
		if inv.UserID != userID {
			continue
		}
		for _, pid := range productIDs {
			if inv.ProductID == pid {
				out = append(out, *inv)
			}
		}
	}
	return out, nil
}

func (r *memInventoryRepo) FindMutatedSince(_ context.Context, _ time.Time) ([]inventory.Inventory, error) {
	return nil, nil
}

func (r *memInventoryRepo) Save(_ context.Context, inv *inventory.Inventory) error {
	r.rows[inv.ID] = inv
	r.saves++
	return nil
}

type memCatalogRepo struct {
	skus map[string]*catalog.SKURef
}

func (r *memCatalogRepo) FindByID(_ context.Context, _ uuid.UUID) (*catalog.Product, error) {
	return nil, catalog.ErrProductNotFound
}

func (r *memCatalogRepo) FindBySKU(_ context.Context, _ uuid.UUID, sku string) (*catalog.SKURef, error) {
	ref, ok := r.skus[sku]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return ref, nil
}

func (r *memCatalogRepo) FindByIDs(_ context.Context, _ uuid.UUID, _ []uuid.UUID) ([]catalog.Product, error) {
	return nil, nil
}

func (r *memCatalogRepo) Save(_ context.Context, _ *catalog.Product) error {
	return nil
}

type stubRegistry struct {
	adapter marketplace.Adapter
}

func (r *stubRegistry) Get(code marketplace.Code) (marketplace.Adapter, error) {
	if r.adapter == nil || r.adapter.Marketplace() != code {
		return nil, marketplace.ErrAdapterNotRegistered
	}
	return r.adapter, nil
}

func (r *stubRegistry) List() []marketplace.Adapter {
	if r.adapter == nil {
		return nil
	}
	return []marketplace.Adapter{r.adapter}
}

// stubAdapter serves a fixed slice of feed pages. When entered/release are
// set, the first GetOrders call blocks until release is closed.
type stubAdapter struct {
	code    marketplace.Code
	pages   []marketplace.OrderPage
	err     error
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (a *stubAdapter) Marketplace() marketplace.Code { return a.code }

func (a *stubAdapter) GetOrders(_ context.Context, _ *marketplace.Account, req marketplace.GetOrdersRequest) (*marketplace.OrderPage, error) {
	if a.entered != nil {
		a.once.Do(func() {
			a.entered <- struct{}{}
			<-a.release
		})
	}
	if a.err != nil {
		return nil, a.err
	}
	idx := req.Page - 1
	if idx < 0 || idx >= len(a.pages) {
		return &marketplace.OrderPage{}, nil
	}
	page := a.pages[idx]
	return &page, nil
}

func (a *stubAdapter) GetOrder(_ context.Context, _ *marketplace.Account, _ string) (*marketplace.RawOrder, error) {
	return nil, shared.ErrNotFound
}

func (a *stubAdapter) UpdateStock(_ context.Context, _ *marketplace.Account, externalProductID, externalVariantID string, quantity int) (*marketplace.StockUpdateResult, error) {
	return &marketplace.StockUpdateResult{
		ExternalProductID: externalProductID,
		ExternalVariantID: externalVariantID,
		Quantity:          quantity,
		Success:           true,
	}, nil
}

type engineFixture struct {
	engine   *Engine
	account  *marketplace.Account
	accounts *memAccountRepo
	orders   *memOrderRepo
	invs     *memInventoryRepo
	catalog  *memCatalogRepo
}

func newEngineFixture(t *testing.T, config Config, adapter marketplace.Adapter) *engineFixture {
	t.Helper()

	account, err := marketplace.NewAccount(uuid.New(), marketplace.CodeShopee, "Test Shop", "{}")
	require.NoError(t, err)

	accounts := &memAccountRepo{accounts: map[uuid.UUID]*marketplace.Account{account.ID: account}}
	orders := &memOrderRepo{orders: map[uuid.UUID]*order.Order{}}
	invs := &memInventoryRepo{rows: map[uuid.UUID]*inventory.Inventory{}}
	catalogRepo := &memCatalogRepo{skus: map[string]*catalog.SKURef{}}
	txScope := &NoOpTransactionScope{OrderRepo: orders, InventoryRepo: invs}

	engine := NewEngine(config, accounts, &stubRegistry{adapter: adapter}, catalogRepo, txScope, nil, zap.NewNop())
	return &engineFixture{
		engine:   engine,
		account:  account,
		accounts: accounts,
		orders:   orders,
		invs:     invs,
		catalog:  catalogRepo,
	}
}

func rawFeedOrder(externalID, status string, items ...marketplace.RawOrderItem) marketplace.RawOrder {
	return marketplace.RawOrder{
		ExternalOrderID: externalID,
		Status:          status,
		CustomerName:    "Jordan Buyer",
		TotalAmount:     decimal.NewFromInt(100),
		Currency:        "USD",
		Items:           items,
	}
}

func singlePageAdapter(orders ...marketplace.RawOrder) *stubAdapter {
	return &stubAdapter{
		code:  marketplace.CodeShopee,
		pages: []marketplace.OrderPage{{Orders: orders}},
	}
}

func TestEngine_Reconcile_CreatesOrder(t *testing.T) {
	adapter := singlePageAdapter(rawFeedOrder("EXT-1", "READY_TO_SHIP", marketplace.RawOrderItem{
		SKU:       "SKU-1",
		Name:      "Widget",
		Quantity:  3,
		UnitPrice: decimal.NewFromInt(10),
	}))
	f := newEngineFixture(t, Config{}, adapter)

	productID := uuid.New()
	f.catalog.skus["SKU-1"] = &catalog.SKURef{ProductID: productID}
	inv, err := inventory.NewInventory(f.account.UserID, productID, nil, 10)
	require.NoError(t, err)
	f.invs.rows[inv.ID] = inv

	report, err := f.engine.Reconcile(context.Background(), f.account.ID, DateRange{})
	require.NoError(t, err)

	assert.Equal(t, 1, report.Synced)
	assert.Equal(t, 0, report.Failed)
	assert.Equal(t, 1, report.Pages)
	require.Len(t, report.Items, 1)
	assert.Equal(t, OutcomeCreated, report.Items[0].Outcome)
	assert.Equal(t, order.StatusConfirmed, report.Items[0].Status)

	require.Len(t, f.orders.orders, 1)
	for _, o := range f.orders.orders {
		assert.Equal(t, "SHOPEE-EXT-1", o.OrderNumber)
		assert.Equal(t, order.StatusConfirmed, o.Status)
		require.Len(t, o.Items, 1)
		assert.True(t, o.Items[0].IsResolved())
	}

	// Resolved line decremented stock within the same unit of work
	assert.Equal(t, 7, inv.Stock)
	assert.NotNil(t, f.account.LastSyncedAt)
}

func TestEngine_Reconcile_UnresolvedSKUKeepsRawPayload(t *testing.T) {
	adapter := singlePageAdapter(rawFeedOrder("EXT-2", "UNPAID", marketplace.RawOrderItem{
		SKU:       "UNKNOWN-SKU",
		Name:      "Mystery Item",
		Quantity:  1,
		UnitPrice: decimal.NewFromInt(5),
		RawData:   `{"sku":"UNKNOWN-SKU"}`,
	}))
	f := newEngineFixture(t, Config{}, adapter)

	report, err := f.engine.Reconcile(context.Background(), f.account.ID, DateRange{})
	require.NoError(t, err)

	assert.Equal(t, OutcomeCreated, report.Items[0].Outcome)
	for _, o := range f.orders.orders {
		require.Len(t, o.Items, 1)
		assert.False(t, o.Items[0].IsResolved())
		assert.Equal(t, `{"sku":"UNKNOWN-SKU"}`, o.Items[0].RawPayload)
	}
	assert.Zero(t, f.invs.saves)
}

func TestEngine_Reconcile_DedupByExternalID(t *testing.T) {
	adapter := singlePageAdapter(rawFeedOrder("EXT-3", "READY_TO_SHIP", marketplace.RawOrderItem{
		SKU:       "SKU-1",
		Name:      "Widget",
		Quantity:  2,
		UnitPrice: decimal.NewFromInt(10),
	}))
	f := newEngineFixture(t, Config{}, adapter)

	productID := uuid.New()
	f.catalog.skus["SKU-1"] = &catalog.SKURef{ProductID: productID}
	inv, err := inventory.NewInventory(f.account.UserID, productID, nil, 10)
	require.NoError(t, err)
	f.invs.rows[inv.ID] = inv

	_, err = f.engine.Reconcile(context.Background(), f.account.ID, DateRange{})
	require.NoError(t, err)
	require.Equal(t, 8, inv.Stock)

	report, err := f.engine.Reconcile(context.Background(), f.account.ID, DateRange{})
	require.NoError(t, err)

	assert.Equal(t, OutcomeUnchanged, report.Items[0].Outcome)
	assert.Len(t, f.orders.orders, 1)
	// Updates never re-decrement inventory
	assert.Equal(t, 8, inv.Stock)
	assert.Equal(t, 1, f.invs.saves)
}

func TestEngine_Reconcile_AppliesStatusChangeOnUpdate(t *testing.T) {
	f := newEngineFixture(t, Config{}, singlePageAdapter(rawFeedOrder("EXT-4", "UNPAID")))

	_, err := f.engine.Reconcile(context.Background(), f.account.ID, DateRange{})
	require.NoError(t, err)

	// Second pass reports the order shipped
	f.engine.registry = &stubRegistry{adapter: singlePageAdapter(rawFeedOrder("EXT-4", "SHIPPED"))}
	report, err := f.engine.Reconcile(context.Background(), f.account.ID, DateRange{})
	require.NoError(t, err)

	assert.Equal(t, OutcomeUpdated, report.Items[0].Outcome)
	for _, o := range f.orders.orders {
		assert.Equal(t, order.StatusShipped, o.Status)
		require.Len(t, o.History, 2)
		assert.Equal(t, order.ActorSystem, o.History[1].Actor)
	}
}

func TestEngine_Reconcile_MissingExternalIDFails(t *testing.T) {
	f := newEngineFixture(t, Config{}, singlePageAdapter(rawFeedOrder("", "UNPAID")))

	report, err := f.engine.Reconcile(context.Background(), f.account.ID, DateRange{})
	require.NoError(t, err)

	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 0, report.Synced)
	assert.Equal(t, OutcomeFailed, report.Items[0].Outcome)
	assert.Empty(t, f.orders.orders)
}

func TestEngine_Reconcile_DisconnectedAccount(t *testing.T) {
	f := newEngineFixture(t, Config{}, singlePageAdapter())
	f.account.Disconnect()

	_, err := f.engine.Reconcile(context.Background(), f.account.ID, DateRange{})
	assert.ErrorIs(t, err, shared.ErrAccountNotConnected)
}

func TestEngine_Reconcile_UnknownAccount(t *testing.T) {
	f := newEngineFixture(t, Config{}, singlePageAdapter())

	_, err := f.engine.Reconcile(context.Background(), uuid.New(), DateRange{})
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestEngine_Reconcile_PageFetchFailureStopsRun(t *testing.T) {
	adapter := &stubAdapter{code: marketplace.CodeShopee, err: errors.New("rate limited")}
	f := newEngineFixture(t, Config{}, adapter)

	report, err := f.engine.Reconcile(context.Background(), f.account.ID, DateRange{})
	require.NoError(t, err)

	assert.Equal(t, "rate limited", report.PageError)
	assert.Zero(t, report.Pages)
	assert.Zero(t, report.Synced)
}

func TestEngine_Reconcile_PaginatesUntilFeedEnds(t *testing.T) {
	adapter := &stubAdapter{
		code: marketplace.CodeShopee,
		pages: []marketplace.OrderPage{
			{Orders: []marketplace.RawOrder{rawFeedOrder("EXT-10", "UNPAID")}, HasMore: true},
			{Orders: []marketplace.RawOrder{rawFeedOrder("EXT-11", "UNPAID")}},
		},
	}
	f := newEngineFixture(t, Config{}, adapter)

	report, err := f.engine.Reconcile(context.Background(), f.account.ID, DateRange{})
	require.NoError(t, err)

	assert.Equal(t, 2, report.Pages)
	assert.Equal(t, 2, report.Synced)
}

func TestEngine_Reconcile_HonorsPageCap(t *testing.T) {
	adapter := &stubAdapter{
		code: marketplace.CodeShopee,
		pages: []marketplace.OrderPage{
			{Orders: []marketplace.RawOrder{rawFeedOrder("EXT-20", "UNPAID")}, HasMore: true},
			{Orders: []marketplace.RawOrder{rawFeedOrder("EXT-21", "UNPAID")}, HasMore: true},
		},
	}
	f := newEngineFixture(t, Config{MaxPages: 1}, adapter)

	report, err := f.engine.Reconcile(context.Background(), f.account.ID, DateRange{})
	require.NoError(t, err)

	assert.Equal(t, 1, report.Pages)
	assert.Equal(t, 1, report.Synced)
}

func TestEngine_Reconcile_SkipsOverlappingRun(t *testing.T) {
	adapter := &stubAdapter{
		code:    marketplace.CodeShopee,
		entered: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	f := newEngineFixture(t, Config{}, adapter)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := f.engine.Reconcile(context.Background(), f.account.ID, DateRange{})
		assert.NoError(t, err)
	}()

	<-adapter.entered
	report, err := f.engine.Reconcile(context.Background(), f.account.ID, DateRange{})
	require.NoError(t, err)
	assert.True(t, report.Skipped)

	close(adapter.release)
	wg.Wait()
}

func TestEngine_UpdateStatus(t *testing.T) {
	f := newEngineFixture(t, Config{}, singlePageAdapter())
	userID := f.account.UserID

	seed, err := order.NewOrder(userID, f.account.ID, "shopee", "EXT-9", order.StatusPending)
	require.NoError(t, err)
	require.NoError(t, f.orders.Save(context.Background(), seed))

	t.Run("applies manual transition", func(t *testing.T) {
		updated, err := f.engine.UpdateStatus(context.Background(), userID, seed.ID, order.StatusConfirmed, "payment verified")
		require.NoError(t, err)
		assert.Equal(t, order.StatusConfirmed, updated.Status)
		assert.Equal(t, order.ActorUser, updated.LatestHistory().Actor)
	})

	t.Run("rejects transition outside the graph", func(t *testing.T) {
		_, err := f.engine.UpdateStatus(context.Background(), userID, seed.ID, order.StatusRefunded, "")
		assert.True(t, shared.IsCode(err, "INVALID_TRANSITION"))
	})

	t.Run("hides other users' orders", func(t *testing.T) {
		_, err := f.engine.UpdateStatus(context.Background(), uuid.New(), seed.ID, order.StatusProcessing, "")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}
