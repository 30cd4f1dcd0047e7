package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sellsync/backend/internal/domain/catalog"
	"github.com/sellsync/backend/internal/domain/inventory"
	"github.com/sellsync/backend/internal/domain/marketplace"
	"github.com/sellsync/backend/internal/domain/order"
	"github.com/sellsync/backend/internal/domain/shared"
)

// Event types emitted by the reconciliation engine
const (
	EventTypeOrderSyncCompleted = "sync.orders_completed"
	EventTypeOrderSyncFailed    = "sync.orders_failed"
)

const (
	// DefaultMaxPages bounds how many feed pages one run consumes
	DefaultMaxPages = 10
	// DefaultPageSize is the order feed page size
	DefaultPageSize = 50
	// DefaultAdapterTimeout bounds each adapter call
	DefaultAdapterTimeout = 30 * time.Second
)

// AutomationEvaluator is invoked synchronously after every successful
// create or update. Evaluation failures are logged, never propagated.
type AutomationEvaluator interface {
	EvaluateOrder(ctx context.Context, o *order.Order) error
}

// Config tunes one engine instance
type Config struct {
	MaxPages       int
	PageSize       int
	AdapterTimeout time.Duration
}

// DefaultConfig returns the default engine configuration
func DefaultConfig() Config {
	return Config{
		MaxPages:       DefaultMaxPages,
		PageSize:       DefaultPageSize,
		AdapterTimeout: DefaultAdapterTimeout,
	}
}

// Engine ingests marketplace order feeds and reconciles them against local
// state: dedup by (account, external order ID), status normalization,
// inventory decrement on create, and an append-only status trail.
// All state is owned by the instance; the in-flight guard keeps runs for
// the same account from overlapping.
type Engine struct {
	config      Config
	accountRepo marketplace.AccountRepository
	registry    marketplace.AdapterRegistry
	catalogRepo catalog.Repository
	txScope     TransactionScope
	evaluator   AutomationEvaluator
	publisher   shared.EventPublisher
	guard       *shared.KeyedGuard
	logger      *zap.Logger
}

// NewEngine creates a reconciliation engine
func NewEngine(
	config Config,
	accountRepo marketplace.AccountRepository,
	registry marketplace.AdapterRegistry,
	catalogRepo catalog.Repository,
	txScope TransactionScope,
	publisher shared.EventPublisher,
	logger *zap.Logger,
) *Engine {
	if config.MaxPages <= 0 {
		config.MaxPages = DefaultMaxPages
	}
	if config.PageSize <= 0 {
		config.PageSize = DefaultPageSize
	}
	if config.AdapterTimeout <= 0 {
		config.AdapterTimeout = DefaultAdapterTimeout
	}
	return &Engine{
		config:      config,
		accountRepo: accountRepo,
		registry:    registry,
		catalogRepo: catalogRepo,
		txScope:     txScope,
		publisher:   publisher,
		guard:       shared.NewKeyedGuard(),
		logger:      logger,
	}
}

// SetEvaluator wires the automation evaluator. Optional; reconciliation
// works without automation.
func (e *Engine) SetEvaluator(evaluator AutomationEvaluator) {
	e.evaluator = evaluator
}

// Reconcile runs one reconciliation pass for an account. Setup failures
// (unknown account, disconnected account, no adapter) abort the run and
// propagate; per-item and per-page failures are captured in the report.
// An overlapping run for the same account is skipped, not queued.
func (e *Engine) Reconcile(ctx context.Context, accountID uuid.UUID, dateRange DateRange) (*Report, error) {
	account, err := e.accountRepo.FindByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if !account.IsConnected() {
		return nil, shared.ErrAccountNotConnected
	}
	adapter, err := e.registry.Get(account.Marketplace)
	if err != nil {
		return nil, err
	}

	guardKey := "reconcile:" + accountID.String()
	if !e.guard.TryAcquire(guardKey) {
		e.logger.Info("reconciliation already in flight, skipping",
			zap.String("account_id", accountID.String()),
		)
		return &Report{AccountID: accountID, Skipped: true, StartedAt: time.Now(), EndedAt: time.Now()}, nil
	}
	defer e.guard.Release(guardKey)

	report := &Report{AccountID: accountID, StartedAt: time.Now()}
	e.paginate(ctx, account, adapter, dateRange, report)
	report.EndedAt = time.Now()

	account.MarkSynced(report.EndedAt)
	if err := e.accountRepo.Save(ctx, account); err != nil {
		e.logger.Warn("failed to record account sync time",
			zap.String("account_id", accountID.String()),
			zap.Error(err),
		)
	}

	e.publishRunEvent(ctx, account, report)

	e.logger.Info("reconciliation run finished",
		zap.String("account_id", accountID.String()),
		zap.String("marketplace", account.Marketplace.String()),
		zap.Int("synced", report.Synced),
		zap.Int("failed", report.Failed),
		zap.Int("pages", report.Pages),
	)
	return report, nil
}

// UpdateStatus applies a user-initiated status change to an order. Unlike
// marketplace-driven updates this path enforces the manual transition graph.
func (e *Engine) UpdateStatus(ctx context.Context, userID, orderID uuid.UUID, status order.Status, reason string) (*order.Order, error) {
	var updated *order.Order
	err := e.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		o, err := repos.Orders().FindByID(ctx, orderID)
		if err != nil {
			return err
		}
		if o.UserID != userID {
			return shared.ErrNotFound
		}
		if err := o.ApplyManualStatus(status, reason); err != nil {
			return err
		}
		if err := repos.Orders().Save(ctx, o); err != nil {
			return err
		}
		updated = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.publishAggregateEvents(ctx, updated)
	return updated, nil
}

// paginate walks the order feed up to the page cap. A page fetch failure
// stops pagination but keeps the results collected so far.
func (e *Engine) paginate(ctx context.Context, account *marketplace.Account, adapter marketplace.Adapter, dateRange DateRange, report *Report) {
	for page := 1; page <= e.config.MaxPages; page++ {
		fetchCtx, cancel := context.WithTimeout(ctx, e.config.AdapterTimeout)
		feed, err := adapter.GetOrders(fetchCtx, account, marketplace.GetOrdersRequest{
			Page:     page,
			PageSize: e.config.PageSize,
			DateFrom: dateRange.From,
			DateTo:   dateRange.To,
		})
		cancel()
		if err != nil {
			report.PageError = err.Error()
			e.logger.Error("order feed page fetch failed",
				zap.String("account_id", account.ID.String()),
				zap.Int("page", page),
				zap.Error(err),
			)
			return
		}
		report.Pages++

		// Orders are processed sequentially so inventory decrements are
		// deterministic within one run.
		for i := range feed.Orders {
			report.addItem(e.processRawOrder(ctx, account, &feed.Orders[i]))
		}

		if !feed.HasMore {
			return
		}
	}
}

// processRawOrder reconciles one raw order, returning its per-item result
func (e *Engine) processRawOrder(ctx context.Context, account *marketplace.Account, raw *marketplace.RawOrder) ItemResult {
	if raw.ExternalOrderID == "" {
		return ItemResult{Outcome: OutcomeFailed, Error: "missing external order ID"}
	}

	existing, err := e.lookupExisting(ctx, account.ID, raw.ExternalOrderID)
	if err != nil {
		return ItemResult{ExternalOrderID: raw.ExternalOrderID, Outcome: OutcomeFailed, Error: err.Error()}
	}

	if existing == nil {
		return e.createOrder(ctx, account, raw)
	}
	return e.updateOrder(ctx, account, existing, raw)
}

func (e *Engine) lookupExisting(ctx context.Context, accountID uuid.UUID, externalOrderID string) (*order.Order, error) {
	var existing *order.Order
	err := e.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		found, err := repos.Orders().FindByExternalID(ctx, accountID, externalOrderID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return nil
			}
			return err
		}
		existing = found
		return nil
	})
	return existing, err
}

// createOrder is the create path: normalize status, persist order and line
// items, decrement inventory for resolved items, and record the first
// status history entry. The whole item commits atomically.
func (e *Engine) createOrder(ctx context.Context, account *marketplace.Account, raw *marketplace.RawOrder) ItemResult {
	status := marketplace.NormalizeStatus(account.Marketplace, raw.Status)

	o, err := order.NewOrder(account.UserID, account.ID, account.Marketplace.String(), raw.ExternalOrderID, status)
	if err != nil {
		return ItemResult{ExternalOrderID: raw.ExternalOrderID, Outcome: OutcomeFailed, Error: err.Error()}
	}
	o.RefreshFromMarketplace(raw.TotalAmount, raw.ShippingFee, raw.CustomerName, raw.CustomerEmail, raw.CustomerPhone, raw.ShippingAddress)
	if raw.Currency != "" {
		o.Currency = raw.Currency
	}

	for _, rawItem := range raw.Items {
		item, err := order.NewLineItem(rawItem.SKU, rawItem.Name, rawItem.Quantity, rawItem.UnitPrice)
		if err != nil {
			return ItemResult{ExternalOrderID: raw.ExternalOrderID, Outcome: OutcomeFailed, Error: err.Error()}
		}
		// SKU resolution is best-effort: unresolved items keep the raw
		// payload for audit and never fail the order.
		ref, err := e.catalogRepo.FindBySKU(ctx, account.UserID, rawItem.SKU)
		if err == nil && ref != nil {
			item.Resolve(ref.ProductID, ref.VariantID)
		} else {
			item.RawPayload = rawItem.RawData
			if err != nil && !errors.Is(err, shared.ErrNotFound) && !errors.Is(err, catalog.ErrProductNotFound) {
				e.logger.Warn("SKU resolution failed",
					zap.String("sku", rawItem.SKU),
					zap.Error(err),
				)
			}
		}
		o.AddItem(*item)
	}

	var touched []*inventory.Inventory
	err = e.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		if err := repos.Orders().Save(ctx, o); err != nil {
			return err
		}
		for i := range o.Items {
			item := &o.Items[i]
			if !item.IsResolved() {
				continue
			}
			inv, err := repos.Inventories().FindByProduct(ctx, account.UserID, *item.ProductID, item.VariantID)
			if err != nil {
				if errors.Is(err, shared.ErrNotFound) {
					continue // no inventory row tracked for this product
				}
				return err
			}
			note := fmt.Sprintf("order %s line %s", o.OrderNumber, item.SKU)
			if err := inv.Decrement(item.Quantity, "order", o.ID, note); err != nil {
				return err
			}
			if err := repos.Inventories().Save(ctx, inv); err != nil {
				return err
			}
			touched = append(touched, inv)
		}
		return nil
	})
	if err != nil {
		return ItemResult{ExternalOrderID: raw.ExternalOrderID, Outcome: OutcomeFailed, Error: err.Error()}
	}

	e.publishAggregateEvents(ctx, o)
	for _, inv := range touched {
		e.publishInventoryEvents(ctx, inv)
	}
	e.runAutomation(ctx, o)

	id := o.ID
	return ItemResult{ExternalOrderID: raw.ExternalOrderID, OrderID: &id, Outcome: OutcomeCreated, Status: o.Status}
}

// updateOrder is the update path: refresh mutable fields from the
// marketplace and append a history entry when the normalized status moved.
// Inventory is never re-decremented on update.
func (e *Engine) updateOrder(ctx context.Context, account *marketplace.Account, existing *order.Order, raw *marketplace.RawOrder) ItemResult {
	status := marketplace.NormalizeStatus(account.Marketplace, raw.Status)

	changed := existing.ApplyMarketplaceStatus(status, fmt.Sprintf("marketplace reported %q", raw.Status))
	existing.RefreshFromMarketplace(raw.TotalAmount, raw.ShippingFee, raw.CustomerName, raw.CustomerEmail, raw.CustomerPhone, raw.ShippingAddress)

	err := e.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		return repos.Orders().Save(ctx, existing)
	})
	if err != nil {
		return ItemResult{ExternalOrderID: raw.ExternalOrderID, Outcome: OutcomeFailed, Error: err.Error()}
	}

	e.publishAggregateEvents(ctx, existing)
	e.runAutomation(ctx, existing)

	id := existing.ID
	outcome := OutcomeUnchanged
	if changed {
		outcome = OutcomeUpdated
	}
	return ItemResult{ExternalOrderID: raw.ExternalOrderID, OrderID: &id, Outcome: outcome, Status: existing.Status}
}

func (e *Engine) runAutomation(ctx context.Context, o *order.Order) {
	if e.evaluator == nil {
		return
	}
	if err := e.evaluator.EvaluateOrder(ctx, o); err != nil {
		e.logger.Warn("automation evaluation failed",
			zap.String("order_number", o.OrderNumber),
			zap.Error(err),
		)
	}
}

func (e *Engine) publishAggregateEvents(ctx context.Context, o *order.Order) {
	if e.publisher == nil {
		return
	}
	events := o.GetDomainEvents()
	if len(events) == 0 {
		return
	}
	_ = e.publisher.Publish(ctx, events...)
	o.ClearDomainEvents()
}

func (e *Engine) publishInventoryEvents(ctx context.Context, inv *inventory.Inventory) {
	if e.publisher == nil {
		return
	}
	events := inv.GetDomainEvents()
	if len(events) == 0 {
		return
	}
	_ = e.publisher.Publish(ctx, events...)
	inv.ClearDomainEvents()
	inv.ClearPendingMovements()
}

func (e *Engine) publishRunEvent(ctx context.Context, account *marketplace.Account, report *Report) {
	if e.publisher == nil {
		return
	}
	eventType := EventTypeOrderSyncCompleted
	if report.Synced == 0 && (report.Failed > 0 || report.PageError != "") {
		eventType = EventTypeOrderSyncFailed
	}
	event := &RunCompletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, "MarketplaceAccount", account.ID, account.UserID),
		Synced:          report.Synced,
		Failed:          report.Failed,
		PageError:       report.PageError,
	}
	_ = e.publisher.Publish(ctx, event)
}

// RunCompletedEvent summarizes one reconciliation run for the event sink
type RunCompletedEvent struct {
	shared.BaseDomainEvent
	Synced    int    `json:"synced"`
	Failed    int    `json:"failed"`
	PageError string `json:"page_error,omitempty"`
}
