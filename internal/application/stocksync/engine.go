package stocksync

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
	"github.com/sellsync/backend/internal/domain/shared"
	"github.com/sellsync/backend/internal/domain/stocksync"
)

// Triggers recorded on sync logs
const (
	TriggerInventoryChange = "inventory_change"
	TriggerManual          = "manual"
	TriggerSweep           = "sweep"
)

// Event types emitted by the stock sync engine
const (
	EventTypeStockSyncCompleted = "sync.stock_completed"
	EventTypeStockSyncFailed    = "sync.stock_failed"
)

// DefaultPushTimeout bounds each stock push to a marketplace
const DefaultPushTimeout = 15 * time.Second

// RuleProvider supplies a user's active sync rules; a caching decorator can
// sit behind this interface.
type RuleProvider interface {
	ActiveRules(ctx context.Context, userID uuid.UUID) ([]stocksync.Rule, error)
}

// Engine propagates local stock levels to marketplace listings. Every
// inventory mutation is matched against the owner's active rules; each
// matching rule computes a target stock with its strategy and fans out to
// its target accounts. Fan-out is partial-success: one target's failure
// never blocks the rest, and a missing product mapping skips that target.
type Engine struct {
	pushTimeout time.Duration
	rules       RuleProvider
	accountRepo marketplace.AccountRepository
	mappingRepo marketplace.ProductMappingRepository
	catalogRepo catalog.Repository
	invRepo     inventory.Repository
	logRepo     stocksync.SyncLogRepository
	registry    marketplace.AdapterRegistry
	formula     stocksync.FormulaEvaluator
	publisher   shared.EventPublisher
	guard       *shared.KeyedGuard
	logger      *zap.Logger
}

// NewEngine creates a stock sync engine
func NewEngine(
	rules RuleProvider,
	accountRepo marketplace.AccountRepository,
	mappingRepo marketplace.ProductMappingRepository,
	catalogRepo catalog.Repository,
	invRepo inventory.Repository,
	logRepo stocksync.SyncLogRepository,
	registry marketplace.AdapterRegistry,
	formula stocksync.FormulaEvaluator,
	publisher shared.EventPublisher,
	logger *zap.Logger,
) *Engine {
	return &Engine{
		pushTimeout: DefaultPushTimeout,
		rules:       rules,
		accountRepo: accountRepo,
		mappingRepo: mappingRepo,
		catalogRepo: catalogRepo,
		invRepo:     invRepo,
		logRepo:     logRepo,
		registry:    registry,
		formula:     formula,
		publisher:   publisher,
		guard:       shared.NewKeyedGuard(),
		logger:      logger,
	}
}

// Handle consumes inventory change events from the event bus
func (e *Engine) Handle(ctx context.Context, event shared.DomainEvent) error {
	changed, ok := event.(*inventory.InventoryChangedEvent)
	if !ok {
		return nil
	}
	_, err := e.SyncProduct(ctx, event.UserID(), changed.ProductID, changed.VariantID, changed.AfterStock, TriggerInventoryChange)
	return err
}

// EventTypes subscribes the engine to inventory changes
func (e *Engine) EventTypes() []string {
	return []string{inventory.EventTypeInventoryChanged}
}

var _ shared.EventHandler = (*Engine)(nil)

// SyncProduct runs every matching rule for one product's stock level and
// returns the produced sync logs. Rules whose (rule, product, variant) sync
// is already in flight are skipped, not queued.
func (e *Engine) SyncProduct(ctx context.Context, userID, productID uuid.UUID, variantID *uuid.UUID, sourceStock int, trigger string) ([]*stocksync.SyncLog, error) {
	rules, err := e.rules.ActiveRules(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load sync rules: %w", err)
	}
	if len(rules) == 0 {
		return nil, nil
	}

	categoryID := e.categoryOf(ctx, userID, productID)

	var logs []*stocksync.SyncLog
	for i := range rules {
		rule := &rules[i]
		if !rule.Matches(productID, categoryID) {
			continue
		}
		log := e.runRule(ctx, rule, productID, variantID, sourceStock, trigger)
		if log != nil {
			logs = append(logs, log)
		}
	}
	return logs, nil
}

// TriggerManualSync resyncs the given products on demand, reading current
// stock levels from inventory. Every tracked inventory row of every listed
// product is synced. The caller's reason, when given, is recorded on the
// produced sync logs after the manual trigger token.
func (e *Engine) TriggerManualSync(ctx context.Context, userID uuid.UUID, productIDs []uuid.UUID, reason string) ([]*stocksync.SyncLog, error) {
	if len(productIDs) == 0 {
		return nil, shared.NewValidationError("at least one product is required")
	}
	rows, err := e.invRepo.FindByProductIDs(ctx, userID, productIDs)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, shared.ErrNotFound
	}

	trigger := TriggerManual
	if reason != "" {
		trigger = TriggerManual + ": " + reason
	}

	var logs []*stocksync.SyncLog
	for i := range rows {
		inv := &rows[i]
		ruleLogs, err := e.SyncProduct(ctx, userID, inv.ProductID, inv.VariantID, inv.Stock, trigger)
		if err != nil {
			return logs, err
		}
		logs = append(logs, ruleLogs...)
	}
	return logs, nil
}

// SyncRecentlyMutated is the periodic sweep: it resyncs every inventory row
// touched since the cutoff, catching mutations whose events were missed.
func (e *Engine) SyncRecentlyMutated(ctx context.Context, cutoff time.Time) (int, error) {
	rows, err := e.invRepo.FindMutatedSince(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("list mutated inventory: %w", err)
	}
	synced := 0
	for i := range rows {
		inv := &rows[i]
		if _, err := e.SyncProduct(ctx, inv.UserID, inv.ProductID, inv.VariantID, inv.Stock, TriggerSweep); err != nil {
			e.logger.Warn("sweep sync failed",
				zap.String("product_id", inv.ProductID.String()),
				zap.Error(err),
			)
			continue
		}
		synced++
	}
	return synced, nil
}

// runRule computes the target stock and fans out to the rule's target
// accounts, persisting a sync log. Returns nil when the sync was skipped
// because an identical one was in flight.
func (e *Engine) runRule(ctx context.Context, rule *stocksync.Rule, productID uuid.UUID, variantID *uuid.UUID, sourceStock int, trigger string) *stocksync.SyncLog {
	key := rule.SyncKey(productID, variantID)
	if !e.guard.TryAcquire(key) {
		e.logger.Info("stock sync already in flight, skipping",
			zap.String("rule", rule.Name),
			zap.String("product_id", productID.String()),
		)
		return nil
	}
	defer e.guard.Release(key)

	target, fellBack := rule.Strategy.Compute(sourceStock, e.formula)
	if fellBack {
		e.logger.Warn("formula evaluation failed, fell back to exact match",
			zap.String("rule", rule.Name),
			zap.String("formula", rule.Strategy.Formula),
		)
	}

	log := stocksync.NewSyncLog(rule.UserID, rule.ID, productID, variantID, trigger, sourceStock, target, fellBack)
	for _, accountID := range rule.TargetAccountIDs {
		log.AddResult(e.pushToAccount(ctx, accountID, productID, variantID, target))
	}
	log.Finalize()

	if err := e.logRepo.Save(ctx, log); err != nil {
		e.logger.Error("failed to persist sync log",
			zap.String("rule", rule.Name),
			zap.Error(err),
		)
	}
	e.publishRunEvent(ctx, rule, log)

	e.logger.Info("stock sync rule completed",
		zap.String("rule", rule.Name),
		zap.String("product_id", productID.String()),
		zap.Int("source_stock", sourceStock),
		zap.Int("target_stock", target),
		zap.String("status", string(log.Status)),
	)
	return log
}

// pushToAccount pushes one stock level to one target account. Missing
// mappings and disconnected accounts are skips; adapter failures are
// per-target errors.
func (e *Engine) pushToAccount(ctx context.Context, accountID, productID uuid.UUID, variantID *uuid.UUID, target int) stocksync.TargetResult {
	result := stocksync.TargetResult{AccountID: accountID, SyncedStock: target}

	account, err := e.accountRepo.FindByID(ctx, accountID)
	if err != nil {
		result.ErrorMessage = fmt.Sprintf("account lookup: %v", err)
		return result
	}
	result.Marketplace = account.Marketplace.String()
	if !account.IsConnected() {
		result.Skipped = true
		result.ErrorMessage = "account not connected"
		return result
	}

	mapping, err := e.mappingRepo.FindByTarget(ctx, accountID, productID, variantID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) || errors.Is(err, marketplace.ErrMappingNotFound) {
			e.logger.Warn("no product mapping for target, skipping",
				zap.String("account_id", accountID.String()),
				zap.String("product_id", productID.String()),
			)
			result.Skipped = true
			result.ErrorMessage = "no product mapping"
			return result
		}
		result.ErrorMessage = fmt.Sprintf("mapping lookup: %v", err)
		return result
	}
	result.ExternalProductID = mapping.ExternalProductID
	result.ExternalVariantID = mapping.ExternalVariantID

	adapter, err := e.registry.Get(account.Marketplace)
	if err != nil {
		result.ErrorMessage = err.Error()
		return result
	}

	pushCtx, cancel := context.WithTimeout(ctx, e.pushTimeout)
	defer cancel()
	push, err := adapter.UpdateStock(pushCtx, account, mapping.ExternalProductID, mapping.ExternalVariantID, target)
	if err != nil {
		result.ErrorMessage = err.Error()
		return result
	}
	if !push.Success {
		result.ErrorMessage = push.ErrorMessage
		return result
	}
	result.Success = true
	return result
}

func (e *Engine) publishRunEvent(ctx context.Context, rule *stocksync.Rule, log *stocksync.SyncLog) {
	if e.publisher == nil {
		return
	}
	eventType := EventTypeStockSyncCompleted
	if log.Status == stocksync.SyncStatusFailed {
		eventType = EventTypeStockSyncFailed
	}
	event := &RunCompletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, "StockSyncRule", rule.ID, rule.UserID),
		ProductID:       log.ProductID,
		TargetStock:     log.TargetStock,
		Status:          log.Status,
		SuccessCount:    log.SuccessCount,
		FailureCount:    log.FailureCount,
		SkippedCount:    log.SkippedCount,
	}
	_ = e.publisher.Publish(ctx, event)
}

// RunCompletedEvent summarizes one rule invocation for the event sink
type RunCompletedEvent struct {
	shared.BaseDomainEvent
	ProductID    uuid.UUID            `json:"product_id"`
	TargetStock  int                  `json:"target_stock"`
	Status       stocksync.SyncStatus `json:"status"`
	SuccessCount int                  `json:"success_count"`
	FailureCount int                  `json:"failure_count"`
	SkippedCount int                  `json:"skipped_count"`
}

// categoryOf resolves the product's category for scope matching; lookup
// failures degrade to uncategorized.
func (e *Engine) categoryOf(ctx context.Context, userID, productID uuid.UUID) *uuid.UUID {
	product, err := e.catalogRepo.FindByID(ctx, productID)
	if err != nil || product == nil || product.UserID != userID {
		return nil
	}
	return product.CategoryID
}

// RepositoryRuleProvider adapts the domain repository to RuleProvider
type RepositoryRuleProvider struct {
	Repo stocksync.RuleRepository
}

// ActiveRules returns the user's active sync rules
func (p *RepositoryRuleProvider) ActiveRules(ctx context.Context, userID uuid.UUID) ([]stocksync.Rule, error) {
	return p.Repo.FindActiveForUser(ctx, userID)
}

var _ RuleProvider = (*RepositoryRuleProvider)(nil)
