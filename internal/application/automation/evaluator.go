package automation

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sellsync/backend/internal/domain/automation"
	"github.com/sellsync/backend/internal/domain/order"
	"github.com/sellsync/backend/internal/domain/shared"
)

// EventTypeNotificationRequested is emitted for send_notification actions;
// a delivery channel subscribes to it.
const EventTypeNotificationRequested = "automation.notification_requested"

// RuleProvider supplies the active rules for a user, ordered by ascending
// priority. A caching decorator can sit behind this interface.
type RuleProvider interface {
	ActiveRules(ctx context.Context, userID uuid.UUID) ([]automation.Rule, error)
}

// OrderSaver persists order mutations made by fired actions
type OrderSaver interface {
	Save(ctx context.Context, o *order.Order) error
}

// Evaluator runs a user's automation rules against an order after every
// successful reconciliation. Rules apply in ascending priority so the
// highest priority rule runs last and wins conflicting actions. Action
// failures are logged and never abort the remaining actions or rules.
type Evaluator struct {
	rules     RuleProvider
	orders    OrderSaver
	publisher shared.EventPublisher
	logger    *zap.Logger
}

// NewEvaluator creates an automation evaluator
func NewEvaluator(rules RuleProvider, orders OrderSaver, publisher shared.EventPublisher, logger *zap.Logger) *Evaluator {
	return &Evaluator{
		rules:     rules,
		orders:    orders,
		publisher: publisher,
		logger:    logger,
	}
}

// EvaluateOrder evaluates every active rule against the order. The snapshot
// is re-taken after each fired rule so later rules see earlier mutations.
// The order is saved once, only when at least one action mutated it.
func (e *Evaluator) EvaluateOrder(ctx context.Context, o *order.Order) error {
	rules, err := e.rules.ActiveRules(ctx, o.UserID)
	if err != nil {
		return fmt.Errorf("load automation rules: %w", err)
	}
	if len(rules) == 0 {
		return nil
	}

	mutated := false
	for i := range rules {
		rule := &rules[i]
		if !rule.Fires(snapshotOf(o)) {
			continue
		}
		e.logger.Debug("automation rule fired",
			zap.String("rule", rule.Name),
			zap.String("order_number", o.OrderNumber),
		)
		for _, action := range rule.Actions {
			changed, err := e.execute(ctx, rule, action, o)
			if err != nil {
				e.logger.Warn("automation action failed",
					zap.String("rule", rule.Name),
					zap.String("action", string(action.Type)),
					zap.String("order_number", o.OrderNumber),
					zap.Error(err),
				)
				continue
			}
			mutated = mutated || changed
		}
	}

	if !mutated {
		return nil
	}
	if err := e.orders.Save(ctx, o); err != nil {
		return fmt.Errorf("save automated order changes: %w", err)
	}
	e.publishOrderEvents(ctx, o)
	return nil
}

// execute runs one action, reporting whether it mutated the order
func (e *Evaluator) execute(ctx context.Context, rule *automation.Rule, action automation.Action, o *order.Order) (bool, error) {
	switch action.Type {
	case automation.ActionUpdateStatus:
		status := order.Status(action.Value)
		if !status.IsValid() {
			return false, fmt.Errorf("invalid status %q", action.Value)
		}
		reason := fmt.Sprintf("rule %q", rule.Name)
		return o.ApplyAutomationStatus(status, reason), nil

	case automation.ActionAddTag:
		return o.AddTag(action.Value), nil

	case automation.ActionAssignToUser:
		assigneeID, err := uuid.Parse(action.Value)
		if err != nil {
			return false, fmt.Errorf("invalid assignee ID %q", action.Value)
		}
		o.AssignTo(assigneeID)
		return true, nil

	case automation.ActionSendNotification:
		if e.publisher == nil {
			return false, nil
		}
		event := &NotificationRequestedEvent{
			BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeNotificationRequested, "Order", o.ID, o.UserID),
			RuleName:        rule.Name,
			OrderNumber:     o.OrderNumber,
			Message:         action.Value,
		}
		return false, e.publisher.Publish(ctx, event)
	}
	return false, fmt.Errorf("unsupported action type %q", action.Type)
}

func (e *Evaluator) publishOrderEvents(ctx context.Context, o *order.Order) {
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

func snapshotOf(o *order.Order) automation.OrderSnapshot {
	return automation.OrderSnapshot{
		Status:        o.Status,
		TotalAmount:   o.TotalAmount,
		Marketplace:   o.Marketplace,
		CustomerEmail: o.CustomerEmail,
	}
}

// NotificationRequestedEvent asks a delivery channel to notify the user
type NotificationRequestedEvent struct {
	shared.BaseDomainEvent
	RuleName    string `json:"rule_name"`
	OrderNumber string `json:"order_number"`
	Message     string `json:"message"`
}

// RepositoryRuleProvider adapts the domain repository to RuleProvider
type RepositoryRuleProvider struct {
	Repo automation.Repository
}

// ActiveRules returns the user's active rules by ascending priority
func (p *RepositoryRuleProvider) ActiveRules(ctx context.Context, userID uuid.UUID) ([]automation.Rule, error) {
	return p.Repo.FindActiveForUser(ctx, userID)
}

var _ RuleProvider = (*RepositoryRuleProvider)(nil)
