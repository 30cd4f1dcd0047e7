package automation

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sellsync/backend/internal/domain/automation"
	"github.com/sellsync/backend/internal/domain/order"
	"github.com/sellsync/backend/internal/domain/shared"
)

type stubRuleProvider struct {
	rules []automation.Rule
	err   error
}

func (s *stubRuleProvider) ActiveRules(_ context.Context, _ uuid.UUID) ([]automation.Rule, error) {
	return s.rules, s.err
}

type captureSaver struct {
	saved []*order.Order
	err   error
}

func (s *captureSaver) Save(_ context.Context, o *order.Order) error {
	if s.err != nil {
		return s.err
	}
	s.saved = append(s.saved, o)
	return nil
}

type capturePublisher struct {
	events []shared.DomainEvent
}

func (p *capturePublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	p.events = append(p.events, events...)
	return nil
}

func newEvaluatorOrder(t *testing.T, status order.Status) *order.Order {
	t.Helper()
	o, err := order.NewOrder(uuid.New(), uuid.New(), "shopee", "EXT-100", status)
	require.NoError(t, err)
	o.ClearDomainEvents()
	return o
}

func mustRule(t *testing.T, userID uuid.UUID, name string, priority int, conditions []automation.Condition, actions []automation.Action) automation.Rule {
	t.Helper()
	rule, err := automation.NewRule(userID, name, priority, conditions, actions)
	require.NoError(t, err)
	return *rule
}

func TestEvaluator_EvaluateOrder_FiresMatchingRule(t *testing.T) {
	o := newEvaluatorOrder(t, order.StatusPending)
	provider := &stubRuleProvider{rules: []automation.Rule{
		mustRule(t, o.UserID, "tag new orders", 0,
			[]automation.Condition{{Field: automation.FieldStatus, Operator: automation.OpEquals, Value: "PENDING"}},
			[]automation.Action{{Type: automation.ActionAddTag, Value: "new"}},
		),
	}}
	saver := &captureSaver{}
	eval := NewEvaluator(provider, saver, nil, zap.NewNop())

	require.NoError(t, eval.EvaluateOrder(context.Background(), o))

	assert.Equal(t, []string{"new"}, o.Tags)
	assert.Len(t, saver.saved, 1)
}

func TestEvaluator_EvaluateOrder_ConditionsAreConjunctive(t *testing.T) {
	o := newEvaluatorOrder(t, order.StatusPending)
	o.TotalAmount = decimal.NewFromInt(50)
	provider := &stubRuleProvider{rules: []automation.Rule{
		mustRule(t, o.UserID, "flag large pending", 0,
			[]automation.Condition{
				{Field: automation.FieldStatus, Operator: automation.OpEquals, Value: "PENDING"},
				{Field: automation.FieldTotalAmount, Operator: automation.OpGreaterThan, Value: "100"},
			},
			[]automation.Action{{Type: automation.ActionAddTag, Value: "large"}},
		),
	}}
	saver := &captureSaver{}
	eval := NewEvaluator(provider, saver, nil, zap.NewNop())

	require.NoError(t, eval.EvaluateOrder(context.Background(), o))

	assert.Empty(t, o.Tags)
	assert.Empty(t, saver.saved)
}

func TestEvaluator_EvaluateOrder_AmountCondition(t *testing.T) {
	o := newEvaluatorOrder(t, order.StatusPending)
	o.TotalAmount = decimal.NewFromInt(150)
	provider := &stubRuleProvider{rules: []automation.Rule{
		mustRule(t, o.UserID, "flag large orders", 0,
			[]automation.Condition{{Field: automation.FieldTotalAmount, Operator: automation.OpGreaterThan, Value: "100"}},
			[]automation.Action{{Type: automation.ActionAddTag, Value: "large"}},
		),
	}}
	eval := NewEvaluator(provider, &captureSaver{}, nil, zap.NewNop())

	require.NoError(t, eval.EvaluateOrder(context.Background(), o))
	assert.Equal(t, []string{"large"}, o.Tags)
}

func TestEvaluator_EvaluateOrder_LaterRulesSeeEarlierMutations(t *testing.T) {
	o := newEvaluatorOrder(t, order.StatusPending)
	provider := &stubRuleProvider{rules: []automation.Rule{
		mustRule(t, o.UserID, "confirm pending", 1,
			[]automation.Condition{{Field: automation.FieldStatus, Operator: automation.OpEquals, Value: "PENDING"}},
			[]automation.Action{{Type: automation.ActionUpdateStatus, Value: "CONFIRMED"}},
		),
		mustRule(t, o.UserID, "tag confirmed", 2,
			[]automation.Condition{{Field: automation.FieldStatus, Operator: automation.OpEquals, Value: "CONFIRMED"}},
			[]automation.Action{{Type: automation.ActionAddTag, Value: "auto-confirmed"}},
		),
	}}
	saver := &captureSaver{}
	eval := NewEvaluator(provider, saver, nil, zap.NewNop())

	require.NoError(t, eval.EvaluateOrder(context.Background(), o))

	assert.Equal(t, order.StatusConfirmed, o.Status)
	assert.Equal(t, order.ActorAutomation, o.LatestHistory().Actor)
	// The second rule matched against the status the first rule set
	assert.Equal(t, []string{"auto-confirmed"}, o.Tags)
	assert.Len(t, saver.saved, 1)
}

func TestEvaluator_EvaluateOrder_AssignsUser(t *testing.T) {
	o := newEvaluatorOrder(t, order.StatusPending)
	assignee := uuid.New()
	provider := &stubRuleProvider{rules: []automation.Rule{
		mustRule(t, o.UserID, "route to assignee", 0,
			[]automation.Condition{{Field: automation.FieldMarketplace, Operator: automation.OpEquals, Value: "shopee"}},
			[]automation.Action{{Type: automation.ActionAssignToUser, Value: assignee.String()}},
		),
	}}
	eval := NewEvaluator(provider, &captureSaver{}, nil, zap.NewNop())

	require.NoError(t, eval.EvaluateOrder(context.Background(), o))

	require.NotNil(t, o.AssigneeID)
	assert.Equal(t, assignee, *o.AssigneeID)
}

func TestEvaluator_EvaluateOrder_ActionFailureDoesNotBlockRest(t *testing.T) {
	o := newEvaluatorOrder(t, order.StatusPending)
	rule := mustRule(t, o.UserID, "mixed actions", 0,
		[]automation.Condition{{Field: automation.FieldStatus, Operator: automation.OpEquals, Value: "PENDING"}},
		[]automation.Action{
			{Type: automation.ActionAddTag, Value: "kept"},
		},
	)
	// Slip in an action that fails at execution time; construction-time
	// validation would reject it
	rule.Actions = append([]automation.Action{{Type: automation.ActionUpdateStatus, Value: "TELEPORTED"}}, rule.Actions...)
	provider := &stubRuleProvider{rules: []automation.Rule{rule}}
	saver := &captureSaver{}
	eval := NewEvaluator(provider, saver, nil, zap.NewNop())

	require.NoError(t, eval.EvaluateOrder(context.Background(), o))

	assert.Equal(t, order.StatusPending, o.Status)
	assert.Equal(t, []string{"kept"}, o.Tags)
	assert.Len(t, saver.saved, 1)
}

func TestEvaluator_EvaluateOrder_NotificationDoesNotMutate(t *testing.T) {
	o := newEvaluatorOrder(t, order.StatusPending)
	provider := &stubRuleProvider{rules: []automation.Rule{
		mustRule(t, o.UserID, "notify", 0,
			[]automation.Condition{{Field: automation.FieldStatus, Operator: automation.OpEquals, Value: "PENDING"}},
			[]automation.Action{{Type: automation.ActionSendNotification, Value: "new order arrived"}},
		),
	}}
	saver := &captureSaver{}
	publisher := &capturePublisher{}
	eval := NewEvaluator(provider, saver, publisher, zap.NewNop())

	require.NoError(t, eval.EvaluateOrder(context.Background(), o))

	assert.Empty(t, saver.saved)
	require.Len(t, publisher.events, 1)
	assert.Equal(t, EventTypeNotificationRequested, publisher.events[0].EventType())
}

func TestEvaluator_EvaluateOrder_NoRules(t *testing.T) {
	o := newEvaluatorOrder(t, order.StatusPending)
	saver := &captureSaver{}
	eval := NewEvaluator(&stubRuleProvider{}, saver, nil, zap.NewNop())

	require.NoError(t, eval.EvaluateOrder(context.Background(), o))
	assert.Empty(t, saver.saved)
}

func TestEvaluator_EvaluateOrder_ProviderFailure(t *testing.T) {
	o := newEvaluatorOrder(t, order.StatusPending)
	eval := NewEvaluator(&stubRuleProvider{err: errors.New("cache down")}, &captureSaver{}, nil, zap.NewNop())

	assert.Error(t, eval.EvaluateOrder(context.Background(), o))
}

func TestEvaluator_EvaluateOrder_SaveFailure(t *testing.T) {
	o := newEvaluatorOrder(t, order.StatusPending)
	provider := &stubRuleProvider{rules: []automation.Rule{
		mustRule(t, o.UserID, "tag", 0,
			[]automation.Condition{{Field: automation.FieldStatus, Operator: automation.OpEquals, Value: "PENDING"}},
			[]automation.Action{{Type: automation.ActionAddTag, Value: "new"}},
		),
	}}
	eval := NewEvaluator(provider, &captureSaver{err: errors.New("db down")}, nil, zap.NewNop())

	assert.Error(t, eval.EvaluateOrder(context.Background(), o))
}
