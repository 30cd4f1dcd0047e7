package automation

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sellsync/backend/internal/domain/order"
	"github.com/sellsync/backend/internal/domain/shared"
)

var (
	ErrInvalidRuleName  = errors.New("automation: rule name cannot be empty")
	ErrNoConditions     = errors.New("automation: rule requires at least one condition")
	ErrNoActions        = errors.New("automation: rule requires at least one action")
	ErrInvalidField     = errors.New("automation: unsupported condition field")
	ErrInvalidOperator  = errors.New("automation: unsupported condition operator")
	ErrInvalidAction    = errors.New("automation: unsupported action type")
	ErrInvalidNumber    = errors.New("automation: condition value is not a number")
)

// ConditionField is an order attribute a condition evaluates against
type ConditionField string

const (
	FieldStatus        ConditionField = "status"
	FieldTotalAmount   ConditionField = "total_amount"
	FieldMarketplace   ConditionField = "marketplace"
	FieldCustomerEmail ConditionField = "customer_email"
)

// IsValid checks if the field is supported
func (f ConditionField) IsValid() bool {
	switch f {
	case FieldStatus, FieldTotalAmount, FieldMarketplace, FieldCustomerEmail:
		return true
	}
	return false
}

// Operator compares an order attribute with a condition value
type Operator string

const (
	OpEquals      Operator = "equals"
	OpNotEquals   Operator = "not_equals"
	OpGreaterThan Operator = "greater_than"
	OpLessThan    Operator = "less_than"
	OpContains    Operator = "contains"
)

// IsValid checks if the operator is supported
func (o Operator) IsValid() bool {
	switch o {
	case OpEquals, OpNotEquals, OpGreaterThan, OpLessThan, OpContains:
		return true
	}
	return false
}

// Condition is one predicate of a rule. All of a rule's conditions must
// hold for the rule to fire (AND semantics).
type Condition struct {
	Field    ConditionField `json:"field"`
	Operator Operator       `json:"operator"`
	Value    string         `json:"value"`
}

// Validate checks the condition
func (c Condition) Validate() error {
	if !c.Field.IsValid() {
		return ErrInvalidField
	}
	if !c.Operator.IsValid() {
		return ErrInvalidOperator
	}
	if c.Field == FieldTotalAmount && (c.Operator == OpGreaterThan || c.Operator == OpLessThan) {
		if _, err := decimal.NewFromString(c.Value); err != nil {
			return ErrInvalidNumber
		}
	}
	return nil
}

// OrderSnapshot is the read-only view of an order that conditions evaluate
// against
type OrderSnapshot struct {
	Status        order.Status
	TotalAmount   decimal.Decimal
	Marketplace   string
	CustomerEmail string
}

// Evaluate reports whether the condition holds for the snapshot.
// Numeric comparison applies to total_amount; everything else compares as
// case-insensitive strings.
func (c Condition) Evaluate(snap OrderSnapshot) bool {
	if c.Field == FieldTotalAmount {
		return c.evaluateAmount(snap.TotalAmount)
	}

	var actual string
	switch c.Field {
	case FieldStatus:
		actual = snap.Status.String()
	case FieldMarketplace:
		actual = snap.Marketplace
	case FieldCustomerEmail:
		actual = snap.CustomerEmail
	default:
		return false
	}
	actual = strings.ToLower(actual)
	expected := strings.ToLower(c.Value)

	switch c.Operator {
	case OpEquals:
		return actual == expected
	case OpNotEquals:
		return actual != expected
	case OpContains:
		return strings.Contains(actual, expected)
	case OpGreaterThan:
		return actual > expected
	case OpLessThan:
		return actual < expected
	}
	return false
}

func (c Condition) evaluateAmount(amount decimal.Decimal) bool {
	expected, err := decimal.NewFromString(c.Value)
	if err != nil {
		return false
	}
	switch c.Operator {
	case OpEquals:
		return amount.Equal(expected)
	case OpNotEquals:
		return !amount.Equal(expected)
	case OpGreaterThan:
		return amount.GreaterThan(expected)
	case OpLessThan:
		return amount.LessThan(expected)
	case OpContains:
		return strings.Contains(amount.String(), c.Value)
	}
	return false
}

// ActionType is the kind of action a fired rule executes
type ActionType string

const (
	ActionUpdateStatus     ActionType = "update_status"
	ActionAddTag           ActionType = "add_tag"
	ActionAssignToUser     ActionType = "assign_to_user"
	ActionSendNotification ActionType = "send_notification"
)

// IsValid checks if the action type is supported
func (t ActionType) IsValid() bool {
	switch t {
	case ActionUpdateStatus, ActionAddTag, ActionAssignToUser, ActionSendNotification:
		return true
	}
	return false
}

// Action is one step of a fired rule. Actions execute sequentially and
// independently: one failure is logged and does not block the rest.
type Action struct {
	Type  ActionType `json:"type"`
	Value string     `json:"value"` // status name, tag, user id or message
}

// Validate checks the action
func (a Action) Validate() error {
	if !a.Type.IsValid() {
		return ErrInvalidAction
	}
	if a.Type == ActionUpdateStatus && !order.Status(a.Value).IsValid() {
		return shared.NewValidationError("automation: update_status requires a valid canonical status")
	}
	if a.Type == ActionAssignToUser {
		if _, err := uuid.Parse(a.Value); err != nil {
			return shared.NewValidationError("automation: assign_to_user requires a user UUID")
		}
	}
	return nil
}

// Rule is a user-owned automation policy evaluated after every successful
// reconciliation. Rules are applied in ascending priority order so the
// highest priority rule applies last and wins conflicting actions.
type Rule struct {
	shared.OwnedAggregateRoot
	Name       string      `gorm:"size:255;not null"`
	Priority   int         `gorm:"not null;default:0;index"`
	Conditions []Condition `gorm:"serializer:json;not null"`
	Actions    []Action    `gorm:"serializer:json;not null"`
	Active     bool        `gorm:"not null;default:true;index"`
}

// TableName returns the table name for GORM
func (Rule) TableName() string {
	return "automation_rules"
}

// NewRule creates an automation rule
func NewRule(userID uuid.UUID, name string, priority int, conditions []Condition, actions []Action) (*Rule, error) {
	if name == "" {
		return nil, ErrInvalidRuleName
	}
	if len(conditions) == 0 {
		return nil, ErrNoConditions
	}
	if len(actions) == 0 {
		return nil, ErrNoActions
	}
	for _, c := range conditions {
		if err := c.Validate(); err != nil {
			return nil, err
		}
	}
	for _, a := range actions {
		if err := a.Validate(); err != nil {
			return nil, err
		}
	}
	return &Rule{
		OwnedAggregateRoot: shared.NewOwnedAggregateRoot(userID),
		Name:               name,
		Priority:           priority,
		Conditions:         conditions,
		Actions:            actions,
		Active:             true,
	}, nil
}

// Fires reports whether every condition holds for the snapshot
func (r *Rule) Fires(snap OrderSnapshot) bool {
	for _, c := range r.Conditions {
		if !c.Evaluate(snap) {
			return false
		}
	}
	return true
}

// Repository defines persistence for automation rules
type Repository interface {
	// FindByID finds a rule by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Rule, error)

	// FindActiveForUser lists a user's active rules ordered by priority
	// ascending, then creation time
	FindActiveForUser(ctx context.Context, userID uuid.UUID) ([]Rule, error)

	// Save creates or updates a rule
	Save(ctx context.Context, rule *Rule) error

	// Delete removes a rule
	Delete(ctx context.Context, id uuid.UUID) error
}
