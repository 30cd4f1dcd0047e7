package stocksync

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/sellsync/backend/internal/domain/shared"
)

var (
	ErrRuleNotFound     = errors.New("stocksync: rule not found")
	ErrInvalidRuleName  = errors.New("stocksync: rule name cannot be empty")
	ErrInvalidScope     = errors.New("stocksync: invalid rule scope")
	ErrNoTargetAccounts = errors.New("stocksync: rule requires at least one target account")
	ErrScopeRequiresIDs = errors.New("stocksync: scope requires a non-empty ID list")
)

// ScopeType determines which products a rule applies to
type ScopeType string

const (
	ScopeAllProducts      ScopeType = "ALL_PRODUCTS"
	ScopeSpecificProducts ScopeType = "SPECIFIC_PRODUCTS"
	ScopeCategory         ScopeType = "CATEGORY"
)

// IsValid checks if the scope type is valid
func (s ScopeType) IsValid() bool {
	switch s {
	case ScopeAllProducts, ScopeSpecificProducts, ScopeCategory:
		return true
	}
	return false
}

// Rule is a user-configured policy for how and where stock levels propagate.
// Target accounts are ordered; fan-out visits them in list order.
type Rule struct {
	shared.OwnedAggregateRoot
	Name             string      `gorm:"size:255;not null"`
	Scope            ScopeType   `gorm:"size:30;not null"`
	ProductIDs       []uuid.UUID `gorm:"serializer:json"` // for SPECIFIC_PRODUCTS
	CategoryIDs      []uuid.UUID `gorm:"serializer:json"` // for CATEGORY
	Strategy         Strategy    `gorm:"embedded;embeddedPrefix:strategy_"`
	TargetAccountIDs []uuid.UUID `gorm:"serializer:json;not null"`
	Active           bool        `gorm:"not null;default:true;index"`
}

// TableName returns the table name for GORM
func (Rule) TableName() string {
	return "stock_sync_rules"
}

// NewRule creates a stock sync rule
func NewRule(userID uuid.UUID, name string, scope ScopeType, strategy Strategy, targetAccountIDs []uuid.UUID) (*Rule, error) {
	if name == "" {
		return nil, ErrInvalidRuleName
	}
	if !scope.IsValid() {
		return nil, ErrInvalidScope
	}
	if err := strategy.Validate(); err != nil {
		return nil, err
	}
	if len(targetAccountIDs) == 0 {
		return nil, ErrNoTargetAccounts
	}
	return &Rule{
		OwnedAggregateRoot: shared.NewOwnedAggregateRoot(userID),
		Name:               name,
		Scope:              scope,
		Strategy:           strategy,
		TargetAccountIDs:   targetAccountIDs,
		Active:             true,
	}, nil
}

// Validate checks rule consistency, including scope ID requirements
func (r *Rule) Validate() error {
	if r.Name == "" {
		return ErrInvalidRuleName
	}
	if !r.Scope.IsValid() {
		return ErrInvalidScope
	}
	if r.Scope == ScopeSpecificProducts && len(r.ProductIDs) == 0 {
		return ErrScopeRequiresIDs
	}
	if r.Scope == ScopeCategory && len(r.CategoryIDs) == 0 {
		return ErrScopeRequiresIDs
	}
	if len(r.TargetAccountIDs) == 0 {
		return ErrNoTargetAccounts
	}
	return r.Strategy.Validate()
}

// Matches reports whether the rule's scope covers the given product.
// categoryID may be nil for uncategorized products.
func (r *Rule) Matches(productID uuid.UUID, categoryID *uuid.UUID) bool {
	switch r.Scope {
	case ScopeAllProducts:
		return true
	case ScopeSpecificProducts:
		for _, id := range r.ProductIDs {
			if id == productID {
				return true
			}
		}
		return false
	case ScopeCategory:
		if categoryID == nil {
			return false
		}
		for _, id := range r.CategoryIDs {
			if id == *categoryID {
				return true
			}
		}
		return false
	}
	return false
}

// SyncKey returns the idempotency key for a rule-product-variant sync
func (r *Rule) SyncKey(productID uuid.UUID, variantID *uuid.UUID) string {
	key := r.ID.String() + ":" + productID.String()
	if variantID != nil {
		key += ":" + variantID.String()
	}
	return key
}

// RuleRepository defines persistence for stock sync rules
type RuleRepository interface {
	// FindByID finds a rule by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Rule, error)

	// FindActiveForUser lists a user's active rules
	FindActiveForUser(ctx context.Context, userID uuid.UUID) ([]Rule, error)

	// FindAllForUser lists all rules for a user
	FindAllForUser(ctx context.Context, userID uuid.UUID, filter shared.Filter) ([]Rule, error)

	// Save creates or updates a rule
	Save(ctx context.Context, rule *Rule) error

	// Delete removes a rule
	Delete(ctx context.Context, id uuid.UUID) error
}
