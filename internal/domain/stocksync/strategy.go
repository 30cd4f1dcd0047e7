package stocksync

import (
	"errors"
)

var (
	ErrInvalidStrategy   = errors.New("stocksync: invalid strategy type")
	ErrInvalidPercentage = errors.New("stocksync: percentage must be between 0 and 100")
	ErrEmptyFormula      = errors.New("stocksync: custom formula cannot be empty")
)

// StrategyType selects how target stock is computed from source stock
type StrategyType string

const (
	StrategyExactMatch       StrategyType = "EXACT_MATCH"
	StrategyPercentage       StrategyType = "PERCENTAGE"
	StrategyFixedOffset      StrategyType = "FIXED_OFFSET"
	StrategyMinimumThreshold StrategyType = "MINIMUM_THRESHOLD"
	StrategyCustomFormula    StrategyType = "CUSTOM_FORMULA"
)

// IsValid checks if the strategy type is valid
func (t StrategyType) IsValid() bool {
	switch t {
	case StrategyExactMatch, StrategyPercentage, StrategyFixedOffset,
		StrategyMinimumThreshold, StrategyCustomFormula:
		return true
	}
	return false
}

// FormulaEvaluator evaluates a restricted arithmetic expression over the
// `stock` variable. Implementations must reject anything outside the
// supported grammar; arbitrary code execution is explicitly not allowed.
type FormulaEvaluator interface {
	// Evaluate computes the formula with stock bound to the given value
	Evaluate(formula string, stock int) (int, error)
}

// Strategy is the pluggable target-stock computation of a sync rule.
// Computation is a pure function of the source stock and the parameters.
type Strategy struct {
	Type         StrategyType `gorm:"size:30;not null"`
	Percentage   int          `gorm:"default:0"` // PERCENTAGE
	Offset       int          `gorm:"default:0"` // FIXED_OFFSET
	MinimumStock int          `gorm:"default:0"` // MINIMUM_THRESHOLD
	Formula      string       `gorm:"size:512"`  // CUSTOM_FORMULA
}

// Validate checks the strategy parameters
func (s Strategy) Validate() error {
	if !s.Type.IsValid() {
		return ErrInvalidStrategy
	}
	if s.Type == StrategyPercentage && (s.Percentage < 0 || s.Percentage > 100) {
		return ErrInvalidPercentage
	}
	if s.Type == StrategyCustomFormula && s.Formula == "" {
		return ErrEmptyFormula
	}
	return nil
}

// Compute derives the target stock for one source stock level.
// CUSTOM_FORMULA evaluation errors fall back to EXACT_MATCH rather than
// failing the sync; the returned fellBack flag lets callers log the fallback.
// Negative results clamp to zero: marketplaces reject negative stock.
func (s Strategy) Compute(source int, eval FormulaEvaluator) (target int, fellBack bool) {
	switch s.Type {
	case StrategyExactMatch:
		target = source
	case StrategyPercentage:
		target = source * s.Percentage / 100
	case StrategyFixedOffset:
		target = source + s.Offset
	case StrategyMinimumThreshold:
		target = source
		if target < s.MinimumStock {
			target = s.MinimumStock
		}
	case StrategyCustomFormula:
		if eval == nil {
			return source, true
		}
		result, err := eval.Evaluate(s.Formula, source)
		if err != nil {
			return source, true
		}
		target = result
	default:
		return source, true
	}
	if target < 0 {
		target = 0
	}
	return target, false
}
