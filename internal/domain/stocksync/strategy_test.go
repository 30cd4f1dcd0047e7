package stocksync

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type stubEvaluator struct {
	result int
	err    error
}

func (s *stubEvaluator) Evaluate(formula string, stock int) (int, error) {
	return s.result, s.err
}

func TestStrategy_Compute(t *testing.T) {
	tests := []struct {
		name         string
		strategy     Strategy
		source       int
		eval         FormulaEvaluator
		wantTarget   int
		wantFellBack bool
	}{
		{
			name:       "exact match mirrors source",
			strategy:   Strategy{Type: StrategyExactMatch},
			source:     42,
			wantTarget: 42,
		},
		{
			name:       "percentage of 100 at 80 percent",
			strategy:   Strategy{Type: StrategyPercentage, Percentage: 80},
			source:     100,
			wantTarget: 80,
		},
		{
			name:       "percentage truncates toward zero",
			strategy:   Strategy{Type: StrategyPercentage, Percentage: 80},
			source:     7,
			wantTarget: 5,
		},
		{
			name:       "fixed offset subtracts buffer",
			strategy:   Strategy{Type: StrategyFixedOffset, Offset: -10},
			source:     50,
			wantTarget: 40,
		},
		{
			name:       "fixed offset clamps negative result to zero",
			strategy:   Strategy{Type: StrategyFixedOffset, Offset: -60},
			source:     50,
			wantTarget: 0,
		},
		{
			name:       "minimum threshold lifts low stock",
			strategy:   Strategy{Type: StrategyMinimumThreshold, MinimumStock: 20},
			source:     10,
			wantTarget: 20,
		},
		{
			name:       "minimum threshold passes high stock through",
			strategy:   Strategy{Type: StrategyMinimumThreshold, MinimumStock: 20},
			source:     50,
			wantTarget: 50,
		},
		{
			name:       "custom formula uses evaluator result",
			strategy:   Strategy{Type: StrategyCustomFormula, Formula: "max(stock - 10, 5)"},
			source:     8,
			eval:       &stubEvaluator{result: 5},
			wantTarget: 5,
		},
		{
			name:         "custom formula error falls back to source",
			strategy:     Strategy{Type: StrategyCustomFormula, Formula: "max(stock -"},
			source:       33,
			eval:         &stubEvaluator{err: errors.New("parse error")},
			wantTarget:   33,
			wantFellBack: true,
		},
		{
			name:         "custom formula without evaluator falls back",
			strategy:     Strategy{Type: StrategyCustomFormula, Formula: "stock * 2"},
			source:       12,
			wantTarget:   12,
			wantFellBack: true,
		},
		{
			name:         "unknown type falls back to source",
			strategy:     Strategy{Type: StrategyType("MYSTERY")},
			source:       9,
			wantTarget:   9,
			wantFellBack: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target, fellBack := tt.strategy.Compute(tt.source, tt.eval)
			assert.Equal(t, tt.wantTarget, target)
			assert.Equal(t, tt.wantFellBack, fellBack)
		})
	}
}

func TestStrategy_Validate(t *testing.T) {
	tests := []struct {
		name     string
		strategy Strategy
		wantErr  error
	}{
		{"exact match is valid", Strategy{Type: StrategyExactMatch}, nil},
		{"percentage within range", Strategy{Type: StrategyPercentage, Percentage: 50}, nil},
		{"percentage above 100", Strategy{Type: StrategyPercentage, Percentage: 150}, ErrInvalidPercentage},
		{"percentage below zero", Strategy{Type: StrategyPercentage, Percentage: -1}, ErrInvalidPercentage},
		{"custom formula requires expression", Strategy{Type: StrategyCustomFormula}, ErrEmptyFormula},
		{"unknown type rejected", Strategy{Type: StrategyType("NOPE")}, ErrInvalidStrategy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.strategy.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}
