package formula

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/sellsync/backend/internal/domain/stocksync"
)

// Evaluator is a safe arithmetic evaluator for custom stock formulas.
// Supported grammar: integer literals, the stock variable, + - * /,
// parentheses, and the max/min functions. Nothing else parses, so user
// formulas cannot reach beyond arithmetic.
type Evaluator struct{}

// NewEvaluator creates a formula evaluator
func NewEvaluator() *Evaluator {
	return &Evaluator{}
}

// MaxFormulaLength bounds formula input; the parser recurses per nesting
// level, so unbounded input could exhaust the stack.
const MaxFormulaLength = 256

// Evaluate computes the formula for the given stock level
func (e *Evaluator) Evaluate(formula string, stock int) (int, error) {
	if len(formula) > MaxFormulaLength {
		return 0, fmt.Errorf("formula: exceeds %d characters", MaxFormulaLength)
	}
	p := &parser{input: formula, stock: stock}
	result, err := p.parseExpression()
	if err != nil {
		return 0, err
	}
	p.skipSpaces()
	if p.pos < len(p.input) {
		return 0, fmt.Errorf("formula: unexpected character %q at position %d", p.input[p.pos], p.pos)
	}
	return result, nil
}

var _ stocksync.FormulaEvaluator = (*Evaluator)(nil)

var errDivisionByZero = errors.New("formula: division by zero")

// parser is a recursive descent parser over the formula grammar:
//
//	expression = term { ("+" | "-") term }
//	term       = factor { ("*" | "/") factor }
//	factor     = number | "stock" | func "(" args ")" | "(" expression ")" | "-" factor
type parser struct {
	input string
	pos   int
	stock int
}

func (p *parser) parseExpression() (int, error) {
	left, err := p.parseTerm()
	if err != nil {
		return 0, err
	}
	for {
		p.skipSpaces()
		switch {
		case p.peek() == '+':
			p.pos++
			right, err := p.parseTerm()
			if err != nil {
				return 0, err
			}
			left += right
		case p.peek() == '-':
			p.pos++
			right, err := p.parseTerm()
			if err != nil {
				return 0, err
			}
			left -= right
		default:
			return left, nil
		}
	}
}

func (p *parser) parseTerm() (int, error) {
	left, err := p.parseFactor()
	if err != nil {
		return 0, err
	}
	for {
		p.skipSpaces()
		switch {
		case p.peek() == '*':
			p.pos++
			right, err := p.parseFactor()
			if err != nil {
				return 0, err
			}
			left *= right
		case p.peek() == '/':
			p.pos++
			right, err := p.parseFactor()
			if err != nil {
				return 0, err
			}
			if right == 0 {
				return 0, errDivisionByZero
			}
			left /= right
		default:
			return left, nil
		}
	}
}

func (p *parser) parseFactor() (int, error) {
	p.skipSpaces()
	switch {
	case p.peek() == '(':
		p.pos++
		value, err := p.parseExpression()
		if err != nil {
			return 0, err
		}
		if err := p.expect(')'); err != nil {
			return 0, err
		}
		return value, nil

	case p.peek() == '-':
		p.pos++
		value, err := p.parseFactor()
		if err != nil {
			return 0, err
		}
		return -value, nil

	case unicode.IsDigit(rune(p.peek())):
		return p.parseNumber()

	case unicode.IsLetter(rune(p.peek())):
		return p.parseIdentifier()
	}
	if p.pos >= len(p.input) {
		return 0, errors.New("formula: unexpected end of input")
	}
	return 0, fmt.Errorf("formula: unexpected character %q at position %d", p.input[p.pos], p.pos)
}

func (p *parser) parseNumber() (int, error) {
	start := p.pos
	for p.pos < len(p.input) && unicode.IsDigit(rune(p.input[p.pos])) {
		p.pos++
	}
	value, err := strconv.Atoi(p.input[start:p.pos])
	if err != nil {
		return 0, fmt.Errorf("formula: invalid number %q", p.input[start:p.pos])
	}
	return value, nil
}

func (p *parser) parseIdentifier() (int, error) {
	start := p.pos
	for p.pos < len(p.input) && (unicode.IsLetter(rune(p.input[p.pos])) || unicode.IsDigit(rune(p.input[p.pos]))) {
		p.pos++
	}
	name := strings.ToLower(p.input[start:p.pos])

	switch name {
	case "stock":
		return p.stock, nil
	case "max", "min":
		args, err := p.parseArgs()
		if err != nil {
			return 0, err
		}
		if len(args) < 2 {
			return 0, fmt.Errorf("formula: %s requires at least two arguments", name)
		}
		result := args[0]
		for _, arg := range args[1:] {
			if name == "max" && arg > result {
				result = arg
			}
			if name == "min" && arg < result {
				result = arg
			}
		}
		return result, nil
	}
	return 0, fmt.Errorf("formula: unknown identifier %q", name)
}

func (p *parser) parseArgs() ([]int, error) {
	if err := p.expect('('); err != nil {
		return nil, err
	}
	var args []int
	for {
		value, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		args = append(args, value)

		p.skipSpaces()
		if p.peek() == ',' {
			p.pos++
			continue
		}
		break
	}
	if err := p.expect(')'); err != nil {
		return nil, err
	}
	return args, nil
}

func (p *parser) expect(c byte) error {
	p.skipSpaces()
	if p.peek() != c {
		return fmt.Errorf("formula: expected %q at position %d", string(c), p.pos)
	}
	p.pos++
	return nil
}

// peek returns the current byte or 0 at end of input
func (p *parser) peek() byte {
	if p.pos >= len(p.input) {
		return 0
	}
	return p.input[p.pos]
}

func (p *parser) skipSpaces() {
	for p.pos < len(p.input) && (p.input[p.pos] == ' ' || p.input[p.pos] == '\t') {
		p.pos++
	}
}
