package predicate

import (
	"fmt"

	"github.com/cardscore/cardscore/pkg/evalctx"
)

// Operator is a comparison operator of a Simple predicate.
type Operator string

const (
	OpEqual          Operator = "equal"
	OpNotEqual       Operator = "notEqual"
	OpLessThan       Operator = "lessThan"
	OpLessOrEqual    Operator = "lessOrEqual"
	OpGreaterThan    Operator = "greaterThan"
	OpGreaterOrEqual Operator = "greaterOrEqual"
	OpIsMissing      Operator = "isMissing"
	OpIsNotMissing   Operator = "isNotMissing"
)

// Constant always evaluates to the same state.
type Constant struct {
	Value bool
}

// Always and Never are the constant predicates.
var (
	Always Predicate = Constant{Value: true}
	Never  Predicate = Constant{Value: false}
)

func (c Constant) Evaluate(*evalctx.Context) (TriState, error) {
	return FromBool(c.Value), nil
}

// Simple compares one field against a literal.
type Simple struct {
	Field    string
	Operator Operator
	Value    string
}

// NewSimple validates the operator and operand.
func NewSimple(field string, op Operator, value string) (*Simple, error) {
	switch op {
	case OpEqual, OpNotEqual, OpLessThan, OpLessOrEqual, OpGreaterThan, OpGreaterOrEqual:
	case OpIsMissing, OpIsNotMissing:
		if value != "" {
			return nil, fmt.Errorf("operator %s takes no value", op)
		}
	default:
		return nil, fmt.Errorf("unknown operator %q", op)
	}
	if field == "" {
		return nil, fmt.Errorf("simple predicate without field")
	}
	return &Simple{Field: field, Operator: op, Value: value}, nil
}

func (p *Simple) Evaluate(ctx *evalctx.Context) (TriState, error) {
	v, ok, err := ctx.Lookup(p.Field)
	if err != nil {
		return Unknown, err
	}

	switch p.Operator {
	case OpIsMissing:
		return FromBool(!ok), nil
	case OpIsNotMissing:
		return FromBool(ok), nil
	}

	if !ok {
		return Unknown, nil
	}

	c, err := v.Compare(p.Value)
	if err != nil {
		return Unknown, fmt.Errorf("%s %s %q: %w", p.Field, p.Operator, p.Value, err)
	}

	switch p.Operator {
	case OpEqual:
		return FromBool(c == 0), nil
	case OpNotEqual:
		return FromBool(c != 0), nil
	case OpLessThan:
		return FromBool(c < 0), nil
	case OpLessOrEqual:
		return FromBool(c <= 0), nil
	case OpGreaterThan:
		return FromBool(c > 0), nil
	case OpGreaterOrEqual:
		return FromBool(c >= 0), nil
	default:
		return Unknown, fmt.Errorf("unknown operator %q", p.Operator)
	}
}

// SetOperator is the membership operator of a SimpleSet predicate.
type SetOperator string

const (
	OpIsIn    SetOperator = "isIn"
	OpIsNotIn SetOperator = "isNotIn"
)

// SimpleSet tests field membership in a literal set.
type SimpleSet struct {
	Field    string
	Operator SetOperator
	Values   []string
}

// NewSimpleSet validates the operator.
func NewSimpleSet(field string, op SetOperator, values []string) (*SimpleSet, error) {
	if op != OpIsIn && op != OpIsNotIn {
		return nil, fmt.Errorf("unknown set operator %q", op)
	}
	if field == "" {
		return nil, fmt.Errorf("set predicate without field")
	}
	return &SimpleSet{Field: field, Operator: op, Values: values}, nil
}

func (p *SimpleSet) Evaluate(ctx *evalctx.Context) (TriState, error) {
	v, ok, err := ctx.Lookup(p.Field)
	if err != nil {
		return Unknown, err
	}
	if !ok {
		return Unknown, nil
	}

	member := false
	for _, candidate := range p.Values {
		eq, err := v.Equals(candidate)
		if err != nil {
			return Unknown, fmt.Errorf("%s %s: %w", p.Field, p.Operator, err)
		}
		if eq {
			member = true
			break
		}
	}

	if p.Operator == OpIsNotIn {
		return FromBool(!member), nil
	}
	return FromBool(member), nil
}
