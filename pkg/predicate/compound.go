package predicate

import (
	"fmt"

	"github.com/cardscore/cardscore/pkg/evalctx"
)

// BooleanOperator combines the children of a Compound predicate.
type BooleanOperator string

const (
	OpAnd       BooleanOperator = "and"
	OpOr        BooleanOperator = "or"
	OpXor       BooleanOperator = "xor"
	OpSurrogate BooleanOperator = "surrogate"
)

// Compound combines two or more predicates with three-valued logic.
// Surrogate returns the first child that is not Unknown.
type Compound struct {
	Operator   BooleanOperator
	Predicates []Predicate
}

// NewCompound validates the operator and arity.
func NewCompound(op BooleanOperator, children ...Predicate) (*Compound, error) {
	switch op {
	case OpAnd, OpOr, OpXor, OpSurrogate:
	default:
		return nil, fmt.Errorf("unknown boolean operator %q", op)
	}
	if len(children) < 2 {
		return nil, fmt.Errorf("%s needs at least 2 predicates, got %d", op, len(children))
	}
	for i, c := range children {
		if c == nil {
			return nil, fmt.Errorf("%s predicate %d is nil", op, i)
		}
	}
	return &Compound{Operator: op, Predicates: children}, nil
}

func (p *Compound) Evaluate(ctx *evalctx.Context) (TriState, error) {
	var acc TriState
	for i, child := range p.Predicates {
		s, err := child.Evaluate(ctx)
		if err != nil {
			return Unknown, err
		}

		if p.Operator == OpSurrogate {
			if s != Unknown {
				return s, nil
			}
			continue
		}

		if i == 0 {
			acc = s
		} else {
			switch p.Operator {
			case OpAnd:
				acc = acc.And(s)
			case OpOr:
				acc = acc.Or(s)
			case OpXor:
				acc = acc.Xor(s)
			}
		}

		if p.Operator == OpAnd && acc == False {
			return False, nil
		}
		if p.Operator == OpOr && acc == True {
			return True, nil
		}
	}

	if p.Operator == OpSurrogate {
		return Unknown, nil
	}
	return acc, nil
}
