// Package predicate evaluates attribute conditions to a three-valued result.
package predicate

import "github.com/cardscore/cardscore/pkg/evalctx"

// TriState is the outcome of a predicate: True, False or Unknown when the
// inputs are insufficient to decide.
type TriState int

const (
	False TriState = iota
	True
	Unknown
)

func (s TriState) String() string {
	switch s {
	case True:
		return "true"
	case False:
		return "false"
	default:
		return "unknown"
	}
}

// IsTrue reports whether the state is definitely True.
func (s TriState) IsTrue() bool { return s == True }

// Not negates True and False and keeps Unknown.
func (s TriState) Not() TriState {
	switch s {
	case True:
		return False
	case False:
		return True
	}
	return Unknown
}

// And is three-valued conjunction: False dominates, then Unknown.
func (s TriState) And(o TriState) TriState {
	if s == False || o == False {
		return False
	}
	if s == Unknown || o == Unknown {
		return Unknown
	}
	return True
}

// Or is three-valued disjunction: True dominates, then Unknown.
func (s TriState) Or(o TriState) TriState {
	if s == True || o == True {
		return True
	}
	if s == Unknown || o == Unknown {
		return Unknown
	}
	return False
}

// Xor is Unknown if either side is Unknown.
func (s TriState) Xor(o TriState) TriState {
	if s == Unknown || o == Unknown {
		return Unknown
	}
	if s != o {
		return True
	}
	return False
}

// FromBool converts a definite boolean.
func FromBool(b bool) TriState {
	if b {
		return True
	}
	return False
}

// Predicate is a condition over the fields of one evaluation context.
type Predicate interface {
	Evaluate(ctx *evalctx.Context) (TriState, error)
}
