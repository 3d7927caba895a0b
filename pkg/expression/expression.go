// Package expression computes non-constant partial scores.
package expression

import (
	"fmt"

	"github.com/cardscore/cardscore/pkg/evalctx"
)

// Expression computes a value from the evaluation context. ok is false when
// an input is missing, in which case the value is undefined.
type Expression interface {
	Evaluate(ctx *evalctx.Context) (v evalctx.Value, ok bool, err error)
}

// Constant is a literal number.
type Constant struct {
	Value float64
}

func (c Constant) Evaluate(*evalctx.Context) (evalctx.Value, bool, error) {
	return evalctx.FloatValue(c.Value), true, nil
}

// FieldRef passes a field through. MapMissingTo, when set, replaces a missing value.
type FieldRef struct {
	Field        string
	MapMissingTo *float64
}

func (f FieldRef) Evaluate(ctx *evalctx.Context) (evalctx.Value, bool, error) {
	v, ok, err := ctx.Lookup(f.Field)
	if err != nil {
		return evalctx.Value{}, false, err
	}
	if !ok {
		if f.MapMissingTo != nil {
			return evalctx.FloatValue(*f.MapMissingTo), true, nil
		}
		return evalctx.Value{}, false, nil
	}
	if _, err := v.Float64(); err != nil {
		return evalctx.Value{}, false, fmt.Errorf("field %q: %w", f.Field, err)
	}
	return v, true, nil
}
