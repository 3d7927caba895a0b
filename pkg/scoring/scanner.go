package scoring

import (
	"fmt"
	"reflect"

	"github.com/cardscore/cardscore/pkg/evalctx"
	"github.com/cardscore/cardscore/pkg/model"
	"github.com/cardscore/cardscore/pkg/predicate"
)

type scanOutcome int

const (
	outcomeMatched scanOutcome = iota
	outcomeNoMatch
	outcomeMissing
)

type scanResult struct {
	outcome      scanOutcome
	attribute    int // 0-based
	partialScore float64
	reasonCode   string
}

// scanCharacteristic returns the first attribute whose predicate is True.
// False and Unknown both move on to the next attribute.
func scanCharacteristic(ch *model.Characteristic, element string, ctx *evalctx.Context) (scanResult, error) {
	for i := range ch.Attributes {
		attr := &ch.Attributes[i]
		attrElement := fmt.Sprintf("%s attribute %d", element, i+1)

		if isNilPredicate(attr.Predicate) {
			return scanResult{}, invalidFeature(attrElement, "attribute has no predicate", nil)
		}
		status, err := attr.Predicate.Evaluate(ctx)
		if err != nil {
			return scanResult{}, invalidFeature(attrElement, "evaluating predicate", err)
		}
		if !status.IsTrue() {
			continue
		}

		res := scanResult{outcome: outcomeMatched, attribute: i, reasonCode: attr.ReasonCode}
		if res.reasonCode == "" {
			res.reasonCode = ch.ReasonCode
		}

		switch {
		case attr.ComplexPartialScore != nil:
			expr := attr.ComplexPartialScore.Expression
			if expr == nil {
				return scanResult{}, invalidFeature(attrElement, "complex partial score has no expression", nil)
			}
			v, ok, err := expr.Evaluate(ctx)
			if err != nil {
				return scanResult{}, invalidFeature(attrElement, "evaluating complex partial score", err)
			}
			if !ok {
				return scanResult{outcome: outcomeMissing, attribute: i}, nil
			}
			f, err := v.Float64()
			if err != nil {
				return scanResult{}, invalidFeature(attrElement, "complex partial score is not numeric", err)
			}
			res.partialScore = f
		case attr.PartialScore != nil:
			res.partialScore = *attr.PartialScore
		default:
			return scanResult{}, invalidFeature(attrElement, "attribute has no partial score", nil)
		}
		return res, nil
	}
	return scanResult{outcome: outcomeNoMatch}, nil
}

// isNilPredicate also catches a nil pointer stored in the interface.
func isNilPredicate(p predicate.Predicate) bool {
	if p == nil {
		return true
	}
	v := reflect.ValueOf(p)
	switch v.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Func, reflect.Interface, reflect.Chan:
		return v.IsNil()
	}
	return false
}
