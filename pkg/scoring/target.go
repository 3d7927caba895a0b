package scoring

import (
	"math"

	"github.com/cardscore/cardscore/pkg/model"
)

// applyTarget clamps, rescales and casts a raw score.
func applyTarget(t model.Target, raw float64) float64 {
	v := raw
	if t.Min != nil && v < *t.Min {
		v = *t.Min
	}
	if t.Max != nil && v > *t.Max {
		v = *t.Max
	}

	factor := t.RescaleFactor
	if factor == 0 {
		factor = 1
	}
	v = v*factor + t.RescaleConstant

	switch t.CastInteger {
	case model.CastRound:
		v = math.Round(v)
	case model.CastCeiling:
		v = math.Ceil(v)
	case model.CastFloor:
		v = math.Floor(v)
	}
	return v
}

// defaultPrediction is the prediction used when scoring input is missing.
func defaultPrediction(t model.Target) *float64 {
	if t.DefaultValue == nil {
		return nil
	}
	v := *t.DefaultValue
	return &v
}
