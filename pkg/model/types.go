// Package model defines scorecard models: ordered characteristics of
// predicate-gated attributes whose partial scores add up to a score.
//
// Models are immutable after loading and safe to share between any number
// of concurrent evaluations.
package model

import (
	"github.com/cardscore/cardscore/pkg/evalctx"
	"github.com/cardscore/cardscore/pkg/expression"
	"github.com/cardscore/cardscore/pkg/predicate"
)

// Function is the model's declared mining function.
type Function string

const (
	FunctionRegression     Function = "regression"
	FunctionClassification Function = "classification"
	FunctionClustering     Function = "clustering"
)

// ReasonCodeAlgorithm decides the sign of a reason-code contribution.
type ReasonCodeAlgorithm string

const (
	// PointsAbove credits partial - baseline.
	PointsAbove ReasonCodeAlgorithm = "pointsAbove"
	// PointsBelow credits baseline - partial.
	PointsBelow ReasonCodeAlgorithm = "pointsBelow"
)

// Scorecard is an additive scoring model.
type Scorecard struct {
	Name                string
	Version             string
	Function            Function
	InitialScore        float64
	UseReasonCodes      bool
	ReasonCodeAlgorithm ReasonCodeAlgorithm
	BaselineScore       *float64 // model-level fallback for characteristics
	Scorable            bool
	Characteristics     []Characteristic
	Dictionary          *evalctx.Dictionary
	Target              Target
	Outputs             []OutputField
}

// Characteristic is a group of mutually exclusive attributes. Exactly one
// attribute must match per evaluation.
type Characteristic struct {
	Name          string
	BaselineScore *float64
	ReasonCode    string // default for attributes without their own
	Attributes    []Attribute
}

// Attribute is one predicate-guarded alternative of a characteristic.
// Exactly one of PartialScore and ComplexPartialScore is set.
type Attribute struct {
	Predicate           predicate.Predicate
	PartialScore        *float64
	ComplexPartialScore *ComplexPartialScore
	ReasonCode          string
}

// ComplexPartialScore computes the partial score from an expression.
type ComplexPartialScore struct {
	Expression expression.Expression
}

// CastInteger rounds the transformed prediction.
type CastInteger string

const (
	CastNone    CastInteger = ""
	CastRound   CastInteger = "round"
	CastCeiling CastInteger = "ceiling"
	CastFloor   CastInteger = "floor"
)

// Target describes how the raw score becomes the visible prediction.
type Target struct {
	Field           string
	RescaleFactor   float64
	RescaleConstant float64
	Min             *float64
	Max             *float64
	CastInteger     CastInteger
	// DefaultValue is the prediction when an input needed for scoring is
	// missing. Nil makes the prediction itself missing.
	DefaultValue *float64
}

// Feature selects what an output field reports.
type Feature string

const (
	FeaturePredictedValue Feature = "predictedValue"
	FeatureRawScore       Feature = "rawScore"
	FeatureReasonCode     Feature = "reasonCode"
)

// OutputField is a named value derived from the prediction.
type OutputField struct {
	Name    string
	Feature Feature
	Rank    int // 1-based, reasonCode only
}

// TargetField returns the target name, defaulting to "score".
func (s *Scorecard) TargetField() string {
	if s.Target.Field == "" {
		return "score"
	}
	return s.Target.Field
}
