package model

import (
	"fmt"

	"github.com/cardscore/cardscore/pkg/evalctx"
	"github.com/cardscore/cardscore/pkg/expression"
	"github.com/cardscore/cardscore/pkg/predicate"
)

// document is the YAML/JSON shape of a scorecard.
type document struct {
	Name                string              `yaml:"name" validate:"required"`
	Version             string              `yaml:"version"`
	Function            string              `yaml:"function" validate:"omitempty,oneof=regression classification clustering"`
	InitialScore        float64             `yaml:"initial_score"`
	UseReasonCodes      *bool               `yaml:"use_reason_codes"`
	ReasonCodeAlgorithm string              `yaml:"reason_code_algorithm" validate:"omitempty,oneof=pointsAbove pointsBelow"`
	BaselineScore       *float64            `yaml:"baseline_score"`
	Scorable            *bool               `yaml:"is_scorable"`
	DataDictionary      []fieldDoc          `yaml:"data_dictionary" validate:"dive"`
	Target              targetDoc           `yaml:"target"`
	Characteristics     []characteristicDoc `yaml:"characteristics" validate:"min=1,dive"`
	Outputs             []outputDoc         `yaml:"outputs" validate:"dive"`
}

type fieldDoc struct {
	Name          string   `yaml:"name" validate:"required"`
	Type          string   `yaml:"type" validate:"omitempty,oneof=string integer double boolean"`
	MissingValues []string `yaml:"missing_values"`
	Replacement   any      `yaml:"replacement"`
}

type targetDoc struct {
	Field           string   `yaml:"field"`
	RescaleFactor   *float64 `yaml:"rescale_factor"`
	RescaleConstant float64  `yaml:"rescale_constant"`
	Min             *float64 `yaml:"min"`
	Max             *float64 `yaml:"max"`
	CastInteger     string   `yaml:"cast_integer" validate:"omitempty,oneof=round ceiling floor"`
	DefaultValue    *float64 `yaml:"default_value"`
}

type characteristicDoc struct {
	Name          string         `yaml:"name"`
	BaselineScore *float64       `yaml:"baseline_score"`
	ReasonCode    string         `yaml:"reason_code"`
	Attributes    []attributeDoc `yaml:"attributes" validate:"min=1,dive"`
}

// Predicate and score source are checked when the model is evaluated, not here.
type attributeDoc struct {
	Predicate           *predicateDoc  `yaml:"predicate"`
	PartialScore        *float64       `yaml:"partial_score"`
	ComplexPartialScore *expressionDoc `yaml:"complex_partial_score"`
	ReasonCode          string         `yaml:"reason_code"`
}

type predicateDoc struct {
	Const     *bool          `yaml:"const"`
	Field     string         `yaml:"field"`
	Op        string         `yaml:"op"`
	Value     string         `yaml:"value"`
	Values    []string       `yaml:"values"`
	And       []predicateDoc `yaml:"and"`
	Or        []predicateDoc `yaml:"or"`
	Xor       []predicateDoc `yaml:"xor"`
	Surrogate []predicateDoc `yaml:"surrogate"`
	When      string         `yaml:"when"`
}

type expressionDoc struct {
	Constant     *float64 `yaml:"constant"`
	Field        string   `yaml:"field"`
	MapMissingTo *float64 `yaml:"map_missing_to"`
	Formula      string   `yaml:"formula"`
}

type outputDoc struct {
	Name    string `yaml:"name" validate:"required"`
	Feature string `yaml:"feature" validate:"required,oneof=predictedValue rawScore reasonCode"`
	Rank    int    `yaml:"rank" validate:"min=0"`
}

func (d *document) compile() (*Scorecard, error) {
	fields := make([]evalctx.Field, 0, len(d.DataDictionary))
	for _, f := range d.DataDictionary {
		fields = append(fields, evalctx.Field{
			Name:          f.Name,
			Type:          evalctx.DataType(f.Type),
			MissingValues: f.MissingValues,
			Replacement:   f.Replacement,
		})
	}
	dict, err := evalctx.NewDictionary(fields...)
	if err != nil {
		return nil, fmt.Errorf("data dictionary: %w", err)
	}

	sc := &Scorecard{
		Name:                d.Name,
		Version:             d.Version,
		Function:            Function(d.Function),
		InitialScore:        d.InitialScore,
		UseReasonCodes:      boolOr(d.UseReasonCodes, true),
		ReasonCodeAlgorithm: ReasonCodeAlgorithm(d.ReasonCodeAlgorithm),
		BaselineScore:       d.BaselineScore,
		Scorable:            boolOr(d.Scorable, true),
		Dictionary:          dict,
		Target: Target{
			Field:           d.Target.Field,
			RescaleFactor:   floatOr(d.Target.RescaleFactor, 1),
			RescaleConstant: d.Target.RescaleConstant,
			Min:             d.Target.Min,
			Max:             d.Target.Max,
			CastInteger:     CastInteger(d.Target.CastInteger),
			DefaultValue:    d.Target.DefaultValue,
		},
	}
	if sc.Function == "" {
		sc.Function = FunctionRegression
	}
	if sc.ReasonCodeAlgorithm == "" {
		sc.ReasonCodeAlgorithm = PointsBelow
	}

	for i, cd := range d.Characteristics {
		ch := Characteristic{
			Name:          cd.Name,
			BaselineScore: cd.BaselineScore,
			ReasonCode:    cd.ReasonCode,
		}
		if ch.Name == "" {
			ch.Name = fmt.Sprintf("characteristic_%d", i+1)
		}
		for j, ad := range cd.Attributes {
			attr, err := ad.compile(dict)
			if err != nil {
				return nil, fmt.Errorf("characteristic %q attribute %d: %w", ch.Name, j+1, err)
			}
			ch.Attributes = append(ch.Attributes, attr)
		}
		sc.Characteristics = append(sc.Characteristics, ch)
	}

	for _, od := range d.Outputs {
		if od.Feature == string(FeatureReasonCode) && od.Rank < 1 {
			return nil, fmt.Errorf("output %q: reasonCode requires rank >= 1", od.Name)
		}
		sc.Outputs = append(sc.Outputs, OutputField{
			Name:    od.Name,
			Feature: Feature(od.Feature),
			Rank:    od.Rank,
		})
	}

	return sc, nil
}

func (a *attributeDoc) compile(dict *evalctx.Dictionary) (Attribute, error) {
	attr := Attribute{
		PartialScore: a.PartialScore,
		ReasonCode:   a.ReasonCode,
	}

	if a.Predicate != nil {
		p, err := a.Predicate.compile(dict)
		if err != nil {
			return Attribute{}, fmt.Errorf("predicate: %w", err)
		}
		attr.Predicate = p
	}

	if a.ComplexPartialScore != nil {
		e, err := a.ComplexPartialScore.compile(dict)
		if err != nil {
			return Attribute{}, fmt.Errorf("complex partial score: %w", err)
		}
		attr.ComplexPartialScore = &ComplexPartialScore{Expression: e}
	}

	return attr, nil
}

func (p *predicateDoc) compile(dict *evalctx.Dictionary) (predicate.Predicate, error) {
	kinds := 0
	for _, set := range []bool{
		p.Const != nil, p.Field != "", len(p.And) > 0, len(p.Or) > 0,
		len(p.Xor) > 0, len(p.Surrogate) > 0, p.When != "",
	} {
		if set {
			kinds++
		}
	}
	if kinds != 1 {
		return nil, fmt.Errorf("exactly one of const, field, and, or, xor, surrogate, when is required")
	}

	switch {
	case p.Const != nil:
		return predicate.Constant{Value: *p.Const}, nil
	case p.Field != "":
		switch op := p.Op; op {
		case string(predicate.OpIsIn), string(predicate.OpIsNotIn):
			return predicate.NewSimpleSet(p.Field, predicate.SetOperator(op), p.Values)
		default:
			return predicate.NewSimple(p.Field, predicate.Operator(op), p.Value)
		}
	case p.When != "":
		return predicate.NewCEL(p.When, dict)
	}

	op, children := predicate.OpAnd, p.And
	switch {
	case len(p.Or) > 0:
		op, children = predicate.OpOr, p.Or
	case len(p.Xor) > 0:
		op, children = predicate.OpXor, p.Xor
	case len(p.Surrogate) > 0:
		op, children = predicate.OpSurrogate, p.Surrogate
	}

	compiled := make([]predicate.Predicate, 0, len(children))
	for i := range children {
		c, err := children[i].compile(dict)
		if err != nil {
			return nil, fmt.Errorf("%s[%d]: %w", op, i, err)
		}
		compiled = append(compiled, c)
	}
	return predicate.NewCompound(op, compiled...)
}

// compile returns a nil expression when nothing is set; the evaluator
// reports that as a malformed attribute.
func (e *expressionDoc) compile(dict *evalctx.Dictionary) (expression.Expression, error) {
	switch {
	case e.Formula != "":
		return expression.NewFormula(e.Formula, dict)
	case e.Field != "":
		return expression.FieldRef{Field: e.Field, MapMissingTo: e.MapMissingTo}, nil
	case e.Constant != nil:
		return expression.Constant{Value: *e.Constant}, nil
	}
	return nil, nil
}

func boolOr(b *bool, def bool) bool {
	if b == nil {
		return def
	}
	return *b
}

func floatOr(f *float64, def float64) float64 {
	if f == nil {
		return def
	}
	return *f
}
