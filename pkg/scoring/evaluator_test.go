package scoring_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardscore/cardscore/pkg/evalctx"
	"github.com/cardscore/cardscore/pkg/expression"
	"github.com/cardscore/cardscore/pkg/model"
	"github.com/cardscore/cardscore/pkg/predicate"
	"github.com/cardscore/cardscore/pkg/scoring"
)

func ptr(v float64) *float64 { return &v }

// countingPredicate returns a fixed result and counts how often it ran.
type countingPredicate struct {
	result predicate.TriState
	calls  int
}

func (p *countingPredicate) Evaluate(*evalctx.Context) (predicate.TriState, error) {
	p.calls++
	return p.result, nil
}

type failingPredicate struct{}

func (failingPredicate) Evaluate(*evalctx.Context) (predicate.TriState, error) {
	return predicate.Unknown, errors.New("boom")
}

func literal(p predicate.Predicate, score float64, code string) model.Attribute {
	return model.Attribute{Predicate: p, PartialScore: ptr(score), ReasonCode: code}
}

func characteristic(name string, attrs ...model.Attribute) model.Characteristic {
	return model.Characteristic{Name: name, Attributes: attrs}
}

func evaluate(t *testing.T, sc *model.Scorecard, record evalctx.Record) (*scoring.Result, error) {
	t.Helper()
	ev, err := scoring.NewEvaluator(sc)
	require.NoError(t, err)
	return ev.Evaluate(record)
}

func twoCharacteristics(scoreB float64, codeB string) *model.Scorecard {
	return &model.Scorecard{
		Name:                "example",
		Scorable:            true,
		UseReasonCodes:      true,
		ReasonCodeAlgorithm: model.PointsAbove,
		BaselineScore:       ptr(10),
		Characteristics: []model.Characteristic{
			characteristic("A", literal(predicate.Always, 15, "R1")),
			characteristic("B", literal(predicate.Always, scoreB, codeB)),
		},
	}
}

func TestEvaluateWithoutReasonCodes(t *testing.T) {
	sc := twoCharacteristics(5, "R1")
	sc.UseReasonCodes = false

	res, err := evaluate(t, sc, nil)
	require.NoError(t, err)
	require.NotNil(t, res.Value)
	assert.Equal(t, 20.0, *res.Value)
	assert.Equal(t, 20.0, res.RawScore)
	assert.Nil(t, res.Explanation)
	assert.False(t, res.Defaulted)
	for _, cr := range res.Breakdown {
		assert.Empty(t, cr.ReasonCode)
		assert.Zero(t, cr.Points)
	}
}

func TestEvaluateZeroSumReasonCodeIsKept(t *testing.T) {
	res, err := evaluate(t, twoCharacteristics(5, "R1"), nil)
	require.NoError(t, err)

	assert.Equal(t, 20.0, *res.Value)
	require.NotNil(t, res.Explanation)
	want := []scoring.ReasonCodePoints{{Code: "R1", Points: 0}}
	if diff := cmp.Diff(want, res.Explanation.ReasonCodes); diff != "" {
		t.Errorf("reason codes mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 20.0, *res.Explanation.PredictedValue)
}

func TestEvaluateNegativeReasonCodeIsDropped(t *testing.T) {
	res, err := evaluate(t, twoCharacteristics(2, "R2"), nil)
	require.NoError(t, err)

	assert.Equal(t, 17.0, *res.Value)
	want := []scoring.ReasonCodePoints{{Code: "R1", Points: 5}}
	if diff := cmp.Diff(want, res.Explanation.ReasonCodes); diff != "" {
		t.Errorf("reason codes mismatch (-want +got):\n%s", diff)
	}

	wantBreakdown := []scoring.CharacteristicResult{
		{Characteristic: "A", Attribute: 1, PartialScore: 15, ReasonCode: "R1", Baseline: ptr(10), Points: 5},
		{Characteristic: "B", Attribute: 1, PartialScore: 2, ReasonCode: "R2", Baseline: ptr(10), Points: -8},
	}
	if diff := cmp.Diff(wantBreakdown, res.Breakdown); diff != "" {
		t.Errorf("breakdown mismatch (-want +got):\n%s", diff)
	}
}

func TestEvaluateNoMatchIsInvalidResult(t *testing.T) {
	sc := &model.Scorecard{
		Name:     "nomatch",
		Scorable: true,
		Characteristics: []model.Characteristic{
			characteristic("ok", literal(predicate.Always, 1, "")),
			characteristic("none",
				literal(predicate.Never, 1, ""),
				literal(predicate.Never, 2, ""),
			),
		},
	}

	res, err := evaluate(t, sc, nil)
	require.Error(t, err)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, scoring.ErrInvalidResult)
	kind, ok := scoring.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, scoring.InvalidResult, kind)
	assert.Contains(t, err.Error(), `characteristic "none"`)
}

func TestEvaluateMissingExpressionReturnsDefault(t *testing.T) {
	dict, err := evalctx.NewDictionary(evalctx.Field{Name: "income", Type: evalctx.TypeDouble})
	require.NoError(t, err)

	later := &countingPredicate{result: predicate.True}
	sc := &model.Scorecard{
		Name:                "missing",
		Scorable:            true,
		UseReasonCodes:      true,
		ReasonCodeAlgorithm: model.PointsBelow,
		BaselineScore:       ptr(0),
		Dictionary:          dict,
		Target:              model.Target{DefaultValue: ptr(42)},
		Outputs: []model.OutputField{
			{Name: "p", Feature: model.FeaturePredictedValue},
			{Name: "raw", Feature: model.FeatureRawScore},
			{Name: "top", Feature: model.FeatureReasonCode, Rank: 1},
		},
		Characteristics: []model.Characteristic{
			characteristic("first", literal(predicate.Always, 3, "R1")),
			characteristic("income", model.Attribute{
				Predicate:           predicate.Always,
				ComplexPartialScore: &model.ComplexPartialScore{Expression: expression.FieldRef{Field: "income"}},
				ReasonCode:          "R2",
			}),
			characteristic("after", model.Attribute{Predicate: later, PartialScore: ptr(1), ReasonCode: "R3"}),
		},
	}

	res, err := evaluate(t, sc, evalctx.Record{})
	require.NoError(t, err)
	assert.True(t, res.Defaulted)
	require.NotNil(t, res.Value)
	assert.Equal(t, 42.0, *res.Value)
	assert.Nil(t, res.Explanation)
	assert.Empty(t, res.Breakdown)
	assert.Equal(t, 0, later.calls)
	assert.Equal(t, map[string]any{"p": 42.0, "raw": nil, "top": nil}, res.Outputs)
}

func TestEvaluateMissingWithoutDefaultValue(t *testing.T) {
	sc := &model.Scorecard{
		Name:     "missing",
		Scorable: true,
		Characteristics: []model.Characteristic{
			characteristic("x", model.Attribute{
				Predicate:           predicate.Always,
				ComplexPartialScore: &model.ComplexPartialScore{Expression: expression.FieldRef{Field: "x"}},
			}),
		},
	}

	res, err := evaluate(t, sc, evalctx.Record{"x": nil})
	require.NoError(t, err)
	assert.True(t, res.Defaulted)
	assert.Nil(t, res.Value)
}

func TestEvaluateMissingBaselineIsInvalidFeature(t *testing.T) {
	second := &countingPredicate{result: predicate.True}
	sc := &model.Scorecard{
		Name:                "nobaseline",
		Scorable:            true,
		UseReasonCodes:      true,
		ReasonCodeAlgorithm: model.PointsAbove,
		Characteristics: []model.Characteristic{
			{Name: "a", BaselineScore: ptr(1), Attributes: []model.Attribute{literal(predicate.Always, 2, "R1")}},
			{Name: "b", Attributes: []model.Attribute{{Predicate: second, PartialScore: ptr(3), ReasonCode: "R2"}}},
		},
	}

	_, err := evaluate(t, sc, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, scoring.ErrInvalidFeature)
	assert.Contains(t, err.Error(), `characteristic "b"`)
	assert.Equal(t, 0, second.calls, "scanner must not run without a baseline")
}

func TestEvaluateFirstMatchWins(t *testing.T) {
	a1 := &countingPredicate{result: predicate.False}
	a2 := &countingPredicate{result: predicate.True}
	a3 := &countingPredicate{result: predicate.True}
	sc := &model.Scorecard{
		Name:     "first",
		Scorable: true,
		Characteristics: []model.Characteristic{
			characteristic("c",
				literal(a1, 1, ""),
				literal(a2, 2, ""),
				literal(a3, 3, ""),
			),
		},
	}

	res, err := evaluate(t, sc, nil)
	require.NoError(t, err)
	assert.Equal(t, 2.0, *res.Value)
	assert.Equal(t, 2, res.Breakdown[0].Attribute)
	assert.Equal(t, 1, a1.calls)
	assert.Equal(t, 1, a2.calls)
	assert.Equal(t, 0, a3.calls)
}

func TestEvaluateUnknownIsSkipped(t *testing.T) {
	sc := &model.Scorecard{
		Name:     "unknown",
		Scorable: true,
		Characteristics: []model.Characteristic{
			characteristic("age",
				literal(&predicate.Simple{Field: "age", Operator: predicate.OpLessThan, Value: "30"}, 10, ""),
				literal(predicate.Always, 1, ""),
			),
		},
	}

	res, err := evaluate(t, sc, evalctx.Record{})
	require.NoError(t, err)
	assert.Equal(t, 1.0, *res.Value)
}

func TestEvaluateOrderIndependentScore(t *testing.T) {
	chars := []model.Characteristic{
		characteristic("a", literal(predicate.Always, 1.5, "A")),
		characteristic("b", literal(predicate.Always, -4, "B")),
		characteristic("c", literal(predicate.Always, 7.25, "C")),
	}
	base := &model.Scorecard{
		Name:                "order",
		InitialScore:        100,
		Scorable:            true,
		UseReasonCodes:      true,
		ReasonCodeAlgorithm: model.PointsBelow,
		BaselineScore:       ptr(5),
		Characteristics:     chars,
	}
	reversed := *base
	reversed.Characteristics = []model.Characteristic{chars[2], chars[0], chars[1]}

	r1, err := evaluate(t, base, nil)
	require.NoError(t, err)
	r2, err := evaluate(t, &reversed, nil)
	require.NoError(t, err)

	assert.InDelta(t, 104.75, *r1.Value, 1e-9)
	assert.InDelta(t, *r1.Value, *r2.Value, 1e-9)
	assert.Equal(t, []string{"A", "B"}, r1.Explanation.Codes())
	assert.Equal(t, []string{"A", "B"}, r2.Explanation.Codes())
}

func TestEvaluateBaselineAndReasonCodePrecedence(t *testing.T) {
	sc := &model.Scorecard{
		Name:                "precedence",
		Scorable:            true,
		UseReasonCodes:      true,
		ReasonCodeAlgorithm: model.PointsBelow,
		BaselineScore:       ptr(100),
		Characteristics: []model.Characteristic{
			{
				Name:          "own",
				BaselineScore: ptr(20),
				ReasonCode:    "CHAR",
				Attributes:    []model.Attribute{literal(predicate.Always, 5, "ATTR")},
			},
			{
				Name:       "inherited",
				ReasonCode: "CHAR",
				Attributes: []model.Attribute{literal(predicate.Always, 40, "")},
			},
		},
	}

	res, err := evaluate(t, sc, nil)
	require.NoError(t, err)
	want := []scoring.ReasonCodePoints{
		{Code: "ATTR", Points: 15},
		{Code: "CHAR", Points: 60},
	}
	if diff := cmp.Diff(want, res.Explanation.ReasonCodes); diff != "" {
		t.Errorf("reason codes mismatch (-want +got):\n%s", diff)
	}
}

func TestEvaluateStructuralErrors(t *testing.T) {
	tests := []struct {
		name string
		sc   *model.Scorecard
		want error
	}{
		{
			name: "not scorable",
			sc: &model.Scorecard{
				Name:            "x",
				Characteristics: []model.Characteristic{characteristic("c", literal(predicate.Always, 1, ""))},
			},
			want: scoring.ErrInvalidResult,
		},
		{
			name: "attribute without predicate",
			sc: &model.Scorecard{
				Name:            "x",
				Scorable:        true,
				Characteristics: []model.Characteristic{characteristic("c", model.Attribute{PartialScore: ptr(1)})},
			},
			want: scoring.ErrInvalidFeature,
		},
		{
			name: "attribute with nil compound predicate",
			sc: &model.Scorecard{
				Name:     "x",
				Scorable: true,
				Characteristics: []model.Characteristic{characteristic("c",
					literal((*predicate.Compound)(nil), 1, ""))},
			},
			want: scoring.ErrInvalidFeature,
		},
		{
			name: "attribute with nil counting predicate",
			sc: &model.Scorecard{
				Name:     "x",
				Scorable: true,
				Characteristics: []model.Characteristic{characteristic("c",
					literal((*countingPredicate)(nil), 1, ""))},
			},
			want: scoring.ErrInvalidFeature,
		},
		{
			name: "matched attribute without score",
			sc: &model.Scorecard{
				Name:            "x",
				Scorable:        true,
				Characteristics: []model.Characteristic{characteristic("c", model.Attribute{Predicate: predicate.Always})},
			},
			want: scoring.ErrInvalidFeature,
		},
		{
			name: "complex score without expression",
			sc: &model.Scorecard{
				Name:     "x",
				Scorable: true,
				Characteristics: []model.Characteristic{characteristic("c", model.Attribute{
					Predicate:           predicate.Always,
					ComplexPartialScore: &model.ComplexPartialScore{},
				})},
			},
			want: scoring.ErrInvalidFeature,
		},
		{
			name: "matched attribute without reason code",
			sc: &model.Scorecard{
				Name:                "x",
				Scorable:            true,
				UseReasonCodes:      true,
				ReasonCodeAlgorithm: model.PointsAbove,
				BaselineScore:       ptr(0),
				Characteristics:     []model.Characteristic{characteristic("c", literal(predicate.Always, 1, ""))},
			},
			want: scoring.ErrInvalidFeature,
		},
		{
			name: "predicate failure",
			sc: &model.Scorecard{
				Name:            "x",
				Scorable:        true,
				Characteristics: []model.Characteristic{characteristic("c", literal(failingPredicate{}, 1, ""))},
			},
			want: scoring.ErrInvalidFeature,
		},
		{
			name: "unknown reason code algorithm",
			sc: &model.Scorecard{
				Name:                "x",
				Scorable:            true,
				UseReasonCodes:      true,
				ReasonCodeAlgorithm: "pointsSideways",
				BaselineScore:       ptr(0),
				Characteristics:     []model.Characteristic{characteristic("c", literal(predicate.Always, 1, "R"))},
			},
			want: scoring.ErrUnsupportedFeature,
		},
		{
			name: "classification",
			sc: &model.Scorecard{
				Name:            "x",
				Function:        model.FunctionClassification,
				Scorable:        true,
				Characteristics: []model.Characteristic{characteristic("c", literal(predicate.Always, 1, ""))},
			},
			want: scoring.ErrUnsupportedFeature,
		},
		{
			name: "classification not scorable",
			sc: &model.Scorecard{
				Name:            "x",
				Function:        model.FunctionClassification,
				Characteristics: []model.Characteristic{characteristic("c", literal(predicate.Always, 1, ""))},
			},
			want: scoring.ErrInvalidResult,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := evaluate(t, tt.sc, nil)
			require.Error(t, err)
			assert.Nil(t, res)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestEvaluatePredicateErrorIsWrapped(t *testing.T) {
	sc := &model.Scorecard{
		Name:            "x",
		Scorable:        true,
		Characteristics: []model.Characteristic{characteristic("c", literal(failingPredicate{}, 1, ""))},
	}
	_, err := evaluate(t, sc, nil)
	require.Error(t, err)

	var ee *scoring.EvaluationError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, `characteristic "c" attribute 1`, ee.Element)
	assert.EqualError(t, ee.Err, "boom")
}

func TestNewEvaluatorRejectsEmptyScorecard(t *testing.T) {
	_, err := scoring.NewEvaluator(&model.Scorecard{Name: "empty", Scorable: true})
	assert.ErrorIs(t, err, scoring.ErrInvalidFeature)

	_, err = scoring.NewEvaluator(nil)
	assert.Error(t, err)
}

func TestEvaluatorSummary(t *testing.T) {
	sc := twoCharacteristics(1, "R1")
	sc.Version = "3"
	ev, err := scoring.NewEvaluator(sc)
	require.NoError(t, err)
	assert.Equal(t, "Scorecard example@3 (regression, 2 characteristics)", ev.Summary())
	assert.Same(t, sc, ev.Model())
}

func TestEvaluateDeterministic(t *testing.T) {
	sc := &model.Scorecard{
		Name:                "det",
		Scorable:            true,
		UseReasonCodes:      true,
		ReasonCodeAlgorithm: model.PointsAbove,
		BaselineScore:       ptr(0),
		Characteristics: []model.Characteristic{
			characteristic("z", literal(predicate.Always, 1, "Z")),
			characteristic("a", literal(predicate.Always, 2, "A")),
			characteristic("m", literal(predicate.Always, 3, "M")),
			characteristic("z2", literal(predicate.Always, 4, "Z")),
		},
	}
	ev, err := scoring.NewEvaluator(sc)
	require.NoError(t, err)

	first, err := ev.Evaluate(nil)
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		again, err := ev.Evaluate(nil)
		require.NoError(t, err)
		if diff := cmp.Diff(first, again); diff != "" {
			t.Fatalf("run %d differs (-first +again):\n%s", i, diff)
		}
	}
	assert.Equal(t, []string{"Z", "A", "M"}, first.Explanation.Codes())
}
