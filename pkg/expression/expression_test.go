package expression

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardscore/cardscore/pkg/evalctx"
)

func testDict(t *testing.T) *evalctx.Dictionary {
	t.Helper()
	d, err := evalctx.NewDictionary(
		evalctx.Field{Name: "income", Type: evalctx.TypeDouble},
		evalctx.Field{Name: "months", Type: evalctx.TypeInteger},
		evalctx.Field{Name: "state", Type: evalctx.TypeString},
	)
	require.NoError(t, err)
	return d
}

func TestConstant(t *testing.T) {
	v, ok, err := Constant{Value: 12.5}.Evaluate(nil)
	require.NoError(t, err)
	require.True(t, ok)
	f, _ := v.Float64()
	assert.Equal(t, 12.5, f)
}

func TestFieldRef(t *testing.T) {
	d := testDict(t)

	v, ok, err := FieldRef{Field: "income"}.Evaluate(evalctx.NewContext(d, evalctx.Record{"income": 100}))
	require.NoError(t, err)
	require.True(t, ok)
	f, _ := v.Float64()
	assert.Equal(t, 100.0, f)

	_, ok, err = FieldRef{Field: "income"}.Evaluate(evalctx.NewContext(d, evalctx.Record{}))
	require.NoError(t, err)
	assert.False(t, ok)

	zero := 0.0
	v, ok, err = FieldRef{Field: "income", MapMissingTo: &zero}.Evaluate(evalctx.NewContext(d, evalctx.Record{}))
	require.NoError(t, err)
	require.True(t, ok)
	f, _ = v.Float64()
	assert.Equal(t, 0.0, f)

	_, _, err = FieldRef{Field: "state"}.Evaluate(evalctx.NewContext(d, evalctx.Record{"state": "CA"}))
	assert.Error(t, err)
}

func TestFormula(t *testing.T) {
	d := testDict(t)
	f, err := NewFormula("income / 1000 * 0.5 + months", d)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"income", "months"}, f.Fields)

	v, ok, err := f.Evaluate(evalctx.NewContext(d, evalctx.Record{"income": 4000, "months": 3}))
	require.NoError(t, err)
	require.True(t, ok)
	got, _ := v.Float64()
	assert.InDelta(t, 5.0, got, 1e-9)
}

func TestFormulaMissingInput(t *testing.T) {
	d := testDict(t)
	f, err := NewFormula("income * 2", d)
	require.NoError(t, err)

	_, ok, err := f.Evaluate(evalctx.NewContext(d, evalctx.Record{"months": 1}))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFormulaWithoutDictionary(t *testing.T) {
	f, err := NewFormula("a + b", nil)
	require.NoError(t, err)

	v, ok, err := f.Evaluate(evalctx.NewContext(nil, evalctx.Record{"a": 1.5, "b": 2}))
	require.NoError(t, err)
	require.True(t, ok)
	got, _ := v.Float64()
	assert.Equal(t, 3.5, got)
}

func TestFormulaErrors(t *testing.T) {
	d := testDict(t)

	_, err := NewFormula("income *", d)
	assert.Error(t, err)

	_, err = NewFormula("salary * 2", d)
	assert.Error(t, err)

	f, err := NewFormula("state", d)
	require.NoError(t, err)
	_, _, err = f.Evaluate(evalctx.NewContext(d, evalctx.Record{"state": "CA"}))
	assert.Error(t, err, "non-numeric result")
}

func TestFormulaNonFiniteResult(t *testing.T) {
	d := testDict(t)

	tests := []struct {
		name   string
		source string
		rec    evalctx.Record
	}{
		{name: "division by zero", source: "income / 0.0", rec: evalctx.Record{"income": 4000.0}},
		{name: "zero over zero", source: "income / income", rec: evalctx.Record{"income": 0.0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := NewFormula(tt.source, d)
			require.NoError(t, err)

			_, ok, err := f.Evaluate(evalctx.NewContext(d, tt.rec))
			require.Error(t, err)
			assert.False(t, ok)
			assert.Contains(t, err.Error(), "produced")
		})
	}
}
