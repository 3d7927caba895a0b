package scoring_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardscore/cardscore/pkg/evalctx"
	"github.com/cardscore/cardscore/pkg/model"
	"github.com/cardscore/cardscore/pkg/scoring"
)

func loadCredit(t *testing.T) scoring.Evaluator {
	t.Helper()
	sc, err := model.LoadScorecard("../model/testdata/credit.yaml")
	require.NoError(t, err)
	ev, err := scoring.NewEvaluator(sc)
	require.NoError(t, err)
	return ev
}

func TestCreditScorecard(t *testing.T) {
	ev := loadCredit(t)

	tests := []struct {
		name    string
		record  evalctx.Record
		raw     float64
		codes   []scoring.ReasonCodePoints
		outputs map[string]any
	}{
		{
			name:   "young high income north",
			record: evalctx.Record{"age": 25, "income": 80000.0, "region": "north"},
			raw:    35,
			codes: []scoring.ReasonCodePoints{
				{Code: "YOUNG", Points: 15},
				{Code: "INC", Points: 7},
				{Code: "REG", Points: 8},
			},
			outputs: map[string]any{"final": 35.0, "top_reason": "YOUNG"},
		},
		{
			name:   "older without income",
			record: evalctx.Record{"age": 40, "region": "south"},
			raw:    38,
			codes: []scoring.ReasonCodePoints{
				{Code: "INC", Points: 15},
				{Code: "REG", Points: 17},
			},
			outputs: map[string]any{"final": 38.0, "top_reason": "REG"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := ev.Evaluate(tt.record)
			require.NoError(t, err)
			assert.Equal(t, "risk", res.Target)
			assert.InDelta(t, tt.raw, res.RawScore, 1e-9)
			if diff := cmp.Diff(tt.codes, res.Explanation.ReasonCodes); diff != "" {
				t.Errorf("reason codes mismatch (-want +got):\n%s", diff)
			}
			assert.Equal(t, tt.outputs, res.Outputs)
		})
	}
}

func TestCreditScorecardMissingAge(t *testing.T) {
	ev := loadCredit(t)

	_, err := ev.Evaluate(evalctx.Record{"age": -1, "income": 1000.0})
	require.Error(t, err)
	assert.ErrorIs(t, err, scoring.ErrInvalidResult)
	assert.Contains(t, err.Error(), `characteristic "age_band"`)
}

func TestEvaluatorConcurrentUse(t *testing.T) {
	ev := loadCredit(t)
	want, err := ev.Evaluate(evalctx.Record{"age": 25, "income": 80000.0, "region": "north"})
	require.NoError(t, err)

	done := make(chan *scoring.Result, 16)
	for i := 0; i < cap(done); i++ {
		go func() {
			res, err := ev.Evaluate(evalctx.Record{"age": 25, "income": 80000.0, "region": "north"})
			if err != nil {
				done <- nil
				return
			}
			done <- res
		}()
	}
	for i := 0; i < cap(done); i++ {
		got := <-done
		require.NotNil(t, got)
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("concurrent result differs:\n%s", diff)
		}
	}
}
