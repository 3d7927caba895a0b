package scoring

import (
	"fmt"

	"github.com/cardscore/cardscore/pkg/evalctx"
	"github.com/cardscore/cardscore/pkg/model"
)

// Evaluator scores records against one compiled scorecard. Implementations
// are safe for concurrent use; every call owns its own evaluation context.
type Evaluator interface {
	Evaluate(record evalctx.Record) (*Result, error)
	Summary() string
	Model() *model.Scorecard
}

// NewEvaluator selects the evaluator for the scorecard's function.
func NewEvaluator(sc *model.Scorecard) (Evaluator, error) {
	if sc == nil {
		return nil, fmt.Errorf("scorecard is nil")
	}
	if len(sc.Characteristics) == 0 {
		return nil, invalidFeature(scorecardElement(sc), "scorecard has no characteristics", nil)
	}

	switch sc.Function {
	case model.FunctionRegression, "":
		return &regressionEvaluator{sc: sc}, nil
	default:
		return &unsupportedEvaluator{sc: sc}, nil
	}
}

type regressionEvaluator struct {
	sc *model.Scorecard
}

func (e *regressionEvaluator) Model() *model.Scorecard { return e.sc }

func (e *regressionEvaluator) Summary() string {
	return fmt.Sprintf("Scorecard %s (regression, %d characteristics)", displayName(e.sc), len(e.sc.Characteristics))
}

func (e *regressionEvaluator) Evaluate(record evalctx.Record) (*Result, error) {
	sc := e.sc
	if !sc.Scorable {
		return nil, invalidResult(scorecardElement(sc), "scorecard is not scorable")
	}

	ctx := evalctx.NewContext(sc.Dictionary, record)
	score := sc.InitialScore
	breakdown := make([]CharacteristicResult, 0, len(sc.Characteristics))

	for i := range sc.Characteristics {
		ch := &sc.Characteristics[i]
		element := characteristicElement(ch, i)

		baseline := ch.BaselineScore
		if baseline == nil {
			baseline = sc.BaselineScore
		}
		if sc.UseReasonCodes && baseline == nil {
			return nil, invalidFeature(element, "no baseline score for reason codes", nil)
		}

		scan, err := scanCharacteristic(ch, element, ctx)
		if err != nil {
			return nil, err
		}

		switch scan.outcome {
		case outcomeNoMatch:
			return nil, invalidResult(element, "no attribute matched")
		case outcomeMissing:
			return e.defaulted(), nil
		}

		score += scan.partialScore
		cr := CharacteristicResult{
			Characteristic: ch.Name,
			Attribute:      scan.attribute + 1,
			PartialScore:   scan.partialScore,
		}

		if sc.UseReasonCodes {
			attrElement := fmt.Sprintf("%s attribute %d", element, scan.attribute+1)
			if scan.reasonCode == "" {
				return nil, invalidFeature(attrElement, "no reason code", nil)
			}
			points, err := reasonCodePoints(sc.ReasonCodeAlgorithm, scan.partialScore, *baseline)
			if err != nil {
				return nil, unsupportedFeature(scorecardElement(sc), err.Error())
			}
			cr.ReasonCode = scan.reasonCode
			cr.Baseline = baseline
			cr.Points = points
		}
		breakdown = append(breakdown, cr)
	}

	value := applyTarget(sc.Target, score)
	res := &Result{
		Model:     sc.Name,
		Version:   sc.Version,
		Target:    sc.TargetField(),
		Value:     &value,
		RawScore:  score,
		Breakdown: breakdown,
	}
	if sc.UseReasonCodes {
		res.Explanation = BuildExplanation(FoldReasonCodes(breakdown), res.Value)
	}
	res.Outputs = computeOutputs(sc.Outputs, res)
	return res, nil
}

func (e *regressionEvaluator) defaulted() *Result {
	res := &Result{
		Model:     e.sc.Name,
		Version:   e.sc.Version,
		Target:    e.sc.TargetField(),
		Value:     defaultPrediction(e.sc.Target),
		Defaulted: true,
	}
	res.Outputs = computeOutputs(e.sc.Outputs, res)
	return res
}

func reasonCodePoints(alg model.ReasonCodeAlgorithm, partial, baseline float64) (float64, error) {
	switch alg {
	case model.PointsAbove:
		return partial - baseline, nil
	case model.PointsBelow:
		return baseline - partial, nil
	default:
		return 0, fmt.Errorf("reason code algorithm %q", alg)
	}
}

// unsupportedEvaluator stands in for functions other than regression.
type unsupportedEvaluator struct {
	sc *model.Scorecard
}

func (e *unsupportedEvaluator) Model() *model.Scorecard { return e.sc }

func (e *unsupportedEvaluator) Summary() string {
	return fmt.Sprintf("Scorecard %s (%s, unsupported)", displayName(e.sc), e.sc.Function)
}

func (e *unsupportedEvaluator) Evaluate(evalctx.Record) (*Result, error) {
	if !e.sc.Scorable {
		return nil, invalidResult(scorecardElement(e.sc), "scorecard is not scorable")
	}
	return nil, unsupportedFeature(scorecardElement(e.sc), fmt.Sprintf("function %q", e.sc.Function))
}

func displayName(sc *model.Scorecard) string {
	if sc.Version != "" {
		return sc.Name + "@" + sc.Version
	}
	return sc.Name
}

func scorecardElement(sc *model.Scorecard) string {
	return fmt.Sprintf("scorecard %q", sc.Name)
}

func characteristicElement(ch *model.Characteristic, i int) string {
	if ch.Name != "" {
		return fmt.Sprintf("characteristic %q", ch.Name)
	}
	return fmt.Sprintf("characteristic %d", i+1)
}
