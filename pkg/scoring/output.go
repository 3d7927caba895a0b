package scoring

import "github.com/cardscore/cardscore/pkg/model"

// computeOutputs resolves the model's output fields against a finished result.
func computeOutputs(fields []model.OutputField, res *Result) map[string]any {
	if len(fields) == 0 {
		return nil
	}

	var ranked []ReasonCodePoints
	if res.Explanation != nil {
		ranked = res.Explanation.Ranked()
	}

	out := make(map[string]any, len(fields))
	for _, f := range fields {
		switch f.Feature {
		case model.FeaturePredictedValue:
			if res.Value != nil {
				out[f.Name] = *res.Value
			} else {
				out[f.Name] = nil
			}
		case model.FeatureRawScore:
			if res.Defaulted {
				out[f.Name] = nil
			} else {
				out[f.Name] = res.RawScore
			}
		case model.FeatureReasonCode:
			if f.Rank >= 1 && f.Rank <= len(ranked) {
				out[f.Name] = ranked[f.Rank-1].Code
			} else {
				out[f.Name] = nil
			}
		}
	}
	return out
}
