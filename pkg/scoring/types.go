// Package scoring evaluates scorecard models. It walks characteristics in
// declared order, sums the matched partial scores and explains the result
// with reason codes.
package scoring

// Result is the complete output of evaluating one record.
// Immutable once computed.
type Result struct {
	Model   string `json:"model"`
	Version string `json:"version,omitempty"`
	Target  string `json:"target"`
	// Value is the transformed prediction. Nil when the model defaulted
	// without a default value.
	Value       *float64               `json:"value"`
	RawScore    float64                `json:"raw_score"`
	Defaulted   bool                   `json:"defaulted"` // an input needed for scoring was missing
	Explanation *Explanation           `json:"explanation,omitempty"`
	Breakdown   []CharacteristicResult `json:"breakdown,omitempty"`
	Outputs     map[string]any         `json:"outputs,omitempty"`
}

// CharacteristicResult records how one characteristic contributed.
type CharacteristicResult struct {
	Characteristic string   `json:"characteristic"`
	Attribute      int      `json:"attribute"` // 1-based index of the matched attribute
	PartialScore   float64  `json:"partial_score"`
	ReasonCode     string   `json:"reason_code,omitempty"`
	Baseline       *float64 `json:"baseline,omitempty"`
	Points         float64  `json:"points"` // signed reason-code delta, 0 without reason codes
}

// Explanation is the filtered reason-code list in first-seen order.
type Explanation struct {
	PredictedValue *float64           `json:"predicted_value"`
	ReasonCodes    []ReasonCodePoints `json:"reason_codes"`
}

// ReasonCodePoints is the accumulated weight of one reason code.
type ReasonCodePoints struct {
	Code   string  `json:"code"`
	Points float64 `json:"points"`
}
