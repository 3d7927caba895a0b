package scoring

// ReasonCodeTable maps reason codes to summed points. Codes keep the order
// in which they were first seen. A table is never modified after FoldReasonCodes
// returns it.
type ReasonCodeTable struct {
	codes  []string
	points map[string]float64
}

// FoldReasonCodes sums the points of every breakdown entry that carries a
// reason code.
func FoldReasonCodes(breakdown []CharacteristicResult) ReasonCodeTable {
	t := ReasonCodeTable{points: make(map[string]float64)}
	for _, cr := range breakdown {
		if cr.ReasonCode == "" {
			continue
		}
		if _, seen := t.points[cr.ReasonCode]; !seen {
			t.codes = append(t.codes, cr.ReasonCode)
		}
		t.points[cr.ReasonCode] += cr.Points
	}
	return t
}

// Len returns the number of distinct codes.
func (t ReasonCodeTable) Len() int { return len(t.codes) }

// Points returns the sum for code.
func (t ReasonCodeTable) Points(code string) (float64, bool) {
	p, ok := t.points[code]
	return p, ok
}

// Entries returns all codes with their sums in first-seen order.
func (t ReasonCodeTable) Entries() []ReasonCodePoints {
	out := make([]ReasonCodePoints, 0, len(t.codes))
	for _, code := range t.codes {
		out = append(out, ReasonCodePoints{Code: code, Points: t.points[code]})
	}
	return out
}
