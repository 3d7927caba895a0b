package scoring

import "sort"

// BuildExplanation drops codes whose sum is negative and keeps the rest in
// first-seen order. Zero sums are kept.
func BuildExplanation(table ReasonCodeTable, predicted *float64) *Explanation {
	expl := &Explanation{
		PredictedValue: predicted,
		ReasonCodes:    []ReasonCodePoints{},
	}
	for _, e := range table.Entries() {
		if e.Points < 0 {
			continue
		}
		expl.ReasonCodes = append(expl.ReasonCodes, e)
	}
	return expl
}

// Ranked returns a copy of the reason codes ordered by points, highest
// first. Ties keep first-seen order.
func (e *Explanation) Ranked() []ReasonCodePoints {
	if e == nil {
		return nil
	}
	ranked := make([]ReasonCodePoints, len(e.ReasonCodes))
	copy(ranked, e.ReasonCodes)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Points > ranked[j].Points
	})
	return ranked
}

// Codes returns the reason codes in first-seen order.
func (e *Explanation) Codes() []string {
	if e == nil {
		return nil
	}
	codes := make([]string, len(e.ReasonCodes))
	for i, rc := range e.ReasonCodes {
		codes[i] = rc.Code
	}
	return codes
}
