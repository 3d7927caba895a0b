package events

import "strings"

const (
	OutcomeCompleted = "completed"
	OutcomeDefaulted = "defaulted"
	OutcomeFailed    = "failed"

	StreamMaxAge = "168h" // 7 days
)

// StreamSubjects are the subjects captured by the evaluation stream.
var StreamSubjects = []string{"cardscore.evaluation.>", "cardscore.model.>"}

var subjectReplacer = strings.NewReplacer(".", "_", " ", "_", "*", "_", ">", "_")

// SubjectToken makes a model name safe to use as one subject token.
func SubjectToken(s string) string {
	if s == "" {
		return "_"
	}
	return subjectReplacer.Replace(s)
}

func SubjectEvaluation(model, outcome string) string {
	return "cardscore.evaluation." + SubjectToken(model) + "." + outcome
}

func SubjectModelRegistered(model string) string {
	return "cardscore.model." + SubjectToken(model) + ".registered"
}
