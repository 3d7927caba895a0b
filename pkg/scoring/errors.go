package scoring

import (
	"errors"
	"fmt"
)

// Kind classifies evaluation failures.
type Kind int

const (
	// InvalidFeature is a structural defect found while evaluating.
	InvalidFeature Kind = iota + 1
	// InvalidResult means a sound model could not produce a score.
	InvalidResult
	// UnsupportedFeature is a declared mode this evaluator does not implement.
	UnsupportedFeature
)

func (k Kind) String() string {
	switch k {
	case InvalidFeature:
		return "invalid-feature"
	case InvalidResult:
		return "invalid-result"
	case UnsupportedFeature:
		return "unsupported-feature"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Sentinels for errors.Is.
var (
	ErrInvalidFeature     = errors.New("invalid feature")
	ErrInvalidResult      = errors.New("invalid result")
	ErrUnsupportedFeature = errors.New("unsupported feature")
)

// EvaluationError aborts an evaluation. No partial score accompanies it.
type EvaluationError struct {
	Kind    Kind
	Element string // model element at fault, e.g. `characteristic "age"`
	Reason  string
	Err     error
}

func (e *EvaluationError) Error() string {
	msg := fmt.Sprintf("%s: %s: %s", e.Kind, e.Element, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *EvaluationError) Unwrap() error { return e.Err }

func (e *EvaluationError) Is(target error) bool {
	switch target {
	case ErrInvalidFeature:
		return e.Kind == InvalidFeature
	case ErrInvalidResult:
		return e.Kind == InvalidResult
	case ErrUnsupportedFeature:
		return e.Kind == UnsupportedFeature
	}
	return false
}

// KindOf returns the kind of the first EvaluationError in err's chain.
func KindOf(err error) (Kind, bool) {
	var ee *EvaluationError
	if errors.As(err, &ee) {
		return ee.Kind, true
	}
	return 0, false
}

func invalidFeature(element, reason string, cause error) error {
	return &EvaluationError{Kind: InvalidFeature, Element: element, Reason: reason, Err: cause}
}

func invalidResult(element, reason string) error {
	return &EvaluationError{Kind: InvalidResult, Element: element, Reason: reason}
}

func unsupportedFeature(element, reason string) error {
	return &EvaluationError{Kind: UnsupportedFeature, Element: element, Reason: reason}
}
