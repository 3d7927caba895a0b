package events

import "time"

// EvaluationEvent is published after every scoring call.
type EvaluationEvent struct {
	EvaluationID string    `json:"evaluation_id,omitempty"`
	ModelID      string    `json:"model_id"`
	Model        string    `json:"model"`
	Version      string    `json:"version"`
	Outcome      string    `json:"outcome"`
	Value        *float64  `json:"value,omitempty"`
	ReasonCodes  []string  `json:"reason_codes,omitempty"`
	ErrorKind    string    `json:"error_kind,omitempty"`
	Error        string    `json:"error,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// ModelRegisteredEvent is published when a model version is uploaded.
type ModelRegisteredEvent struct {
	ModelID             string    `json:"model_id"`
	Model               string    `json:"model"`
	Version             string    `json:"version"`
	CharacteristicCount int       `json:"characteristic_count"`
	Timestamp           time.Time `json:"timestamp"`
}
