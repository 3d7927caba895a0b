// Package registry records scorecard models and evaluations in Postgres.
package registry

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

var (
	// ErrNotFound is returned when a model or evaluation does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a model name and version are already registered.
	ErrConflict = errors.New("already exists")
)

// Service provides model and evaluation bookkeeping backed by Postgres.
type Service struct {
	db *sql.DB
}

// ModelRecord is a registered scorecard version.
type ModelRecord struct {
	ID                  string    `json:"id"`
	Name                string    `json:"name"`
	Version             string    `json:"version"`
	StorageRef          string    `json:"storage_ref"`
	CharacteristicCount int       `json:"characteristic_count"`
	UseReasonCodes      bool      `json:"use_reason_codes"`
	CreatedAt           time.Time `json:"created_at"`
}

// EvaluationRecord is a persisted evaluation outcome.
type EvaluationRecord struct {
	ID          string          `json:"id"`
	ModelID     string          `json:"model_id"`
	Value       *float64        `json:"value"`
	RawScore    *float64        `json:"raw_score"`
	Defaulted   bool            `json:"defaulted"`
	ReasonCodes json.RawMessage `json:"reason_codes"`
	Outputs     json.RawMessage `json:"outputs"`
	ErrorKind   *string         `json:"error_kind,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// NewService creates a new registry Service.
func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

const modelColumns = `id, name, version, storage_ref, characteristic_count, use_reason_codes, created_at`

func scanModel(row interface{ Scan(...any) error }, m *ModelRecord) error {
	return row.Scan(&m.ID, &m.Name, &m.Version, &m.StorageRef, &m.CharacteristicCount, &m.UseReasonCodes, &m.CreatedAt)
}

// RegisterModel inserts a model version. The ID is assigned here.
func (s *Service) RegisterModel(ctx context.Context, rec ModelRecord) (*ModelRecord, error) {
	m := &ModelRecord{}
	err := scanModel(s.db.QueryRowContext(ctx,
		`INSERT INTO models (id, name, version, storage_ref, characteristic_count, use_reason_codes)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING `+modelColumns,
		uuid.NewString(), rec.Name, rec.Version, rec.StorageRef, rec.CharacteristicCount, rec.UseReasonCodes,
	), m)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return nil, fmt.Errorf("register model %s@%s: %w", rec.Name, rec.Version, ErrConflict)
		}
		return nil, fmt.Errorf("register model %s@%s: %w", rec.Name, rec.Version, err)
	}
	return m, nil
}

// GetModel looks up a model version. An empty version selects the most
// recently registered one.
func (s *Service) GetModel(ctx context.Context, name, version string) (*ModelRecord, error) {
	var row *sql.Row
	if version == "" {
		row = s.db.QueryRowContext(ctx,
			`SELECT `+modelColumns+` FROM models WHERE name = $1
			 ORDER BY created_at DESC, id DESC LIMIT 1`,
			name,
		)
	} else {
		row = s.db.QueryRowContext(ctx,
			`SELECT `+modelColumns+` FROM models WHERE name = $1 AND version = $2`,
			name, version,
		)
	}

	m := &ModelRecord{}
	if err := scanModel(row, m); err != nil {
		return nil, fmt.Errorf("get model %s@%s: %w", name, version, notFound(err))
	}
	return m, nil
}

// GetModelByID looks up a model by ID.
func (s *Service) GetModelByID(ctx context.Context, id string) (*ModelRecord, error) {
	m := &ModelRecord{}
	err := scanModel(s.db.QueryRowContext(ctx,
		`SELECT `+modelColumns+` FROM models WHERE id = $1`, id,
	), m)
	if err != nil {
		return nil, fmt.Errorf("get model %s: %w", id, notFound(err))
	}
	return m, nil
}

// ListModels returns every registered model version, newest first.
func (s *Service) ListModels(ctx context.Context) ([]ModelRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+modelColumns+` FROM models ORDER BY name, created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list models: %w", err)
	}
	defer rows.Close()

	var models []ModelRecord
	for rows.Next() {
		var m ModelRecord
		if err := scanModel(rows, &m); err != nil {
			return nil, fmt.Errorf("scan model: %w", err)
		}
		models = append(models, m)
	}
	return models, rows.Err()
}

const evaluationColumns = `id, model_id, value, raw_score, defaulted, reason_codes, outputs, error_kind, created_at`

func scanEvaluation(row interface{ Scan(...any) error }, e *EvaluationRecord) error {
	var reasonCodes, outputs []byte
	if err := row.Scan(&e.ID, &e.ModelID, &e.Value, &e.RawScore, &e.Defaulted, &reasonCodes, &outputs, &e.ErrorKind, &e.CreatedAt); err != nil {
		return err
	}
	e.ReasonCodes = json.RawMessage(reasonCodes)
	e.Outputs = json.RawMessage(outputs)
	return nil
}

// RecordEvaluation inserts an evaluation. An empty ID is assigned here.
func (s *Service) RecordEvaluation(ctx context.Context, rec EvaluationRecord) (*EvaluationRecord, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	reasonCodes := rec.ReasonCodes
	if len(reasonCodes) == 0 {
		reasonCodes = json.RawMessage(`[]`)
	}
	outputs := rec.Outputs
	if len(outputs) == 0 {
		outputs = json.RawMessage(`{}`)
	}

	e := &EvaluationRecord{}
	err := scanEvaluation(s.db.QueryRowContext(ctx,
		`INSERT INTO evaluations (id, model_id, value, raw_score, defaulted, reason_codes, outputs, error_kind)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING `+evaluationColumns,
		rec.ID, rec.ModelID, rec.Value, rec.RawScore, rec.Defaulted,
		[]byte(reasonCodes), []byte(outputs), rec.ErrorKind,
	), e)
	if err != nil {
		return nil, fmt.Errorf("record evaluation for model %s: %w", rec.ModelID, err)
	}
	return e, nil
}

// GetEvaluation retrieves an evaluation by ID.
func (s *Service) GetEvaluation(ctx context.Context, id string) (*EvaluationRecord, error) {
	e := &EvaluationRecord{}
	err := scanEvaluation(s.db.QueryRowContext(ctx,
		`SELECT `+evaluationColumns+` FROM evaluations WHERE id = $1`, id,
	), e)
	if err != nil {
		return nil, fmt.Errorf("get evaluation %s: %w", id, notFound(err))
	}
	return e, nil
}

// ListEvaluations returns the latest evaluations of a model.
func (s *Service) ListEvaluations(ctx context.Context, modelID string, limit int) ([]EvaluationRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+evaluationColumns+` FROM evaluations WHERE model_id = $1
		 ORDER BY created_at DESC LIMIT $2`,
		modelID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list evaluations: %w", err)
	}
	defer rows.Close()

	var evals []EvaluationRecord
	for rows.Next() {
		var e EvaluationRecord
		if err := scanEvaluation(rows, &e); err != nil {
			return nil, fmt.Errorf("scan evaluation: %w", err)
		}
		evals = append(evals, e)
	}
	return evals, rows.Err()
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
