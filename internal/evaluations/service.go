// Package evaluations orchestrates model uploads and scoring for the
// cardscore service: registry lookups, compiled evaluator caching, result
// persistence, metrics and events.
package evaluations

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/cardscore/cardscore/internal/events"
	"github.com/cardscore/cardscore/internal/metrics"
	"github.com/cardscore/cardscore/internal/modelstore"
	"github.com/cardscore/cardscore/internal/registry"
	"github.com/cardscore/cardscore/pkg/evalctx"
	"github.com/cardscore/cardscore/pkg/model"
	"github.com/cardscore/cardscore/pkg/scoring"
)

var (
	// ErrInvalidModel wraps document parse and compile failures.
	ErrInvalidModel = errors.New("invalid model")
	// ErrBatchTooLarge is returned when a batch exceeds the configured limit.
	ErrBatchTooLarge = errors.New("batch too large")
)

// Registry is the model and evaluation bookkeeping the service needs.
// *registry.Service implements it.
type Registry interface {
	RegisterModel(ctx context.Context, rec registry.ModelRecord) (*registry.ModelRecord, error)
	GetModel(ctx context.Context, name, version string) (*registry.ModelRecord, error)
	GetModelByID(ctx context.Context, id string) (*registry.ModelRecord, error)
	ListModels(ctx context.Context) ([]registry.ModelRecord, error)
	RecordEvaluation(ctx context.Context, rec registry.EvaluationRecord) (*registry.EvaluationRecord, error)
	GetEvaluation(ctx context.Context, id string) (*registry.EvaluationRecord, error)
	ListEvaluations(ctx context.Context, modelID string, limit int) ([]registry.EvaluationRecord, error)
}

var _ Registry = (*registry.Service)(nil)

// Options configures a Service. Registry and Store are required.
type Options struct {
	Registry         Registry
	Store            modelstore.Store
	Publisher        events.Publisher
	Metrics          *metrics.Recorder
	Logger           zerolog.Logger
	CacheSize        int
	BatchConcurrency int
	MaxBatchSize     int
}

// Service uploads and evaluates scorecards.
type Service struct {
	registry         Registry
	store            modelstore.Store
	publisher        events.Publisher
	metrics          *metrics.Recorder
	logger           zerolog.Logger
	cache            *EvaluatorCache
	loads            singleflight.Group
	tracer           trace.Tracer
	batchConcurrency int
	maxBatchSize     int
	now              func() time.Time
}

// NewService creates a Service.
func NewService(opts Options) *Service {
	s := &Service{
		registry:         opts.Registry,
		store:            opts.Store,
		publisher:        opts.Publisher,
		metrics:          opts.Metrics,
		logger:           opts.Logger,
		cache:            NewEvaluatorCache(opts.CacheSize),
		tracer:           otel.Tracer("github.com/cardscore/cardscore/internal/evaluations"),
		batchConcurrency: opts.BatchConcurrency,
		maxBatchSize:     opts.MaxBatchSize,
		now:              time.Now,
	}
	if s.publisher == nil {
		s.publisher = events.Nop{}
	}
	if s.batchConcurrency <= 0 {
		s.batchConcurrency = 8
	}
	if s.maxBatchSize <= 0 {
		s.maxBatchSize = 1000
	}
	return s
}

// ScoreRequest asks for one record to be scored. An empty Version selects
// the latest registered version.
type ScoreRequest struct {
	Model   string
	Version string
	Record  evalctx.Record
	Persist bool
}

// Evaluation is the outcome of a scoring call.
type Evaluation struct {
	ID      string          `json:"evaluation_id,omitempty"` // set when persisted
	ModelID string          `json:"model_id"`
	Result  *scoring.Result `json:"result"`
}

// UploadModel parses, compiles, stores and registers a scorecard document.
func (s *Service) UploadModel(ctx context.Context, data []byte) (*registry.ModelRecord, error) {
	ctx, span := s.tracer.Start(ctx, "evaluations.UploadModel")
	defer span.End()

	sc, err := model.ParseScorecard(data)
	if err != nil {
		return nil, s.fail(span, fmt.Errorf("%w: %w", ErrInvalidModel, err))
	}
	if sc.Version == "" {
		return nil, s.fail(span, fmt.Errorf("%w: version is required", ErrInvalidModel))
	}
	ev, err := scoring.NewEvaluator(sc)
	if err != nil {
		return nil, s.fail(span, fmt.Errorf("%w: %w", ErrInvalidModel, err))
	}
	span.SetAttributes(
		attribute.String("cardscore.model", sc.Name),
		attribute.String("cardscore.version", sc.Version),
	)

	if _, err := s.registry.GetModel(ctx, sc.Name, sc.Version); err == nil {
		return nil, s.fail(span, fmt.Errorf("model %s@%s: %w", sc.Name, sc.Version, registry.ErrConflict))
	} else if !errors.Is(err, registry.ErrNotFound) {
		return nil, s.fail(span, err)
	}

	key, err := modelstore.ModelKey(sc.Name, sc.Version)
	if err != nil {
		return nil, s.fail(span, fmt.Errorf("%w: %w", ErrInvalidModel, err))
	}
	if err := s.store.PutModel(ctx, sc.Name, sc.Version, data); err != nil {
		return nil, s.fail(span, fmt.Errorf("store model: %w", err))
	}

	rec, err := s.registry.RegisterModel(ctx, registry.ModelRecord{
		Name:                sc.Name,
		Version:             sc.Version,
		StorageRef:          key,
		CharacteristicCount: len(sc.Characteristics),
		UseReasonCodes:      sc.UseReasonCodes,
	})
	if err != nil {
		return nil, s.fail(span, err)
	}
	s.cache.Put(rec.ID, ev)

	s.logger.Info().
		Str("model", rec.Name).
		Str("version", rec.Version).
		Str("model_id", rec.ID).
		Int("characteristics", rec.CharacteristicCount).
		Msg("model registered")

	s.publish(ctx, events.SubjectModelRegistered(rec.Name), events.ModelRegisteredEvent{
		ModelID:             rec.ID,
		Model:               rec.Name,
		Version:             rec.Version,
		CharacteristicCount: rec.CharacteristicCount,
		Timestamp:           s.now().UTC(),
	})
	return rec, nil
}

// Score evaluates one record.
func (s *Service) Score(ctx context.Context, req ScoreRequest) (*Evaluation, error) {
	ctx, span := s.tracer.Start(ctx, "evaluations.Score", trace.WithAttributes(
		attribute.String("cardscore.model", req.Model),
		attribute.String("cardscore.version", req.Version),
	))
	defer span.End()

	rec, ev, err := s.resolve(ctx, req.Model, req.Version)
	if err != nil {
		return nil, s.fail(span, err)
	}

	out, err := s.score(ctx, rec, ev, req.Record, req.Persist)
	if err != nil {
		return nil, s.fail(span, err)
	}
	span.SetAttributes(attribute.Bool("cardscore.defaulted", out.Result.Defaulted))
	span.SetStatus(codes.Ok, "")
	return out, nil
}

// GetModel returns a registered model. An empty version selects the latest.
func (s *Service) GetModel(ctx context.Context, name, version string) (*registry.ModelRecord, error) {
	return s.registry.GetModel(ctx, name, version)
}

// ListModels returns every registered model version.
func (s *Service) ListModels(ctx context.Context) ([]registry.ModelRecord, error) {
	return s.registry.ListModels(ctx)
}

// EvaluationDetail is a persisted evaluation with its model and full result.
type EvaluationDetail struct {
	registry.EvaluationRecord
	Model  *registry.ModelRecord `json:"model"`
	Result *scoring.Result       `json:"result,omitempty"`
}

// GetEvaluation loads a persisted evaluation. The full result is included
// when its blob is still available.
func (s *Service) GetEvaluation(ctx context.Context, id string) (*EvaluationDetail, error) {
	rec, err := s.registry.GetEvaluation(ctx, id)
	if err != nil {
		return nil, err
	}
	m, err := s.registry.GetModelByID(ctx, rec.ModelID)
	if err != nil {
		return nil, err
	}

	detail := &EvaluationDetail{EvaluationRecord: *rec, Model: m}
	data, err := s.store.GetResult(ctx, m.Name, rec.ID)
	switch {
	case err == nil:
		var res scoring.Result
		if err := json.Unmarshal(data, &res); err != nil {
			return nil, fmt.Errorf("decode result %s: %w", rec.ID, err)
		}
		detail.Result = &res
	case errors.Is(err, modelstore.ErrNotFound):
	default:
		s.logger.Warn().Err(err).Str("evaluation_id", rec.ID).Msg("result blob unavailable")
	}
	return detail, nil
}

// ListEvaluations returns recent evaluations of a model version.
func (s *Service) ListEvaluations(ctx context.Context, name, version string, limit int) ([]registry.EvaluationRecord, error) {
	m, err := s.registry.GetModel(ctx, name, version)
	if err != nil {
		return nil, err
	}
	return s.registry.ListEvaluations(ctx, m.ID, limit)
}

func (s *Service) resolve(ctx context.Context, name, version string) (*registry.ModelRecord, scoring.Evaluator, error) {
	rec, err := s.registry.GetModel(ctx, name, version)
	if err != nil {
		return nil, nil, err
	}
	ev, err := s.evaluator(ctx, rec)
	if err != nil {
		return nil, nil, err
	}
	return rec, ev, nil
}

// evaluator returns the compiled evaluator for a model, loading it from the
// store on a cache miss. Concurrent misses for one model share a single load.
func (s *Service) evaluator(ctx context.Context, rec *registry.ModelRecord) (scoring.Evaluator, error) {
	if ev, ok := s.cache.Get(rec.ID); ok {
		s.metrics.ObserveCache(true)
		return ev, nil
	}
	s.metrics.ObserveCache(false)

	v, err, _ := s.loads.Do(rec.ID, func() (any, error) {
		data, err := s.store.GetModel(ctx, rec.Name, rec.Version)
		if err != nil {
			return nil, fmt.Errorf("load model %s@%s: %w", rec.Name, rec.Version, err)
		}
		sc, err := model.ParseScorecard(data)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidModel, err)
		}
		ev, err := scoring.NewEvaluator(sc)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidModel, err)
		}
		s.cache.Put(rec.ID, ev)
		return ev, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(scoring.Evaluator), nil
}

func (s *Service) score(ctx context.Context, rec *registry.ModelRecord, ev scoring.Evaluator, record evalctx.Record, persist bool) (*Evaluation, error) {
	start := s.now()
	res, evalErr := ev.Evaluate(record)
	elapsed := s.now().Sub(start)

	outcome := events.OutcomeCompleted
	switch {
	case evalErr != nil:
		outcome = events.OutcomeFailed
	case res.Defaulted:
		outcome = events.OutcomeDefaulted
	}
	s.metrics.ObserveEvaluation(rec.Name, outcome, elapsed)

	event := events.EvaluationEvent{
		ModelID:   rec.ID,
		Model:     rec.Name,
		Version:   rec.Version,
		Outcome:   outcome,
		Timestamp: s.now().UTC(),
	}

	if evalErr != nil {
		kindName := errorKind(evalErr)
		event.ErrorKind = kindName
		event.Error = evalErr.Error()
		if persist {
			if saved, err := s.registry.RecordEvaluation(ctx, registry.EvaluationRecord{ModelID: rec.ID, ErrorKind: &kindName}); err != nil {
				s.logger.Error().Err(err).Str("model", rec.Name).Msg("persist failed evaluation")
			} else {
				event.EvaluationID = saved.ID
			}
		}
		s.logger.Debug().Err(evalErr).Str("model", rec.Name).Str("version", rec.Version).Msg("evaluation failed")
		s.publish(ctx, events.SubjectEvaluation(rec.Name, outcome), event)
		return nil, fmt.Errorf("score %s@%s: %w", rec.Name, rec.Version, evalErr)
	}

	reasonCodes := res.Explanation.Codes()
	s.metrics.ObserveReasonCodes(rec.Name, reasonCodes)
	event.Value = res.Value
	event.ReasonCodes = reasonCodes

	out := &Evaluation{ModelID: rec.ID, Result: res}
	if persist {
		id, err := s.persist(ctx, rec, res)
		if err != nil {
			return nil, err
		}
		out.ID = id
		event.EvaluationID = id
	}

	s.publish(ctx, events.SubjectEvaluation(rec.Name, outcome), event)
	return out, nil
}

func (s *Service) persist(ctx context.Context, rec *registry.ModelRecord, res *scoring.Result) (string, error) {
	var reasonCodes []scoring.ReasonCodePoints
	if res.Explanation != nil {
		reasonCodes = res.Explanation.ReasonCodes
	}
	codesJSON, err := json.Marshal(reasonCodes)
	if err != nil {
		return "", fmt.Errorf("encode reason codes: %w", err)
	}
	outputsJSON, err := json.Marshal(res.Outputs)
	if err != nil {
		return "", fmt.Errorf("encode outputs: %w", err)
	}

	// The blob goes first so a stored row never points at a missing object.
	id := uuid.NewString()
	blob, err := json.Marshal(res)
	if err != nil {
		return "", fmt.Errorf("encode result: %w", err)
	}
	if err := s.store.PutResult(ctx, rec.Name, id, blob); err != nil {
		return "", fmt.Errorf("store result: %w", err)
	}

	row := registry.EvaluationRecord{
		ID:          id,
		ModelID:     rec.ID,
		Value:       res.Value,
		Defaulted:   res.Defaulted,
		ReasonCodes: codesJSON,
		Outputs:     outputsJSON,
	}
	if !res.Defaulted {
		raw := res.RawScore
		row.RawScore = &raw
	}
	saved, err := s.registry.RecordEvaluation(ctx, row)
	if err != nil {
		return "", fmt.Errorf("persist evaluation: %w", err)
	}
	return saved.ID, nil
}

// errorKind names the scoring error kind, or "internal" for anything else.
func errorKind(err error) string {
	if kind, ok := scoring.KindOf(err); ok {
		return kind.String()
	}
	return "internal"
}

// publish never fails the caller; events are best effort.
func (s *Service) publish(ctx context.Context, subject string, data any) {
	if err := s.publisher.Publish(ctx, subject, data); err != nil {
		s.logger.Warn().Err(err).Str("subject", subject).Msg("publish event")
	}
}

func (s *Service) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
