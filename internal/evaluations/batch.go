package evaluations

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/cardscore/cardscore/pkg/evalctx"
	"github.com/cardscore/cardscore/pkg/scoring"
)

// BatchRequest scores many records against one model version.
// Concurrency <= 0 uses the service default.
type BatchRequest struct {
	Model       string
	Version     string
	Records     []evalctx.Record
	Concurrency int
	Persist     bool
}

// BatchItem is the outcome for one record, in input order. Exactly one of
// Result and Error is set.
type BatchItem struct {
	Index        int             `json:"index"`
	EvaluationID string          `json:"evaluation_id,omitempty"`
	Result       *scoring.Result `json:"result,omitempty"`
	Error        string          `json:"error,omitempty"`
	ErrorKind    string          `json:"error_kind,omitempty"`
}

// BatchResult holds the per-record items and a count of failures.
type BatchResult struct {
	ModelID string      `json:"model_id"`
	Items   []BatchItem `json:"items"`
	Failed  int         `json:"failed"`
}

// ScoreBatch evaluates every record. A record that fails to score does not
// abort the batch; its item carries the error instead.
func (s *Service) ScoreBatch(ctx context.Context, req BatchRequest) (*BatchResult, error) {
	ctx, span := s.tracer.Start(ctx, "evaluations.ScoreBatch", trace.WithAttributes(
		attribute.String("cardscore.model", req.Model),
		attribute.Int("cardscore.batch_size", len(req.Records)),
	))
	defer span.End()

	if len(req.Records) > s.maxBatchSize {
		return nil, s.fail(span, fmt.Errorf("%w: %d records, limit %d", ErrBatchTooLarge, len(req.Records), s.maxBatchSize))
	}

	rec, ev, err := s.resolve(ctx, req.Model, req.Version)
	if err != nil {
		return nil, s.fail(span, err)
	}
	s.metrics.ObserveBatch(len(req.Records))

	limit := req.Concurrency
	if limit <= 0 || limit > s.batchConcurrency {
		limit = s.batchConcurrency
	}

	items := make([]BatchItem, len(req.Records))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, record := range req.Records {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			item := BatchItem{Index: i}
			out, err := s.score(gctx, rec, ev, record, req.Persist)
			if err != nil {
				item.Error = err.Error()
				item.ErrorKind = errorKind(err)
			} else {
				item.EvaluationID = out.ID
				item.Result = out.Result
			}
			items[i] = item
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, s.fail(span, err)
	}

	res := &BatchResult{ModelID: rec.ID, Items: items}
	for _, it := range items {
		if it.Error != "" {
			res.Failed++
		}
	}
	span.SetAttributes(attribute.Int("cardscore.batch_failed", res.Failed))
	span.SetStatus(codes.Ok, "")

	s.logger.Info().
		Str("model", rec.Name).
		Str("version", rec.Version).
		Int("records", len(items)).
		Int("failed", res.Failed).
		Msg("batch scored")
	return res, nil
}
