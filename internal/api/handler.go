// Package api implements the cardscore REST API.
// It exposes model upload, scoring and evaluation lookups over the
// evaluations service.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/cardscore/cardscore/internal/evaluations"
	"github.com/cardscore/cardscore/internal/registry"
	"github.com/cardscore/cardscore/pkg/scoring"
)

// Evaluations is the service surface the handler calls.
// *evaluations.Service implements it.
type Evaluations interface {
	UploadModel(ctx context.Context, data []byte) (*registry.ModelRecord, error)
	GetModel(ctx context.Context, name, version string) (*registry.ModelRecord, error)
	ListModels(ctx context.Context) ([]registry.ModelRecord, error)
	Score(ctx context.Context, req evaluations.ScoreRequest) (*evaluations.Evaluation, error)
	ScoreBatch(ctx context.Context, req evaluations.BatchRequest) (*evaluations.BatchResult, error)
	GetEvaluation(ctx context.Context, id string) (*evaluations.EvaluationDetail, error)
	ListEvaluations(ctx context.Context, name, version string, limit int) ([]registry.EvaluationRecord, error)
}

var _ Evaluations = (*evaluations.Service)(nil)

// Options configures a Handler.
type Options struct {
	Logger           zerolog.Logger
	MaxBodyBytes     int64 // 0 means 10 MiB
	PersistByDefault bool
}

// Handler is the top-level API handler for the cardscore service.
type Handler struct {
	svc     Evaluations
	logger  zerolog.Logger
	maxBody int64
	persist bool
}

// NewHandler creates a new API handler.
func NewHandler(svc Evaluations, opts Options) *Handler {
	maxBody := opts.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = 10 << 20
	}
	return &Handler{
		svc:     svc,
		logger:  opts.Logger,
		maxBody: maxBody,
		persist: opts.PersistByDefault,
	}
}

// RegisterRoutes registers all API routes on the given ServeMux. Write
// endpoints are wrapped with auth.
func (h *Handler) RegisterRoutes(mux *http.ServeMux, auth func(http.Handler) http.Handler) {
	if auth == nil {
		auth = func(next http.Handler) http.Handler { return next }
	}

	// Write endpoints (auth-protected)
	mux.Handle("POST /api/v1/models", auth(http.HandlerFunc(h.handleUploadModel)))
	mux.Handle("POST /api/models/{name}/score", auth(http.HandlerFunc(h.handleScore)))
	mux.Handle("POST /api/models/{name}/batch", auth(http.HandlerFunc(h.handleBatch)))

	// Read endpoints
	mux.HandleFunc("GET /api/models", h.handleListModels)
	mux.HandleFunc("GET /api/models/{name}", h.handleGetModel)
	mux.HandleFunc("GET /api/models/{name}/evaluations", h.handleListEvaluations)
	mux.HandleFunc("GET /api/evaluations/{evaluationID}", h.handleGetEvaluation)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeServiceError maps service errors onto HTTP statuses. Scoring errors
// carry their kind in the body.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	if kind, ok := scoring.KindOf(err); ok {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{
			"error":      err.Error(),
			"error_kind": kind.String(),
		})
		return
	}

	var maxErr *http.MaxBytesError
	switch {
	case errors.Is(err, registry.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, registry.ErrConflict):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, evaluations.ErrInvalidModel), errors.Is(err, evaluations.ErrBatchTooLarge):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &maxErr):
		writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
	case errors.Is(err, context.Canceled):
		// client went away
	default:
		h.logger.Error().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
