package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/cardscore/cardscore/internal/evaluations"
	"github.com/cardscore/cardscore/pkg/evalctx"
)

// scoreRequest is the JSON body for POST /api/models/{name}/score.
type scoreRequest struct {
	Version string         `json:"version"`
	Record  evalctx.Record `json:"record"`
	Persist *bool          `json:"persist"`
}

// batchRequest is the JSON body for POST /api/models/{name}/batch.
type batchRequest struct {
	Version     string           `json:"version"`
	Records     []evalctx.Record `json:"records"`
	Concurrency int              `json:"concurrency"`
	Persist     *bool            `json:"persist"`
}

func (h *Handler) handleScore(w http.ResponseWriter, r *http.Request) {
	var req scoreRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	if req.Record == nil {
		writeError(w, http.StatusBadRequest, "record is required")
		return
	}

	out, err := h.svc.Score(r.Context(), evaluations.ScoreRequest{
		Model:   r.PathValue("name"),
		Version: req.Version,
		Record:  req.Record,
		Persist: h.persistFlag(req.Persist),
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handleBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	if len(req.Records) == 0 {
		writeError(w, http.StatusBadRequest, "records are required")
		return
	}

	res, err := h.svc.ScoreBatch(r.Context(), evaluations.BatchRequest{
		Model:       r.PathValue("name"),
		Version:     req.Version,
		Records:     req.Records,
		Concurrency: req.Concurrency,
		Persist:     h.persistFlag(req.Persist),
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) persistFlag(p *bool) bool {
	if p == nil {
		return h.persist
	}
	return *p
}

// decodeJSON decodes the body into v. Numbers stay json.Number so integer
// inputs keep their text. It writes the error response and returns false on
// failure.
func (h *Handler) decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	data, err := h.readBody(w, r)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return false
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}
