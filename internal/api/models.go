package api

import (
	"compress/gzip"
	"errors"
	"io"
	"net/http"
	"strconv"
)

// handleUploadModel handles POST /api/v1/models. The body is a scorecard
// YAML document, optionally gzip-encoded.
func (h *Handler) handleUploadModel(w http.ResponseWriter, r *http.Request) {
	data, err := h.readBody(w, r)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(data) == 0 {
		writeError(w, http.StatusBadRequest, "empty body")
		return
	}

	rec, err := h.svc.UploadModel(r.Context(), data)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (h *Handler) handleListModels(w http.ResponseWriter, r *http.Request) {
	models, err := h.svc.ListModels(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"models": models})
}

func (h *Handler) handleGetModel(w http.ResponseWriter, r *http.Request) {
	m, err := h.svc.GetModel(r.Context(), r.PathValue("name"), r.URL.Query().Get("version"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (h *Handler) handleListEvaluations(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 || n > 500 {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and 500")
			return
		}
		limit = n
	}

	evals, err := h.svc.ListEvaluations(r.Context(), r.PathValue("name"), r.URL.Query().Get("version"), limit)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"evaluations": evals})
}

func (h *Handler) handleGetEvaluation(w http.ResponseWriter, r *http.Request) {
	detail, err := h.svc.GetEvaluation(r.Context(), r.PathValue("evaluationID"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// readBody reads the request body with the size limit applied, decoding
// gzip when the client declares it.
func (h *Handler) readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	var body io.Reader = http.MaxBytesReader(w, r.Body, h.maxBody)
	if r.Header.Get("Content-Encoding") == "gzip" {
		gz, err := gzip.NewReader(body)
		if err != nil {
			return nil, errors.New("invalid gzip body: " + err.Error())
		}
		defer gz.Close()
		body = io.LimitReader(gz, h.maxBody)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, err
		}
		return nil, errors.New("failed to read body: " + err.Error())
	}
	return data, nil
}
