package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/brunobiangulo/gosquit"
	"github.com/brunobiangulo/gosquit/resolver"
	"github.com/brunobiangulo/gosquit/store"
	"github.com/brunobiangulo/gosquit/template"
)

// maxCorpus bounds the records one POST /generate may ask for.
const maxCorpus = 10000

type handler struct {
	engine gosquit.Engine
	log    *zap.Logger
}

func newHandler(e gosquit.Engine, log *zap.Logger) *handler {
	return &handler{engine: e, log: log}
}

// POST /generate
// A body with "shape" returns one example; a body with "per_shape" runs a
// corpus.
func (h *handler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Minute)
	defer cancel()

	var req struct {
		Shape string `json:"shape,omitempty"`
		gosquit.CorpusRequest
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	if req.Shape != "" {
		annotate(w, zap.String("shape", req.Shape))
		ex, err := h.engine.Generate(ctx, template.Shape(req.Shape))
		if err != nil {
			h.fail(w, "generate", err)
			return
		}
		writeJSON(w, http.StatusOK, ex)
		return
	}

	total := 0
	for shape, n := range req.PerShape {
		if n < 0 {
			writeError(w, http.StatusBadRequest, "per_shape count for "+string(shape)+" must not be negative")
			return
		}
		total += n
	}
	if total == 0 {
		writeError(w, http.StatusBadRequest, "shape or per_shape is required")
		return
	}
	if total > maxCorpus {
		writeError(w, http.StatusBadRequest, "per_shape asks for too many records")
		return
	}

	res, err := h.engine.GenerateCorpus(ctx, req.CorpusRequest)
	if err != nil {
		h.fail(w, "generate corpus", err)
		return
	}
	annotate(w,
		zap.String("run", res.RunID),
		zap.Int("requested", total),
		zap.Int("records", len(res.Records)),
		zap.Int("duplicates", res.Duplicates))
	writeJSON(w, http.StatusOK, res)
}

// POST /resolve
func (h *handler) handleResolve(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text    string `json:"text,omitempty"`
		Mention string `json:"mention,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	switch {
	case req.Mention != "":
		m, err := h.engine.ResolveEntity(req.Mention)
		if err != nil {
			h.fail(w, "resolve", err)
			return
		}
		writeJSON(w, http.StatusOK, m)
	case req.Text != "":
		text, failed := h.engine.ResolveText(req.Text)
		if failed == nil {
			failed = []resolver.Unresolved{}
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"text":       text,
			"unresolved": failed,
		})
	default:
		writeError(w, http.StatusBadRequest, "text or mention is required")
	}
}

// GET /stats
func (h *handler) handleStats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Minute)
	defer cancel()

	st, err := h.engine.Stats(ctx)
	if err != nil {
		h.fail(w, "stats", err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// GET /templates/{shape}
func (h *handler) handleTemplates(w http.ResponseWriter, r *http.Request) {
	nums, err := h.engine.Templates(template.Shape(r.PathValue("shape")))
	if err != nil {
		h.fail(w, "templates", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"templates": nums,
	})
}

// GET /records?run=&shape=&q=&limit=&offset=
func (h *handler) handleRecords(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := store.RecordFilter{
		RunID:  q.Get("run"),
		Shape:  q.Get("shape"),
		Search: q.Get("q"),
		Limit:  100,
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 1000 {
			writeError(w, http.StatusBadRequest, "limit must be within [1, 1000]")
			return
		}
		f.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid offset")
			return
		}
		f.Offset = n
	}

	records, err := h.engine.Records(r.Context(), f)
	if err != nil {
		h.fail(w, "list records", err)
		return
	}
	annotate(w, zap.String("run", f.RunID), zap.String("shape", f.Shape), zap.Int("records", len(records)))
	if records == nil {
		records = []store.Record{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"records": records,
	})
}

// GET /runs
func (h *handler) handleRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := h.engine.Runs(r.Context())
	if err != nil {
		h.fail(w, "list runs", err)
		return
	}
	if runs == nil {
		runs = []store.Run{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"runs": runs,
	})
}

// GET /health
func (h *handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// fail maps engine errors to HTTP statuses.
func (h *handler) fail(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, gosquit.ErrUnknownShape), errors.Is(err, gosquit.ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, resolver.ErrNoMatch):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, gosquit.ErrStoreDisabled):
		writeError(w, http.StatusNotImplemented, "store disabled")
	case errors.Is(err, template.ErrNoPath), errors.Is(err, template.ErrPartOfSpeech):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		h.log.Error(op+" error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, op+" failed")
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
