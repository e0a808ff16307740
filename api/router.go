// Package api serves a small JSON view of a running pipeline for debugging:
// held notes, sources, latency stats and Prometheus metrics.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/jsphweid/keystream/latency"
	"github.com/jsphweid/keystream/logging"
	"github.com/jsphweid/keystream/model"
	"github.com/jsphweid/keystream/pipeline"
	"github.com/jsphweid/keystream/source"
)

type handler struct {
	svc    *pipeline.Service
	logger *slog.Logger
}

func NewRouter(svc *pipeline.Service, logger *slog.Logger) http.Handler {
	h := &handler{svc: svc, logger: logging.OrDefault(logger)}

	router := mux.NewRouter().StrictSlash(true)
	router.HandleFunc("/notes", h.handleNotes).Methods(http.MethodGet)
	router.HandleFunc("/sources", h.handleSources).Methods(http.MethodGet)
	router.HandleFunc("/sources/{id}", h.handleSource).Methods(http.MethodGet)
	router.HandleFunc("/source", h.handleSelectSource).Methods(http.MethodPost)
	router.HandleFunc("/stats", h.handleStats).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.HandlerFor(svc.Registry(), promhttp.HandlerOpts{})).Methods(http.MethodGet)

	return cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Content-Type"},
	}).Handler(router)
}

func (h *handler) handleNotes(w http.ResponseWriter, r *http.Request) {
	notes := h.svc.ActiveNotes()
	if notes == nil {
		notes = []model.ActiveNote{}
	}
	h.writeJSON(w, http.StatusOK, model.NotesResponse{Notes: notes})
}

func (h *handler) handleSources(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.sourcesResponse())
}

func (h *handler) handleSource(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	src, ok := h.svc.Source(id)
	if !ok {
		h.writeError(w, http.StatusNotFound, errors.Wrapf(source.ErrUnknownSource, "%q", id))
		return
	}
	h.writeJSON(w, http.StatusOK, src)
}

func (h *handler) handleSelectSource(w http.ResponseWriter, r *http.Request) {
	var input model.SelectSourceRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.writeError(w, http.StatusBadRequest, errors.Wrap(err, "could not decode request body"))
		return
	}

	if err := h.svc.SelectSource(input.ID); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, source.ErrUnknownSource) {
			status = http.StatusNotFound
		}
		h.writeError(w, status, err)
		return
	}
	h.writeJSON(w, http.StatusOK, h.sourcesResponse())
}

func (h *handler) handleStats(w http.ResponseWriter, r *http.Request) {
	all := h.svc.Latency().All()
	res := model.StatsResponse{Operations: make(map[string]model.OperationStats, len(all))}
	for name, st := range all {
		res.Operations[name] = toOperationStats(st)
	}
	h.writeJSON(w, http.StatusOK, res)
}

func (h *handler) sourcesResponse() model.SourcesResponse {
	sources := h.svc.Sources()
	if sources == nil {
		sources = []model.Source{}
	}
	return model.SourcesResponse{Selected: h.svc.SelectedSource(), Sources: sources}
}

func (h *handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Warn("writing response", "error", err)
	}
}

func (h *handler) writeError(w http.ResponseWriter, status int, err error) {
	h.logger.Debug("request failed", "status", status, "error", err)
	h.writeJSON(w, status, model.ErrorResponse{Error: err.Error()})
}

func toOperationStats(st latency.Stats) model.OperationStats {
	return model.OperationStats{
		Count: st.Count,
		AvgMs: millis(st.Avg),
		MinMs: millis(st.Min),
		MaxMs: millis(st.Max),
		P95Ms: millis(st.P95),
	}
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
