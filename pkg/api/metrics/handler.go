package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phuslu/log"

	core "tmts_oracle/pkg/core/metrics"
	"tmts_oracle/pkg/core/report"
)

// RequestTimeout bounds a whole metric request, across all of its fetches.
const RequestTimeout = 30 * time.Second

// Response is the JSON body of a metric request.
type Response struct {
	Metric    string         `json:"metric"`
	Timescale core.Timescale `json:"timescale"`
	Unit      string         `json:"unit,omitempty"`
	Data      *core.Table    `json:"data"`
}

// ErrorResponse is returned with every non-2xx status.
type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id"`
}

// Handler serves computed metrics to the dashboard.
type Handler struct {
	Engine *core.Engine
}

// NewHandler creates a new metrics handler
func NewHandler(engine *core.Engine) *Handler {
	return &Handler{Engine: engine}
}

// Register mounts the metric routes.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/metrics/{name}", h.HandleMetric)
	mux.HandleFunc("GET /api/forecast", h.HandleForecast)
}

// HandleMetric serves GET /api/metrics/{name}?timescale=QoQ&format=json|markdown|html.
func (h *Handler) HandleMetric(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, r.PathValue("name"))
}

// HandleForecast serves the catalog's projection entry.
func (h *Handler) HandleForecast(w http.ResponseWriter, r *http.Request) {
	for _, m := range h.Engine.Catalog().Metrics {
		if m.Kind == core.KindProjection {
			h.serve(w, r, m.Name)
			return
		}
	}
	writeError(w, "", core.ErrUnknownMetric)
}

func (h *Handler) serve(w http.ResponseWriter, r *http.Request, name string) {
	requestID := uuid.NewString()
	w.Header().Set("X-Request-ID", requestID)
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

	spec, err := h.Engine.Catalog().Lookup(name)
	if err != nil {
		writeError(w, requestID, err)
		return
	}
	ts := spec.DefaultTimescale
	if raw := r.URL.Query().Get("timescale"); raw != "" {
		if ts, err = core.ParseTimescale(raw); err != nil {
			writeError(w, requestID, err)
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), RequestTimeout)
	defer cancel()

	start := time.Now()
	table, err := h.Engine.Compute(ctx, name, ts)
	if err != nil {
		writeError(w, requestID, err)
		return
	}
	log.Info().Str("request_id", requestID).Str("metric", name).Str("timescale", string(ts)).
		Dur("elapsed", time.Since(start)).Msg("metric served")

	switch strings.ToLower(r.URL.Query().Get("format")) {
	case "markdown", "md":
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		w.Write([]byte(report.Markdown(table, spec.Unit)))
	case "html":
		out, err := report.HTML(table, spec.Unit)
		if err != nil {
			writeError(w, requestID, err)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(out))
	default:
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(Response{Metric: name, Timescale: ts, Unit: spec.Unit, Data: table})
	}
}

// StatusFor maps engine errors to HTTP status codes.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrInvalidArgument), errors.Is(err, core.ErrParse):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrUnknownMetric):
		return http.StatusNotFound
	case errors.Is(err, core.ErrNotImplemented):
		return http.StatusNotImplemented
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, requestID string, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		log.Error().Str("request_id", requestID).Err(err).Msg("metric request failed")
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{Error: err.Error(), RequestID: requestID})
}
