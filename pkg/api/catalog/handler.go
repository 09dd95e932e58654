package catalog

import (
	"encoding/json"
	"net/http"

	"tmts_oracle/pkg/core/metrics"
)

// Entry describes one metric for the dashboard's selectors.
type Entry struct {
	Name             string              `json:"name"`
	Group            string              `json:"group,omitempty"`
	Kind             metrics.Kind        `json:"kind"`
	Unit             string              `json:"unit,omitempty"`
	Timescales       []metrics.Timescale `json:"timescales"`
	DefaultTimescale metrics.Timescale   `json:"default_timescale"`
}

// Response lists the catalog.
type Response struct {
	Company string  `json:"company"`
	Metrics []Entry `json:"metrics"`
}

// Handler holds dependencies for catalog endpoints
type Handler struct {
	Catalog *metrics.Catalog
}

// NewHandler creates a new catalog handler
func NewHandler(c *metrics.Catalog) *Handler {
	return &Handler{Catalog: c}
}

func (h *Handler) HandleCatalog(w http.ResponseWriter, r *http.Request) {
	// Add CORS headers for local dev
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

	group := r.URL.Query().Get("group")
	resp := Response{Company: h.Catalog.Company, Metrics: []Entry{}}
	for _, m := range h.Catalog.Metrics {
		if group != "" && m.Group != group {
			continue
		}
		resp.Metrics = append(resp.Metrics, Entry{
			Name:             m.Name,
			Group:            m.Group,
			Kind:             m.Kind,
			Unit:             m.Unit,
			Timescales:       m.Timescales,
			DefaultTimescale: m.DefaultTimescale,
		})
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
