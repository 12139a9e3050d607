package api

import (
	"context"
	"net/http"

	service "github.com/okian/leadscore/internal/app"
)

// StatsProvider defines the interface for getting service statistics.
type StatsProvider interface {
	GetStats(ctx context.Context) service.Stats
}

// StatsHandler handles stats requests.
type StatsHandler struct {
	statsProvider StatsProvider
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(statsProvider StatsProvider) *StatsHandler {
	return &StatsHandler{statsProvider: statsProvider}
}

// HandleStats handles GET /stats requests.
func (h *StatsHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r, "api.stats") {
		return
	}
	writeJSON(w, http.StatusOK, h.statsProvider.GetStats(r.Context()))
}
