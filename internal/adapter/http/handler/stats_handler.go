package handler

import (
	"net/http"

	"github.com/iho/journalbot/internal/usecase"
)

// StatsHandler exposes processing totals since startup.
type StatsHandler struct {
	stats *usecase.StatsCollector
}

// NewStatsHandler creates a new StatsHandler.
func NewStatsHandler(stats *usecase.StatsCollector) *StatsHandler {
	return &StatsHandler{stats: stats}
}

// Get returns the current stats snapshot.
func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.stats.Snapshot())
}
