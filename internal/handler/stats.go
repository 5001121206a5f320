package handler

import (
	"log/slog"
	"net/http"

	"github.com/studenthub/backend/internal/service"
)

// StatsHandler serves the public platform-wide aggregate.
type StatsHandler struct {
	stats  *service.StatsService
	logger *slog.Logger
}

// NewStatsHandler creates a StatsHandler.
func NewStatsHandler(stats *service.StatsService, logger *slog.Logger) *StatsHandler {
	return &StatsHandler{stats: stats, logger: logger}
}

// HandleOverview returns the global stats snapshot plus user counts.
//
// HTTP: GET /api/stats
// Auth: None (public)
func (h *StatsHandler) HandleOverview(w http.ResponseWriter, r *http.Request) {
	overview, err := h.stats.Overview(r.Context())
	if err != nil {
		h.logger.Error("stats overview failed", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, overview)
}
