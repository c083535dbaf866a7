package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/coinarena/arenad/internal/domain"
)

// StatsService is the service surface the stats handler needs.
type StatsService interface {
	GetStats(ctx context.Context, participant string) (domain.ParticipantStats, error)
}

// StatsHandler serves participant statistics endpoints.
type StatsHandler struct {
	service StatsService
	logger  *slog.Logger
}

// NewStatsHandler creates a StatsHandler.
func NewStatsHandler(service StatsService, logger *slog.Logger) *StatsHandler {
	return &StatsHandler{
		service: service,
		logger:  logHandler(logger, "stats"),
	}
}

// GetStats returns a participant's cumulative wins, participations, and
// rewards. Unknown participants report zeroed counters.
// GET /api/participants/{participant}/stats
func (h *StatsHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	participant := pathParam(r, "participant")
	if participant == "" {
		writeError(w, http.StatusBadRequest, "missing participant")
		return
	}

	stats, err := h.service.GetStats(r.Context(), participant)
	if err != nil {
		h.logger.Error("get stats failed",
			slog.String("participant", participant),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get stats")
		return
	}

	writeJSON(w, http.StatusOK, stats)
}
