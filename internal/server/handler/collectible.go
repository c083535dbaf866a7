package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/coinarena/arenad/internal/domain"
	"github.com/coinarena/arenad/internal/service"
)

// CollectibleService is the service surface the collectible handler needs.
type CollectibleService interface {
	GetCollectible(ctx context.Context, id int64) (service.CollectibleView, error)
	ListByOwner(ctx context.Context, owner string, opts domain.ListOpts) ([]service.CollectibleView, error)
	Count(ctx context.Context) (int64, error)
}

// CollectibleHandler serves victory collectible endpoints.
type CollectibleHandler struct {
	service CollectibleService
	logger  *slog.Logger
}

// NewCollectibleHandler creates a CollectibleHandler.
func NewCollectibleHandler(service CollectibleService, logger *slog.Logger) *CollectibleHandler {
	return &CollectibleHandler{
		service: service,
		logger:  logHandler(logger, "collectible"),
	}
}

// GetCollectible returns one collectible by issuance id.
// GET /api/collectibles/{id}
func (h *CollectibleHandler) GetCollectible(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid collectible id")
		return
	}

	c, err := h.service.GetCollectible(r.Context(), id)
	if err != nil {
		if status := errorStatus(err); status == http.StatusNotFound {
			writeError(w, status, "collectible not found")
			return
		}
		h.logger.Error("get collectible failed",
			slog.Int64("collectible_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get collectible")
		return
	}

	writeJSON(w, http.StatusOK, c)
}

// ListByOwner returns the collectibles held by a participant, newest first.
// GET /api/participants/{participant}/collectibles
func (h *CollectibleHandler) ListByOwner(w http.ResponseWriter, r *http.Request) {
	owner := pathParam(r, "participant")
	if owner == "" {
		writeError(w, http.StatusBadRequest, "missing participant")
		return
	}
	opts := parseListOpts(r)

	items, err := h.service.ListByOwner(r.Context(), owner, opts)
	if err != nil {
		h.logger.Error("list collectibles failed",
			slog.String("owner", owner),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list collectibles")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"owner":  owner,
		"items":  items,
		"limit":  opts.Limit,
		"offset": opts.Offset,
	})
}
