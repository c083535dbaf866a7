package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/coinarena/arenad/internal/domain"
	"github.com/coinarena/arenad/internal/engine"
	"github.com/coinarena/arenad/internal/service"
)

// BattleReader is the read-side service surface the battle handler needs.
type BattleReader interface {
	GetBattle(ctx context.Context, id int64) (service.BattleView, error)
	ListOpen(ctx context.Context, opts domain.ListOpts) ([]service.BattleView, error)
	ListFinalized(ctx context.Context, opts domain.ListOpts) ([]service.BattleView, error)
	Count(ctx context.Context) (int64, error)
	ListStakes(ctx context.Context, battleID int64) ([]domain.StakeEntry, error)
	ParticipantStakes(ctx context.Context, battleID int64, participant string) ([]domain.StakeEntry, error)
}

// BattleEngine is the mutation surface the battle handler needs. All writes
// go through the settlement engine.
type BattleEngine interface {
	CreateBattle(ctx context.Context, assetA, assetB string, duration time.Duration, fee int64, creator string) (int64, error)
	Deposit(ctx context.Context, battleID int64, asset string, quantity, declaredValue, fee int64, depositor string) error
	ClaimReward(ctx context.Context, battleID int64, claimant string, fee int64) (engine.ClaimResult, error)
}

// BattleHandler serves battle lifecycle endpoints.
type BattleHandler struct {
	reader BattleReader
	engine BattleEngine
	logger *slog.Logger
}

// NewBattleHandler creates a BattleHandler.
func NewBattleHandler(reader BattleReader, eng BattleEngine, logger *slog.Logger) *BattleHandler {
	return &BattleHandler{
		reader: reader,
		engine: eng,
		logger: logHandler(logger, "battle"),
	}
}

// ListBattles returns battles filtered by lifecycle state.
// GET /api/battles?status=open|finalized&limit=&offset=
func (h *BattleHandler) ListBattles(w http.ResponseWriter, r *http.Request) {
	opts := parseListOpts(r)

	var (
		battles []service.BattleView
		err     error
	)
	switch status := r.URL.Query().Get("status"); status {
	case "", "open":
		battles, err = h.reader.ListOpen(r.Context(), opts)
	case "finalized":
		battles, err = h.reader.ListFinalized(r.Context(), opts)
	default:
		writeError(w, http.StatusBadRequest, "status must be open or finalized")
		return
	}
	if err != nil {
		h.logger.Error("list battles failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to list battles")
		return
	}

	total, err := h.reader.Count(r.Context())
	if err != nil {
		h.logger.Error("count battles failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to list battles")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"items":  battles,
		"total":  total,
		"limit":  opts.Limit,
		"offset": opts.Offset,
	})
}

// createBattleRequest is the JSON body for opening a new battle.
type createBattleRequest struct {
	AssetA          string `json:"asset_a"`
	AssetB          string `json:"asset_b"`
	DurationSeconds int64  `json:"duration_seconds"`
	Fee             int64  `json:"fee"`
	Creator         string `json:"creator"`
}

// CreateBattle opens a new battle between two assets.
// POST /api/battles
func (h *BattleHandler) CreateBattle(w http.ResponseWriter, r *http.Request) {
	var req createBattleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	id, err := h.engine.CreateBattle(
		r.Context(),
		req.AssetA,
		req.AssetB,
		time.Duration(req.DurationSeconds)*time.Second,
		req.Fee,
		req.Creator,
	)
	if err != nil {
		status := errorStatus(err)
		if status == http.StatusInternalServerError {
			h.logger.Error("create battle failed", slog.String("error", err.Error()))
			writeError(w, status, "failed to create battle")
			return
		}
		writeError(w, status, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"battle_id": id})
}

// GetBattle returns one battle with its computed lifecycle state.
// GET /api/battles/{id}
func (h *BattleHandler) GetBattle(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid battle id")
		return
	}

	battle, err := h.reader.GetBattle(r.Context(), id)
	if err != nil {
		if status := errorStatus(err); status == http.StatusNotFound {
			writeError(w, status, "battle not found")
			return
		}
		h.logger.Error("get battle failed",
			slog.Int64("battle_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get battle")
		return
	}

	writeJSON(w, http.StatusOK, battle)
}

// ListStakes returns every ledger entry of a battle.
// GET /api/battles/{id}/stakes
func (h *BattleHandler) ListStakes(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid battle id")
		return
	}

	entries, err := h.reader.ListStakes(r.Context(), id)
	if err != nil {
		if status := errorStatus(err); status == http.StatusNotFound {
			writeError(w, status, "battle not found")
			return
		}
		h.logger.Error("list stakes failed",
			slog.Int64("battle_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list stakes")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"battle_id": id,
		"items":     entries,
	})
}

// ParticipantStakes returns one participant's per-side balances in a battle.
// GET /api/battles/{id}/stakes/{participant}
func (h *BattleHandler) ParticipantStakes(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid battle id")
		return
	}
	participant := pathParam(r, "participant")
	if participant == "" {
		writeError(w, http.StatusBadRequest, "missing participant")
		return
	}

	entries, err := h.reader.ParticipantStakes(r.Context(), id, participant)
	if err != nil {
		if status := errorStatus(err); status == http.StatusNotFound {
			writeError(w, status, "battle not found")
			return
		}
		h.logger.Error("participant stakes failed",
			slog.Int64("battle_id", id),
			slog.String("participant", participant),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list stakes")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"battle_id":   id,
		"participant": participant,
		"items":       entries,
	})
}

// depositRequest is the JSON body for staking assets into a battle.
type depositRequest struct {
	Asset         string `json:"asset"`
	Quantity      int64  `json:"quantity"`
	DeclaredValue int64  `json:"declared_value"`
	Fee           int64  `json:"fee"`
	Depositor     string `json:"depositor"`
}

// Deposit stakes assets on one side of an open battle.
// POST /api/battles/{id}/deposits
func (h *BattleHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid battle id")
		return
	}

	var req depositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	err = h.engine.Deposit(r.Context(), id, req.Asset, req.Quantity, req.DeclaredValue, req.Fee, req.Depositor)
	if err != nil {
		status := errorStatus(err)
		if status == http.StatusInternalServerError || status == http.StatusBadGateway {
			h.logger.Error("deposit failed",
				slog.Int64("battle_id", id),
				slog.String("depositor", req.Depositor),
				slog.String("error", err.Error()),
			)
			writeError(w, status, "deposit failed")
			return
		}
		writeError(w, status, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"battle_id": id,
		"asset":     req.Asset,
		"quantity":  req.Quantity,
	})
}

// claimRequest is the JSON body for claiming a winning-side reward.
type claimRequest struct {
	Claimant string `json:"claimant"`
	Fee      int64  `json:"fee"`
}

// Claim settles a closed battle if needed and pays out the claimant's share.
// POST /api/battles/{id}/claims
func (h *BattleHandler) Claim(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid battle id")
		return
	}

	var req claimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.engine.ClaimReward(r.Context(), id, req.Claimant, req.Fee)
	if err != nil {
		status := errorStatus(err)
		if status == http.StatusInternalServerError || status == http.StatusBadGateway {
			h.logger.Error("claim failed",
				slog.Int64("battle_id", id),
				slog.String("claimant", req.Claimant),
				slog.String("error", err.Error()),
			)
			writeError(w, status, "claim failed")
			return
		}
		writeError(w, status, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, result)
}
