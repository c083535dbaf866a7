package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
)

// FeeService is the service surface the fee handler needs.
type FeeService interface {
	Balance(ctx context.Context) (int64, error)
	Withdraw(ctx context.Context, operator string) (int64, error)
}

// FeeHandler serves fee pool endpoints.
type FeeHandler struct {
	service FeeService
	logger  *slog.Logger
}

// NewFeeHandler creates a FeeHandler.
func NewFeeHandler(service FeeService, logger *slog.Logger) *FeeHandler {
	return &FeeHandler{
		service: service,
		logger:  logHandler(logger, "fees"),
	}
}

// Balance returns the accrued fee pool balance.
// GET /api/fees/balance
func (h *FeeHandler) Balance(w http.ResponseWriter, r *http.Request) {
	balance, err := h.service.Balance(r.Context())
	if err != nil {
		h.logger.Error("fee balance failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to get fee balance")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"balance": balance})
}

// withdrawRequest is the JSON body for an operator fee withdrawal.
type withdrawRequest struct {
	Operator string `json:"operator"`
}

// Withdraw drains the fee pool to the configured operator identity.
// POST /api/fees/withdraw
func (h *FeeHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	var req withdrawRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	amount, err := h.service.Withdraw(r.Context(), req.Operator)
	if err != nil {
		status := errorStatus(err)
		if status == http.StatusInternalServerError || status == http.StatusBadGateway {
			h.logger.Error("fee withdraw failed",
				slog.String("operator", req.Operator),
				slog.String("error", err.Error()),
			)
			writeError(w, status, "withdrawal failed")
			return
		}
		writeError(w, status, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"withdrawn": amount})
}
