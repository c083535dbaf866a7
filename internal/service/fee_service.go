package service

import (
	"context"
	"fmt"

	"github.com/coinarena/arenad/internal/domain"
	"github.com/coinarena/arenad/internal/engine"
)

// FeeService exposes the fee pool balance and the operator withdrawal path.
// Withdrawal goes through the engine so the operator check and the transfer
// atomicity live in one place.
type FeeService struct {
	fees domain.FeePoolStore
	eng  *engine.Engine
}

// NewFeeService creates a FeeService.
func NewFeeService(fees domain.FeePoolStore, eng *engine.Engine) *FeeService {
	return &FeeService{fees: fees, eng: eng}
}

// Balance returns the accrued fee pool.
func (s *FeeService) Balance(ctx context.Context) (int64, error) {
	balance, err := s.fees.Balance(ctx)
	if err != nil {
		return 0, fmt.Errorf("fee_service: balance: %w", err)
	}
	return balance, nil
}

// Withdraw pays the accrued pool out to the configured operator identity.
func (s *FeeService) Withdraw(ctx context.Context, operator string) (int64, error) {
	amount, err := s.eng.WithdrawFees(ctx, operator)
	if err != nil {
		return 0, fmt.Errorf("fee_service: withdraw: %w", err)
	}
	return amount, nil
}
