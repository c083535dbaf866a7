package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/coinarena/arenad/internal/domain"
)

// FeePoolStore implements domain.FeePoolStore using PostgreSQL. The pool is a
// single-row table; it never references battle or stake rows, so withdrawals
// cannot touch escrowed funds.
type FeePoolStore struct {
	pool *pgxpool.Pool
}

// NewFeePoolStore creates a new FeePoolStore backed by the given connection
// pool.
func NewFeePoolStore(pool *pgxpool.Pool) *FeePoolStore {
	return &FeePoolStore{pool: pool}
}

// Balance returns the accrued fee pool.
func (s *FeePoolStore) Balance(ctx context.Context) (int64, error) {
	var balance int64
	if err := s.pool.QueryRow(ctx, `SELECT balance FROM fee_pool`).Scan(&balance); err != nil {
		return 0, fmt.Errorf("postgres: fee pool balance: %w", err)
	}
	return balance, nil
}

// Withdraw zeroes the pool and pays it out via transfer inside one
// transaction. A transfer error leaves the pool untouched. Withdrawing an
// empty pool is a no-op.
func (s *FeePoolStore) Withdraw(ctx context.Context, operator string, transfer func(ctx context.Context, amount int64) error) (int64, error) {
	tx, rollback, err := beginTx(ctx, s.pool)
	if err != nil {
		return 0, err
	}
	defer rollback()

	var amount int64
	if err := tx.QueryRow(ctx, `SELECT balance FROM fee_pool FOR UPDATE`).Scan(&amount); err != nil {
		return 0, fmt.Errorf("postgres: lock fee pool: %w", err)
	}
	if amount == 0 {
		return 0, nil
	}

	if _, err := tx.Exec(ctx, `UPDATE fee_pool SET balance = 0`); err != nil {
		return 0, fmt.Errorf("postgres: drain fee pool: %w", err)
	}

	if transfer != nil {
		if err := transfer(ctx, amount); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("postgres: commit fee withdrawal: %w", err)
	}
	return amount, nil
}

// Compile-time interface check.
var _ domain.FeePoolStore = (*FeePoolStore)(nil)
