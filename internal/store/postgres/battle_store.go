package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/coinarena/arenad/internal/domain"
)

// BattleStore implements domain.BattleStore using PostgreSQL.
type BattleStore struct {
	pool *pgxpool.Pool
}

// NewBattleStore creates a new BattleStore backed by the given connection pool.
func NewBattleStore(pool *pgxpool.Pool) *BattleStore {
	return &BattleStore{pool: pool}
}

const battleCols = `id, asset_a, asset_b, creator, close_time, finalized,
	total_qty_a, total_qty_b, total_value_a, total_value_b,
	created_at, updated_at`

func scanBattle(row pgx.Row) (domain.Battle, error) {
	var b domain.Battle
	err := row.Scan(
		&b.ID, &b.AssetA, &b.AssetB, &b.Creator, &b.CloseTime, &b.Finalized,
		&b.TotalQtyA, &b.TotalQtyB, &b.TotalValueA, &b.TotalValueB,
		&b.CreatedAt, &b.UpdatedAt,
	)
	return b, err
}

// Create assigns the next battle id from the counter row, inserts the battle,
// and credits the creation fee to the pool. The transfer callback runs inside
// the transaction; any error from it rolls everything back, including the id
// allocation, so the sequence stays gapless.
func (s *BattleStore) Create(ctx context.Context, b domain.Battle, creationFee int64, transfer func(context.Context) error) (int64, error) {
	tx, rollback, err := beginTx(ctx, s.pool)
	if err != nil {
		return 0, err
	}
	defer rollback()

	var id int64
	err = tx.QueryRow(ctx,
		`UPDATE battle_sequence SET next_id = next_id + 1 RETURNING next_id - 1`,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("postgres: allocate battle id: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO battles (
			id, asset_a, asset_b, creator, close_time, created_at
		) VALUES ($1, $2, $3, $4, $5, $6)`,
		id, b.AssetA, b.AssetB, b.Creator, b.CloseTime, b.CreatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("postgres: insert battle: %w", err)
	}

	if creationFee > 0 {
		if _, err := tx.Exec(ctx,
			`UPDATE fee_pool SET balance = balance + $1`, creationFee,
		); err != nil {
			return 0, fmt.Errorf("postgres: accrue creation fee: %w", err)
		}
	}

	if transfer != nil {
		if err := transfer(ctx); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("postgres: commit battle create: %w", err)
	}
	return id, nil
}

// Get retrieves a battle, returning ErrRoundNotFound for unassigned ids.
func (s *BattleStore) Get(ctx context.Context, id int64) (domain.Battle, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+battleCols+` FROM battles WHERE id = $1`, id)
	b, err := scanBattle(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Battle{}, fmt.Errorf("postgres: battle %d: %w", id, domain.ErrRoundNotFound)
		}
		return domain.Battle{}, fmt.Errorf("postgres: get battle %d: %w", id, err)
	}
	return b, nil
}

// ListOpen returns battles still accepting deposits at the given instant,
// newest first.
func (s *BattleStore) ListOpen(ctx context.Context, now time.Time, opts domain.ListOpts) ([]domain.Battle, error) {
	query := `SELECT ` + battleCols + ` FROM battles WHERE close_time > $1 ORDER BY id DESC`
	args := []any{now}
	argIdx := 2

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, opts.Limit)
		argIdx++
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, opts.Offset)
	}

	return s.listBattles(ctx, "open", query, args)
}

// ListFinalized returns finalized battles, newest first.
func (s *BattleStore) ListFinalized(ctx context.Context, opts domain.ListOpts) ([]domain.Battle, error) {
	query := `SELECT ` + battleCols + ` FROM battles WHERE finalized ORDER BY id DESC`
	args := []any{}
	argIdx := 1

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, opts.Limit)
		argIdx++
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, opts.Offset)
	}

	return s.listBattles(ctx, "finalized", query, args)
}

func (s *BattleStore) listBattles(ctx context.Context, kind, query string, args []any) ([]domain.Battle, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list %s battles: %w", kind, err)
	}
	defer rows.Close()

	var battles []domain.Battle
	for rows.Next() {
		b, err := scanBattle(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan %s battle: %w", kind, err)
		}
		battles = append(battles, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list %s battles rows: %w", kind, err)
	}
	return battles, nil
}

// Count returns the total number of battles.
func (s *BattleStore) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM battles").Scan(&count); err != nil {
		return 0, fmt.Errorf("postgres: count battles: %w", err)
	}
	return count, nil
}

// MarkFinalized flips the finalized bit exactly once. Returns false without
// modifying anything when the battle is already finalized.
func (s *BattleStore) MarkFinalized(ctx context.Context, id int64) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE battles SET finalized = TRUE, updated_at = NOW() WHERE id = $1 AND NOT finalized`, id)
	if err != nil {
		return false, fmt.Errorf("postgres: finalize battle %d: %w", id, err)
	}
	if tag.RowsAffected() > 0 {
		return true, nil
	}

	var finalized bool
	err = s.pool.QueryRow(ctx, `SELECT finalized FROM battles WHERE id = $1`, id).Scan(&finalized)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, fmt.Errorf("postgres: battle %d: %w", id, domain.ErrRoundNotFound)
		}
		return false, fmt.Errorf("postgres: finalize battle %d: %w", id, err)
	}
	return false, nil
}

// Compile-time interface check.
var _ domain.BattleStore = (*BattleStore)(nil)
