package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/coinarena/arenad/internal/domain"
)

// StakeStore implements domain.StakeStore using PostgreSQL. The two Apply
// methods are the compound settlement mutations; each runs as one transaction
// with the external transfer invoked before commit.
type StakeStore struct {
	pool *pgxpool.Pool
}

// NewStakeStore creates a new StakeStore backed by the given connection pool.
func NewStakeStore(pool *pgxpool.Pool) *StakeStore {
	return &StakeStore{pool: pool}
}

const stakeCols = `battle_id, participant, side, quantity, declared_value, updated_at`

func scanStake(row pgx.Row) (domain.StakeEntry, error) {
	var e domain.StakeEntry
	var side string
	err := row.Scan(&e.BattleID, &e.Participant, &side, &e.Quantity, &e.DeclaredValue, &e.UpdatedAt)
	if err != nil {
		return domain.StakeEntry{}, err
	}
	e.Side = domain.Side(side)
	return e, nil
}

// Get retrieves a single ledger entry. Returns ErrNotFound when the
// participant never deposited on that side.
func (s *StakeStore) Get(ctx context.Context, battleID int64, participant string, side domain.Side) (domain.StakeEntry, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+stakeCols+` FROM stakes WHERE battle_id = $1 AND participant = $2 AND side = $3`,
		battleID, participant, string(side))
	e, err := scanStake(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.StakeEntry{}, fmt.Errorf("postgres: stake %d/%s/%s: %w", battleID, participant, side, domain.ErrNotFound)
		}
		return domain.StakeEntry{}, fmt.Errorf("postgres: get stake %d/%s/%s: %w", battleID, participant, side, err)
	}
	return e, nil
}

// ListByBattle returns every ledger entry of a battle.
func (s *StakeStore) ListByBattle(ctx context.Context, battleID int64) ([]domain.StakeEntry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+stakeCols+` FROM stakes WHERE battle_id = $1 ORDER BY participant, side`, battleID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list stakes for battle %d: %w", battleID, err)
	}
	defer rows.Close()

	return collectStakes(rows, battleID)
}

// ListByParticipant returns a participant's entries for one battle.
func (s *StakeStore) ListByParticipant(ctx context.Context, battleID int64, participant string) ([]domain.StakeEntry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+stakeCols+` FROM stakes WHERE battle_id = $1 AND participant = $2 ORDER BY side`,
		battleID, participant)
	if err != nil {
		return nil, fmt.Errorf("postgres: list stakes for %s in battle %d: %w", participant, battleID, err)
	}
	defer rows.Close()

	return collectStakes(rows, battleID)
}

func collectStakes(rows pgx.Rows, battleID int64) ([]domain.StakeEntry, error) {
	var entries []domain.StakeEntry
	for rows.Next() {
		e, err := scanStake(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan stake for battle %d: %w", battleID, err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: stake rows for battle %d: %w", battleID, err)
	}
	return entries, nil
}

// ApplyDeposit applies one deposit atomically: stake entry increment, battle
// totals, first-time participation counter, and fee accrual. The transfer
// callback runs inside the transaction; an error from it rolls everything
// back.
func (s *StakeStore) ApplyDeposit(ctx context.Context, dep domain.DepositApplication, transfer func(context.Context) error) error {
	tx, rollback, err := beginTx(ctx, s.pool)
	if err != nil {
		return err
	}
	defer rollback()

	// Row-lock the battle so its totals update under the same lock.
	var exists bool
	err = tx.QueryRow(ctx,
		`SELECT TRUE FROM battles WHERE id = $1 FOR UPDATE`, dep.BattleID,
	).Scan(&exists)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("postgres: battle %d: %w", dep.BattleID, domain.ErrRoundNotFound)
		}
		return fmt.Errorf("postgres: lock battle %d: %w", dep.BattleID, err)
	}

	// First nonzero balance in this battle, across both sides, counts one
	// participation.
	var prior int64
	err = tx.QueryRow(ctx,
		`SELECT COALESCE(SUM(quantity), 0) FROM stakes WHERE battle_id = $1 AND participant = $2`,
		dep.BattleID, dep.Participant,
	).Scan(&prior)
	if err != nil {
		return fmt.Errorf("postgres: sum prior stakes: %w", err)
	}
	if prior == 0 {
		if _, err := tx.Exec(ctx, `
			INSERT INTO participant_stats (participant, participations, updated_at)
			VALUES ($1, 1, NOW())
			ON CONFLICT (participant) DO UPDATE SET
				participations = participant_stats.participations + 1,
				updated_at     = NOW()`,
			dep.Participant,
		); err != nil {
			return fmt.Errorf("postgres: count participation: %w", err)
		}
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO stakes (battle_id, participant, side, quantity, declared_value, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (battle_id, participant, side) DO UPDATE SET
			quantity       = stakes.quantity + EXCLUDED.quantity,
			declared_value = stakes.declared_value + EXCLUDED.declared_value,
			updated_at     = NOW()`,
		dep.BattleID, dep.Participant, string(dep.Side), dep.Quantity, dep.DeclaredValue,
	); err != nil {
		return fmt.Errorf("postgres: upsert stake: %w", err)
	}

	totalsQuery := `
		UPDATE battles SET
			total_qty_a   = total_qty_a + $2,
			total_value_a = total_value_a + $3,
			updated_at    = NOW()
		WHERE id = $1`
	if dep.Side == domain.SideB {
		totalsQuery = `
		UPDATE battles SET
			total_qty_b   = total_qty_b + $2,
			total_value_b = total_value_b + $3,
			updated_at    = NOW()
		WHERE id = $1`
	}
	if _, err := tx.Exec(ctx, totalsQuery, dep.BattleID, dep.Quantity, dep.DeclaredValue); err != nil {
		return fmt.Errorf("postgres: update battle totals: %w", err)
	}

	if dep.Fee > 0 {
		if _, err := tx.Exec(ctx, `UPDATE fee_pool SET balance = balance + $1`, dep.Fee); err != nil {
			return fmt.Errorf("postgres: accrue deposit fee: %w", err)
		}
	}

	if transfer != nil {
		if err := transfer(ctx); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit deposit: %w", err)
	}
	return nil
}

// ApplyClaim applies one successful claim atomically: the winning entry is
// zeroed, statistics advance, the collectible row is inserted, and the fee
// accrues. The transfer callback runs inside the transaction; an error from
// it rolls everything back, so the claim can be retried safely.
func (s *StakeStore) ApplyClaim(ctx context.Context, cl domain.ClaimApplication, transfer func(context.Context) error) error {
	tx, rollback, err := beginTx(ctx, s.pool)
	if err != nil {
		return err
	}
	defer rollback()

	var quantity int64
	err = tx.QueryRow(ctx,
		`SELECT quantity FROM stakes WHERE battle_id = $1 AND participant = $2 AND side = $3 FOR UPDATE`,
		cl.BattleID, cl.Participant, string(cl.Side),
	).Scan(&quantity)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("postgres: lock stake: %w", err)
	}
	if errors.Is(err, pgx.ErrNoRows) || quantity == 0 {
		return fmt.Errorf("postgres: stake %d/%s/%s: %w", cl.BattleID, cl.Participant, cl.Side, domain.ErrNothingToClaim)
	}

	if _, err := tx.Exec(ctx,
		`UPDATE stakes SET quantity = 0, updated_at = NOW() WHERE battle_id = $1 AND participant = $2 AND side = $3`,
		cl.BattleID, cl.Participant, string(cl.Side),
	); err != nil {
		return fmt.Errorf("postgres: zero stake: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO participant_stats (participant, wins, rewards_paid, updated_at)
		VALUES ($1, 1, $2, NOW())
		ON CONFLICT (participant) DO UPDATE SET
			wins         = participant_stats.wins + 1,
			rewards_paid = participant_stats.rewards_paid + EXCLUDED.rewards_paid,
			updated_at   = NOW()`,
		cl.Participant, cl.Payout,
	); err != nil {
		return fmt.Errorf("postgres: advance stats: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO collectibles (id, owner, battle_id, minted_at) VALUES ($1, $2, $3, NOW())`,
		cl.CollectibleID, cl.Participant, cl.BattleID,
	); err != nil {
		return fmt.Errorf("postgres: mint collectible %d: %w", cl.CollectibleID, err)
	}

	if cl.Fee > 0 {
		if _, err := tx.Exec(ctx, `UPDATE fee_pool SET balance = balance + $1`, cl.Fee); err != nil {
			return fmt.Errorf("postgres: accrue claim fee: %w", err)
		}
	}

	if transfer != nil {
		if err := transfer(ctx); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit claim: %w", err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.StakeStore = (*StakeStore)(nil)
