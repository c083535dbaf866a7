package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/coinarena/arenad/internal/domain"
)

// CollectibleStore implements domain.CollectibleStore using PostgreSQL.
type CollectibleStore struct {
	pool *pgxpool.Pool
}

// NewCollectibleStore creates a new CollectibleStore backed by the given
// connection pool.
func NewCollectibleStore(pool *pgxpool.Pool) *CollectibleStore {
	return &CollectibleStore{pool: pool}
}

// NextIssuanceID consumes and returns the next issuance id. Sequence values
// survive a rolled-back claim, so ids are never handed out twice.
func (s *CollectibleStore) NextIssuanceID(ctx context.Context) (int64, error) {
	var id int64
	if err := s.pool.QueryRow(ctx, `SELECT nextval('collectible_issuance_seq')`).Scan(&id); err != nil {
		return 0, fmt.Errorf("postgres: next issuance id: %w", err)
	}
	return id, nil
}

// Get retrieves a collectible by issuance id.
func (s *CollectibleStore) Get(ctx context.Context, id int64) (domain.Collectible, error) {
	var c domain.Collectible
	err := s.pool.QueryRow(ctx,
		`SELECT id, owner, battle_id, minted_at FROM collectibles WHERE id = $1`, id,
	).Scan(&c.ID, &c.Owner, &c.BattleID, &c.MintedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Collectible{}, fmt.Errorf("postgres: collectible %d: %w", id, domain.ErrNotFound)
		}
		return domain.Collectible{}, fmt.Errorf("postgres: get collectible %d: %w", id, err)
	}
	return c, nil
}

// ListByOwner returns the collectibles held by one owner, newest first.
func (s *CollectibleStore) ListByOwner(ctx context.Context, owner string, opts domain.ListOpts) ([]domain.Collectible, error) {
	query := `SELECT id, owner, battle_id, minted_at FROM collectibles WHERE owner = $1 ORDER BY id DESC`
	args := []any{owner}
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

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list collectibles for %s: %w", owner, err)
	}
	defer rows.Close()

	var owned []domain.Collectible
	for rows.Next() {
		var c domain.Collectible
		if err := rows.Scan(&c.ID, &c.Owner, &c.BattleID, &c.MintedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan collectible: %w", err)
		}
		owned = append(owned, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list collectibles rows: %w", err)
	}
	return owned, nil
}

// Count returns the number of minted collectibles.
func (s *CollectibleStore) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM collectibles").Scan(&count); err != nil {
		return 0, fmt.Errorf("postgres: count collectibles: %w", err)
	}
	return count, nil
}

// Compile-time interface check.
var _ domain.CollectibleStore = (*CollectibleStore)(nil)
