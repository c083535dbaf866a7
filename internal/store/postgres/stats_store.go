package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/coinarena/arenad/internal/domain"
)

// StatsStore implements domain.StatsStore using PostgreSQL. It is read-only;
// rows are written inside the StakeStore transactions.
type StatsStore struct {
	pool *pgxpool.Pool
}

// NewStatsStore creates a new StatsStore backed by the given connection pool.
func NewStatsStore(pool *pgxpool.Pool) *StatsStore {
	return &StatsStore{pool: pool}
}

// Get returns a participant's global statistics. Unknown participants report
// zeroed counters.
func (s *StatsStore) Get(ctx context.Context, participant string) (domain.ParticipantStats, error) {
	var stats domain.ParticipantStats
	err := s.pool.QueryRow(ctx,
		`SELECT participant, wins, participations, rewards_paid, updated_at
		 FROM participant_stats WHERE participant = $1`, participant,
	).Scan(&stats.Participant, &stats.Wins, &stats.Participations, &stats.RewardsPaid, &stats.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ParticipantStats{Participant: participant}, nil
		}
		return domain.ParticipantStats{}, fmt.Errorf("postgres: get stats for %s: %w", participant, err)
	}
	return stats, nil
}

// Compile-time interface check.
var _ domain.StatsStore = (*StatsStore)(nil)
