package service

import (
	"context"
	"fmt"

	"github.com/coinarena/arenad/internal/domain"
)

// StatsService reads global participant statistics.
type StatsService struct {
	stats domain.StatsStore
}

// NewStatsService creates a StatsService.
func NewStatsService(stats domain.StatsStore) *StatsService {
	return &StatsService{stats: stats}
}

// GetStats returns a participant's cumulative wins, participations, and
// rewards. Unknown participants report zeroed counters.
func (s *StatsService) GetStats(ctx context.Context, participant string) (domain.ParticipantStats, error) {
	stats, err := s.stats.Get(ctx, participant)
	if err != nil {
		return domain.ParticipantStats{}, fmt.Errorf("stats_service: get %s: %w", participant, err)
	}
	return stats, nil
}
