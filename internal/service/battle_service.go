package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/coinarena/arenad/internal/domain"
)

// BattleView is a battle projected for external consumption: the stored
// metadata plus the lifecycle state computed at read time.
type BattleView struct {
	domain.Battle
	State domain.BattleState `json:"state"`
}

// BattleService provides the read accessors over the battle registry and
// stake ledger. It performs no mutations; every state transition goes
// through the engine.
type BattleService struct {
	battles domain.BattleStore
	stakes  domain.StakeStore
	cache   domain.BattleCache // optional
	logger  *slog.Logger
	clock   func() time.Time
}

// NewBattleService creates a BattleService. cache may be nil.
func NewBattleService(
	battles domain.BattleStore,
	stakes domain.StakeStore,
	cache domain.BattleCache,
	logger *slog.Logger,
) *BattleService {
	return &BattleService{
		battles: battles,
		stakes:  stakes,
		cache:   cache,
		logger:  logger,
		clock:   time.Now,
	}
}

// WithClock replaces the service's time source. Used by tests.
func (s *BattleService) WithClock(clock func() time.Time) *BattleService {
	s.clock = clock
	return s
}

// GetBattle retrieves a battle by id, checking the cache first and falling
// back to the persistent store on a miss. The lifecycle state is always
// recomputed against the current clock, never served stale.
func (s *BattleService) GetBattle(ctx context.Context, id int64) (BattleView, error) {
	if s.cache != nil {
		if b, err := s.cache.Get(ctx, id); err == nil {
			return s.view(b), nil
		}
	}

	b, err := s.battles.Get(ctx, id)
	if err != nil {
		return BattleView{}, fmt.Errorf("battle_service: get %d: %w", id, err)
	}

	if s.cache != nil {
		if cacheErr := s.cache.Set(ctx, b); cacheErr != nil {
			s.logger.WarnContext(ctx, "battle_service: cache set failed",
				slog.Int64("battle_id", id),
				slog.String("error", cacheErr.Error()),
			)
		}
	}

	return s.view(b), nil
}

// ListOpen returns battles still accepting deposits, newest first.
func (s *BattleService) ListOpen(ctx context.Context, opts domain.ListOpts) ([]BattleView, error) {
	battles, err := s.battles.ListOpen(ctx, s.clock(), opts)
	if err != nil {
		return nil, fmt.Errorf("battle_service: list open: %w", err)
	}
	return s.views(battles), nil
}

// ListFinalized returns settled battles, newest first.
func (s *BattleService) ListFinalized(ctx context.Context, opts domain.ListOpts) ([]BattleView, error) {
	battles, err := s.battles.ListFinalized(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("battle_service: list finalized: %w", err)
	}
	return s.views(battles), nil
}

// Count returns the total number of battles.
func (s *BattleService) Count(ctx context.Context) (int64, error) {
	count, err := s.battles.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("battle_service: count: %w", err)
	}
	return count, nil
}

// ListStakes returns every ledger entry of a battle. The battle must exist.
func (s *BattleService) ListStakes(ctx context.Context, battleID int64) ([]domain.StakeEntry, error) {
	if _, err := s.battles.Get(ctx, battleID); err != nil {
		return nil, fmt.Errorf("battle_service: list stakes %d: %w", battleID, err)
	}

	entries, err := s.stakes.ListByBattle(ctx, battleID)
	if err != nil {
		return nil, fmt.Errorf("battle_service: list stakes %d: %w", battleID, err)
	}
	return entries, nil
}

// ParticipantStakes returns one participant's per-side balances for a battle.
func (s *BattleService) ParticipantStakes(ctx context.Context, battleID int64, participant string) ([]domain.StakeEntry, error) {
	if _, err := s.battles.Get(ctx, battleID); err != nil {
		return nil, fmt.Errorf("battle_service: participant stakes %d: %w", battleID, err)
	}

	entries, err := s.stakes.ListByParticipant(ctx, battleID, participant)
	if err != nil {
		return nil, fmt.Errorf("battle_service: participant stakes %d/%s: %w", battleID, participant, err)
	}
	return entries, nil
}

func (s *BattleService) view(b domain.Battle) BattleView {
	return BattleView{Battle: b, State: b.State(s.clock())}
}

func (s *BattleService) views(battles []domain.Battle) []BattleView {
	now := s.clock()
	out := make([]BattleView, len(battles))
	for i, b := range battles {
		out[i] = BattleView{Battle: b, State: b.State(now)}
	}
	return out
}
