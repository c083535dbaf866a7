package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/coinarena/arenad/internal/domain"
)

// BattleStore implements domain.BattleStore over the shared Store.
type BattleStore struct {
	s *Store
}

// Create assigns the next battle id and stores the metadata. The id is
// allocated only when the creation commits, so the sequence stays gapless.
func (bs *BattleStore) Create(ctx context.Context, b domain.Battle, creationFee int64, transfer func(context.Context) error) (int64, error) {
	bs.s.mu.Lock()
	defer bs.s.mu.Unlock()

	if transfer != nil {
		if err := transfer(ctx); err != nil {
			return 0, err
		}
	}

	id := bs.s.nextBattleID
	bs.s.nextBattleID++

	b.ID = id
	b.UpdatedAt = bs.s.clock().UTC()
	bs.s.battles[id] = b
	bs.s.feePool += creationFee
	return id, nil
}

// Get retrieves a battle, returning ErrRoundNotFound for unassigned ids.
func (bs *BattleStore) Get(ctx context.Context, id int64) (domain.Battle, error) {
	bs.s.mu.RLock()
	defer bs.s.mu.RUnlock()

	b, ok := bs.s.battles[id]
	if !ok {
		return domain.Battle{}, fmt.Errorf("memory: battle %d: %w", id, domain.ErrRoundNotFound)
	}
	return b, nil
}

// ListOpen returns battles still accepting deposits at the given instant,
// newest first.
func (bs *BattleStore) ListOpen(ctx context.Context, now time.Time, opts domain.ListOpts) ([]domain.Battle, error) {
	bs.s.mu.RLock()
	defer bs.s.mu.RUnlock()

	var open []domain.Battle
	for _, b := range bs.s.battles {
		if !b.IsClosed(now) {
			open = append(open, b)
		}
	}
	sort.Slice(open, func(i, j int) bool { return open[i].ID > open[j].ID })

	start, end := clampList(len(open), opts)
	return open[start:end], nil
}

// ListFinalized returns finalized battles, newest first.
func (bs *BattleStore) ListFinalized(ctx context.Context, opts domain.ListOpts) ([]domain.Battle, error) {
	bs.s.mu.RLock()
	defer bs.s.mu.RUnlock()

	var done []domain.Battle
	for _, b := range bs.s.battles {
		if b.Finalized {
			done = append(done, b)
		}
	}
	sort.Slice(done, func(i, j int) bool { return done[i].ID > done[j].ID })

	start, end := clampList(len(done), opts)
	return done[start:end], nil
}

// Count returns the total number of battles.
func (bs *BattleStore) Count(ctx context.Context) (int64, error) {
	bs.s.mu.RLock()
	defer bs.s.mu.RUnlock()
	return int64(len(bs.s.battles)), nil
}

// MarkFinalized flips the finalized bit exactly once.
func (bs *BattleStore) MarkFinalized(ctx context.Context, id int64) (bool, error) {
	bs.s.mu.Lock()
	defer bs.s.mu.Unlock()

	b, ok := bs.s.battles[id]
	if !ok {
		return false, fmt.Errorf("memory: battle %d: %w", id, domain.ErrRoundNotFound)
	}
	if b.Finalized {
		return false, nil
	}
	b.Finalized = true
	b.UpdatedAt = bs.s.clock().UTC()
	bs.s.battles[id] = b
	return true, nil
}

// Compile-time interface check.
var _ domain.BattleStore = (*BattleStore)(nil)
