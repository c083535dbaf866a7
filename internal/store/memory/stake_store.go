package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/coinarena/arenad/internal/domain"
)

// StakeStore implements domain.StakeStore over the shared Store.
type StakeStore struct {
	s *Store
}

// Get retrieves a single ledger entry. Returns ErrNotFound when the
// participant never deposited on that side.
func (ss *StakeStore) Get(ctx context.Context, battleID int64, participant string, side domain.Side) (domain.StakeEntry, error) {
	ss.s.mu.RLock()
	defer ss.s.mu.RUnlock()

	entry, ok := ss.s.stakes[stakeKey{battleID, participant, side}]
	if !ok {
		return domain.StakeEntry{}, fmt.Errorf("memory: stake %d/%s/%s: %w", battleID, participant, side, domain.ErrNotFound)
	}
	return entry, nil
}

// ListByBattle returns every ledger entry of a battle.
func (ss *StakeStore) ListByBattle(ctx context.Context, battleID int64) ([]domain.StakeEntry, error) {
	ss.s.mu.RLock()
	defer ss.s.mu.RUnlock()

	var entries []domain.StakeEntry
	for k, e := range ss.s.stakes {
		if k.battleID == battleID {
			entries = append(entries, e)
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Participant != entries[j].Participant {
			return entries[i].Participant < entries[j].Participant
		}
		return entries[i].Side < entries[j].Side
	})
	return entries, nil
}

// ListByParticipant returns a participant's entries for one battle.
func (ss *StakeStore) ListByParticipant(ctx context.Context, battleID int64, participant string) ([]domain.StakeEntry, error) {
	ss.s.mu.RLock()
	defer ss.s.mu.RUnlock()

	var entries []domain.StakeEntry
	for _, side := range []domain.Side{domain.SideA, domain.SideB} {
		if e, ok := ss.s.stakes[stakeKey{battleID, participant, side}]; ok {
			entries = append(entries, e)
		}
	}
	return entries, nil
}

// ApplyDeposit applies one deposit atomically. The transfer callback runs
// first; an error from it leaves the store untouched.
func (ss *StakeStore) ApplyDeposit(ctx context.Context, dep domain.DepositApplication, transfer func(context.Context) error) error {
	ss.s.mu.Lock()
	defer ss.s.mu.Unlock()

	b, ok := ss.s.battles[dep.BattleID]
	if !ok {
		return fmt.Errorf("memory: battle %d: %w", dep.BattleID, domain.ErrRoundNotFound)
	}

	if transfer != nil {
		if err := transfer(ctx); err != nil {
			return err
		}
	}

	now := ss.s.clock().UTC()

	// First nonzero balance in this battle, across both sides, counts one
	// participation.
	prior := int64(0)
	for _, side := range []domain.Side{domain.SideA, domain.SideB} {
		prior += ss.s.stakes[stakeKey{dep.BattleID, dep.Participant, side}].Quantity
	}
	if prior == 0 {
		st := ss.s.stats[dep.Participant]
		st.Participant = dep.Participant
		st.Participations++
		st.UpdatedAt = now
		ss.s.stats[dep.Participant] = st
	}

	key := stakeKey{dep.BattleID, dep.Participant, dep.Side}
	entry := ss.s.stakes[key]
	entry.BattleID = dep.BattleID
	entry.Participant = dep.Participant
	entry.Side = dep.Side
	entry.Quantity += dep.Quantity
	entry.DeclaredValue += dep.DeclaredValue
	entry.UpdatedAt = now
	ss.s.stakes[key] = entry

	if dep.Side == domain.SideA {
		b.TotalQtyA += dep.Quantity
		b.TotalValueA += dep.DeclaredValue
	} else {
		b.TotalQtyB += dep.Quantity
		b.TotalValueB += dep.DeclaredValue
	}
	b.UpdatedAt = now
	ss.s.battles[dep.BattleID] = b

	ss.s.feePool += dep.Fee
	return nil
}

// ApplyClaim applies one successful claim atomically: entry zeroed, stats
// advanced, collectible inserted, fee accrued. The transfer callback runs
// first; an error from it leaves the store untouched, so the claim can be
// retried safely.
func (ss *StakeStore) ApplyClaim(ctx context.Context, cl domain.ClaimApplication, transfer func(context.Context) error) error {
	ss.s.mu.Lock()
	defer ss.s.mu.Unlock()

	key := stakeKey{cl.BattleID, cl.Participant, cl.Side}
	entry, ok := ss.s.stakes[key]
	if !ok || entry.Quantity == 0 {
		return fmt.Errorf("memory: stake %d/%s/%s: %w", cl.BattleID, cl.Participant, cl.Side, domain.ErrNothingToClaim)
	}

	if transfer != nil {
		if err := transfer(ctx); err != nil {
			return err
		}
	}

	now := ss.s.clock().UTC()

	entry.Quantity = 0
	entry.UpdatedAt = now
	ss.s.stakes[key] = entry

	st := ss.s.stats[cl.Participant]
	st.Participant = cl.Participant
	st.Wins++
	st.RewardsPaid += cl.Payout
	st.UpdatedAt = now
	ss.s.stats[cl.Participant] = st

	ss.s.collectibles[cl.CollectibleID] = domain.Collectible{
		ID:       cl.CollectibleID,
		Owner:    cl.Participant,
		BattleID: cl.BattleID,
		MintedAt: now,
	}

	ss.s.feePool += cl.Fee
	return nil
}

// Compile-time interface check.
var _ domain.StakeStore = (*StakeStore)(nil)
