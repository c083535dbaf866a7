package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/coinarena/arenad/internal/domain"
)

// StatsStore implements domain.StatsStore over the shared Store.
type StatsStore struct {
	s *Store
}

// Get returns a participant's global statistics. Unknown participants
// report zeroed counters.
func (st *StatsStore) Get(ctx context.Context, participant string) (domain.ParticipantStats, error) {
	st.s.mu.RLock()
	defer st.s.mu.RUnlock()

	stats, ok := st.s.stats[participant]
	if !ok {
		return domain.ParticipantStats{Participant: participant}, nil
	}
	return stats, nil
}

// CollectibleStore implements domain.CollectibleStore over the shared Store.
type CollectibleStore struct {
	s *Store
}

// NextIssuanceID consumes and returns the next issuance id. Allocations are
// never handed out twice, even when the enclosing claim fails.
func (cs *CollectibleStore) NextIssuanceID(ctx context.Context) (int64, error) {
	cs.s.mu.Lock()
	defer cs.s.mu.Unlock()

	id := cs.s.nextIssuanceID
	cs.s.nextIssuanceID++
	return id, nil
}

// Get retrieves a collectible by issuance id.
func (cs *CollectibleStore) Get(ctx context.Context, id int64) (domain.Collectible, error) {
	cs.s.mu.RLock()
	defer cs.s.mu.RUnlock()

	c, ok := cs.s.collectibles[id]
	if !ok {
		return domain.Collectible{}, fmt.Errorf("memory: collectible %d: %w", id, domain.ErrNotFound)
	}
	return c, nil
}

// ListByOwner returns the collectibles held by one owner, newest first.
func (cs *CollectibleStore) ListByOwner(ctx context.Context, owner string, opts domain.ListOpts) ([]domain.Collectible, error) {
	cs.s.mu.RLock()
	defer cs.s.mu.RUnlock()

	var owned []domain.Collectible
	for _, c := range cs.s.collectibles {
		if c.Owner == owner {
			owned = append(owned, c)
		}
	}
	sort.Slice(owned, func(i, j int) bool { return owned[i].ID > owned[j].ID })

	start, end := clampList(len(owned), opts)
	return owned[start:end], nil
}

// Count returns the number of minted collectibles.
func (cs *CollectibleStore) Count(ctx context.Context) (int64, error) {
	cs.s.mu.RLock()
	defer cs.s.mu.RUnlock()
	return int64(len(cs.s.collectibles)), nil
}

// FeePoolStore implements domain.FeePoolStore over the shared Store.
type FeePoolStore struct {
	s *Store
}

// Balance returns the accrued fee pool.
func (fs *FeePoolStore) Balance(ctx context.Context) (int64, error) {
	fs.s.mu.RLock()
	defer fs.s.mu.RUnlock()
	return fs.s.feePool, nil
}

// Withdraw zeroes the pool and pays it out via transfer. A transfer error
// leaves the pool untouched. Withdrawing an empty pool is a no-op.
func (fs *FeePoolStore) Withdraw(ctx context.Context, operator string, transfer func(ctx context.Context, amount int64) error) (int64, error) {
	fs.s.mu.Lock()
	defer fs.s.mu.Unlock()

	amount := fs.s.feePool
	if amount == 0 {
		return 0, nil
	}
	if transfer != nil {
		if err := transfer(ctx, amount); err != nil {
			return 0, err
		}
	}
	fs.s.feePool = 0
	return amount, nil
}

// AuditStore implements domain.AuditStore over the shared Store.
type AuditStore struct {
	s *Store
}

// Log appends an audit entry.
func (as *AuditStore) Log(ctx context.Context, event string, detail map[string]any) error {
	as.s.mu.Lock()
	defer as.s.mu.Unlock()

	as.s.audit = append(as.s.audit, domain.AuditEntry{
		ID:        int64(len(as.s.audit) + 1),
		Event:     event,
		Detail:    detail,
		CreatedAt: as.s.clock().UTC(),
	})
	return nil
}

// List returns audit entries, newest first.
func (as *AuditStore) List(ctx context.Context, opts domain.ListOpts) ([]domain.AuditEntry, error) {
	as.s.mu.RLock()
	defer as.s.mu.RUnlock()

	entries := make([]domain.AuditEntry, len(as.s.audit))
	for i, e := range as.s.audit {
		entries[len(as.s.audit)-1-i] = e
	}

	start, end := clampList(len(entries), opts)
	return entries[start:end], nil
}

// Compile-time interface checks.
var (
	_ domain.StatsStore       = (*StatsStore)(nil)
	_ domain.CollectibleStore = (*CollectibleStore)(nil)
	_ domain.FeePoolStore     = (*FeePoolStore)(nil)
	_ domain.AuditStore       = (*AuditStore)(nil)
)
