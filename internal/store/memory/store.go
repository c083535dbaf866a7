// Package memory implements the domain store interfaces in process memory.
// It backs dev mode and the test suites. The compound Apply operations
// mirror the postgres transaction semantics: the external transfer runs
// before anything is committed, and a transfer error leaves every map
// untouched.
package memory

import (
	"sync"
	"time"

	"github.com/coinarena/arenad/internal/domain"
)

type stakeKey struct {
	battleID    int64
	participant string
	side        domain.Side
}

// Store is the shared state behind the per-interface views returned by
// Battles, Stakes, Stats, Collectibles, FeePool, and Audit.
type Store struct {
	mu             sync.RWMutex
	battles        map[int64]domain.Battle
	nextBattleID   int64
	stakes         map[stakeKey]domain.StakeEntry
	stats          map[string]domain.ParticipantStats
	collectibles   map[int64]domain.Collectible
	nextIssuanceID int64
	feePool        int64
	audit          []domain.AuditEntry
	clock          func() time.Time
}

// New creates an empty Store. Battle and issuance sequences start at 1.
func New() *Store {
	return &Store{
		battles:        make(map[int64]domain.Battle),
		nextBattleID:   1,
		stakes:         make(map[stakeKey]domain.StakeEntry),
		stats:          make(map[string]domain.ParticipantStats),
		collectibles:   make(map[int64]domain.Collectible),
		nextIssuanceID: 1,
		clock:          time.Now,
	}
}

// WithClock replaces the store's time source. Used by tests.
func (s *Store) WithClock(clock func() time.Time) *Store {
	s.clock = clock
	return s
}

// Battles returns the BattleStore view.
func (s *Store) Battles() *BattleStore { return &BattleStore{s: s} }

// Stakes returns the StakeStore view.
func (s *Store) Stakes() *StakeStore { return &StakeStore{s: s} }

// Stats returns the StatsStore view.
func (s *Store) Stats() *StatsStore { return &StatsStore{s: s} }

// Collectibles returns the CollectibleStore view.
func (s *Store) Collectibles() *CollectibleStore { return &CollectibleStore{s: s} }

// FeePool returns the FeePoolStore view.
func (s *Store) FeePool() *FeePoolStore { return &FeePoolStore{s: s} }

// Audit returns the AuditStore view.
func (s *Store) Audit() *AuditStore { return &AuditStore{s: s} }

func clampList(n int, opts domain.ListOpts) (int, int) {
	start := opts.Offset
	if start > n {
		start = n
	}
	end := n
	if opts.Limit > 0 && start+opts.Limit < end {
		end = start + opts.Limit
	}
	return start, end
}
