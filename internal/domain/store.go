package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination for list queries.
type ListOpts struct {
	Limit  int
	Offset int
}

// BattleStore persists battle metadata and totals. Create assigns ids from a
// monotonic sequence starting at 1. Get returns ErrRoundNotFound for ids
// outside the assigned range.
type BattleStore interface {
	// Create assigns the next battle id, stores the metadata, and credits
	// creationFee to the fee pool. transfer runs before commit; a transfer
	// error aborts the creation with no state change.
	Create(ctx context.Context, b Battle, creationFee int64, transfer func(context.Context) error) (int64, error)
	Get(ctx context.Context, id int64) (Battle, error)
	ListOpen(ctx context.Context, now time.Time, opts ListOpts) ([]Battle, error)
	ListFinalized(ctx context.Context, opts ListOpts) ([]Battle, error)
	Count(ctx context.Context) (int64, error)
	// MarkFinalized flips the finalized bit exactly once. It returns false
	// without modifying anything when the battle is already finalized.
	MarkFinalized(ctx context.Context, id int64) (bool, error)
}

// DepositApplication is the full state change of one deposit. The store
// applies it atomically: stake entry increment, battle totals, first-time
// participation counter, and fee accrual commit together or not at all.
type DepositApplication struct {
	BattleID      int64
	Participant   string
	Side          Side
	Quantity      int64
	DeclaredValue int64
	Fee           int64
}

// ClaimApplication is the full state change of one successful claim: the
// winning stake entry is zeroed, the claimant's win and reward counters
// advance, the collectible row is inserted, and the fee accrues.
type ClaimApplication struct {
	BattleID      int64
	Participant   string
	Side          Side
	Payout        int64
	Fee           int64
	CollectibleID int64
}

// StakeStore persists per-(battle, participant, side) ledger entries and owns
// the two compound mutations of the settlement engine. Both Apply methods
// invoke transfer before committing; a transfer error aborts the whole
// application with no state change.
type StakeStore interface {
	Get(ctx context.Context, battleID int64, participant string, side Side) (StakeEntry, error)
	ListByBattle(ctx context.Context, battleID int64) ([]StakeEntry, error)
	ListByParticipant(ctx context.Context, battleID int64, participant string) ([]StakeEntry, error)
	ApplyDeposit(ctx context.Context, dep DepositApplication, transfer func(context.Context) error) error
	ApplyClaim(ctx context.Context, cl ClaimApplication, transfer func(context.Context) error) error
}

// StatsStore reads global participant statistics. Mutation happens only
// inside StakeStore.ApplyDeposit / ApplyClaim.
type StatsStore interface {
	Get(ctx context.Context, participant string) (ParticipantStats, error)
}

// CollectibleStore persists minted collectibles and owns the issuance
// sequence. NextIssuanceID allocations are consumed even when the enclosing
// claim rolls back.
type CollectibleStore interface {
	NextIssuanceID(ctx context.Context) (int64, error)
	Get(ctx context.Context, id int64) (Collectible, error)
	ListByOwner(ctx context.Context, owner string, opts ListOpts) ([]Collectible, error)
	Count(ctx context.Context) (int64, error)
}

// FeePoolStore tracks accrued operation fees in an accounting bucket that is
// distinct from escrowed stake. Withdraw zeroes the pool and invokes transfer
// before committing; a transfer error leaves the pool untouched.
type FeePoolStore interface {
	Balance(ctx context.Context) (int64, error)
	Withdraw(ctx context.Context, operator string, transfer func(ctx context.Context, amount int64) error) (int64, error)
}

// AuditEntry is a single audit log row.
type AuditEntry struct {
	ID        int64
	Event     string
	Detail    map[string]any
	CreatedAt time.Time
}

// AuditStore persists an append-only audit log of engine records.
type AuditStore interface {
	Log(ctx context.Context, event string, detail map[string]any) error
	List(ctx context.Context, opts ListOpts) ([]AuditEntry, error)
}
