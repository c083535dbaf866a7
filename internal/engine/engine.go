// Package engine implements the battle settlement core: round lifecycle,
// the stake ledger, winner determination, proportional payouts, and
// collectible issuance. All mutating operations are serialized behind a
// single mutex that spans the external asset transfers they trigger, so no
// operation ever observes another's intermediate state.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/coinarena/arenad/internal/domain"
)

// Policy holds the engine's fixed economic parameters.
type Policy struct {
	// MinDuration and MaxDuration bound the battle duration at creation.
	MinDuration time.Duration
	MaxDuration time.Duration

	// CreationFee, DepositFee, and ClaimFee are the fixed fees collected
	// into the fee pool for each mutating call, denominated in FeeAsset.
	CreationFee int64
	DepositFee  int64
	ClaimFee    int64
	FeeAsset    string

	// Operator is the only identity allowed to withdraw the fee pool.
	Operator string
}

// DefaultPolicy returns the standard policy window of 5 minutes to 6 months.
func DefaultPolicy() Policy {
	return Policy{
		MinDuration: 300 * time.Second,
		MaxDuration: 15552000 * time.Second,
		CreationFee: 1_000_000,
		DepositFee:  100_000,
		ClaimFee:    0,
		FeeAsset:    "arena.fee",
	}
}

// ClaimResult reports the outcome of a successful claim.
type ClaimResult struct {
	BattleID      int64             `json:"battle_id"`
	Winner        domain.Side       `json:"winner"`
	Payout        int64             `json:"payout"`
	Asset         string            `json:"asset"`
	CollectibleID int64             `json:"collectible_id"`
	Rarity        domain.RarityTier `json:"rarity"`
}

// Engine owns every state transition of the battle lifecycle. Battles and
// ledger entries are mutated exclusively through it.
type Engine struct {
	battles domain.BattleStore
	stakes  domain.StakeStore
	fees    domain.FeePoolStore
	issuer  *Issuer
	audit   domain.AuditStore
	vault   domain.AssetVault
	bus     domain.SignalBus // optional
	policy  Policy
	logger  *slog.Logger
	clock   func() time.Time

	// mu serializes deposit, finalize, claim, and fee withdrawal. It is
	// held across the external transfer calls of each operation.
	mu sync.Mutex
}

// NewEngine creates the settlement engine. bus may be nil, in which case
// records are written to the audit log only.
func NewEngine(
	battles domain.BattleStore,
	stakes domain.StakeStore,
	fees domain.FeePoolStore,
	issuer *Issuer,
	audit domain.AuditStore,
	vault domain.AssetVault,
	bus domain.SignalBus,
	policy Policy,
	logger *slog.Logger,
) *Engine {
	return &Engine{
		battles: battles,
		stakes:  stakes,
		fees:    fees,
		issuer:  issuer,
		audit:   audit,
		vault:   vault,
		bus:     bus,
		policy:  policy,
		logger:  logger.With(slog.String("component", "engine")),
		clock:   time.Now,
	}
}

// WithClock replaces the engine's time source. Used by tests to drive the
// Open/Closed predicate deterministically.
func (e *Engine) WithClock(clock func() time.Time) *Engine {
	e.clock = clock
	return e
}

// CreateBattle opens a new round between two distinct assets. The close time
// is fixed at creation and immutable. Violating any precondition, including
// an insufficient creation fee, fails with ErrInvalidRoundParameters.
func (e *Engine) CreateBattle(ctx context.Context, assetA, assetB string, duration time.Duration, fee int64, creator string) (int64, error) {
	if assetA == "" || assetB == "" || assetA == assetB {
		return 0, fmt.Errorf("engine: create battle %q vs %q: %w", assetA, assetB, domain.ErrInvalidRoundParameters)
	}
	if duration < e.policy.MinDuration || duration > e.policy.MaxDuration {
		return 0, fmt.Errorf("engine: create battle duration %s: %w", duration, domain.ErrInvalidRoundParameters)
	}
	if fee < e.policy.CreationFee {
		return 0, fmt.Errorf("engine: create battle fee %d < %d: %w", fee, e.policy.CreationFee, domain.ErrInvalidRoundParameters)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.clock().UTC()
	battle := domain.Battle{
		AssetA:    assetA,
		AssetB:    assetB,
		Creator:   creator,
		CloseTime: now.Add(duration),
		CreatedAt: now,
	}

	id, err := e.battles.Create(ctx, battle, fee, func(ctx context.Context) error {
		return e.collectFee(ctx, creator, fee)
	})
	if err != nil {
		return 0, fmt.Errorf("engine: create battle: %w", err)
	}

	e.emit(ctx, domain.EventBattleCreated, map[string]any{
		"battle_id":  id,
		"asset_a":    assetA,
		"asset_b":    assetB,
		"creator":    creator,
		"close_time": battle.CloseTime,
	})

	e.logger.InfoContext(ctx, "battle created",
		slog.Int64("battle_id", id),
		slog.String("asset_a", assetA),
		slog.String("asset_b", assetB),
	)
	return id, nil
}

// Deposit stakes quantity units of asset on one side of an open battle. The
// asset transfer into custody completes before any ledger state becomes
// final; a failed transfer leaves no trace.
func (e *Engine) Deposit(ctx context.Context, battleID int64, asset string, quantity, declaredValue, fee int64, depositor string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	battle, err := e.battles.Get(ctx, battleID)
	if err != nil {
		return fmt.Errorf("engine: deposit battle %d: %w", battleID, err)
	}
	if battle.IsClosed(e.clock()) {
		return fmt.Errorf("engine: deposit battle %d: %w", battleID, domain.ErrRoundClosed)
	}
	side, ok := battle.SideOf(asset)
	if !ok {
		return fmt.Errorf("engine: deposit battle %d asset %q: %w", battleID, asset, domain.ErrInvalidSide)
	}
	if quantity <= 0 || declaredValue <= 0 {
		return fmt.Errorf("engine: deposit battle %d quantity %d value %d: %w", battleID, quantity, declaredValue, domain.ErrZeroAmount)
	}
	if fee < e.policy.DepositFee {
		return fmt.Errorf("engine: deposit battle %d fee %d < %d: %w", battleID, fee, e.policy.DepositFee, domain.ErrFeeTooLow)
	}

	dep := domain.DepositApplication{
		BattleID:      battleID,
		Participant:   depositor,
		Side:          side,
		Quantity:      quantity,
		DeclaredValue: declaredValue,
		Fee:           fee,
	}
	err = e.stakes.ApplyDeposit(ctx, dep, func(ctx context.Context) error {
		if err := e.collectFee(ctx, depositor, fee); err != nil {
			return err
		}
		if err := e.vault.TransferIn(ctx, asset, depositor, quantity); err != nil {
			e.refundFee(ctx, depositor, fee)
			return fmt.Errorf("%w: %v", domain.ErrTransferFailed, err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("engine: deposit battle %d: %w", battleID, err)
	}

	e.emit(ctx, domain.EventDepositRecorded, map[string]any{
		"battle_id":      battleID,
		"participant":    depositor,
		"side":           side,
		"asset":          asset,
		"quantity":       quantity,
		"declared_value": declaredValue,
	})
	return nil
}

// ClaimReward settles the claimant's winning-side stake into a payout and a
// collectible. The first claim after close time finalizes the battle; later
// calls observe the finalized bit and skip recomputation. The ledger zeroing,
// payout transfer, statistics, and mint commit atomically: a failed transfer
// rolls everything back, so retrying after ErrTransferFailed is safe.
func (e *Engine) ClaimReward(ctx context.Context, battleID int64, claimant string, fee int64) (ClaimResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	battle, err := e.battles.Get(ctx, battleID)
	if err != nil {
		return ClaimResult{}, fmt.Errorf("engine: claim battle %d: %w", battleID, err)
	}
	if !battle.IsClosed(e.clock()) {
		return ClaimResult{}, fmt.Errorf("engine: claim battle %d: %w", battleID, domain.ErrRoundNotClosed)
	}
	if fee < e.policy.ClaimFee {
		return ClaimResult{}, fmt.Errorf("engine: claim battle %d fee %d < %d: %w", battleID, fee, e.policy.ClaimFee, domain.ErrFeeTooLow)
	}

	if !battle.Finalized {
		if err := e.finalize(ctx, &battle); err != nil {
			return ClaimResult{}, fmt.Errorf("engine: claim battle %d: %w", battleID, err)
		}
	}

	winner := battle.WinningSide()
	entry, err := e.stakes.Get(ctx, battleID, claimant, winner)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return ClaimResult{}, fmt.Errorf("engine: claim battle %d: %w", battleID, err)
	}
	if entry.Quantity == 0 {
		return ClaimResult{}, fmt.Errorf("engine: claim battle %d for %s: %w", battleID, claimant, domain.ErrNothingToClaim)
	}

	totalWinning := battle.TotalQty(winner)
	totalLosing := battle.TotalQty(winner.Opposite())
	if totalWinning == 0 {
		// Unreachable once a claimant holds a nonzero stake, but the
		// division guard stays regardless.
		return ClaimResult{}, fmt.Errorf("engine: claim battle %d: empty winning pool: %w", battleID, domain.ErrNothingToClaim)
	}
	amount := payout(entry.Quantity, totalWinning, totalLosing)
	asset := battle.AssetOf(winner)

	// The issuance id is allocated up front and consumed even if the claim
	// rolls back below; the sequence never reuses ids.
	collectibleID, err := e.issuer.Allocate(ctx)
	if err != nil {
		return ClaimResult{}, fmt.Errorf("engine: claim battle %d: %w", battleID, err)
	}

	cl := domain.ClaimApplication{
		BattleID:      battleID,
		Participant:   claimant,
		Side:          winner,
		Payout:        amount,
		Fee:           fee,
		CollectibleID: collectibleID,
	}
	err = e.stakes.ApplyClaim(ctx, cl, func(ctx context.Context) error {
		if err := e.collectFee(ctx, claimant, fee); err != nil {
			return err
		}
		if err := e.vault.TransferOut(ctx, asset, claimant, amount); err != nil {
			e.refundFee(ctx, claimant, fee)
			return fmt.Errorf("%w: %v", domain.ErrTransferFailed, err)
		}
		return nil
	})
	if err != nil {
		return ClaimResult{}, fmt.Errorf("engine: claim battle %d: %w", battleID, err)
	}

	result := ClaimResult{
		BattleID:      battleID,
		Winner:        winner,
		Payout:        amount,
		Asset:         asset,
		CollectibleID: collectibleID,
		Rarity:        domain.RarityFor(collectibleID),
	}

	e.emit(ctx, domain.EventRewardClaimed, map[string]any{
		"battle_id":   battleID,
		"participant": claimant,
		"side":        winner,
		"payout":      amount,
		"asset":       asset,
	})
	e.emit(ctx, domain.EventCollectibleMinted, map[string]any{
		"battle_id":      battleID,
		"collectible_id": collectibleID,
		"owner":          claimant,
		"rarity":         result.Rarity,
	})

	e.logger.InfoContext(ctx, "reward claimed",
		slog.Int64("battle_id", battleID),
		slog.String("participant", claimant),
		slog.Int64("payout", amount),
		slog.Int64("collectible_id", collectibleID),
	)
	return result, nil
}

// WithdrawFees pays the accrued fee pool out to the configured operator. The
// pool is a distinct accounting bucket; escrowed stake is unreachable from
// this path. Returns the amount withdrawn.
func (e *Engine) WithdrawFees(ctx context.Context, operator string) (int64, error) {
	if operator == "" || operator != e.policy.Operator {
		return 0, fmt.Errorf("engine: withdraw fees as %q: %w", operator, domain.ErrUnauthorized)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	amount, err := e.fees.Withdraw(ctx, operator, func(ctx context.Context, amount int64) error {
		if err := e.vault.TransferOut(ctx, e.policy.FeeAsset, operator, amount); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrTransferFailed, err)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("engine: withdraw fees: %w", err)
	}

	if amount > 0 {
		e.emit(ctx, domain.EventFeesWithdrawn, map[string]any{
			"operator": operator,
			"amount":   amount,
		})
	}
	return amount, nil
}

// Policy returns the engine's fixed economic parameters.
func (e *Engine) Policy() Policy {
	return e.policy
}

// finalize flips the battle's finalized bit exactly once and emits the audit
// record with both sides' totals. It moves no funds. Concurrent callers are
// already excluded by the engine mutex; MarkFinalized additionally reports
// whether this call performed the transition, so the record is emitted once.
func (e *Engine) finalize(ctx context.Context, battle *domain.Battle) error {
	flipped, err := e.battles.MarkFinalized(ctx, battle.ID)
	if err != nil {
		return err
	}
	battle.Finalized = true
	if !flipped {
		return nil
	}

	winner := battle.WinningSide()
	loser := winner.Opposite()
	e.emit(ctx, domain.EventBattleFinalized, map[string]any{
		"battle_id":     battle.ID,
		"winner":        winner,
		"winning_asset": battle.AssetOf(winner),
		"winning_qty":   battle.TotalQty(winner),
		"winning_value": battle.TotalValue(winner),
		"losing_qty":    battle.TotalQty(loser),
		"losing_value":  battle.TotalValue(loser),
	})

	e.logger.InfoContext(ctx, "battle finalized",
		slog.Int64("battle_id", battle.ID),
		slog.String("winner", string(winner)),
	)
	return nil
}

// collectFee moves the fee payment into custody. A zero fee moves nothing.
func (e *Engine) collectFee(ctx context.Context, payer string, fee int64) error {
	if fee == 0 {
		return nil
	}
	if err := e.vault.TransferIn(ctx, e.policy.FeeAsset, payer, fee); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrTransferFailed, err)
	}
	return nil
}

// refundFee returns an already-collected fee to the payer when a later
// transfer in the same operation fails, so a failed deposit or claim leaves
// the payer's fee balance untouched and custody's fee units equal to the
// recorded pool. A refund failure is logged; the original transfer error is
// what the caller sees.
func (e *Engine) refundFee(ctx context.Context, payer string, fee int64) {
	if fee == 0 {
		return
	}
	if err := e.vault.TransferOut(ctx, e.policy.FeeAsset, payer, fee); err != nil {
		e.logger.ErrorContext(ctx, "fee refund failed",
			slog.String("payer", payer),
			slog.Int64("fee", fee),
			slog.String("error", err.Error()),
		)
	}
}

// emit writes an engine record to the audit log and, when a bus is wired,
// publishes it for external read models. Emission failures are logged and
// never fail the originating operation.
func (e *Engine) emit(ctx context.Context, kind string, detail map[string]any) {
	if err := e.audit.Log(ctx, kind, detail); err != nil {
		e.logger.WarnContext(ctx, "audit log failed",
			slog.String("event", kind),
			slog.String("error", err.Error()),
		)
	}

	if e.bus == nil {
		return
	}
	payload, err := json.Marshal(map[string]any{
		"id":         uuid.New().String(),
		"kind":       kind,
		"detail":     detail,
		"created_at": e.clock().UTC(),
	})
	if err != nil {
		return
	}

	channel := domain.ChannelBattles
	if kind == domain.EventRewardClaimed || kind == domain.EventCollectibleMinted {
		channel = domain.ChannelClaims
	}
	if err := e.bus.Publish(ctx, channel, payload); err != nil {
		e.logger.WarnContext(ctx, "record publish failed",
			slog.String("event", kind),
			slog.String("error", err.Error()),
		)
	}
	if err := e.bus.StreamAppend(ctx, domain.StreamRecords, payload); err != nil {
		e.logger.WarnContext(ctx, "record stream append failed",
			slog.String("event", kind),
			slog.String("error", err.Error()),
		)
	}
}
