package engine_test

import (
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coinarena/arenad/internal/domain"
	"github.com/coinarena/arenad/internal/engine"
	"github.com/coinarena/arenad/internal/store/memory"
	memvault "github.com/coinarena/arenad/internal/vault/memory"
)

const (
	feeAsset  = "fee.usd"
	assetDoge = "doge.token"
	assetPepe = "pepe.token"

	alice    = "alice"
	bob      = "bob"
	carol    = "carol"
	operator = "operator"
)

var baseTime = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

// flakyVault wraps the memory vault and fails a configurable number of
// outbound transfers to exercise claim rollback.
type flakyVault struct {
	*memvault.Vault
	failOut int
}

func (f *flakyVault) TransferOut(ctx context.Context, asset, to string, quantity int64) error {
	if f.failOut > 0 {
		f.failOut--
		return fmt.Errorf("rpc timeout: %w", domain.ErrTransferFailed)
	}
	return f.Vault.TransferOut(ctx, asset, to, quantity)
}

type fixture struct {
	store  *memory.Store
	vault  *flakyVault
	eng    *engine.Engine
	now    time.Time
	policy engine.Policy
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		store: memory.New(),
		vault: &flakyVault{Vault: memvault.New()},
		now:   baseTime,
		policy: engine.Policy{
			MinDuration: 300 * time.Second,
			MaxDuration: 15552000 * time.Second,
			CreationFee: 100,
			DepositFee:  10,
			ClaimFee:    5,
			FeeAsset:    feeAsset,
			Operator:    operator,
		},
	}
	f.store.WithClock(f.clock)

	for _, who := range []string{alice, bob, carol, operator} {
		f.vault.Credit(feeAsset, who, 1_000_000)
		f.vault.Credit(assetDoge, who, 1_000_000)
		f.vault.Credit(assetPepe, who, 1_000_000)
	}

	logger := slog.New(slog.NewTextHandler(testWriter{t}, &slog.HandlerOptions{Level: slog.LevelError}))
	f.eng = engine.NewEngine(
		f.store.Battles(),
		f.store.Stakes(),
		f.store.FeePool(),
		engine.NewIssuer(f.store.Collectibles()),
		f.store.Audit(),
		f.vault,
		nil,
		f.policy,
		logger,
	).WithClock(f.clock)

	return f
}

type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(string(p))
	return len(p), nil
}

func (f *fixture) clock() time.Time { return f.now }

func (f *fixture) advance(d time.Duration) { f.now = f.now.Add(d) }

func (f *fixture) createBattle(t *testing.T, duration time.Duration) int64 {
	t.Helper()
	id, err := f.eng.CreateBattle(context.Background(), assetDoge, assetPepe, duration, f.policy.CreationFee, carol)
	require.NoError(t, err)
	return id
}

func (f *fixture) deposit(t *testing.T, battleID int64, asset string, qty, value int64, who string) {
	t.Helper()
	err := f.eng.Deposit(context.Background(), battleID, asset, qty, value, f.policy.DepositFee, who)
	require.NoError(t, err)
}

// assertConserved checks the ledger invariant: per side, the sum of stake
// entries equals the battle's recorded total.
func (f *fixture) assertConserved(t *testing.T, battleID int64) {
	t.Helper()
	ctx := context.Background()

	battle, err := f.store.Battles().Get(ctx, battleID)
	require.NoError(t, err)

	entries, err := f.store.Stakes().ListByBattle(ctx, battleID)
	require.NoError(t, err)

	var sumA, sumB int64
	for _, e := range entries {
		if e.Side == domain.SideA {
			sumA += e.Quantity
		} else {
			sumB += e.Quantity
		}
	}
	assert.Equal(t, battle.TotalQtyA, sumA, "side A totals out of sync with ledger")
	assert.Equal(t, battle.TotalQtyB, sumB, "side B totals out of sync with ledger")
}

// assertFeeCustodyMatchesPool checks that custody's fee-asset units equal the
// recorded fee pool balance, so no fee movement ever strands units in custody.
func (f *fixture) assertFeeCustodyMatchesPool(t *testing.T) {
	t.Helper()
	balance, err := f.store.FeePool().Balance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, balance, f.vault.CustodyBalance(feeAsset), "custody fee units out of sync with fee pool")
}

func TestCreateBattleDurationBoundaries(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		duration time.Duration
		ok       bool
	}{
		{"below minimum", 299 * time.Second, false},
		{"at minimum", 300 * time.Second, true},
		{"at maximum", 15552000 * time.Second, true},
		{"above maximum", 15552001 * time.Second, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t)

			id, err := f.eng.CreateBattle(context.Background(), assetDoge, assetPepe, tc.duration, f.policy.CreationFee, carol)
			if tc.ok {
				require.NoError(t, err)
				assert.Equal(t, int64(1), id)
			} else {
				require.ErrorIs(t, err, domain.ErrInvalidRoundParameters)
			}
		})
	}
}

func TestCreateBattleRejectsBadParameters(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.eng.CreateBattle(ctx, assetDoge, assetDoge, time.Hour, f.policy.CreationFee, carol)
	require.ErrorIs(t, err, domain.ErrInvalidRoundParameters, "identical sides")

	_, err = f.eng.CreateBattle(ctx, "", assetPepe, time.Hour, f.policy.CreationFee, carol)
	require.ErrorIs(t, err, domain.ErrInvalidRoundParameters, "empty side")

	_, err = f.eng.CreateBattle(ctx, assetDoge, assetPepe, time.Hour, f.policy.CreationFee-1, carol)
	require.ErrorIs(t, err, domain.ErrInvalidRoundParameters, "insufficient creation fee")
}

func TestCreateBattleAssignsMonotonicIDs(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	first := f.createBattle(t, time.Hour)
	second := f.createBattle(t, time.Hour)
	assert.Equal(t, int64(1), first)
	assert.Equal(t, int64(2), second)

	_, err := f.store.Battles().Get(context.Background(), 99)
	require.ErrorIs(t, err, domain.ErrRoundNotFound)
}

func TestDepositAccruesLedgerAndTotals(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	id := f.createBattle(t, time.Hour)
	f.deposit(t, id, assetDoge, 60, 120, alice)
	f.deposit(t, id, assetDoge, 40, 80, alice)
	f.deposit(t, id, assetPepe, 30, 90, bob)

	entry, err := f.store.Stakes().Get(ctx, id, alice, domain.SideA)
	require.NoError(t, err)
	assert.Equal(t, int64(100), entry.Quantity)
	assert.Equal(t, int64(200), entry.DeclaredValue)

	battle, err := f.store.Battles().Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(100), battle.TotalQtyA)
	assert.Equal(t, int64(200), battle.TotalValueA)
	assert.Equal(t, int64(30), battle.TotalQtyB)
	assert.Equal(t, int64(90), battle.TotalValueB)

	f.assertConserved(t, id)

	// Two deposits by alice count a single participation.
	stats, err := f.store.Stats().Get(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Participations)

	// Deposited quantities sit in engine custody.
	assert.Equal(t, int64(100), f.vault.CustodyBalance(assetDoge))
	assert.Equal(t, int64(30), f.vault.CustodyBalance(assetPepe))
}

func TestDepositCloseTimeBoundary(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	id := f.createBattle(t, time.Hour)

	// One second before close time deposits still land.
	f.advance(time.Hour - time.Second)
	f.deposit(t, id, assetDoge, 10, 10, alice)

	// At close time exactly, the round is closed.
	f.advance(time.Second)
	err := f.eng.Deposit(context.Background(), id, assetDoge, 10, 10, f.policy.DepositFee, alice)
	require.ErrorIs(t, err, domain.ErrRoundClosed)
}

func TestDepositRejections(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	id := f.createBattle(t, time.Hour)

	err := f.eng.Deposit(ctx, 42, assetDoge, 10, 10, f.policy.DepositFee, alice)
	require.ErrorIs(t, err, domain.ErrRoundNotFound)

	err = f.eng.Deposit(ctx, id, "shib.token", 10, 10, f.policy.DepositFee, alice)
	require.ErrorIs(t, err, domain.ErrInvalidSide)

	err = f.eng.Deposit(ctx, id, assetDoge, 0, 10, f.policy.DepositFee, alice)
	require.ErrorIs(t, err, domain.ErrZeroAmount)

	err = f.eng.Deposit(ctx, id, assetDoge, 10, 0, f.policy.DepositFee, alice)
	require.ErrorIs(t, err, domain.ErrZeroAmount)

	err = f.eng.Deposit(ctx, id, assetDoge, 10, 10, f.policy.DepositFee-1, alice)
	require.ErrorIs(t, err, domain.ErrFeeTooLow)
}

func TestDepositTransferFailureLeavesNoTrace(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	id := f.createBattle(t, time.Hour)

	// dave holds fee balance but no doge, so the stake transfer fails after
	// the fee transfer succeeded.
	f.vault.Credit(feeAsset, "dave", 1_000)
	err := f.eng.Deposit(ctx, id, assetDoge, 10, 10, f.policy.DepositFee, "dave")
	require.ErrorIs(t, err, domain.ErrTransferFailed)

	battle, err := f.store.Battles().Get(ctx, id)
	require.NoError(t, err)
	assert.Zero(t, battle.TotalQtyA)

	_, err = f.store.Stakes().Get(ctx, id, "dave", domain.SideA)
	require.ErrorIs(t, err, domain.ErrNotFound)

	stats, err := f.store.Stats().Get(ctx, "dave")
	require.NoError(t, err)
	assert.Zero(t, stats.Participations)

	// The collected fee is refunded with the rest of the rollback: dave's
	// fee balance is whole and custody holds exactly the recorded pool.
	assert.Equal(t, int64(1_000), f.vault.Balance(feeAsset, "dave"), "failed deposit must not consume the fee")
	f.assertFeeCustodyMatchesPool(t)
}

func TestWinnerByDeclaredValuation(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	id := f.createBattle(t, time.Hour)
	f.deposit(t, id, assetDoge, 10, 100, alice)
	f.deposit(t, id, assetPepe, 999, 80, bob)

	f.advance(2 * time.Hour)

	// Side A wins on valuation 100 vs 80 despite the smaller quantity.
	res, err := f.eng.ClaimReward(ctx, id, alice, f.policy.ClaimFee)
	require.NoError(t, err)
	assert.Equal(t, domain.SideA, res.Winner)
	assert.Equal(t, assetDoge, res.Asset)
}

func TestWinnerTieBreaksToSideA(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	id := f.createBattle(t, time.Hour)
	f.deposit(t, id, assetDoge, 50, 80, alice)
	f.deposit(t, id, assetPepe, 50, 80, bob)

	f.advance(2 * time.Hour)

	res, err := f.eng.ClaimReward(ctx, id, alice, f.policy.ClaimFee)
	require.NoError(t, err)
	assert.Equal(t, domain.SideA, res.Winner)

	_, err = f.eng.ClaimReward(ctx, id, bob, f.policy.ClaimFee)
	require.ErrorIs(t, err, domain.ErrNothingToClaim)
}

func TestPayoutFormula(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	id := f.createBattle(t, time.Hour)
	f.deposit(t, id, assetDoge, 60, 600, alice)
	f.deposit(t, id, assetDoge, 40, 400, bob)
	f.deposit(t, id, assetPepe, 50, 100, carol)

	f.advance(2 * time.Hour)

	aliceRes, err := f.eng.ClaimReward(ctx, id, alice, f.policy.ClaimFee)
	require.NoError(t, err)
	assert.Equal(t, int64(90), aliceRes.Payout, "60 + floor(60*50/100)")

	bobRes, err := f.eng.ClaimReward(ctx, id, bob, f.policy.ClaimFee)
	require.NoError(t, err)
	assert.Equal(t, int64(60), bobRes.Payout, "40 + floor(40*50/100)")

	// Claims together pay out exactly the winning total plus the losing
	// total; nothing is created or destroyed.
	assert.Equal(t, int64(150), aliceRes.Payout+bobRes.Payout)

	// All winning-side entries are zeroed once every claim is made.
	entries, err := f.store.Stakes().ListByBattle(ctx, id)
	require.NoError(t, err)
	for _, e := range entries {
		if e.Side == domain.SideA {
			assert.Zero(t, e.Quantity)
		}
	}
}

func TestClaimAtMostOnce(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	id := f.createBattle(t, time.Hour)
	f.deposit(t, id, assetDoge, 60, 600, alice)
	f.deposit(t, id, assetPepe, 50, 100, bob)

	f.advance(2 * time.Hour)

	_, err := f.eng.ClaimReward(ctx, id, alice, f.policy.ClaimFee)
	require.NoError(t, err)

	_, err = f.eng.ClaimReward(ctx, id, alice, f.policy.ClaimFee)
	require.ErrorIs(t, err, domain.ErrNothingToClaim)
}

func TestClaimBeforeCloseRejected(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	id := f.createBattle(t, time.Hour)
	f.deposit(t, id, assetDoge, 60, 600, alice)

	_, err := f.eng.ClaimReward(ctx, id, alice, f.policy.ClaimFee)
	require.ErrorIs(t, err, domain.ErrRoundNotClosed)
}

func TestClaimWithoutWinningStake(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	id := f.createBattle(t, time.Hour)
	f.deposit(t, id, assetDoge, 60, 600, alice)
	f.deposit(t, id, assetPepe, 50, 100, bob)

	f.advance(2 * time.Hour)

	// bob staked the losing side only.
	_, err := f.eng.ClaimReward(ctx, id, bob, f.policy.ClaimFee)
	require.ErrorIs(t, err, domain.ErrNothingToClaim)

	// carol never deposited at all.
	_, err = f.eng.ClaimReward(ctx, id, carol, f.policy.ClaimFee)
	require.ErrorIs(t, err, domain.ErrNothingToClaim)
}

func TestClaimTransferFailureRollsBack(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	id := f.createBattle(t, time.Hour)
	f.deposit(t, id, assetDoge, 60, 600, alice)
	f.deposit(t, id, assetPepe, 50, 100, bob)

	f.advance(2 * time.Hour)

	feeBefore := f.vault.Balance(feeAsset, alice)

	f.vault.failOut = 1
	_, err := f.eng.ClaimReward(ctx, id, alice, f.policy.ClaimFee)
	require.ErrorIs(t, err, domain.ErrTransferFailed)

	// The ledger entry survives the failed payout.
	entry, err := f.store.Stakes().Get(ctx, id, alice, domain.SideA)
	require.NoError(t, err)
	assert.Equal(t, int64(60), entry.Quantity)

	stats, err := f.store.Stats().Get(ctx, alice)
	require.NoError(t, err)
	assert.Zero(t, stats.Wins)

	// The claim fee is refunded with the rollback, so retries never pay
	// twice and custody still holds exactly the recorded pool.
	assert.Equal(t, feeBefore, f.vault.Balance(feeAsset, alice), "failed claim must not consume the fee")
	f.assertFeeCustodyMatchesPool(t)

	// Retrying succeeds; the issuance id burned by the failed attempt is
	// skipped, never reused.
	res, err := f.eng.ClaimReward(ctx, id, alice, f.policy.ClaimFee)
	require.NoError(t, err)
	assert.Equal(t, int64(110), res.Payout, "60 + floor(60*50/60)")
	assert.Equal(t, int64(2), res.CollectibleID)

	_, err = f.store.Collectibles().Get(ctx, 1)
	require.ErrorIs(t, err, domain.ErrNotFound)

	assert.Equal(t, feeBefore-f.policy.ClaimFee, f.vault.Balance(feeAsset, alice))
	f.assertFeeCustodyMatchesPool(t)
}

func TestFinalizeIsLazyAndIdempotent(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	id := f.createBattle(t, time.Hour)
	f.deposit(t, id, assetDoge, 60, 600, alice)
	f.deposit(t, id, assetDoge, 40, 400, bob)
	f.deposit(t, id, assetPepe, 50, 100, carol)

	f.advance(2 * time.Hour)

	// Not finalized until the first claim attempt.
	battle, err := f.store.Battles().Get(ctx, id)
	require.NoError(t, err)
	assert.False(t, battle.Finalized)

	_, err = f.eng.ClaimReward(ctx, id, alice, f.policy.ClaimFee)
	require.NoError(t, err)
	_, err = f.eng.ClaimReward(ctx, id, bob, f.policy.ClaimFee)
	require.NoError(t, err)

	battle, err = f.store.Battles().Get(ctx, id)
	require.NoError(t, err)
	assert.True(t, battle.Finalized)
	assert.Equal(t, int64(100), battle.TotalQtyA, "finalize must not alter totals")

	// Exactly one finalize record despite two finalization triggers.
	entries, err := f.store.Audit().List(ctx, domain.ListOpts{})
	require.NoError(t, err)
	finalized := 0
	for _, e := range entries {
		if e.Event == domain.EventBattleFinalized {
			finalized++
		}
	}
	assert.Equal(t, 1, finalized)
}

func TestStatsAccumulate(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	first := f.createBattle(t, time.Hour)
	f.deposit(t, first, assetDoge, 60, 600, alice)
	f.deposit(t, first, assetPepe, 50, 100, bob)

	second := f.createBattle(t, time.Hour)
	f.deposit(t, second, assetDoge, 30, 300, alice)

	f.advance(2 * time.Hour)

	res1, err := f.eng.ClaimReward(ctx, first, alice, f.policy.ClaimFee)
	require.NoError(t, err)
	res2, err := f.eng.ClaimReward(ctx, second, alice, f.policy.ClaimFee)
	require.NoError(t, err)

	stats, err := f.store.Stats().Get(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Wins)
	assert.Equal(t, int64(2), stats.Participations)
	assert.Equal(t, res1.Payout+res2.Payout, stats.RewardsPaid)
}

func TestCollectibleMintedPerClaim(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	id := f.createBattle(t, time.Hour)
	f.deposit(t, id, assetDoge, 60, 600, alice)
	f.deposit(t, id, assetDoge, 40, 400, bob)

	f.advance(2 * time.Hour)

	res, err := f.eng.ClaimReward(ctx, id, alice, f.policy.ClaimFee)
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.CollectibleID)
	assert.Equal(t, domain.RarityLegendary, res.Rarity)

	minted, err := f.store.Collectibles().Get(ctx, res.CollectibleID)
	require.NoError(t, err)
	assert.Equal(t, alice, minted.Owner)
	assert.Equal(t, id, minted.BattleID)
}

func TestWithdrawFees(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	id := f.createBattle(t, time.Hour)
	f.deposit(t, id, assetDoge, 60, 600, alice)
	f.deposit(t, id, assetPepe, 50, 100, bob)

	_, err := f.eng.WithdrawFees(ctx, alice)
	require.ErrorIs(t, err, domain.ErrUnauthorized)

	custodyBefore := f.vault.CustodyBalance(assetDoge)

	// Creation fee plus two deposit fees.
	amount, err := f.eng.WithdrawFees(ctx, operator)
	require.NoError(t, err)
	assert.Equal(t, f.policy.CreationFee+2*f.policy.DepositFee, amount)

	balance, err := f.store.FeePool().Balance(ctx)
	require.NoError(t, err)
	assert.Zero(t, balance)

	// Escrowed stake is untouchable from the fee path.
	assert.Equal(t, custodyBefore, f.vault.CustodyBalance(assetDoge))

	// A drained pool withdraws zero without error.
	amount, err = f.eng.WithdrawFees(ctx, operator)
	require.NoError(t, err)
	assert.Zero(t, amount)
}
