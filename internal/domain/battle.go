package domain

import "time"

// Side identifies one of the two competing assets in a battle.
type Side string

const (
	SideA Side = "a"
	SideB Side = "b"
)

// Opposite returns the other side.
func (s Side) Opposite() Side {
	if s == SideA {
		return SideB
	}
	return SideA
}

// BattleState is the lifecycle state of a battle. Open vs Closed is never
// stored; it is computed from CloseTime on every read.
type BattleState string

const (
	BattleStateOpen      BattleState = "open"
	BattleStateClosed    BattleState = "closed"
	BattleStateFinalized BattleState = "finalized"
)

// Battle is one two-sided wagering contest with a fixed close time.
// IDs are assigned monotonically starting at 1 and never reused.
type Battle struct {
	ID          int64
	AssetA      string
	AssetB      string
	Creator     string
	CloseTime   time.Time
	Finalized   bool
	TotalQtyA   int64
	TotalQtyB   int64
	TotalValueA int64
	TotalValueB int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// IsClosed reports whether the battle no longer accepts deposits at the
// given instant. A battle is closed from CloseTime onward, inclusive.
func (b Battle) IsClosed(now time.Time) bool {
	return !now.Before(b.CloseTime)
}

// State computes the lifecycle state at the given instant.
func (b Battle) State(now time.Time) BattleState {
	if b.Finalized {
		return BattleStateFinalized
	}
	if b.IsClosed(now) {
		return BattleStateClosed
	}
	return BattleStateOpen
}

// SideOf maps an asset identifier to its side within this battle.
func (b Battle) SideOf(asset string) (Side, bool) {
	switch asset {
	case b.AssetA:
		return SideA, true
	case b.AssetB:
		return SideB, true
	default:
		return "", false
	}
}

// AssetOf returns the asset identifier registered for the given side.
func (b Battle) AssetOf(side Side) string {
	if side == SideA {
		return b.AssetA
	}
	return b.AssetB
}

// TotalQty returns the cumulative deposited quantity for a side.
func (b Battle) TotalQty(side Side) int64 {
	if side == SideA {
		return b.TotalQtyA
	}
	return b.TotalQtyB
}

// TotalValue returns the cumulative declared valuation for a side.
func (b Battle) TotalValue(side Side) int64 {
	if side == SideA {
		return b.TotalValueA
	}
	return b.TotalValueB
}

// WinningSide returns the side with the greater cumulative declared
// valuation. Ties resolve in favor of side A; there is no draw outcome.
func (b Battle) WinningSide() Side {
	if b.TotalValueB > b.TotalValueA {
		return SideB
	}
	return SideA
}
