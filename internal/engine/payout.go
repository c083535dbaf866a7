package engine

import "math/big"

// payout computes the winner-takes-most amount for a single claimant:
//
//	stake + floor(stake * losingTotal / winningTotal)
//
// The product can exceed int64 for large stakes, so the intermediate math
// runs on big.Int. Summed over all winning stakes the floors never pay out
// more than winningTotal + losingTotal, which keeps the escrow solvent.
func payout(stake, winningTotal, losingTotal int64) int64 {
	share := new(big.Int).Mul(big.NewInt(stake), big.NewInt(losingTotal))
	share.Quo(share, big.NewInt(winningTotal))
	return stake + share.Int64()
}
