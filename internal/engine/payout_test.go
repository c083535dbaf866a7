package engine

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPayout(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name         string
		stake        int64
		winningTotal int64
		losingTotal  int64
		want         int64
	}{
		{"sixty of hundred against fifty", 60, 100, 50, 90},
		{"forty of hundred against fifty", 40, 100, 50, 60},
		{"sole winner", 60, 60, 50, 110},
		{"no losing pool", 60, 100, 0, 60},
		{"floor division", 1, 3, 1, 1},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, payout(tc.stake, tc.winningTotal, tc.losingTotal))
		})
	}
}

// The share is computed through big integers, so stake*losingTotal
// overflowing int64 still floors correctly.
func TestPayoutLargeIntermediate(t *testing.T) {
	t.Parallel()

	stake := int64(math.MaxInt64 / 2)
	winning := int64(math.MaxInt64/2 + 1)
	losing := int64(1 << 40)

	got := payout(stake, winning, losing)
	assert.Greater(t, got, stake)
	assert.LessOrEqual(t, got, stake+losing)
}
