package domain_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/coinarena/arenad/internal/domain"
)

func TestBattleCloseBoundary(t *testing.T) {
	t.Parallel()

	close := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	b := domain.Battle{CloseTime: close}

	assert.False(t, b.IsClosed(close.Add(-time.Second)))
	assert.True(t, b.IsClosed(close), "closed from close time onward, inclusive")
	assert.True(t, b.IsClosed(close.Add(time.Second)))

	assert.Equal(t, domain.BattleStateOpen, b.State(close.Add(-time.Second)))
	assert.Equal(t, domain.BattleStateClosed, b.State(close))

	b.Finalized = true
	assert.Equal(t, domain.BattleStateFinalized, b.State(close))
}

func TestBattleSideMapping(t *testing.T) {
	t.Parallel()

	b := domain.Battle{AssetA: "doge.token", AssetB: "pepe.token"}

	side, ok := b.SideOf("doge.token")
	assert.True(t, ok)
	assert.Equal(t, domain.SideA, side)

	side, ok = b.SideOf("pepe.token")
	assert.True(t, ok)
	assert.Equal(t, domain.SideB, side)

	_, ok = b.SideOf("shib.token")
	assert.False(t, ok)

	assert.Equal(t, "doge.token", b.AssetOf(domain.SideA))
	assert.Equal(t, "pepe.token", b.AssetOf(domain.SideB))
	assert.Equal(t, domain.SideB, domain.SideA.Opposite())
	assert.Equal(t, domain.SideA, domain.SideB.Opposite())
}

func TestWinningSide(t *testing.T) {
	t.Parallel()

	assert.Equal(t, domain.SideA, domain.Battle{TotalValueA: 100, TotalValueB: 80}.WinningSide())
	assert.Equal(t, domain.SideB, domain.Battle{TotalValueA: 80, TotalValueB: 100}.WinningSide())
	assert.Equal(t, domain.SideA, domain.Battle{TotalValueA: 80, TotalValueB: 80}.WinningSide(), "tie resolves to side A")
}
