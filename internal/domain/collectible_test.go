package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/coinarena/arenad/internal/domain"
)

func TestRarityFor(t *testing.T) {
	t.Parallel()

	cases := []struct {
		id   int64
		want domain.RarityTier
	}{
		{1000, domain.RarityVictoryChampion},
		{2000, domain.RarityVictoryChampion},
		{1, domain.RarityLegendary},
		{10, domain.RarityLegendary},
		{11, domain.RarityEpic},
		{1011, domain.RarityEpic},
		{50, domain.RarityEpic},
		{51, domain.RarityRare},
		{150, domain.RarityRare},
		{151, domain.RarityUncommon},
		{350, domain.RarityUncommon},
		{351, domain.RarityCommon},
		{999, domain.RarityCommon},
		{1500, domain.RarityCommon},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, domain.RarityFor(tc.id), "id %d", tc.id)
	}
}

func TestCollectibleRarityMatchesID(t *testing.T) {
	t.Parallel()

	c := domain.Collectible{ID: 1011, Owner: "alice"}
	assert.Equal(t, domain.RarityEpic, c.Rarity())
}
