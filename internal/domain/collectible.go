package domain

import "time"

// RarityTier classifies a collectible. The tier is a pure function of the
// issuance id and is never persisted.
type RarityTier string

const (
	RarityVictoryChampion RarityTier = "victory_champion"
	RarityLegendary       RarityTier = "legendary"
	RarityEpic            RarityTier = "epic"
	RarityRare            RarityTier = "rare"
	RarityUncommon        RarityTier = "uncommon"
	RarityCommon          RarityTier = "common"
)

// RarityFor derives the rarity tier from an issuance id.
//
//	id mod 1000 == 0   -> victory champion (0.1%)
//	          <= 10    -> legendary        (1%)
//	          <= 50    -> epic             (4%)
//	          <= 150   -> rare             (10%)
//	          <= 350   -> uncommon         (20%)
//	          else     -> common           (64.9%)
func RarityFor(id int64) RarityTier {
	switch m := id % 1000; {
	case m == 0:
		return RarityVictoryChampion
	case m <= 10:
		return RarityLegendary
	case m <= 50:
		return RarityEpic
	case m <= 150:
		return RarityRare
	case m <= 350:
		return RarityUncommon
	default:
		return RarityCommon
	}
}

// Collectible is a receipt minted to a successful claimant. Issuance ids are
// assigned monotonically starting at 1 and are consumed even when the
// enclosing claim fails after allocation.
type Collectible struct {
	ID       int64
	Owner    string
	BattleID int64
	MintedAt time.Time
}

// Rarity returns the tier derived from the collectible's issuance id.
func (c Collectible) Rarity() RarityTier {
	return RarityFor(c.ID)
}
