package domain

// Engine record kinds written to the audit log and published on the signal
// bus. External read models (leaderboards, indexers) are built from these.
const (
	EventBattleCreated     = "battle_created"
	EventDepositRecorded   = "deposit_recorded"
	EventBattleFinalized   = "battle_finalized"
	EventRewardClaimed     = "reward_claimed"
	EventCollectibleMinted = "collectible_minted"
	EventFeesWithdrawn     = "fees_withdrawn"
)

// Signal bus channels and streams carrying engine records.
const (
	ChannelBattles = "ch:battles"
	ChannelClaims  = "ch:claims"
	StreamRecords  = "stream:records"
)
