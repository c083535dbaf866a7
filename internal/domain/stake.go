package domain

import "time"

// StakeEntry is a participant's recorded position on one side of one battle.
// Quantity accumulates across deposits and is zeroed exactly once on a
// successful claim. DeclaredValue is the cumulative caller-supplied valuation
// recorded at deposit time; it is never recomputed.
type StakeEntry struct {
	BattleID      int64
	Participant   string
	Side          Side
	Quantity      int64
	DeclaredValue int64
	UpdatedAt     time.Time
}

// ParticipantStats are global, monotonically non-decreasing counters per
// participant identity. They are mutated only by the settlement engine.
type ParticipantStats struct {
	Participant    string
	Wins           int64
	Participations int64
	RewardsPaid    int64
	UpdatedAt      time.Time
}
