package session

// SeatScore is one seat's share of a score breakdown.
type SeatScore struct {
	Territory           int
	Captures            int
	DeadStoneAdjustment int
	ModeBonuses         int

	// Komi applies to the second seat only.
	Komi float64

	// Total is a pure function of the components above.
	Total float64
}

// ComputeTotal derives the total from the breakdown components.
func (sc SeatScore) ComputeTotal() float64 {
	return float64(sc.Territory+sc.Captures+sc.DeadStoneAdjustment+sc.ModeBonuses) + sc.Komi
}

// ScoreTier labels which fallback tier produced the breakdown.
type ScoreTier string

const (
	ScoreTierAnalyzer ScoreTier = "analyzer"
	ScoreTierManual   ScoreTier = "manual"
	ScoreTierRandom   ScoreTier = "random"
)

// ScoreBreakdown is the per-seat scoring result attached once by the
// scoring pipeline.
type ScoreBreakdown struct {
	Seats [2]SeatScore

	// DeadStones lists adjudicated-dead points for presentation.
	DeadStones int

	// Tier records which fallback produced the result.
	Tier ScoreTier

	// Draw is set when the mode's draw policy declares a genuine draw.
	Draw bool
}

// RewardDelta is one participant's settlement outcome.
type RewardDelta struct {
	ParticipantID string
	Experience    int64
	Rating        int
	Manner        int
	Currency      int64
	Refund        int64

	// Drops lists granted loot item identifiers, at most one per table.
	Drops []string

	// PenaltyNotice is set for the seat responsible for early termination.
	PenaltyNotice bool
}

// SettlementSummary is the immutable per-participant reward record. Once
// attached it is never recomputed.
type SettlementSummary struct {
	Deltas [2]RewardDelta

	// Abandoned marks a settlement cut short by a missing participant
	// record. The session is still terminal.
	Abandoned bool
}
