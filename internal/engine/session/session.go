// Package session defines the match aggregate driven by the engine tick loop.
//
// A GameSession owns its board, seats, clocks, and move history. All state
// transitions flow through methods on the aggregate so the invariants hold:
// the board mutates only via legal-move application, history only grows while
// playing, and analysis/settlement results are write-once.
package session

import (
	"time"

	"github.com/baduklab/arena/internal/engine/board"
	apperrors "github.com/baduklab/arena/internal/platform/errors"
)

// Mode identifies the game family protocol a session runs.
type Mode string

const (
	ModeBaduk       Mode = "baduk"
	ModeHiddenBaduk Mode = "hidden_baduk"
	ModeOmok        Mode = "omok"
	ModeYacht       Mode = "yacht"
	ModeAlkkagi     Mode = "alkkagi"
	ModeChase       Mode = "chase"
)

// Family groups modes by scoring discipline.
type Family string

const (
	FamilyStrategic Family = "strategic"
	FamilyPlayful   Family = "playful"
)

// Family returns the scoring family for the mode.
func (m Mode) Family() Family {
	switch m {
	case ModeBaduk, ModeHiddenBaduk:
		return FamilyStrategic
	}
	return FamilyPlayful
}

// Valid reports whether the mode is a known game family.
func (m Mode) Valid() bool {
	switch m {
	case ModeBaduk, ModeHiddenBaduk, ModeOmok, ModeYacht, ModeAlkkagi, ModeChase:
		return true
	}
	return false
}

// Category distinguishes match contexts with different reward rules.
type Category string

const (
	CategoryNormal    Category = "normal"
	CategorySingle    Category = "single"
	CategoryChallenge Category = "challenge"
)

// Phase is the discriminated session status. Transitions are one-directional
// except the explicit rematch path out of ended.
type Phase string

const (
	PhasePending Phase = "pending"
	PhasePlaying Phase = "playing"

	// Hidden-baduk sub-phases.
	PhaseConceal Phase = "conceal"
	PhaseScan    Phase = "scan"
	PhaseStrike  Phase = "strike"

	// Playful sub-phases.
	PhaseRoll        Phase = "roll"
	PhaseRollAnimate Phase = "roll_animate"
	PhasePlace       Phase = "place"
	PhaseSimulPlace  Phase = "simultaneous_place"
	PhasePlay        Phase = "play"
	PhaseRoundEnd    Phase = "round_end"

	PhaseScoring        Phase = "scoring"
	PhaseTerminalReveal Phase = "terminal_reveal"
	PhaseEnded          Phase = "ended"
	PhaseVoided         Phase = "voided"
	PhaseRematchPending Phase = "rematch_pending"
)

// Terminal reports whether the phase admits no further play.
func (p Phase) Terminal() bool {
	return p == PhaseEnded || p == PhaseVoided
}

// Protected reports whether the scheduler must not mutate the session.
// Scoring phases freeze the aggregate until the pipeline completes.
func (p Phase) Protected() bool {
	return p == PhaseScoring || p == PhaseTerminalReveal
}

// Active reports whether the session is in live play, including sub-phases.
func (p Phase) Active() bool {
	switch p {
	case PhasePlaying, PhaseConceal, PhaseScan, PhaseStrike,
		PhaseRoll, PhaseRollAnimate, PhasePlace, PhaseSimulPlace,
		PhasePlay, PhaseRoundEnd:
		return true
	}
	return false
}

// phaseSuccessors defines the legal one-directional transition graph.
var phaseSuccessors = map[Phase][]Phase{
	PhasePending: {PhasePlaying, PhaseRoll, PhaseSimulPlace, PhaseConceal, PhaseVoided},
	PhasePlaying: {PhaseConceal, PhaseScan, PhaseStrike, PhaseScoring, PhaseEnded, PhaseVoided},
	PhaseConceal: {PhasePlaying, PhaseScoring},
	PhaseScan:    {PhasePlaying, PhaseScoring},
	PhaseStrike:  {PhasePlaying, PhaseScoring},

	PhaseRoll:        {PhaseRollAnimate, PhaseEnded, PhaseVoided, PhaseScoring},
	PhaseRollAnimate: {PhasePlace},
	PhasePlace:       {PhaseRoll, PhaseRoundEnd, PhaseEnded, PhaseVoided, PhaseScoring},
	PhaseSimulPlace:  {PhasePlay},
	PhasePlay:        {PhaseRoundEnd, PhaseEnded, PhaseVoided, PhaseScoring},
	PhaseRoundEnd:    {PhaseSimulPlace, PhasePlay, PhaseRoll, PhaseScoring, PhaseEnded, PhaseVoided},

	PhaseScoring:        {PhaseTerminalReveal, PhaseEnded, PhaseVoided},
	PhaseTerminalReveal: {PhaseScoring},
	PhaseEnded:          {PhaseRematchPending},
	PhaseRematchPending: {},
	PhaseVoided:         {},
}

// ProcessingState is the per-session scheduler ownership marker. It replaces
// any process-wide registry keyed by session id: one compare-and-set field on
// the aggregate itself.
type ProcessingState string

const (
	ProcessingIdle        ProcessingState = "idle"
	ProcessingBotThinking ProcessingState = "bot_thinking"
	ProcessingBotMoving   ProcessingState = "bot_moving"
	ProcessingScoring     ProcessingState = "scoring"
)

// EndReason records why a match reached a terminal state.
type EndReason string

const (
	ReasonScore       EndReason = "score"
	ReasonResignation EndReason = "resignation"
	ReasonTimeout     EndReason = "timeout"
	ReasonCapture     EndReason = "capture"
	ReasonLine        EndReason = "line"
	ReasonElimination EndReason = "elimination"
	ReasonVoid        EndReason = "void"
)

// NoWinner marks a session whose winner seat is undecided or drawn.
const NoWinner = -1

// GameSession is the aggregate root for one live match.
type GameSession struct {
	ID       string
	Mode     Mode
	Category Category

	Board *board.Board
	Seats [2]Seat

	// Turn is the index of the active seat.
	Turn int

	Phase         Phase
	PhaseDeadline time.Time

	// TurnStartedAt anchors the active seat's thinking time. Set on start
	// and on every turn handover; clock consumption measures against it.
	TurnStartedAt time.Time

	// History is append-only while playing and frozen once scoring begins.
	History []Move

	// Round counts completed playful rounds; strategic modes leave it zero.
	Round int

	// Komi is the second seat's compensation in scoring points.
	Komi float64

	// Winner is a seat index or NoWinner.
	Winner    int
	EndReason EndReason

	// EarlyTermination and ResponsibleSeat drive asymmetric settlement.
	EarlyTermination bool
	ResponsibleSeat  int

	// Analysis is write-once by the scoring pipeline.
	Analysis *ScoreBreakdown

	// Settlement is write-once by the settlement service, terminal.
	Settlement *SettlementSummary

	// ResourceCost is the per-seat entry cost refunded asymmetrically on
	// early termination.
	ResourceCost int64

	// Ranked gates rating and full-reward computation.
	Ranked bool

	// Processing is the scheduler's compare-and-set ownership marker.
	Processing ProcessingState

	// BotThinkingUntil delays bot action to mimic deliberation.
	BotThinkingUntil time.Time

	snapshot *Snapshot

	CreatedAt time.Time
	StartedAt time.Time
	UpdatedAt time.Time
	EndedAt   *time.Time
}

// Settings carries the negotiated parameters for a new session.
type Settings struct {
	Mode          Mode
	Category      Category
	BoardSize     int
	Komi          float64
	InitialClock  Clock
	Participants  [2]string
	BotSeat       int // NoWinner when both seats are human
	BotID         string
	BotTier       int
	ResourceCost  int64
	Ranked        bool
}

// New constructs a pending session from a finalized negotiation proposal.
func New(id string, settings Settings, now time.Time) (*GameSession, error) {
	if !settings.Mode.Valid() {
		return nil, apperrors.New(apperrors.CodeSessionInvalidMode, "unknown game mode")
	}
	b, err := board.New(settings.BoardSize)
	if err != nil {
		return nil, err
	}

	s := &GameSession{
		ID:              id,
		Mode:            settings.Mode,
		Category:        settings.Category,
		Board:           b,
		Phase:           PhasePending,
		Turn:            0,
		Komi:            settings.Komi,
		Winner:          NoWinner,
		ResponsibleSeat: NoWinner,
		Processing:      ProcessingIdle,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	for i := range s.Seats {
		s.Seats[i] = Seat{
			Index:         i,
			ParticipantID: settings.Participants[i],
			Connected:     true,
			Clock:         settings.InitialClock,
		}
	}
	if settings.BotSeat == 0 || settings.BotSeat == 1 {
		s.Seats[settings.BotSeat].BotID = settings.BotID
		s.Seats[settings.BotSeat].BotTier = settings.BotTier
	}
	s.ResourceCost = settings.ResourceCost
	s.Ranked = settings.Ranked
	return s, nil
}

// ActiveSeat returns the seat whose action the session is waiting on.
func (s *GameSession) ActiveSeat() *Seat {
	return &s.Seats[s.Turn]
}

// OpponentOf returns the index of the other seat.
func OpponentOf(seat int) int {
	if seat == 0 {
		return 1
	}
	return 0
}

// TransitionPhase moves the session to the target phase, enforcing the
// one-directional transition graph.
func (s *GameSession) TransitionPhase(to Phase, now time.Time) error {
	for _, allowed := range phaseSuccessors[s.Phase] {
		if allowed == to {
			s.Phase = to
			s.UpdatedAt = now
			if to.Terminal() {
				endedAt := now
				s.EndedAt = &endedAt
			}
			return nil
		}
	}
	return apperrors.WithMetadata(apperrors.CodeSessionInvalidPhaseTransition,
		"phase transition not allowed",
		map[string]string{"from": string(s.Phase), "to": string(to)})
}

// TryAcquireProcessing performs the compare-and-set transition from the
// expected processing state. The tick loop owns a session's updates, so the
// check guards against re-entrant scheduling, not parallel writers.
func (s *GameSession) TryAcquireProcessing(from, to ProcessingState) bool {
	if s.Processing != from {
		return false
	}
	s.Processing = to
	return true
}

// ReleaseProcessing returns the session to idle.
func (s *GameSession) ReleaseProcessing() {
	s.Processing = ProcessingIdle
}

// Start binds the clocks and moves a pending session into its opening phase.
func (s *GameSession) Start(opening Phase, deadline time.Time, now time.Time) error {
	if s.Phase != PhasePending {
		return apperrors.New(apperrors.CodeSessionPhaseDisallowsOp, "session already started")
	}
	for i := range s.Seats {
		if s.Seats[i].ParticipantID == "" {
			return apperrors.New(apperrors.CodeSessionSeatUnbound, "seat missing participant")
		}
	}
	if err := s.TransitionPhase(opening, now); err != nil {
		return err
	}
	s.StartedAt = now
	s.PhaseDeadline = deadline
	s.TurnStartedAt = now
	return nil
}

// AttachAnalysis records the score breakdown. Write-once.
func (s *GameSession) AttachAnalysis(breakdown ScoreBreakdown) error {
	if s.Analysis != nil {
		return apperrors.New(apperrors.CodeScoringAlreadyAttached, "analysis already attached")
	}
	s.Analysis = &breakdown
	return nil
}

// AttachSettlement records the settlement summary. Write-once, terminal.
func (s *GameSession) AttachSettlement(summary SettlementSummary) error {
	if s.Settlement != nil {
		return apperrors.New(apperrors.CodeSettlementAlreadySettled, "settlement already attached")
	}
	s.Settlement = &summary
	return nil
}

// Decide records the terminal outcome before the scoring handoff.
func (s *GameSession) Decide(winner int, reason EndReason, now time.Time) {
	s.Winner = winner
	s.EndReason = reason
	s.UpdatedAt = now
}

// Decided reports whether a terminal outcome has been recorded.
func (s *GameSession) Decided() bool {
	return s.EndReason != ""
}

// FlagEarlyTermination attributes responsibility for a premature ending.
func (s *GameSession) FlagEarlyTermination(responsible int, now time.Time) {
	s.EarlyTermination = true
	s.ResponsibleSeat = responsible
	s.UpdatedAt = now
}
