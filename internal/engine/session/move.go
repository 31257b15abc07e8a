package session

import (
	"time"

	"github.com/baduklab/arena/internal/engine/board"
	apperrors "github.com/baduklab/arena/internal/platform/errors"
)

// MoveKind discriminates the actions a seat can take.
type MoveKind string

const (
	MovePlace   MoveKind = "place"
	MovePass    MoveKind = "pass"
	MoveResign  MoveKind = "resign"
	MoveRoll    MoveKind = "roll"
	MoveFlick   MoveKind = "flick"
	MoveStep    MoveKind = "step"
	MoveConceal MoveKind = "conceal"
	MoveScan    MoveKind = "scan"
	MoveStrike  MoveKind = "strike"
)

// Move is one entry in the append-only match history.
type Move struct {
	Seq  int
	Seat int
	Kind MoveKind

	// Point is the target cell for placement-like kinds.
	Point board.Point

	// From is the origin cell for step and flick kinds.
	From board.Point

	// Dice holds rolled values for roll and compound roll-place actions.
	Dice []int

	PlayedAt time.Time
}

// ApplyPlacement applies a stone placement for the given seat, updating the
// board, capture counters, history, and turn. It is the single mutation path
// for the board during play.
func (s *GameSession) ApplyPlacement(seat int, p board.Point, now time.Time) error {
	if seat != s.Turn {
		return apperrors.New(apperrors.CodeMoveWrongSeat, "not this seat's turn")
	}
	captured, err := s.Board.Place(p, s.Seats[seat].Color())
	if err != nil {
		return err
	}
	s.Seats[seat].Captures += len(captured)
	s.appendMove(Move{Seat: seat, Kind: MovePlace, Point: p, PlayedAt: now})
	s.consumeThinkingTime(seat, now)
	s.Seats[seat].Clock.CompleteMove()
	s.Turn = OpponentOf(seat)
	s.TurnStartedAt = now
	s.UpdatedAt = now
	return nil
}

// ApplyMark places a stone without capture mechanics, for modes whose
// placements never remove stones (omok, yacht placement, chase setup).
func (s *GameSession) ApplyMark(seat int, p board.Point, kind MoveKind, now time.Time) error {
	if seat != s.Turn {
		return apperrors.New(apperrors.CodeMoveWrongSeat, "not this seat's turn")
	}
	if !s.Board.InBounds(p) {
		return apperrors.New(apperrors.CodeMoveOutOfBounds, "point outside board")
	}
	if s.Board.At(p) != board.Empty {
		return apperrors.New(apperrors.CodeMoveOccupied, "point already occupied")
	}
	s.Board.Put(p, s.Seats[seat].Color())
	s.appendMove(Move{Seat: seat, Kind: kind, Point: p, PlayedAt: now})
	s.UpdatedAt = now
	return nil
}

// ApplyPass records a pass for the active seat and hands the turn over.
func (s *GameSession) ApplyPass(seat int, now time.Time) error {
	if seat != s.Turn {
		return apperrors.New(apperrors.CodeMoveWrongSeat, "not this seat's turn")
	}
	s.Board.ClearKo()
	s.appendMove(Move{Seat: seat, Kind: MovePass, PlayedAt: now})
	s.consumeThinkingTime(seat, now)
	s.Seats[seat].Clock.CompleteMove()
	s.Turn = OpponentOf(seat)
	s.TurnStartedAt = now
	s.UpdatedAt = now
	return nil
}

// ApplyResignation records the resignation and decides the match for the
// opponent. The caller is responsible for the scoring handoff.
func (s *GameSession) ApplyResignation(seat int, now time.Time) error {
	if !s.Phase.Active() {
		return apperrors.New(apperrors.CodeSessionPhaseDisallowsOp, "session not in play")
	}
	s.appendMove(Move{Seat: seat, Kind: MoveResign, PlayedAt: now})
	s.Decide(OpponentOf(seat), ReasonResignation, now)
	return nil
}

// AppendAction records a non-placement action (roll, flick, step, conceal,
// scan, strike) in the history. Mode handlers own the board effects.
func (s *GameSession) AppendAction(m Move, now time.Time) {
	m.PlayedAt = now
	s.appendMove(m)
	s.UpdatedAt = now
}

// ConsecutivePasses returns the trailing run of passes in the history.
func (s *GameSession) ConsecutivePasses() int {
	count := 0
	for i := len(s.History) - 1; i >= 0; i-- {
		if s.History[i].Kind != MovePass {
			break
		}
		count++
	}
	return count
}

// MoveCount returns the number of recorded actions.
func (s *GameSession) MoveCount() int {
	return len(s.History)
}

func (s *GameSession) appendMove(m Move) {
	m.Seq = len(s.History) + 1
	s.History = append(s.History, m)
}

// consumeThinkingTime deducts the seat's elapsed thinking time from its
// clock discipline. Flagging is decided by the mode contract on advance,
// never at move time.
func (s *GameSession) consumeThinkingTime(seat int, now time.Time) {
	if s.TurnStartedAt.IsZero() {
		return
	}
	s.Seats[seat].Clock.Consume(now.Sub(s.TurnStartedAt))
}
