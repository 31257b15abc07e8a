package mode

import (
	"context"
	"time"

	"github.com/baduklab/arena/internal/engine/board"
	"github.com/baduklab/arena/internal/engine/session"
	apperrors "github.com/baduklab/arena/internal/platform/errors"
)

const (
	alkkagiFlickDeadline = 25 * time.Second
	// alkkagiStones is each seat's starting row of stones.
	alkkagiStones = 8
)

// alkkagiHandler drives the physics-flick playful game. The client resolves
// the physics; the engine validates the reported outcome (own stone flicked,
// knocked-out stones removed) and detects elimination. Stones start in two
// facing rows placed by the engine, so play opens directly in the play phase
// after the simultaneous placement step.
type alkkagiHandler struct{}

func (h *alkkagiHandler) Mode() session.Mode {
	return session.ModeAlkkagi
}

func (h *alkkagiHandler) MoveDeadline() time.Duration {
	return alkkagiFlickDeadline
}

func (h *alkkagiHandler) Draw() DrawPolicy {
	return DrawPolicy{AllowDraw: true}
}

func (h *alkkagiHandler) Begin(s *session.GameSession, now time.Time) error {
	if err := s.Start(session.PhaseSimulPlace, now.Add(alkkagiFlickDeadline), now); err != nil {
		return err
	}

	// Seed both rows; the simultaneous-place phase is the reveal window for
	// the pre-placed formation.
	size := s.Board.Size()
	count := alkkagiStones
	if count > size {
		count = size
	}
	offset := (size - count) / 2
	for i := 0; i < count; i++ {
		s.Board.Put(board.Point{X: offset + i, Y: 1}, board.Black)
		s.Board.Put(board.Point{X: offset + i, Y: size - 2}, board.White)
	}

	if err := s.TransitionPhase(session.PhasePlay, now); err != nil {
		return err
	}
	resetDeadline(s, alkkagiFlickDeadline, now)
	return nil
}

func (h *alkkagiHandler) Advance(ctx context.Context, s *session.GameSession, now time.Time) error {
	if checkDisconnects(s, now) {
		return nil
	}
	if s.Phase == session.PhasePlay && checkDeadline(s, now) {
		return nil
	}
	return nil
}

func (h *alkkagiHandler) Apply(ctx context.Context, s *session.GameSession, m session.Move, now time.Time) error {
	if m.Kind == session.MoveResign {
		return applyResign(s, m.Seat, now)
	}
	if s.Phase != session.PhasePlay {
		return apperrors.New(apperrors.CodeSessionPhaseDisallowsOp, "session not accepting moves")
	}
	if m.Kind != session.MoveFlick {
		return apperrors.New(apperrors.CodeMoveInvalidPayload, "unsupported action for mode")
	}
	if m.Seat != s.Turn {
		return apperrors.New(apperrors.CodeMoveWrongSeat, "not this seat's turn")
	}

	color := s.Seats[m.Seat].Color()
	if s.Board.At(m.From) != color {
		return apperrors.New(apperrors.CodeMoveInvalidPayload, "flick origin is not the seat's stone")
	}

	// Point carries the knocked-out target; a miss reports the origin
	// itself, spending the turn with no removal.
	if m.Point != m.From {
		if s.Board.At(m.Point) != color.Opponent() {
			return apperrors.New(apperrors.CodeMoveInvalidPayload, "knockout target is not an opponent stone")
		}
		s.Board.Remove(m.Point)
		s.Seats[m.Seat].Captures++
	}

	s.AppendAction(session.Move{Seat: m.Seat, Kind: session.MoveFlick, From: m.From, Point: m.Point}, now)
	s.Seats[m.Seat].Clock.CompleteMove()

	opponent := session.OpponentOf(m.Seat)
	if len(s.Board.Stones(s.Seats[opponent].Color())) == 0 {
		s.Decide(m.Seat, session.ReasonElimination, now)
		return nil
	}

	s.Turn = opponent
	resetDeadline(s, alkkagiFlickDeadline, now)
	return nil
}
