package mode

import (
	"context"
	"time"

	"github.com/baduklab/arena/internal/engine/board"
	"github.com/baduklab/arena/internal/engine/session"
	apperrors "github.com/baduklab/arena/internal/platform/errors"
)

const (
	hiddenMoveDeadline = 60 * time.Second
	// subPhaseDeadline bounds the gated conceal/scan/strike windows.
	subPhaseDeadline = 20 * time.Second
	// scanRadius is the Chebyshev radius a scan uncovers.
	scanRadius = 1
)

// hiddenHandler extends the strategic protocol with gated sub-phases for
// concealed-stone placement, scanning, and targeted strikes. Each sub-phase
// is entered by explicit action and exits on completion or timeout, always
// returning to playing.
type hiddenHandler struct{}

func (h *hiddenHandler) Mode() session.Mode {
	return session.ModeHiddenBaduk
}

func (h *hiddenHandler) MoveDeadline() time.Duration {
	return hiddenMoveDeadline
}

func (h *hiddenHandler) Draw() DrawPolicy {
	return DrawPolicy{AllowDraw: false}
}

func (h *hiddenHandler) Begin(s *session.GameSession, now time.Time) error {
	return s.Start(session.PhasePlaying, now.Add(hiddenMoveDeadline), now)
}

func (h *hiddenHandler) Advance(ctx context.Context, s *session.GameSession, now time.Time) error {
	if checkDisconnects(s, now) {
		return nil
	}

	switch s.Phase {
	case session.PhaseConceal, session.PhaseScan, session.PhaseStrike:
		// Sub-phase timed out without completion: fall back to playing and
		// hand the turn over as if the seat had passed.
		if !s.PhaseDeadline.IsZero() && !now.Before(s.PhaseDeadline) {
			if err := s.TransitionPhase(session.PhasePlaying, now); err != nil {
				return err
			}
			if err := s.ApplyPass(s.Turn, now); err != nil {
				return err
			}
			resetDeadline(s, hiddenMoveDeadline, now)
		}
		return nil
	}

	if checkClock(s, now) {
		return nil
	}
	if checkDeadline(s, now) {
		return nil
	}
	return nil
}

func (h *hiddenHandler) Apply(ctx context.Context, s *session.GameSession, m session.Move, now time.Time) error {
	switch s.Phase {
	case session.PhasePlaying:
		return h.applyPlaying(s, m, now)
	case session.PhaseConceal:
		return h.applyConceal(s, m, now)
	case session.PhaseScan:
		return h.applyScan(s, m, now)
	case session.PhaseStrike:
		return h.applyStrike(s, m, now)
	}
	return apperrors.New(apperrors.CodeSessionPhaseDisallowsOp, "session not accepting moves")
}

func (h *hiddenHandler) applyPlaying(s *session.GameSession, m session.Move, now time.Time) error {
	switch m.Kind {
	case session.MovePlace:
		if err := s.ApplyPlacement(m.Seat, m.Point, now); err != nil {
			return err
		}
	case session.MovePass:
		if err := s.ApplyPass(m.Seat, now); err != nil {
			return err
		}
		if s.ConsecutivePasses() >= 2 {
			s.Decide(session.NoWinner, session.ReasonScore, now)
			return nil
		}
	case session.MoveResign:
		return applyResign(s, m.Seat, now)
	case session.MoveConceal, session.MoveScan, session.MoveStrike:
		// Explicit entry into the gated sub-phase; the follow-up action
		// carries the target point.
		if m.Seat != s.Turn {
			return apperrors.New(apperrors.CodeMoveWrongSeat, "not this seat's turn")
		}
		target := map[session.MoveKind]session.Phase{
			session.MoveConceal: session.PhaseConceal,
			session.MoveScan:    session.PhaseScan,
			session.MoveStrike:  session.PhaseStrike,
		}[m.Kind]
		if err := s.TransitionPhase(target, now); err != nil {
			return err
		}
		resetDeadline(s, subPhaseDeadline, now)
		return nil
	default:
		return apperrors.New(apperrors.CodeMoveInvalidPayload, "unsupported action for mode")
	}

	resetDeadline(s, hiddenMoveDeadline, now)
	return nil
}

// applyConceal records a hidden placement off-board. The stone surfaces via
// scan discovery or the terminal-reveal step.
func (h *hiddenHandler) applyConceal(s *session.GameSession, m session.Move, now time.Time) error {
	if m.Seat != s.Turn {
		return apperrors.New(apperrors.CodeMoveWrongSeat, "not this seat's turn")
	}
	if m.Kind != session.MoveConceal {
		return apperrors.New(apperrors.CodeMoveInvalidPayload, "conceal phase expects a conceal target")
	}
	if !s.Board.InBounds(m.Point) {
		return apperrors.New(apperrors.CodeMoveOutOfBounds, "point outside board")
	}
	if s.Board.At(m.Point) != board.Empty {
		return apperrors.New(apperrors.CodeMoveOccupied, "point already occupied")
	}

	seat := &s.Seats[m.Seat]
	seat.Concealed = append(seat.Concealed, m.Point)
	s.AppendAction(session.Move{Seat: m.Seat, Kind: session.MoveConceal, Point: m.Point}, now)
	return h.completeSubPhase(s, m.Seat, now)
}

// applyScan uncovers opponent concealed stones near the probe point and
// surfaces them onto the board.
func (h *hiddenHandler) applyScan(s *session.GameSession, m session.Move, now time.Time) error {
	if m.Seat != s.Turn {
		return apperrors.New(apperrors.CodeMoveWrongSeat, "not this seat's turn")
	}
	if m.Kind != session.MoveScan {
		return apperrors.New(apperrors.CodeMoveInvalidPayload, "scan phase expects a scan target")
	}
	if !s.Board.InBounds(m.Point) {
		return apperrors.New(apperrors.CodeMoveOutOfBounds, "point outside board")
	}

	opponent := &s.Seats[session.OpponentOf(m.Seat)]
	var remaining []board.Point
	for _, hiddenPoint := range opponent.Concealed {
		if chebyshev(hiddenPoint, m.Point) <= scanRadius {
			s.Board.Put(hiddenPoint, opponent.Color())
			continue
		}
		remaining = append(remaining, hiddenPoint)
	}
	opponent.Concealed = remaining

	s.AppendAction(session.Move{Seat: m.Seat, Kind: session.MoveScan, Point: m.Point}, now)
	return h.completeSubPhase(s, m.Seat, now)
}

// applyStrike destroys an opponent concealed stone at exactly the target
// point; a miss has no effect beyond spending the action.
func (h *hiddenHandler) applyStrike(s *session.GameSession, m session.Move, now time.Time) error {
	if m.Seat != s.Turn {
		return apperrors.New(apperrors.CodeMoveWrongSeat, "not this seat's turn")
	}
	if m.Kind != session.MoveStrike {
		return apperrors.New(apperrors.CodeMoveInvalidPayload, "strike phase expects a strike target")
	}
	if !s.Board.InBounds(m.Point) {
		return apperrors.New(apperrors.CodeMoveOutOfBounds, "point outside board")
	}

	opponent := &s.Seats[session.OpponentOf(m.Seat)]
	var remaining []board.Point
	for _, hiddenPoint := range opponent.Concealed {
		if hiddenPoint == m.Point {
			s.Seats[m.Seat].Captures++
			continue
		}
		remaining = append(remaining, hiddenPoint)
	}
	opponent.Concealed = remaining

	s.AppendAction(session.Move{Seat: m.Seat, Kind: session.MoveStrike, Point: m.Point}, now)
	return h.completeSubPhase(s, m.Seat, now)
}

// completeSubPhase returns to playing, hands over the turn, and restarts the
// move clock.
func (h *hiddenHandler) completeSubPhase(s *session.GameSession, seat int, now time.Time) error {
	if err := s.TransitionPhase(session.PhasePlaying, now); err != nil {
		return err
	}
	s.Seats[seat].Clock.CompleteMove()
	s.Turn = session.OpponentOf(seat)
	resetDeadline(s, hiddenMoveDeadline, now)
	return nil
}

func chebyshev(a, b board.Point) int {
	dx := a.X - b.X
	if dx < 0 {
		dx = -dx
	}
	dy := a.Y - b.Y
	if dy < 0 {
		dy = -dy
	}
	if dx > dy {
		return dx
	}
	return dy
}
