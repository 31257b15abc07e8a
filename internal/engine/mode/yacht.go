package mode

import (
	"context"
	"time"

	"github.com/baduklab/arena/internal/engine/session"
	apperrors "github.com/baduklab/arena/internal/platform/errors"
)

const (
	yachtRollDeadline  = 20 * time.Second
	yachtPlaceDeadline = 30 * time.Second
	// yachtAnimateWindow gates placement until the roll animation settles.
	yachtAnimateWindow = 2 * time.Second
	// yachtTargetScore ends the match once a seat accumulates this many
	// placed stones.
	yachtTargetScore = 30
	yachtMaxRounds   = 12
	yachtDieSides    = 6
)

// yachtHandler drives the dice-placement playful game through its private
// roll -> roll-animate -> place -> roll sequence. The roll value fixes how
// many stones the seat places before the turn passes.
type yachtHandler struct{}

func (h *yachtHandler) Mode() session.Mode {
	return session.ModeYacht
}

func (h *yachtHandler) MoveDeadline() time.Duration {
	return yachtRollDeadline
}

func (h *yachtHandler) Draw() DrawPolicy {
	return DrawPolicy{AllowDraw: true}
}

func (h *yachtHandler) Begin(s *session.GameSession, now time.Time) error {
	return s.Start(session.PhaseRoll, now.Add(yachtRollDeadline), now)
}

func (h *yachtHandler) Advance(ctx context.Context, s *session.GameSession, now time.Time) error {
	if checkDisconnects(s, now) {
		return nil
	}

	if s.Phase == session.PhaseRollAnimate {
		// State-gated animation window, not a player deadline.
		if !now.Before(s.PhaseDeadline) {
			if err := s.TransitionPhase(session.PhasePlace, now); err != nil {
				return err
			}
			resetDeadline(s, yachtPlaceDeadline, now)
		}
		return nil
	}

	if checkDeadline(s, now) {
		return nil
	}
	return nil
}

func (h *yachtHandler) Apply(ctx context.Context, s *session.GameSession, m session.Move, now time.Time) error {
	if m.Kind == session.MoveResign {
		return applyResign(s, m.Seat, now)
	}

	switch s.Phase {
	case session.PhaseRoll:
		if m.Kind != session.MoveRoll {
			return apperrors.New(apperrors.CodeMoveInvalidPayload, "roll phase expects a roll")
		}
		if m.Seat != s.Turn {
			return apperrors.New(apperrors.CodeMoveWrongSeat, "not this seat's turn")
		}
		if len(m.Dice) == 0 || m.Dice[0] < 1 || m.Dice[0] > yachtDieSides {
			return apperrors.New(apperrors.CodeMoveInvalidPayload, "roll requires one die value")
		}
		s.AppendAction(session.Move{Seat: m.Seat, Kind: session.MoveRoll, Dice: m.Dice}, now)
		if err := s.TransitionPhase(session.PhaseRollAnimate, now); err != nil {
			return err
		}
		resetDeadline(s, yachtAnimateWindow, now)
		return nil

	case session.PhasePlace:
		if m.Kind != session.MovePlace {
			return apperrors.New(apperrors.CodeMoveInvalidPayload, "place phase expects a placement")
		}
		if err := s.ApplyMark(m.Seat, m.Point, session.MovePlace, now); err != nil {
			return err
		}
		s.Seats[m.Seat].Score++

		if s.Seats[m.Seat].Score >= yachtTargetScore {
			s.Decide(m.Seat, session.ReasonCapture, now)
			return nil
		}

		if h.placementsRemaining(s, m.Seat) > 0 {
			resetDeadline(s, yachtPlaceDeadline, now)
			return nil
		}

		// Placement quota filled: hand the turn over and count rounds when
		// the second seat finishes.
		s.Seats[m.Seat].Clock.CompleteMove()
		if m.Seat == 1 {
			s.Round++
			if s.Round >= yachtMaxRounds {
				h.decideByScore(s, now)
				return nil
			}
		}
		s.Turn = session.OpponentOf(m.Seat)
		if err := s.TransitionPhase(session.PhaseRoll, now); err != nil {
			return err
		}
		resetDeadline(s, yachtRollDeadline, now)
		return nil
	}

	return apperrors.New(apperrors.CodeSessionPhaseDisallowsOp, "session not accepting moves")
}

// placementsRemaining counts how many stones of the current roll quota the
// seat still has to place. The quota is the value of the seat's latest roll.
func (h *yachtHandler) placementsRemaining(s *session.GameSession, seat int) int {
	quota := 0
	placed := 0
	for i := len(s.History) - 1; i >= 0; i-- {
		m := s.History[i]
		if m.Seat != seat {
			continue
		}
		if m.Kind == session.MoveRoll {
			quota = m.Dice[0]
			break
		}
		if m.Kind == session.MovePlace {
			placed++
		}
	}
	remaining := quota - placed
	if remaining < 0 {
		return 0
	}
	return remaining
}

// decideByScore ends the match on the round limit: higher stone count wins,
// equal counts are a genuine draw under this mode's policy.
func (h *yachtHandler) decideByScore(s *session.GameSession, now time.Time) {
	switch {
	case s.Seats[0].Score > s.Seats[1].Score:
		s.Decide(0, session.ReasonScore, now)
	case s.Seats[1].Score > s.Seats[0].Score:
		s.Decide(1, session.ReasonScore, now)
	default:
		s.Decide(session.NoWinner, session.ReasonScore, now)
	}
}
