package mode

import (
	"context"
	"time"

	"github.com/baduklab/arena/internal/engine/session"
	apperrors "github.com/baduklab/arena/internal/platform/errors"
)

const badukMoveDeadline = 60 * time.Second

// badukHandler drives the classic strategic board-capture protocol:
// strict turn alternation, pass-pass termination into scoring.
type badukHandler struct{}

func (h *badukHandler) Mode() session.Mode {
	return session.ModeBaduk
}

func (h *badukHandler) MoveDeadline() time.Duration {
	return badukMoveDeadline
}

func (h *badukHandler) Draw() DrawPolicy {
	// Komi makes equal totals impossible in strictly-scored play; ties
	// resolve toward the second seat rather than drawing.
	return DrawPolicy{AllowDraw: false}
}

func (h *badukHandler) Begin(s *session.GameSession, now time.Time) error {
	return s.Start(session.PhasePlaying, now.Add(badukMoveDeadline), now)
}

func (h *badukHandler) Advance(ctx context.Context, s *session.GameSession, now time.Time) error {
	if checkDisconnects(s, now) {
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

func (h *badukHandler) Apply(ctx context.Context, s *session.GameSession, m session.Move, now time.Time) error {
	if s.Phase != session.PhasePlaying {
		return apperrors.New(apperrors.CodeSessionPhaseDisallowsOp, "session not accepting moves")
	}

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
			// Winner stays undecided until the scoring pipeline runs.
			s.Decide(session.NoWinner, session.ReasonScore, now)
			return nil
		}
	case session.MoveResign:
		return applyResign(s, m.Seat, now)
	default:
		return apperrors.New(apperrors.CodeMoveInvalidPayload, "unsupported action for mode")
	}

	resetDeadline(s, badukMoveDeadline, now)
	return nil
}
