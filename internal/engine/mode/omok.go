package mode

import (
	"context"
	"time"

	"github.com/baduklab/arena/internal/engine/board"
	"github.com/baduklab/arena/internal/engine/session"
	apperrors "github.com/baduklab/arena/internal/platform/errors"
)

const (
	omokMoveDeadline = 30 * time.Second
	omokWinLength    = 5
)

// omokHandler drives the line-formation playful game: alternate placements,
// first contiguous five wins, full board with no line is a genuine draw.
type omokHandler struct{}

func (h *omokHandler) Mode() session.Mode {
	return session.ModeOmok
}

func (h *omokHandler) MoveDeadline() time.Duration {
	return omokMoveDeadline
}

func (h *omokHandler) Draw() DrawPolicy {
	return DrawPolicy{AllowDraw: true}
}

func (h *omokHandler) Begin(s *session.GameSession, now time.Time) error {
	return s.Start(session.PhasePlaying, now.Add(omokMoveDeadline), now)
}

func (h *omokHandler) Advance(ctx context.Context, s *session.GameSession, now time.Time) error {
	if checkDisconnects(s, now) {
		return nil
	}
	if checkDeadline(s, now) {
		return nil
	}
	return nil
}

func (h *omokHandler) Apply(ctx context.Context, s *session.GameSession, m session.Move, now time.Time) error {
	if s.Phase != session.PhasePlaying {
		return apperrors.New(apperrors.CodeSessionPhaseDisallowsOp, "session not accepting moves")
	}

	switch m.Kind {
	case session.MovePlace:
		if err := s.ApplyMark(m.Seat, m.Point, session.MovePlace, now); err != nil {
			return err
		}
		s.Seats[m.Seat].Clock.CompleteMove()

		if s.Board.LineThrough(m.Point) >= omokWinLength {
			s.Seats[m.Seat].Score++
			s.Decide(m.Seat, session.ReasonLine, now)
			return nil
		}
		if len(s.Board.Stones(board.Empty)) == 0 {
			// Full board with no line: genuine draw.
			s.Decide(session.NoWinner, session.ReasonScore, now)
			return nil
		}
		s.Turn = session.OpponentOf(m.Seat)
	case session.MoveResign:
		return applyResign(s, m.Seat, now)
	default:
		return apperrors.New(apperrors.CodeMoveInvalidPayload, "unsupported action for mode")
	}

	resetDeadline(s, omokMoveDeadline, now)
	return nil
}
