package mode

import (
	"context"
	"time"

	"github.com/baduklab/arena/internal/engine/board"
	"github.com/baduklab/arena/internal/engine/session"
	apperrors "github.com/baduklab/arena/internal/platform/errors"
)

const (
	chaseStepDeadline = 20 * time.Second
	chaseCops         = 3
	// chaseMaxRounds is the survival horizon: an uncaught runner wins.
	chaseMaxRounds = 20
)

// chaseHandler drives the cops-and-robbers playful game. Seat 0 moves the
// cop stones, seat 1 the single runner; a cop stepping onto the runner ends
// the match by elimination, and a runner surviving the round limit wins.
type chaseHandler struct{}

func (h *chaseHandler) Mode() session.Mode {
	return session.ModeChase
}

func (h *chaseHandler) MoveDeadline() time.Duration {
	return chaseStepDeadline
}

func (h *chaseHandler) Draw() DrawPolicy {
	return DrawPolicy{AllowDraw: false}
}

func (h *chaseHandler) Begin(s *session.GameSession, now time.Time) error {
	if err := s.Start(session.PhasePlaying, now.Add(chaseStepDeadline), now); err != nil {
		return err
	}

	// Cops open spread along the top edge, the runner centered at the
	// bottom edge.
	size := s.Board.Size()
	for i := 0; i < chaseCops && i*2 < size; i++ {
		s.Board.Put(board.Point{X: i * 2, Y: 0}, board.Black)
	}
	s.Board.Put(board.Point{X: size / 2, Y: size - 1}, board.White)
	return nil
}

func (h *chaseHandler) Advance(ctx context.Context, s *session.GameSession, now time.Time) error {
	if checkDisconnects(s, now) {
		return nil
	}
	if checkDeadline(s, now) {
		return nil
	}
	return nil
}

func (h *chaseHandler) Apply(ctx context.Context, s *session.GameSession, m session.Move, now time.Time) error {
	if m.Kind == session.MoveResign {
		return applyResign(s, m.Seat, now)
	}
	if s.Phase != session.PhasePlaying {
		return apperrors.New(apperrors.CodeSessionPhaseDisallowsOp, "session not accepting moves")
	}
	if m.Kind != session.MoveStep {
		return apperrors.New(apperrors.CodeMoveInvalidPayload, "unsupported action for mode")
	}
	if m.Seat != s.Turn {
		return apperrors.New(apperrors.CodeMoveWrongSeat, "not this seat's turn")
	}

	color := s.Seats[m.Seat].Color()
	if s.Board.At(m.From) != color {
		return apperrors.New(apperrors.CodeMoveInvalidPayload, "step origin is not the seat's stone")
	}
	if !adjacent(m.From, m.Point) {
		return apperrors.New(apperrors.CodeMoveInvalidPayload, "step target not adjacent")
	}
	if !s.Board.InBounds(m.Point) {
		return apperrors.New(apperrors.CodeMoveOutOfBounds, "point outside board")
	}

	target := s.Board.At(m.Point)
	switch {
	case target == board.Empty:
		s.Board.Remove(m.From)
		s.Board.Put(m.Point, color)
	case m.Seat == 0 && target == color.Opponent():
		// Cop catches the runner.
		s.Board.Remove(m.From)
		s.Board.Remove(m.Point)
		s.Board.Put(m.Point, color)
		s.Seats[0].Captures++
		s.AppendAction(session.Move{Seat: m.Seat, Kind: session.MoveStep, From: m.From, Point: m.Point}, now)
		s.Decide(0, session.ReasonElimination, now)
		return nil
	default:
		return apperrors.New(apperrors.CodeMoveOccupied, "point already occupied")
	}

	s.AppendAction(session.Move{Seat: m.Seat, Kind: session.MoveStep, From: m.From, Point: m.Point}, now)
	s.Seats[m.Seat].Clock.CompleteMove()

	if m.Seat == 1 {
		s.Round++
		if s.Round >= chaseMaxRounds {
			// Runner outlasted the chase.
			s.Decide(1, session.ReasonScore, now)
			return nil
		}
	}

	s.Turn = session.OpponentOf(m.Seat)
	resetDeadline(s, chaseStepDeadline, now)
	return nil
}

func adjacent(a, b board.Point) bool {
	dx := a.X - b.X
	if dx < 0 {
		dx = -dx
	}
	dy := a.Y - b.Y
	if dy < 0 {
		dy = -dy
	}
	return dx+dy == 1
}
