package mode

import (
	"time"

	"github.com/baduklab/arena/internal/engine/session"
)

// DisconnectGrace is the reconnection window before a disconnected seat
// forfeits the match.
const DisconnectGrace = 90 * time.Second

// Early-termination thresholds: a match ending by resignation or disconnect
// inside either window is flagged for asymmetric refund handling.
const (
	earlyMoveThreshold = 8
	earlyTimeThreshold = 2 * time.Minute
)

// earlyTermination reports whether an ending now falls inside the
// early-termination window.
func earlyTermination(s *session.GameSession, now time.Time) bool {
	if s.MoveCount() < earlyMoveThreshold {
		return true
	}
	return !s.StartedAt.IsZero() && now.Sub(s.StartedAt) < earlyTimeThreshold
}

// checkDisconnects expires disconnect grace timers. When a seat's window
// lapses the opponent is awarded the match with reason timeout and the
// marker is cleared. Returns true when the session was decided.
func checkDisconnects(s *session.GameSession, now time.Time) bool {
	for i := range s.Seats {
		seat := &s.Seats[i]
		if seat.Connected || seat.DisconnectedFor(now) < DisconnectGrace {
			continue
		}
		if earlyTermination(s, now) {
			s.FlagEarlyTermination(i, now)
		} else {
			// Responsibility still attaches past the early window: the
			// disconnect loser takes the manner penalty at settlement.
			s.ResponsibleSeat = i
		}
		seat.MarkReconnected()
		s.Decide(session.OpponentOf(i), session.ReasonTimeout, now)
		return true
	}
	return false
}

// checkClock evaluates the active seat's clock against its elapsed thinking
// time and times the seat out once it flags. Evaluation works on a copy; the
// real deduction happens when the move is applied.
func checkClock(s *session.GameSession, now time.Time) bool {
	if s.TurnStartedAt.IsZero() {
		return false
	}
	clk := s.ActiveSeat().Clock
	if clk.Consume(now.Sub(s.TurnStartedAt)) {
		return false
	}
	s.ActiveSeat().Clock = clk
	s.Decide(session.OpponentOf(s.Turn), session.ReasonTimeout, now)
	return true
}

// checkDeadline evaluates the explicit per-phase deadline carried by every
// human-action-pending phase. An expired deadline times out the active seat.
func checkDeadline(s *session.GameSession, now time.Time) bool {
	if s.PhaseDeadline.IsZero() || now.Before(s.PhaseDeadline) {
		return false
	}
	s.Decide(session.OpponentOf(s.Turn), session.ReasonTimeout, now)
	return true
}

// applyResign shares the resignation path: record the move, decide for the
// opponent, and flag early termination against the resigning seat.
func applyResign(s *session.GameSession, seat int, now time.Time) error {
	if err := s.ApplyResignation(seat, now); err != nil {
		return err
	}
	if earlyTermination(s, now) {
		s.FlagEarlyTermination(seat, now)
	}
	return nil
}

// resetDeadline pushes the per-action time box after a completed action.
func resetDeadline(s *session.GameSession, d time.Duration, now time.Time) {
	s.PhaseDeadline = now.Add(d)
}
