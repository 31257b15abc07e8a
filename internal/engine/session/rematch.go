package session

import (
	"time"

	apperrors "github.com/baduklab/arena/internal/platform/errors"
)

// BeginRematch moves an ended session into rematch_pending and returns a
// fresh pending session for the same pairing with the seats swapped. The
// caller supplies the new session id and the initial clock; everything else
// carries over from the finished match.
func (s *GameSession) BeginRematch(newID string, clock Clock, now time.Time) (*GameSession, error) {
	if s.Phase != PhaseEnded {
		return nil, apperrors.New(apperrors.CodeSessionPhaseDisallowsOp, "rematch requires an ended session")
	}
	if err := s.TransitionPhase(PhaseRematchPending, now); err != nil {
		return nil, err
	}

	settings := Settings{
		Mode:         s.Mode,
		Category:     s.Category,
		BoardSize:    s.Board.Size(),
		Komi:         s.Komi,
		InitialClock: clock,
		Participants: [2]string{s.Seats[1].ParticipantID, s.Seats[0].ParticipantID},
		BotSeat:      NoWinner,
		ResourceCost: s.ResourceCost,
		Ranked:       s.Ranked,
	}
	for i := range s.Seats {
		if s.Seats[i].Bot() {
			settings.BotSeat = OpponentOf(i)
			settings.BotID = s.Seats[i].BotID
			settings.BotTier = s.Seats[i].BotTier
		}
	}
	return New(newID, settings, now)
}
