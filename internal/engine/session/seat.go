package session

import (
	"time"

	"github.com/baduklab/arena/internal/engine/board"
)

// Seat is one of the two competing positions. The session exclusively owns
// its seat bindings; collaborators read seats through the aggregate.
type Seat struct {
	Index         int
	ParticipantID string

	// BotID is set when the seat is bot-controlled.
	BotID   string
	BotTier int

	Connected      bool
	DisconnectedAt *time.Time

	// Captures and Score are mutated only by legal-move application and by
	// the scoring pipeline.
	Captures int
	Score    int

	// Concealed holds hidden-stone placements not yet discovered by the
	// opponent. Revealed during the terminal-reveal step.
	Concealed []board.Point

	Clock Clock
}

// Bot reports whether the seat is controlled by a bot identity.
func (s *Seat) Bot() bool {
	return s.BotID != ""
}

// Color returns the stone color conventionally assigned to the seat index.
func (s *Seat) Color() board.Color {
	if s.Index == 0 {
		return board.Black
	}
	return board.White
}

// MarkDisconnected starts the reconnection grace window.
func (s *Seat) MarkDisconnected(now time.Time) {
	if !s.Connected {
		return
	}
	s.Connected = false
	at := now
	s.DisconnectedAt = &at
}

// MarkReconnected clears the disconnection marker.
func (s *Seat) MarkReconnected() {
	s.Connected = true
	s.DisconnectedAt = nil
}

// DisconnectedFor returns how long the seat has been gone, or zero.
func (s *Seat) DisconnectedFor(now time.Time) time.Duration {
	if s.Connected || s.DisconnectedAt == nil {
		return 0
	}
	return now.Sub(*s.DisconnectedAt)
}
