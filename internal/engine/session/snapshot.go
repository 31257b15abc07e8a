package session

import (
	"time"

	"github.com/baduklab/arena/internal/engine/board"
	apperrors "github.com/baduklab/arena/internal/platform/errors"
)

// Snapshot is an immutable copy of the scoring-relevant state, captured once
// when scoring begins. The pipeline scores against the snapshot, never the
// live session, so an in-flight restart cannot clobber active scoring.
type Snapshot struct {
	Board      *board.Board
	History    []Move
	Captures   [2]int
	Clocks     [2]Clock
	CapturedAt time.Time
}

// CaptureSnapshot freezes the board, history, counters, and clocks. Calling
// it again while a snapshot is held is a phase violation.
func (s *GameSession) CaptureSnapshot(now time.Time) error {
	if s.snapshot != nil {
		return apperrors.New(apperrors.CodeSessionPhaseDisallowsOp, "snapshot already captured")
	}
	history := make([]Move, len(s.History))
	copy(history, s.History)
	s.snapshot = &Snapshot{
		Board:      s.Board.Clone(),
		History:    history,
		Captures:   [2]int{s.Seats[0].Captures, s.Seats[1].Captures},
		Clocks:     [2]Clock{s.Seats[0].Clock, s.Seats[1].Clock},
		CapturedAt: now,
	}
	return nil
}

// Snapshot returns the frozen scoring snapshot, if one is held.
func (s *GameSession) Snapshot() *Snapshot {
	return s.snapshot
}

// Corrupted reports whether the live state diverged from the snapshot in a
// way the history invariant forbids: a shrunken history or a board dimension
// change. Both indicate an asynchronous reset raced the scoring pipeline.
func (s *GameSession) Corrupted() bool {
	if s.snapshot == nil {
		return false
	}
	if len(s.History) < len(s.snapshot.History) {
		return true
	}
	return s.Board.Size() != s.snapshot.Board.Size()
}

// RestoreSnapshot reapplies the frozen state over the live copy. Used by the
// corruption guard when rehydration raced an in-flight reset.
func (s *GameSession) RestoreSnapshot() error {
	if s.snapshot == nil {
		return apperrors.New(apperrors.CodeSessionHistoryCorrupt, "no snapshot to restore")
	}
	s.Board = s.snapshot.Board.Clone()
	history := make([]Move, len(s.snapshot.History))
	copy(history, s.snapshot.History)
	s.History = history
	s.Seats[0].Captures = s.snapshot.Captures[0]
	s.Seats[1].Captures = s.snapshot.Captures[1]
	s.Seats[0].Clock = s.snapshot.Clocks[0]
	s.Seats[1].Clock = s.snapshot.Clocks[1]
	return nil
}

// DiscardSnapshot drops the frozen state once scoring has completed.
func (s *GameSession) DiscardSnapshot() {
	s.snapshot = nil
}

// AdoptSnapshot installs a snapshot rehydrated from storage. A session saved
// mid-scoring must come back with its frozen state intact.
func (s *GameSession) AdoptSnapshot(snap *Snapshot) {
	s.snapshot = snap
}
