// Package notify declares the outbound event interfaces the engine emits on.
//
// The engine publishes minimal-diff updates and fire-and-forget progress
// increments; it never awaits or depends on a collaborator's outcome.
package notify

import (
	"context"

	"github.com/baduklab/arena/internal/engine/session"
)

// SessionUpdate describes a session change scoped to what moved. Heavy
// fields such as the full board are omitted unless IncludeBoard is set.
type SessionUpdate struct {
	SessionID     string
	Phase         session.Phase
	IncludeBoard  bool
	ChangedFields []string
}

// ParticipantUpdate describes a participant change scoped to changed fields.
type ParticipantUpdate struct {
	ParticipantID string
	ChangedFields []string
}

// Notifier receives presentation-layer update events.
type Notifier interface {
	SessionUpdated(ctx context.Context, update SessionUpdate)
	ParticipantUpdated(ctx context.Context, update ParticipantUpdate)
}

// QuestSink receives fire-and-forget progress increments keyed by event type.
type QuestSink interface {
	Increment(ctx context.Context, event string, participantID string, amount int)
}

// NopNotifier discards all updates.
type NopNotifier struct{}

func (NopNotifier) SessionUpdated(context.Context, SessionUpdate)         {}
func (NopNotifier) ParticipantUpdated(context.Context, ParticipantUpdate) {}

// NopQuestSink discards all increments.
type NopQuestSink struct{}

func (NopQuestSink) Increment(context.Context, string, string, int) {}
