// Package mode hosts the per-family state machines behind one contract.
//
// Every handler advances exactly one protocol step per Advance invocation and
// funnels seat actions through Apply under the same legality rules for humans
// and bots. Mode dispatch happens through a single lookup table instead of
// string switches at call sites.
package mode

import (
	"context"
	"time"

	"github.com/baduklab/arena/internal/engine/session"
	apperrors "github.com/baduklab/arena/internal/platform/errors"
)

// DrawPolicy declares how a mode resolves equal terminal totals. Strict
// modes break ties with komi toward the second seat; playful modes may
// declare a genuine no-winner draw.
type DrawPolicy struct {
	AllowDraw bool
}

// Handler is the per-family protocol state machine.
type Handler interface {
	// Mode identifies the family this handler drives.
	Mode() session.Mode

	// Begin moves a fully-bound pending session into its opening phase and
	// seeds any mode-specific starting position.
	Begin(s *session.GameSession, now time.Time) error

	// Advance performs exactly one protocol step: deadline evaluation,
	// disconnect grace, and sub-phase stepping. It never blocks.
	Advance(ctx context.Context, s *session.GameSession, now time.Time) error

	// Apply validates and applies one seat action.
	Apply(ctx context.Context, s *session.GameSession, m session.Move, now time.Time) error

	// MoveDeadline is the per-action time box for human-pending phases.
	MoveDeadline() time.Duration

	// Draw returns the mode's tie-resolution policy.
	Draw() DrawPolicy
}

// handlers is the mode-to-handler lookup table, resolved once per tick per
// session rather than re-dispatched by string at every call site.
var handlers = map[session.Mode]Handler{
	session.ModeBaduk:       &badukHandler{},
	session.ModeHiddenBaduk: &hiddenHandler{},
	session.ModeOmok:        &omokHandler{},
	session.ModeYacht:       &yachtHandler{},
	session.ModeAlkkagi:     &alkkagiHandler{},
	session.ModeChase:       &chaseHandler{},
}

// ForMode resolves the handler for a mode.
func ForMode(m session.Mode) (Handler, error) {
	h, ok := handlers[m]
	if !ok {
		return nil, apperrors.WithMetadata(apperrors.CodeSessionInvalidMode,
			"no handler for mode", map[string]string{"mode": string(m)})
	}
	return h, nil
}
