// Package bot produces legal actions for AI-controlled seats.
//
// Lower difficulty tiers walk a prioritized rule cascade where each rule
// fires only with a tier-scaled probability, so weaker tiers skip tactics
// stochastically. Higher tiers delegate to a stronger external policy and
// fall back to the cascade when that collaborator fails.
package bot

import (
	"context"
	"math/rand"
	"time"

	"github.com/baduklab/arena/internal/engine/mode"
	"github.com/baduklab/arena/internal/engine/session"
	apperrors "github.com/baduklab/arena/internal/platform/errors"
	"github.com/baduklab/arena/internal/random"
)

// Policy is the stronger heuristic engine consulted for high-tier seats.
type Policy interface {
	Propose(ctx context.Context, s *session.GameSession) (session.Move, error)
}

// policyTier is the lowest tier that consults the external policy.
const policyTier = 4

// tierProfiles maps a difficulty tier to per-rule application probability.
// Rules are ordered: winning capture, block winning capture, max capture,
// create atari, rescue atari, adjacent. The terminal uniform-random rule
// always applies.
var tierProfiles = map[int][6]float64{
	1: {0.25, 0.25, 0.35, 0.20, 0.30, 0.60},
	2: {0.55, 0.55, 0.60, 0.45, 0.55, 0.80},
	3: {0.90, 0.90, 0.85, 0.75, 0.85, 0.95},
}

func profileFor(tier int) [6]float64 {
	if p, ok := tierProfiles[tier]; ok {
		return p
	}
	// Policy tiers fall back to the strongest cascade profile.
	return tierProfiles[3]
}

// Generator produces and applies exactly one legal action per invocation.
type Generator struct {
	policy Policy
	rng    *rand.Rand
}

// NewGenerator creates a generator. The policy may be nil, in which case all
// tiers use the rule cascade. The seed keeps bot play reproducible in tests.
func NewGenerator(policy Policy, seed int64) *Generator {
	return &Generator{
		policy: policy,
		rng:    random.NewLockedRand(seed),
	}
}

// Act generates one legal action for the active seat and applies it through
// the mode handler, under the same legality rules as a human action. When no
// legal move exists it emits the canonical pass rather than stalling.
// It reports whether an action was actually applied.
func (g *Generator) Act(ctx context.Context, s *session.GameSession, h mode.Handler, now time.Time) (bool, error) {
	seat := s.ActiveSeat()
	if !seat.Bot() {
		return false, apperrors.New(apperrors.CodeBotSeatNotBot, "active seat is not bot-controlled")
	}

	var m session.Move
	var ok bool
	if seat.BotTier >= policyTier && g.policy != nil {
		proposed, err := g.policy.Propose(ctx, s)
		if err == nil {
			proposed.Seat = seat.Index
			if applyErr := h.Apply(ctx, s, proposed, now); applyErr == nil {
				return true, nil
			}
		}
		// Policy failure or illegal proposal: fall through to the cascade.
	}

	switch s.Mode {
	case session.ModeBaduk, session.ModeHiddenBaduk:
		m, ok = g.cascadeStone(s, seat)
	case session.ModeOmok:
		m, ok = g.chooseOmok(s, seat)
	case session.ModeYacht:
		return g.actYacht(ctx, s, h, seat, now)
	case session.ModeAlkkagi:
		m, ok = g.chooseFlick(s, seat)
	case session.ModeChase:
		m, ok = g.chooseStep(s, seat)
	default:
		return false, apperrors.New(apperrors.CodeSessionInvalidMode, "no bot support for mode")
	}

	if !ok {
		switch s.Mode {
		case session.ModeBaduk, session.ModeHiddenBaduk:
			// Canonical no-op: the stone games always admit a pass.
			m = session.Move{Seat: seat.Index, Kind: session.MovePass}
		default:
			// Playful modes only run dry once the position is already
			// decided; leave the tick to the mode handler.
			return false, nil
		}
	}

	if err := h.Apply(ctx, s, m, now); err != nil {
		return false, err
	}
	return true, nil
}
