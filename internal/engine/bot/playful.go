package bot

import (
	"context"
	"time"

	"github.com/baduklab/arena/internal/engine/board"
	"github.com/baduklab/arena/internal/engine/mode"
	"github.com/baduklab/arena/internal/engine/session"
)

// chooseOmok applies the line-formation analog of the cascade: complete an
// own five-line, block an opponent four-line, extend the longest own line,
// otherwise play near existing stones or randomly.
func (g *Generator) chooseOmok(s *session.GameSession, seat *session.Seat) (session.Move, bool) {
	color := seat.Color()
	empties := s.Board.Stones(board.Empty)
	if len(empties) == 0 {
		return session.Move{}, false
	}

	profile := profileFor(seat.BotTier)

	if g.rng.Float64() < profile[0] {
		if p, ok := g.lineOfLength(s, color, 5); ok {
			return placeMove(seat.Index, p), true
		}
	}
	if g.rng.Float64() < profile[1] {
		if p, ok := g.lineOfLength(s, color.Opponent(), 4); ok {
			return placeMove(seat.Index, p), true
		}
	}
	if g.rng.Float64() < profile[2] {
		if p, ok := g.lineOfLength(s, color, 3); ok {
			return placeMove(seat.Index, p), true
		}
	}
	if g.rng.Float64() < profile[5] {
		var near []board.Point
		for _, p := range empties {
			for _, n := range s.Board.Neighbors(p) {
				if s.Board.At(n) != board.Empty {
					near = append(near, p)
					break
				}
			}
		}
		if len(near) > 0 {
			return placeMove(seat.Index, near[g.rng.Intn(len(near))]), true
		}
	}

	return placeMove(seat.Index, empties[g.rng.Intn(len(empties))]), true
}

// lineOfLength finds an empty point that would give color a contiguous line
// of at least n stones.
func (g *Generator) lineOfLength(s *session.GameSession, color board.Color, n int) (board.Point, bool) {
	for _, p := range s.Board.Stones(board.Empty) {
		probe := s.Board.Clone()
		probe.Put(p, color)
		if probe.LineThrough(p) >= n {
			return p, true
		}
	}
	return board.Point{}, false
}

// actYacht performs the compound roll-then-place action for the dice game.
// The roll and each placement go through the handler so deadlines reset
// exactly as they would for a human.
func (g *Generator) actYacht(ctx context.Context, s *session.GameSession, h mode.Handler, seat *session.Seat, now time.Time) (bool, error) {
	switch s.Phase {
	case session.PhaseRoll:
		roll := g.rng.Intn(6) + 1
		m := session.Move{Seat: seat.Index, Kind: session.MoveRoll, Dice: []int{roll}}
		if err := h.Apply(ctx, s, m, now); err != nil {
			return false, err
		}
		return true, nil

	case session.PhaseRollAnimate:
		// Animation gate: nothing to do this tick.
		return false, nil

	case session.PhasePlace:
		empties := s.Board.Stones(board.Empty)
		if len(empties) == 0 {
			return false, nil
		}
		p := empties[g.rng.Intn(len(empties))]
		m := session.Move{Seat: seat.Index, Kind: session.MovePlace, Point: p}
		if err := h.Apply(ctx, s, m, now); err != nil {
			return false, err
		}
		return true, nil
	}
	return false, nil
}

// chooseFlick aims at a random opponent stone; weak tiers miss on purpose
// with the inverse of their top-rule probability.
func (g *Generator) chooseFlick(s *session.GameSession, seat *session.Seat) (session.Move, bool) {
	own := s.Board.Stones(seat.Color())
	if len(own) == 0 {
		return session.Move{}, false
	}
	from := own[g.rng.Intn(len(own))]

	targets := s.Board.Stones(seat.Color().Opponent())
	profile := profileFor(seat.BotTier)
	if len(targets) == 0 || g.rng.Float64() >= profile[0] {
		// Deliberate miss: origin reported as target spends the turn.
		return session.Move{Seat: seat.Index, Kind: session.MoveFlick, From: from, Point: from}, true
	}
	target := targets[g.rng.Intn(len(targets))]
	return session.Move{Seat: seat.Index, Kind: session.MoveFlick, From: from, Point: target}, true
}

// chooseStep moves cops toward the runner and the runner away from the
// nearest cop. Weak tiers wander randomly instead.
func (g *Generator) chooseStep(s *session.GameSession, seat *session.Seat) (session.Move, bool) {
	own := s.Board.Stones(seat.Color())
	if len(own) == 0 {
		return session.Move{}, false
	}
	opponents := s.Board.Stones(seat.Color().Opponent())

	profile := profileFor(seat.BotTier)
	smart := g.rng.Float64() < profile[0] && len(opponents) > 0

	type step struct {
		from, to board.Point
		score    int
	}
	var steps []step
	for _, from := range own {
		for _, to := range s.Board.Neighbors(from) {
			occupied := s.Board.At(to) != board.Empty
			catching := seat.Index == 0 && s.Board.At(to) == seat.Color().Opponent()
			if occupied && !catching {
				continue
			}
			score := 0
			if len(opponents) > 0 {
				score = manhattan(to, opponents[0])
				if seat.Index == 0 {
					score = -score // cops minimize distance
				}
			}
			steps = append(steps, step{from: from, to: to, score: score})
		}
	}
	if len(steps) == 0 {
		return session.Move{}, false
	}

	chosen := steps[g.rng.Intn(len(steps))]
	if smart {
		for _, st := range steps {
			if st.score > chosen.score {
				chosen = st
			}
		}
	}
	return session.Move{Seat: seat.Index, Kind: session.MoveStep, From: chosen.from, Point: chosen.to}, true
}

func manhattan(a, b board.Point) int {
	dx := a.X - b.X
	if dx < 0 {
		dx = -dx
	}
	dy := a.Y - b.Y
	if dy < 0 {
		dy = -dy
	}
	return dx + dy
}
