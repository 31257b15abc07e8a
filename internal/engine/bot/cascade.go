package bot

import (
	"github.com/baduklab/arena/internal/engine/board"
	"github.com/baduklab/arena/internal/engine/session"
)

// decisiveCaptureSize is the group size treated as a winning capture in the
// cascade's top two rules.
const decisiveCaptureSize = 4

// candidate pairs a legal point with its probe results.
type candidate struct {
	point    board.Point
	captures int
}

// cascadeStone walks the prioritized rule cascade for the stone-capture
// family: winning capture > block winning capture > maximize capture >
// create atari > rescue own atari group > adjacent > uniform random.
func (g *Generator) cascadeStone(s *session.GameSession, seat *session.Seat) (session.Move, bool) {
	color := seat.Color()
	legal := s.Board.LegalMoves(color)
	if len(legal) == 0 {
		return session.Move{}, false
	}

	probes := make([]candidate, 0, len(legal))
	for _, p := range legal {
		probe := s.Board.Clone()
		captured, err := probe.Place(p, color)
		if err != nil {
			continue
		}
		probes = append(probes, candidate{point: p, captures: len(captured)})
	}
	if len(probes) == 0 {
		return session.Move{}, false
	}

	profile := profileFor(seat.BotTier)

	if g.rng.Float64() < profile[0] {
		if p, ok := g.winningCapture(probes); ok {
			return placeMove(seat.Index, p), true
		}
	}
	if g.rng.Float64() < profile[1] {
		if p, ok := g.blockWinningCapture(s, seat, legal); ok {
			return placeMove(seat.Index, p), true
		}
	}
	if g.rng.Float64() < profile[2] {
		if p, ok := g.maxCapture(probes); ok {
			return placeMove(seat.Index, p), true
		}
	}
	if g.rng.Float64() < profile[3] {
		if p, ok := g.createAtari(s, color, legal); ok {
			return placeMove(seat.Index, p), true
		}
	}
	if g.rng.Float64() < profile[4] {
		if p, ok := g.rescueAtari(s, color, legal); ok {
			return placeMove(seat.Index, p), true
		}
	}
	if g.rng.Float64() < profile[5] {
		if p, ok := g.adjacent(s, legal); ok {
			return placeMove(seat.Index, p), true
		}
	}

	return placeMove(seat.Index, legal[g.rng.Intn(len(legal))]), true
}

func placeMove(seat int, p board.Point) session.Move {
	return session.Move{Seat: seat, Kind: session.MovePlace, Point: p}
}

// winningCapture picks a move capturing a decisively large group.
func (g *Generator) winningCapture(probes []candidate) (board.Point, bool) {
	best := -1
	var bestPoint board.Point
	for _, c := range probes {
		if c.captures >= decisiveCaptureSize && c.captures > best {
			best = c.captures
			bestPoint = c.point
		}
	}
	return bestPoint, best >= 0
}

// blockWinningCapture occupies the point where the opponent would make a
// decisive capture on their next turn.
func (g *Generator) blockWinningCapture(s *session.GameSession, seat *session.Seat, legal []board.Point) (board.Point, bool) {
	opponent := seat.Color().Opponent()
	legalSet := make(map[board.Point]bool, len(legal))
	for _, p := range legal {
		legalSet[p] = true
	}

	for _, p := range s.Board.LegalMoves(opponent) {
		probe := s.Board.Clone()
		captured, err := probe.Place(p, opponent)
		if err != nil || len(captured) < decisiveCaptureSize {
			continue
		}
		if legalSet[p] {
			return p, true
		}
	}
	return board.Point{}, false
}

// maxCapture picks the legal move with the highest immediate capture count.
func (g *Generator) maxCapture(probes []candidate) (board.Point, bool) {
	best := 0
	var bestPoint board.Point
	found := false
	for _, c := range probes {
		if c.captures > best {
			best = c.captures
			bestPoint = c.point
			found = true
		}
	}
	return bestPoint, found
}

// createAtari picks a move leaving an opponent group with exactly one
// liberty.
func (g *Generator) createAtari(s *session.GameSession, color board.Color, legal []board.Point) (board.Point, bool) {
	for _, p := range legal {
		probe := s.Board.Clone()
		if _, err := probe.Place(p, color); err != nil {
			continue
		}
		for _, n := range probe.Neighbors(p) {
			if probe.At(n) != color.Opponent() {
				continue
			}
			if _, libs := probe.Group(n); libs == 1 {
				return p, true
			}
		}
	}
	return board.Point{}, false
}

// rescueAtari extends an own group in atari to more than one liberty.
func (g *Generator) rescueAtari(s *session.GameSession, color board.Color, legal []board.Point) (board.Point, bool) {
	for _, stone := range s.Board.Stones(color) {
		_, libs := s.Board.Group(stone)
		if libs != 1 {
			continue
		}
		for _, p := range legal {
			probe := s.Board.Clone()
			if _, err := probe.Place(p, color); err != nil {
				continue
			}
			if probe.At(stone) != color {
				continue
			}
			if _, probeLibs := probe.Group(stone); probeLibs > 1 {
				return p, true
			}
		}
	}
	return board.Point{}, false
}

// adjacent picks a legal move touching any existing stone.
func (g *Generator) adjacent(s *session.GameSession, legal []board.Point) (board.Point, bool) {
	var adjacents []board.Point
	for _, p := range legal {
		for _, n := range s.Board.Neighbors(p) {
			if s.Board.At(n) != board.Empty {
				adjacents = append(adjacents, p)
				break
			}
		}
	}
	if len(adjacents) == 0 {
		return board.Point{}, false
	}
	return adjacents[g.rng.Intn(len(adjacents))], true
}
