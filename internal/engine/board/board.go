// Package board implements the fixed-size grid shared by all match modes.
//
// The board is mutated only through Place, which enforces the legality rules
// of the stone-capture family (occupancy, suicide, simple ko). Line and
// territory queries used by playful modes and by scoring are read-only.
package board

import (
	apperrors "github.com/baduklab/arena/internal/platform/errors"
)

// Color identifies the contents of a single cell.
type Color int8

const (
	Empty Color = iota
	Black
	White
)

// Opponent returns the opposing stone color. Empty has no opponent.
func (c Color) Opponent() Color {
	switch c {
	case Black:
		return White
	case White:
		return Black
	}
	return Empty
}

// Point addresses a single cell on the grid.
type Point struct {
	X int
	Y int
}

// Board is a square grid of cells. Dimensions are immutable after creation.
type Board struct {
	size    int
	cells   []Color
	koPoint *Point
}

// New creates an empty board of the given size. Sizes outside 5..19 are
// rejected so corrupted records cannot allocate unbounded grids.
func New(size int) (*Board, error) {
	if size < 5 || size > 19 {
		return nil, apperrors.New(apperrors.CodeSessionInvalidBoardSize, "board size out of range")
	}
	return &Board{
		size:  size,
		cells: make([]Color, size*size),
	}, nil
}

// Size returns the board dimension.
func (b *Board) Size() int {
	return b.size
}

// InBounds reports whether p addresses a cell on the board.
func (b *Board) InBounds(p Point) bool {
	return p.X >= 0 && p.X < b.size && p.Y >= 0 && p.Y < b.size
}

// At returns the cell color at p. Out-of-bounds reads return Empty.
func (b *Board) At(p Point) Color {
	if !b.InBounds(p) {
		return Empty
	}
	return b.cells[p.Y*b.size+p.X]
}

func (b *Board) set(p Point, c Color) {
	b.cells[p.Y*b.size+p.X] = c
}

// KoPoint returns the point forbidden by the simple-ko rule, if any.
func (b *Board) KoPoint() *Point {
	if b.koPoint == nil {
		return nil
	}
	p := *b.koPoint
	return &p
}

// Neighbors returns the orthogonally adjacent in-bounds points of p.
func (b *Board) Neighbors(p Point) []Point {
	candidates := [4]Point{
		{p.X - 1, p.Y},
		{p.X + 1, p.Y},
		{p.X, p.Y - 1},
		{p.X, p.Y + 1},
	}
	neighbors := make([]Point, 0, 4)
	for _, n := range candidates {
		if b.InBounds(n) {
			neighbors = append(neighbors, n)
		}
	}
	return neighbors
}

// Clone returns a deep copy of the board, including ko state.
func (b *Board) Clone() *Board {
	cells := make([]Color, len(b.cells))
	copy(cells, b.cells)
	clone := &Board{size: b.size, cells: cells}
	if b.koPoint != nil {
		p := *b.koPoint
		clone.koPoint = &p
	}
	return clone
}

// Equal reports whether two boards hold identical cell contents.
func (b *Board) Equal(other *Board) bool {
	if other == nil || b.size != other.size {
		return false
	}
	for i, c := range b.cells {
		if other.cells[i] != c {
			return false
		}
	}
	return true
}

// Group returns the connected group containing p and its liberty count.
// An empty point yields an empty group with zero liberties.
func (b *Board) Group(p Point) ([]Point, int) {
	color := b.At(p)
	if color == Empty {
		return nil, 0
	}

	visited := make(map[Point]bool)
	liberties := make(map[Point]bool)
	stack := []Point{p}
	var group []Point

	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[cur] {
			continue
		}
		visited[cur] = true
		group = append(group, cur)

		for _, n := range b.Neighbors(cur) {
			switch b.At(n) {
			case Empty:
				liberties[n] = true
			case color:
				if !visited[n] {
					stack = append(stack, n)
				}
			}
		}
	}

	return group, len(liberties)
}

// Place applies a stone placement for color at p, removing any opposing
// groups left without liberties. It returns the captured points.
//
// Legality is checked in order: bounds, occupancy, ko, suicide. On any
// rejection the board is left untouched.
func (b *Board) Place(p Point, c Color) ([]Point, error) {
	if !b.InBounds(p) {
		return nil, apperrors.New(apperrors.CodeMoveOutOfBounds, "point outside board")
	}
	if b.At(p) != Empty {
		return nil, apperrors.New(apperrors.CodeMoveOccupied, "point already occupied")
	}
	if b.koPoint != nil && *b.koPoint == p {
		return nil, apperrors.New(apperrors.CodeMoveKoViolation, "point forbidden by ko")
	}

	b.set(p, c)

	var captured []Point
	for _, n := range b.Neighbors(p) {
		if b.At(n) != c.Opponent() {
			continue
		}
		group, libs := b.Group(n)
		if libs == 0 {
			captured = append(captured, group...)
		}
	}
	// Deduplicate: adjacent points can belong to the same captured group.
	captured = dedupe(captured)
	for _, cp := range captured {
		b.set(cp, Empty)
	}

	if _, libs := b.Group(p); libs == 0 {
		// Undo: the placement would leave its own group without liberties.
		b.set(p, Empty)
		for _, cp := range captured {
			b.set(cp, c.Opponent())
		}
		return nil, apperrors.New(apperrors.CodeMoveSuicide, "placement would be suicide")
	}

	b.koPoint = nil
	if len(captured) == 1 {
		if group, _ := b.Group(p); len(group) == 1 {
			ko := captured[0]
			b.koPoint = &ko
		}
	}

	return captured, nil
}

// ClearKo lifts the simple-ko restriction. Called after a pass or any move
// elsewhere resolves the ko.
func (b *Board) ClearKo() {
	b.koPoint = nil
}

// Remove clears a stone from the board. Used by flick-mode knockouts and by
// the terminal-reveal step; it bypasses capture rules.
func (b *Board) Remove(p Point) {
	if b.InBounds(p) {
		b.set(p, Empty)
	}
}

// Put places a stone without legality checks. Used when rebuilding a board
// from a frozen snapshot or revealing concealed stones.
func (b *Board) Put(p Point, c Color) {
	if b.InBounds(p) {
		b.set(p, c)
	}
}

// Stones returns all points occupied by the given color.
func (b *Board) Stones(c Color) []Point {
	var points []Point
	for y := 0; y < b.size; y++ {
		for x := 0; x < b.size; x++ {
			p := Point{x, y}
			if b.At(p) == c {
				points = append(points, p)
			}
		}
	}
	return points
}

// LegalMoves returns every point where color can legally place a stone.
func (b *Board) LegalMoves(c Color) []Point {
	var moves []Point
	for y := 0; y < b.size; y++ {
		for x := 0; x < b.size; x++ {
			p := Point{x, y}
			if b.At(p) != Empty {
				continue
			}
			probe := b.Clone()
			if _, err := probe.Place(p, c); err == nil {
				moves = append(moves, p)
			}
		}
	}
	return moves
}

func dedupe(points []Point) []Point {
	if len(points) < 2 {
		return points
	}
	seen := make(map[Point]bool, len(points))
	out := points[:0]
	for _, p := range points {
		if seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}
