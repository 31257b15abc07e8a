package board

// lineDirections covers horizontal, vertical, and both diagonals.
var lineDirections = [4]Point{
	{1, 0},
	{0, 1},
	{1, 1},
	{1, -1},
}

// LineThrough returns the length of the longest contiguous same-color line
// passing through p in any of the four directions.
func (b *Board) LineThrough(p Point) int {
	color := b.At(p)
	if color == Empty {
		return 0
	}

	best := 1
	for _, d := range lineDirections {
		length := 1
		for cur := (Point{p.X + d.X, p.Y + d.Y}); b.At(cur) == color; cur = (Point{cur.X + d.X, cur.Y + d.Y}) {
			length++
		}
		for cur := (Point{p.X - d.X, p.Y - d.Y}); b.At(cur) == color; cur = (Point{cur.X - d.X, cur.Y - d.Y}) {
			length++
		}
		if length > best {
			best = length
		}
	}
	return best
}

// HasLine reports whether color has a contiguous line of at least n stones.
func (b *Board) HasLine(c Color, n int) bool {
	for y := 0; y < b.size; y++ {
		for x := 0; x < b.size; x++ {
			p := Point{x, y}
			if b.At(p) == c && b.LineThrough(p) >= n {
				return true
			}
		}
	}
	return false
}
