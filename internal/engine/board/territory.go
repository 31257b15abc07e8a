package board

// Territory counts the empty points enclosed exclusively by each color.
// Empty regions touching both colors (or neither) are neutral and counted
// for neither seat. This is plain area counting used by the manual scorer
// when the external analyzer is unavailable.
func (b *Board) Territory() (black, white int) {
	visited := make([]bool, len(b.cells))

	for y := 0; y < b.size; y++ {
		for x := 0; x < b.size; x++ {
			start := Point{x, y}
			idx := y*b.size + x
			if visited[idx] || b.At(start) != Empty {
				continue
			}

			// Flood-fill the empty region and record which colors border it.
			var region []Point
			touchesBlack, touchesWhite := false, false
			stack := []Point{start}
			for len(stack) > 0 {
				cur := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				curIdx := cur.Y*b.size + cur.X
				if visited[curIdx] {
					continue
				}
				visited[curIdx] = true
				region = append(region, cur)

				for _, n := range b.Neighbors(cur) {
					switch b.At(n) {
					case Empty:
						if !visited[n.Y*b.size+n.X] {
							stack = append(stack, n)
						}
					case Black:
						touchesBlack = true
					case White:
						touchesWhite = true
					}
				}
			}

			switch {
			case touchesBlack && !touchesWhite:
				black += len(region)
			case touchesWhite && !touchesBlack:
				white += len(region)
			}
		}
	}
	return black, white
}
