package board

import (
	"encoding/json"

	apperrors "github.com/baduklab/arena/internal/platform/errors"
)

// boardJSON is the wire form used for persistence: one string per row with
// '.' empty, 'b' black, 'w' white.
type boardJSON struct {
	Size int      `json:"size"`
	Rows []string `json:"rows"`
	Ko   *Point   `json:"ko,omitempty"`
}

// MarshalJSON encodes the board in row-string form.
func (b *Board) MarshalJSON() ([]byte, error) {
	rows := make([]string, b.size)
	for y := 0; y < b.size; y++ {
		row := make([]byte, b.size)
		for x := 0; x < b.size; x++ {
			switch b.At(Point{x, y}) {
			case Black:
				row[x] = 'b'
			case White:
				row[x] = 'w'
			default:
				row[x] = '.'
			}
		}
		rows[y] = string(row)
	}
	return json.Marshal(boardJSON{Size: b.size, Rows: rows, Ko: b.KoPoint()})
}

// UnmarshalJSON rebuilds a board from its row-string form, re-validating the
// size bounds so corrupted records are rejected.
func (b *Board) UnmarshalJSON(data []byte) error {
	var wire boardJSON
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	fresh, err := New(wire.Size)
	if err != nil {
		return err
	}
	if len(wire.Rows) != wire.Size {
		return apperrors.New(apperrors.CodeSessionInvalidBoardSize, "row count does not match size")
	}
	for y, row := range wire.Rows {
		if len(row) != wire.Size {
			return apperrors.New(apperrors.CodeSessionInvalidBoardSize, "row length does not match size")
		}
		for x := 0; x < wire.Size; x++ {
			switch row[x] {
			case 'b':
				fresh.set(Point{x, y}, Black)
			case 'w':
				fresh.set(Point{x, y}, White)
			}
		}
	}
	fresh.koPoint = wire.Ko
	*b = *fresh
	return nil
}
