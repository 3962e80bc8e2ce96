package service

import (
	"errors"
	"fmt"

	"github.com/beka-birhanu/battleship-server/board"
	"github.com/beka-birhanu/battleship-server/message"
)

// ErrUnknownShipKind is returned for a submission naming a ship the fleet does not have.
var ErrUnknownShipKind = errors.New("unknown ship kind")

// boardFromSubmission builds the board exactly as the client drew it.
func boardFromSubmission(sub *message.BoardSubmission) (*board.Board, error) {
	specs := make([]board.ShipSpec, 0, len(sub.Ships))
	for _, l := range sub.Ships {
		t := board.ParseShipType(l.Kind)
		if t == board.NoShip {
			return nil, fmt.Errorf("%w: %q", ErrUnknownShipKind, l.Kind)
		}
		coords := make([][2]int, 0, len(l.Cells))
		for _, c := range l.Cells {
			coords = append(coords, [2]int{c.X, c.Y})
		}
		specs = append(specs, board.ShipSpec{Type: t, Vertical: l.Vertical, Coords: coords})
	}

	var grid [][]board.ShipType
	if sub.Grid != nil {
		grid = make([][]board.ShipType, len(sub.Grid))
		for x, column := range sub.Grid {
			grid[x] = make([]board.ShipType, len(column))
			for y, kind := range column {
				if kind == "" {
					continue
				}
				t := board.ParseShipType(kind)
				if t == board.NoShip {
					return nil, fmt.Errorf("%w: %q at (%d,%d)", ErrUnknownShipKind, kind, x, y)
				}
				grid[x][y] = t
			}
		}
	}
	return board.FromLayout(specs, grid)
}

func shipLayout(s *board.Ship) message.ShipLayout {
	l := message.ShipLayout{Kind: s.Type.String(), Vertical: s.Vertical}
	for _, c := range s.Coords() {
		l.Cells = append(l.Cells, message.Coord{X: c[0], Y: c[1]})
	}
	return l
}

// boardView renders b for an observer. A masked view hides unguessed ships and
// reveals only sunk ones. A nil board renders as open water.
func boardView(b *board.Board, masked bool) message.BoardView {
	if b == nil {
		b = board.New(false)
	}
	cells := b.Cells(masked)
	v := message.BoardView{Cells: make([][]string, len(cells))}
	for x, column := range cells {
		v.Cells[x] = make([]string, len(column))
		for y, st := range column {
			v.Cells[x][y] = st.String()
		}
	}
	for _, s := range b.Ships() {
		if !s.IsPlaced() || (masked && !s.IsSunk()) {
			continue
		}
		v.Ships = append(v.Ships, shipLayout(s))
	}
	return v
}
