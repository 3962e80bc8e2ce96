package board

import (
	"errors"
	"fmt"
)

// Layout errors.
var (
	ErrOutOfBounds   = errors.New("coordinate is outside the board")
	ErrMalformedGrid = errors.New("occupancy grid must be 10x10")
)

// ShipSpec is a ship as reported by a client: its type, its orientation and the
// cells it claims to occupy.
type ShipSpec struct {
	Type     ShipType
	Vertical bool
	Coords   [][2]int
}

// FromLayout builds a board exactly as a client described it, without applying
// placement rules. The result is meant to be checked with Reconstruct.
//
// grid, when present, is indexed [x][y] and names the ship type occupying each
// cell; when nil, occupancy is derived from the ships' own cells.
func FromLayout(ships []ShipSpec, grid [][]ShipType) (*Board, error) {
	b := newGrid(true)
	for i, spec := range ships {
		ship := &Ship{Type: spec.Type, Vertical: spec.Vertical}
		for _, c := range spec.Coords {
			if !InBounds(c[0], c[1]) {
				return nil, fmt.Errorf("ship %d at (%d,%d): %w", i, c[0], c[1], ErrOutOfBounds)
			}
			ship.squares = append(ship.squares, b.squares[c[0]][c[1]])
		}
		b.ships = append(b.ships, ship)
	}

	if grid == nil {
		for _, ship := range b.ships {
			for _, sq := range ship.squares {
				sq.ship = ship
			}
		}
		return b, nil
	}

	if len(grid) != Dimension {
		return nil, ErrMalformedGrid
	}
	for x, column := range grid {
		if len(column) != Dimension {
			return nil, ErrMalformedGrid
		}
		for y, t := range column {
			if t == NoShip {
				continue
			}
			b.squares[x][y].ship = b.shipOfType(t)
		}
	}
	return b, nil
}

// shipOfType returns the first fleet ship of type t, or a detached ship of that
// type when the fleet has none, so occupancy comparison still sees the cell.
func (b *Board) shipOfType(t ShipType) *Ship {
	for _, s := range b.ships {
		if s.Type == t {
			return s
		}
	}
	return &Ship{Type: t}
}

// Specs describes the fleet's placed ships.
func (b *Board) Specs() []ShipSpec {
	specs := make([]ShipSpec, 0, len(b.ships))
	for _, s := range b.ships {
		specs = append(specs, ShipSpec{Type: s.Type, Vertical: s.Vertical, Coords: s.Coords()})
	}
	return specs
}
