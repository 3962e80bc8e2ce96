// Package board models the battleship grid, its fleet, and the placement rules a
// submitted board must satisfy. It performs no I/O and is not safe for concurrent
// use; the game that owns a board serializes access to it.
package board

import (
	"bytes"
	"fmt"
	"strconv"
	"text/tabwriter"
)

// Dimension is the width and height of every board.
const Dimension = 10

// Board is a grid of squares plus the ships placed on it. An own board starts
// with the full fleet unplaced; a mirror board starts with no ships and learns
// them as they are reported sunk.
type Board struct {
	squares  [Dimension][Dimension]*Square
	ships    []*Ship
	ownBoard bool
}

// New creates an empty board.
func New(ownBoard bool) *Board {
	b := newGrid(ownBoard)
	if ownBoard {
		for _, t := range Fleet {
			b.ships = append(b.ships, NewShip(t))
		}
	}
	return b
}

func newGrid(ownBoard bool) *Board {
	b := &Board{ownBoard: ownBoard}
	for x := 0; x < Dimension; x++ {
		for y := 0; y < Dimension; y++ {
			b.squares[x][y] = newSquare(x, y, ownBoard)
		}
	}
	return b
}

// InBounds reports whether (x, y) lies on the grid.
func InBounds(x, y int) bool {
	return x >= 0 && x < Dimension && y >= 0 && y < Dimension
}

func (b *Board) IsOwnBoard() bool {
	return b.ownBoard
}

// Square returns the square at (x, y), or nil when out of bounds.
func (b *Board) Square(x, y int) *Square {
	if !InBounds(x, y) {
		return nil
	}
	return b.squares[x][y]
}

func (b *Board) Ships() []*Ship {
	return b.ships
}

// AddShip appends a ship to the fleet without placing it.
func (b *Board) AddShip(s *Ship) {
	b.ships = append(b.ships, s)
}

// PlaceShip puts ship with its top-left square at (x, y) using the ship's
// orientation. It fails without mutating anything if a cell would leave the
// grid, overlap another ship, or if the ship is already placed.
func (b *Board) PlaceShip(ship *Ship, x, y int) bool {
	if ship.IsPlaced() || ship.Length() == 0 {
		return false
	}

	dx, dy := 1, 0
	if ship.Vertical {
		dx, dy = 0, 1
	}
	endX, endY := x+dx*(ship.Length()-1), y+dy*(ship.Length()-1)
	if !InBounds(x, y) || !InBounds(endX, endY) {
		return false
	}

	for i := 0; i < ship.Length(); i++ {
		if b.squares[x+dx*i][y+dy*i].IsShip() {
			return false
		}
	}

	for i := 0; i < ship.Length(); i++ {
		sq := b.squares[x+dx*i][y+dy*i]
		sq.ship = ship
		ship.squares = append(ship.squares, sq)
	}
	return true
}

// PickUpShip clears a placed ship from the grid. Unplaced ships are left alone.
func (b *Board) PickUpShip(ship *Ship) {
	for _, sq := range ship.squares {
		if sq.ship == ship {
			sq.ship = nil
		}
	}
	ship.squares = nil
}

// GameOver reports whether the whole fleet is sunk.
func (b *Board) GameOver() bool {
	if len(b.ships) == 0 {
		return false
	}
	for _, s := range b.ships {
		if !s.IsSunk() {
			return false
		}
	}
	return true
}

// IsSquareNearShip reports whether any of the eight neighbours of square holds a ship.
func (b *Board) IsSquareNearShip(square *Square) bool {
	for x := square.X - 1; x <= square.X+1; x++ {
		for y := square.Y - 1; y <= square.Y+1; y++ {
			if x == square.X && y == square.Y {
				continue
			}
			if InBounds(x, y) && b.squares[x][y].IsShip() {
				return true
			}
		}
	}
	return false
}

// Sinking carries the geometry of a ship reported sunk.
type Sinking struct {
	Type     ShipType
	Vertical bool
	Coords   [][2]int
}

// ApplyMove records a reported guess on a mirror board. When a ship is reported
// sunk every one of its squares is marked hit and the ship joins the fleet.
func (b *Board) ApplyMove(x, y int, hit bool, sunk *Sinking) bool {
	if !InBounds(x, y) {
		return false
	}
	if sunk == nil {
		b.squares[x][y].update(hit, nil)
		return true
	}

	for _, c := range sunk.Coords {
		if !InBounds(c[0], c[1]) {
			return false
		}
	}
	ship := &Ship{Type: sunk.Type, Vertical: sunk.Vertical}
	for _, c := range sunk.Coords {
		sq := b.squares[c[0]][c[1]]
		sq.update(true, ship)
		ship.squares = append(ship.squares, sq)
	}
	b.ships = append(b.ships, ship)
	return true
}

// Cells returns the board as seen by its holder, or by an outsider when masked.
// The result is indexed [x][y].
func (b *Board) Cells(masked bool) [][]State {
	cells := make([][]State, Dimension)
	for x := 0; x < Dimension; x++ {
		cells[x] = make([]State, Dimension)
		for y := 0; y < Dimension; y++ {
			cells[x][y] = b.squares[x][y].stateAs(b.ownBoard && !masked)
		}
	}
	return cells
}

// ShipPlacementEquals compares per-cell occupancy and ship type.
func (b *Board) ShipPlacementEquals(other *Board) bool {
	for y := 0; y < Dimension; y++ {
		for x := 0; x < Dimension; x++ {
			s1, s2 := b.squares[x][y], other.squares[x][y]
			if s1.IsShip() != s2.IsShip() {
				return false
			}
			if s1.IsShip() && s1.ship.Type != s2.ship.Type {
				return false
			}
		}
	}
	return true
}

// unplacedShip returns the first ship of type t that is not on the grid yet.
func (b *Board) unplacedShip(t ShipType) *Ship {
	for _, s := range b.ships {
		if s.Type == t && !s.IsPlaced() {
			return s
		}
	}
	return nil
}

// Reconstruct replays the submitted ships onto a fresh board using only their
// type, orientation and top-left square, then checks the replay reproduces the
// submitted grid cell for cell. It returns the rebuilt board, which is the one
// the server trusts from then on.
func Reconstruct(submitted *Board) (*Board, bool) {
	if len(submitted.ships) != len(Fleet) {
		return nil, false
	}

	rebuilt := New(true)
	for _, s := range submitted.ships {
		x, y, ok := s.TopLeft()
		if !ok {
			return nil, false
		}
		target := rebuilt.unplacedShip(s.Type)
		if target == nil {
			return nil, false
		}
		target.Vertical = s.Vertical
		if !rebuilt.PlaceShip(target, x, y) {
			return nil, false
		}
	}

	if !rebuilt.ShipPlacementEquals(submitted) {
		return nil, false
	}
	return rebuilt, true
}

// IsValid reports whether a submitted board can be accepted for play.
func IsValid(submitted *Board) bool {
	_, ok := Reconstruct(submitted)
	return ok
}

func (b *Board) String() string {
	var buffer bytes.Buffer
	tabWriter := tabwriter.NewWriter(&buffer, 2, 0, 1, ' ', 0)

	fmt.Fprint(tabWriter, "\t")
	for x := 0; x < Dimension; x++ {
		fmt.Fprint(tabWriter, strconv.Itoa(x)+"\t")
	}
	fmt.Fprint(tabWriter, "\n")

	for y := 0; y < Dimension; y++ {
		fmt.Fprint(tabWriter, strconv.Itoa(y)+"\t")
		for x := 0; x < Dimension; x++ {
			sq := b.squares[x][y]
			switch sq.State() {
			case Hit:
				fmt.Fprint(tabWriter, "X\t")
			case Miss:
				fmt.Fprint(tabWriter, "O\t")
			case Occupied:
				fmt.Fprint(tabWriter, shipGlyph(sq.ship.Type)+"\t")
			case Unknown:
				fmt.Fprint(tabWriter, "?\t")
			default:
				fmt.Fprint(tabWriter, "~\t")
			}
		}
		fmt.Fprint(tabWriter, "\n")
	}
	tabWriter.Flush()
	return buffer.String()
}

func shipGlyph(t ShipType) string {
	switch t {
	case Carrier:
		return "A"
	case Battleship:
		return "B"
	case PatrolBoat:
		return "P"
	}
	return "S"
}
