package board

// ShipType identifies an entry of the fixed fleet catalog.
type ShipType uint8

const (
	NoShip ShipType = iota
	Carrier
	Battleship
	PatrolBoat
)

// Fleet is the composition every board in play must carry.
var Fleet = []ShipType{Carrier, Battleship, Battleship, Battleship, PatrolBoat}

// Length returns the number of squares a ship of this type occupies.
func (t ShipType) Length() int {
	switch t {
	case Carrier:
		return 5
	case Battleship:
		return 4
	case PatrolBoat:
		return 2
	}
	return 0
}

func (t ShipType) String() string {
	switch t {
	case Carrier:
		return "carrier"
	case Battleship:
		return "battleship"
	case PatrolBoat:
		return "patrol_boat"
	}
	return "none"
}

// ParseShipType is the inverse of String. Unknown names map to NoShip.
func ParseShipType(s string) ShipType {
	for _, t := range []ShipType{Carrier, Battleship, PatrolBoat} {
		if t.String() == s {
			return t
		}
	}
	return NoShip
}

// Ship is one vessel of a fleet. It is sunk once every square it occupies has
// been guessed.
type Ship struct {
	Type     ShipType
	Vertical bool
	squares  []*Square
}

// NewShip returns an unplaced ship.
func NewShip(t ShipType) *Ship {
	return &Ship{Type: t}
}

func (s *Ship) Length() int {
	return s.Type.Length()
}

// Squares returns the occupied squares in placement order.
func (s *Ship) Squares() []*Square {
	return s.squares
}

// IsPlaced reports whether the ship occupies any square.
func (s *Ship) IsPlaced() bool {
	return len(s.squares) > 0
}

// IsSunk reports whether every occupied square has been guessed.
func (s *Ship) IsSunk() bool {
	if len(s.squares) == 0 {
		return false
	}
	for _, sq := range s.squares {
		if !sq.guessed {
			return false
		}
	}
	return true
}

// TopLeft returns the smallest x and y among the occupied squares.
// ok is false for an unplaced ship.
func (s *Ship) TopLeft() (x, y int, ok bool) {
	if len(s.squares) == 0 {
		return 0, 0, false
	}
	x, y = s.squares[0].X, s.squares[0].Y
	for _, sq := range s.squares[1:] {
		x = min(x, sq.X)
		y = min(y, sq.Y)
	}
	return x, y, true
}

// Coords returns the occupied coordinates as (x, y) pairs.
func (s *Ship) Coords() [][2]int {
	coords := make([][2]int, 0, len(s.squares))
	for _, sq := range s.squares {
		coords = append(coords, [2]int{sq.X, sq.Y})
	}
	return coords
}
