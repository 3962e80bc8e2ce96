package board

// State is what an observer may know about a square.
type State uint8

const (
	Unknown State = iota // not guessed, contents hidden
	Empty                // not guessed, known to be water
	Occupied             // not guessed, known to hold a ship
	Hit
	Miss
)

func (s State) String() string {
	switch s {
	case Empty:
		return "empty"
	case Occupied:
		return "ship"
	case Hit:
		return "hit"
	case Miss:
		return "miss"
	}
	return "unknown"
}

// Square is one cell of a board. The ship reference is owned by the board.
type Square struct {
	X, Y     int
	ship     *Ship
	guessed  bool
	hit      bool
	ownBoard bool
}

func newSquare(x, y int, ownBoard bool) *Square {
	return &Square{X: x, Y: y, ownBoard: ownBoard}
}

// Ship returns the occupying ship, or nil.
func (s *Square) Ship() *Ship {
	return s.ship
}

func (s *Square) IsShip() bool {
	return s.ship != nil
}

func (s *Square) IsGuessed() bool {
	return s.guessed
}

// IsOwnBoard reports whether the square belongs to its holder's own board.
func (s *Square) IsOwnBoard() bool {
	return s.ownBoard
}

// Guess marks the square as guessed and reports whether it held a ship.
// Callers reject repeated guesses before calling it.
func (s *Square) Guess() bool {
	s.guessed = true
	s.hit = s.ship != nil
	return s.hit
}

// State returns the square as its board's holder sees it. An opponent's
// un-guessed ship is never reported as Occupied.
func (s *Square) State() State {
	return s.stateAs(s.ownBoard)
}

func (s *Square) stateAs(owner bool) State {
	switch {
	case s.guessed && s.hit:
		return Hit
	case s.guessed:
		return Miss
	case !owner:
		return Unknown
	case s.ship != nil:
		return Occupied
	}
	return Empty
}

// update records a reported outcome on a mirror square.
func (s *Square) update(hit bool, ship *Ship) {
	s.guessed = true
	s.hit = hit
	if ship != nil {
		s.ship = ship
	}
}
