// Package message defines the closed set of payloads exchanged between a session
// and its peer, and the tagged envelope they travel in.
package message

// Type tags a payload inside an Envelope.
type Type uint8

const (
	TypeLobbyCommand Type = iota + 1
	TypeBoardSubmission
	TypeMoveRequest
	TypeChat
	TypeNotification
	TypeMoveResult
	TypeMatchRoomSnapshot
	TypeBoardSnapshot
)

func (t Type) String() string {
	switch t {
	case TypeLobbyCommand:
		return "lobby_command"
	case TypeBoardSubmission:
		return "board_submission"
	case TypeMoveRequest:
		return "move_request"
	case TypeChat:
		return "chat"
	case TypeNotification:
		return "notification"
	case TypeMoveResult:
		return "move_result"
	case TypeMatchRoomSnapshot:
		return "match_room_snapshot"
	case TypeBoardSnapshot:
		return "board_snapshot"
	}
	return "unknown"
}

// Message is implemented only by the payload types of this package.
type Message interface {
	Type() Type
	sealed()
}

// Lobby command names.
const (
	OpJoin     = "join"
	OpLogin    = "login"
	OpRegister = "register"

	JoinStart  = "start"
	JoinJoin   = "join"
	JoinAccept = "accept"
	JoinReject = "reject"
	JoinWatch  = "watch"
	JoinCancel = "cancel"

	VisibilityPublic  = "public"
	VisibilityPrivate = "private"
)

// LobbyCommand carries matchmaking and identity requests, e.g.
// {Op: "join", Args: ["accept", key, "public"]} or {Op: "login", Args: [name, password]}.
type LobbyCommand struct {
	Op   string   `msgpack:"op"`
	Args []string `msgpack:"args,omitempty"`
}

// Coord is a board coordinate.
type Coord struct {
	X int `msgpack:"x"`
	Y int `msgpack:"y"`
}

// ShipLayout is a ship as drawn by the client or revealed by the server.
type ShipLayout struct {
	Kind     string  `msgpack:"kind"`
	Vertical bool    `msgpack:"vertical"`
	Cells    []Coord `msgpack:"cells"`
}

// BoardSubmission is a player's fleet for the current match. Grid, when set, is
// indexed [x][y] and names the ship kind on each cell ("" for water).
type BoardSubmission struct {
	Ships []ShipLayout `msgpack:"ships"`
	Grid  [][]string   `msgpack:"grid,omitempty"`
}

type MoveRequest struct {
	X int `msgpack:"x"`
	Y int `msgpack:"y"`
}

// Chat is relayed between opponents. From is filled in by the server.
type Chat struct {
	From string `msgpack:"from,omitempty"`
	Text string `msgpack:"text"`
}

type Notification struct {
	Code Code     `msgpack:"code"`
	Text []string `msgpack:"text,omitempty"`
}

// MoveResult reports a guess. OwnBoard is true for the receiver whose board was
// guessed at.
type MoveResult struct {
	X        int         `msgpack:"x"`
	Y        int         `msgpack:"y"`
	Hit      bool        `msgpack:"hit"`
	Sunk     *ShipLayout `msgpack:"sunk,omitempty"`
	OwnBoard bool        `msgpack:"own_board"`
}

type RoomEntry struct {
	Name   string `msgpack:"name"`
	InGame bool   `msgpack:"in_game"`
}

// MatchRoomSnapshot lists lobby sessions by key.
type MatchRoomSnapshot struct {
	Players map[string]RoomEntry `msgpack:"players"`
}

// BoardView is a board as some observer may see it. Cells is indexed [x][y]
// and holds board.State names.
type BoardView struct {
	Cells [][]string   `msgpack:"cells"`
	Ships []ShipLayout `msgpack:"ships,omitempty"`
}

// BoardSnapshot is sent to a new watcher: the watched player's board and the
// opponent's board as the watched player knows it.
type BoardSnapshot struct {
	Friend BoardView `msgpack:"friend"`
	Enemy  BoardView `msgpack:"enemy"`
}

func (*LobbyCommand) Type() Type      { return TypeLobbyCommand }
func (*BoardSubmission) Type() Type   { return TypeBoardSubmission }
func (*MoveRequest) Type() Type       { return TypeMoveRequest }
func (*Chat) Type() Type              { return TypeChat }
func (*Notification) Type() Type      { return TypeNotification }
func (*MoveResult) Type() Type        { return TypeMoveResult }
func (*MatchRoomSnapshot) Type() Type { return TypeMatchRoomSnapshot }
func (*BoardSnapshot) Type() Type     { return TypeBoardSnapshot }

func (*LobbyCommand) sealed()      {}
func (*BoardSubmission) sealed()   {}
func (*MoveRequest) sealed()       {}
func (*Chat) sealed()              {}
func (*Notification) sealed()      {}
func (*MoveResult) sealed()        {}
func (*MatchRoomSnapshot) sealed() {}
func (*BoardSnapshot) sealed()     {}

// Notify builds a notification.
func Notify(code Code, text ...string) *Notification {
	return &Notification{Code: code, Text: text}
}
