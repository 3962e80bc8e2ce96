package message

// Code identifies a server notification. Values are grouped by hundreds:
// turn flow, outcomes, identity, lobby, protocol errors, placement, invites.
type Code int

const (
	PlaceShips    Code = 101
	YourTurn      Code = 102
	OpponentsTurn Code = 103

	GameWin              Code = 201
	GameLose             Code = 202
	TimeoutWin           Code = 203
	TimeoutLose          Code = 204
	TimeoutDraw          Code = 205
	OpponentDisconnected Code = 206

	OpponentsName     Code = 301
	PasswordIsInvalid Code = 302
	NameTaken         Code = 303
	NameAccepted      Code = 304
	InvalidLoginName  Code = 305
	Watching          Code = 306

	GameToken          Code = 401
	GameNotFound       Code = 402
	CannotPlayYourself Code = 403

	RepeatedMove Code = 501
	NotYourTurn  Code = 502
	InvalidMove  Code = 503
	InvalidBoard Code = 504
	NotInGame    Code = 505

	BoardAccepted Code = 601

	NewJoinGameRequest       Code = 701
	JoinGameRequestRejected  Code = 702
	JoinGameRequestAccepted  Code = 703
	JoinGameRequestCancelled Code = 704
	PlayerInactivity         Code = 705
)

var codeNames = map[Code]string{
	PlaceShips:               "place_ships",
	YourTurn:                 "your_turn",
	OpponentsTurn:            "opponents_turn",
	GameWin:                  "game_win",
	GameLose:                 "game_lose",
	TimeoutWin:               "timeout_win",
	TimeoutLose:              "timeout_lose",
	TimeoutDraw:              "timeout_draw",
	OpponentDisconnected:     "opponent_disconnected",
	OpponentsName:            "opponents_name",
	PasswordIsInvalid:        "password_is_invalid",
	NameTaken:                "name_taken",
	NameAccepted:             "name_accepted",
	InvalidLoginName:         "invalid_login_name",
	Watching:                 "watching",
	GameToken:                "game_token",
	GameNotFound:             "game_not_found",
	CannotPlayYourself:       "cannot_play_yourself",
	RepeatedMove:             "repeated_move",
	NotYourTurn:              "not_your_turn",
	InvalidMove:              "invalid_move",
	InvalidBoard:             "invalid_board",
	NotInGame:                "not_in_game",
	BoardAccepted:            "board_accepted",
	NewJoinGameRequest:       "new_join_game_request",
	JoinGameRequestRejected:  "join_game_request_rejected",
	JoinGameRequestAccepted:  "join_game_request_accepted",
	JoinGameRequestCancelled: "join_game_request_cancelled",
	PlayerInactivity:         "player_inactivity",
}

func (c Code) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return "unknown"
}
