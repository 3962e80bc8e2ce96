package message

import (
	"errors"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Codec errors.
var (
	ErrUnknownType = errors.New("unknown message type")
	ErrNilMessage  = errors.New("nil message")
	ErrMalformed   = errors.New("malformed message")
)

// Envelope is the wire frame: a type tag and the msgpack-encoded payload.
type Envelope struct {
	Type    Type               `msgpack:"t"`
	Payload msgpack.RawMessage `msgpack:"p"`
}

// Wrap encodes m into an envelope.
func Wrap(m Message) (*Envelope, error) {
	if m == nil {
		return nil, ErrNilMessage
	}
	payload, err := msgpack.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encoding %s payload: %w", m.Type(), err)
	}
	return &Envelope{Type: m.Type(), Payload: payload}, nil
}

// Open decodes the payload into its concrete message type. Every decoding
// failure wraps ErrMalformed.
func (e *Envelope) Open() (Message, error) {
	m, err := newOfType(e.Type)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if err := msgpack.Unmarshal(e.Payload, m); err != nil {
		return nil, fmt.Errorf("%w: decoding %s payload: %w", ErrMalformed, e.Type, err)
	}
	return m, nil
}

// Marshal encodes m as a complete frame.
func Marshal(m Message) ([]byte, error) {
	env, err := Wrap(m)
	if err != nil {
		return nil, err
	}
	return msgpack.Marshal(env)
}

// Unmarshal decodes a complete frame.
func Unmarshal(data []byte) (Message, error) {
	var env Envelope
	if err := msgpack.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: decoding envelope: %w", ErrMalformed, err)
	}
	return env.Open()
}

func newOfType(t Type) (Message, error) {
	switch t {
	case TypeLobbyCommand:
		return &LobbyCommand{}, nil
	case TypeBoardSubmission:
		return &BoardSubmission{}, nil
	case TypeMoveRequest:
		return &MoveRequest{}, nil
	case TypeChat:
		return &Chat{}, nil
	case TypeNotification:
		return &Notification{}, nil
	case TypeMoveResult:
		return &MoveResult{}, nil
	case TypeMatchRoomSnapshot:
		return &MatchRoomSnapshot{}, nil
	case TypeBoardSnapshot:
		return &BoardSnapshot{}, nil
	}
	return nil, fmt.Errorf("%w: %d", ErrUnknownType, t)
}
