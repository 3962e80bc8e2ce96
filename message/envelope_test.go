package message

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

func TestFrameKeepsTypeTag(t *testing.T) {
	sent := &MoveResult{
		X: 7, Y: 8, Hit: true,
		Sunk:     &ShipLayout{Kind: "patrol_boat", Vertical: true, Cells: []Coord{{7, 7}, {7, 8}}},
		OwnBoard: true,
	}
	data, err := Marshal(sent)
	require.NoError(t, err)

	got, err := Unmarshal(data)
	require.NoError(t, err)
	result, ok := got.(*MoveResult)
	require.True(t, ok, "decoded %T", got)
	assert.Equal(t, sent, result)
}

func TestUnmarshalUnknownType(t *testing.T) {
	data, err := msgpack.Marshal(&Envelope{Type: 99, Payload: msgpack.RawMessage{0xc0}})
	require.NoError(t, err)

	_, err = Unmarshal(data)
	require.ErrorIs(t, err, ErrUnknownType)
	require.ErrorIs(t, err, ErrMalformed)
}

func TestUnmarshalGarbage(t *testing.T) {
	_, err := Unmarshal([]byte{0xff, 0x00})
	require.ErrorIs(t, err, ErrMalformed)
}

func TestWrapNil(t *testing.T) {
	_, err := Wrap(nil)
	require.ErrorIs(t, err, ErrNilMessage)
}

func TestCodeNames(t *testing.T) {
	assert.Equal(t, "timeout_draw", TimeoutDraw.String())
	assert.Equal(t, "unknown", Code(42).String())
	assert.Equal(t, "board_snapshot", (&BoardSnapshot{}).Type().String())
}
