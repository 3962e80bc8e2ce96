package service

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/beka-birhanu/battleship-server/message"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (c *client) waitClosed() error {
	c.t.Helper()
	select {
	case err := <-c.errc:
		return err
	case <-time.After(waitFor):
		c.t.Fatal("session still running")
		return nil
	}
}

func TestInactivityClosesSession(t *testing.T) {
	r := newTestRoom(t, func(c *Config) { c.InactivityTimeout = time.Minute })
	c := r.connect(t)
	c.lobby(message.OpLogin, "a", "pw")
	c.expect(message.NameAccepted)

	r.clock.Add(time.Minute)
	c.expect(message.PlayerInactivity)
	require.ErrorIs(t, c.waitClosed(), ErrInactive)

	require.Eventually(t, func() bool {
		return testutil.ToFloat64(r.metrics.SessionsConnected) == 0
	}, waitFor, 10*time.Millisecond)
}

func TestActivityResetsInactivity(t *testing.T) {
	r := newTestRoom(t, func(c *Config) { c.InactivityTimeout = time.Minute })
	c := r.connect(t)
	c.lobby(message.OpLogin, "a", "pw")
	c.expect(message.NameAccepted)

	r.clock.Add(40 * time.Second)
	c.lobby(message.OpJoin, message.JoinStart)
	c.expect(message.GameToken)

	r.clock.Add(40 * time.Second)
	c.expectQuiet()

	r.clock.Add(20 * time.Second)
	c.expect(message.PlayerInactivity)
}

func TestInactivityForfeitsGame(t *testing.T) {
	r := newTestRoom(t, func(c *Config) {
		c.InactivityTimeout = 5 * time.Minute
		c.PlacementTimeout = time.Hour
	})
	a, b := r.pair(t)

	// b stays active; a goes silent.
	r.clock.Add(4 * time.Minute)
	b.send(&message.Chat{Text: "still here"})
	a.next()

	r.clock.Add(time.Minute)
	a.await(message.PlayerInactivity)
	b.await(message.OpponentDisconnected)
	b.expect(message.GameWin)
}

func TestServerOnlyMessagesIgnored(t *testing.T) {
	r := newTestRoom(t)
	c := r.login(t, "a")

	c.send(message.Notify(message.GameWin))
	c.send(&message.MatchRoomSnapshot{})
	c.lobby("dance")
	c.expectQuiet()

	c.lobby(message.OpJoin, message.JoinJoin, c.key)
	c.expect(message.CannotPlayYourself)
}

func TestSecondLoginRefused(t *testing.T) {
	r := newTestRoom(t)
	c := r.login(t, "a")

	c.lobby(message.OpLogin, "b", "pw")
	c.expect(message.NameTaken)
}

func TestSlowConsumerClosed(t *testing.T) {
	r := newTestRoom(t, func(c *Config) { c.OutboundBufferSize = 1 })
	conn := newFakeConn()
	conn.out = make(chan message.Message)
	c := r.connectWith(r.ctx, t, conn)

	c.lobby(message.OpLogin, "a", "pw")
	c.lobby(message.OpJoin, message.JoinStart)
	require.Error(t, c.waitClosed())

	require.Eventually(t, func() bool {
		return len(r.Snapshot().Players) == 0
	}, waitFor, 10*time.Millisecond)
}

func TestCancelledContextEndsSession(t *testing.T) {
	r := newTestRoom(t)
	ctx, cancel := context.WithCancel(context.Background())
	c := r.connectWith(ctx, t, newFakeConn())
	c.lobby(message.OpLogin, "a", "pw")
	c.expect(message.NameAccepted)
	assert.Equal(t, 1.0, testutil.ToFloat64(r.metrics.SessionsConnected))

	cancel()
	require.Error(t, c.waitClosed())
	require.Eventually(t, func() bool {
		return testutil.ToFloat64(r.metrics.SessionsConnected) == 0
	}, waitFor, 10*time.Millisecond)
}

func TestMalformedFrameKeepsSession(t *testing.T) {
	r := newTestRoom(t)
	c := r.connect(t)

	c.conn.errs <- fmt.Errorf("%w: decoding envelope: %w", message.ErrMalformed, io.ErrUnexpectedEOF)
	c.lobby(message.OpLogin, "a", "pw")
	c.expect(message.NameAccepted)
}
