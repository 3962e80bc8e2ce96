package service

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/beka-birhanu/battleship-server/logger"
	"github.com/beka-birhanu/battleship-server/message"
	"github.com/beka-birhanu/battleship-server/metrics"
	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const waitFor = 2 * time.Second

// fakeConn is an in-memory Conn. The test writes to in and reads from out;
// errors written to errs are returned by Recv.
type fakeConn struct {
	in     chan message.Message
	errs   chan error
	out    chan message.Message
	closed chan struct{}
	once   sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		in:     make(chan message.Message, 16),
		errs:   make(chan error, 1),
		out:    make(chan message.Message, 512),
		closed: make(chan struct{}),
	}
}

func (c *fakeConn) Send(m message.Message) error {
	select {
	case <-c.closed:
		return io.ErrClosedPipe
	case c.out <- m:
		return nil
	}
}

func (c *fakeConn) Recv() (message.Message, error) {
	select {
	case <-c.closed:
		return nil, io.EOF
	case m := <-c.in:
		return m, nil
	case err := <-c.errs:
		return nil, err
	}
}

func (c *fakeConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) RemoteAddr() string { return "fake" }

// stubAuth accepts any known name whose password is "pw".
type stubAuth struct {
	mu    sync.Mutex
	users map[string]bool
}

func newStubAuth(names ...string) *stubAuth {
	a := &stubAuth{users: make(map[string]bool)}
	for _, n := range names {
		a.users[n] = true
	}
	return a
}

func (a *stubAuth) Authenticate(name, password string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.users[name] && password == "pw"
}

func (a *stubAuth) Register(name, _ string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.users[name] {
		return false
	}
	a.users[name] = true
	return true
}

type testRoom struct {
	*MatchRoom
	clock   *clock.Mock
	metrics *metrics.Metrics
	ctx     context.Context
}

func newTestRoom(t *testing.T, opts ...func(*Config)) *testRoom {
	t.Helper()
	mock := clock.NewMock()
	m := metrics.New(prometheus.NewRegistry())
	cfg := &Config{
		Auth:                newStubAuth("a", "b", "c", "d"),
		Clock:               mock,
		Logger:              logger.FromZap(zaptest.NewLogger(t)),
		Metrics:             m,
		PlacementTimeout:    100 * time.Second,
		TurnTimeout:         40 * time.Second,
		InactivityTimeout:   time.Hour,
		OutboundBufferSize:  256,
		SpectatorsByDefault: true,
		Coin:                func() int { return 0 },
	}
	for _, opt := range opts {
		opt(cfg)
	}
	r, err := NewMatchRoom(cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return &testRoom{MatchRoom: r, clock: mock, metrics: m, ctx: ctx}
}

type client struct {
	t    *testing.T
	conn *fakeConn
	errc chan error
	key  string
}

func (r *testRoom) connect(t *testing.T) *client {
	t.Helper()
	return r.connectWith(r.ctx, t, newFakeConn())
}

func (r *testRoom) connectWith(ctx context.Context, t *testing.T, conn *fakeConn) *client {
	t.Helper()
	c := &client{t: t, conn: conn, errc: make(chan error, 1)}
	done := make(chan struct{})
	go func() {
		defer close(done)
		c.errc <- r.Serve(ctx, c.conn)
	}()
	// The session logs through t, so it must finish before the test does.
	t.Cleanup(func() {
		_ = c.conn.Close()
		select {
		case <-done:
		case <-time.After(waitFor):
			t.Error("session did not stop")
		}
	})
	return c
}

func (c *client) send(m message.Message) {
	c.t.Helper()
	select {
	case c.conn.in <- m:
	case <-time.After(waitFor):
		c.t.Fatalf("session did not read %s", m.Type())
	}
}

func (c *client) lobby(op string, args ...string) {
	c.t.Helper()
	c.send(&message.LobbyCommand{Op: op, Args: args})
}

// next returns the next message that is not a match room snapshot.
func (c *client) next() message.Message {
	c.t.Helper()
	deadline := time.After(waitFor)
	for {
		select {
		case m := <-c.conn.out:
			if _, ok := m.(*message.MatchRoomSnapshot); ok {
				continue
			}
			return m
		case <-deadline:
			c.t.Fatal("no message received")
			return nil
		}
	}
}

// expect asserts the next non-snapshot message is a notification with code.
func (c *client) expect(code message.Code) *message.Notification {
	c.t.Helper()
	m := c.next()
	n, ok := m.(*message.Notification)
	require.True(c.t, ok, "want %s, got %T %+v", code, m, m)
	require.Equal(c.t, code, n.Code, "notification %+v", n)
	return n
}

// await skips messages until a notification with code arrives.
func (c *client) await(code message.Code) *message.Notification {
	c.t.Helper()
	deadline := time.After(waitFor)
	for {
		select {
		case m := <-c.conn.out:
			if n, ok := m.(*message.Notification); ok && n.Code == code {
				return n
			}
		case <-deadline:
			c.t.Fatalf("no %s received", code)
			return nil
		}
	}
}

func (c *client) expectResult() *message.MoveResult {
	c.t.Helper()
	m := c.next()
	r, ok := m.(*message.MoveResult)
	require.True(c.t, ok, "want move result, got %T %+v", m, m)
	return r
}

// expectQuiet asserts nothing but snapshots arrives for a short while.
func (c *client) expectQuiet() {
	c.t.Helper()
	deadline := time.After(50 * time.Millisecond)
	for {
		select {
		case m := <-c.conn.out:
			if _, ok := m.(*message.MatchRoomSnapshot); !ok {
				c.t.Fatalf("unexpected %T %+v", m, m)
			}
		case <-deadline:
			return
		}
	}
}

// login authenticates as name and joins the waiting table.
func (r *testRoom) login(t *testing.T, name string) *client {
	t.Helper()
	c := r.connect(t)
	c.lobby(message.OpLogin, name, "pw")
	c.expect(message.NameAccepted)
	c.lobby(message.OpJoin, message.JoinStart)
	c.key = c.expect(message.GameToken).Text[0]
	return c
}

// pair logs in a and b and starts a game in which b invited a, so b holds
// side 0 and moves first with the fixed coin.
func (r *testRoom) pair(t *testing.T, visibility ...string) (a, b *client) {
	t.Helper()
	a, b = r.login(t, "a"), r.login(t, "b")

	b.lobby(message.OpJoin, message.JoinJoin, a.key)
	n := a.expect(message.NewJoinGameRequest)
	require.Equal(t, []string{b.key, "b"}, n.Text)

	a.lobby(message.OpJoin, append([]string{message.JoinAccept, b.key}, visibility...)...)
	b.expect(message.JoinGameRequestAccepted)

	require.Equal(t, []string{"a"}, b.expect(message.OpponentsName).Text)
	b.expect(message.PlaceShips)
	require.Equal(t, []string{"b"}, a.expect(message.OpponentsName).Text)
	a.expect(message.PlaceShips)
	return a, b
}

// fleet is a legal submission: carrier along y=0, battleships along y=2 and
// y=4, a vertical battleship in column 9 and a vertical patrol boat at (7,7).
func fleet() *message.BoardSubmission {
	horizontal := func(kind string, x, y, n int) message.ShipLayout {
		l := message.ShipLayout{Kind: kind}
		for i := 0; i < n; i++ {
			l.Cells = append(l.Cells, message.Coord{X: x + i, Y: y})
		}
		return l
	}
	vertical := func(kind string, x, y, n int) message.ShipLayout {
		l := message.ShipLayout{Kind: kind, Vertical: true}
		for i := 0; i < n; i++ {
			l.Cells = append(l.Cells, message.Coord{X: x, Y: y + i})
		}
		return l
	}
	return &message.BoardSubmission{Ships: []message.ShipLayout{
		horizontal("carrier", 0, 0, 5),
		horizontal("battleship", 0, 2, 4),
		horizontal("battleship", 0, 4, 4),
		vertical("battleship", 9, 0, 4),
		vertical("patrol_boat", 7, 7, 2),
	}}
}

// fleetCells lists every occupied cell of fleet, patrol boat last.
func fleetCells() []message.Coord {
	var cells []message.Coord
	for _, s := range fleet().Ships {
		cells = append(cells, s.Cells...)
	}
	return cells
}

// startTurns submits both fleets; b moves first.
func startTurns(t *testing.T, a, b *client) {
	t.Helper()
	b.send(fleet())
	b.expect(message.BoardAccepted)
	a.send(fleet())
	a.expect(message.BoardAccepted)
	a.expect(message.OpponentsTurn)
	b.expect(message.YourTurn)
}
