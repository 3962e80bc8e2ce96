package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/beka-birhanu/battleship-server/message"
	"github.com/beka-birhanu/battleship-server/service/i"
	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/errgroup"
)

// Session errors.
var (
	ErrSessionClosed     = errors.New("session closed")
	ErrInactive          = errors.New("session inactive")
	ErrSlowConsumer      = errors.New("outbound queue full")
	ErrDispatchPanic     = errors.New("panic while handling message")
	ErrUnexpectedMessage = errors.New("unexpected message type")
)

// credentials is a login or register request after argument parsing.
type credentials struct {
	Name     string `validate:"required,max=32"`
	Password string `validate:"required"`
}

// keyArg is a match room key supplied by a client.
type keyArg struct {
	Key string `validate:"required,uuid4"`
}

type outbound struct {
	msg        message.Message
	closeAfter bool
}

// Player is one connected session. A reader goroutine dispatches inbound
// messages and a writer goroutine drains the outbound queue, so Send never
// blocks the caller.
type Player struct {
	key  string
	conn i.Conn
	room *MatchRoom

	outbound  chan outbound
	done      chan struct{}
	closeOnce sync.Once

	// guarded by mu
	name       string
	game       *Game
	watching   *Game
	inactivity deadline
	mu         sync.Mutex

	// guarded by the room lock
	requests        map[string]*Player
	requestedKey    string
	watchCandidates []*Player
}

func newPlayer(conn i.Conn, room *MatchRoom) *Player {
	return &Player{
		conn:     conn,
		room:     room,
		outbound: make(chan outbound, room.cfg.OutboundBufferSize),
		done:     make(chan struct{}),
		requests: make(map[string]*Player),
	}
}

// Key is the session's match room key.
func (p *Player) Key() string {
	return p.key
}

// Name is the login name, empty until the session logs in.
func (p *Player) Name() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.name
}

// InGame reports whether the session is bound to a live game.
func (p *Player) InGame() bool {
	return p.currentGame() != nil
}

func (p *Player) setName(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.name = name
}

func (p *Player) currentGame() *Game {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.game
}

func (p *Player) setGame(g *Game) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.game = g
}

func (p *Player) clearGame(g *Game) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.game == g {
		p.game = nil
	}
}

func (p *Player) watchingGame() *Game {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.watching
}

func (p *Player) setWatching(g *Game) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.watching = g
}

func (p *Player) clearWatching(g *Game) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.watching == g {
		p.watching = nil
	}
}

// Send queues m for delivery. A session whose queue is full is closed.
func (p *Player) Send(m message.Message) {
	p.enqueue(outbound{msg: m})
}

func (p *Player) sendAndClose(m message.Message) {
	p.enqueue(outbound{msg: m, closeAfter: true})
}

func (p *Player) enqueue(o outbound) {
	select {
	case <-p.done:
		return
	default:
	}

	select {
	case p.outbound <- o:
	default:
		p.room.logger.Warning(fmt.Sprintf("closing %s: %s", p.key, ErrSlowConsumer))
		p.close()
	}
}

func (p *Player) close() {
	p.closeOnce.Do(func() {
		close(p.done)
		if err := p.conn.Close(); err != nil {
			p.room.logger.Warning(fmt.Sprintf("closing connection of %s: %s", p.key, err))
		}
	})
}

// Run serves the session until the connection fails, the session is closed or
// ctx is cancelled. On the way out it forfeits any game and leaves the room.
func (p *Player) Run(ctx context.Context) error {
	p.refreshInactivity()

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(p.readLoop)
	eg.Go(func() error { return p.writeLoop(ctx) })
	eg.Go(func() error {
		select {
		case <-ctx.Done():
		case <-p.done:
		}
		p.close()
		return nil
	})

	err := eg.Wait()
	p.cleanup()
	return err
}

func (p *Player) readLoop() error {
	for {
		m, err := p.conn.Recv()
		if errors.Is(err, message.ErrMalformed) {
			p.room.logger.Warning(fmt.Sprintf("session %s: dropped frame: %s", p.key, err))
			continue
		}
		if err != nil {
			select {
			case <-p.done:
				return ErrSessionClosed
			default:
			}
			return fmt.Errorf("reading from %s: %w", p.conn.RemoteAddr(), err)
		}
		p.refreshInactivity()
		if err := p.dispatch(m); err != nil {
			return err
		}
	}
}

func (p *Player) writeLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-p.done:
			return ErrSessionClosed
		case o := <-p.outbound:
			if err := p.conn.Send(o.msg); err != nil {
				return fmt.Errorf("writing to %s: %w", p.conn.RemoteAddr(), err)
			}
			if o.closeAfter {
				return ErrInactive
			}
		}
	}
}

func (p *Player) cleanup() {
	p.mu.Lock()
	p.inactivity.stop()
	p.mu.Unlock()

	if g := p.currentGame(); g != nil {
		g.Leave(p)
	}
	if g := p.watchingGame(); g != nil {
		g.Unwatch(p)
	}
	p.room.Unregister(p)
}

func (p *Player) refreshInactivity() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.inactivity.arm(p.room.cfg.Clock, p.room.cfg.InactivityTimeout, p.inactivityExpired)
}

func (p *Player) inactivityExpired(gen uint64) {
	p.mu.Lock()
	live := p.inactivity.current(gen)
	if live {
		p.inactivity.stop()
	}
	p.mu.Unlock()
	if !live {
		return
	}

	p.room.logger.Info(fmt.Sprintf("%s inactive, closing session", p.key))
	p.sendAndClose(message.Notify(message.PlayerInactivity))
}

// dispatch handles one inbound message. A panic ends only this session.
func (p *Player) dispatch(m message.Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrDispatchPanic, r)
			p.room.logger.Error(fmt.Sprintf("session %s: %s", p.key, err))
		}
	}()

	switch msg := m.(type) {
	case *message.LobbyCommand:
		p.handleLobbyCommand(msg)
	case *message.BoardSubmission:
		p.handleBoardSubmission(msg)
	case *message.MoveRequest:
		p.handleMove(msg)
	case *message.Chat:
		p.handleChat(msg)
	case *message.Notification, *message.MoveResult, *message.MatchRoomSnapshot, *message.BoardSnapshot:
		p.room.logger.Warning(fmt.Sprintf("session %s sent server-only %s", p.key, m.Type()))
	default:
		return fmt.Errorf("%w: %T", ErrUnexpectedMessage, m)
	}
	return nil
}

func (p *Player) handleLobbyCommand(cmd *message.LobbyCommand) {
	switch cmd.Op {
	case message.OpLogin:
		p.handleLogin(cmd.Args, false)
	case message.OpRegister:
		p.handleLogin(cmd.Args, true)
	case message.OpJoin:
		p.handleJoin(cmd.Args)
	default:
		p.room.logger.Warning(fmt.Sprintf("session %s: unknown lobby op %q", p.key, cmd.Op))
	}
}

// handleLogin checks the name first, then whether it is in use, then the
// password, and finally the credential store.
func (p *Player) handleLogin(args []string, register bool) {
	if p.Name() != "" {
		p.Send(message.Notify(message.NameTaken))
		return
	}

	var c credentials
	if len(args) > 0 {
		c.Name = args[0]
	}
	if len(args) > 1 {
		c.Password = args[1]
	}
	if code, ok := p.validateCredentials(c); !ok {
		p.Send(message.Notify(code))
		return
	}

	if register {
		if !p.room.cfg.Auth.Register(c.Name, c.Password) {
			p.Send(message.Notify(message.NameTaken))
			return
		}
	} else if !p.room.cfg.Auth.Authenticate(c.Name, c.Password) {
		p.Send(message.Notify(message.PasswordIsInvalid))
		return
	}

	if !p.room.ClaimName(p, c.Name) {
		p.Send(message.Notify(message.NameTaken))
		return
	}
	p.Send(message.Notify(message.NameAccepted, c.Name))
	p.Send(p.room.Snapshot())
}

func (p *Player) validateCredentials(c credentials) (message.Code, bool) {
	err := p.room.validate.Struct(c)
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			if fe.Field() == "Name" {
				return message.InvalidLoginName, false
			}
		}
	}
	if p.room.PlayerNameExists(c.Name) {
		return message.NameTaken, false
	}
	if err != nil {
		return message.PasswordIsInvalid, false
	}
	return 0, true
}

func (p *Player) handleJoin(args []string) {
	if p.Name() == "" {
		p.room.logger.Warning(fmt.Sprintf("session %s: join before login", p.key))
		return
	}
	if len(args) == 0 {
		return
	}

	switch args[0] {
	case message.JoinStart:
		p.leaveGame()
		p.room.JoinLobby(p)
	case message.JoinCancel:
		p.room.CancelRequest(p)
	case message.JoinJoin, message.JoinAccept, message.JoinReject, message.JoinWatch:
		key, ok := p.parseKey(args)
		if !ok {
			p.Send(message.Notify(message.GameNotFound))
			return
		}
		switch args[0] {
		case message.JoinJoin:
			p.leaveGame()
			p.room.JoinRequest(p, key)
		case message.JoinAccept:
			p.leaveGame()
			p.room.AcceptRequest(p, key, p.visibility(args))
		case message.JoinReject:
			p.room.RejectRequest(p, key)
		case message.JoinWatch:
			p.leaveGame()
			p.room.WatchRequest(p, key)
		}
	default:
		p.room.logger.Warning(fmt.Sprintf("session %s: unknown join op %q", p.key, args[0]))
	}
}

func (p *Player) parseKey(args []string) (string, bool) {
	if len(args) < 2 {
		return "", false
	}
	k := keyArg{Key: args[1]}
	if err := p.room.validate.Struct(k); err != nil {
		return "", false
	}
	return k.Key, true
}

func (p *Player) visibility(args []string) bool {
	if len(args) > 2 {
		switch args[2] {
		case message.VisibilityPublic:
			return true
		case message.VisibilityPrivate:
			return false
		}
	}
	return p.room.cfg.SpectatorsByDefault
}

func (p *Player) leaveGame() {
	if g := p.currentGame(); g != nil {
		g.Leave(p)
	}
}

func (p *Player) handleBoardSubmission(sub *message.BoardSubmission) {
	g := p.currentGame()
	if g == nil {
		p.Send(message.Notify(message.NotInGame))
		return
	}
	b, err := boardFromSubmission(sub)
	if err != nil {
		p.room.logger.Warning(fmt.Sprintf("session %s: malformed board: %s", p.key, err))
		p.room.cfg.Metrics.RejectedBoards.Inc()
		p.Send(message.Notify(message.InvalidBoard))
		return
	}
	g.SubmitBoard(p, b)
}

func (p *Player) handleMove(m *message.MoveRequest) {
	g := p.currentGame()
	if g == nil {
		p.Send(message.Notify(message.NotInGame))
		return
	}
	g.ApplyMove(p, m.X, m.Y)
}

func (p *Player) handleChat(c *message.Chat) {
	if g := p.currentGame(); g != nil {
		g.Chat(p, c.Text)
	}
}
