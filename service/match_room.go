package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"slices"
	"sync"
	"time"

	"github.com/beka-birhanu/battleship-server/logger"
	"github.com/beka-birhanu/battleship-server/message"
	"github.com/beka-birhanu/battleship-server/metrics"
	"github.com/beka-birhanu/battleship-server/service/i"
	"github.com/benbjohnson/clock"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	defaultPlacementTimeout   = 100 * time.Second
	defaultTurnTimeout        = 40 * time.Second
	defaultInactivityTimeout  = 10 * time.Minute
	defaultOutboundBufferSize = 64
)

// ErrMissingAuthenticator is returned when the room has no credential store.
var ErrMissingAuthenticator = errors.New("match room needs an authenticator")

// Config wires the match room and the games it creates.
type Config struct {
	Auth                i.Authenticator
	Clock               clock.Clock
	Logger              i.Logger
	Metrics             *metrics.Metrics
	PlacementTimeout    time.Duration
	TurnTimeout         time.Duration
	InactivityTimeout   time.Duration
	OutboundBufferSize  int
	SpectatorsByDefault bool

	// Coin picks the side that moves first, 0 or 1.
	Coin func() int
}

// MatchRoom is the lobby: it registers sessions, relays invitations and pairs
// players into games. Lock order is room, then game, then player.
type MatchRoom struct {
	cfg       Config
	waiting   map[string]*Player
	connected map[string]*Player
	games     map[uuid.UUID]*Game
	validate  *validator.Validate
	logger    i.Logger
	sync.Mutex
}

// NewMatchRoom fills unset options with defaults.
func NewMatchRoom(c *Config) (*MatchRoom, error) {
	if c.Auth == nil {
		return nil, ErrMissingAuthenticator
	}

	cfg := *c
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Nop()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.New(prometheus.NewRegistry())
	}
	if cfg.Coin == nil {
		cfg.Coin = func() int { return rand.Intn(2) }
	}
	if cfg.PlacementTimeout <= 0 {
		cfg.PlacementTimeout = defaultPlacementTimeout
	}
	if cfg.TurnTimeout <= 0 {
		cfg.TurnTimeout = defaultTurnTimeout
	}
	if cfg.InactivityTimeout <= 0 {
		cfg.InactivityTimeout = defaultInactivityTimeout
	}
	if cfg.OutboundBufferSize <= 0 {
		cfg.OutboundBufferSize = defaultOutboundBufferSize
	}

	return &MatchRoom{
		cfg:       cfg,
		waiting:   make(map[string]*Player),
		connected: make(map[string]*Player),
		games:     make(map[uuid.UUID]*Game),
		validate:  validator.New(),
		logger:    cfg.Logger,
	}, nil
}

// Serve registers a session for conn and runs it to completion.
func (r *MatchRoom) Serve(ctx context.Context, conn i.Conn) error {
	p := newPlayer(conn, r)
	r.Register(p)
	r.logger.Info(fmt.Sprintf("%s connected with key %s", conn.RemoteAddr(), p.Key()))

	err := p.Run(ctx)
	r.logger.Info(fmt.Sprintf("%s disconnected: %v", p.Key(), err))
	return err
}

// Register gives p a fresh key and records it as connected.
func (r *MatchRoom) Register(p *Player) {
	r.Lock()
	defer r.Unlock()
	p.key = r.newKey()
	r.connected[p.key] = p
	r.cfg.Metrics.SessionsConnected.Inc()
}

func (r *MatchRoom) newKey() string {
	key := uuid.NewString()
	for {
		if _, ok := r.connected[key]; !ok {
			return key
		}
		key = uuid.NewString()
	}
}

// Unregister removes p from the room and settles its invitations.
func (r *MatchRoom) Unregister(p *Player) {
	r.Lock()
	defer r.Unlock()

	if _, ok := r.connected[p.key]; !ok {
		return
	}
	delete(r.connected, p.key)
	r.cfg.Metrics.SessionsConnected.Dec()

	r.cancelSent(p)
	r.rejectReceived(p)
	for _, other := range r.connected {
		other.watchCandidates = slices.DeleteFunc(other.watchCandidates, func(w *Player) bool { return w == p })
	}
	p.watchCandidates = nil

	delete(r.waiting, p.key)
	r.broadcast()
}

// ClaimName binds name to p unless another session already holds it.
func (r *MatchRoom) ClaimName(p *Player, name string) bool {
	r.Lock()
	defer r.Unlock()
	if r.nameExists(name) {
		return false
	}
	p.setName(name)
	return true
}

// PlayerNameExists reports whether a connected session is logged in as name.
func (r *MatchRoom) PlayerNameExists(name string) bool {
	r.Lock()
	defer r.Unlock()
	return r.nameExists(name)
}

func (r *MatchRoom) nameExists(name string) bool {
	for _, p := range r.connected {
		if p.Name() == name {
			return true
		}
	}
	return false
}

// JoinLobby puts p in the waiting table and hands it its key.
func (r *MatchRoom) JoinLobby(p *Player) {
	r.Lock()
	defer r.Unlock()
	r.waiting[p.key] = p
	p.Send(message.Notify(message.GameToken, p.key))
	r.broadcast()
}

// RemoveWaitingPlayer takes p out of the waiting table.
func (r *MatchRoom) RemoveWaitingPlayer(p *Player) {
	r.Lock()
	defer r.Unlock()
	if _, ok := r.waiting[p.key]; !ok {
		return
	}
	delete(r.waiting, p.key)
	r.broadcast()
}

// JoinRequest sends p's invitation to the waiting session with key. A previous
// outstanding invitation from p is cancelled.
func (r *MatchRoom) JoinRequest(p *Player, key string) {
	r.Lock()
	defer r.Unlock()

	if key == p.key {
		p.Send(message.Notify(message.CannotPlayYourself))
		return
	}
	opponent, ok := r.waiting[key]
	if !ok {
		p.Send(message.Notify(message.GameNotFound))
		return
	}
	if p.requestedKey == key {
		return
	}

	r.cancelSent(p)
	opponent.requests[p.key] = p
	p.requestedKey = key
	opponent.Send(message.Notify(message.NewJoinGameRequest, p.key, p.Name()))
}

// AcceptRequest pairs p with the session that invited it. Every other
// invitation involving either of them is settled and both leave the waiting
// table.
func (r *MatchRoom) AcceptRequest(p *Player, key string, public bool) {
	r.Lock()
	defer r.Unlock()

	requester, ok := r.waiting[key]
	if !ok || requester == p || requester.requestedKey != p.key {
		p.Send(message.Notify(message.GameNotFound))
		return
	}

	delete(p.requests, key)
	requester.requestedKey = ""
	requester.Send(message.Notify(message.JoinGameRequestAccepted, p.key))

	r.rejectReceived(p)
	r.rejectReceived(requester)
	r.cancelSent(p)

	delete(r.waiting, p.key)
	delete(r.waiting, requester.key)

	candidates := map[*Player][]*Player{
		requester: requester.watchCandidates,
		p:         p.watchCandidates,
	}
	requester.watchCandidates, p.watchCandidates = nil, nil

	for _, player := range []*Player{requester, p} {
		if prev := player.watchingGame(); prev != nil {
			prev.Unwatch(player)
		}
	}

	g := NewGame(requester, p, public, &r.cfg, r.gameEnded)
	r.games[g.ID()] = g
	for target, watchers := range candidates {
		for _, w := range watchers {
			// A candidate who is playing is not attached.
			if w.InGame() {
				continue
			}
			r.watch(g, target, w)
		}
	}
	r.broadcast()
}

// RejectRequest declines the invitation p received from key.
func (r *MatchRoom) RejectRequest(p *Player, key string) {
	r.Lock()
	defer r.Unlock()

	requester, ok := p.requests[key]
	if !ok {
		return
	}
	delete(p.requests, key)
	if requester.requestedKey == p.key {
		requester.requestedKey = ""
	}
	requester.Send(message.Notify(message.JoinGameRequestRejected, p.key))
}

// CancelRequest withdraws p's outstanding invitation.
func (r *MatchRoom) CancelRequest(p *Player) {
	r.Lock()
	defer r.Unlock()
	r.cancelSent(p)
}

// WatchRequest makes p a spectator of the session with key. When that session
// is not playing yet, p starts watching as soon as its game begins.
func (r *MatchRoom) WatchRequest(p *Player, key string) {
	r.Lock()
	defer r.Unlock()

	if key == p.key {
		p.Send(message.Notify(message.CannotPlayYourself))
		return
	}
	target, ok := r.connected[key]
	if !ok {
		p.Send(message.Notify(message.GameNotFound))
		return
	}

	if g := target.currentGame(); g != nil {
		r.watch(g, target, p)
		return
	}
	if !slices.Contains(target.watchCandidates, p) {
		target.watchCandidates = append(target.watchCandidates, p)
	}
}

func (r *MatchRoom) watch(g *Game, target, watcher *Player) {
	if prev := watcher.watchingGame(); prev != nil && prev != g {
		prev.Unwatch(watcher)
	}
	g.Watch(target, watcher)
}

// Snapshot lists the waiting sessions and the logged-in sessions in a game.
func (r *MatchRoom) Snapshot() *message.MatchRoomSnapshot {
	r.Lock()
	defer r.Unlock()
	return r.snapshot()
}

func (r *MatchRoom) snapshot() *message.MatchRoomSnapshot {
	s := &message.MatchRoomSnapshot{Players: make(map[string]message.RoomEntry)}
	for key, p := range r.waiting {
		s.Players[key] = message.RoomEntry{Name: p.Name(), InGame: p.InGame()}
	}
	for key, p := range r.connected {
		if _, listed := s.Players[key]; listed || !p.InGame() {
			continue
		}
		if name := p.Name(); name != "" {
			s.Players[key] = message.RoomEntry{Name: name, InGame: true}
		}
	}
	return s
}

// broadcast sends the snapshot to every waiting session not in a game.
func (r *MatchRoom) broadcast() {
	r.cfg.Metrics.PlayersWaiting.Set(float64(len(r.waiting)))
	s := r.snapshot()
	for _, p := range r.waiting {
		if !p.InGame() {
			p.Send(s)
		}
	}
}

// cancelSent withdraws p's outstanding invitation, if any.
func (r *MatchRoom) cancelSent(p *Player) {
	if p.requestedKey == "" {
		return
	}
	if target, ok := r.connected[p.requestedKey]; ok {
		delete(target.requests, p.key)
		target.Send(message.Notify(message.JoinGameRequestCancelled, p.key))
	}
	p.requestedKey = ""
}

// rejectReceived declines every invitation p still holds.
func (r *MatchRoom) rejectReceived(p *Player) {
	for key, requester := range p.requests {
		if requester.requestedKey == p.key {
			requester.requestedKey = ""
		}
		requester.Send(message.Notify(message.JoinGameRequestRejected, p.key))
		delete(p.requests, key)
	}
}

func (r *MatchRoom) gameEnded(g *Game) {
	r.Lock()
	defer r.Unlock()
	delete(r.games, g.ID())
	r.broadcast()
}

// StopAll tears down every live game.
func (r *MatchRoom) StopAll() {
	r.Lock()
	games := make([]*Game, 0, len(r.games))
	for _, g := range r.games {
		games = append(games, g)
	}
	r.Unlock()

	for _, g := range games {
		g.Abort()
	}
}
