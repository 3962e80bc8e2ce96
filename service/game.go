package service

import (
	"fmt"
	"slices"
	"sync"

	"github.com/beka-birhanu/battleship-server/board"
	"github.com/beka-birhanu/battleship-server/message"
	"github.com/beka-birhanu/battleship-server/metrics"
	"github.com/google/uuid"
)

// Phase is the lifecycle stage of a game.
type Phase uint8

const (
	PhasePlacement Phase = iota
	PhaseInTurn
	PhaseEnded
)

func (p Phase) String() string {
	switch p {
	case PhasePlacement:
		return "placement"
	case PhaseInTurn:
		return "in_turn"
	case PhaseEnded:
		return "ended"
	}
	return "unknown"
}

const noTurn = -1

// side is one participant with the board they submitted and the sessions
// watching them.
type side struct {
	player   *Player
	board    *board.Board
	watchers []*Player
}

// Game is one match between two players. Every exported method takes the game
// lock; none of them calls back into the match room while holding it.
type Game struct {
	id        uuid.UUID
	sides     [2]*side
	phase     Phase
	turn      int
	public    bool
	placement deadline
	turnTimer deadline
	cfg       *Config
	onEnd     func(*Game)
	sync.Mutex
}

// NewGame binds both players to a new game, tells them who they are facing and
// starts the placement phase. onEnd runs once, outside the game lock, after the
// game is torn down.
func NewGame(p1, p2 *Player, public bool, cfg *Config, onEnd func(*Game)) *Game {
	g := &Game{
		id:     uuid.New(),
		sides:  [2]*side{{player: p1}, {player: p2}},
		phase:  PhasePlacement,
		turn:   noTurn,
		public: public,
		cfg:    cfg,
		onEnd:  onEnd,
	}

	g.Lock()
	defer g.Unlock()
	g.placement.arm(cfg.Clock, cfg.PlacementTimeout, g.placementExpired)
	for idx, s := range g.sides {
		s.player.setGame(g)
		s.player.Send(message.Notify(message.OpponentsName, g.sides[1-idx].player.Name()))
		s.player.Send(message.Notify(message.PlaceShips))
	}

	cfg.Metrics.GamesStarted.Inc()
	cfg.Metrics.GamesActive.Inc()
	cfg.Logger.Info(fmt.Sprintf("game %s started: %s vs %s", g.id, p1.Name(), p2.Name()))
	return g
}

// ID identifies the game in logs and in the match room.
func (g *Game) ID() uuid.UUID {
	return g.id
}

// Phase returns the current lifecycle stage.
func (g *Game) Phase() Phase {
	g.Lock()
	defer g.Unlock()
	return g.phase
}

// Opponent returns the other participant, or nil when p is not playing here.
func (g *Game) Opponent(p *Player) *Player {
	g.Lock()
	defer g.Unlock()
	idx := g.sideOf(p)
	if idx == noTurn {
		return nil
	}
	return g.sides[1-idx].player
}

// SubmitBoard validates and stores p's fleet. The rebuilt board, not the
// submitted one, is kept. Once both boards are in, the turn phase starts.
func (g *Game) SubmitBoard(p *Player, submitted *board.Board) {
	g.Lock()
	defer g.Unlock()

	idx := g.sideOf(p)
	if idx == noTurn || g.phase != PhasePlacement {
		p.Send(message.Notify(message.InvalidBoard))
		return
	}

	rebuilt, ok := board.Reconstruct(submitted)
	if !ok {
		g.cfg.Metrics.RejectedBoards.Inc()
		p.Send(message.Notify(message.InvalidBoard))
		return
	}

	g.sides[idx].board = rebuilt
	p.Send(message.Notify(message.BoardAccepted))
	g.checkBoards()
}

// checkBoards starts the turn phase with a coin flip once both fleets are in.
func (g *Game) checkBoards() {
	if g.sides[0].board == nil || g.sides[1].board == nil {
		return
	}
	g.placement.stop()
	g.phase = PhaseInTurn
	g.setTurn(g.cfg.Coin() & 1)
}

// setTurn hands the move to side idx and restarts the turn timer.
func (g *Game) setTurn(idx int) {
	g.turnTimer.arm(g.cfg.Clock, g.cfg.TurnTimeout, g.turnExpired)
	g.turn = idx

	current, waiting := g.sides[idx], g.sides[1-idx]
	current.player.Send(message.Notify(message.YourTurn))
	waiting.player.Send(message.Notify(message.OpponentsTurn))
	notifyAll(current.watchers, message.YourTurn)
	notifyAll(waiting.watchers, message.OpponentsTurn)
}

// ApplyMove fires p's guess at the opponent's board. A hit keeps the turn, a
// miss passes it, and sinking the last ship wins the game.
func (g *Game) ApplyMove(p *Player, x, y int) {
	g.Lock()
	ended := g.applyMove(p, x, y)
	g.Unlock()
	g.finish(ended)
}

func (g *Game) applyMove(p *Player, x, y int) bool {
	idx := g.sideOf(p)
	switch {
	case idx == noTurn:
		p.Send(message.Notify(message.NotInGame))
		return false
	case g.phase != PhaseInTurn || g.turn != idx:
		p.Send(message.Notify(message.NotYourTurn))
		return false
	case !board.InBounds(x, y):
		p.Send(message.Notify(message.InvalidMove))
		return false
	}

	actor, target := g.sides[idx], g.sides[1-idx]
	sq := target.board.Square(x, y)
	if sq.IsGuessed() {
		p.Send(message.Notify(message.RepeatedMove))
		return false
	}

	hit := sq.Guess()
	result := message.MoveResult{X: x, Y: y, Hit: hit}
	outcome := metrics.MoveMiss
	if hit {
		outcome = metrics.MoveHit
		if ship := sq.Ship(); ship.IsSunk() {
			l := shipLayout(ship)
			result.Sunk = &l
			outcome = metrics.MoveSunk
		}
	}
	g.cfg.Metrics.Moves.WithLabelValues(outcome).Inc()

	g.broadcastResult(actor, target, result)

	if target.board.GameOver() {
		actor.player.Send(message.Notify(message.GameWin))
		target.player.Send(message.Notify(message.GameLose))
		notifyAll(actor.watchers, message.GameWin)
		notifyAll(target.watchers, message.GameLose)
		return g.killGame(metrics.OutcomeWin)
	}

	if hit {
		g.setTurn(idx)
	} else {
		g.setTurn(1 - idx)
	}
	return false
}

// broadcastResult sends each recipient its own copy: the shooter's side sees
// the guess on the enemy board, the target's side on its own board.
func (g *Game) broadcastResult(actor, target *side, result message.MoveResult) {
	for _, p := range append([]*Player{actor.player}, actor.watchers...) {
		r := result
		p.Send(&r)
	}
	for _, p := range append([]*Player{target.player}, target.watchers...) {
		r := result
		r.OwnBoard = true
		p.Send(&r)
	}
}

// Leave forfeits p's game: the opponent is told and wins.
func (g *Game) Leave(p *Player) {
	g.Lock()
	ended := false
	if idx := g.sideOf(p); idx != noTurn && g.phase != PhaseEnded {
		leaver, winner := g.sides[idx], g.sides[1-idx]
		winner.player.Send(message.Notify(message.OpponentDisconnected))
		winner.player.Send(message.Notify(message.GameWin))
		notifyAll(winner.watchers, message.OpponentDisconnected)
		notifyAll(winner.watchers, message.GameWin)
		notifyAll(leaver.watchers, message.GameLose)
		g.cfg.Logger.Info(fmt.Sprintf("game %s: %s left", g.id, p.Name()))
		ended = g.killGame(metrics.OutcomeDisconnect)
	}
	g.Unlock()
	g.finish(ended)
}

// Abort tears the game down without an outcome, used on server shutdown.
func (g *Game) Abort() {
	g.Lock()
	ended := g.killGame(metrics.OutcomeAborted)
	g.Unlock()
	g.finish(ended)
}

// Watch adds watcher as a spectator of target's side. The watcher receives a
// board snapshot and the opponent's name once; watching again is a no-op.
func (g *Game) Watch(target, watcher *Player) {
	g.Lock()
	defer g.Unlock()

	idx := g.sideOf(target)
	if idx == noTurn || g.phase == PhaseEnded || !g.public || g.sideOf(watcher) != noTurn {
		watcher.Send(message.Notify(message.GameNotFound))
		return
	}
	friend, enemy := g.sides[idx], g.sides[1-idx]
	if slices.Contains(friend.watchers, watcher) {
		return
	}

	enemy.watchers = slices.DeleteFunc(enemy.watchers, func(w *Player) bool { return w == watcher })
	friend.watchers = append(friend.watchers, watcher)
	watcher.setWatching(g)
	watcher.Send(&message.BoardSnapshot{
		Friend: boardView(friend.board, false),
		Enemy:  boardView(enemy.board, true),
	})
	watcher.Send(message.Notify(message.Watching, enemy.player.Name()))
}

// Unwatch removes watcher from whichever side it is watching.
func (g *Game) Unwatch(watcher *Player) {
	g.Lock()
	defer g.Unlock()
	for _, s := range g.sides {
		s.watchers = slices.DeleteFunc(s.watchers, func(w *Player) bool { return w == watcher })
	}
	watcher.clearWatching(g)
}

// Chat relays text from p to the opponent and to p's watchers.
func (g *Game) Chat(p *Player, text string) {
	g.Lock()
	defer g.Unlock()

	idx := g.sideOf(p)
	if idx == noTurn || g.phase == PhaseEnded {
		return
	}
	name := p.Name()
	g.sides[1-idx].player.Send(&message.Chat{From: name, Text: text})
	for _, w := range g.sides[idx].watchers {
		w.Send(&message.Chat{From: name, Text: text})
	}
}

func (g *Game) placementExpired(gen uint64) {
	g.Lock()
	ended := false
	if g.phase == PhasePlacement && g.placement.current(gen) {
		first, second := g.sides[0], g.sides[1]
		switch {
		case first.board == nil && second.board == nil:
			for _, s := range g.sides {
				s.player.Send(message.Notify(message.TimeoutDraw))
				notifyAll(s.watchers, message.TimeoutDraw)
			}
			ended = g.killGame(metrics.OutcomeDraw)
		default:
			winner, loser := first, second
			if first.board == nil {
				winner, loser = second, first
			}
			g.timeoutLoss(winner, loser)
			ended = g.killGame(metrics.OutcomeTimeout)
		}
	}
	g.Unlock()
	g.finish(ended)
}

func (g *Game) turnExpired(gen uint64) {
	g.Lock()
	ended := false
	if g.phase == PhaseInTurn && g.turnTimer.current(gen) {
		g.timeoutLoss(g.sides[1-g.turn], g.sides[g.turn])
		ended = g.killGame(metrics.OutcomeTimeout)
	}
	g.Unlock()
	g.finish(ended)
}

func (g *Game) timeoutLoss(winner, loser *side) {
	loser.player.Send(message.Notify(message.TimeoutLose))
	winner.player.Send(message.Notify(message.TimeoutWin))
	notifyAll(loser.watchers, message.TimeoutLose)
	notifyAll(winner.watchers, message.TimeoutWin)
}

// killGame moves the game to its terminal phase and detaches every session.
// It reports whether this call did the teardown.
func (g *Game) killGame(outcome string) bool {
	if g.phase == PhaseEnded {
		return false
	}
	g.phase = PhaseEnded
	g.turn = noTurn
	g.placement.stop()
	g.turnTimer.stop()

	for _, s := range g.sides {
		s.player.clearGame(g)
		for _, w := range s.watchers {
			w.clearWatching(g)
		}
		s.watchers = nil
	}

	g.cfg.Metrics.GamesActive.Dec()
	g.cfg.Metrics.GamesEnded.WithLabelValues(outcome).Inc()
	g.cfg.Logger.Info(fmt.Sprintf("game %s ended: %s", g.id, outcome))
	return true
}

func (g *Game) finish(ended bool) {
	if ended && g.onEnd != nil {
		g.onEnd(g)
	}
}

func (g *Game) sideOf(p *Player) int {
	for idx, s := range g.sides {
		if s.player == p {
			return idx
		}
	}
	return noTurn
}

func notifyAll(players []*Player, code message.Code, text ...string) {
	for _, p := range players {
		p.Send(message.Notify(code, text...))
	}
}
