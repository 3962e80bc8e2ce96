// Package metrics exposes the server's Prometheus instruments.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "battleship"

// Outcome labels for GamesEnded.
const (
	OutcomeWin        = "win"
	OutcomeTimeout    = "timeout"
	OutcomeDraw       = "draw"
	OutcomeDisconnect = "disconnect"
	OutcomeAborted    = "aborted"
)

// Result labels for Moves.
const (
	MoveHit  = "hit"
	MoveMiss = "miss"
	MoveSunk = "sunk"
)

// Metrics groups the instruments updated by the session and game engine.
type Metrics struct {
	SessionsConnected prometheus.Gauge
	PlayersWaiting    prometheus.Gauge
	GamesActive       prometheus.Gauge
	GamesStarted      prometheus.Counter
	GamesEnded        *prometheus.CounterVec
	Moves             *prometheus.CounterVec
	RejectedBoards    prometheus.Counter
}

// New registers every instrument on reg. Passing a fresh registry per server
// keeps tests independent.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		SessionsConnected: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_connected",
			Help:      "Live client sessions.",
		}),
		PlayersWaiting: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "players_waiting",
			Help:      "Sessions in the waiting table.",
		}),
		GamesActive: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "games_active",
			Help:      "Games not yet torn down.",
		}),
		GamesStarted: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "games_started_total",
			Help:      "Games created by the match room.",
		}),
		GamesEnded: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "games_ended_total",
			Help:      "Games torn down, by outcome.",
		}, []string{"outcome"}),
		Moves: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "moves_total",
			Help:      "Applied guesses, by result.",
		}, []string{"result"}),
		RejectedBoards: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "boards_rejected_total",
			Help:      "Board submissions that failed validation.",
		}),
	}
}
