package service

import (
	"time"

	"voxelhunt/internal/protocol"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	ActionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "voxelhunt_actions_total",
			Help: "Game API actions by outcome",
		},
		[]string{"action", "outcome"},
	)
	ActionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "voxelhunt_action_duration_seconds",
			Help:    "Time spent executing a game API action",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
		},
		[]string{"action"},
	)
	TreasureGuesses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "voxelhunt_treasure_guesses_total",
			Help: "find-treasure calls by result",
		},
		[]string{"found"},
	)
	PhaseTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "voxelhunt_phase_transitions_total",
			Help: "Sessions entering a phase",
		},
		[]string{"phase"},
	)
)

func init() {
	prometheus.MustRegister(ActionsTotal)
	prometheus.MustRegister(ActionDuration)
	prometheus.MustRegister(TreasureGuesses)
	prometheus.MustRegister(PhaseTransitions)
}

func observeAction(action string, err error, took time.Duration) {
	// keep label cardinality bounded
	if !protocol.Known(action) {
		action = "unknown"
	}
	ActionsTotal.WithLabelValues(action, outcome(err)).Inc()
	ActionDuration.WithLabelValues(action).Observe(took.Seconds())
}
