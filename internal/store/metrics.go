package store

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	SessionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "voxelhunt_sessions_active",
			Help: "Match sessions currently held in memory",
		},
	)
	SessionsReaped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "voxelhunt_sessions_reaped_total",
			Help: "Idle match sessions removed by the reaper",
		},
	)
)

func init() {
	prometheus.MustRegister(SessionsActive)
	prometheus.MustRegister(SessionsReaped)
}
