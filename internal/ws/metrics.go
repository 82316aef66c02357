package ws

import "github.com/prometheus/client_golang/prometheus"

var (
	FeedClients = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "voxelhunt_feed_clients",
		Help: "Open websocket state feed connections",
	})
	FeedFrames = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "voxelhunt_feed_frames_total",
		Help: "Frames written to state feed clients",
	}, []string{"type"})
)

func init() {
	prometheus.MustRegister(FeedClients, FeedFrames)
}
