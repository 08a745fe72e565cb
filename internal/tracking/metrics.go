package tracking

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	pushTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "campus_bus_location_push_total",
		Help: "Driver location pushes by outcome.",
	}, []string{"result"})

	pullTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "campus_bus_location_pull_total",
		Help: "Location reads by source.",
	}, []string{"source"})

	liveSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "campus_bus_live_subscribers",
		Help: "Open WebSocket live-feed connections.",
	})
)
