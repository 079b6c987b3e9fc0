package relay

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	roomsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relay_rooms_created_total",
		Help: "Rooms successfully registered by hosts.",
	})

	framesForwarded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relay_frames_forwarded_total",
		Help: "Frames passed through between paired clients.",
	})

	framesDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relay_frames_dropped_total",
		Help: "Frames lost because the partner was absent or slow.",
	})

	activeRooms = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "relay_active_rooms",
		Help: "Rooms currently registered on this relay.",
	})
)
