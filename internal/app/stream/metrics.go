package stream

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	connectedUsers = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "termio",
		Name:      "connected_users",
		Help:      "Number of currently connected users.",
	})

	framesRelayed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "termio",
		Name:      "frames_relayed_total",
		Help:      "Frame envelopes enqueued for delivery to recipients.",
	})

	framesCoalesced = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "termio",
		Name:      "frames_coalesced_total",
		Help:      "Pending frames superseded by a newer frame from the same sender before delivery.",
	})

	chatRelayed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "termio",
		Name:      "chat_relayed_total",
		Help:      "Chat envelopes enqueued for delivery to recipients.",
	})

	sessionsClosed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "termio",
		Name:      "sessions_closed_total",
		Help:      "Sessions closed, labeled by close reason.",
	}, []string{"reason"})
)
