package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	ChannelPush = "push"
	ChannelLive = "live"

	OutcomeDelivered = "delivered"
	OutcomeSkipped   = "skipped"
	OutcomeFailed    = "failed"
	OutcomeDropped   = "dropped"
)

var (
	NotificationsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notifications_created_total",
		Help: "Notification rows persisted, by type.",
	}, []string{"type"})

	Deliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notification_deliveries_total",
		Help: "Delivery attempts by channel and outcome.",
	}, []string{"channel", "outcome"})

	LiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "notification_live_connections",
		Help: "Currently registered live streams on this instance.",
	})

	EventQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "notification_event_queue_depth",
		Help: "Committed events waiting for a worker.",
	})

	EventsHandled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notification_events_handled_total",
		Help: "Post-commit events processed, by result.",
	}, []string{"result"})

	BroadcastPages = promauto.NewCounter(prometheus.CounterOpts{
		Name: "notification_broadcast_pages_total",
		Help: "Broadcast pages persisted and dispatched.",
	})
)

// Delivery records one delivery attempt.
func Delivery(channel, outcome string) {
	Deliveries.WithLabelValues(channel, outcome).Inc()
}
