package relay

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricClaimed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "outbox_relay_claimed_total",
		Help: "Outbox rows claimed by this relay instance.",
	})

	metricProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_relay_processed_total",
		Help: "Outbox rows delivered to all handlers successfully.",
	}, []string{"event_type"})

	metricFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_relay_failed_total",
		Help: "Delivery attempts that failed and were rescheduled.",
	}, []string{"event_type"})

	metricDeadLettered = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_relay_dead_lettered_total",
		Help: "Outbox rows parked for operator inspection.",
	}, []string{"event_type"})

	metricArchived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "outbox_archiver_pruned_total",
		Help: "Processed outbox rows pruned by the archiver.",
	})
)
