package handler

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/harborlabs/harbor-backoffice/internal/domain/event"
)

var metricDomainEvents = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "backoffice_domain_events_total",
	Help: "Domain events observed by the analytics subscriber.",
}, []string{"aggregate_type", "event_type"})

// AnalyticsRecorder counts delivered events per type. Counter increments
// are naturally idempotent enough for metrics, so it skips the guard.
type AnalyticsRecorder struct {
	logger *zap.Logger
}

func NewAnalyticsRecorder(logger *zap.Logger) *AnalyticsRecorder {
	return &AnalyticsRecorder{logger: logger.Named("handler.analytics")}
}

func (h *AnalyticsRecorder) Name() string {
	return "analytics_recorder"
}

func (h *AnalyticsRecorder) Handle(ctx context.Context, evt event.DomainEvent) error {
	metricDomainEvents.WithLabelValues(evt.AggregateType, evt.EventType).Inc()
	h.logger.Debug("event_recorded",
		zap.String("event_type", evt.EventType),
		zap.String("aggregate_id", evt.AggregateID),
	)
	return nil
}
