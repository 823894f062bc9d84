package metrics

import "github.com/prometheus/client_golang/prometheus"

// NotificationMetrics records notification dispatch outcomes.
type NotificationMetrics struct {
	dispatched *prometheus.CounterVec
	failed     *prometheus.CounterVec
	dropped    prometheus.Counter
}

// NewNotificationMetrics registers the notification metrics on the provided registerer.
func NewNotificationMetrics(reg prometheus.Registerer) *NotificationMetrics {
	if reg == nil {
		return &NotificationMetrics{}
	}
	dispatched := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notifications_dispatched_total",
		Help: "Notifications delivered by type.",
	}, []string{"type"})
	failed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notifications_failed_total",
		Help: "Notification deliveries that errored, by type.",
	}, []string{"type"})
	dropped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "notifications_dropped_total",
		Help: "Notifications dropped because the dispatch queue was full.",
	})
	reg.MustRegister(dispatched, failed, dropped)
	return &NotificationMetrics{
		dispatched: dispatched,
		failed:     failed,
		dropped:    dropped,
	}
}

// IncDispatched increments the delivered counter for a notification type.
func (n *NotificationMetrics) IncDispatched(notificationType string) {
	if n == nil || n.dispatched == nil {
		return
	}
	n.dispatched.WithLabelValues(normalizeLabel(notificationType)).Inc()
}

// IncFailed increments the failed counter for a notification type.
func (n *NotificationMetrics) IncFailed(notificationType string) {
	if n == nil || n.failed == nil {
		return
	}
	n.failed.WithLabelValues(normalizeLabel(notificationType)).Inc()
}

// IncDropped increments the queue-full drop counter.
func (n *NotificationMetrics) IncDropped() {
	if n == nil || n.dropped == nil {
		return
	}
	n.dropped.Inc()
}
