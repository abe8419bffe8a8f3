package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		errorNotificationsSentTotal,
		errorNotificationFailuresTotal,
		errorOccurrencesTotal,
		activeErrors,
	)
}

var (
	errorNotificationsSentTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "error_notifications_sent_total",
			Help: "Error notifications delivered to the operator chat.",
		},
		[]string{"kind"}, // first, ongoing, resolved
	)

	errorNotificationFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "error_notification_failures_total",
			Help: "Error notifications that could not be delivered.",
		},
	)

	errorOccurrencesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "error_occurrences_total",
			Help: "Observed failures of monitored operations.",
		},
		[]string{"worker", "operation", "error_type"},
	)

	activeErrors = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "active_errors",
			Help: "Error keys currently tracked as active.",
		},
	)
)

func IncErrorNotification(kind string) {
	errorNotificationsSentTotal.WithLabelValues(norm(kind)).Inc()
}

func IncErrorNotificationFailure() {
	errorNotificationFailuresTotal.Inc()
}

func IncErrorOccurrence(worker, operation, errorType string) {
	errorOccurrencesTotal.WithLabelValues(norm(worker), norm(operation), norm(errorType)).Inc()
}

func SetActiveErrors(n int) {
	activeErrors.Set(float64(n))
}
