package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		senderEditsTotal,
		senderEditDuration,
		senderEditsInFlight,
		siteRequestsTotal,
		siteCSRFRefreshTotal,
	)
}

var (
	senderEditsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sender_edits_total",
			Help: "Sender account edits by outcome.",
		},
		[]string{"result"}, // success, rejected, fetch_failed, locked, cancelled, failed
	)

	senderEditDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sender_edit_duration_seconds",
			Help:    "Wall time of sender edits including limiter wait.",
			Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32},
		},
		[]string{"result"},
	)

	senderEditsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "sender_edits_in_flight",
			Help: "Edits currently holding a limiter slot.",
		},
	)

	siteRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "site_requests_total",
			Help: "Requests to the sender panel by endpoint and HTTP status (0 = transport error).",
		},
		[]string{"endpoint", "status"},
	)

	siteCSRFRefreshTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "site_csrf_refresh_total",
			Help: "CSRF tokens invalidated after a 403/419 response.",
		},
	)
)

func ObserveEdit(result string, took time.Duration) {
	senderEditsTotal.WithLabelValues(norm(result)).Inc()
	senderEditDuration.WithLabelValues(norm(result)).Observe(took.Seconds())
}

func EditStarted()  { senderEditsInFlight.Inc() }
func EditFinished() { senderEditsInFlight.Dec() }

func IncSiteRequest(endpoint string, status int) {
	siteRequestsTotal.WithLabelValues(norm(endpoint), strconv.Itoa(status)).Inc()
}

func IncCSRFRefresh() {
	siteCSRFRefreshTotal.Inc()
}
