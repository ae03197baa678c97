package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "route", "code"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "code"},
	)

	// Webhook pipeline
	webhooksReceived = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhooks_received_total",
			Help: "Webhook requests that passed the auth gate, by partner.",
		},
		[]string{"partner"},
	)
	webhookOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_store_outcomes_total",
			Help: "Idempotent store outcomes (inserted/duplicate/unavailable), by partner.",
		},
		[]string{"partner", "outcome"},
	)
	webhookValidationFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_validation_failures_total",
			Help: "Webhooks rejected by the normalizer, by offending field.",
		},
		[]string{"field"},
	)
	webhookAuthFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "webhook_auth_failures_total",
			Help: "Webhook requests rejected for a bad secret token.",
		},
	)
	nonStandardStatuses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_nonstandard_status_total",
			Help: "Accepted events carrying a status outside the documented vocabulary.",
		},
		[]string{"partner", "status"},
	)
	revenueAmounts = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "webhook_revenue_amount",
			Help:    "Distribution of revenue amounts on inserted events.",
			Buckets: []float64{0, 10, 50, 100, 500, 1000, 5000, 10000, 50000, 100000},
		},
	)
	eventsByStatus = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "webhook_events_count",
			Help: "Current count of stored webhook events by order_status.",
		},
		[]string{"order_status"},
	)

	// Alerting
	alertsSent = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "alerts_sent_total",
			Help: "Alert emails successfully handed to the SMTP server.",
		},
	)
	alertsFailed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "alerts_failed_total",
			Help: "Alert emails that failed to send (swallowed, never surfaced).",
		},
	)
	alertsDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "alerts_dropped_total",
			Help: "Alerts dropped because the dispatch queue was full.",
		},
	)

	// Kafka egress
	kafkaMessagesSent = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "kafka_messages_sent_total",
			Help: "Accepted events successfully published to Kafka.",
		},
	)
	kafkaErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kafka_errors_total",
			Help: "Kafka publish errors.",
		},
		[]string{"component", "operation"},
	)
)

var registerOnce sync.Once

func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			httpRequests,
			httpDuration,

			webhooksReceived,
			webhookOutcomes,
			webhookValidationFailures,
			webhookAuthFailures,
			nonStandardStatuses,
			revenueAmounts,
			eventsByStatus,

			alertsSent,
			alertsFailed,
			alertsDropped,

			kafkaMessagesSent,
			kafkaErrors,
		)
		registerRedisMetrics()
	})
}

func Handler() http.Handler {
	return promhttp.Handler()
}

// --- HTTP ---
func ObserveHTTPRequest(method, route, code string, d time.Duration) {
	httpRequests.WithLabelValues(method, route, code).Inc()
	httpDuration.WithLabelValues(method, route, code).Observe(d.Seconds())
}

// --- Webhook pipeline ---
func IncWebhookReceived(partner string) { webhooksReceived.WithLabelValues(partner).Inc() }
func IncWebhookOutcome(partner, outcome string) {
	webhookOutcomes.WithLabelValues(partner, outcome).Inc()
}
func IncValidationFailure(field string) {
	webhookValidationFailures.WithLabelValues(field).Inc()
}
func IncAuthFailure() { webhookAuthFailures.Inc() }
func IncNonStandardStatus(partner, status string) {
	nonStandardStatuses.WithLabelValues(partner, status).Inc()
}
func ObserveRevenue(amount float64) {
	if amount < 0 {
		amount = 0
	}
	revenueAmounts.Observe(amount)
}
func SetEventsByStatus(status string, count int64) {
	if count < 0 {
		count = 0
	}
	eventsByStatus.WithLabelValues(status).Set(float64(count))
}

// --- Alerting ---
func IncAlertSent()    { alertsSent.Inc() }
func IncAlertFailed()  { alertsFailed.Inc() }
func IncAlertDropped() { alertsDropped.Inc() }

// --- Kafka ---
func IncKafkaSent() { kafkaMessagesSent.Inc() }
func IncKafkaError(component, operation string) {
	kafkaErrors.WithLabelValues(component, operation).Inc()
}

func fmtInt(v int64) string {
	if v == 0 {
		return "0"
	}
	neg := v < 0
	if neg {
		v = -v
	}
	var buf [32]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
