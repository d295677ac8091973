package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce          sync.Once
	httpRequestsTotal     *prometheus.CounterVec
	httpLatencySeconds    *prometheus.HistogramVec
	httpErrorsTotal       *prometheus.CounterVec
	notificationsFanout   *prometheus.CounterVec
	fanoutFailuresTotal   *prometheus.CounterVec
	sseClientsActive      prometheus.Gauge
	chatConnectionsTotal  prometheus.Counter
	chatMessagesSentTotal *prometheus.CounterVec
	uploadRejectedTotal   *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used across the API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lms_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "lms_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		httpErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lms_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		notificationsFanout = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lms_notifications_fanout_total",
			Help: "Total number of notification records created by fanout, by event kind.",
		}, []string{"kind"})

		fanoutFailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lms_notifications_fanout_failures_total",
			Help: "Total number of failed fanout attempts, by event kind.",
		}, []string{"kind"})

		sseClientsActive = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "lms_sse_clients_active",
			Help: "Number of currently connected notification stream clients.",
		})

		chatConnectionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lms_chat_connections_total",
			Help: "Total number of accepted chat websocket connections.",
		})

		chatMessagesSentTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lms_chat_messages_sent_total",
			Help: "Total number of chat messages broadcast, by message type.",
		}, []string{"type"})

		uploadRejectedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lms_upload_rejected_total",
			Help: "Total number of rejected attachment uploads, by reason.",
		}, []string{"reason"})

		prometheus.MustRegister(
			httpRequestsTotal,
			httpLatencySeconds,
			httpErrorsTotal,
			notificationsFanout,
			fanoutFailuresTotal,
			sseClientsActive,
			chatConnectionsTotal,
			chatMessagesSentTotal,
			uploadRejectedTotal,
		)
	})
}

// Requests exposes the counter for API requests.
func Requests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequestsTotal
}

// Latency exposes the latency histogram for API requests.
func Latency() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpLatencySeconds
}

// Errors exposes the counter for API error responses.
func Errors() *prometheus.CounterVec {
	RegisterMetrics()
	return httpErrorsTotal
}

// NotificationsFanout exposes the counter for created notification records.
func NotificationsFanout() *prometheus.CounterVec {
	RegisterMetrics()
	return notificationsFanout
}

// FanoutFailures exposes the counter for failed fanout attempts.
func FanoutFailures() *prometheus.CounterVec {
	RegisterMetrics()
	return fanoutFailuresTotal
}

// SSEClientsActive exposes the gauge of connected stream clients.
func SSEClientsActive() prometheus.Gauge {
	RegisterMetrics()
	return sseClientsActive
}

// ChatConnections exposes the counter for accepted chat connections.
func ChatConnections() prometheus.Counter {
	RegisterMetrics()
	return chatConnectionsTotal
}

// ChatMessagesSent exposes the counter for broadcast chat messages.
func ChatMessagesSent() *prometheus.CounterVec {
	RegisterMetrics()
	return chatMessagesSentTotal
}

// UploadRejected exposes the counter for rejected uploads.
func UploadRejected() *prometheus.CounterVec {
	RegisterMetrics()
	return uploadRejectedTotal
}
