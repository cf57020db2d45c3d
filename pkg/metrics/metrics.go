// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks HTTP request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	// RequestsTotal tracks total HTTP requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// CartActionsTotal tracks reducer transitions by action type.
	CartActionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cart_actions_total",
			Help: "Total cart actions applied",
		},
		[]string{"action"},
	)

	// CartPersistErrorsTotal tracks failed cart write-backs.
	CartPersistErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cart_persist_errors_total",
			Help: "Total cart storage write or read failures",
		},
		[]string{"op"},
	)

	// CartStoresActive tracks loaded shopper carts.
	CartStoresActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cart_stores_active",
			Help: "Number of shopper carts held in memory",
		},
	)

	// ChatRequestDuration tracks assistant round-trip duration.
	ChatRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chat_request_duration_seconds",
			Help:    "Assistant request duration",
			Buckets: []float64{.1, .25, .5, 1, 2, 5, 10, 20, 30, 60},
		},
		[]string{"status"},
	)

	// ChatMessagesTotal tracks transcript messages by author and kind.
	ChatMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_messages_total",
			Help: "Total chat messages appended",
		},
		[]string{"author", "kind"},
	)

	// ChatSessionsActive tracks mounted chat widgets.
	ChatSessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chat_sessions_active",
			Help: "Number of mounted chat sessions",
		},
	)

	// WidgetConnectionsActive tracks open widget WebSocket connections.
	WidgetConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "widget_connections_active",
			Help: "Number of active widget WebSocket connections",
		},
	)

	// SuggestionRequestsTotal tracks outbound search-suggestion requests.
	SuggestionRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "suggestion_requests_total",
			Help: "Total search suggestion requests",
		},
		[]string{"outcome"},
	)

	// BackendRequestsTotal tracks calls to the external storefront backend.
	BackendRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backend_requests_total",
			Help: "Total requests to the storefront backend",
		},
		[]string{"endpoint", "status"},
	)

	// LLMTokensTotal tracks total LLM tokens processed.
	LLMTokensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llm_tokens_total",
			Help: "Total LLM tokens processed",
		},
		[]string{"model", "direction"},
	)
)

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordChat records an assistant round trip.
func RecordChat(status string, duration float64) {
	ChatRequestDuration.WithLabelValues(status).Observe(duration)
}

// RecordLLM records token usage for an LLM completion.
func RecordLLM(model string, tokensIn, tokensOut int) {
	LLMTokensTotal.WithLabelValues(model, "in").Add(float64(tokensIn))
	LLMTokensTotal.WithLabelValues(model, "out").Add(float64(tokensOut))
}
