package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Jarvis-server metrics
var (
	// Request counters
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jarvis",
			Subsystem: "assistant",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	// Request duration histogram
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "jarvis",
			Subsystem: "assistant",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"method", "endpoint", "status"},
	)

	// Pipeline turns by resolved intent and terminal stage
	TurnsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jarvis",
			Subsystem: "assistant",
			Name:      "turns_total",
			Help:      "Conversation turns processed",
		},
		[]string{"intent", "stage"},
	)

	TurnDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "jarvis",
			Subsystem: "assistant",
			Name:      "turn_duration_seconds",
			Help:      "End-to-end turn processing duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"intent"},
	)

	// Gateway rejections by reason
	GatewayRejectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jarvis",
			Subsystem: "assistant",
			Name:      "gateway_rejections_total",
			Help:      "Messages rejected before routing",
		},
		[]string{"reason"},
	)

	// Limit alerts raised, by severity
	LimitAlertsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jarvis",
			Subsystem: "assistant",
			Name:      "limit_alerts_total",
			Help:      "Limit threshold alerts raised",
		},
		[]string{"severity", "period_kind"},
	)

	// Rule window rollovers performed lazily on the evaluate path
	RuleRolloversTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "jarvis",
			Subsystem: "assistant",
			Name:      "rule_rollovers_total",
			Help:      "Limit rule windows advanced",
		},
	)

	// Stale rule conflicts observed during delta application
	RuleConflictsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "jarvis",
			Subsystem: "assistant",
			Name:      "rule_conflicts_total",
			Help:      "Guarded rule updates that lost to a concurrent change",
		},
	)

	// NLU call outcomes
	NLURequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jarvis",
			Subsystem: "assistant",
			Name:      "nlu_requests_total",
			Help:      "NLU classification calls",
		},
		[]string{"operation", "status"},
	)

	NLUDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "jarvis",
			Subsystem: "assistant",
			Name:      "nlu_duration_seconds",
			Help:      "NLU call duration in seconds",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"operation"},
	)

	// Context store sweeps
	ContextSweepsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "jarvis",
			Subsystem: "assistant",
			Name:      "context_sweeps_total",
			Help:      "Stale conversation contexts evicted by the sweep job",
		},
	)

	// Outbound Telegram sends
	TelegramSendsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jarvis",
			Subsystem: "assistant",
			Name:      "telegram_sends_total",
			Help:      "Outbound Telegram messages",
		},
		[]string{"status"},
	)
)

// RecordRequest records an HTTP request with duration
func RecordRequest(method, endpoint, status string, durationSec float64) {
	RequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	RequestDuration.WithLabelValues(method, endpoint, status).Observe(durationSec)
}

// RecordTurn records one processed conversation turn
func RecordTurn(intent, stage string, durationSec float64) {
	if intent == "" {
		intent = "unknown"
	}
	TurnsTotal.WithLabelValues(intent, stage).Inc()
	TurnDuration.WithLabelValues(intent).Observe(durationSec)
}

// RecordGatewayRejection records a message rejected before routing
func RecordGatewayRejection(reason string) {
	GatewayRejectionsTotal.WithLabelValues(reason).Inc()
}

// RecordLimitAlert records a raised limit alert
func RecordLimitAlert(severity, periodKind string) {
	LimitAlertsTotal.WithLabelValues(severity, periodKind).Inc()
}

// RecordNLURequest records an NLU call outcome with duration
func RecordNLURequest(operation, status string, durationSec float64) {
	NLURequestsTotal.WithLabelValues(operation, status).Inc()
	NLUDuration.WithLabelValues(operation).Observe(durationSec)
}

// RecordTelegramSend records an outbound Telegram message attempt
func RecordTelegramSend(status string) {
	TelegramSendsTotal.WithLabelValues(status).Inc()
}
