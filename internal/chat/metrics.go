package chat

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	activeConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "chat_active_connections",
		Help: "Number of open chat connections",
	})

	activeSessions = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "chat_active_sessions",
		Help: "Number of live chat sessions by type",
	}, []string{"type"})

	messagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_messages_total",
		Help: "Handled chat messages by type",
	}, []string{"type"})

	rateLimitDenials = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_rate_limit_denials_total",
		Help: "Messages denied by the rate limiter, by category",
	}, []string{"category"})

	broadcastFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chat_broadcast_failures_total",
		Help: "Broadcast frames dropped because a connection was not ready",
	})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_errors_total",
		Help: "Error replies sent to clients, by code",
	}, []string{"code"})
)
