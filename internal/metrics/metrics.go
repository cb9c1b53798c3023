// Package metrics defines the Prometheus collectors shared across the server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Session operation metrics
var (
	// SessionOpsTotal tracks session operations by operation and status
	SessionOpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "session_operations_total",
			Help: "Total session operations by operation and status",
		},
		[]string{"operation", "status"},
	)

	// SessionsStored tracks the number of stored sessions across all domains
	SessionsStored = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sessions_stored",
			Help: "Number of stored sessions across all domains",
		},
	)
)

// Agent bridge metrics
var (
	// BridgeRequestDuration tracks agent round-trip latency by action
	BridgeRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bridge_request_duration_seconds",
			Help:    "Agent bridge request duration in seconds by action",
			Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"action"},
	)

	// BridgeRequestsTotal tracks agent requests by action and status
	BridgeRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_requests_total",
			Help: "Total agent bridge requests by action and status",
		},
		[]string{"action", "status"},
	)

	// AgentConnected reports whether a background agent is currently connected
	AgentConnected = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "agent_connected",
			Help: "Whether a background agent websocket is currently connected (0 or 1)",
		},
	)
)

// Persistence metrics
var (
	// RedisOpsTotal tracks snapshot load/save operations by operation and status
	RedisOpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "redis_operations_total",
			Help: "Total Redis operations by operation and status",
		},
		[]string{"operation", "status"},
	)

	// RedisOpDuration tracks Redis operation latency in seconds
	RedisOpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "redis_operation_duration_seconds",
			Help:    "Redis operation duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"operation"},
	)

	// RedisConnectionErrors tracks Redis connection errors
	RedisConnectionErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "redis_connection_errors_total",
			Help: "Total Redis connection errors",
		},
	)

	// CircuitBreakerState tracks current circuit breaker state (0=closed, 1=half-open, 2=open)
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Current circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"component"},
	)
)

// Transfer metrics
var (
	// TransferRequestsTotal tracks cloud transfer requests by direction and status
	TransferRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "transfer_requests_total",
			Help: "Total cloud transfer requests by direction and status",
		},
		[]string{"direction", "status"},
	)

	// TransferLockoutsTotal counts lockouts after repeated invalid transfer codes
	TransferLockoutsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "transfer_lockouts_total",
			Help: "Total lockouts triggered by repeated invalid transfer codes",
		},
	)
)
