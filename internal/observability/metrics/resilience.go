package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RateLimitBlocked = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "users_rate_limit_blocked_total",
			Help: "Requests rejected by a rate limiter",
		},
		[]string{"limiter_type", "path"},
	)

	// CircuitBreakerState is 0 while closed and 1 while open.
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "users_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "users_circuit_breaker_failures_total",
			Help: "Failures counted towards opening the circuit",
		},
		[]string{"name"},
	)

	CircuitBreakerRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "users_circuit_breaker_rejections_total",
			Help: "Calls short-circuited while the breaker was open",
		},
		[]string{"name"},
	)
)
