package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DBPoolConnections reports connection counts per store and state
	// (acquired, idle, total, max).
	DBPoolConnections = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "users_db_pool_connections",
			Help: "Database connections by store and state",
		},
		[]string{"store", "state"},
	)

	DBQueryDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "users_db_query_duration_seconds",
			Help:    "Duration of database queries in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"store", "operation", "table"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "users_db_query_errors_total",
			Help: "Total number of database query errors",
		},
		[]string{"store", "operation", "table", "error_type"},
	)

	DBMigrationsApplied = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "users_db_migrations_applied_total",
			Help: "Schema migrations applied",
		},
		[]string{"dialect"},
	)
)
