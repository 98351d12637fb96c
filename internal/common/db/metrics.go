package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/AlibekovAA/defis-users/internal/common/constants"
	"github.com/AlibekovAA/defis-users/internal/observability/metrics"
)

type poolStats struct {
	acquired, idle, total, max int64
}

func publishPoolStats(store Store, s poolStats) {
	label := string(store)
	metrics.DBPoolConnections.WithLabelValues(label, "acquired").Set(float64(s.acquired))
	metrics.DBPoolConnections.WithLabelValues(label, "idle").Set(float64(s.idle))
	metrics.DBPoolConnections.WithLabelValues(label, "total").Set(float64(s.total))
	metrics.DBPoolConnections.WithLabelValues(label, "max").Set(float64(s.max))
}

func runPoolMetrics(ctx context.Context, interval time.Duration, collect func()) {
	if interval <= 0 {
		interval = constants.DBPoolMetricsInterval
	}

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				collect()
			}
		}
	}()
}

// StartPoolMetrics publishes pgx pool statistics every interval until ctx is done.
func StartPoolMetrics(ctx context.Context, pool *pgxpool.Pool, interval time.Duration) {
	runPoolMetrics(ctx, interval, func() {
		st := pool.Stat()
		publishPoolStats(StorePostgres, poolStats{
			acquired: int64(st.AcquiredConns()),
			idle:     int64(st.IdleConns()),
			total:    int64(st.TotalConns()),
			max:      int64(st.MaxConns()),
		})
	})
}

// StartSQLMetrics does the same for a database/sql handle.
func StartSQLMetrics(ctx context.Context, store Store, sqlDB *sql.DB, interval time.Duration) {
	runPoolMetrics(ctx, interval, func() {
		publishSQLStats(store, sqlDB.Stats())
	})
}

func publishSQLStats(store Store, st sql.DBStats) {
	publishPoolStats(store, poolStats{
		acquired: int64(st.InUse),
		idle:     int64(st.Idle),
		total:    int64(st.OpenConnections),
		max:      int64(st.MaxOpenConnections),
	})
}
