package db

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/AlibekovAA/defis-users/internal/common/constants"
	"github.com/AlibekovAA/defis-users/internal/common/logger"
)

func NewPool(ctx context.Context, log *logger.Logger, databaseURL string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database url: %w", err)
	}

	cfg.MaxConns = constants.DBPoolMaxOpenConns
	cfg.MinConns = constants.DBPoolMinOpenConns
	cfg.MaxConnLifetime = constants.DBPoolConnMaxLifetime
	cfg.MaxConnIdleTime = constants.DBPoolConnMaxIdleTime
	cfg.HealthCheckPeriod = constants.DBPoolHealthCheck
	cfg.ConnConfig.ConnectTimeout = constants.DBPoolConnectTimeout
	if cfg.ConnConfig.RuntimeParams == nil {
		cfg.ConnConfig.RuntimeParams = map[string]string{}
	}
	cfg.ConnConfig.RuntimeParams["application_name"] = constants.DBApplicationName

	retry := RetryConfig{
		MaxAttempts:  constants.DBPoolMaxAttempts,
		InitialDelay: constants.DBPoolRetryDelay,
		MaxDelay:     constants.DBPoolRetryDelay,
		Multiplier:   1,
		Retryable: func(err error) bool {
			return ctx.Err() == nil && IsConnectRetryable(err)
		},
	}

	var pool *pgxpool.Pool
	err = RetryWithBackoff(ctx, log, retry, func() error {
		p, connectErr := pgxpool.ConnectConfig(ctx, cfg)
		if connectErr != nil {
			return connectErr
		}
		pingCtx, cancel := context.WithTimeout(ctx, constants.DBPoolConnectTimeout)
		defer cancel()
		if pingErr := p.Ping(pingCtx); pingErr != nil {
			p.Close()
			return pingErr
		}
		pool = p
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	log.Infof("database connection pool initialized: max=%d, min=%d", cfg.MaxConns, cfg.MinConns)
	StartPoolMetrics(ctx, pool, constants.DBPoolMetricsInterval)
	return pool, nil
}

// IsConnectRetryable reports whether a failed pool connect is worth another
// attempt: transient server errors, a server still starting up (57P03),
// network dial failures and a per-attempt timeout. Authentication and
// missing-database errors fail fast.
func IsConnectRetryable(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "57P03" {
		return true
	}
	if IsRetryableError(err) || isDialError(err) {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

func isDialError(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr) && (dnsErr.IsTemporary || dnsErr.IsTimeout)
}

// PingPool is used by readiness checks.
func PingPool(pool *pgxpool.Pool) func(context.Context) error {
	return func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		return pool.Ping(ctx)
	}
}
