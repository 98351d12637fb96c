package db

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/jackc/pgconn"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/AlibekovAA/defis-users/internal/common/logger"
)

type RetryConfig struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	// Retryable overrides IsRetryableError when set.
	Retryable func(error) bool
}

var DefaultRetryConfig = RetryConfig{
	MaxAttempts:  3,
	InitialDelay: 100 * time.Millisecond,
	MaxDelay:     2 * time.Second,
	Multiplier:   2.0,
}

// delay returns the wait before the given 1-based retry.
func (c RetryConfig) delay(retry int) time.Duration {
	m := c.Multiplier
	if m < 1 {
		m = 1
	}
	d := time.Duration(float64(c.InitialDelay) * math.Pow(m, float64(retry-1)))
	if c.MaxDelay > 0 && d > c.MaxDelay {
		d = c.MaxDelay
	}
	return d
}

// IsRetryableError reports transient failures from either store: lost
// connections and serialization conflicts on PostgreSQL, busy or locked
// databases on SQLite.
func IsRetryableError(err error) bool {
	if err == nil || IsNoRows(err) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return false
	}

	var se *sqlite.Error
	if errors.As(err, &se) {
		switch se.Code() & 0xff {
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
			return true
		}
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// class 08 connection exceptions, class 40 transaction rollbacks
		if strings.HasPrefix(pgErr.Code, "08") || strings.HasPrefix(pgErr.Code, "40") {
			return true
		}
		return pgErr.Code == "55P03"
	}

	return pgconn.SafeToRetry(err)
}

func RetryWithBackoff(ctx context.Context, log *logger.Logger, config RetryConfig, operation func() error) error {
	retryable := config.Retryable
	if retryable == nil {
		retryable = IsRetryableError
	}

	var err error
	for attempt := 1; attempt <= config.MaxAttempts; attempt++ {
		if err = operation(); err == nil {
			if attempt > 1 {
				log.Infof("database operation succeeded on attempt %d", attempt)
			}
			return nil
		}
		if !retryable(err) {
			return err
		}
		if attempt == config.MaxAttempts {
			break
		}

		wait := config.delay(attempt)
		log.Warnf("database operation failed (attempt %d/%d): %v, retrying in %v", attempt, config.MaxAttempts, err, wait)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("retry aborted: %w", ctx.Err())
		case <-timer.C:
		}
	}

	return fmt.Errorf("database operation failed after %d attempts: %w", config.MaxAttempts, err)
}
