package db

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	pgx "github.com/jackc/pgx/v4"

	"github.com/AlibekovAA/defis-users/internal/observability/metrics"
)

type Store string

const (
	StorePostgres Store = "postgres"
	StoreSQLite   Store = "sqlite"
)

func extractTableFromOperation(operation string) string {
	operation = strings.ToLower(operation)
	if strings.Contains(operation, "migration") {
		return "goose_db_version"
	}
	if strings.Contains(operation, "user") {
		return "users"
	}
	return "unknown"
}

func IsNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows) || errors.Is(err, sql.ErrNoRows)
}

// HandleQueryError records the query duration and maps a no-rows result to
// notFoundErr. Other errors are counted and wrapped with the operation name.
func HandleQueryError(store Store, err error, notFoundErr error, operation string, startTime time.Time) error {
	MeasureQueryDuration(store, operation, startTime)

	if err == nil {
		return nil
	}
	if notFoundErr != nil && IsNoRows(err) {
		return notFoundErr
	}
	recordQueryError(store, operation, err)
	return fmt.Errorf("failed to %s: %w", operation, err)
}

func HandleExecError(store Store, err error, operation string, startTime time.Time) error {
	MeasureQueryDuration(store, operation, startTime)

	if err == nil {
		return nil
	}
	recordQueryError(store, operation, err)
	return fmt.Errorf("failed to %s: %w", operation, err)
}

func MeasureQueryDuration(store Store, operation string, startTime time.Time) {
	table := extractTableFromOperation(operation)
	duration := time.Since(startTime).Seconds()
	metrics.DBQueryDurationSeconds.WithLabelValues(string(store), operation, table).Observe(duration)
}

func recordQueryError(store Store, operation string, err error) {
	table := extractTableFromOperation(operation)
	errorType := fmt.Sprintf("%T", err)
	metrics.DBQueryErrors.WithLabelValues(string(store), operation, table, errorType).Inc()
}
