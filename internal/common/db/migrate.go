package db

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"time"

	pgx "github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/AlibekovAA/defis-users/internal/common/logger"
	"github.com/AlibekovAA/defis-users/internal/observability/metrics"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrationsFS embed.FS

type MigrationState struct {
	Version   int64
	Path      string
	Applied   bool
	AppliedAt time.Time
}

func gooseDialect(store Store) (goose.Dialect, error) {
	switch store {
	case StorePostgres:
		return goose.DialectPostgres, nil
	case StoreSQLite:
		return goose.DialectSQLite3, nil
	default:
		return "", fmt.Errorf("unsupported migration dialect %q", store)
	}
}

func newProvider(store Store, sqlDB *sql.DB) (*goose.Provider, error) {
	dialect, err := gooseDialect(store)
	if err != nil {
		return nil, err
	}
	sub, err := fs.Sub(migrationsFS, "migrations/"+string(store))
	if err != nil {
		return nil, fmt.Errorf("open embedded migrations: %w", err)
	}
	provider, err := goose.NewProvider(dialect, sqlDB, sub)
	if err != nil {
		return nil, fmt.Errorf("create migration provider: %w", err)
	}
	return provider, nil
}

// OpenPgSQL opens a database/sql handle over pgx for goose, which needs
// *sql.DB rather than a pgx pool.
func OpenPgSQL(databaseURL string) (*sql.DB, error) {
	cfg, err := pgx.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database url: %w", err)
	}
	return stdlib.OpenDB(*cfg), nil
}

func Migrate(ctx context.Context, log *logger.Logger, store Store, sqlDB *sql.DB) error {
	provider, err := newProvider(store, sqlDB)
	if err != nil {
		return err
	}

	start := time.Now()
	results, err := provider.Up(ctx)
	MeasureQueryDuration(store, "apply migrations", start)
	if err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	for _, r := range results {
		metrics.DBMigrationsApplied.WithLabelValues(string(store)).Inc()
		log.Infof("migration applied: version=%d path=%s duration=%v", r.Source.Version, r.Source.Path, r.Duration)
	}
	if len(results) == 0 {
		log.Debugf("%s schema is up to date", store)
	}
	return nil
}

// MigrateDown rolls back the most recent migration. It is a no-op when
// nothing is applied.
func MigrateDown(ctx context.Context, log *logger.Logger, store Store, sqlDB *sql.DB) error {
	provider, err := newProvider(store, sqlDB)
	if err != nil {
		return err
	}

	result, err := provider.Down(ctx)
	if err != nil {
		if errors.Is(err, goose.ErrNoNextVersion) {
			log.Infof("%s: no migrations to roll back", store)
			return nil
		}
		return fmt.Errorf("failed to roll back migration: %w", err)
	}

	log.Infof("migration rolled back: version=%d path=%s", result.Source.Version, result.Source.Path)
	return nil
}

func MigrationStatus(ctx context.Context, store Store, sqlDB *sql.DB) ([]MigrationState, error) {
	provider, err := newProvider(store, sqlDB)
	if err != nil {
		return nil, err
	}

	statuses, err := provider.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read migration status: %w", err)
	}

	states := make([]MigrationState, 0, len(statuses))
	for _, s := range statuses {
		states = append(states, MigrationState{
			Version:   s.Source.Version,
			Path:      s.Source.Path,
			Applied:   s.State == goose.StateApplied,
			AppliedAt: s.AppliedAt,
		})
	}
	return states, nil
}
