package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AlibekovAA/defis-users/internal/common/config"
	"github.com/AlibekovAA/defis-users/internal/common/constants"
	"github.com/AlibekovAA/defis-users/internal/common/db"
	commonhttp "github.com/AlibekovAA/defis-users/internal/common/http"
	"github.com/AlibekovAA/defis-users/internal/common/logger"
	"github.com/AlibekovAA/defis-users/internal/common/resilience"
	userhttp "github.com/AlibekovAA/defis-users/internal/user/http"
	userrepo "github.com/AlibekovAA/defis-users/internal/user/repository"
	"github.com/AlibekovAA/defis-users/internal/user/service"
)

const serviceName = "users"

type UsersApp struct {
	Log      *logger.Logger
	Config   config.UsersConfig
	Repo     userrepo.Repository
	Service  *service.UserService
	Limiters *commonhttp.RouteLimiters

	readiness map[string]commonhttp.ReadinessCheck
	closers   []func() error
}

// NewUsersApp loads configuration from the environment and wires the service.
func NewUsersApp(ctx context.Context) (*UsersApp, error) {
	cfg, err := config.LoadUsersConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.New(cfg.LogDir, serviceName, cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	app, err := NewUsersAppWithConfig(ctx, cfg, log)
	if err != nil {
		_ = log.Close()
		return nil, err
	}
	app.closers = append(app.closers, log.Close)
	return app, nil
}

func NewUsersAppWithConfig(ctx context.Context, cfg config.UsersConfig, log *logger.Logger) (*UsersApp, error) {
	app := &UsersApp{
		Log:       log,
		Config:    cfg,
		readiness: make(map[string]commonhttp.ReadinessCheck),
	}

	opts := userrepo.Options{SaveMode: cfg.SaveMode}

	switch db.Store(cfg.Database.Driver) {
	case db.StorePostgres:
		if err := prepareSchema(ctx, log, cfg.Database, cfg.UniqueUsername); err != nil {
			return nil, err
		}
		pool, err := db.NewPool(ctx, log, cfg.Database.URL)
		if err != nil {
			return nil, err
		}
		app.Repo = userrepo.NewPgRepository(pool, opts)
		app.readiness["postgres"] = db.PingPool(pool)
		app.closers = append(app.closers, func() error {
			pool.Close()
			return nil
		})
	case db.StoreSQLite:
		sqlDB, err := db.OpenSQLite(cfg.Database.SQLitePath)
		if err != nil {
			return nil, err
		}
		if err := setupSchema(ctx, log, db.StoreSQLite, sqlDB, cfg.UniqueUsername); err != nil {
			_ = sqlDB.Close()
			return nil, err
		}
		app.Repo = userrepo.NewSQLiteRepository(sqlDB, opts)
		app.readiness["sqlite"] = db.PingSQL(sqlDB)

		metricsCtx, stopMetrics := context.WithCancel(context.Background())
		db.StartSQLMetrics(metricsCtx, db.StoreSQLite, sqlDB, constants.DBPoolMetricsInterval)
		app.closers = append(app.closers, sqlDB.Close, func() error {
			stopMetrics()
			return nil
		})
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}

	breaker := service.NewRepositoryBreaker(resilience.CircuitBreakerConfig{
		Threshold:  cfg.CircuitBreaker.Threshold,
		Timeout:    cfg.CircuitBreaker.Timeout,
		ResetAfter: cfg.CircuitBreaker.ResetAfter,
		Name:       "users_repository",
		Logger:     log,
	})
	app.Service = service.NewUserService(app.Repo, service.Config{Breaker: breaker}, log)
	app.Limiters = commonhttp.NewRouteLimiters()

	log.Infof("users app initialized: store=%s save_mode=%s unique_username=%t",
		cfg.Database.Driver, cfg.SaveMode, cfg.UniqueUsername)
	return app, nil
}

// Handler returns the full HTTP surface: the users API, health checks and metrics.
func (a *UsersApp) Handler() http.Handler {
	api := userhttp.NewHandler(a.Service, userhttp.Config{
		JWTSecret:      a.Config.JWTSecret,
		RequestTimeout: a.Config.RequestTimeout,
		Limiters:       a.Limiters,
	}, a.Log)

	mux := http.NewServeMux()
	mux.Handle("/api/users", api)
	mux.Handle("/api/users/", api)
	mux.Handle("GET /health", commonhttp.HealthHandler(a.Log))
	mux.Handle("GET /ready", commonhttp.ReadinessHandler(a.Log, a.readiness))
	mux.Handle("GET /metrics", promhttp.Handler())

	return commonhttp.BuildBaseHandler(serviceName, a.Log, mux)
}

// Close releases resources in reverse order of acquisition.
func (a *UsersApp) Close() error {
	if a.Limiters != nil {
		a.Limiters.Stop()
	}
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// OpenMigrationDB opens the database/sql handle goose runs against.
func OpenMigrationDB(cfg config.DatabaseConfig) (db.Store, *sql.DB, error) {
	store := db.Store(cfg.Driver)
	switch store {
	case db.StorePostgres:
		sqlDB, err := db.OpenPgSQL(cfg.URL)
		return store, sqlDB, err
	case db.StoreSQLite:
		sqlDB, err := db.OpenSQLite(cfg.SQLitePath)
		return store, sqlDB, err
	default:
		return "", nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

func prepareSchema(ctx context.Context, log *logger.Logger, cfg config.DatabaseConfig, unique bool) error {
	store, sqlDB, err := OpenMigrationDB(cfg)
	if err != nil {
		return err
	}
	defer sqlDB.Close()
	return setupSchema(ctx, log, store, sqlDB, unique)
}

func setupSchema(ctx context.Context, log *logger.Logger, store db.Store, sqlDB *sql.DB, unique bool) error {
	err := db.RetryWithBackoff(ctx, log, db.DefaultRetryConfig, func() error {
		return db.Migrate(ctx, log, store, sqlDB)
	})
	if err != nil {
		return err
	}
	if err := db.ApplyUsernameConstraint(ctx, store, sqlDB, unique); err != nil {
		return fmt.Errorf("failed to apply username constraint: %w", err)
	}
	return nil
}
