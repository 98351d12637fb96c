package constants

import "time"

const (
	UsernameMinLength  = 3
	UsernameMaxLength  = 32
	EmailMaxLength     = 254
	JWTSecretMinLength = 32

	MaxBatchSize          = 100
	DefaultPageSize       = 50
	MaxPageSize           = 500
	DefaultMaxRequestSize = 1 << 20

	DBPoolMaxOpenConns    = 25
	DBPoolMinOpenConns    = 5
	DBPoolConnMaxLifetime = time.Hour
	DBPoolConnMaxIdleTime = 30 * time.Minute
	DBPoolHealthCheck     = 1 * time.Minute
	DBPoolConnectTimeout  = 5 * time.Second
	DBPoolMaxAttempts     = 10
	DBPoolRetryDelay      = 1 * time.Second
	DBPoolMetricsInterval = 30 * time.Second
	DBQueryTimeout        = 30 * time.Second
	DBApplicationName     = "defis-users"

	ServerReadHeaderTimeout = 10 * time.Second
	ServerReadTimeout       = 30 * time.Second
	ServerWriteTimeout      = 30 * time.Second
	ServerIdleTimeout       = 120 * time.Second

	ShutdownTimeout = 30 * time.Second
	DrainTimeout    = 10 * time.Second

	DefaultUsersHTTPPort       = "8083"
	DefaultDatabaseDriver      = "postgres"
	DefaultSQLitePath          = "data/users.db"
	DefaultUsersRequestTimeout = 5 * time.Second
	DefaultSaveMode            = "upsert"

	DefaultCircuitBreakerThreshold = 50
	DefaultCircuitBreakerTimeout   = 15 * time.Second
	DefaultCircuitBreakerReset     = 10 * time.Second

	RateLimitCleanupInterval        = 5 * time.Minute
	RateLimitWriteRequestsPerSecond = 5.0
	RateLimitWriteBurst             = 10
	RateLimitReadRequestsPerSecond  = 50.0
	RateLimitReadBurst              = 100

	LoggerMaxSize    = 100
	LoggerMaxBackups = 3
	LoggerMaxAge     = 28
	DefaultLogDir    = "/var/log/defis-users"
)

type TraceIDKeyType string

const TraceIDKey TraceIDKeyType = "trace_id"
