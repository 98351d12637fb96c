package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/AlibekovAA/defis-users/internal/common/constants"
	commonerrors "github.com/AlibekovAA/defis-users/internal/common/errors"
	"github.com/AlibekovAA/defis-users/internal/user/domain"
)

const configFileEnv = "USERS_CONFIG_FILE"

type DatabaseConfig struct {
	Driver     string
	URL        string
	SQLitePath string
}

type CircuitBreakerConfig struct {
	Threshold  int32
	Timeout    time.Duration
	ResetAfter time.Duration
}

type UsersConfig struct {
	HTTPPort       string
	RequestTimeout time.Duration
	SaveMode       domain.SaveMode
	UniqueUsername bool
	JWTSecret      string
	LogDir         string
	LogLevel       string
	Database       DatabaseConfig
	CircuitBreaker CircuitBreakerConfig
}

// envBindings maps configuration keys to the environment variables that
// override them. Nested keys also match the same paths in users.yaml.
var envBindings = map[string]string{
	"http.port":                 "USERS_HTTP_PORT",
	"http.request_timeout":      "USERS_REQUEST_TIMEOUT",
	"users.save_mode":           "USERS_SAVE_MODE",
	"users.unique_username":     "USERS_UNIQUE_USERNAME",
	"jwt.secret":                "JWT_SECRET",
	"log.dir":                   "LOG_DIR",
	"log.level":                 "LOG_LEVEL",
	"database.driver":           "DATABASE_DRIVER",
	"database.url":              "DATABASE_URL",
	"database.sqlite_path":      "SQLITE_PATH",
	"circuit_breaker.threshold": "USERS_CB_THRESHOLD",
	"circuit_breaker.timeout":   "USERS_CB_TIMEOUT",
	"circuit_breaker.reset":     "USERS_CB_RESET",
}

func newViper() (*viper.Viper, error) {
	v := viper.New()

	v.SetDefault("http.port", constants.DefaultUsersHTTPPort)
	v.SetDefault("http.request_timeout", constants.DefaultUsersRequestTimeout)
	v.SetDefault("users.save_mode", constants.DefaultSaveMode)
	v.SetDefault("users.unique_username", false)
	v.SetDefault("log.dir", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("database.driver", constants.DefaultDatabaseDriver)
	v.SetDefault("database.sqlite_path", constants.DefaultSQLitePath)
	v.SetDefault("circuit_breaker.threshold", constants.DefaultCircuitBreakerThreshold)
	v.SetDefault("circuit_breaker.timeout", constants.DefaultCircuitBreakerTimeout)
	v.SetDefault("circuit_breaker.reset", constants.DefaultCircuitBreakerReset)

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind %s: %w", env, err)
		}
	}

	if err := v.BindEnv("config_file", configFileEnv); err != nil {
		return nil, fmt.Errorf("bind %s: %w", configFileEnv, err)
	}

	if path := v.GetString("config_file"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
		return v, nil
	}

	v.SetConfigName("users")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/defis-users")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}
	return v, nil
}

// LoadUsersConfig merges defaults, the optional users.yaml and environment
// variables, in increasing priority, and validates the result.
func LoadUsersConfig() (UsersConfig, error) {
	v, err := newViper()
	if err != nil {
		return UsersConfig{}, commonerrors.ErrInvalidConfig.WithCause(err)
	}

	saveMode, err := domain.ParseSaveMode(v.GetString("users.save_mode"))
	if err != nil {
		return UsersConfig{}, commonerrors.ErrInvalidConfig.WithCause(err)
	}

	cfg := UsersConfig{
		HTTPPort:       v.GetString("http.port"),
		RequestTimeout: v.GetDuration("http.request_timeout"),
		SaveMode:       saveMode,
		UniqueUsername: v.GetBool("users.unique_username"),
		JWTSecret:      v.GetString("jwt.secret"),
		LogDir:         v.GetString("log.dir"),
		LogLevel:       v.GetString("log.level"),
		Database: DatabaseConfig{
			Driver:     strings.ToLower(strings.TrimSpace(v.GetString("database.driver"))),
			URL:        v.GetString("database.url"),
			SQLitePath: v.GetString("database.sqlite_path"),
		},
		CircuitBreaker: CircuitBreakerConfig{
			Threshold:  v.GetInt32("circuit_breaker.threshold"),
			Timeout:    v.GetDuration("circuit_breaker.timeout"),
			ResetAfter: v.GetDuration("circuit_breaker.reset"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return UsersConfig{}, err
	}
	return cfg, nil
}

type MigrateConfig struct {
	Database DatabaseConfig
	LogLevel string
}

// LoadMigrateConfig reads only what is needed to reach the store.
func LoadMigrateConfig() (MigrateConfig, error) {
	v, err := newViper()
	if err != nil {
		return MigrateConfig{}, commonerrors.ErrInvalidConfig.WithCause(err)
	}

	cfg := MigrateConfig{
		Database: DatabaseConfig{
			Driver:     strings.ToLower(strings.TrimSpace(v.GetString("database.driver"))),
			URL:        v.GetString("database.url"),
			SQLitePath: v.GetString("database.sqlite_path"),
		},
		LogLevel: v.GetString("log.level"),
	}
	if err := cfg.Database.Validate(); err != nil {
		return MigrateConfig{}, err
	}
	return cfg, nil
}

func (c UsersConfig) Validate() error {
	if err := validateJWTSecret(c.JWTSecret); err != nil {
		return err
	}
	if c.HTTPPort == "" {
		return commonerrors.ErrMissingRequiredEnv.WithMessage("missing required configuration value: USERS_HTTP_PORT")
	}
	if c.RequestTimeout <= 0 {
		return commonerrors.ErrInvalidConfig.WithMessage("USERS_REQUEST_TIMEOUT must be positive")
	}
	if c.CircuitBreaker.Threshold <= 0 {
		return commonerrors.ErrInvalidConfig.WithMessage("USERS_CB_THRESHOLD must be positive")
	}
	return c.Database.Validate()
}

func (c DatabaseConfig) Validate() error {
	switch c.Driver {
	case "postgres":
		if c.URL == "" {
			return commonerrors.ErrMissingRequiredEnv.WithMessage("missing required configuration value: DATABASE_URL")
		}
	case "sqlite":
		if c.SQLitePath == "" {
			return commonerrors.ErrMissingRequiredEnv.WithMessage("missing required configuration value: SQLITE_PATH")
		}
	default:
		return commonerrors.ErrInvalidConfig.WithMessage(fmt.Sprintf("unknown DATABASE_DRIVER %q (want postgres or sqlite)", c.Driver))
	}
	return nil
}

func validateJWTSecret(secret string) error {
	if secret == "" {
		return commonerrors.ErrMissingRequiredEnv.WithMessage("missing required configuration value: JWT_SECRET")
	}
	if len(secret) < constants.JWTSecretMinLength {
		return commonerrors.ErrInvalidJWTSecret.WithCause(fmt.Errorf("got %d bytes", len(secret)))
	}
	return nil
}
