package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	// DebugModeEnv is the environment variable for debug mode.
	DebugModeEnv = "DEBUG_MODE"

	// DBHostEnv is the environment variable for database host.
	DBHostEnv = "DB_HOST"

	// DBPortEnv is the environment variable for database port.
	DBPortEnv = "DB_PORT"

	// DBUserEnv is the environment variable for database user.
	DBUserEnv = "DB_USER"

	// DBPassEnv is the environment variable for database password.
	DBPassEnv = "DB_PASS"

	// DBNameEnv is the environment variable for database name.
	DBNameEnv = "DB_NAME"

	// DBMaxOpenConnsEnv caps the connection pool. Zero or unset means unlimited.
	DBMaxOpenConnsEnv = "DB_MAX_OPEN_CONNS"

	// DBMigrationsSourceEnv is the golang-migrate source URL, file://migrations by default.
	DBMigrationsSourceEnv = "DB_MIGRATIONS_SOURCE"

	// HTTPServerPortEnv is the environment variable for HTTP server port.
	HTTPServerPortEnv = "HTTP_SERVER_PORT"

	// MetricsServerPortEnv is the environment variable for metrics server port.
	MetricsServerPortEnv = "METRICS_SERVER_PORT"

	// EnvFilePath is the environment variable for .env file path (only for local/test environment).
	EnvFilePath = "ENV_PATH"

	// DefaultEnvFilePath is the default path to the .env file.
	DefaultEnvFilePath = ".env"

	// AWSRegionEnv is the environment variable for AWS region.
	AWSRegionEnv = "AWS_REGION"

	// AWSEndpointEnv is the environment variable for AWS endpoint.
	AWSEndpointEnv = "AWS_ENDPOINT"

	// SQSQueueURLEnv is the environment variable for SQS queue URL.
	// When empty, outbox events are stored but not published.
	SQSQueueURLEnv = "SQS_QUEUE_URL"

	// OutboxIntervalEnv is how often the outbox worker polls, as a Go duration.
	OutboxIntervalEnv = "OUTBOX_INTERVAL"

	// OutboxBatchSizeEnv is how many pending events one poll handles.
	OutboxBatchSizeEnv = "OUTBOX_BATCH_SIZE"

	// SlugMaxAttemptsEnv bounds how many generated slugs are tried when creating a product.
	SlugMaxAttemptsEnv = "SLUG_MAX_ATTEMPTS"
)

const (
	defaultOutboxInterval  = 5 * time.Second
	defaultOutboxBatchSize = 100
	defaultSlugMaxAttempts = 3
	defaultAWSRegion       = "us-east-1"
)

var (
	// ErrMissingConfig is returned when required configuration values are missing.
	ErrMissingConfig = errors.New("missing config data")
	// ErrInvalidConfig is returned when a configuration value is out of range.
	ErrInvalidConfig = errors.New("invalid config data")
)

// Config represents the application configuration.
type Config struct {
	DebugMode     bool
	Database      DB
	HTTPServer    Server
	MetricsServer Server
	AWS           AWS
	Outbox        Outbox
	Catalog       Catalog
}

// AWS represents AWS-specific configuration settings.
type AWS struct {
	Region      string
	Endpoint    string
	SQSQueueURL string
}

// DB represents database configuration settings.
type DB struct {
	Host             string
	User             string
	Password         string
	Name             string
	Port             string
	MaxOpenConns     int
	MigrationsSource string
}

// Server represents server configuration settings.
type Server struct {
	Port string
}

// Outbox configures the event publishing worker.
type Outbox struct {
	Interval  time.Duration
	BatchSize int
}

// Catalog holds product catalog behaviour settings.
type Catalog struct {
	SlugMaxAttempts uint
}

func allNonEmpty(keyValues map[string]string) error {
	for key, value := range keyValues {
		if value == "" {
			slog.Error("configuration validation failed", slog.String("key", key), slog.String("error", "value is empty"))
			return fmt.Errorf("%w for key: %s", ErrMissingConfig, key)
		}
	}
	return nil
}

func allNumbers(keyValues map[string]string) error {
	for key, value := range keyValues {
		_, err := strconv.Atoi(value)
		if err != nil {
			slog.Error("configuration validation failed", slog.String("key", key), slog.String("value", value), slog.String("error", err.Error()))
			return fmt.Errorf("invalid number for key %s: %w", key, err)
		}
	}
	return nil
}

func (c *Config) validate() error {
	// Validate database configuration
	if err := allNonEmpty(map[string]string{
		DBHostEnv: c.Database.Host,
		DBUserEnv: c.Database.User,
		DBNameEnv: c.Database.Name,
	}); err != nil {
		return fmt.Errorf("database configuration incomplete: %w", err)
	}

	// Validate server ports
	if err := allNonEmpty(map[string]string{
		HTTPServerPortEnv:    c.HTTPServer.Port,
		MetricsServerPortEnv: c.MetricsServer.Port,
	}); err != nil {
		return fmt.Errorf("server port configuration incomplete: %w", err)
	}

	// Validate port numbers
	if err := allNumbers(map[string]string{
		DBPortEnv:            c.Database.Port,
		HTTPServerPortEnv:    c.HTTPServer.Port,
		MetricsServerPortEnv: c.MetricsServer.Port,
	}); err != nil {
		return fmt.Errorf("invalid port number: %w", err)
	}

	if c.Outbox.Interval <= 0 {
		return fmt.Errorf("%w: %s must be positive", ErrInvalidConfig, OutboxIntervalEnv)
	}
	if c.Outbox.BatchSize <= 0 {
		return fmt.Errorf("%w: %s must be positive", ErrInvalidConfig, OutboxBatchSizeEnv)
	}
	if c.Catalog.SlugMaxAttempts == 0 {
		return fmt.Errorf("%w: %s must be positive", ErrInvalidConfig, SlugMaxAttemptsEnv)
	}
	if c.Database.MaxOpenConns < 0 {
		return fmt.Errorf("%w: %s must not be negative", ErrInvalidConfig, DBMaxOpenConnsEnv)
	}

	return nil
}

// PublishingEnabled reports whether outbox events are forwarded to SQS.
func (c *Config) PublishingEnabled() bool {
	return c.AWS.SQSQueueURL != ""
}

func getEnvAsBool(name string, defaultValue bool) bool {
	if val, err := strconv.ParseBool(os.Getenv(name)); err == nil {
		return val
	}
	return defaultValue
}

func getEnv(name, defaultValue string) string {
	if val := os.Getenv(name); val != "" {
		return val
	}
	return defaultValue
}

// getEnvAsInt returns the default when the variable is unset and an error when it is not a number.
func getEnvAsInt(name string, defaultValue int) (int, error) {
	raw := os.Getenv(name)
	if raw == "" {
		return defaultValue, nil
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid number for key %s: %w", name, err)
	}
	return val, nil
}

func getEnvAsDuration(name string, defaultValue time.Duration) (time.Duration, error) {
	raw := os.Getenv(name)
	if raw == "" {
		return defaultValue, nil
	}
	val, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid duration for key %s: %w", name, err)
	}
	return val, nil
}

// ApplyEnvFile loads environment variables from the specified .env files.
func ApplyEnvFile(files ...string) error {
	err := godotenv.Load(files...)
	if err != nil {
		return fmt.Errorf("failed to load env file: %w", err)
	}
	return nil
}

// LoadFromEnv loads configuration from environment variables and validates it.
func LoadFromEnv() (*Config, error) {
	envPath := os.Getenv(EnvFilePath)
	if envPath == "" {
		envPath = DefaultEnvFilePath
	}
	err := ApplyEnvFile(envPath)
	if err != nil {
		// just log the error, maybe all envs are set in another way
		slog.Info("failed to load from .env", slog.Any("err", err))
	}

	maxOpenConns, err := getEnvAsInt(DBMaxOpenConnsEnv, 0)
	if err != nil {
		return nil, err
	}
	outboxInterval, err := getEnvAsDuration(OutboxIntervalEnv, defaultOutboxInterval)
	if err != nil {
		return nil, err
	}
	outboxBatchSize, err := getEnvAsInt(OutboxBatchSizeEnv, defaultOutboxBatchSize)
	if err != nil {
		return nil, err
	}
	slugMaxAttempts, err := getEnvAsInt(SlugMaxAttemptsEnv, defaultSlugMaxAttempts)
	if err != nil {
		return nil, err
	}
	if slugMaxAttempts < 0 {
		slugMaxAttempts = 0
	}

	conf := &Config{
		DebugMode: getEnvAsBool(DebugModeEnv, false),
		Database: DB{
			Host:             os.Getenv(DBHostEnv),
			User:             os.Getenv(DBUserEnv),
			Password:         os.Getenv(DBPassEnv),
			Name:             os.Getenv(DBNameEnv),
			Port:             os.Getenv(DBPortEnv),
			MaxOpenConns:     maxOpenConns,
			MigrationsSource: os.Getenv(DBMigrationsSourceEnv),
		},
		HTTPServer: Server{
			Port: os.Getenv(HTTPServerPortEnv),
		},
		MetricsServer: Server{
			Port: os.Getenv(MetricsServerPortEnv),
		},
		AWS: AWS{
			Region:      getEnv(AWSRegionEnv, defaultAWSRegion),
			Endpoint:    os.Getenv(AWSEndpointEnv),
			SQSQueueURL: os.Getenv(SQSQueueURLEnv),
		},
		Outbox: Outbox{
			Interval:  outboxInterval,
			BatchSize: outboxBatchSize,
		},
		Catalog: Catalog{
			SlugMaxAttempts: uint(slugMaxAttempts),
		},
	}

	if err := conf.validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return conf, nil
}
