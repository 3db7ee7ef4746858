// Package config provides configuration structures and validation for the
// audit API and the development ledger node. Values come from an env file,
// environment variables and defaults, and are validated during startup.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// Config holds the complete application configuration with settings for all components.
type Config struct {
	Application ApplicationConfig
	Logging     LoggingConfig
	Server      ServerConfig
	Kafka       KafkaConfig
	Postgres    PostgresConfig
	MongoDB     MongoDBConfig
	Redis       RedisConfig
	Ledger      LedgerConfig
	Retry       RetryConfig
	CommitQueue CommitQueueConfig
	Monitor     MonitorConfig
	Sweeper     SweeperConfig
	Forecast    ForecastConfig
	WorkerPool  WorkerPoolConfig
}

// ApplicationConfig contains general application configuration
type ApplicationConfig struct {
	Env  string
	Name string
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level string
}

// ServerConfig contains HTTP server configuration settings
type ServerConfig struct {
	Port            int           // Port to listen on
	ShutdownTimeout time.Duration // Grace period for server shutdown
	ReadTimeout     time.Duration // Maximum duration for reading entire request
	WriteTimeout    time.Duration // Maximum duration for writing response
	IdleTimeout     time.Duration // Maximum duration to wait for next request
}

// KafkaConfig contains Kafka configuration for the ledger submission stream
type KafkaConfig struct {
	Brokers           string
	SubmissionTopic   string
	ConsumerGroup     string
	MinBytes          int
	MaxBytes          int
	MaxWait           time.Duration
	StartOffset       int64
	DLQTopic          string // Topic for rejected submissions; empty disables the DLQ
	NumPartitions     int    // Used when a topic has to be created
	ReplicationFactor int
}

// PostgresConfig contains PostgreSQL configuration
type PostgresConfig struct {
	URL             string        // Database connection string
	MaxConns        int32         // Maximum number of open connections
	MinConns        int32         // Maximum number of idle connections
	ConnMaxLifetime time.Duration // Maximum lifetime of a connection
	ConnMaxIdleTime time.Duration // Maximum idle time of a connection
	MigrationsPath  string        // Path to migration files
}

// MongoDBConfig contains MongoDB configuration for the ledger record store
type MongoDBConfig struct {
	URI              string
	Database         string
	LedgerCollection string
	Timeout          time.Duration
	MaxPoolSize      uint64
	MinPoolSize      uint64
	MaxConnIdleTime  time.Duration
}

// RedisConfig contains the catalog cache configuration. An empty URL disables the cache.
type RedisConfig struct {
	URL          string
	PoolSize     int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	CatalogTTL   time.Duration
}

// LedgerConfig controls the ledger gateway
type LedgerConfig struct {
	Enabled             bool
	ProbeTimeout        time.Duration // Bound on the startup connectivity probe
	PollInterval        time.Duration // How often a pending transaction is checked
	ConfirmationTimeout time.Duration // After this a pending transaction is marked failed
}

// RetryConfig controls retries of ledger submissions
type RetryConfig struct {
	MaxRetries int           // Additional attempts after the first
	BaseDelay  time.Duration // Delay before the first retry, doubled on each further retry
}

// CommitQueueConfig sizes the fire-and-forget ledger commit queue
type CommitQueueConfig struct {
	Capacity int
	Workers  int
}

// MonitorConfig sizes the confirmation watcher pool
type MonitorConfig struct {
	Workers int
}

// SweeperConfig controls the recovery of audit entries stuck in pending
type SweeperConfig struct {
	Schedule   string // cron spec, e.g. "@every 1m"
	StaleAfter time.Duration
	BatchSize  int
}

// ForecastConfig points at the external forecasting service
type ForecastConfig struct {
	URL     string
	Timeout time.Duration
}

// WorkerPoolConfig contains the ledger node worker pool configuration
type WorkerPoolConfig struct {
	Size int // Maximum number of workers in the pool
}

// validate performs validation of all configuration values, collecting every
// violation instead of stopping at the first
func (c *Config) validate() error {
	var validationErrors []string

	// Validate Server config
	if c.Server.Port <= 0 {
		validationErrors = append(validationErrors, "SERVER_PORT must be greater than 0")
	}
	if c.Server.ShutdownTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_SHUTDOWN_TIMEOUT must be greater than 0")
	}
	if c.Server.ReadTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_READ_TIMEOUT must be greater than 0")
	}
	if c.Server.WriteTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_WRITE_TIMEOUT must be greater than 0")
	}
	if c.Server.IdleTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_IDLE_TIMEOUT must be greater than 0")
	}

	// Validate Kafka config
	if c.Kafka.Brokers == "" {
		validationErrors = append(validationErrors, "KAFKA_BROKERS is required")
	}
	if c.Kafka.SubmissionTopic == "" {
		validationErrors = append(validationErrors, "KAFKA_SUBMISSION_TOPIC is required")
	}
	if c.Kafka.ConsumerGroup == "" {
		validationErrors = append(validationErrors, "KAFKA_CONSUMER_GROUP is required")
	}
	if c.Kafka.MinBytes <= 0 {
		validationErrors = append(validationErrors, "KAFKA_CONSUMER_MIN_BYTES must be greater than 0")
	}
	if c.Kafka.MaxBytes <= 0 {
		validationErrors = append(validationErrors, "KAFKA_CONSUMER_MAX_BYTES must be greater than 0")
	}
	if c.Kafka.MaxWait <= 0 {
		validationErrors = append(validationErrors, "KAFKA_CONSUMER_MAX_WAIT must be greater than 0")
	}

	// Validate PostgreSQL config
	if c.Postgres.URL == "" {
		validationErrors = append(validationErrors, "POSTGRES_URL is required")
	}
	if c.Postgres.MaxConns <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MAX_CONNS must be greater than 0")
	}
	if c.Postgres.MinConns <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MIN_CONNS must be greater than 0")
	}
	if c.Postgres.ConnMaxLifetime <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MAX_CONN_LIFETIME must be greater than 0")
	}
	if c.Postgres.ConnMaxIdleTime <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MAX_CONN_IDLE_TIME must be greater than 0")
	}

	// Validate MongoDB config
	if c.MongoDB.URI == "" {
		validationErrors = append(validationErrors, "MONGO_URI is required")
	}
	if c.MongoDB.Database == "" {
		validationErrors = append(validationErrors, "MONGO_DATABASE is required")
	}
	if c.MongoDB.LedgerCollection == "" {
		validationErrors = append(validationErrors, "MONGO_LEDGER_COLLECTION is required")
	}
	if c.MongoDB.Timeout <= 0 {
		validationErrors = append(validationErrors, "MONGO_TIMEOUT must be greater than 0")
	}
	if c.MongoDB.MaxPoolSize <= 0 {
		validationErrors = append(validationErrors, "MONGO_MAX_POOL_SIZE must be greater than 0")
	}
	if c.MongoDB.MinPoolSize <= 0 {
		validationErrors = append(validationErrors, "MONGO_MIN_POOL_SIZE must be greater than 0")
	}
	if c.MongoDB.MaxConnIdleTime <= 0 {
		validationErrors = append(validationErrors, "MONGO_MAX_CONN_IDLE_TIME must be greater than 0")
	}

	// Redis is optional, but a configured cache needs a positive TTL
	if c.Redis.URL != "" && c.Redis.CatalogTTL <= 0 {
		validationErrors = append(validationErrors, "REDIS_CATALOG_TTL must be greater than 0")
	}

	// Validate Ledger config
	if c.Ledger.ProbeTimeout <= 0 {
		validationErrors = append(validationErrors, "LEDGER_PROBE_TIMEOUT must be greater than 0")
	}
	if c.Ledger.PollInterval <= 0 {
		validationErrors = append(validationErrors, "LEDGER_POLL_INTERVAL must be greater than 0")
	}
	if c.Ledger.ConfirmationTimeout < c.Ledger.PollInterval {
		validationErrors = append(validationErrors, "LEDGER_CONFIRMATION_TIMEOUT must not be shorter than LEDGER_POLL_INTERVAL")
	}

	// Validate Retry config
	if c.Retry.MaxRetries < 0 {
		validationErrors = append(validationErrors, "RETRY_MAX_RETRIES must not be negative")
	}
	if c.Retry.BaseDelay <= 0 {
		validationErrors = append(validationErrors, "RETRY_BASE_DELAY must be greater than 0")
	}

	// Validate queue and pool sizes
	if c.CommitQueue.Capacity <= 0 {
		validationErrors = append(validationErrors, "COMMIT_QUEUE_CAPACITY must be greater than 0")
	}
	if c.CommitQueue.Workers <= 0 {
		validationErrors = append(validationErrors, "COMMIT_QUEUE_WORKERS must be greater than 0")
	}
	if c.Monitor.Workers <= 0 {
		validationErrors = append(validationErrors, "MONITOR_WORKERS must be greater than 0")
	}

	// Validate Sweeper config
	if c.Sweeper.Schedule == "" {
		validationErrors = append(validationErrors, "SWEEPER_SCHEDULE is required")
	} else if _, err := cron.ParseStandard(c.Sweeper.Schedule); err != nil {
		validationErrors = append(validationErrors, "SWEEPER_SCHEDULE is not a valid cron spec")
	}
	if c.Sweeper.StaleAfter <= 0 {
		validationErrors = append(validationErrors, "SWEEPER_STALE_AFTER must be greater than 0")
	}
	// A watched transaction must reach its timeout before the sweeper resubmits it
	if c.Sweeper.StaleAfter <= c.Ledger.ConfirmationTimeout {
		validationErrors = append(validationErrors, "SWEEPER_STALE_AFTER must be longer than LEDGER_CONFIRMATION_TIMEOUT")
	}
	if c.Sweeper.BatchSize <= 0 {
		validationErrors = append(validationErrors, "SWEEPER_BATCH_SIZE must be greater than 0")
	}

	// Validate Forecast config
	if c.Forecast.URL == "" {
		validationErrors = append(validationErrors, "FORECAST_URL is required")
	}
	if c.Forecast.Timeout <= 0 {
		validationErrors = append(validationErrors, "FORECAST_TIMEOUT must be greater than 0")
	}

	// Validate WorkerPool config
	if c.WorkerPool.Size <= 0 {
		validationErrors = append(validationErrors, "WORKER_POOL_SIZE must be greater than 0")
	}

	if len(validationErrors) > 0 {
		return errors.New(strings.Join(validationErrors, ", "))
	}

	return nil
}
