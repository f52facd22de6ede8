// Package config provides configuration structures and validation for the application.
// It handles environment-based configuration for all major components including
// server settings, database connections, message queues, provider back-ends,
// artifact storage, and operational parameters.
package config

import (
	"errors"
	"strings"
	"time"
)

// Config holds the complete application configuration with settings for all components.
// Each field represents a major subsystem's configuration (e.g., HTTP server, databases,
// message queues, generation providers) and is validated during application startup.
type Config struct {
	Application ApplicationConfig
	Logging     LoggingConfig
	Server      ServerConfig
	Intake      IntakeConfig
	Kafka       KafkaConfig
	Postgres    PostgresConfig
	MongoDB     MongoDBConfig
	Providers   ProvidersConfig
	Storage     StorageConfig
	Retry       RetryConfig
	Reconciler  ReconcilerConfig
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

// IntakeConfig bounds the generation intake endpoint
type IntakeConfig struct {
	MaxBodyBytes    int64 // Request body size cap
	MaxPromptLength int   // Prompt length cap in characters
}

// KafkaConfig contains Kafka configuration
type KafkaConfig struct {
	Brokers           string
	DispatchTopic     string // Topic carrying job dispatch messages
	NumPartitions     int    // Number of partitions for topics
	ReplicationFactor int    // Replication factor for topics
	ConsumerGroup     string
	MinBytes          int
	MaxBytes          int
	MaxWait           time.Duration
	StartOffset       int64
	DLQTopic          string // Topic for Dead Letter Queue
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

// MongoDBConfig contains MongoDB configuration for the metric store
type MongoDBConfig struct {
	URI             string
	Database        string
	Timeout         time.Duration
	MaxPoolSize     uint64
	MinPoolSize     uint64
	MaxConnIdleTime time.Duration
}

// ProviderBackendConfig holds the HTTP client settings for one generation back-end
type ProviderBackendConfig struct {
	BaseURL        string
	APIKey         string
	DefaultModel   string
	RequestTimeout time.Duration
}

// ProvidersConfig contains configuration for the external generation back-ends
type ProvidersConfig struct {
	Text   ProviderBackendConfig
	Image  ProviderBackendConfig
	Speech ProviderBackendConfig
}

// StorageConfig contains artifact storage configuration
type StorageConfig struct {
	RootDir       string // Local directory artifacts are written under
	PublicBaseURL string // Base URL artifacts are addressable at
}

// RetryConfig contains retry policy for provider calls
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// ReconcilerConfig contains the settlement reconciliation sweep configuration
type ReconcilerConfig struct {
	PollingInterval time.Duration
	BatchSize       int
	MinAge          time.Duration // How long a job must be unsettled before the sweep touches it
}

// WorkerPoolConfig contains worker pool configuration
type WorkerPoolConfig struct {
	Size int // Maximum number of workers in the pool
}

// validate performs comprehensive validation of all configuration values,
// ensuring they meet minimum requirements and logical constraints
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

	// Validate Intake config
	if c.Intake.MaxBodyBytes <= 0 {
		validationErrors = append(validationErrors, "INTAKE_MAX_BODY_BYTES must be greater than 0")
	}
	if c.Intake.MaxPromptLength <= 0 {
		validationErrors = append(validationErrors, "INTAKE_MAX_PROMPT_LENGTH must be greater than 0")
	}

	// Validate Kafka config
	if len(c.Kafka.Brokers) == 0 {
		validationErrors = append(validationErrors, "KAFKA_BROKERS is required")
	}
	if c.Kafka.DispatchTopic == "" {
		validationErrors = append(validationErrors, "KAFKA_DISPATCH_TOPIC is required")
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
	if c.Kafka.DLQTopic == "" {
		validationErrors = append(validationErrors, "KAFKA_DLQ_TOPIC is required")
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

	// Validate provider back-end config. API keys may legitimately be absent in
	// development, but a back-end without a base URL cannot be called at all.
	if c.Providers.Text.BaseURL == "" {
		validationErrors = append(validationErrors, "PROVIDER_TEXT_BASE_URL is required")
	}
	if c.Providers.Image.BaseURL == "" {
		validationErrors = append(validationErrors, "PROVIDER_IMAGE_BASE_URL is required")
	}
	if c.Providers.Speech.BaseURL == "" {
		validationErrors = append(validationErrors, "PROVIDER_SPEECH_BASE_URL is required")
	}
	if c.Providers.Text.RequestTimeout <= 0 {
		validationErrors = append(validationErrors, "PROVIDER_TEXT_REQUEST_TIMEOUT must be greater than 0")
	}
	if c.Providers.Image.RequestTimeout <= 0 {
		validationErrors = append(validationErrors, "PROVIDER_IMAGE_REQUEST_TIMEOUT must be greater than 0")
	}
	if c.Providers.Speech.RequestTimeout <= 0 {
		validationErrors = append(validationErrors, "PROVIDER_SPEECH_REQUEST_TIMEOUT must be greater than 0")
	}

	// Validate Storage config
	if c.Storage.RootDir == "" {
		validationErrors = append(validationErrors, "STORAGE_ROOT_DIR is required")
	}
	if c.Storage.PublicBaseURL == "" {
		validationErrors = append(validationErrors, "STORAGE_PUBLIC_BASE_URL is required")
	}

	// Validate Retry config
	if c.Retry.MaxAttempts <= 0 {
		validationErrors = append(validationErrors, "RETRY_MAX_ATTEMPTS must be greater than 0")
	}
	if c.Retry.BaseDelay <= 0 {
		validationErrors = append(validationErrors, "RETRY_BASE_DELAY must be greater than 0")
	}

	// Validate Reconciler config
	if c.Reconciler.PollingInterval <= 0 {
		validationErrors = append(validationErrors, "RECONCILER_POLLING_INTERVAL must be greater than 0")
	}
	if c.Reconciler.BatchSize <= 0 {
		validationErrors = append(validationErrors, "RECONCILER_BATCH_SIZE must be greater than 0")
	}
	if c.Reconciler.MinAge <= 0 {
		validationErrors = append(validationErrors, "RECONCILER_MIN_AGE must be greater than 0")
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
