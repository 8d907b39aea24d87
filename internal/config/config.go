package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
	"go.uber.org/fx"
)

var Module = fx.Module("config",
	fx.Provide(NewConfig),
)

// Config holds all application configuration
type Config struct {
	// Server settings
	ServerPort    int    `env:"SERVER_PORT" envDefault:"3002"`
	ServerAddress string `env:"SERVER_ADDRESS" envDefault:"0.0.0.0"`
	Environment   string `env:"ENVIRONMENT" envDefault:"local"`
	Debug         bool   `env:"DEBUG" envDefault:"false"`
	LogLevel      string `env:"LOG_LEVEL" envDefault:"info"`

	// Database settings (matches NestJS POSTGRES_* vars)
	Database DatabaseConfig

	// Zitadel authentication
	Zitadel ZitadelConfig

	// Embeddings configuration
	Embeddings EmbeddingsConfig

	// Email configuration
	Email EmailConfig

	// Storage configuration
	Storage StorageConfig

	// EmbedQueue configures the embedding worker's SQS ingress
	EmbedQueue EmbedQueueConfig

	// RagStorage configures the object buckets the embedding core reads
	// and writes chunk payloads and vectors against
	RagStorage RagStorageConfig

	// SchedulerTask configures the scheduled-task tick and registry
	SchedulerTask SchedulerTaskConfig

	// AgentQueue configures the outbound queue the task dispatcher enqueues to
	AgentQueue AgentQueueConfig

	// CredentialRateLimit bounds how often a single api key can be resolved
	// for dispatch, independent of how many tasks share it
	CredentialRateLimit RateLimitConfig

	// Server timeouts
	ReadTimeout     time.Duration `env:"SERVER_READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout    time.Duration `env:"SERVER_WRITE_TIMEOUT" envDefault:"28800s"` // 8 hours for SSE
	IdleTimeout     time.Duration `env:"SERVER_IDLE_TIMEOUT" envDefault:"28800s"`  // 8 hours for SSE
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// DatabaseConfig holds PostgreSQL connection settings
type DatabaseConfig struct {
	Host         string        `env:"POSTGRES_HOST" envDefault:"localhost"`
	Port         int           `env:"POSTGRES_PORT" envDefault:"5432"`
	User         string        `env:"POSTGRES_USER" envDefault:"emergent"`
	Password     string        `env:"POSTGRES_PASSWORD" envDefault:""`
	Database     string        `env:"POSTGRES_DB" envDefault:"emergent"`
	SSLMode      string        `env:"POSTGRES_SSL_MODE" envDefault:"disable"`
	MaxOpenConns int           `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	MaxIdleConns int           `env:"DB_MAX_IDLE_CONNS" envDefault:"5"`
	MaxIdleTime  time.Duration `env:"DB_MAX_IDLE_TIME" envDefault:"5m"`
	QueryDebug   bool          `env:"DB_QUERY_DEBUG" envDefault:"false"`
}

// DSN returns the PostgreSQL connection string
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Database, d.SSLMode,
	)
}

// ZitadelConfig holds Zitadel/OIDC authentication settings
type ZitadelConfig struct {
	// Domain for Zitadel instance (e.g., "zitadel.dev.emergent-company.ai")
	Domain string `env:"ZITADEL_DOMAIN" envDefault:"localhost:8080"`

	// Issuer URL for OIDC (defaults to https://{Domain} if not set)
	Issuer string `env:"ZITADEL_ISSUER"`

	// Service account JWT key for introspection (JSON key file content)
	ClientJWT string `env:"ZITADEL_CLIENT_JWT"`

	// Path to JWT key file (alternative to ZITADEL_CLIENT_JWT)
	ClientJWTPath string `env:"ZITADEL_CLIENT_JWT_PATH"`

	// API JWT for management API calls (JSON key file content)
	APIJWT string `env:"ZITADEL_API_JWT"`

	// Path to API JWT key file (alternative to ZITADEL_API_JWT)
	APIJWTPath string `env:"ZITADEL_API_JWT_PATH"`

	// Organization ID for role checks
	MainOrgID string `env:"ZITADEL_MAIN_ORG_ID"`

	// Project ID for scopes
	ProjectID string `env:"ZITADEL_PROJECT_ID"`

	// Organization ID (alias for compatibility)
	OrgID string `env:"ZITADEL_ORG_ID"`

	// Disable token introspection (for testing)
	DisableIntrospection bool `env:"DISABLE_ZITADEL_INTROSPECTION" envDefault:"false"`

	// Introspection cache TTL
	IntrospectCacheTTL time.Duration `env:"ZITADEL_INTROSPECT_CACHE_TTL" envDefault:"5m"`

	// Debug token for development (bypasses auth)
	DebugToken string `env:"ZITADEL_DEBUG_TOKEN"`

	// Insecure mode (HTTP instead of HTTPS)
	Insecure bool `env:"ZITADEL_INSECURE" envDefault:"false"`
}

// EmbeddingsConfig holds embedding service configuration
type EmbeddingsConfig struct {
	// Provider: "vertex" (production) or "genai" (development)
	Provider string `env:"EMBEDDING_PROVIDER" envDefault:""`

	// GCP Project ID for Vertex AI
	GCPProjectID string `env:"GCP_PROJECT_ID" envDefault:""`

	// Vertex AI location (e.g., "us-central1")
	VertexAILocation string `env:"VERTEX_AI_LOCATION" envDefault:"us-central1"`

	// Embedding model name
	Model string `env:"EMBEDDING_MODEL" envDefault:"text-embedding-004"`

	// Embedding dimension (768 for text-embedding-004)
	Dimension int `env:"EMBEDDING_DIMENSION" envDefault:"768"`

	// Google API Key for Generative AI (development)
	GoogleAPIKey string `env:"GOOGLE_API_KEY" envDefault:""`

	// Disable embeddings network calls (for testing)
	NetworkDisabled bool `env:"EMBEDDINGS_NETWORK_DISABLED" envDefault:"false"`
}

// IsEnabled returns true if embeddings are configured
func (e *EmbeddingsConfig) IsEnabled() bool {
	if e.NetworkDisabled {
		return false
	}
	// Enabled if Vertex AI is configured OR Google API Key is set
	return (e.GCPProjectID != "" && e.VertexAILocation != "") || e.GoogleAPIKey != ""
}

// UseVertexAI returns true if Vertex AI should be used
func (e *EmbeddingsConfig) UseVertexAI() bool {
	return e.GCPProjectID != "" && e.VertexAILocation != ""
}

// EmailConfig holds email service configuration
type EmailConfig struct {
	// Enabled determines if email sending is enabled
	Enabled bool `env:"EMAIL_ENABLED" envDefault:"false"`
	// MailgunDomain is the Mailgun domain
	MailgunDomain string `env:"MAILGUN_DOMAIN" envDefault:""`
	// MailgunAPIKey is the Mailgun API key
	MailgunAPIKey string `env:"MAILGUN_API_KEY" envDefault:""`
	// FromEmail is the default from email address
	FromEmail string `env:"EMAIL_FROM_ADDRESS" envDefault:"noreply@example.com"`
	// FromName is the default from name
	FromName string `env:"EMAIL_FROM_NAME" envDefault:"Emergent"`
	// MaxRetries is the maximum number of retry attempts (default: 3)
	MaxRetries int `env:"EMAIL_MAX_RETRIES" envDefault:"3"`
	// RetryDelaySec is the base delay in seconds for retries (default: 60)
	RetryDelaySec int `env:"EMAIL_RETRY_DELAY_SEC" envDefault:"60"`
	// WorkerIntervalMs is the polling interval in milliseconds (default: 5000)
	WorkerIntervalMs int `env:"EMAIL_WORKER_INTERVAL_MS" envDefault:"5000"`
	// WorkerBatchSize is the number of jobs to process per poll (default: 10)
	WorkerBatchSize int `env:"EMAIL_WORKER_BATCH_SIZE" envDefault:"10"`
}

// IsConfigured returns true if Mailgun is configured
func (e *EmailConfig) IsConfigured() bool {
	return e.MailgunDomain != "" && e.MailgunAPIKey != ""
}

// StorageConfig holds storage (MinIO/S3) configuration
type StorageConfig struct {
	// Endpoint is the MinIO/S3 endpoint URL
	Endpoint string `env:"MINIO_ENDPOINT" envDefault:"localhost:9000"`
	// AccessKeyID is the access key ID
	AccessKeyID string `env:"MINIO_ACCESS_KEY" envDefault:""`
	// SecretAccessKey is the secret access key
	SecretAccessKey string `env:"MINIO_SECRET_KEY" envDefault:""`
	// Bucket is the bucket name
	Bucket string `env:"MINIO_BUCKET" envDefault:"emergent"`
	// UseSSL determines if SSL should be used
	UseSSL bool `env:"MINIO_USE_SSL" envDefault:"false"`
	// Region is the bucket region (for S3 compatibility)
	Region string `env:"MINIO_REGION" envDefault:"us-east-1"`
}

// IsConfigured returns true if storage is configured
func (s *StorageConfig) IsConfigured() bool {
	return s.Endpoint != "" && s.AccessKeyID != "" && s.SecretAccessKey != ""
}

// GetIssuer returns the issuer URL, defaulting to https://{Domain}
func (z *ZitadelConfig) GetIssuer() string {
	if z.Issuer != "" {
		return z.Issuer
	}
	if z.Insecure {
		return fmt.Sprintf("http://%s", z.Domain)
	}
	return fmt.Sprintf("https://%s", z.Domain)
}

// EmbedQueueConfig holds the embedding worker's queue settings. The
// variable name keeps the original deployment's DynamoDB/Lambda-era name
// so operators migrating an existing environment don't need to rename it.
type EmbedQueueConfig struct {
	QueueURL          string        `env:"EMBEDDING_CHUNKS_INDEX_QUEUE" envDefault:""`
	Region            string        `env:"AWS_REGION" envDefault:"us-east-1"`
	WaitTimeSeconds   int32         `env:"EMBED_QUEUE_WAIT_SECONDS" envDefault:"20"`
	VisibilityTimeout int32         `env:"EMBED_QUEUE_VISIBILITY_TIMEOUT" envDefault:"120"`
	MaxMessages       int32         `env:"EMBED_QUEUE_MAX_MESSAGES" envDefault:"10"`
	EmbedTimeout      time.Duration `env:"EMBED_CALL_TIMEOUT" envDefault:"60s"`
}

// Enabled reports whether the embedding worker has a queue to consume.
func (e *EmbedQueueConfig) Enabled() bool {
	return e.QueueURL != ""
}

// RagStorageConfig names the object buckets the embedding core addresses.
type RagStorageConfig struct {
	ChunksBucket        string `env:"S3_RAG_CHUNKS_BUCKET_NAME" envDefault:""`
	ImageInputBucket    string `env:"S3_IMAGE_INPUT_BUCKET_NAME" envDefault:""`
	ConsolidationBucket string `env:"S3_CONSOLIDATION_BUCKET_NAME" envDefault:""`
}

// SchedulerTaskConfig configures the scheduled-task registry and tick.
type SchedulerTaskConfig struct {
	TableName       string        `env:"SCHEDULED_TASKS_TABLE" envDefault:"kb.scheduled_tasks"`
	LogsBucket      string        `env:"SCHEDULED_TASKS_LOGS_BUCKET" envDefault:""`
	DefaultTimeZone string        `env:"SCHEDULED_TASKS_DEFAULT_TZ" envDefault:"UTC"`
	TickInterval    time.Duration `env:"SCHEDULER_TASK_TICK_INTERVAL" envDefault:"1m"`
	BacklogCap      int           `env:"SCHEDULED_TASKS_BACKLOG_CAP" envDefault:"1000"`
	BacklogKeep     int           `env:"SCHEDULED_TASKS_BACKLOG_KEEP" envDefault:"100"`
}

// AgentQueueConfig configures the outbound queue the task dispatcher
// enqueues agent execution requests onto.
type AgentQueueConfig struct {
	QueueURL string `env:"AGENT_QUEUE_URL" envDefault:""`
	Region   string `env:"AWS_REGION" envDefault:"us-east-1"`
}

// Enabled reports whether the task dispatcher has a queue to publish to.
func (a *AgentQueueConfig) Enabled() bool {
	return a.QueueURL != ""
}

// RateLimitConfig bounds how often a single credential can be resolved for
// dispatch, the token-bucket parameters for `taskdispatch`'s per-api-key
// limiter.
type RateLimitConfig struct {
	RequestsPerMinute int `env:"API_KEY_RATE_LIMIT_PER_MIN" envDefault:"60"`
	Burst             int `env:"API_KEY_RATE_LIMIT_BURST" envDefault:"10"`
}

// NewConfig loads configuration from environment variables
func NewConfig(log *slog.Logger) (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	log.Info("configuration loaded",
		slog.String("environment", cfg.Environment),
		slog.Int("port", cfg.ServerPort),
		slog.String("db_host", cfg.Database.Host),
		slog.String("zitadel_domain", cfg.Zitadel.Domain),
	)

	return cfg, nil
}
