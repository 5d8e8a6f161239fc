package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Server   ServerConfig
	Worker   WorkerConfig
	Database DatabaseConfig
	Storage  StorageConfig
	Redis    RedisConfig
	RabbitMQ RabbitMQConfig
	Media    MediaConfig
	Legacy   LegacyConfig
}

type ServerConfig struct {
	Port            int           `envconfig:"API_PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"API_READ_TIMEOUT" default:"10s"`
	WriteTimeout    time.Duration `envconfig:"API_WRITE_TIMEOUT" default:"300s"`
	ShutdownTimeout time.Duration `envconfig:"API_SHUTDOWN_TIMEOUT" default:"10s"`
}

type WorkerConfig struct {
	TempDir         string        `envconfig:"WORKER_TEMP_DIR" default:"/tmp/mediavault"`
	MaxRetries      int           `envconfig:"WORKER_MAX_RETRIES" default:"3"`
	ConvertTimeout  time.Duration `envconfig:"WORKER_CONVERT_TIMEOUT" default:"10m"`
	ShutdownTimeout time.Duration `envconfig:"WORKER_SHUTDOWN_TIMEOUT" default:"30s"`
}

type DatabaseConfig struct {
	Host     string `envconfig:"POSTGRES_HOST" default:"localhost"`
	Port     int    `envconfig:"POSTGRES_PORT" default:"5432"`
	User     string `envconfig:"POSTGRES_USER" default:"mediavault"`
	Password string `envconfig:"POSTGRES_PASSWORD" default:"mediavault"`
	DBName   string `envconfig:"POSTGRES_DB" default:"mediavault"`
	SSLMode  string `envconfig:"POSTGRES_SSLMODE" default:"disable"`
}

func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

// StorageConfig configures the S3-compatible object store. The endpoint is
// derived from the account ID through EndpointTemplate, matching how R2
// exposes per-account endpoints. Leaving the credentials empty runs the
// service with storage disabled: every storage operation reports
// ErrStorageUnavailable without a network call.
type StorageConfig struct {
	AccountID        string `envconfig:"STORAGE_ACCOUNT_ID"`
	AccessKeyID      string `envconfig:"STORAGE_ACCESS_KEY_ID"`
	SecretAccessKey  string `envconfig:"STORAGE_SECRET_ACCESS_KEY"`
	Bucket           string `envconfig:"STORAGE_BUCKET" default:"media"`
	EndpointTemplate string `envconfig:"STORAGE_ENDPOINT_TEMPLATE"`
	PublicBaseURL    string `envconfig:"STORAGE_PUBLIC_BASE_URL"`
	UseSSL           bool   `envconfig:"STORAGE_USE_SSL" default:"true"`
}

type RedisConfig struct {
	Addr     string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	Password string `envconfig:"REDIS_PASSWORD"`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

type RabbitMQConfig struct {
	Host     string `envconfig:"RABBITMQ_HOST" default:"localhost"`
	Port     int    `envconfig:"RABBITMQ_PORT" default:"5672"`
	User     string `envconfig:"RABBITMQ_USER" default:"mediavault"`
	Password string `envconfig:"RABBITMQ_PASSWORD" default:"mediavault"`
	VHost    string `envconfig:"RABBITMQ_VHOST" default:"/"`
}

func (c RabbitMQConfig) URL() string {
	return fmt.Sprintf(
		"amqp://%s:%s@%s:%d%s",
		c.User, c.Password, c.Host, c.Port, c.VHost,
	)
}

// MediaConfig tunes delivery behavior.
type MediaConfig struct {
	SignedURLTTL  time.Duration `envconfig:"MEDIA_SIGNED_URL_TTL" default:"1h"`
	URLCacheTTL   time.Duration `envconfig:"MEDIA_URL_CACHE_TTL" default:"30m"`
	MaxUploadSize int64         `envconfig:"MEDIA_MAX_UPLOAD_SIZE" default:"2147483648"`
}

// LegacyConfig points at the pre-migration local uploads directory. Some
// stored references still resolve to files there.
type LegacyConfig struct {
	UploadsRoot string `envconfig:"LEGACY_UPLOADS_ROOT" default:"./uploads"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}
