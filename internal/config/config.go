package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	MinIO    MinIOConfig
	RabbitMQ RabbitMQConfig
	Resolver ResolverConfig
	Archiver ArchiverConfig
	Quota    QuotaConfig
}

type ServerConfig struct {
	Port            int           `envconfig:"API_PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"API_READ_TIMEOUT" default:"10s"`
	WriteTimeout    time.Duration `envconfig:"API_WRITE_TIMEOUT" default:"30s"`
	ShutdownTimeout time.Duration `envconfig:"API_SHUTDOWN_TIMEOUT" default:"10s"`
}

type DatabaseConfig struct {
	Host     string `envconfig:"POSTGRES_HOST" default:"localhost"`
	Port     int    `envconfig:"POSTGRES_PORT" default:"5432"`
	User     string `envconfig:"POSTGRES_USER" default:"tubevault"`
	Password string `envconfig:"POSTGRES_PASSWORD" default:"tubevault"`
	DBName   string `envconfig:"POSTGRES_DB" default:"tubevault"`
	SSLMode  string `envconfig:"POSTGRES_SSLMODE" default:"disable"`
}

func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

type RedisConfig struct {
	Enabled  bool          `envconfig:"REDIS_ENABLED" default:"true"`
	Host     string        `envconfig:"REDIS_HOST" default:"localhost"`
	Port     int           `envconfig:"REDIS_PORT" default:"6379"`
	Password string        `envconfig:"REDIS_PASSWORD" default:""`
	DB       int           `envconfig:"REDIS_DB" default:"0"`
	TTL      time.Duration `envconfig:"REDIS_RECORD_TTL" default:"24h"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type MinIOConfig struct {
	Endpoint       string `envconfig:"MINIO_ENDPOINT" default:"localhost:9000"`
	PublicEndpoint string `envconfig:"MINIO_PUBLIC_ENDPOINT" default:""`
	AccessKey      string `envconfig:"MINIO_ACCESS_KEY" default:"minioadmin"`
	SecretKey      string `envconfig:"MINIO_SECRET_KEY" default:"minioadmin"`
	Bucket         string `envconfig:"MINIO_BUCKET" default:"media-cache"`
	UseSSL         bool   `envconfig:"MINIO_USE_SSL" default:"false"`
}

// RabbitMQConfig configures the archive-event publisher. An empty URL
// disables event publishing.
type RabbitMQConfig struct {
	URL       string `envconfig:"RABBITMQ_URL" default:""`
	QueueName string `envconfig:"RABBITMQ_QUEUE" default:"archive_events"`
}

type ResolverConfig struct {
	BaseURL         string        `envconfig:"RESOLVER_BASE_URL" default:"https://media.savetube.me"`
	DefaultHost     string        `envconfig:"RESOLVER_DEFAULT_HOST" default:"cdn1.savetube.me"`
	HintTimeout     time.Duration `envconfig:"RESOLVER_HINT_TIMEOUT" default:"10s"`
	InfoTimeout     time.Duration `envconfig:"RESOLVER_INFO_TIMEOUT" default:"15s"`
	DownloadTimeout time.Duration `envconfig:"RESOLVER_DOWNLOAD_TIMEOUT" default:"20s"`
	VideoQuality    string        `envconfig:"DEFAULT_VIDEO_QUALITY" default:"720"`
	AudioQuality    string        `envconfig:"DEFAULT_AUDIO_QUALITY" default:"320"`
}

type ArchiverConfig struct {
	TempDir         string        `envconfig:"ARCHIVER_TEMP_DIR" default:"/tmp/tubevault"`
	MaxConcurrent   int           `envconfig:"ARCHIVER_MAX_CONCURRENT" default:"4"`
	TransferTimeout time.Duration `envconfig:"ARCHIVER_TRANSFER_TIMEOUT" default:"300s"`
	UploadTimeout   time.Duration `envconfig:"ARCHIVER_UPLOAD_TIMEOUT" default:"300s"`
	LocalCacheSize  int           `envconfig:"LOCAL_CACHE_SIZE" default:"4096"`
	BlobURLExpiry   time.Duration `envconfig:"BLOB_URL_EXPIRY" default:"6h"`
}

// QuotaConfig controls daily-quota accounting. Timezone names the region
// whose calendar day bounds the usage counters.
type QuotaConfig struct {
	Timezone        string `envconfig:"QUOTA_TIMEZONE" default:"Asia/Kolkata"`
	BootstrapOwner  string `envconfig:"BOOTSTRAP_OWNER" default:"admin"`
	BootstrapLimit  int    `envconfig:"BOOTSTRAP_DAILY_LIMIT" default:"10000"`
	BootstrapExpiry int    `envconfig:"BOOTSTRAP_DAYS_VALID" default:"365"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}
