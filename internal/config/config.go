package config

import (
	"errors"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the service.
type Config struct {
	ServiceName           string `mapstructure:"SERVICE_NAME"`
	HTTPPort              string `mapstructure:"HTTP_PORT"`
	GRPCPort              string `mapstructure:"GRPC_PORT"`
	PrometheusMetricsPort string `mapstructure:"PROMETHEUS_METRICS_PORT"`

	StorageDriver        string `mapstructure:"STORAGE_DRIVER"`
	MongoURI             string `mapstructure:"MONGO_URI"`
	MongoDatabase        string `mapstructure:"MONGO_DATABASE"`
	MongoUseTransactions bool   `mapstructure:"MONGO_USE_TRANSACTIONS"`

	RedisAddress    string        `mapstructure:"REDIS_ADDRESS"`
	RedisPassword   string        `mapstructure:"REDIS_PASSWORD"`
	RedisDB         int           `mapstructure:"REDIS_DB"`
	ListingCacheTTL time.Duration `mapstructure:"LISTING_CACHE_TTL"`

	NATSURL string `mapstructure:"NATS_URL"`

	MinIOEndpoint  string `mapstructure:"MINIO_ENDPOINT"`
	MinIOAccessKey string `mapstructure:"MINIO_ACCESS_KEY"`
	MinIOSecretKey string `mapstructure:"MINIO_SECRET_KEY"`
	MinIOBucket    string `mapstructure:"MINIO_BUCKET"`
	MinIOUseSSL    bool   `mapstructure:"MINIO_USE_SSL"`

	SemanticSearchURL     string        `mapstructure:"SEMANTIC_SEARCH_URL"`
	SemanticSearchTimeout time.Duration `mapstructure:"SEMANTIC_SEARCH_TIMEOUT"`
	SemanticCacheSize     int           `mapstructure:"SEMANTIC_CACHE_SIZE"`
	SemanticCacheTTL      time.Duration `mapstructure:"SEMANTIC_CACHE_TTL"`

	JWTSecret string `mapstructure:"JWT_SECRET"`

	SMTPHost     string `mapstructure:"SMTP_HOST"`
	SMTPPort     int    `mapstructure:"SMTP_PORT"`
	SMTPEmail    string `mapstructure:"SMTP_EMAIL"`
	SMTPPassword string `mapstructure:"SMTP_PASSWORD"`

	ReconcileInterval time.Duration `mapstructure:"RECONCILE_INTERVAL"`

	OTExporterOTLPEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	LogLevel               string `mapstructure:"LOG_LEVEL"`
	LogFormat              string `mapstructure:"LOG_FORMAT"`
}

const defaultJWTSecret = "change-me-annonce-service"

var defaults = map[string]interface{}{
	"SERVICE_NAME":            "annonce-service",
	"HTTP_PORT":               "8080",
	"GRPC_PORT":               "50052",
	"PROMETHEUS_METRICS_PORT": "9092",

	"STORAGE_DRIVER":         "mongo",
	"MONGO_URI":              "mongodb://localhost:27017",
	"MONGO_DATABASE":         "annonces",
	"MONGO_USE_TRANSACTIONS": false,

	"REDIS_ADDRESS":     "",
	"REDIS_PASSWORD":    "",
	"REDIS_DB":          0,
	"LISTING_CACHE_TTL": "10m",

	"NATS_URL": "",

	"MINIO_ENDPOINT":   "localhost:9000",
	"MINIO_ACCESS_KEY": "minioadmin",
	"MINIO_SECRET_KEY": "minioadmin",
	"MINIO_BUCKET":     "annonce-images",
	"MINIO_USE_SSL":    false,

	"SEMANTIC_SEARCH_URL":     "",
	"SEMANTIC_SEARCH_TIMEOUT": "3s",
	"SEMANTIC_CACHE_SIZE":     512,
	"SEMANTIC_CACHE_TTL":      "1m",

	"JWT_SECRET": defaultJWTSecret,

	"SMTP_HOST":     "smtp.gmail.com",
	"SMTP_PORT":     587,
	"SMTP_EMAIL":    "",
	"SMTP_PASSWORD": "",

	"RECONCILE_INTERVAL": "1h",

	"OTEL_EXPORTER_OTLP_ENDPOINT": "",
	"LOG_LEVEL":                   "info",
	"LOG_FORMAT":                  "json",
}

// LoadConfig reads configuration from environment variables, falling back to defaults.
func LoadConfig() (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the service cannot start with.
func (c *Config) Validate() error {
	switch c.StorageDriver {
	case "mongo":
		if c.MongoURI == "" || c.MongoDatabase == "" {
			return errors.New("config: MONGO_URI and MONGO_DATABASE are required with STORAGE_DRIVER=mongo")
		}
	case "memory":
	default:
		return errors.New("config: STORAGE_DRIVER must be \"mongo\" or \"memory\"")
	}
	if c.JWTSecret == "" {
		return errors.New("config: JWT_SECRET must not be empty")
	}
	return nil
}

// InsecureJWTSecret reports whether the built-in development secret is in use.
func (c *Config) InsecureJWTSecret() bool {
	return c.JWTSecret == defaultJWTSecret
}

// MailerEnabled reports whether SMTP credentials are configured.
func (c *Config) MailerEnabled() bool {
	return c.SMTPEmail != "" && c.SMTPPassword != ""
}
