package config

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/insuredocs/docgen/pkg/logger"
)

// Config holds application configuration
type Config struct {
	Server    ServerConfig
	MongoDB   MongoDBConfig
	Redis     RedisConfig
	MinIO     MinIOConfig
	RateLimit RateLimitConfig
	Render    RenderConfig
	Download  DownloadConfig
	Clients   ClientsConfig
}

type ServerConfig struct {
	Port           string
	Host           string
	Environment    string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxUploadBytes int64
}

// MongoDBConfig selects the record store. An empty URI keeps every
// repository in memory.
type MongoDBConfig struct {
	URI      string
	Database string
	Timeout  time.Duration
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// MinIOConfig selects the blob store. An empty endpoint keeps blobs in
// memory.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
}

type RateLimitConfig struct {
	Enabled       bool
	RPS           float64
	Burst         int
	UseRedis      bool
	WindowSeconds int
}

type RenderConfig struct {
	Strict     bool
	DateLayout string
	CacheSize  int
}

type DownloadConfig struct {
	Secret string
	TTL    time.Duration
}

// ClientsConfig points at a YAML client fixture used when MongoDB is not
// configured.
type ClientsConfig struct {
	FixturePath string
}

// LoadConfig loads configuration from environment variables and .env file
func LoadConfig() (*Config, error) {
	_ = godotenv.Load(".env")

	viper.AutomaticEnv()

	viper.SetDefault("SERVER_PORT", "5010")
	viper.SetDefault("SERVER_HOST", "0.0.0.0")
	viper.SetDefault("SERVER_ENVIRONMENT", "development")
	viper.SetDefault("SERVER_MAX_UPLOAD_MB", 20)
	viper.SetDefault("MONGODB_DATABASE", "docgen")
	viper.SetDefault("MONGODB_TIMEOUT", 10)
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("MINIO_BUCKET", "docgen")
	viper.SetDefault("RATE_LIMIT_ENABLED", false)
	viper.SetDefault("RATE_LIMIT_RPS", 5.0)
	viper.SetDefault("RATE_LIMIT_BURST", 10)
	viper.SetDefault("RATE_LIMIT_USE_REDIS", false)
	viper.SetDefault("RATE_LIMIT_WINDOW_SECONDS", 1)
	viper.SetDefault("RENDER_STRICT", false)
	viper.SetDefault("RENDER_DATE_LAYOUT", "2006-01-02")
	viper.SetDefault("RENDER_CACHE_SIZE", 64)
	viper.SetDefault("DOWNLOAD_TOKEN_TTL", 60)

	cfg := &Config{
		Server: ServerConfig{
			Port:           viper.GetString("SERVER_PORT"),
			Host:           viper.GetString("SERVER_HOST"),
			Environment:    viper.GetString("SERVER_ENVIRONMENT"),
			ReadTimeout:    30 * time.Second,
			WriteTimeout:   30 * time.Second,
			MaxUploadBytes: viper.GetInt64("SERVER_MAX_UPLOAD_MB") << 20,
		},
		MongoDB: MongoDBConfig{
			URI:      viper.GetString("MONGODB_URI"),
			Database: viper.GetString("MONGODB_DATABASE"),
			Timeout:  time.Duration(viper.GetInt("MONGODB_TIMEOUT")) * time.Second,
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		MinIO: MinIOConfig{
			Endpoint:  viper.GetString("MINIO_ENDPOINT"),
			AccessKey: viper.GetString("MINIO_ACCESS_KEY"),
			SecretKey: viper.GetString("MINIO_SECRET_KEY"),
			UseSSL:    viper.GetBool("MINIO_USE_SSL"),
			Bucket:    viper.GetString("MINIO_BUCKET"),
		},
		RateLimit: RateLimitConfig{
			Enabled:       viper.GetBool("RATE_LIMIT_ENABLED"),
			RPS:           viper.GetFloat64("RATE_LIMIT_RPS"),
			Burst:         viper.GetInt("RATE_LIMIT_BURST"),
			UseRedis:      viper.GetBool("RATE_LIMIT_USE_REDIS"),
			WindowSeconds: viper.GetInt("RATE_LIMIT_WINDOW_SECONDS"),
		},
		Render: RenderConfig{
			Strict:     viper.GetBool("RENDER_STRICT"),
			DateLayout: viper.GetString("RENDER_DATE_LAYOUT"),
			CacheSize:  viper.GetInt("RENDER_CACHE_SIZE"),
		},
		Download: DownloadConfig{
			Secret: viper.GetString("DOWNLOAD_TOKEN_SECRET"),
			TTL:    time.Duration(viper.GetInt("DOWNLOAD_TOKEN_TTL")) * time.Minute,
		},
		Clients: ClientsConfig{
			FixturePath: viper.GetString("CLIENT_FIXTURE"),
		},
	}

	if cfg.Download.Secret == "" {
		logger.Warn("DOWNLOAD_TOKEN_SECRET is not set; signed download links are disabled")
	}
	if cfg.MongoDB.URI == "" {
		logger.Warn("MONGODB_URI is not set; templates and documents are kept in memory")
	}

	return cfg, nil
}
