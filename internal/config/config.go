package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds application level configuration loaded from environment variables.
type Config struct {
	ServerPort  string
	PostgresDSN string
	RedisAddr   string
	RedisDB     int
	RedisPass   string
	JWTSecret   string
	SwaggerHost string

	// Upload policy.
	MaxUploadBytes int64

	// Listing.
	DefaultPageSize int
	NoteCacheTTL    time.Duration

	// Sessions.
	SessionTTL time.Duration

	// Per-call deadlines for DB/session lookups and object storage writes.
	DBTimeout      time.Duration
	StorageTimeout time.Duration

	// S3 / MinIO. When Bucket is empty the server falls back to in-memory
	// object storage (local development only).
	S3Region    string
	S3Endpoint  string
	S3Bucket    string
	S3AccessKey string
	S3SecretKey string
}

// Load builds Config from environment with sensible defaults.
func Load() *Config {
	return &Config{
		ServerPort:  getEnv("SERVER_PORT", "8080"),
		PostgresDSN: getEnv("POSTGRES_DSN", "host=localhost user=postgres password=postgres dbname=notesu port=5432 sslmode=disable"),
		RedisAddr:   getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:     getEnvInt("REDIS_DB", 0),
		RedisPass:   os.Getenv("REDIS_PASSWORD"),
		JWTSecret:   getEnv("JWT_SECRET", "change-me"),
		SwaggerHost: os.Getenv("SWAGGER_HOST"),

		MaxUploadBytes: getEnvInt64("MAX_UPLOAD_BYTES", 25<<20),

		DefaultPageSize: getEnvInt("PAGE_SIZE", 20),
		NoteCacheTTL:    getEnvDuration("NOTE_CACHE_TTL", 60*time.Second),

		SessionTTL: getEnvDuration("SESSION_TTL", 7*24*time.Hour),

		DBTimeout:      getEnvDuration("DB_TIMEOUT", 5*time.Second),
		StorageTimeout: getEnvDuration("STORAGE_TIMEOUT", 30*time.Second),

		S3Region:    getEnv("S3_REGION", "us-east-1"),
		S3Endpoint:  os.Getenv("S3_ENDPOINT"),
		S3Bucket:    os.Getenv("S3_BUCKET"),
		S3AccessKey: os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey: os.Getenv("S3_SECRET_KEY"),
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvInt64(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseInt(v, 10, 64); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			return parsed
		}
	}
	return def
}
