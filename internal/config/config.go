package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the ResuMatch server.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Storage  StorageConfig
	Scoring  ScoringConfig
	Ingest   IngestConfig
}

type ServerConfig struct {
	Port            int
	Env             string
	RateLimitPerMin int
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	URL string
}

// StorageConfig configures the S3 bucket that holds uploaded resumes.
// Endpoint is only set when pointing at a non-AWS S3 implementation.
type StorageConfig struct {
	Region     string
	Bucket     string
	AccessKey  string
	SecretKey  string
	Endpoint   string
	PresignTTL time.Duration
}

// ScoringConfig configures the external ML scoring service. Drive batches get
// a longer timeout because the scorer fetches the file itself.
type ScoringConfig struct {
	BaseURL       string
	UploadTimeout time.Duration
	DriveTimeout  time.Duration
}

// IngestConfig sizes the dispatcher pool. TaskTimeout bounds one analysis
// task end to end, including blob and Drive I/O; it must exceed the longest
// scoring timeout or tasks get cut off mid-call.
type IngestConfig struct {
	Workers     int
	QueueSize   int
	TaskTimeout time.Duration
}

// Load reads configuration from environment variables and returns a validated Config.
// Returns an error with a descriptive message if any required value is missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:            envInt("RESUMATCH_PORT", 8080),
			Env:             envString("RESUMATCH_ENV", "development"),
			RateLimitPerMin: envInt("RATE_LIMIT_PER_MINUTE", 60),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		Storage: StorageConfig{
			Region:     envString("AWS_REGION", "us-east-1"),
			Bucket:     os.Getenv("S3_BUCKET"),
			AccessKey:  os.Getenv("AWS_ACCESS_KEY_ID"),
			SecretKey:  os.Getenv("AWS_SECRET_ACCESS_KEY"),
			Endpoint:   os.Getenv("S3_ENDPOINT"),
			PresignTTL: envDuration("S3_PRESIGN_TTL", time.Hour),
		},
		Scoring: ScoringConfig{
			BaseURL:       os.Getenv("SCORING_BASE_URL"),
			UploadTimeout: envDurationSecs("SCORING_UPLOAD_TIMEOUT_SECS", 120*time.Second),
			DriveTimeout:  envDurationSecs("SCORING_DRIVE_TIMEOUT_SECS", 180*time.Second),
		},
		Ingest: IngestConfig{
			Workers:     envInt("INGEST_WORKERS", 4),
			QueueSize:   envInt("INGEST_QUEUE_SIZE", 256),
			TaskTimeout: envDurationSecs("INGEST_TASK_TIMEOUT_SECS", 300*time.Second),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if c.Storage.Bucket == "" {
		return fmt.Errorf("S3_BUCKET is required")
	}

	if c.Scoring.BaseURL == "" {
		return fmt.Errorf("SCORING_BASE_URL is required")
	}
	if !strings.HasPrefix(c.Scoring.BaseURL, "http://") && !strings.HasPrefix(c.Scoring.BaseURL, "https://") {
		return fmt.Errorf("SCORING_BASE_URL must start with http:// or https://, got %q", c.Scoring.BaseURL)
	}

	if c.Ingest.Workers < 1 {
		return fmt.Errorf("INGEST_WORKERS must be at least 1, got %d", c.Ingest.Workers)
	}
	if c.Ingest.TaskTimeout <= c.Scoring.DriveTimeout {
		return fmt.Errorf("INGEST_TASK_TIMEOUT_SECS must exceed SCORING_DRIVE_TIMEOUT_SECS (%s), got %s",
			c.Scoring.DriveTimeout, c.Ingest.TaskTimeout)
	}

	return nil
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}

func envDurationSecs(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	secs, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return time.Duration(secs) * time.Second
}
