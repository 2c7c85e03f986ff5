package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Queue        QueueConfig
	Analysis     AnalysisConfig
	Logger       LoggerConfig
	Notification NotificationConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	MetricsPort           string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// QueueConfig configures the triage event stream and its consumer group.
type QueueConfig struct {
	Stream               string
	Group                string
	ConsumerName         string
	Concurrency          int
	EnqueueTimeoutMS     int
	BlockTimeoutMS       int
	VisibilityTimeoutSec int
	ClaimIntervalSec     int
	MaxDeliveries        int
}

// AnalysisConfig configures the external classification provider and the
// retry policy around it.
type AnalysisConfig struct {
	BaseURL             string
	RequestTimeoutSec   int
	MaxAttempts         int
	RetryInitialDelayMS int
	RetryMaxDelaySec    int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// NotificationConfig holds stub notification endpoints.
type NotificationConfig struct {
	EmailFrom  string
	WebhookURL string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "worker"
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "ticket-triage"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			MetricsPort:           getEnv("APP_METRICS_PORT", "9090"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Queue: QueueConfig{
			Stream:               getEnv("TRIAGE_STREAM", "triage:events"),
			Group:                getEnv("TRIAGE_GROUP", "triage-workers"),
			ConsumerName:         getEnv("TRIAGE_CONSUMER_NAME", hostname),
			Concurrency:          getEnvAsInt("TRIAGE_CONCURRENCY", 4),
			EnqueueTimeoutMS:     getEnvAsInt("TRIAGE_ENQUEUE_TIMEOUT_MS", 2000),
			BlockTimeoutMS:       getEnvAsInt("TRIAGE_BLOCK_TIMEOUT_MS", 5000),
			VisibilityTimeoutSec: getEnvAsInt("TRIAGE_VISIBILITY_TIMEOUT_SECONDS", 120),
			ClaimIntervalSec:     getEnvAsInt("TRIAGE_CLAIM_INTERVAL_SECONDS", 30),
			MaxDeliveries:        getEnvAsInt("TRIAGE_MAX_DELIVERIES", 5),
		},
		Analysis: AnalysisConfig{
			BaseURL:             getEnv("ANALYSIS_BASE_URL", "http://127.0.0.1:8090"),
			RequestTimeoutSec:   getEnvAsInt("ANALYSIS_REQUEST_TIMEOUT_SECONDS", 15),
			MaxAttempts:         getEnvAsInt("ANALYSIS_MAX_ATTEMPTS", 4),
			RetryInitialDelayMS: getEnvAsInt("ANALYSIS_RETRY_INITIAL_DELAY_MS", 500),
			RetryMaxDelaySec:    getEnvAsInt("ANALYSIS_RETRY_MAX_DELAY_SECONDS", 10),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Notification: NotificationConfig{
			EmailFrom:  getEnv("NOTIFY_EMAIL_FROM", "noreply@example.com"),
			WebhookURL: getEnv("NOTIFY_WEBHOOK_URL", ""),
		},
	}

	if cfg.Queue.Concurrency <= 0 {
		cfg.Queue.Concurrency = 1
	}
	if cfg.Analysis.MaxAttempts <= 0 {
		cfg.Analysis.MaxAttempts = 1
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// MetricsAddr returns the bind address for the worker metrics listener.
func (a AppConfig) MetricsAddr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.MetricsPort)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// EnqueueTimeout bounds the synchronous XADD on the request path.
func (q QueueConfig) EnqueueTimeout() time.Duration {
	return time.Duration(q.EnqueueTimeoutMS) * time.Millisecond
}

// BlockTimeout bounds each XREADGROUP call.
func (q QueueConfig) BlockTimeout() time.Duration {
	return time.Duration(q.BlockTimeoutMS) * time.Millisecond
}

// VisibilityTimeout is the idle time after which a pending entry is
// considered abandoned and may be claimed by another consumer.
func (q QueueConfig) VisibilityTimeout() time.Duration {
	return time.Duration(q.VisibilityTimeoutSec) * time.Second
}

// ClaimInterval is how often the consumer scans for abandoned entries.
func (q QueueConfig) ClaimInterval() time.Duration {
	return time.Duration(q.ClaimIntervalSec) * time.Second
}

// RequestTimeout bounds a single analysis call.
func (a AnalysisConfig) RequestTimeout() time.Duration {
	return time.Duration(a.RequestTimeoutSec) * time.Second
}

// RetryInitialDelay is the first backoff interval.
func (a AnalysisConfig) RetryInitialDelay() time.Duration {
	return time.Duration(a.RetryInitialDelayMS) * time.Millisecond
}

// RetryMaxDelay caps the backoff interval.
func (a AnalysisConfig) RetryMaxDelay() time.Duration {
	return time.Duration(a.RetryMaxDelaySec) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}
