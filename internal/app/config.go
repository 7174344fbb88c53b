package app

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/yungbote/dealwatch-backend/internal/data/db"
	"github.com/yungbote/dealwatch-backend/internal/ingest"
	"github.com/yungbote/dealwatch-backend/internal/observability"
	"github.com/yungbote/dealwatch-backend/internal/platform/envutil"
	"github.com/yungbote/dealwatch-backend/internal/platform/logger"
)

type CacheConfig struct {
	Backend   string
	RedisAddr string
	Capacity  int
	TTL       time.Duration
	Namespace string
}

type AlertsConfig struct {
	RedisAddr string
	Channel   string
}

type Config struct {
	LogMode     string
	AutoMigrate bool
	DB          db.Config
	Otel        observability.OtelConfig
	Kafka       ingest.KafkaConfig
	Ingest      ingest.Config
	Cache       CacheConfig
	Alerts      AlertsConfig

	TrackedLeads []string
	FilingsPath  string
	MetricsAddr  string
}

// engineFile is the optional YAML named by DEALWATCH_CONFIG. Environment
// variables override anything it sets.
type engineFile struct {
	TrackedLeads []string `yaml:"tracked_leads"`
	FilingsPath  string   `yaml:"filings_path"`
	Worker       struct {
		Concurrency  int     `yaml:"concurrency"`
		RatePerSec   float64 `yaml:"rate_per_sec"`
		Burst        int     `yaml:"burst"`
		MaxAttempts  int     `yaml:"max_attempts"`
		RetryBackoff string  `yaml:"retry_backoff"`
	} `yaml:"worker"`
	Cache struct {
		Capacity int    `yaml:"capacity"`
		TTL      string `yaml:"ttl"`
	} `yaml:"cache"`
}

func loadEngineFile(path string) (engineFile, error) {
	var f engineFile
	path = strings.TrimSpace(path)
	if path == "" {
		return f, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return f, fmt.Errorf("read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return f, fmt.Errorf("parse %s: %w", path, err)
	}
	return f, nil
}

func parseDurationOr(s string, def time.Duration) time.Duration {
	if d, err := time.ParseDuration(strings.TrimSpace(s)); err == nil && d > 0 {
		return d
	}
	return def
}

func orInt(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}

// LoadConfig reads .env (when present), the engine file, then the environment.
func LoadConfig(log *logger.Logger) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Warn("failed to load .env", "error", err)
	}

	file, err := loadEngineFile(os.Getenv("DEALWATCH_CONFIG"))
	if err != nil {
		return Config{}, err
	}

	tracked := envutil.CSV("TRACKED_LEADS")
	if len(tracked) == 0 {
		tracked = file.TrackedLeads
	}

	cfg := Config{
		LogMode:     envutil.String("LOG_MODE", "development"),
		AutoMigrate: envutil.Bool("DB_AUTO_MIGRATE", true),
		DB: db.Config{
			Driver:           envutil.String("DB_DRIVER", db.DriverPostgres),
			PostgresHost:     envutil.String("POSTGRES_HOST", "localhost"),
			PostgresPort:     envutil.String("POSTGRES_PORT", "5432"),
			PostgresUser:     envutil.String("POSTGRES_USER", "postgres"),
			PostgresPassword: envutil.String("POSTGRES_PASSWORD", ""),
			PostgresName:     envutil.String("POSTGRES_NAME", "dealwatch"),
			PostgresSSLMode:  envutil.String("POSTGRES_SSLMODE", "disable"),
			SQLitePath:       envutil.String("SQLITE_PATH", "dealwatch.db"),
			MaxOpenConns:     envutil.Int("DB_MAX_OPEN_CONNS", 20),
			MaxIdleConns:     envutil.Int("DB_MAX_IDLE_CONNS", 10),
			ConnMaxLifetime:  envutil.Duration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
		},
		Otel: observability.OtelConfig{
			Enabled:     envutil.Bool("OTEL_ENABLED", false),
			ServiceName: envutil.String("OTEL_SERVICE_NAME", "dealwatch"),
			Environment: envutil.String("OTEL_ENVIRONMENT", "development"),
			Version:     envutil.String("OTEL_SERVICE_VERSION", ""),
			Endpoint:    envutil.String("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			Headers:     observability.ParseHeaders(envutil.String("OTEL_EXPORTER_OTLP_HEADERS", "")),
			Insecure:    envutil.Bool("OTEL_EXPORTER_OTLP_INSECURE", false),
			SampleRatio: envutil.Float("OTEL_SAMPLE_RATIO", 1.0),
		},
		Kafka: ingest.KafkaConfig{
			Brokers:     envutil.String("KAFKA_BROKERS", "localhost:9092"),
			GroupID:     envutil.String("KAFKA_GROUP_ID", "dealwatch-resolver"),
			Topic:       envutil.String("KAFKA_TOPIC", "deal-candidates"),
			PollTimeout: envutil.Duration("KAFKA_POLL_TIMEOUT", time.Second),
		},
		Ingest: ingest.Config{
			Concurrency:  envutil.Int("WORKER_CONCURRENCY", orInt(file.Worker.Concurrency, 4)),
			RatePerSec:   envutil.Float("WORKER_RATE_PER_SEC", file.Worker.RatePerSec),
			Burst:        envutil.Int("WORKER_BURST", file.Worker.Burst),
			MaxAttempts:  envutil.Int("WORKER_MAX_ATTEMPTS", orInt(file.Worker.MaxAttempts, 3)),
			RetryBackoff: envutil.Duration("WORKER_RETRY_BACKOFF", parseDurationOr(file.Worker.RetryBackoff, 100*time.Millisecond)),
		},
		Cache: CacheConfig{
			Backend:   envutil.String("SEEN_CACHE_BACKEND", "memory"),
			RedisAddr: envutil.String("REDIS_ADDR", ""),
			Capacity:  envutil.Int("SEEN_CACHE_CAPACITY", orInt(file.Cache.Capacity, 100_000)),
			TTL:       envutil.Duration("SEEN_CACHE_TTL", parseDurationOr(file.Cache.TTL, 24*time.Hour)),
			Namespace: envutil.String("SEEN_CACHE_NAMESPACE", "dealwatch:seen"),
		},
		Alerts: AlertsConfig{
			RedisAddr: envutil.String("ALERTS_REDIS_ADDR", envutil.String("REDIS_ADDR", "")),
			Channel:   envutil.String("ALERTS_CHANNEL", "dealwatch.alerts"),
		},
		TrackedLeads: tracked,
		FilingsPath:  envutil.String("FILINGS_PATH", file.FilingsPath),
		MetricsAddr:  envutil.String("METRICS_ADDR", ""),
	}
	return cfg, nil
}
