package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "productapi.yaml"

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// YAML file is optional; missing file is not an error.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV. The YAML file is optional.
func LoadFrom(yamlPath string) (*Config, error) {
	return LoadWithFlags(yamlPath, nil)
}

// LoadWithFlags is LoadFrom with CLI flag overrides applied last.
// A non-nil flags.ConfigPath replaces yamlPath.
func LoadWithFlags(yamlPath string, flags *Flags) (*Config, error) {
	cfg := Defaults()

	if flags != nil && flags.ConfigPath != nil {
		yamlPath = *flags.ConfigPath
	}

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)
	flags.apply(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path comes from operator config
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.Server.Port, "PRODUCTAPI_PORT")
	setString(&cfg.Server.CORSOrigin, "PRODUCTAPI_CORS_ORIGIN")
	setDuration(&cfg.Server.RequestTimeout, "PRODUCTAPI_REQUEST_TIMEOUT")
	setDuration(&cfg.Server.ShutdownTimeout, "PRODUCTAPI_SHUTDOWN_TIMEOUT")

	setString(&cfg.Store.Backend, "PRODUCTAPI_STORE")

	setString(&cfg.Postgres.DSN, "DATABASE_URL")
	setInt32(&cfg.Postgres.MaxConns, "PRODUCTAPI_PG_MAX_CONNS")
	setInt32(&cfg.Postgres.MinConns, "PRODUCTAPI_PG_MIN_CONNS")
	setDuration(&cfg.Postgres.MaxConnLifetime, "PRODUCTAPI_PG_MAX_CONN_LIFETIME")
	setDuration(&cfg.Postgres.MaxConnIdleTime, "PRODUCTAPI_PG_MAX_CONN_IDLE_TIME")
	setDuration(&cfg.Postgres.HealthCheck, "PRODUCTAPI_PG_HEALTH_CHECK")
	setBool(&cfg.Postgres.AutoMigrate, "PRODUCTAPI_PG_AUTO_MIGRATE")

	setBool(&cfg.NATS.Enabled, "PRODUCTAPI_NATS_ENABLED")
	setString(&cfg.NATS.URL, "NATS_URL")
	setString(&cfg.NATS.Stream, "PRODUCTAPI_NATS_STREAM")

	// Cache
	setBool(&cfg.Cache.Enabled, "PRODUCTAPI_CACHE_ENABLED")
	setInt64(&cfg.Cache.L1MaxSizeMB, "PRODUCTAPI_CACHE_L1_SIZE_MB")
	setDuration(&cfg.Cache.L1TTL, "PRODUCTAPI_CACHE_L1_TTL")
	setString(&cfg.Cache.L2Bucket, "PRODUCTAPI_CACHE_L2_BUCKET")
	setDuration(&cfg.Cache.L2TTL, "PRODUCTAPI_CACHE_L2_TTL")

	setString(&cfg.Logging.Level, "PRODUCTAPI_LOG_LEVEL")
	setString(&cfg.Logging.Service, "PRODUCTAPI_LOG_SERVICE")
	setBool(&cfg.Logging.Async, "PRODUCTAPI_LOG_ASYNC")

	setInt(&cfg.Breaker.MaxFailures, "PRODUCTAPI_BREAKER_MAX_FAILURES")
	setDuration(&cfg.Breaker.Timeout, "PRODUCTAPI_BREAKER_TIMEOUT")

	setFloat64(&cfg.Rate.RequestsPerSecond, "PRODUCTAPI_RATE_RPS")
	setInt(&cfg.Rate.Burst, "PRODUCTAPI_RATE_BURST")
	setDuration(&cfg.Rate.CleanupInterval, "PRODUCTAPI_RATE_CLEANUP_INTERVAL")
	setDuration(&cfg.Rate.MaxIdleTime, "PRODUCTAPI_RATE_MAX_IDLE_TIME")

	// Idempotency
	setBool(&cfg.Idempotency.Enabled, "PRODUCTAPI_IDEMPOTENCY_ENABLED")
	setString(&cfg.Idempotency.Bucket, "PRODUCTAPI_IDEMPOTENCY_BUCKET")
	setDuration(&cfg.Idempotency.TTL, "PRODUCTAPI_IDEMPOTENCY_TTL")

	// OpenTelemetry
	setBool(&cfg.OTEL.Enabled, "PRODUCTAPI_OTEL_ENABLED")
	setString(&cfg.OTEL.Endpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
	setBool(&cfg.OTEL.Insecure, "PRODUCTAPI_OTEL_INSECURE")
	setString(&cfg.OTEL.ServiceName, "OTEL_SERVICE_NAME")
}

// validate checks that required fields are set.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server.port is required")
	}
	if cfg.Server.RequestTimeout <= 0 {
		return errors.New("server.request_timeout must be > 0")
	}
	if cfg.Server.ShutdownTimeout <= 0 {
		return errors.New("server.shutdown_timeout must be > 0")
	}
	switch cfg.Store.Backend {
	case StoreMemory:
	case StorePostgres:
		if cfg.Postgres.DSN == "" {
			return errors.New("postgres.dsn is required")
		}
		if cfg.Postgres.MaxConns < 1 {
			return errors.New("postgres.max_conns must be >= 1")
		}
	default:
		return fmt.Errorf("store.backend must be %q or %q", StoreMemory, StorePostgres)
	}
	if cfg.NATS.Enabled && cfg.NATS.URL == "" {
		return errors.New("nats.url is required")
	}
	if cfg.Cache.Enabled && cfg.Cache.L1MaxSizeMB < 1 {
		return errors.New("cache.l1_max_size_mb must be >= 1")
	}
	if cfg.Breaker.MaxFailures < 1 {
		return errors.New("breaker.max_failures must be >= 1")
	}
	if cfg.Rate.RequestsPerSecond <= 0 {
		return errors.New("rate.requests_per_second must be > 0")
	}
	if cfg.Rate.Burst < 1 {
		return errors.New("rate.burst must be >= 1")
	}
	if cfg.Rate.CleanupInterval <= 0 {
		return errors.New("rate.cleanup_interval must be > 0")
	}
	if cfg.Rate.MaxIdleTime <= 0 {
		return errors.New("rate.max_idle_time must be > 0")
	}
	if cfg.Idempotency.Enabled && cfg.Idempotency.TTL <= 0 {
		return errors.New("idempotency.ttl must be > 0")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt32(dst *int32, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 32); err == nil {
			*dst = int32(n)
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
