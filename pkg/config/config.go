// Package config loads application configuration from a YAML file with
// WS_* environment-variable overrides, and reads the store connection
// resource that holds the Redis URL.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/wiki-search/pkg/errors"
	"gopkg.in/yaml.v3"
)

// StoreSetupHint is shown when the store connection resource is missing.
const StoreSetupHint = `Create a file called redis_url.txt in resources
For local Redis (no password), use:
redis://localhost:6379`

// Store backends.
const (
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// Config is the top-level application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	Search    SearchConfig    `yaml:"search"`
	Analytics AnalyticsConfig `yaml:"analytics"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// StoreConfig selects the index backend and its lookup policy.
type StoreConfig struct {
	Backend       string        `yaml:"backend"`
	URLFile       string        `yaml:"urlFile"`
	URL           string        `yaml:"url"`
	FixturePath   string        `yaml:"fixturePath"`
	PoolSize      int           `yaml:"poolSize"`
	LookupTimeout time.Duration `yaml:"lookupTimeout"`
	Retry         RetryConfig   `yaml:"retry"`
	Breaker       BreakerConfig `yaml:"breaker"`
}

// RetryConfig controls lookup retries against the store.
type RetryConfig struct {
	MaxAttempts  int           `yaml:"maxAttempts"`
	InitialDelay time.Duration `yaml:"initialDelay"`
	MaxDelay     time.Duration `yaml:"maxDelay"`
}

// BreakerConfig controls the circuit breaker in front of the store.
type BreakerConfig struct {
	FailureThreshold int           `yaml:"failureThreshold"`
	ResetTimeout     time.Duration `yaml:"resetTimeout"`
}

// PostgresConfig holds PostgreSQL connection parameters for the postgres
// backend.
type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// SearchConfig controls how single-term results are fetched and combined.
type SearchConfig struct {
	CombinePolicy        string `yaml:"combinePolicy"`
	MaxConcurrentLookups int    `yaml:"maxConcurrentLookups"`
}

// AnalyticsConfig controls publishing of query events to Kafka.
type AnalyticsConfig struct {
	Enabled    bool     `yaml:"enabled"`
	Brokers    []string `yaml:"brokers"`
	Topic      string   `yaml:"topic"`
	BufferSize int      `yaml:"bufferSize"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics and health server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides on top of the defaults.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		Store: StoreConfig{
			Backend:       BackendRedis,
			URLFile:       "resources/redis_url.txt",
			PoolSize:      10,
			LookupTimeout: 2 * time.Second,
			Retry: RetryConfig{
				MaxAttempts:  3,
				InitialDelay: 100 * time.Millisecond,
				MaxDelay:     2 * time.Second,
			},
			Breaker: BreakerConfig{
				FailureThreshold: 5,
				ResetTimeout:     30 * time.Second,
			},
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "wikisearch",
			User:            "wikisearch",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Search: SearchConfig{
			CombinePolicy:        "sum",
			MaxConcurrentLookups: 4,
		},
		Analytics: AnalyticsConfig{
			Enabled:    false,
			Brokers:    []string{"localhost:9092"},
			Topic:      "search.query-events",
			BufferSize: 1000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Port:    9090,
		},
	}
}

// applyEnvOverrides reads WS_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("WS_STORE_BACKEND"); v != "" {
		cfg.Store.Backend = v
	}
	if v := os.Getenv("WS_STORE_URL_FILE"); v != "" {
		cfg.Store.URLFile = v
	}
	if v := os.Getenv("WS_REDIS_URL"); v != "" {
		cfg.Store.URL = v
	}
	if v := os.Getenv("WS_STORE_FIXTURE"); v != "" {
		cfg.Store.FixturePath = v
	}
	if v := os.Getenv("WS_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("WS_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("WS_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("WS_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("WS_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("WS_SEARCH_COMBINE_POLICY"); v != "" {
		cfg.Search.CombinePolicy = v
	}
	if v := os.Getenv("WS_ANALYTICS_ENABLED"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			cfg.Analytics.Enabled = enabled
		}
	}
	if v := os.Getenv("WS_ANALYTICS_BROKERS"); v != "" {
		cfg.Analytics.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("WS_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("WS_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("WS_METRICS_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Metrics.Port = port
		}
	}
}

func (c *Config) validate() error {
	switch c.Store.Backend {
	case BackendRedis, BackendPostgres:
	case BackendMemory:
		if c.Store.FixturePath == "" {
			return apperrors.Invalidf("store.fixturePath is required for the %s backend", BackendMemory)
		}
	default:
		return apperrors.Invalidf("unknown store backend %q", c.Store.Backend)
	}
	if c.Search.MaxConcurrentLookups < 1 {
		return apperrors.Invalidf("search.maxConcurrentLookups must be positive, got %d", c.Search.MaxConcurrentLookups)
	}
	return nil
}

// RedisURL returns the store URL, taken from the config or env when set and
// otherwise read from the URL file.
func (s StoreConfig) RedisURL() (string, error) {
	if s.URL != "" {
		return s.URL, nil
	}
	return ReadStoreURL(s.URLFile)
}

// ReadStoreURL reads the connection resource at path. The file's lines are
// joined and trimmed. A missing or blank file yields a
// ConfigurationMissingError carrying StoreSetupHint.
func ReadStoreURL(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", apperrors.NewConfigurationMissing(path, StoreSetupHint)
		}
		return "", fmt.Errorf("reading store url file %s: %w", path, err)
	}
	var sb strings.Builder
	for _, line := range strings.Split(string(data), "\n") {
		sb.WriteString(strings.TrimRight(line, "\r"))
	}
	url := strings.TrimSpace(sb.String())
	if url == "" {
		return "", apperrors.NewConfigurationMissing(path, StoreSetupHint)
	}
	return url, nil
}
