package config

import (
	"fmt"
	"net/url"
	"time"

	pkgconfig "github.com/utafrali/CosmeticsGo/pkg/config"
	"github.com/utafrali/CosmeticsGo/pkg/database"
	"github.com/utafrali/CosmeticsGo/pkg/httpclient"
	"github.com/utafrali/CosmeticsGo/pkg/tracing"
)

// Catalog store backends.
const (
	StoreMemory        = "memory"
	StorePostgres      = "postgres"
	StoreElasticsearch = "elasticsearch"
)

// Config holds all configuration for the storefront service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort           int      `env:"STOREFRONT_HTTP_PORT" envDefault:"8020"`
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`

	// Catalog store selection (memory, postgres or elasticsearch)
	CatalogStore       string `env:"CATALOG_STORE" envDefault:"memory"`
	CatalogFixturePath string `env:"CATALOG_FIXTURE_PATH" envDefault:"fixtures/catalog.json"`
	// SeedCatalog loads the fixture into postgres or elasticsearch at startup.
	SeedCatalog bool `env:"CATALOG_SEED" envDefault:"false"`

	// Product fetch caps
	SearchFetchLimit int `env:"SEARCH_FETCH_LIMIT" envDefault:"1000"`
	BrowseFetchLimit int `env:"BROWSE_FETCH_LIMIT" envDefault:"500"`

	// PostgreSQL
	PostgresHost string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser string `env:"POSTGRES_USER" envDefault:"storefront"`
	PostgresPass string `env:"POSTGRES_PASSWORD" envDefault:"storefront_secret"`
	PostgresDB   string `env:"STOREFRONT_DB_NAME" envDefault:"storefront_db"`
	PostgresSSL  string `env:"POSTGRES_SSL_MODE" envDefault:"disable"`

	// Database pool
	DBMaxConns            int32 `env:"DB_MAX_CONNS" envDefault:"20"`
	DBMinConns            int32 `env:"DB_MIN_CONNS" envDefault:"2"`
	DBMaxConnLifetimeMins int   `env:"DB_MAX_CONN_LIFETIME_MINUTES" envDefault:"60"`
	DBMaxConnIdleTimeMins int   `env:"DB_MAX_CONN_IDLE_TIME_MINUTES" envDefault:"30"`

	// Elasticsearch
	ElasticsearchURL         string `env:"ELASTICSEARCH_URL" envDefault:"http://localhost:9200"`
	ElasticsearchIndexPrefix string `env:"ELASTICSEARCH_INDEX_PREFIX" envDefault:"cosmetics"`

	// Redis lookup cache
	RedisEnabled          bool   `env:"REDIS_ENABLED" envDefault:"false"`
	RedisHost             string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort             int    `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword         string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB               int    `env:"REDIS_DB" envDefault:"0"`
	LookupCacheTTLSeconds int    `env:"LOOKUP_CACHE_TTL_SECONDS" envDefault:"300"`

	// Page sessions
	SessionIdleTTLMinutes      int `env:"SESSION_IDLE_TTL_MINUTES" envDefault:"30"`
	SessionSweepIntervalSecond int `env:"SESSION_SWEEP_INTERVAL_SECONDS" envDefault:"60"`

	// Kafka
	KafkaBrokers         []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`
	AnalyticsEnabled     bool     `env:"ANALYTICS_ENABLED" envDefault:"false"`
	CatalogEventsEnabled bool     `env:"CATALOG_EVENTS_ENABLED" envDefault:"false"`
	KafkaConsumerGroup   string   `env:"KAFKA_CONSUMER_GROUP" envDefault:"storefront-service"`

	// Collaborators
	CartServiceURL  string `env:"CART_SERVICE_URL" envDefault:"http://localhost:8002"`
	OrderServiceURL string `env:"ORDER_SERVICE_URL" envDefault:"http://localhost:8003"`

	// Circuit breaker settings for collaborator calls
	CBMaxRequests  uint32  `env:"CB_MAX_REQUESTS" envDefault:"1"`
	CBInterval     int     `env:"CB_INTERVAL_SECONDS" envDefault:"60"`
	CBTimeout      int     `env:"CB_TIMEOUT_SECONDS" envDefault:"30"`
	CBFailureRatio float64 `env:"CB_FAILURE_RATIO" envDefault:"0.5"`
	CBMinRequests  uint32  `env:"CB_MIN_REQUESTS" envDefault:"5"`

	// OpenTelemetry
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`

	// Slow query logging
	SlowQueryThresholdMs int `env:"LOG_SLOW_QUERY_MS" envDefault:"500"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load storefront config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}

	switch c.CatalogStore {
	case StoreMemory:
		if c.CatalogFixturePath == "" {
			return fmt.Errorf("CATALOG_FIXTURE_PATH is required for the memory store")
		}
	case StorePostgres:
		if c.PostgresHost == "" {
			return fmt.Errorf("POSTGRES_HOST is required")
		}
		if c.PostgresUser == "" {
			return fmt.Errorf("POSTGRES_USER is required")
		}
	case StoreElasticsearch:
		if _, err := url.ParseRequestURI(c.ElasticsearchURL); err != nil {
			return fmt.Errorf("invalid ELASTICSEARCH_URL %q: %w", c.ElasticsearchURL, err)
		}
	default:
		return fmt.Errorf("CATALOG_STORE must be one of memory, postgres, elasticsearch, got %q", c.CatalogStore)
	}

	if c.SearchFetchLimit < 1 || c.SearchFetchLimit > 1000 {
		return fmt.Errorf("SEARCH_FETCH_LIMIT must be between 1 and 1000, got %d", c.SearchFetchLimit)
	}
	if c.BrowseFetchLimit < 1 || c.BrowseFetchLimit > 1000 {
		return fmt.Errorf("BROWSE_FETCH_LIMIT must be between 1 and 1000, got %d", c.BrowseFetchLimit)
	}
	if c.LookupCacheTTLSeconds < 0 {
		return fmt.Errorf("LOOKUP_CACHE_TTL_SECONDS must not be negative, got %d", c.LookupCacheTTLSeconds)
	}
	if c.SessionIdleTTLMinutes < 1 {
		return fmt.Errorf("SESSION_IDLE_TTL_MINUTES must be positive, got %d", c.SessionIdleTTLMinutes)
	}
	if c.SessionSweepIntervalSecond < 1 {
		return fmt.Errorf("SESSION_SWEEP_INTERVAL_SECONDS must be positive, got %d", c.SessionSweepIntervalSecond)
	}
	if (c.AnalyticsEnabled || c.CatalogEventsEnabled) && len(c.KafkaBrokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS is required")
	}
	if c.OTELSampleRate < 0 || c.OTELSampleRate > 1.0 {
		return fmt.Errorf("OTEL_SAMPLE_RATE must be between 0.0 and 1.0, got %f", c.OTELSampleRate)
	}
	for name, rawURL := range map[string]string{
		"CART_SERVICE_URL":  c.CartServiceURL,
		"ORDER_SERVICE_URL": c.OrderServiceURL,
	} {
		if rawURL == "" {
			return fmt.Errorf("%s is required", name)
		}
		if _, err := url.ParseRequestURI(rawURL); err != nil {
			return fmt.Errorf("invalid %s %q: %w", name, rawURL, err)
		}
	}
	return nil
}

// Postgres returns the pool configuration for the postgres catalog store.
func (c *Config) Postgres() database.PostgresConfig {
	return database.PostgresConfig{
		Host:            c.PostgresHost,
		Port:            c.PostgresPort,
		User:            c.PostgresUser,
		Password:        c.PostgresPass,
		DBName:          c.PostgresDB,
		SSLMode:         c.PostgresSSL,
		MaxConns:        c.DBMaxConns,
		MinConns:        c.DBMinConns,
		MaxConnLifetime: time.Duration(c.DBMaxConnLifetimeMins) * time.Minute,
		MaxConnIdleTime: time.Duration(c.DBMaxConnIdleTimeMins) * time.Minute,
	}
}

// Redis returns the connection configuration for the lookup cache.
func (c *Config) Redis() database.RedisConfig {
	return database.RedisConfig{
		Host:     c.RedisHost,
		Port:     c.RedisPort,
		Password: c.RedisPassword,
		DB:       c.RedisDB,
	}
}

// CircuitBreaker returns the breaker settings for a collaborator.
func (c *Config) CircuitBreaker(name string) httpclient.CircuitBreakerConfig {
	return httpclient.CircuitBreakerConfig{
		Name:         name,
		MaxRequests:  c.CBMaxRequests,
		Interval:     time.Duration(c.CBInterval) * time.Second,
		Timeout:      time.Duration(c.CBTimeout) * time.Second,
		FailureRatio: c.CBFailureRatio,
		MinRequests:  c.CBMinRequests,
	}
}

// Tracing returns the OpenTelemetry configuration.
func (c *Config) Tracing(serviceName string) tracing.Config {
	tc := tracing.DefaultConfig(serviceName)
	tc.Environment = c.Environment
	tc.OTLPEndpoint = c.OTELEndpoint
	tc.SampleRate = c.OTELSampleRate
	tc.Enabled = c.OTELEnabled
	return tc
}

// LookupCacheTTL returns the lookup cache TTL. Zero disables caching.
func (c *Config) LookupCacheTTL() time.Duration {
	return time.Duration(c.LookupCacheTTLSeconds) * time.Second
}

// SessionIdleTTL returns how long an untouched page session survives.
func (c *Config) SessionIdleTTL() time.Duration {
	return time.Duration(c.SessionIdleTTLMinutes) * time.Minute
}

// SessionSweepInterval returns how often idle sessions are evicted.
func (c *Config) SessionSweepInterval() time.Duration {
	return time.Duration(c.SessionSweepIntervalSecond) * time.Second
}
