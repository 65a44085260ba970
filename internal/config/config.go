package config

import (
	"time"

	"github.com/Hamhunter23/verifi-data-agent/internal/ailink"
)

// Config represents the complete application configuration.
// Values are layered: built-in defaults, then the optional user config file,
// then VERIFI_* environment variables, then runtime overrides.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Store       StoreConfig       `mapstructure:"store"`
	Cache       CacheConfig       `mapstructure:"cache"`
	Quota       QuotaConfig       `mapstructure:"quota"`
	Dispatch    DispatchConfig    `mapstructure:"dispatch"`
	Interpreter InterpreterConfig `mapstructure:"interpreter"`
	AILink      ailink.Config     `mapstructure:"ailink"`
	Crypto      CryptoConfig      `mapstructure:"crypto"`
	Logging     LoggingConfig     `mapstructure:"logging"`
	Metrics     MetricsConfig     `mapstructure:"metrics"`
	Agent       AgentConfig       `mapstructure:"agent"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// StoreConfig selects the record cache backend.
//
// Driver is one of "memory", "libsql" or "redis". Path/URL/AuthToken apply to
// libsql (local file or Turso), the Redis* fields to redis.
type StoreConfig struct {
	Driver        string `mapstructure:"driver"`
	Path          string `mapstructure:"path"`
	URL           string `mapstructure:"url"`
	AuthToken     string `mapstructure:"auth_token"`
	RedisAddr     string `mapstructure:"redis_addr"`
	RedisDB       int    `mapstructure:"redis_db"`
	RedisPassword string `mapstructure:"redis_password"`
}

// CacheConfig contains the record cache TTL. Zero disables caching.
type CacheConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

// QuotaConfig bounds direct structured requests per requester.
type QuotaConfig struct {
	Threshold int           `mapstructure:"threshold"`
	Window    time.Duration `mapstructure:"window"`
}

// DispatchConfig bounds a single handler invocation.
type DispatchConfig struct {
	HandlerTimeout time.Duration `mapstructure:"handler_timeout"`
}

// InterpreterConfig controls the free-text interpretation call.
type InterpreterConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
	// Role is looked up in ailink.routing to select a provider.
	Role  string `mapstructure:"role"`
	Model string `mapstructure:"model"`
}

// CryptoConfig configures the CoinGecko price source.
type CryptoConfig struct {
	BaseURL           string        `mapstructure:"base_url"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Timeout           time.Duration `mapstructure:"timeout"`
	DefaultCurrency   string        `mapstructure:"default_currency"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	// Valid values: trace, debug, info, warn, error
	Level string `mapstructure:"level"`

	// Valid values: SIMPLE, STRUCTURED
	Profile string `mapstructure:"profile"`
}

// MetricsConfig contains Prometheus metrics configuration
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`

	// Port is the dedicated Prometheus exporter port.
	Port int `mapstructure:"port"`
}

// AgentConfig names this agent in health reports.
type AgentConfig struct {
	Name string `mapstructure:"name"`
}
