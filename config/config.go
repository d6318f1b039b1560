package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	BackendPostgres = "postgres"
	BackendMongo    = "mongo"

	ScanSinkStore  = "store"
	ScanSinkStream = "stream"
)

type Config struct {
	// HTTP server
	Server ServerConfig `mapstructure:"server"`

	// Redirect path behaviour
	Redirect RedirectConfig `mapstructure:"redirect"`

	// PostgreSQL
	Postgres PostgresConfig `mapstructure:"postgres"`

	// MongoDB (alternative backend)
	Mongo MongoConfig `mapstructure:"mongo"`

	// Redis
	Redis RedisConfig `mapstructure:"redis"`

	// NATS
	NATS NATSConfig `mapstructure:"nats"`

	// Prometheus
	Prometheus PrometheusConfig `mapstructure:"prometheus"`

	// Rate limiting on the redirect path
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

type ServerConfig struct {
	Addr        string `mapstructure:"addr"`
	BaseURL     string `mapstructure:"base_url"`
	TokenSecret string `mapstructure:"token_secret"`
	TokenTTL    string `mapstructure:"token_ttl"`
}

type RedirectConfig struct {
	Backend       string `mapstructure:"backend"`
	ScanSink      string `mapstructure:"scan_sink"`
	InsertTimeout string `mapstructure:"insert_timeout"`
	CodeLength    int    `mapstructure:"code_length"`
}

type PostgresConfig struct {
	Host              string `mapstructure:"host"`
	User              string `mapstructure:"user"`
	Password          string `mapstructure:"password"`
	Database          string `mapstructure:"database"`
	Port              int    `mapstructure:"port"`
	SSLMode           string `mapstructure:"sslmode"`
	MaxConns          int32  `mapstructure:"max_conns"`
	MinConns          int32  `mapstructure:"min_conns"`
	MaxConnLifetime   string `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime   string `mapstructure:"max_conn_idle_time"`
	HealthCheckPeriod string `mapstructure:"health_check_period"`
}

type MongoConfig struct {
	URI      string `mapstructure:"uri"`
	Database string `mapstructure:"database"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Disabled bool   `mapstructure:"disabled"`
}

type NATSConfig struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	User        string `mapstructure:"user"`
	Password    string `mapstructure:"password"`
	MonitorPort int    `mapstructure:"monitor_port"`
}

type PrometheusConfig struct {
	Port int `mapstructure:"port"`
}

type RateLimitConfig struct {
	MaxRequests int    `mapstructure:"max_requests"`
	Window      string `mapstructure:"window"`
}

func Load() (*Config, error) {
	// Load local .env for development (ignored when missing).
	if err := godotenv.Load(".env"); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	v := viper.New()

	// Search for config/config.yaml (plus root for overrides).
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// Allow environment variables to override YAML entries.
	v.SetEnvPrefix("")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := bindEnvVars(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects option values the server cannot start with.
func (c *Config) Validate() error {
	switch c.Redirect.Backend {
	case BackendPostgres, BackendMongo:
	default:
		return fmt.Errorf("config: unknown redirect.backend %q", c.Redirect.Backend)
	}
	switch c.Redirect.ScanSink {
	case ScanSinkStore, ScanSinkStream:
	default:
		return fmt.Errorf("config: unknown redirect.scan_sink %q", c.Redirect.ScanSink)
	}
	if _, err := time.ParseDuration(c.Redirect.InsertTimeout); err != nil {
		return fmt.Errorf("config: redirect.insert_timeout: %w", err)
	}
	if _, err := time.ParseDuration(c.Server.TokenTTL); err != nil {
		return fmt.Errorf("config: server.token_ttl: %w", err)
	}
	if _, err := time.ParseDuration(c.RateLimit.Window); err != nil {
		return fmt.Errorf("config: rate_limit.window: %w", err)
	}
	return nil
}

// InsertTimeoutDuration returns the bound on a single scan log write.
func (c RedirectConfig) InsertTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.InsertTimeout)
	return d
}

// TokenTTLDuration returns how long issued API tokens stay valid.
func (c ServerConfig) TokenTTLDuration() time.Duration {
	d, _ := time.ParseDuration(c.TokenTTL)
	return d
}

// WindowDuration returns the fixed window used by the rate limiter.
func (c RateLimitConfig) WindowDuration() time.Duration {
	d, _ := time.ParseDuration(c.Window)
	return d
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.base_url", "http://localhost:8080")
	v.SetDefault("server.token_ttl", "720h")

	v.SetDefault("redirect.backend", BackendPostgres)
	v.SetDefault("redirect.scan_sink", ScanSinkStore)
	v.SetDefault("redirect.insert_timeout", "2s")
	v.SetDefault("redirect.code_length", 8)

	v.SetDefault("mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("mongo.database", "flexqr")

	v.SetDefault("prometheus.port", 9090)

	v.SetDefault("rate_limit.max_requests", 120)
	v.SetDefault("rate_limit.window", "1m")
}

// envAliases maps config keys to the plain env names used by deployments,
// next to the automatic SECTION_KEY form.
var envAliases = [][2]string{
	{"server.addr", "SERVER_ADDR"},
	{"server.base_url", "BASE_URL"},
	{"server.token_secret", "FLEXQR_TOKEN_SECRET"},
	{"server.token_ttl", "FLEXQR_TOKEN_TTL"},

	{"redirect.backend", "REDIRECT_BACKEND"},
	{"redirect.scan_sink", "REDIRECT_SCAN_SINK"},
	{"redirect.insert_timeout", "REDIRECT_INSERT_TIMEOUT"},
	{"redirect.code_length", "REDIRECT_CODE_LENGTH"},

	{"postgres.host", "PG_HOST"},
	{"postgres.user", "PG_USER"},
	{"postgres.password", "PG_PASSWORD"},
	{"postgres.database", "PG_DB"},
	{"postgres.port", "PG_PORT"},
	{"postgres.sslmode", "PG_SSLMODE"},

	{"mongo.uri", "MONGO_URI"},
	{"mongo.database", "MONGO_DB"},

	{"redis.host", "REDIS_HOST"},
	{"redis.port", "REDIS_PORT"},
	{"redis.password", "REDIS_PASSWORD"},
	{"redis.db", "REDIS_DB"},
	{"redis.disabled", "REDIS_DISABLED"},

	{"nats.host", "NATS_HOST"},
	{"nats.port", "NATS_PORT"},
	{"nats.user", "NATS_USER"},
	{"nats.password", "NATS_PASSWORD"},
	{"nats.monitor_port", "NATS_MONITOR_PORT"},

	{"prometheus.port", "PROM_PORT"},
}

func bindEnvVars(v *viper.Viper) error {
	for _, alias := range envAliases {
		if err := v.BindEnv(alias[0], alias[1]); err != nil {
			return fmt.Errorf("config: bind %s: %w", alias[1], err)
		}
	}
	return nil
}
