// Package config provides centralized configuration management
// using Viper for configuration loading and validation
package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/nutriplan/engine/internal/domain/pricing"
)

// EnvPrefix prefixes every environment override, e.g. NUTRIPLAN_SERVER_PORT
const EnvPrefix = "NUTRIPLAN"

// Config holds all application configuration
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Server     ServerConfig     `mapstructure:"server"`
	Admin      AdminConfig      `mapstructure:"admin"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Pricing    PricingConfig    `mapstructure:"pricing"`
	Shopping   ShoppingConfig   `mapstructure:"shopping"`
	Nutrition  NutritionConfig  `mapstructure:"nutrition"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
}

// AppConfig contains application-level configuration
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	Debug       bool   `mapstructure:"debug"`
	LogLevel    string `mapstructure:"log_level"`
	LogFormat   string `mapstructure:"log_format"`
}

// ServerConfig contains the public API server configuration
type ServerConfig struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	RequestTimeout    time.Duration `mapstructure:"request_timeout"`
	MaxHeaderBytes    int           `mapstructure:"max_header_bytes"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"`
	EnableCORS        bool          `mapstructure:"enable_cors"`
	AllowedOrigins    []string      `mapstructure:"allowed_origins"`
	EnableCompression bool          `mapstructure:"enable_compression"`
	EnableHTTP2       bool          `mapstructure:"enable_http2"`
	// RateLimitPerSec of zero disables request rate limiting
	RateLimitPerSec float64 `mapstructure:"rate_limit_per_sec"`
	RateLimitBurst  int     `mapstructure:"rate_limit_burst"`
}

// Addr returns host:port
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// AdminConfig contains the health and metrics server configuration
type AdminConfig struct {
	Host    string `mapstructure:"host"`
	Port    int    `mapstructure:"port"`
	Enabled bool   `mapstructure:"enabled"`
	// CheckTimeout bounds one round of dependency health checks
	CheckTimeout time.Duration `mapstructure:"check_timeout"`
}

// Addr returns host:port
func (a AdminConfig) Addr() string {
	return net.JoinHostPort(a.Host, strconv.Itoa(a.Port))
}

// DatabaseConfig contains database configuration
type DatabaseConfig struct {
	Driver             string        `mapstructure:"driver"`
	Host               string        `mapstructure:"host"`
	Port               int           `mapstructure:"port"`
	Database           string        `mapstructure:"database"`
	Username           string        `mapstructure:"username"`
	Password           string        `mapstructure:"password"`
	SSLMode            string        `mapstructure:"ssl_mode"`
	ReadReplicas       []string      `mapstructure:"read_replicas"`
	MaxOpenConns       int           `mapstructure:"max_open_conns"`
	MaxIdleConns       int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime    time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime    time.Duration `mapstructure:"conn_max_idle_time"`
	LogLevel           string        `mapstructure:"log_level"`
	SlowQueryThreshold time.Duration `mapstructure:"slow_query_threshold"`
	AutoMigrate        bool          `mapstructure:"auto_migrate"`
	SeedData           bool          `mapstructure:"seed_data"`
	// SQLitePath is the database file when Driver is sqlite
	SQLitePath string `mapstructure:"sqlite_path"`
}

// DSN returns the postgres connection string
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host,
		d.Port,
		d.Username,
		d.Password,
		d.Database,
		d.SSLMode,
	)
}

// URL returns the postgres URL used by golang-migrate
func (d DatabaseConfig) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s/%s?sslmode=%s",
		d.Username,
		d.Password,
		net.JoinHostPort(d.Host, strconv.Itoa(d.Port)),
		d.Database,
		d.SSLMode,
	)
}

// RedisConfig contains Redis configuration
type RedisConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Password     string        `mapstructure:"password"`
	Database     int           `mapstructure:"database"`
	MaxRetries   int           `mapstructure:"max_retries"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	PoolSize     int           `mapstructure:"pool_size"`
}

// Addr returns host:port
func (r RedisConfig) Addr() string {
	return net.JoinHostPort(r.Host, strconv.Itoa(r.Port))
}

// CacheConfig selects the cache backend
type CacheConfig struct {
	// Backend is memory or redis
	Backend         string        `mapstructure:"backend"`
	KeyPrefix       string        `mapstructure:"key_prefix"`
	MaxEntries      int           `mapstructure:"max_entries"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// PricingConfig contains the staleness policy and refresh worker settings
type PricingConfig struct {
	FreshFor          time.Duration `mapstructure:"fresh_for"`
	ExpireAfter       time.Duration `mapstructure:"expire_after"`
	DefaultUnitPrice  float64       `mapstructure:"default_unit_price"`
	DefaultCurrency   string        `mapstructure:"default_currency"`
	UseStalePrices    bool          `mapstructure:"use_stale_prices"`
	CacheTTL          time.Duration `mapstructure:"cache_ttl"`
	RefreshEndpoint   string        `mapstructure:"refresh_endpoint"`
	RefreshRatePerSec float64       `mapstructure:"refresh_rate_per_sec"`
	RefreshBurst      int           `mapstructure:"refresh_burst"`
	RefreshQueueSize  int           `mapstructure:"refresh_queue_size"`
	RefreshTimeout    time.Duration `mapstructure:"refresh_timeout"`
	// Consecutive feed failures that open the refresh circuit breaker
	BreakerFailureThreshold int           `mapstructure:"breaker_failure_threshold"`
	BreakerOpenTimeout      time.Duration `mapstructure:"breaker_open_timeout"`
}

// Policy returns the staleness policy part
func (p PricingConfig) Policy() pricing.Policy {
	return pricing.Policy{
		FreshFor:         p.FreshFor,
		ExpireAfter:      p.ExpireAfter,
		DefaultUnitPrice: p.DefaultUnitPrice,
		DefaultCurrency:  strings.ToUpper(p.DefaultCurrency),
		UseStalePrices:   p.UseStalePrices,
	}
}

// ShoppingConfig contains shopping list defaults
type ShoppingConfig struct {
	DefaultServings int     `mapstructure:"default_servings"`
	SavingFactor    float64 `mapstructure:"saving_factor"`
}

// NutritionConfig contains averaging defaults
type NutritionConfig struct {
	ExcludeNoDataDays bool `mapstructure:"exclude_no_data_days"`
}

// MonitoringConfig contains monitoring configuration
type MonitoringConfig struct {
	EnableMetrics  bool    `mapstructure:"enable_metrics"`
	EnableTracing  bool    `mapstructure:"enable_tracing"`
	OTLPEndpoint   string  `mapstructure:"otlp_endpoint"`
	OTLPInsecure   bool    `mapstructure:"otlp_insecure"`
	SamplingRate   float64 `mapstructure:"sampling_rate"`
	HealthPath     string  `mapstructure:"health_path"`
	ReadinessPath  string  `mapstructure:"readiness_path"`
	MetricsPath    string  `mapstructure:"metrics_path"`
	ServiceName    string  `mapstructure:"service_name"`
	ServiceVersion string  `mapstructure:"service_version"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v, err := read(configPath)
	if err != nil {
		return nil, err
	}
	return decode(v)
}

// Watch reloads the configuration file whenever it changes and passes every
// valid result to onChange. Invalid edits are logged and ignored. Without a
// config file there is nothing to watch and Watch returns nil.
func Watch(configPath string, logger *zap.Logger, onChange func(*Config)) error {
	v, err := read(configPath)
	if err != nil {
		return err
	}
	if v.ConfigFileUsed() == "" {
		logger.Info("No config file in use, hot reload disabled")
		return nil
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		cfg, err := decode(v)
		if err != nil {
			logger.Warn("Ignoring invalid configuration change",
				zap.String("file", e.Name),
				zap.Error(err),
			)
			return
		}
		logger.Info("Configuration reloaded", zap.String("file", e.Name))
		onChange(cfg)
	})
	v.WatchConfig()

	logger.Info("Watching configuration file", zap.String("file", v.ConfigFileUsed()))
	return nil
}

func read(configPath string) (*viper.Viper, error) {
	v := viper.New()

	// Set default values
	setDefaults(v)

	// Set config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/nutriplan")
	}

	// Enable environment variable override
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		// It's okay if config file doesn't exist, we have defaults
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}
	return v, nil
}

func decode(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	policy := pricing.DefaultPolicy()

	// App defaults
	v.SetDefault("app.name", "nutriplan")
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.debug", false)
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.log_format", "json")

	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.request_timeout", "10s")
	v.SetDefault("server.max_header_bytes", 1<<20) // 1MB
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.enable_cors", true)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.enable_compression", true)
	v.SetDefault("server.enable_http2", true)
	v.SetDefault("server.rate_limit_per_sec", 0)
	v.SetDefault("server.rate_limit_burst", 50)

	// Admin defaults
	v.SetDefault("admin.enabled", true)
	v.SetDefault("admin.host", "0.0.0.0")
	v.SetDefault("admin.port", 9090)
	v.SetDefault("admin.check_timeout", "5s")

	// Database defaults
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.sqlite_path", "nutriplan.db")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.database", "nutriplan")
	v.SetDefault("database.username", "nutriplan")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "1h")
	v.SetDefault("database.conn_max_idle_time", "10m")
	v.SetDefault("database.log_level", "warn")
	v.SetDefault("database.slow_query_threshold", "100ms")
	v.SetDefault("database.auto_migrate", true)

	// Redis defaults
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.database", 0)
	v.SetDefault("redis.max_retries", 3)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.dial_timeout", "5s")
	v.SetDefault("redis.read_timeout", "3s")
	v.SetDefault("redis.write_timeout", "3s")

	// Cache defaults
	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.key_prefix", "nutriplan:")
	v.SetDefault("cache.max_entries", 10000)
	v.SetDefault("cache.cleanup_interval", "1m")

	// Pricing defaults
	v.SetDefault("pricing.fresh_for", policy.FreshFor.String())
	v.SetDefault("pricing.expire_after", "0s")
	v.SetDefault("pricing.default_unit_price", policy.DefaultUnitPrice)
	v.SetDefault("pricing.default_currency", policy.DefaultCurrency)
	v.SetDefault("pricing.use_stale_prices", policy.UseStalePrices)
	v.SetDefault("pricing.cache_ttl", "24h")
	v.SetDefault("pricing.refresh_rate_per_sec", 5)
	v.SetDefault("pricing.refresh_burst", 5)
	v.SetDefault("pricing.refresh_queue_size", 256)
	v.SetDefault("pricing.refresh_timeout", "10s")
	v.SetDefault("pricing.breaker_failure_threshold", 5)
	v.SetDefault("pricing.breaker_open_timeout", "30s")

	// Engine defaults
	v.SetDefault("shopping.default_servings", 2)
	v.SetDefault("shopping.saving_factor", 0.85)
	v.SetDefault("nutrition.exclude_no_data_days", false)

	// Monitoring defaults
	v.SetDefault("monitoring.enable_metrics", true)
	v.SetDefault("monitoring.enable_tracing", false)
	v.SetDefault("monitoring.otlp_endpoint", "localhost:4318")
	v.SetDefault("monitoring.otlp_insecure", true)
	v.SetDefault("monitoring.sampling_rate", 0.1)
	v.SetDefault("monitoring.health_path", "/health")
	v.SetDefault("monitoring.readiness_path", "/ready")
	v.SetDefault("monitoring.metrics_path", "/metrics")
	v.SetDefault("monitoring.service_name", "nutriplan-engine")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	// Validate required fields
	if c.App.Name == "" {
		return fmt.Errorf("app.name is required")
	}

	switch c.Database.Driver {
	case "sqlite":
		if c.Database.SQLitePath == "" {
			return fmt.Errorf("database.sqlite_path is required for sqlite")
		}
	case "postgres":
		if c.Database.Database == "" {
			return fmt.Errorf("database.database is required")
		}
		if c.Database.Password == "" && c.IsProduction() {
			return fmt.Errorf("database.password is required in production")
		}
	default:
		return fmt.Errorf("database.driver must be sqlite or postgres, got %q", c.Database.Driver)
	}

	switch c.Cache.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("cache.backend must be memory or redis, got %q", c.Cache.Backend)
	}

	// Validate port ranges
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}
	if c.Admin.Enabled && (c.Admin.Port < 1 || c.Admin.Port > 65535) {
		return fmt.Errorf("admin.port must be between 1 and 65535")
	}
	if c.Admin.Enabled && c.Admin.Port == c.Server.Port {
		return fmt.Errorf("admin.port must differ from server.port")
	}

	if err := c.Pricing.Policy().Validate(); err != nil {
		return fmt.Errorf("pricing: %w", err)
	}
	if c.Shopping.DefaultServings <= 0 {
		return fmt.Errorf("shopping.default_servings must be positive")
	}
	if c.Shopping.SavingFactor <= 0 || c.Shopping.SavingFactor > 1 {
		return fmt.Errorf("shopping.saving_factor must be in (0, 1]")
	}
	if c.Monitoring.SamplingRate < 0 || c.Monitoring.SamplingRate > 1 {
		return fmt.Errorf("monitoring.sampling_rate must be between 0 and 1")
	}

	return nil
}

// IsProduction returns true if running in production
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// IsDevelopment returns true if running in development
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}
