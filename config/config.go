package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/bizrank/review-service/internal/database"
	"github.com/bizrank/review-service/internal/jobs"
	"github.com/bizrank/review-service/internal/publisher"
	"github.com/bizrank/review-service/internal/telemetry"
)

// EnvPrefix prefixes every environment override, e.g. REVIEW_SERVICE_SYNC_CEILING
const EnvPrefix = "REVIEW_SERVICE"

// Config holds the application configuration
type Config struct {
	Server    ServerConfig       `mapstructure:"server"`
	Database  DatabaseConfig     `mapstructure:"database"`
	Auth      AuthConfig         `mapstructure:"auth"`
	RateLimit RateLimitConfig    `mapstructure:"rate_limit"`
	Provider  ProviderConfig     `mapstructure:"provider"`
	OpenAI    OpenAIConfig       `mapstructure:"openai"`
	Maps      MapsConfig         `mapstructure:"maps"`
	RabbitMQ  publisher.Config   `mapstructure:"rabbitmq"`
	Sync      SyncConfig         `mapstructure:"sync"`
	Workers   WorkersConfig      `mapstructure:"workers"`
	Sweeper   SweeperConfig      `mapstructure:"sweeper"`
	Storage   StorageConfig      `mapstructure:"storage"`
	Catalog   CatalogConfig      `mapstructure:"catalog"`
	Cleanup   jobs.CleanupConfig `mapstructure:"cleanup"`
	Telemetry telemetry.Config   `mapstructure:"telemetry"`
	Logging   LoggingConfig      `mapstructure:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	Host         string        `mapstructure:"host"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	URL             string        `mapstructure:"url"`
	MaxConnections  int           `mapstructure:"max_connections"`
	MinConnections  int           `mapstructure:"min_connections"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
}

// PoolOptions sizes the connection pool
func (c DatabaseConfig) PoolOptions() database.PoolOptions {
	return database.PoolOptions{
		MaxConns:        c.MaxConnections,
		MinConns:        c.MinConnections,
		MaxConnLifetime: c.MaxConnLifetime,
		MaxConnIdleTime: c.MaxConnIdleTime,
	}
}

// AuthConfig holds the internal API key
type AuthConfig struct {
	InternalAPIKey string `mapstructure:"internal_api_key"`
}

// RateLimitConfig limits inbound API calls
type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

// ProviderConfig configures the review provider client
type ProviderConfig struct {
	BaseURL           string        `mapstructure:"base_url"`
	APIKey            string        `mapstructure:"api_key"`
	Endpoint          string        `mapstructure:"endpoint"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Burst             int           `mapstructure:"burst"`
	MaxAttempts       int           `mapstructure:"max_attempts"`
	BaseDelayMs       int           `mapstructure:"base_delay_ms"`
	NetworkDelayMs    int           `mapstructure:"network_delay_ms"`
	MaxReviews        int           `mapstructure:"max_reviews"`
}

// OpenAIConfig configures the optional generative analysis backend
type OpenAIConfig struct {
	APIKey      string  `mapstructure:"api_key"`
	BaseURL     string  `mapstructure:"base_url"`
	Model       string  `mapstructure:"model"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	Temperature float32 `mapstructure:"temperature"`
}

// Enabled reports whether a key was configured
func (c OpenAIConfig) Enabled() bool { return c.APIKey != "" }

// MapsConfig configures the optional place status lookup
type MapsConfig struct {
	APIKey            string  `mapstructure:"api_key"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
}

// SyncConfig configures the review sync queue and its pool
type SyncConfig struct {
	Ceiling      int           `mapstructure:"ceiling"`
	PoolSize     int           `mapstructure:"pool_size"`
	JobTimeout   time.Duration `mapstructure:"job_timeout"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

// WorkersConfig configures the processing queue lanes
type WorkersConfig struct {
	PollDelay   time.Duration `mapstructure:"poll_delay"`
	TaskTimeout time.Duration `mapstructure:"task_timeout"`
}

// SweeperConfig configures stuck item recovery
type SweeperConfig struct {
	Interval     time.Duration `mapstructure:"interval"`
	StuckTimeout time.Duration `mapstructure:"stuck_timeout"`
}

// StorageConfig holds report storage configuration
type StorageConfig struct {
	Type     string `mapstructure:"type"`
	BasePath string `mapstructure:"base_path"`
}

// CatalogConfig points at an achievement catalog overriding the built-in one
type CatalogConfig struct {
	Path string `mapstructure:"path"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level   string `mapstructure:"level"`
	Format  string `mapstructure:"format"`
	NoColor bool   `mapstructure:"no_color"`
}

var globalConfig *Config

// Load loads the configuration from file, .env, and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	// .env is optional
	if err := loadEnvFile(); err != nil {
		log.Debug().Err(err).Msg(".env file not loaded")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvVars(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	globalConfig = &cfg
	return &cfg, nil
}

// Validate rejects settings no component can run with
func (c *Config) Validate() error {
	var errs []error
	if c.Sync.Ceiling < 1 {
		errs = append(errs, fmt.Errorf("sync.ceiling must be at least 1, got %d", c.Sync.Ceiling))
	}
	if c.Sync.PoolSize > c.Sync.Ceiling {
		errs = append(errs, fmt.Errorf("sync.pool_size %d exceeds sync.ceiling %d", c.Sync.PoolSize, c.Sync.Ceiling))
	}
	if c.Provider.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("provider.max_attempts must be at least 1"))
	}
	if c.Storage.Type != "local" {
		errs = append(errs, fmt.Errorf("unsupported storage.type %q", c.Storage.Type))
	}
	return errors.Join(errs...)
}

// loadEnvFile loads the first .env found; variables already set win
func loadEnvFile() error {
	for _, dir := range []string{".", "./config"} {
		envFile := filepath.Join(dir, ".env")
		if _, err := os.Stat(envFile); err == nil {
			return godotenv.Load(envFile)
		}
	}
	return fmt.Errorf("no .env file found")
}

// bindEnvVars binds the conventional unprefixed variables
func bindEnvVars(v *viper.Viper) {
	_ = v.BindEnv("database.url", "DATABASE_URL")
	_ = v.BindEnv("server.port", "PORT")
	_ = v.BindEnv("server.host", "HOST")
	_ = v.BindEnv("logging.level", "LOG_LEVEL")
	_ = v.BindEnv("auth.internal_api_key", "INTERNAL_API_KEY")
	_ = v.BindEnv("provider.api_key", "REVIEW_PROVIDER_API_KEY")
	_ = v.BindEnv("openai.api_key", "OPENAI_API_KEY")
	_ = v.BindEnv("maps.api_key", "GOOGLE_MAPS_API_KEY")
	_ = v.BindEnv("rabbitmq.url", "RABBITMQ_URL")
	_ = v.BindEnv("storage.base_path", "STORAGE_PATH")
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 60*time.Second)

	v.SetDefault("database.max_connections", 25)
	v.SetDefault("database.min_connections", 5)
	v.SetDefault("database.max_conn_lifetime", 1*time.Hour)
	v.SetDefault("database.max_conn_idle_time", 30*time.Minute)

	v.SetDefault("rate_limit.requests_per_second", 50)
	v.SetDefault("rate_limit.burst", 100)

	v.SetDefault("provider.base_url", "https://api.reviewprovider.example")
	v.SetDefault("provider.timeout", 30*time.Second)
	v.SetDefault("provider.requests_per_second", 5)
	v.SetDefault("provider.burst", 5)
	v.SetDefault("provider.max_attempts", 3)
	v.SetDefault("provider.base_delay_ms", 1000)
	v.SetDefault("provider.network_delay_ms", 1000)
	v.SetDefault("provider.max_reviews", 200)

	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("openai.max_tokens", 800)
	v.SetDefault("openai.temperature", 0.2)

	v.SetDefault("maps.requests_per_second", 10)

	v.SetDefault("rabbitmq.exchange", "review-service.events")

	v.SetDefault("sync.ceiling", 3)
	v.SetDefault("sync.pool_size", 3)
	v.SetDefault("sync.job_timeout", 5*time.Minute)
	v.SetDefault("sync.poll_interval", 10*time.Second)

	v.SetDefault("workers.poll_delay", 2*time.Second)
	v.SetDefault("workers.task_timeout", 5*time.Minute)

	v.SetDefault("sweeper.interval", time.Minute)
	v.SetDefault("sweeper.stuck_timeout", 5*time.Minute)

	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.base_path", "./data/reports")

	v.SetDefault("cleanup.task_retention", 7*24*time.Hour)
	v.SetDefault("cleanup.sync_retention", 30*24*time.Hour)
	v.SetDefault("cleanup.report_retention", 90*24*time.Hour)

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", telemetry.DefaultServiceName)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.no_color", false)
}

// Get returns the global configuration
func Get() *Config {
	return globalConfig
}

// GetDatabaseURL returns the database URL from config or environment
func GetDatabaseURL() string {
	if cfg := Get(); cfg != nil && cfg.Database.URL != "" {
		return cfg.Database.URL
	}
	return os.Getenv("DATABASE_URL")
}
