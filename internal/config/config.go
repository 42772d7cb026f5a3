package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Bouncer   BouncerConfig   `mapstructure:"bouncer"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Limits    LimitsConfig    `mapstructure:"limits"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
}

// BouncerConfig holds verification provider API configuration. Each mode
// authenticates with its own key so the per-key rate limits and credit pools
// stay independent.
type BouncerConfig struct {
	BaseURL              string        `mapstructure:"base_url"`
	DeliverabilityAPIKey string        `mapstructure:"deliverability_api_key"`
	CatchallAPIKey       string        `mapstructure:"catchall_api_key"`
	RequestTimeout       time.Duration `mapstructure:"request_timeout"`
}

// SchedulerConfig holds background job timing configuration
type SchedulerConfig struct {
	CreateInterval    time.Duration `mapstructure:"create_interval"`
	SweepInterval     time.Duration `mapstructure:"sweep_interval"`
	ReconcileInterval time.Duration `mapstructure:"reconcile_interval"`
	PollDelay         time.Duration `mapstructure:"poll_delay"`
	MaxPollAttempts   int           `mapstructure:"max_poll_attempts"`
}

// LimitsConfig holds batching and provider rate limit configuration. The
// effective submission budget per window is RateLimitQuota minus
// RateLimitBuffer.
type LimitsConfig struct {
	MaxActiveBatches int     `mapstructure:"max_active_batches"`
	MaxBatchSize     int     `mapstructure:"max_batch_size"`
	RateLimitQuota   int     `mapstructure:"rate_limit_quota"`
	RateLimitBuffer  int     `mapstructure:"rate_limit_buffer"`
	OpsRateRPS       float64 `mapstructure:"ops_rate_rps"`
	OpsRateBurst     int     `mapstructure:"ops_rate_burst"`
}

// LoadConfig loads configuration from environment variables and config file
func LoadConfig() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Set defaults
	setDefaults()

	// Read config file if it exists
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	// Environment variables override config file
	viper.AutomaticEnv()

	// Bind environment variables
	bindEnvVars()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "30s")

	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 3306)

	viper.SetDefault("bouncer.base_url", "https://api.usebouncer.com")
	viper.SetDefault("bouncer.request_timeout", "30s")

	viper.SetDefault("scheduler.create_interval", "5s")
	viper.SetDefault("scheduler.sweep_interval", "30s")
	viper.SetDefault("scheduler.reconcile_interval", "5m")
	viper.SetDefault("scheduler.poll_delay", "5s")
	viper.SetDefault("scheduler.max_poll_attempts", 4320)

	viper.SetDefault("limits.max_active_batches", 10)
	viper.SetDefault("limits.max_batch_size", 10000)
	viper.SetDefault("limits.rate_limit_quota", 200)
	viper.SetDefault("limits.rate_limit_buffer", 20)
	viper.SetDefault("limits.ops_rate_rps", 5.0)
	viper.SetDefault("limits.ops_rate_burst", 10)
}

// bindEnvVars binds environment variables to configuration keys
func bindEnvVars() {
	// Server
	viper.BindEnv("server.port", "SERVER_PORT")
	viper.BindEnv("server.read_timeout", "SERVER_READ_TIMEOUT")
	viper.BindEnv("server.write_timeout", "SERVER_WRITE_TIMEOUT")

	// Database
	viper.BindEnv("database.host", "DB_HOST")
	viper.BindEnv("database.port", "DB_PORT")
	viper.BindEnv("database.user", "DB_USER")
	viper.BindEnv("database.password", "DB_PASSWORD")
	viper.BindEnv("database.dbname", "DB_NAME")

	// Bouncer
	viper.BindEnv("bouncer.base_url", "BOUNCER_BASE_URL")
	viper.BindEnv("bouncer.deliverability_api_key", "BOUNCER_DELIVERABILITY_API_KEY")
	viper.BindEnv("bouncer.catchall_api_key", "BOUNCER_CATCHALL_API_KEY")
	viper.BindEnv("bouncer.request_timeout", "BOUNCER_REQUEST_TIMEOUT")

	// Scheduler
	viper.BindEnv("scheduler.create_interval", "SCHEDULER_CREATE_INTERVAL")
	viper.BindEnv("scheduler.sweep_interval", "SCHEDULER_SWEEP_INTERVAL")
	viper.BindEnv("scheduler.reconcile_interval", "SCHEDULER_RECONCILE_INTERVAL")
	viper.BindEnv("scheduler.poll_delay", "SCHEDULER_POLL_DELAY")
	viper.BindEnv("scheduler.max_poll_attempts", "SCHEDULER_MAX_POLL_ATTEMPTS")

	// Limits
	viper.BindEnv("limits.max_active_batches", "LIMITS_MAX_ACTIVE_BATCHES")
	viper.BindEnv("limits.max_batch_size", "LIMITS_MAX_BATCH_SIZE")
	viper.BindEnv("limits.rate_limit_quota", "LIMITS_RATE_LIMIT_QUOTA")
	viper.BindEnv("limits.rate_limit_buffer", "LIMITS_RATE_LIMIT_BUFFER")
	viper.BindEnv("limits.ops_rate_rps", "LIMITS_OPS_RATE_RPS")
	viper.BindEnv("limits.ops_rate_burst", "LIMITS_OPS_RATE_BURST")
}

// GetDSN returns the database connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		c.User, c.Password, c.Host, c.Port, c.DBName)
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}

	if c.Database.Host == "" || c.Database.User == "" || c.Database.DBName == "" {
		return fmt.Errorf("database host, user, and dbname are required")
	}

	if c.Bouncer.BaseURL == "" {
		return fmt.Errorf("bouncer base URL is required")
	}
	if c.Bouncer.DeliverabilityAPIKey == "" || c.Bouncer.CatchallAPIKey == "" {
		return fmt.Errorf("bouncer API keys are required for both modes")
	}

	if c.Scheduler.CreateInterval <= 0 || c.Scheduler.SweepInterval <= 0 || c.Scheduler.ReconcileInterval <= 0 {
		return fmt.Errorf("scheduler intervals must be greater than 0")
	}
	if c.Scheduler.PollDelay <= 0 {
		return fmt.Errorf("scheduler poll delay must be greater than 0")
	}
	if c.Scheduler.MaxPollAttempts <= 0 {
		return fmt.Errorf("scheduler max poll attempts must be greater than 0")
	}

	if c.Limits.MaxActiveBatches <= 0 {
		return fmt.Errorf("max active batches must be greater than 0")
	}
	if c.Limits.MaxBatchSize <= 0 {
		return fmt.Errorf("max batch size must be greater than 0")
	}
	if c.Limits.RateLimitQuota <= 0 {
		return fmt.Errorf("rate limit quota must be greater than 0")
	}
	if c.Limits.RateLimitBuffer < 0 || c.Limits.RateLimitBuffer >= c.Limits.RateLimitQuota {
		return fmt.Errorf("rate limit buffer must be non-negative and smaller than the quota")
	}

	return nil
}
