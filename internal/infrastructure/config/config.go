package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Log      LogConfig
	Billing  BillingConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Driver          string // postgres, or sqlite for local development
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
}

// RedisConfig holds Redis connection settings for the numbering sequences
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// BillingConfig holds the invoicing pipeline tunables
type BillingConfig struct {
	RoundingScale        int    // decimal places for monetary rounding
	RoundingMode         string // HALF_UP, HALF_EVEN, DOWN, UP
	TaxInclusivePricing  bool   // rated amounts include tax
	DueBalanceSign       int    // sign multiplier applied to account due balances
	Workers              int    // worker pool size (0 = available CPUs)
	BatchSize            int    // accounts per assembly partition
	LinkChunkSize        int    // rated items per bulk status update
	NumberingBatchSize   int    // invoices numbered per parallel batch
	NumberPrefix         string // prefix of final invoice numbers
	WholeInvoiceTaxTypes []string
}

// Load loads configuration from TOML file and environment variables.
// Priority (highest to lowest):
// 1. Environment variables with BILLING_ prefix (e.g., BILLING_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	v.SetEnvPrefix("BILLING")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		Billing: BillingConfig{
			RoundingScale:        v.GetInt("billing.rounding_scale"),
			RoundingMode:         v.GetString("billing.rounding_mode"),
			TaxInclusivePricing:  v.GetBool("billing.tax_inclusive_pricing"),
			DueBalanceSign:       v.GetInt("billing.due_balance_sign"),
			Workers:              v.GetInt("billing.workers"),
			BatchSize:            v.GetInt("billing.batch_size"),
			LinkChunkSize:        v.GetInt("billing.link_chunk_size"),
			NumberingBatchSize:   v.GetInt("billing.numbering_batch_size"),
			NumberPrefix:         v.GetString("billing.number_prefix"),
			WholeInvoiceTaxTypes: v.GetStringSlice("billing.whole_invoice_tax_types"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "billing-backend"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "postgres"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "billing"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.Billing.RoundingScale == 0 {
		cfg.Billing.RoundingScale = 2
	}
	if cfg.Billing.RoundingMode == "" {
		cfg.Billing.RoundingMode = "HALF_UP"
	}
	if cfg.Billing.DueBalanceSign == 0 {
		cfg.Billing.DueBalanceSign = 1
	}
	if cfg.Billing.BatchSize == 0 {
		cfg.Billing.BatchSize = 64
	}
	if cfg.Billing.LinkChunkSize == 0 {
		cfg.Billing.LinkChunkSize = 500
	}
	if cfg.Billing.NumberingBatchSize == 0 {
		cfg.Billing.NumberingBatchSize = 100
	}
	if cfg.Billing.NumberPrefix == "" {
		cfg.Billing.NumberPrefix = "INV-"
	}
	// Workers defaults to the available hardware concurrency downstream.
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("database.driver must be postgres or sqlite, got %q", c.Database.Driver)
	}
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}
	if c.Billing.RoundingScale < 0 || c.Billing.RoundingScale > 10 {
		return fmt.Errorf("billing.rounding_scale must be between 0 and 10, got %d", c.Billing.RoundingScale)
	}
	switch c.Billing.RoundingMode {
	case "HALF_UP", "HALF_EVEN", "DOWN", "UP":
	default:
		return fmt.Errorf("billing.rounding_mode must be one of HALF_UP, HALF_EVEN, DOWN, UP, got %q", c.Billing.RoundingMode)
	}
	if c.Billing.DueBalanceSign != 1 && c.Billing.DueBalanceSign != -1 {
		return fmt.Errorf("billing.due_balance_sign must be 1 or -1, got %d", c.Billing.DueBalanceSign)
	}
	if c.Billing.Workers < 0 {
		return fmt.Errorf("billing.workers cannot be negative")
	}

	if c.App.Env == "production" {
		if c.Database.Driver != "postgres" {
			return fmt.Errorf("database.driver must be postgres in production")
		}
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
	}
	return nil
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// Addr returns the redis host:port address
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}
