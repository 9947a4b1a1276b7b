package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Database drivers
const (
	DriverSQLite = "sqlite"
	DriverMemory = "memory"
)

// Sequence backends
const (
	SequenceMemory = "memory"
	SequenceSQLite = "sqlite"
	SequenceRedis  = "redis"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Sequence  SequenceConfig  `mapstructure:"sequence"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
	Voucher   VoucherConfig   `mapstructure:"voucher"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Logger    LoggerConfig    `mapstructure:"logger"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Addr returns host:port
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	BusyTimeout     time.Duration `mapstructure:"busy_timeout"`
}

// SequenceConfig selects where business code counters live
type SequenceConfig struct {
	Backend string `mapstructure:"backend"`
}

// RedisConfig holds the redis connection used by the redis sequence backend
type RedisConfig struct {
	Addr      string `mapstructure:"addr"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

// PipelineConfig holds orchestrator configuration
type PipelineConfig struct {
	Timeout          time.Duration `mapstructure:"timeout"`
	ExpenseThreshold string        `mapstructure:"expense_threshold"`
	Actors           ActorsConfig  `mapstructure:"actors"`
}

// Threshold parses ExpenseThreshold. Call Validate first.
func (p PipelineConfig) Threshold() decimal.Decimal {
	d, err := decimal.NewFromString(p.ExpenseThreshold)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// ActorsConfig holds the user id acting at each approval gate
type ActorsConfig struct {
	Owner            int64 `mapstructure:"owner"`
	ContractApprover int64 `mapstructure:"contract_approver"`
	PurchaseApprover int64 `mapstructure:"purchase_approver"`
	PaymentApprover  int64 `mapstructure:"payment_approver"`
	Manager          int64 `mapstructure:"manager"`
	Finance          int64 `mapstructure:"finance"`
	CEO              int64 `mapstructure:"ceo"`
}

// VoucherConfig holds voucher generation configuration
type VoucherConfig struct {
	OutputDir    string `mapstructure:"output_dir"`
	CompanyName  string `mapstructure:"company_name"`
	TemplatePath string `mapstructure:"template_path"`
	IssuerID     int64  `mapstructure:"issuer_id"`
}

// SchedulerConfig holds background job configuration
type SchedulerConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	OverdueCron string `mapstructure:"overdue_cron"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables. An empty
// configPath uses defaults and the environment only.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("BIZFLOW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Default returns the configuration used when nothing is configured
func Default() *Config {
	v := viper.New()
	setDefaults(v)

	var cfg Config
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)

	// Database defaults
	v.SetDefault("database.driver", DriverSQLite)
	v.SetDefault("database.path", "data/bizflow.db")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)
	v.SetDefault("database.busy_timeout", 5*time.Second)

	v.SetDefault("sequence.backend", SequenceSQLite)

	// Redis defaults
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.key_prefix", "bizflow:seq:")

	// Pipeline defaults
	v.SetDefault("pipeline.timeout", 30*time.Second)
	v.SetDefault("pipeline.expense_threshold", "10000")
	v.SetDefault("pipeline.actors.owner", 1)
	v.SetDefault("pipeline.actors.contract_approver", 2)
	v.SetDefault("pipeline.actors.purchase_approver", 2)
	v.SetDefault("pipeline.actors.payment_approver", 3)
	v.SetDefault("pipeline.actors.manager", 2)
	v.SetDefault("pipeline.actors.finance", 3)
	v.SetDefault("pipeline.actors.ceo", 4)

	// Voucher defaults
	v.SetDefault("voucher.output_dir", "generated_vouchers")
	v.SetDefault("voucher.company_name", "")
	v.SetDefault("voucher.template_path", "")
	v.SetDefault("voucher.issuer_id", 3)

	// Scheduler defaults
	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.overdue_cron", "0 * * * *")

	// Logger defaults
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.output_path", "stdout")
	v.SetDefault("logger.format", "json")
}

// bindEnvVars binds the unprefixed variables deployments usually set
func bindEnvVars(v *viper.Viper) {
	_ = v.BindEnv("database.path", "BIZFLOW_DATABASE_PATH", "DATABASE_PATH")
	_ = v.BindEnv("redis.addr", "BIZFLOW_REDIS_ADDR", "REDIS_ADDR")
	_ = v.BindEnv("redis.password", "BIZFLOW_REDIS_PASSWORD", "REDIS_PASSWORD")
	_ = v.BindEnv("voucher.company_name", "BIZFLOW_VOUCHER_COMPANY_NAME", "COMPANY_NAME")
	_ = v.BindEnv("logger.level", "BIZFLOW_LOGGER_LEVEL", "LOG_LEVEL")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}

	switch c.Database.Driver {
	case DriverSQLite:
		if c.Database.Path == "" {
			return fmt.Errorf("database.path is required for the sqlite driver")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("database.driver must be %q or %q", DriverSQLite, DriverMemory)
	}

	switch c.Sequence.Backend {
	case SequenceMemory:
	case SequenceSQLite:
		if c.Database.Driver != DriverSQLite {
			return fmt.Errorf("sequence.backend %q requires database.driver %q", SequenceSQLite, DriverSQLite)
		}
	case SequenceRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("redis.addr is required for the redis sequence backend")
		}
	default:
		return fmt.Errorf("sequence.backend must be one of %q, %q, %q", SequenceMemory, SequenceSQLite, SequenceRedis)
	}

	if c.Pipeline.Timeout <= 0 {
		return fmt.Errorf("pipeline.timeout must be positive")
	}
	threshold, err := decimal.NewFromString(c.Pipeline.ExpenseThreshold)
	if err != nil {
		return fmt.Errorf("pipeline.expense_threshold: %w", err)
	}
	if !threshold.IsPositive() {
		return fmt.Errorf("pipeline.expense_threshold must be positive")
	}

	if c.Voucher.OutputDir == "" {
		return fmt.Errorf("voucher.output_dir is required")
	}

	if c.Scheduler.Enabled && c.Scheduler.OverdueCron == "" {
		return fmt.Errorf("scheduler.overdue_cron is required when the scheduler is enabled")
	}

	return nil
}
