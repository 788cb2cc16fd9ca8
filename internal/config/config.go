package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration settings
type Config struct {
	// Graph store configuration
	Nebula NebulaConfig `yaml:"nebula" mapstructure:"nebula"`

	// Work queue configuration
	Redis RedisConfig `yaml:"redis" mapstructure:"redis"`

	// Relational source and reconciliation journal
	MySQL MySQLConfig `yaml:"mysql" mapstructure:"mysql"`

	// Consumer loop settings
	Worker WorkerConfig `yaml:"worker" mapstructure:"worker"`

	// Logging settings
	Log LogConfig `yaml:"log" mapstructure:"log"`
}

// viper decodes through mapstructure, so every multi-word key needs the
// mapstructure tag; the yaml tag alone is not consulted.
type NebulaConfig struct {
	Addrs    []string `yaml:"addrs" mapstructure:"addrs"` // host:port graphd endpoints
	User     string   `yaml:"user" mapstructure:"user"`
	Password string   `yaml:"password" mapstructure:"password"`
	Space    string   `yaml:"space" mapstructure:"space"`
}

type RedisConfig struct {
	Addr      string `yaml:"addr" mapstructure:"addr"`
	Password  string `yaml:"password" mapstructure:"password"`
	DB        int    `yaml:"db" mapstructure:"db"`
	KeyPrefix string `yaml:"key_prefix" mapstructure:"key_prefix"`
}

type MySQLConfig struct {
	DSN string `yaml:"dsn" mapstructure:"dsn"`
}

type WorkerConfig struct {
	Concurrency         int           `yaml:"concurrency" mapstructure:"concurrency"`
	PollInterval        time.Duration `yaml:"poll_interval" mapstructure:"poll_interval"`
	StockMismatchPolicy string        `yaml:"stock_mismatch_policy" mapstructure:"stock_mismatch_policy"` // "first", "reject"
}

type LogConfig struct {
	Level string `yaml:"level" mapstructure:"level"` // "debug", "info", "warn", "error"
	JSON  bool   `yaml:"json" mapstructure:"json"`
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Nebula: NebulaConfig{
			Addrs:    []string{"127.0.0.1:9669"},
			User:     "root",
			Password: "nebula",
			Space:    "corp_disclosure",
		},
		Redis: RedisConfig{
			Addr:      "127.0.0.1:6379",
			DB:        0,
			KeyPrefix: "graphd",
		},
		Worker: WorkerConfig{
			Concurrency:         4,
			PollInterval:        5 * time.Second,
			StockMismatchPolicy: "first",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from file
func Load(path string) (*Config, error) {
	// Load .env files first (in order of precedence)
	loadEnvFiles()

	v := viper.New()
	v.SetConfigType("yaml")

	// Set defaults
	cfg := Default()
	v.SetDefault("nebula", cfg.Nebula)
	v.SetDefault("redis", cfg.Redis)
	v.SetDefault("mysql", cfg.MySQL)
	v.SetDefault("worker", cfg.Worker)
	v.SetDefault("log", cfg.Log)

	// Load from environment variables
	v.SetEnvPrefix("GRAPHD")
	v.AutomaticEnv()

	// Try to find config file
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
	}

	// Read config file if it exists
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found is OK, use defaults
	}

	// Unmarshal into struct
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Apply environment variable overrides
	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadEnvFiles loads .env files in order of precedence
func loadEnvFiles() {
	envFiles := []string{
		".env.local", // Local overrides (highest precedence)
		".env",       // Main environment file
	}

	for _, file := range envFiles {
		if _, err := os.Stat(file); err == nil {
			godotenv.Load(file)
		}
	}
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(cfg *Config) {
	if addrs := os.Getenv("NEBULA_ADDRS"); addrs != "" {
		cfg.Nebula.Addrs = strings.Split(addrs, ",")
	}
	if user := os.Getenv("NEBULA_USER"); user != "" {
		cfg.Nebula.User = user
	}
	if password := os.Getenv("NEBULA_PASSWORD"); password != "" {
		cfg.Nebula.Password = password
	}
	if space := os.Getenv("NEBULA_SPACE"); space != "" {
		cfg.Nebula.Space = space
	}

	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.Redis.Addr = addr
	}
	if password := os.Getenv("REDIS_PASSWORD"); password != "" {
		cfg.Redis.Password = password
	}
	if db := os.Getenv("REDIS_DB"); db != "" {
		if n, err := strconv.Atoi(db); err == nil {
			cfg.Redis.DB = n
		}
	}

	if dsn := os.Getenv("MYSQL_DSN"); dsn != "" {
		cfg.MySQL.DSN = dsn
	}

	if n := os.Getenv("WORKER_CONCURRENCY"); n != "" {
		if c, err := strconv.Atoi(n); err == nil {
			cfg.Worker.Concurrency = c
		}
	}
	if policy := os.Getenv("WORKER_STOCK_MISMATCH_POLICY"); policy != "" {
		cfg.Worker.StockMismatchPolicy = policy
	}
}

// Validate checks that the configuration is usable
func (c *Config) Validate() error {
	if len(c.Nebula.Addrs) == 0 {
		return fmt.Errorf("nebula.addrs must not be empty")
	}
	if c.Nebula.Space == "" {
		return fmt.Errorf("nebula.space must not be empty")
	}
	if c.Worker.Concurrency < 1 {
		return fmt.Errorf("worker.concurrency must be at least 1, got %d", c.Worker.Concurrency)
	}
	switch c.Worker.StockMismatchPolicy {
	case "first", "reject":
	default:
		return fmt.Errorf("worker.stock_mismatch_policy must be %q or %q, got %q",
			"first", "reject", c.Worker.StockMismatchPolicy)
	}
	return nil
}
