package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

// Store drivers.
const (
	StoreSQLite = "sqlite"
	StoreRedis  = "redis"
	StoreMemory = "memory"
)

type Config struct {
	APIURL       string        // Base URL of the remote API (default: http://localhost:5000)
	Store        string        // Credential store driver: sqlite, redis, memory (default: sqlite)
	DatabaseFile string        // SQLite file for the sqlite driver (default: ./sessionctl.db)
	RedisAddr    string        // Redis address for the redis driver (default: localhost:6379)
	RedisPrefix  string        // Key prefix for the redis driver (default: sessionctl)
	Timeout      time.Duration // Per-request HTTP timeout (default: 10s)
	Env          string        // Environment (dev, staging, prod) (default: prod)
	LogLevel     string        // Log level (debug, info, warn, error) (default: warn)
	LogFormat    string        // Log format (json, text) (default: text)
}

// NewConfig returns the defaults.
func NewConfig() Config {
	return Config{
		APIURL:       "http://localhost:5000",
		Store:        StoreSQLite,
		DatabaseFile: "sessionctl.db",
		RedisAddr:    "localhost:6379",
		RedisPrefix:  "sessionctl",
		Timeout:      10 * time.Second,
		Env:          "prod",
		LogLevel:     "warn",
		LogFormat:    "text",
	}
}

// LoadConfig builds the configuration from defaults, then a .env file in the
// working directory, then the environment, then flags. It returns the
// positional arguments left after the flags.
func LoadConfig(args []string) (Config, []string, error) {
	cfg := NewConfig()

	if err := cfg.LoadDotEnv(os.Getwd); err != nil {
		return cfg, nil, fmt.Errorf("failed to read .env: %w", err)
	}
	cfg.LoadEnv(os.Getenv)

	rest, err := cfg.ParseFlags(args)
	if err != nil {
		return cfg, nil, err
	}

	return cfg, rest, cfg.Validate()
}

// LoadDotEnv applies variables from '.env' in the working directory. A
// missing file is not an error.
func (c *Config) LoadDotEnv(getwd func() (string, error)) error {
	wd, err := getwd()
	if err != nil {
		return err
	}

	envMap, err := godotenv.Read(filepath.Join(wd, ".env"))

	switch {
	case err == nil:
		c.LoadEnv(func(key string) string {
			return envMap[key]
		})
		return nil
	case errors.Is(err, os.ErrNotExist):
		return nil
	default:
		return err
	}
}

// LoadEnv overrides fields with non-empty variables returned by getenv.
func (c *Config) LoadEnv(getenv func(string) string) {
	c.APIURL = getEnvOrDefault(getenv, "SESSIONCTL_API_URL", c.APIURL)
	c.Store = getEnvOrDefault(getenv, "SESSIONCTL_STORE", c.Store)
	c.DatabaseFile = getEnvOrDefault(getenv, "SESSIONCTL_DATABASE_FILE", c.DatabaseFile)
	c.RedisAddr = getEnvOrDefault(getenv, "SESSIONCTL_REDIS_ADDR", c.RedisAddr)
	c.RedisPrefix = getEnvOrDefault(getenv, "SESSIONCTL_REDIS_PREFIX", c.RedisPrefix)
	c.Timeout = getEnvDurationOrDefault(getenv, "SESSIONCTL_TIMEOUT", c.Timeout)
	c.Env = getEnvOrDefault(getenv, "ENV", c.Env)
	c.LogLevel = getEnvOrDefault(getenv, "LOG_LEVEL", c.LogLevel)
	c.LogFormat = getEnvOrDefault(getenv, "LOG_FORMAT", c.LogFormat)
}

// ParseFlags applies command line flags and returns the remaining arguments.
// Parsing stops at the first positional argument so command arguments are
// never taken for flags.
func (c *Config) ParseFlags(args []string) ([]string, error) {
	fs := pflag.NewFlagSet("sessionctl", pflag.ContinueOnError)
	fs.SetInterspersed(false)

	fs.StringVarP(&c.APIURL, "api", "a", c.APIURL, "Base URL of the API")
	fs.StringVarP(&c.Store, "store", "s", c.Store, "Credential store (sqlite, redis, memory)")
	fs.StringVarP(&c.DatabaseFile, "database", "d", c.DatabaseFile, "SQLite credential file")
	fs.StringVar(&c.RedisAddr, "redis-addr", c.RedisAddr, "Redis address")
	fs.StringVar(&c.RedisPrefix, "redis-prefix", c.RedisPrefix, "Redis key prefix")
	fs.DurationVarP(&c.Timeout, "timeout", "t", c.Timeout, "HTTP request timeout")
	fs.StringVarP(&c.LogLevel, "log-level", "l", c.LogLevel, "Logging level (debug, info, warn, error)")
	fs.StringVar(&c.LogFormat, "log-format", c.LogFormat, "Logging format (json, text)")
	fs.StringVarP(&c.Env, "environment", "e", c.Env, "Environment (dev, prod)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return fs.Args(), nil
}

// Validate rejects configurations that cannot open a store.
func (c *Config) Validate() error {
	if !slices.Contains([]string{StoreSQLite, StoreRedis, StoreMemory}, c.Store) {
		return fmt.Errorf("unknown store %q (want sqlite, redis or memory)", c.Store)
	}
	if c.APIURL == "" {
		return errors.New("api url must not be empty")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	return nil
}

func getEnvOrDefault(getenv func(string) string, key, defaultValue string) string {
	if value := getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDurationOrDefault(getenv func(string) string, key string, defaultValue time.Duration) time.Duration {
	value := getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "30s", "1m")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Bare integers are seconds
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}

	return defaultValue
}
