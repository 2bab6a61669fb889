// Package config loads the peer store configuration from a TOML file, a .env file and
// the process environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Version is the configuration file format this build understands.
const Version = "0.1"

const (
	EnvDatabaseURL    = "PEERDB_DATABASE_URL"
	EnvLogLevel       = "PEERDB_LOG_LEVEL"
	EnvMaxConnections = "MAX_DATABASE_CONNECTIONS"
)

// PoolConfig holds connection pool settings. Zero durations disable the corresponding limit.
type PoolConfig struct {
	MaxOpenConns     int           `toml:"max_open_conns" validate:"gte=0"`
	MaxIdleConns     int           `toml:"max_idle_conns" validate:"gte=0"`
	ConnMaxLifetime  time.Duration `toml:"conn_max_lifetime" validate:"gte=0"`
	ConnMaxIdleTime  time.Duration `toml:"conn_max_idle_time" validate:"gte=0"`
	AcquireTimeout   time.Duration `toml:"acquire_timeout" validate:"gte=0"`
	// StatementTimeout is applied per session. postgresql bounds statement run time
	// and lock waits with it, sqlite uses it as the busy timeout, and mysql only
	// bounds InnoDB row lock waits (innodb_lock_wait_timeout, whole seconds).
	StatementTimeout time.Duration `toml:"statement_timeout" validate:"gte=0"`
}

// DBConfig holds everything needed to open a store.
type DBConfig struct {
	URL             string        `toml:"url" validate:"required"`
	ConnectAttempts uint          `toml:"connect_attempts" validate:"gte=1"`
	QueryTimeout    time.Duration `toml:"query_timeout" validate:"gte=0"`
	Pool            PoolConfig    `toml:"pool"`
}

// ConfigParam is the top level of peerdb.conf.
type ConfigParam struct {
	FormatVersion string   `toml:"format_version"`
	LogLevel      string   `toml:"log_level" validate:"omitempty,oneof=trace debug info warn error"`
	DB            DBConfig `toml:"db"`
}

// Default returns a configuration with every optional value filled in.
func Default() *ConfigParam {
	return &ConfigParam{
		FormatVersion: Version,
		LogLevel:      "info",
		DB: DBConfig{
			ConnectAttempts: 1,
			Pool: PoolConfig{
				MaxOpenConns:     10,
				MaxIdleConns:     2,
				ConnMaxLifetime:  30 * time.Minute,
				ConnMaxIdleTime:  5 * time.Minute,
				AcquireTimeout:   5 * time.Second,
				StatementTimeout: 5 * time.Second,
			},
		},
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidateConfig checks that all required values are present and in range.
func ValidateConfig(cfg *ConfigParam) error {
	if cfg.FormatVersion != Version {
		return fmt.Errorf("unsupported config file format version: %q", cfg.FormatVersion)
	}
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("invalid %s: failed %q check", verrs[0].Namespace(), verrs[0].Tag())
		}
		return err
	}
	return nil
}

// LoadConfig reads filename on top of the defaults, then applies the environment.
// A .env file next to the config file or in the working directory is loaded first;
// variables already set in the environment win.
func LoadConfig(filename string) (*ConfigParam, error) {
	if filename == "" {
		return nil, fmt.Errorf("config filename is required")
	}
	loadDotEnv(filepath.Dir(filename))

	content, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	cfg := Default()
	if _, err := toml.Decode(string(content), cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}
	applyEnv(cfg)

	if err := ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// FromEnv builds a configuration from the defaults and the environment only.
func FromEnv() (*ConfigParam, error) {
	loadDotEnv("")
	cfg := Default()
	applyEnv(cfg)
	if err := ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// MaxDatabaseConnections reads MAX_DATABASE_CONNECTIONS as an unsigned integer.
// Missing, negative or otherwise unparsable values yield 1.
func MaxDatabaseConnections() int {
	n, err := strconv.ParseUint(os.Getenv(EnvMaxConnections), 10, 31)
	if err != nil {
		return 1
	}
	return int(n)
}

func applyEnv(cfg *ConfigParam) {
	if v := os.Getenv(EnvDatabaseURL); v != "" {
		cfg.DB.URL = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
}

func loadDotEnv(dir string) {
	paths := []string{".env"}
	if dir != "" && dir != "." {
		paths = append([]string{filepath.Join(dir, ".env")}, paths...)
	}
	for _, p := range paths {
		_ = godotenv.Load(p) // no error if .env doesn't exist
	}
}
