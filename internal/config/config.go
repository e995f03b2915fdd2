// Package config loads the server configuration from a YAML file with
// environment-variable overrides for deployment.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Default locations and values.
const (
	// DefaultConfigPath is used when no --config flag or env override is set.
	DefaultConfigPath = "config.yaml"
	// DefaultAddr is the default listen address.
	DefaultAddr = ":8080"
	// DefaultDSN stores data in a local SQLite file.
	DefaultDSN = "data/cliqued.db"
	// DefaultMediaDir is where the local upload store writes files.
	DefaultMediaDir = "data/media"
	// DefaultTokenExpiry is the lifetime of issued identity tokens.
	DefaultTokenExpiry = 24 * time.Hour
)

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// DatabaseConfig holds the storage DSN.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// RedisConfig holds the notification channel backend settings. An empty
// Addr selects the in-process publisher.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// JWTConfig holds identity token settings.
type JWTConfig struct {
	Secret string        `yaml:"secret"`
	Expiry time.Duration `yaml:"expiry"`
}

// UnmarshalYAML accepts Go duration strings for expiry, e.g. "24h".
func (c *JWTConfig) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		Secret string `yaml:"secret"`
		Expiry string `yaml:"expiry"`
	}
	if errDecode := value.Decode(&raw); errDecode != nil {
		return errDecode
	}
	c.Secret = raw.Secret
	if raw.Expiry != "" {
		expiry, errParse := time.ParseDuration(raw.Expiry)
		if errParse != nil {
			return fmt.Errorf("jwt expiry: %w", errParse)
		}
		c.Expiry = expiry
	}
	return nil
}

// MediaConfig holds upload store settings.
type MediaConfig struct {
	Dir string `yaml:"dir"`
}

// LogConfig holds logging settings. File enables rotating file output.
type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// Config is the root configuration document.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	JWT      JWTConfig      `yaml:"jwt"`
	Media    MediaConfig    `yaml:"media"`
	Log      LogConfig      `yaml:"log"`
}

// ResolveConfigPath picks the config path from the flag value or the
// CLIQUED_CONFIG environment variable.
func ResolveConfigPath(flagValue string) string {
	if trimmed := strings.TrimSpace(flagValue); trimmed != "" {
		return trimmed
	}
	if env := strings.TrimSpace(os.Getenv("CLIQUED_CONFIG")); env != "" {
		return env
	}
	return DefaultConfigPath
}

// Load reads the config file at path, applies defaults and env overrides.
// A missing file is not an error: defaults plus env are used.
func Load(path string) (Config, error) {
	cfg := Config{}

	data, errRead := os.ReadFile(path)
	switch {
	case errRead == nil:
		if errUnmarshal := yaml.Unmarshal(data, &cfg); errUnmarshal != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, errUnmarshal)
		}
	case os.IsNotExist(errRead):
		// Fall through to defaults.
	default:
		return Config{}, fmt.Errorf("config: read %s: %w", path, errRead)
	}

	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)

	if strings.TrimSpace(cfg.JWT.Secret) == "" {
		return Config{}, fmt.Errorf("config: jwt secret is required (jwt.secret or CLIQUED_JWT_SECRET)")
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = DefaultAddr
	}
	if cfg.Database.DSN == "" {
		cfg.Database.DSN = DefaultDSN
	}
	if cfg.Media.Dir == "" {
		cfg.Media.Dir = DefaultMediaDir
	}
	if cfg.JWT.Expiry <= 0 {
		cfg.JWT.Expiry = DefaultTokenExpiry
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("CLIQUED_ADDR")); v != "" {
		cfg.Server.Addr = v
	}
	if v := strings.TrimSpace(os.Getenv("CLIQUED_DSN")); v != "" {
		cfg.Database.DSN = v
	}
	if v := strings.TrimSpace(os.Getenv("CLIQUED_REDIS_ADDR")); v != "" {
		cfg.Redis.Addr = v
	}
	if v := strings.TrimSpace(os.Getenv("CLIQUED_JWT_SECRET")); v != "" {
		cfg.JWT.Secret = v
	}
	if v := strings.TrimSpace(os.Getenv("CLIQUED_MEDIA_DIR")); v != "" {
		cfg.Media.Dir = v
	}
	if v := strings.TrimSpace(os.Getenv("CLIQUED_LOG_LEVEL")); v != "" {
		cfg.Log.Level = v
	}
}
