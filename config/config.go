package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
	"github.com/charmbracelet/log"
	"golang.org/x/crypto/bcrypt"
)

//go:embed config.example.toml
var exampleConf []byte

// EnvPrefix is prepended to every environment variable read by Load.
const EnvPrefix = "MUSICBOX_"

// DefaultConfigFile is picked up from the working directory when no --config flag is given.
const DefaultConfigFile = "musicbox.toml"

// Storage and session backends.
const (
	StorageFile   = "file"
	StorageMinio  = "minio"
	SessionMemory = "memory"
	SessionRedis  = "redis"
)

// Config holds all configuration settings for the application.
type Config struct {
	Server   ServerConfig  `toml:"server" envPrefix:"SERVER_"`
	Storage  StorageConfig `toml:"storage" envPrefix:"STORAGE_"`
	Sessions SessionConfig `toml:"sessions" envPrefix:"SESSIONS_"`
	Auth     AuthConfig    `toml:"auth" envPrefix:"AUTH_"`
	CORS     CORSConfig    `toml:"cors" envPrefix:"CORS_"`
	Log      LogConfig     `toml:"log" envPrefix:"LOG_"`
}

// ServerConfig contains HTTP listener settings.
type ServerConfig struct {
	Address         string        `toml:"address" env:"ADDRESS"`
	Port            string        `toml:"port" env:"PORT"`
	ShutdownTimeout time.Duration `toml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
}

// StorageConfig selects where the JSON documents live.
type StorageConfig struct {
	Backend      string      `toml:"backend" env:"BACKEND"`
	DataDir      string      `toml:"data_dir" env:"DATA_DIR"`
	EnableBackup bool        `toml:"enable_backup" env:"ENABLE_BACKUP"`
	SeedDefaults bool        `toml:"seed_defaults" env:"SEED_DEFAULTS"`
	Minio        MinioConfig `toml:"minio" envPrefix:"MINIO_"`
}

// MinioConfig contains object storage parameters for the minio backend.
type MinioConfig struct {
	Endpoint  string `toml:"endpoint" env:"ENDPOINT"`
	AccessKey string `toml:"access_key" env:"ACCESS_KEY"`
	SecretKey string `toml:"secret_key" env:"SECRET_KEY"`
	Bucket    string `toml:"bucket" env:"BUCKET"`
	UseSSL    bool   `toml:"use_ssl" env:"USE_SSL"`
	Prefix    string `toml:"prefix" env:"PREFIX"` // object key prefix, e.g. "prod/"
}

// SessionConfig selects the session registry backend.
type SessionConfig struct {
	Backend string      `toml:"backend" env:"BACKEND"`
	Redis   RedisConfig `toml:"redis" envPrefix:"REDIS_"`
}

// RedisConfig contains connection parameters for the redis session backend.
type RedisConfig struct {
	Addr      string `toml:"addr" env:"ADDR"`
	Password  string `toml:"password" env:"PASSWORD"`
	DB        int    `toml:"db" env:"DB"`
	KeyPrefix string `toml:"key_prefix" env:"KEY_PREFIX"`
}

// AuthConfig contains password hashing and login throttling settings.
type AuthConfig struct {
	BcryptCost     int     `toml:"bcrypt_cost" env:"BCRYPT_COST"`
	LoginRateLimit float64 `toml:"login_rate_limit" env:"LOGIN_RATE_LIMIT"`
	LoginRateBurst int     `toml:"login_rate_burst" env:"LOGIN_RATE_BURST"`
}

// CORSConfig contains cross-origin settings applied to every route.
type CORSConfig struct {
	AllowedOrigins []string `toml:"allowed_origins" env:"ALLOWED_ORIGINS" envSeparator:","`
	MaxAge         int      `toml:"max_age" env:"MAX_AGE"`
}

// LogConfig controls the application logger.
type LogConfig struct {
	Level  string `toml:"level" env:"LEVEL"`
	Format string `toml:"format" env:"FORMAT"` // "text" or "json"
}

// DefaultConfig returns a Config populated from the embedded example config.
func DefaultConfig() *Config {
	var cfg Config
	if err := toml.Unmarshal(exampleConf, &cfg); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &cfg
}

// ExampleConfig returns the embedded example configuration file.
func ExampleConfig() []byte {
	return exampleConf
}

// LoadConfig builds the configuration from defaults, an optional TOML file and environment variables.
// Environment variables take precedence over the file, which takes precedence over defaults.
// An empty path loads DefaultConfigFile if it exists; an explicit path that cannot be read is an error.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		if _, err := os.Stat(DefaultConfigFile); err == nil {
			path = DefaultConfigFile
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	return cfg, nil
}

// Validate normalises the configuration and rejects values the server cannot run with.
// It must be called after all overrides (file, env, flags) are applied.
func (c *Config) Validate() error {
	c.Storage.Backend = strings.ToLower(strings.TrimSpace(c.Storage.Backend))
	c.Sessions.Backend = strings.ToLower(strings.TrimSpace(c.Sessions.Backend))

	if c.Server.Port == "" {
		return errors.New("server port must not be empty")
	}

	switch c.Storage.Backend {
	case StorageFile:
		if c.Storage.DataDir == "" {
			return errors.New("storage data_dir must not be empty")
		}
		absDir, err := filepath.Abs(c.Storage.DataDir)
		if err != nil {
			return fmt.Errorf("could not determine absolute path for data_dir '%s': %w", c.Storage.DataDir, err)
		}
		c.Storage.DataDir = absDir
		if info, err := os.Stat(absDir); err == nil && !info.IsDir() {
			return fmt.Errorf("data_dir '%s' points to a file, not a directory", absDir)
		}
	case StorageMinio:
		if c.Storage.Minio.Endpoint == "" || c.Storage.Minio.Bucket == "" {
			return errors.New("minio storage requires an endpoint and a bucket")
		}
	default:
		return fmt.Errorf("unknown storage backend %q (want %q or %q)", c.Storage.Backend, StorageFile, StorageMinio)
	}

	switch c.Sessions.Backend {
	case SessionMemory:
	case SessionRedis:
		if c.Sessions.Redis.Addr == "" {
			return errors.New("redis sessions require an address")
		}
	default:
		return fmt.Errorf("unknown session backend %q (want %q or %q)", c.Sessions.Backend, SessionMemory, SessionRedis)
	}

	if c.Auth.BcryptCost < bcrypt.MinCost || c.Auth.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("bcrypt_cost must be between %d and %d, got %d", bcrypt.MinCost, bcrypt.MaxCost, c.Auth.BcryptCost)
	}
	if c.Auth.LoginRateLimit < 0 {
		return errors.New("login_rate_limit must not be negative")
	}

	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("invalid log level %q: %w", c.Log.Level, err)
	}

	return nil
}

// ListenAddr returns the host:port the HTTP server binds to.
func (c *Config) ListenAddr() string {
	return c.Server.Address + ":" + c.Server.Port
}

// LogSummary prints the effective configuration. Secrets are never logged.
func LogSummary(c *Config) {
	log.Info("configuration loaded",
		"listen", c.ListenAddr(),
		"storage", c.Storage.Backend,
		"sessions", c.Sessions.Backend,
		"bcrypt_cost", c.Auth.BcryptCost,
		"login_rate_limit", c.Auth.LoginRateLimit,
		"cors_origins", strings.Join(c.CORS.AllowedOrigins, ","),
	)
	switch c.Storage.Backend {
	case StorageFile:
		log.Info("file storage", "data_dir", c.Storage.DataDir, "backup", c.Storage.EnableBackup)
	case StorageMinio:
		log.Info("minio storage", "endpoint", c.Storage.Minio.Endpoint, "bucket", c.Storage.Minio.Bucket, "ssl", c.Storage.Minio.UseSSL)
	}
	if c.Sessions.Backend == SessionRedis {
		log.Info("redis sessions", "addr", c.Sessions.Redis.Addr, "db", c.Sessions.Redis.DB)
	}
}
