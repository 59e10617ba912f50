// Package config loads the service configuration.
//
// Sources, later ones winning: built-in defaults, an optional YAML file, then
// environment variables prefixed OXIFORMS_. In variable names a double
// underscore separates levels, so OXIFORMS_ADMIN__PASSWORD_HASH sets
// admin.password_hash.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"go.uber.org/zap/zapcore"
)

const EnvPrefix = "OXIFORMS_"

// DevJWTSecret is the default signing secret. serve warns when it is in use.
const DevJWTSecret = "oxiforms-dev-secret-change-me"

// Storage drivers.
const (
	DriverSQLite = "sqlite"
	DriverBadger = "badger"
)

type Config struct {
	HTTP        HTTPConfig      `koanf:"http" yaml:"http"`
	FrontendURL string          `koanf:"frontend_url" yaml:"frontend_url"`
	JWT         JWTConfig       `koanf:"jwt" yaml:"jwt"`
	Admin       AdminConfig     `koanf:"admin" yaml:"admin"`
	Storage     StorageConfig   `koanf:"storage" yaml:"storage"`
	Log         LogConfig       `koanf:"log" yaml:"log"`
	RateLimit   RateLimitConfig `koanf:"ratelimit" yaml:"ratelimit"`
	CORS        CORSConfig      `koanf:"cors" yaml:"cors"`
}

type HTTPConfig struct {
	Addr            string        `koanf:"addr" yaml:"addr"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" yaml:"shutdown_timeout"`
}

type JWTConfig struct {
	Secret string        `koanf:"secret" yaml:"secret"`
	TTL    time.Duration `koanf:"ttl" yaml:"ttl"`
}

type AdminConfig struct {
	Username     string `koanf:"username" yaml:"username"`
	Password     string `koanf:"password" yaml:"password"`
	PasswordHash string `koanf:"password_hash" yaml:"password_hash"`
}

type StorageConfig struct {
	Driver         string        `koanf:"driver" yaml:"driver"`
	Path           string        `koanf:"path" yaml:"path"`
	PoolSize       int           `koanf:"pool_size" yaml:"pool_size"`
	HealthInterval time.Duration `koanf:"health_interval" yaml:"health_interval"`
}

type LogConfig struct {
	Level    string `koanf:"level" yaml:"level"`
	Format   string `koanf:"format" yaml:"format"`
	GelfAddr string `koanf:"gelf_addr" yaml:"gelf_addr"`
}

type RateLimitConfig struct {
	RPS   float64 `koanf:"rps" yaml:"rps"`
	Burst int     `koanf:"burst" yaml:"burst"`
}

type CORSConfig struct {
	AllowedOrigin string `koanf:"allowed_origin" yaml:"allowed_origin"`
}

// defaults is loaded first; every key has a value here.
func defaults() map[string]any {
	return map[string]any{
		"http": map[string]any{
			"addr":             ":3001",
			"shutdown_timeout": "10s",
		},
		"frontend_url": "http://localhost:3000",
		"jwt": map[string]any{
			"secret": DevJWTSecret,
			"ttl":    "24h",
		},
		"admin": map[string]any{
			"username":      "admin",
			"password":      "admin123",
			"password_hash": "",
		},
		"storage": map[string]any{
			"driver":          DriverSQLite,
			"path":            "data/oxiforms.db",
			"pool_size":       4,
			"health_interval": "30s",
		},
		"log": map[string]any{
			"level":     "info",
			"format":    "json",
			"gelf_addr": "",
		},
		"ratelimit": map[string]any{
			"rps":   5.0,
			"burst": 20,
		},
		"cors": map[string]any{
			"allowed_origin": "http://localhost:3000",
		},
	}
}

type mapProvider map[string]any

func (m mapProvider) ReadBytes() ([]byte, error) {
	return nil, errors.New("config: map provider does not support ReadBytes")
}

func (m mapProvider) Read() (map[string]any, error) {
	return m, nil
}

// envKey maps OXIFORMS_STORAGE__POOL_SIZE to storage.pool_size.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// Load reads the configuration. path may be empty.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	if err := k.Load(mapProvider(defaults()), nil); err != nil {
		return nil, fmt.Errorf("config: load defaults: %w", err)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("config: load file %s: %w", path, err)
		}
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("config: load env: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.HTTP.Addr == "" {
		errs = append(errs, errors.New("http.addr is required"))
	}
	if c.JWT.Secret == "" {
		errs = append(errs, errors.New("jwt.secret is required"))
	}
	if c.JWT.TTL <= 0 {
		errs = append(errs, errors.New("jwt.ttl must be positive"))
	}
	if c.Admin.Username == "" {
		errs = append(errs, errors.New("admin.username is required"))
	}
	if c.Admin.Password == "" && c.Admin.PasswordHash == "" {
		errs = append(errs, errors.New("admin.password or admin.password_hash is required"))
	}
	switch c.Storage.Driver {
	case DriverSQLite, DriverBadger:
	default:
		errs = append(errs, fmt.Errorf("storage.driver must be %q or %q, got %q", DriverSQLite, DriverBadger, c.Storage.Driver))
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("log.format must be json or console, got %q", c.Log.Format))
	}
	if c.RateLimit.RPS < 0 || c.RateLimit.Burst < 0 {
		errs = append(errs, errors.New("ratelimit.rps and ratelimit.burst must not be negative"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// Masked returns a copy with secrets replaced, for printing.
func (c Config) Masked() Config {
	mask := func(s string) string {
		if s == "" {
			return ""
		}
		return "********"
	}
	c.JWT.Secret = mask(c.JWT.Secret)
	c.Admin.Password = mask(c.Admin.Password)
	c.Admin.PasswordHash = mask(c.Admin.PasswordHash)
	return c
}
