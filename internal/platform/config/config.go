// Package config loads service configuration from defaults, an optional YAML
// file, VISAMATCH_ environment variables, and command-line flags, in that
// order of precedence (flags win).
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// EnvPrefix prefixes every environment override. Nested keys use a double
// underscore: VISAMATCH_CACHE__MAX_ENTRIES sets cache.max_entries.
const EnvPrefix = "VISAMATCH_"

// Cache backends.
const (
	CacheNone   = "none"
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// Config is the full service configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Log      LogConfig      `koanf:"log"`
	Catalog  CatalogConfig  `koanf:"catalog"`
	Cache    CacheConfig    `koanf:"cache"`
	Redis    RedisConfig    `koanf:"redis"`
	Postgres PostgresConfig `koanf:"postgres"`
	Fixtures FixturesConfig `koanf:"fixtures"`
	Matcher  MatcherConfig  `koanf:"matcher"`
	Tracing  TracingConfig  `koanf:"tracing"`
}

// ServerConfig captures HTTP server level configuration.
type ServerConfig struct {
	Addr              string        `koanf:"addr"`
	ReadHeaderTimeout time.Duration `koanf:"read_header_timeout"`
	RequestTimeout    time.Duration `koanf:"request_timeout"`
	ShutdownTimeout   time.Duration `koanf:"shutdown_timeout"`
	// AdminToken enables the operator endpoints when set.
	AdminToken string `koanf:"admin_token"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// CatalogConfig selects the visa catalog. An empty path uses the embedded
// default catalog.
type CatalogConfig struct {
	Path     string        `koanf:"path"`
	Watch    bool          `koanf:"watch"`
	Debounce time.Duration `koanf:"debounce"`
}

type CacheConfig struct {
	Backend    string        `koanf:"backend"`
	TTL        time.Duration `koanf:"ttl"`
	MaxEntries int           `koanf:"max_entries"`
}

// RedisConfig configures the Redis connection used by the redis cache backend.
type RedisConfig struct {
	URL          string        `koanf:"url"`
	PoolSize     int           `koanf:"pool_size"`
	MinIdleConns int           `koanf:"min_idle_conns"`
	DialTimeout  time.Duration `koanf:"dial_timeout"`
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
}

// PostgresConfig selects the PostgreSQL job store when DSN is set.
type PostgresConfig struct {
	DSN          string        `koanf:"dsn"`
	MaxOpenConns int           `koanf:"max_open_conns"`
	MaxIdleConns int           `koanf:"max_idle_conns"`
	ConnMaxLife  time.Duration `koanf:"conn_max_lifetime"`
}

// FixturesConfig preloads job and verification data.
type FixturesConfig struct {
	Path string `koanf:"path"`
	// Demo seeds the embedded sample data when no path is set.
	Demo bool `koanf:"demo"`
}

type MatcherConfig struct {
	Concurrency int `koanf:"concurrency"`
}

// TracingConfig configures OpenTelemetry export. An empty endpoint keeps
// spans in-process.
type TracingConfig struct {
	ServiceName string        `koanf:"service_name"`
	Endpoint    string        `koanf:"endpoint"`
	Insecure    bool          `koanf:"insecure"`
	Timeout     time.Duration `koanf:"timeout"`
	Sampler     string        `koanf:"sampler"`
	SamplerArg  float64       `koanf:"sampler_arg"`
	Required    bool          `koanf:"required"`
}

// Defaults returns the built-in configuration values.
func Defaults() map[string]any {
	return map[string]any{
		"server.addr":                ":8080",
		"server.read_header_timeout": 5 * time.Second,
		"server.request_timeout":     10 * time.Second,
		"server.shutdown_timeout":    15 * time.Second,
		"log.level":                  "info",
		"log.format":                 "json",
		"catalog.watch":              true,
		"catalog.debounce":           250 * time.Millisecond,
		"cache.backend":              CacheMemory,
		"cache.ttl":                  10 * time.Minute,
		"cache.max_entries":          10000,
		"redis.pool_size":            10,
		"redis.min_idle_conns":       2,
		"redis.dial_timeout":         5 * time.Second,
		"redis.read_timeout":         3 * time.Second,
		"redis.write_timeout":        3 * time.Second,
		"postgres.max_open_conns":    10,
		"postgres.max_idle_conns":    5,
		"postgres.conn_max_lifetime": 30 * time.Minute,
		"fixtures.demo":              true,
		"matcher.concurrency":        8,
		"tracing.service_name":       "visamatch",
		"tracing.timeout":            5 * time.Second,
		"tracing.sampler":            "parentbased",
		"tracing.sampler_arg":        1.0,
	}
}

// flagKeys maps command-line flag names onto config keys.
var flagKeys = map[string]string{
	"addr":        "server.addr",
	"config":      "",
	"catalog":     "catalog.path",
	"watch":       "catalog.watch",
	"log-level":   "log.level",
	"log-format":  "log.format",
	"cache":       "cache.backend",
	"cache-ttl":   "cache.ttl",
	"redis-url":   "redis.url",
	"postgres":    "postgres.dsn",
	"fixtures":    "fixtures.path",
	"demo":        "fixtures.demo",
	"concurrency": "matcher.concurrency",
	"admin-token": "server.admin_token",
}

// RegisterFlags adds the flags Load understands to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "path to a YAML config file")
	fs.String("addr", "", "HTTP listen address")
	fs.String("catalog", "", "path to a visa catalog YAML file (default: embedded catalog)")
	fs.Bool("watch", true, "reload the catalog file when it changes")
	fs.String("log-level", "", "log level: debug, info, warn, error")
	fs.String("log-format", "", "log format: json or text")
	fs.String("cache", "", "verdict cache backend: memory, redis, none")
	fs.Duration("cache-ttl", 0, "verdict cache entry lifetime")
	fs.String("redis-url", "", "Redis URL for the redis cache backend")
	fs.String("postgres", "", "PostgreSQL DSN for the job store")
	fs.String("fixtures", "", "YAML fixtures to seed the in-memory stores")
	fs.Bool("demo", true, "seed embedded demo data when no fixtures are given")
	fs.Int("concurrency", 0, "maximum pairs evaluated at once per batch")
	fs.String("admin-token", "", "token required by operator endpoints")
}

// Load builds a Config. path may be empty; flags may be nil.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(Defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			// Only load flags that were explicitly set
			if !f.Changed {
				return "", nil
			}
			key, ok := flagKeys[f.Name]
			if !ok || key == "" {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// envKey transforms VISAMATCH_CACHE__MAX_ENTRIES into cache.max_entries.
func envKey(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
}

func (c *Config) normalize() {
	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
	c.Log.Format = strings.ToLower(strings.TrimSpace(c.Log.Format))
	c.Cache.Backend = strings.ToLower(strings.TrimSpace(c.Cache.Backend))
	c.Catalog.Path = strings.TrimSpace(c.Catalog.Path)
	c.Postgres.DSN = strings.TrimSpace(c.Postgres.DSN)
	c.Redis.URL = strings.TrimSpace(c.Redis.URL)
}

// Validate reports every configuration problem at once.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr is required"))
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level %q must be debug, info, warn, or error", c.Log.Level))
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("log.format %q must be json or text", c.Log.Format))
	}
	switch c.Cache.Backend {
	case CacheNone:
	case CacheMemory, CacheRedis:
		if c.Cache.TTL <= 0 {
			errs = append(errs, errors.New("cache.ttl must be positive"))
		}
		if c.Cache.Backend == CacheRedis && c.Redis.URL == "" {
			errs = append(errs, errors.New("redis.url is required for the redis cache backend"))
		}
		if c.Cache.Backend == CacheMemory && c.Cache.MaxEntries <= 0 {
			errs = append(errs, errors.New("cache.max_entries must be positive"))
		}
	default:
		errs = append(errs, fmt.Errorf("cache.backend %q must be memory, redis, or none", c.Cache.Backend))
	}
	if c.Matcher.Concurrency <= 0 {
		errs = append(errs, errors.New("matcher.concurrency must be positive"))
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("server.shutdown_timeout must be positive"))
	}
	if c.Catalog.Watch && c.Catalog.Path != "" && c.Catalog.Debounce < 0 {
		errs = append(errs, errors.New("catalog.debounce must not be negative"))
	}
	return errors.Join(errs...)
}
