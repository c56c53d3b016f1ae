package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Origin      OriginConfig      `yaml:"origin" mapstructure:"origin"`
	Table       TableConfig       `yaml:"table" mapstructure:"table"`
	Geocode     GeocodeConfig     `yaml:"geocode" mapstructure:"geocode"`
	Recalc      RecalcConfig      `yaml:"recalc" mapstructure:"recalc"`
	Corrections CorrectionsConfig `yaml:"corrections" mapstructure:"corrections"`
	Store       StoreConfig       `yaml:"store" mapstructure:"store"`
	Jitter      JitterConfig      `yaml:"jitter" mapstructure:"jitter"`
	Server      ServerConfig      `yaml:"server" mapstructure:"server"`
	Log         LogConfig         `yaml:"log" mapstructure:"log"`
}

// OriginConfig is the point distances and ETAs are measured from.
type OriginConfig struct {
	Lat float64 `yaml:"lat" mapstructure:"lat"`
	Lng float64 `yaml:"lng" mapstructure:"lng"`
}

// TableConfig locates the location table. Source is a path or an
// http(s), ftp, or s3 URL.
type TableConfig struct {
	Source      string   `yaml:"source" mapstructure:"source"`
	UserAgent   string   `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSecs int      `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries  int      `yaml:"max_retries" mapstructure:"max_retries"`
	S3          S3Config `yaml:"s3" mapstructure:"s3"`
}

// S3Config holds credentials for s3:// table sources.
type S3Config struct {
	Endpoint  string `yaml:"endpoint" mapstructure:"endpoint"`
	AccessKey string `yaml:"access_key" mapstructure:"access_key"`
	SecretKey string `yaml:"secret_key" mapstructure:"secret_key"`
	Region    string `yaml:"region" mapstructure:"region"`
	Insecure  bool   `yaml:"insecure" mapstructure:"insecure"`
}

// GeocodeConfig configures the Nominatim client.
type GeocodeConfig struct {
	BaseURL          string  `yaml:"base_url" mapstructure:"base_url"`
	UserAgent        string  `yaml:"user_agent" mapstructure:"user_agent"`
	Limit            int     `yaml:"limit" mapstructure:"limit"`
	RatePerSec       float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	TimeoutSecs      int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	BreakerThreshold int     `yaml:"breaker_threshold" mapstructure:"breaker_threshold"`
	// Policy is "prefer" (buildings and places first) or "first".
	Policy string      `yaml:"policy" mapstructure:"policy"`
	Cache  CacheConfig `yaml:"cache" mapstructure:"cache"`
}

// CacheConfig configures the geocode result cache.
type CacheConfig struct {
	Driver        string `yaml:"driver" mapstructure:"driver"` // sqlite, redis, or none
	Path          string `yaml:"path" mapstructure:"path"`
	TTLDays       int    `yaml:"ttl_days" mapstructure:"ttl_days"`
	RedisAddr     string `yaml:"redis_addr" mapstructure:"redis_addr"`
	RedisPassword string `yaml:"redis_password" mapstructure:"redis_password"`
	RedisDB       int    `yaml:"redis_db" mapstructure:"redis_db"`
}

// RecalcConfig configures batch recalculation.
type RecalcConfig struct {
	MinDelay time.Duration `yaml:"min_delay" mapstructure:"min_delay"`
}

// CorrectionsConfig points at an optional YAML corrections file.
type CorrectionsConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// StoreConfig configures the notes store.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	FallbackDir string `yaml:"fallback_dir" mapstructure:"fallback_dir"`
}

// JitterConfig selects how overlapping markers are spread.
type JitterConfig struct {
	Mode string `yaml:"mode" mapstructure:"mode"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment. A .env file in the
// working directory is loaded first when present.
func Load() (*Config, error) {
	_ = godotenv.Load(".env")

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("CTMAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("origin.lat", 41.3387)
	v.SetDefault("origin.lng", -71.9076)
	v.SetDefault("table.source", "CT_locations.csv")
	v.SetDefault("table.user_agent", "ctmap/1.0")
	v.SetDefault("table.timeout_secs", 30)
	v.SetDefault("table.max_retries", 3)
	v.SetDefault("table.s3.endpoint", "s3.amazonaws.com")
	v.SetDefault("table.s3.access_key", "")
	v.SetDefault("table.s3.secret_key", "")
	v.SetDefault("geocode.base_url", "https://nominatim.openstreetmap.org")
	v.SetDefault("geocode.user_agent", "ctmap/1.0 (family trip planner)")
	v.SetDefault("geocode.limit", 5)
	v.SetDefault("geocode.rate_per_sec", 1.0)
	v.SetDefault("geocode.timeout_secs", 15)
	v.SetDefault("geocode.breaker_threshold", 5)
	v.SetDefault("geocode.policy", "prefer")
	v.SetDefault("geocode.cache.driver", "sqlite")
	v.SetDefault("geocode.cache.path", "geocode-cache.db")
	v.SetDefault("geocode.cache.ttl_days", 90)
	v.SetDefault("geocode.cache.redis_addr", "localhost:6379")
	v.SetDefault("recalc.min_delay", "100ms")
	v.SetDefault("corrections.path", "")
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "ctmap.db")
	v.SetDefault("store.fallback_dir", ".")
	v.SetDefault("jitter.mode", "seeded")
	v.SetDefault("server.port", 8080)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings a command needs. mode is one of recalc,
// geocode, export, notes, or serve.
func (c *Config) Validate(mode string) error {
	var errs []string

	needsTable := false
	needsGeocoder := false
	needsStore := false

	switch mode {
	case "recalc":
		needsGeocoder = true
	case "geocode":
		needsGeocoder = true
	case "export":
		needsTable, needsStore = true, true
	case "notes":
		needsTable, needsStore = true, true
	case "serve":
		needsTable, needsGeocoder, needsStore = true, true, true
		if c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if c.Origin.Lat < -90 || c.Origin.Lat > 90 || c.Origin.Lng < -180 || c.Origin.Lng > 180 {
		errs = append(errs, fmt.Sprintf("origin (%g, %g) is not a valid coordinate", c.Origin.Lat, c.Origin.Lng))
	}
	if needsTable && c.Table.Source == "" {
		errs = append(errs, "table.source is required")
	}
	if needsGeocoder {
		if c.Geocode.BaseURL == "" {
			errs = append(errs, "geocode.base_url is required")
		}
		if c.Geocode.UserAgent == "" {
			errs = append(errs, "geocode.user_agent is required")
		}
		if c.Geocode.RatePerSec <= 0 {
			errs = append(errs, "geocode.rate_per_sec must be > 0")
		}
		switch c.Geocode.Policy {
		case "", "prefer", "first":
		default:
			errs = append(errs, fmt.Sprintf("geocode.policy %q must be prefer or first", c.Geocode.Policy))
		}
		switch c.Geocode.Cache.Driver {
		case "", "none":
		case "sqlite":
			if c.Geocode.Cache.Path == "" {
				errs = append(errs, "geocode.cache.path is required for the sqlite cache")
			}
		case "redis":
			if c.Geocode.Cache.RedisAddr == "" {
				errs = append(errs, "geocode.cache.redis_addr is required for the redis cache")
			}
		default:
			errs = append(errs, fmt.Sprintf("geocode.cache.driver %q must be sqlite, redis, or none", c.Geocode.Cache.Driver))
		}
	}
	if needsStore {
		switch c.Store.Driver {
		case "sqlite", "postgres":
		default:
			errs = append(errs, fmt.Sprintf("store.driver %q must be sqlite or postgres", c.Store.Driver))
		}
		if c.Store.DatabaseURL == "" {
			errs = append(errs, "store.database_url is required")
		}
		if c.Store.FallbackDir == "" {
			errs = append(errs, "store.fallback_dir is required")
		}
	}
	if needsTable || needsStore {
		switch c.Jitter.Mode {
		case "", "seeded", "random", "none":
		default:
			errs = append(errs, fmt.Sprintf("jitter.mode %q must be seeded, random, or none", c.Jitter.Mode))
		}
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
