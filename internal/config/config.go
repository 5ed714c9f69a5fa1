package config

import (
	"net/url"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	API    APIConfig    `yaml:"api" mapstructure:"api"`
	Map    MapConfig    `yaml:"map" mapstructure:"map"`
	Cache  CacheConfig  `yaml:"cache" mapstructure:"cache"`
	Server ServerConfig `yaml:"server" mapstructure:"server"`
	Chat   ChatConfig   `yaml:"chat" mapstructure:"chat"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
}

// APIConfig configures the price API client.
type APIConfig struct {
	BaseURL     string  `yaml:"base_url" mapstructure:"base_url"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries  int     `yaml:"max_retries" mapstructure:"max_retries"`
	RateLimit   float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
	UserAgent   string  `yaml:"user_agent" mapstructure:"user_agent"`
	// BreakerThreshold consecutive failures open the circuit; 0 disables it.
	BreakerThreshold   int `yaml:"breaker_threshold" mapstructure:"breaker_threshold"`
	BreakerCooldownSec int `yaml:"breaker_cooldown_secs" mapstructure:"breaker_cooldown_secs"`
}

// MapConfig configures the base map.
type MapConfig struct {
	StyleURL    string `yaml:"style_url" mapstructure:"style_url"`
	AccessToken string `yaml:"access_token" mapstructure:"access_token"`
}

// CacheConfig configures the geometry caches. An empty Path disables the
// on-disk tier.
type CacheConfig struct {
	Path             string `yaml:"path" mapstructure:"path"`
	GeometryTTLHours int    `yaml:"geometry_ttl_hours" mapstructure:"geometry_ttl_hours"`
	MemoryEntries    int    `yaml:"memory_entries" mapstructure:"memory_entries"`
	MemoryTTLMins    int    `yaml:"memory_ttl_mins" mapstructure:"memory_ttl_mins"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// ChatConfig configures the assistant panel.
type ChatConfig struct {
	Language string `yaml:"language" mapstructure:"language"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from .env, file and environment.
func Load() (*Config, error) {
	// .env is optional and never overrides the real environment.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, eris.Wrap(err, "config: read .env")
	}

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("SMARTMAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("map.access_token", "SMARTMAP_MAP_ACCESS_TOKEN", "MAPBOX_TOKEN"); err != nil {
		return nil, eris.Wrap(err, "config: bind env")
	}

	// Defaults
	v.SetDefault("api.base_url", "http://localhost:8000")
	v.SetDefault("api.timeout_secs", 30)
	v.SetDefault("api.max_retries", 1)
	v.SetDefault("api.rate_limit", 20)
	v.SetDefault("api.user_agent", "smartmap/1.0")
	v.SetDefault("api.breaker_threshold", 5)
	v.SetDefault("api.breaker_cooldown_secs", 30)
	v.SetDefault("map.style_url", "mapbox://styles/mapbox/light-v11")
	v.SetDefault("cache.path", "")
	v.SetDefault("cache.geometry_ttl_hours", 24*7)
	v.SetDefault("cache.memory_entries", 16)
	v.SetDefault("cache.memory_ttl_mins", 60)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("chat.language", "fr")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

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

// Validate checks the settings a command needs.
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "render", "export", "years", "ask":
	case "serve":
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, "server.port must be > 0 and <= 65535")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if u, err := url.Parse(c.API.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, "api.base_url must be an absolute URL")
	}
	if c.API.TimeoutSecs <= 0 {
		errs = append(errs, "api.timeout_secs must be > 0")
	}
	if c.API.MaxRetries < 1 {
		errs = append(errs, "api.max_retries must be >= 1")
	}
	if c.API.RateLimit <= 0 {
		errs = append(errs, "api.rate_limit must be > 0")
	}
	if c.Cache.MemoryEntries < 0 {
		errs = append(errs, "cache.memory_entries must be >= 0")
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
