package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig            `mapstructure:"server"`
	Log       LogConfig               `mapstructure:"log"`
	Settings  SettingsConfig          `mapstructure:"settings"`
	Redis     RedisConfig             `mapstructure:"redis"`
	RateLimit RateLimitConfig         `mapstructure:"rate_limit"`
	Tracing   TracingConfig           `mapstructure:"tracing"`
	Reload    ReloadConfig            `mapstructure:"reload"`
	Vendors   map[string]VendorConfig `mapstructure:"vendors"`
}

type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Env            string   `mapstructure:"env"`
	APIKeys        []string `mapstructure:"api_keys"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// SettingsConfig selects where credentials and the Ollama host are read from.
type SettingsConfig struct {
	// Context is "store" (environment first, then the persisted store) or
	// "env" (environment only).
	Context      string        `mapstructure:"context"`
	Driver       string        `mapstructure:"driver"` // sqlite, redis, memory
	DSN          string        `mapstructure:"dsn"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

type TracingConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	ServiceName string `mapstructure:"service_name"`
}

type ReloadConfig struct {
	DrainTimeout time.Duration `mapstructure:"drain_timeout"`
}

// VendorConfig overrides the built-in defaults of one upstream vendor.
type VendorConfig struct {
	BaseURL string            `mapstructure:"base_url"`
	Options map[string]string `mapstructure:"options"`
}

// ProviderConfig is the resolved configuration handed to a provider factory.
type ProviderConfig struct {
	ID      string            `json:"id" mapstructure:"id"`
	Type    string            `json:"type" mapstructure:"type"`
	Name    string            `json:"name" mapstructure:"name"`
	APIKey  string            `json:"-" mapstructure:"api_key"`
	BaseURL string            `json:"base_url" mapstructure:"base_url"`
	Config  map[string]string `json:"config" mapstructure:"config"`
}

const (
	ContextStore = "store"
	ContextEnv   = "env"
)

var ErrInvalidConfig = errors.New("invalid configuration")

// LoadConfig reads configuration from file or environment variables.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.env", "development")
	v.SetDefault("server.api_keys", []string{})
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("settings.context", ContextStore)
	v.SetDefault("settings.driver", "sqlite")
	v.SetDefault("settings.dsn", "file:settings.db?_journal_mode=WAL&_busy_timeout=5000")
	v.SetDefault("settings.poll_interval", 2*time.Second)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "chat-registry:settings:")
	v.SetDefault("rate_limit.requests_per_second", 10.0)
	v.SetDefault("rate_limit.burst", 20)
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.service_name", "chat-registry")
	v.SetDefault("reload.drain_timeout", 30*time.Second)
}

// Validate rejects values the rest of the program cannot act on.
func (c *Config) Validate() error {
	switch c.Settings.Context {
	case ContextStore, ContextEnv:
	default:
		return fmt.Errorf("%w: settings.context must be %q or %q, got %q",
			ErrInvalidConfig, ContextStore, ContextEnv, c.Settings.Context)
	}

	switch c.Settings.Driver {
	case "sqlite", "redis", "memory":
	default:
		return fmt.Errorf("%w: unknown settings.driver %q", ErrInvalidConfig, c.Settings.Driver)
	}

	return nil
}

// Vendor returns the override for a vendor, or the zero value.
func (c *Config) Vendor(name string) VendorConfig {
	if c.Vendors == nil {
		return VendorConfig{}
	}
	return c.Vendors[name]
}
