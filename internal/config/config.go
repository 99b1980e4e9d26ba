package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Auth       AuthConfig       `yaml:"auth"`
	Tailscale  TailscaleConfig  `yaml:"tailscale"`
	Cache      CacheConfig      `yaml:"cache"`
	Percentile PercentileConfig `yaml:"percentile"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Importer   ImporterConfig   `yaml:"importer"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
}

type AuthConfig struct {
	APIKey string `yaml:"api_key"`
}

type TailscaleConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Hostname string `yaml:"hostname"`
	StateDir string `yaml:"state_dir"`
}

// CacheConfig sizes the in-process aggregate cache. SizeMB 0 disables it.
type CacheConfig struct {
	SizeMB     int `yaml:"size_mb"`
	TTLSeconds int `yaml:"ttl_seconds"`
}

// PercentileConfig places the lowest interpolation anchor. Zero values
// select the engine defaults.
type PercentileConfig struct {
	FloorPercentile float64 `yaml:"floor_percentile"`
	FloorSpan       float64 `yaml:"floor_span"`
}

type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace"`
}

type ImporterConfig struct {
	StateDir string `yaml:"state_dir"`
}

// DSN returns a PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	sslmode := d.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, sslmode)
}

// Load reads config from a YAML file, then applies environment variable overrides.
// Env vars use the prefix TRAINLOG_ and underscore-separated paths:
//
//	TRAINLOG_SERVER_HOST, TRAINLOG_SERVER_PORT,
//	TRAINLOG_DB_HOST, TRAINLOG_DB_PORT, TRAINLOG_DB_NAME,
//	TRAINLOG_DB_USER, TRAINLOG_DB_PASSWORD, TRAINLOG_DB_SSLMODE,
//	TRAINLOG_AUTH_API_KEY,
//	TRAINLOG_TAILSCALE_ENABLED, TRAINLOG_TAILSCALE_HOSTNAME, TRAINLOG_TAILSCALE_STATE_DIR,
//	TRAINLOG_CACHE_SIZE_MB, TRAINLOG_CACHE_TTL_SECONDS,
//	TRAINLOG_METRICS_ENABLED, TRAINLOG_METRICS_NAMESPACE,
//	TRAINLOG_IMPORTER_STATE_DIR
func Load(path string) (*Config, error) {
	cfg := defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Tailscale: TailscaleConfig{Hostname: "trainlog", StateDir: "tsnet-state"},
		Cache:     CacheConfig{SizeMB: 32, TTLSeconds: 300},
		Metrics:   MetricsConfig{Enabled: true, Namespace: "trainlog"},
		Importer:  ImporterConfig{StateDir: ".trainlog"},
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("TRAINLOG_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	envInt("TRAINLOG_SERVER_PORT", &cfg.Server.Port)
	if v := os.Getenv("TRAINLOG_DB_HOST"); v != "" {
		cfg.Database.Host = v
	}
	envInt("TRAINLOG_DB_PORT", &cfg.Database.Port)
	if v := os.Getenv("TRAINLOG_DB_NAME"); v != "" {
		cfg.Database.Name = v
	}
	if v := os.Getenv("TRAINLOG_DB_USER"); v != "" {
		cfg.Database.User = v
	}
	if v := os.Getenv("TRAINLOG_DB_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("TRAINLOG_DB_SSLMODE"); v != "" {
		cfg.Database.SSLMode = v
	}
	if v := os.Getenv("TRAINLOG_AUTH_API_KEY"); v != "" {
		cfg.Auth.APIKey = v
	}
	envBool("TRAINLOG_TAILSCALE_ENABLED", &cfg.Tailscale.Enabled)
	if v := os.Getenv("TRAINLOG_TAILSCALE_HOSTNAME"); v != "" {
		cfg.Tailscale.Hostname = v
	}
	if v := os.Getenv("TRAINLOG_TAILSCALE_STATE_DIR"); v != "" {
		cfg.Tailscale.StateDir = v
	}
	envInt("TRAINLOG_CACHE_SIZE_MB", &cfg.Cache.SizeMB)
	envInt("TRAINLOG_CACHE_TTL_SECONDS", &cfg.Cache.TTLSeconds)
	envBool("TRAINLOG_METRICS_ENABLED", &cfg.Metrics.Enabled)
	if v := os.Getenv("TRAINLOG_METRICS_NAMESPACE"); v != "" {
		cfg.Metrics.Namespace = v
	}
	if v := os.Getenv("TRAINLOG_IMPORTER_STATE_DIR"); v != "" {
		cfg.Importer.StateDir = v
	}
}

// envInt overwrites dst when the variable holds a valid integer.
func envInt(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envBool(key string, dst *bool) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func (c *Config) validate() error {
	if c.Server.Port == 0 && !c.Tailscale.Enabled {
		return fmt.Errorf("server.port is required")
	}
	if c.Database.Host == "" {
		return fmt.Errorf("database.host is required")
	}
	if c.Database.Port == 0 {
		return fmt.Errorf("database.port is required")
	}
	if c.Database.Name == "" {
		return fmt.Errorf("database.name is required")
	}
	if c.Database.User == "" {
		return fmt.Errorf("database.user is required")
	}
	if c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key is required")
	}
	if c.Tailscale.Enabled && c.Tailscale.Hostname == "" {
		return fmt.Errorf("tailscale.hostname is required when tailscale is enabled")
	}
	if c.Cache.SizeMB < 0 {
		return fmt.Errorf("cache.size_mb must not be negative")
	}
	if c.Cache.TTLSeconds < 0 {
		return fmt.Errorf("cache.ttl_seconds must not be negative")
	}
	if p := c.Percentile.FloorPercentile; p != 0 && (p < 1 || p >= 50) {
		return fmt.Errorf("percentile.floor_percentile must be in [1, 50)")
	}
	if c.Percentile.FloorSpan < 0 {
		return fmt.Errorf("percentile.floor_span must not be negative")
	}
	if c.Metrics.Enabled && c.Metrics.Namespace == "" {
		return fmt.Errorf("metrics.namespace is required when metrics are enabled")
	}
	return nil
}
