package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/charlesng35/portcullis/internal/database"
)

// Config represents the runtime configuration for the Portcullis server.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Engine      EngineConfig      `mapstructure:"engine"`
	Auth        AuthConfig        `mapstructure:"auth"`
	Passes      PassesConfig      `mapstructure:"passes"`
	Archive     ArchiveConfig     `mapstructure:"archive"`
	Maintenance MaintenanceConfig `mapstructure:"maintenance"`
	Monitoring  MonitoringConfig  `mapstructure:"monitoring"`
	Seed        SeedConfig        `mapstructure:"seed"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port        int             `mapstructure:"port"`
	LogLevel    string          `mapstructure:"log_level"`
	LogEncoding string          `mapstructure:"log_encoding"`
	RateLimit   RateLimitConfig `mapstructure:"rate_limit"`
}

// RateLimitConfig bounds requests per client IP on the API group.
type RateLimitConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

// EngineConfig tunes the authorization engine and the in-memory audit log.
type EngineConfig struct {
	AuditCapacity int    `mapstructure:"audit_capacity"`
	Timezone      string `mapstructure:"timezone"`
}

// Location resolves the engine timezone. Schedules without their own timezone and the
// hour-of-day metrics both use it.
func (c EngineConfig) Location() (*time.Location, error) {
	name := strings.TrimSpace(c.Timezone)
	if name == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("config: engine timezone %q: %w", name, err)
	}
	return loc, nil
}

// AuthConfig protects the administrative API. An empty secret disables the check.
type AuthConfig struct {
	AdminSecret string `mapstructure:"admin_secret"`
}

// PassesConfig configures signed QR access passes.
type PassesConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Secret  string        `mapstructure:"secret"`
	Issuer  string        `mapstructure:"issuer"`
	TTL     time.Duration `mapstructure:"ttl"`
	QRSize  int           `mapstructure:"qr_size"`
}

// ArchiveConfig describes the durable audit archive.
type ArchiveConfig struct {
	Enabled       bool              `mapstructure:"enabled"`
	Driver        string            `mapstructure:"driver"`
	Path          string            `mapstructure:"path"`
	DSN           string            `mapstructure:"dsn"`
	Host          string            `mapstructure:"host"`
	Port          int               `mapstructure:"port"`
	Name          string            `mapstructure:"name"`
	User          string            `mapstructure:"user"`
	Password      string            `mapstructure:"password"`
	Options       map[string]string `mapstructure:"options"`
	LogQueries    bool              `mapstructure:"log_queries"`
	RetentionDays int               `mapstructure:"retention_days"`
	QueueSize     int               `mapstructure:"queue_size"`
	BatchSize     int               `mapstructure:"batch_size"`
	FlushInterval time.Duration     `mapstructure:"flush_interval"`
}

// Database converts the archive section into connection settings.
func (c ArchiveConfig) Database() database.Config {
	return database.Config{
		Driver:     c.Driver,
		Path:       c.Path,
		DSN:        c.DSN,
		Host:       c.Host,
		Port:       c.Port,
		Name:       c.Name,
		User:       c.User,
		Password:   c.Password,
		Options:    c.Options,
		LogQueries: c.LogQueries,
	}
}

// MaintenanceConfig holds cron specifications for background jobs.
type MaintenanceConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	MetricsRefresh string `mapstructure:"metrics_refresh"`
	ArchiveCleanup string `mapstructure:"archive_cleanup"`
}

// MonitoringConfig enables metrics exposition.
type MonitoringConfig struct {
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
}

// PrometheusConfig toggles metrics endpoints.
type PrometheusConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
}

// LoadConfig initialises application configuration using Viper with sensible defaults.
func LoadConfig(paths ...string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AddConfigPath("./config")
	for _, path := range paths {
		v.AddConfigPath(path)
	}

	setDefaults(v)

	v.SetEnvPrefix("PORTCULLIS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var cfgErr viper.ConfigFileNotFoundError
		if !errors.As(err, &cfgErr) {
			return nil, fmt.Errorf("config: read file: %w", err)
		}
	}

	return decode(v)
}

// LoadConfigFile reads a single explicit file instead of searching the config paths.
func LoadConfigFile(file string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(file)

	setDefaults(v)

	v.SetEnvPrefix("PORTCULLIS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: read file %s: %w", file, err)
	}

	return decode(v)
}

func decode(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config, decodeHook()); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	if _, err := config.Engine.Location(); err != nil {
		return nil, err
	}
	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.log_encoding", "json")
	v.SetDefault("server.rate_limit.enabled", true)
	v.SetDefault("server.rate_limit.requests", 120)
	v.SetDefault("server.rate_limit.window", "1m")

	v.SetDefault("engine.audit_capacity", 10000)
	v.SetDefault("engine.timezone", "UTC")

	v.SetDefault("auth.admin_secret", "")

	v.SetDefault("passes.enabled", true)
	v.SetDefault("passes.secret", "")
	v.SetDefault("passes.issuer", "Portcullis")
	v.SetDefault("passes.ttl", "5m")
	v.SetDefault("passes.qr_size", 256)

	v.SetDefault("archive.enabled", false)
	v.SetDefault("archive.driver", "sqlite")
	v.SetDefault("archive.path", "./data/portcullis.sqlite")
	v.SetDefault("archive.retention_days", 90)
	v.SetDefault("archive.queue_size", 1024)
	v.SetDefault("archive.batch_size", 100)
	v.SetDefault("archive.flush_interval", "2s")
	v.SetDefault("archive.log_queries", false)

	v.SetDefault("maintenance.enabled", true)
	v.SetDefault("maintenance.metrics_refresh", "@every 1m")
	v.SetDefault("maintenance.archive_cleanup", "@daily")

	v.SetDefault("monitoring.prometheus.enabled", true)
	v.SetDefault("monitoring.prometheus.endpoint", "/metrics")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToTimeHookFunc(time.RFC3339),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}
