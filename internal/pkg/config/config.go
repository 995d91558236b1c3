package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/samirrijal/trainboard/internal/core/domain"
)

// Config holds all application configuration.
type Config struct {
	Backend   BackendConfig   `mapstructure:"backend"`
	IPGeo     IPGeoConfig     `mapstructure:"ipgeo"`
	Device    DeviceConfig    `mapstructure:"device"`
	Search    SearchConfig    `mapstructure:"search"`
	Store     StoreConfig     `mapstructure:"store"`
	Arrivals  ArrivalsConfig  `mapstructure:"arrivals"`
	GTFSRT    GTFSRTConfig    `mapstructure:"gtfsrt"`
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Valkey    ValkeyConfig    `mapstructure:"valkey"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Log       LogConfig       `mapstructure:"log"`
}

type BackendConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type IPGeoConfig struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// DeviceConfig selects the device geolocation driver: gpsd, static or none.
type DeviceConfig struct {
	Driver   string        `mapstructure:"driver"`
	GPSDAddr string        `mapstructure:"gpsd_addr"`
	Lat      float64       `mapstructure:"lat"`
	Lng      float64       `mapstructure:"lng"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type SearchConfig struct {
	Radius string `mapstructure:"radius"`
}

// StoreConfig selects where the cached location lives: file, valkey or postgres.
type StoreConfig struct {
	Driver string `mapstructure:"driver"`
	Dir    string `mapstructure:"dir"`
}

// ArrivalsConfig selects the arrivals source: backend or gtfsrt.
type ArrivalsConfig struct {
	Source string `mapstructure:"source"`
}

type GTFSRTConfig struct {
	Feeds   []string      `mapstructure:"feeds"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// ServerConfig controls the local status server. Port 0 disables it.
type ServerConfig struct {
	Port         int `mapstructure:"port"`
	ReadTimeout  int `mapstructure:"read_timeout"`
	WriteTimeout int `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

// NATSConfig is optional; an empty URL disables snapshot publishing.
type NATSConfig struct {
	URL string `mapstructure:"url"`
}

type ValkeyConfig struct {
	Addr string `mapstructure:"addr"`
}

type TelemetryConfig struct {
	ServiceName string `mapstructure:"service_name"`
	TempoAddr   string `mapstructure:"tempo_addr"`
	Enabled     bool   `mapstructure:"enabled"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Radius parses the configured search radius.
func (c *Config) Radius() (domain.Radius, error) {
	return domain.ParseRadius(c.Search.Radius)
}

// Load reads configuration from .env, an optional config file and
// environment variables, in increasing order of precedence.
func Load(service string) (*Config, error) {
	_ = godotenv.Load() // OK if missing

	v := viper.New()

	// Defaults
	v.SetDefault("backend.base_url", "http://localhost:3000")
	v.SetDefault("backend.timeout", 10*time.Second)
	v.SetDefault("ipgeo.url", "https://ipapi.co/json/")
	v.SetDefault("ipgeo.timeout", 5*time.Second)
	v.SetDefault("device.driver", "gpsd")
	v.SetDefault("device.gpsd_addr", "localhost:2947")
	v.SetDefault("device.timeout", 10*time.Second)
	v.SetDefault("search.radius", "0.5")
	v.SetDefault("store.driver", "file")
	v.SetDefault("store.dir", ".trainboard")
	v.SetDefault("arrivals.source", "backend")
	v.SetDefault("gtfsrt.timeout", 10*time.Second)
	v.SetDefault("server.port", 0)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 10)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "trainboard")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "trainboard")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("nats.url", "")
	v.SetDefault("valkey.addr", "localhost:6379")
	v.SetDefault("telemetry.service_name", service)
	v.SetDefault("telemetry.tempo_addr", "localhost:4317")
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	_ = v.ReadInConfig() // OK if missing

	// Environment variables: TRAINBOARD_BACKEND_BASE_URL → backend.base_url
	v.SetEnvPrefix("TRAINBOARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks that required configuration fields are present and sane.
func (c *Config) Validate() error {
	var errs []string

	if c.Backend.BaseURL == "" {
		errs = append(errs, "backend.base_url is required")
	}
	if c.Backend.Timeout <= 0 {
		errs = append(errs, "backend.timeout must be positive")
	}
	if c.IPGeo.URL == "" {
		errs = append(errs, "ipgeo.url is required")
	}
	if c.IPGeo.Timeout <= 0 {
		errs = append(errs, "ipgeo.timeout must be positive")
	}
	if _, err := c.Radius(); err != nil {
		errs = append(errs, fmt.Sprintf("search.radius: %v", err))
	}

	switch c.Device.Driver {
	case "gpsd":
		if c.Device.GPSDAddr == "" {
			errs = append(errs, "device.gpsd_addr is required for the gpsd driver")
		}
	case "static":
		if !(domain.Coordinate{Lat: c.Device.Lat, Lng: c.Device.Lng}).Valid() {
			errs = append(errs, fmt.Sprintf("device.lat/lng out of range: %v,%v", c.Device.Lat, c.Device.Lng))
		}
	case "none":
	default:
		errs = append(errs, fmt.Sprintf("device.driver must be gpsd, static or none, got %q", c.Device.Driver))
	}
	if c.Device.Timeout <= 0 {
		errs = append(errs, "device.timeout must be positive")
	}

	switch c.Store.Driver {
	case "file":
		if c.Store.Dir == "" {
			errs = append(errs, "store.dir is required for the file store")
		}
	case "valkey":
		if c.Valkey.Addr == "" {
			errs = append(errs, "valkey.addr is required for the valkey store")
		}
	case "postgres":
		if c.Database.Host == "" {
			errs = append(errs, "database.host is required")
		}
		if c.Database.Port <= 0 || c.Database.Port > 65535 {
			errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", c.Database.Port))
		}
		if c.Database.User == "" {
			errs = append(errs, "database.user is required")
		}
		if c.Database.DBName == "" {
			errs = append(errs, "database.dbname is required")
		}
	default:
		errs = append(errs, fmt.Sprintf("store.driver must be file, valkey or postgres, got %q", c.Store.Driver))
	}

	switch c.Arrivals.Source {
	case "backend":
	case "gtfsrt":
		if c.GTFSRT.Timeout <= 0 {
			errs = append(errs, "gtfsrt.timeout must be positive")
		}
	default:
		errs = append(errs, fmt.Sprintf("arrivals.source must be backend or gtfsrt, got %q", c.Arrivals.Source))
	}

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 0-65535, got %d", c.Server.Port))
	}
	if c.Server.Port > 0 {
		if c.Server.ReadTimeout <= 0 {
			errs = append(errs, "server.read_timeout must be positive")
		}
		if c.Server.WriteTimeout <= 0 {
			errs = append(errs, "server.write_timeout must be positive")
		}
	}
	if c.Telemetry.Enabled && c.Telemetry.TempoAddr == "" {
		errs = append(errs, "telemetry.tempo_addr is required when telemetry is enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
