package config

import (
	"strings"
	"testing"
	"time"
)

func validConfig() Config {
	return Config{
		Backend:  BackendConfig{BaseURL: "http://localhost:3000", Timeout: 10 * time.Second},
		IPGeo:    IPGeoConfig{URL: "https://ipapi.co/json/", Timeout: 5 * time.Second},
		Device:   DeviceConfig{Driver: "gpsd", GPSDAddr: "localhost:2947", Timeout: 10 * time.Second},
		Search:   SearchConfig{Radius: "0.5"},
		Store:    StoreConfig{Driver: "file", Dir: ".trainboard"},
		Arrivals: ArrivalsConfig{Source: "backend"},
		Log:      LogConfig{Level: "info", Format: "text"},
	}
}

func TestValidate_Defaults(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
	r, err := cfg.Radius()
	if err != nil || r.Miles != 0.5 || r.Demo {
		t.Errorf("expected radius 0.5, got %v (%v)", r, err)
	}
}

func TestValidate_DemoRadius(t *testing.T) {
	cfg := validConfig()
	cfg.Search.Radius = "demo"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected demo radius to be valid, got %v", err)
	}
	if r, _ := cfg.Radius(); !r.Demo {
		t.Errorf("expected demo radius, got %v", r)
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"ipgeo without timeout", func(c *Config) { c.IPGeo.Timeout = 0 }, "ipgeo.timeout"},
		{"bad radius", func(c *Config) { c.Search.Radius = "-1" }, "search.radius"},
		{"unknown device", func(c *Config) { c.Device.Driver = "bluetooth" }, "device.driver"},
		{"static out of range", func(c *Config) { c.Device.Driver = "static"; c.Device.Lat = 95 }, "device.lat/lng"},
		{"unknown store", func(c *Config) { c.Store.Driver = "sqlite" }, "store.driver"},
		{"postgres without host", func(c *Config) { c.Store.Driver = "postgres"; c.Database.Port = 5432; c.Database.User = "u"; c.Database.DBName = "d" }, "database.host"},
		{"unknown arrivals", func(c *Config) { c.Arrivals.Source = "bus" }, "arrivals.source"},
		{"gtfsrt without timeout", func(c *Config) { c.Arrivals.Source = "gtfsrt" }, "gtfsrt.timeout"},
		{"server port", func(c *Config) { c.Server.Port = 70000 }, "server.port"},
		{"telemetry without addr", func(c *Config) { c.Telemetry.Enabled = true }, "telemetry.tempo_addr"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected a validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error mentioning %q, got %v", tt.want, err)
			}
		})
	}
}

func TestValidate_AggregatesErrors(t *testing.T) {
	cfg := validConfig()
	cfg.Backend.BaseURL = ""
	cfg.Store.Driver = "nope"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected a validation error")
	}
	if !strings.Contains(err.Error(), "backend.base_url") || !strings.Contains(err.Error(), "store.driver") {
		t.Errorf("expected both problems reported, got %v", err)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("TRAINBOARD_SEARCH_RADIUS", "demo")
	t.Setenv("TRAINBOARD_ARRIVALS_SOURCE", "gtfsrt")
	t.Setenv("TRAINBOARD_SERVER_PORT", "8080")

	cfg, err := Load("trainboard-test")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Search.Radius != "demo" {
		t.Errorf("expected radius demo, got %q", cfg.Search.Radius)
	}
	if cfg.Arrivals.Source != "gtfsrt" || cfg.GTFSRT.Timeout != 10*time.Second {
		t.Errorf("expected gtfsrt with default timeout, got %q %v", cfg.Arrivals.Source, cfg.GTFSRT.Timeout)
	}
	if cfg.IPGeo.Timeout != 5*time.Second || cfg.Backend.Timeout != 10*time.Second {
		t.Errorf("expected separate ipgeo/backend timeouts 5s/10s, got %v/%v", cfg.IPGeo.Timeout, cfg.Backend.Timeout)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("expected port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Telemetry.ServiceName != "trainboard-test" {
		t.Errorf("expected service name default, got %q", cfg.Telemetry.ServiceName)
	}
	if cfg.Store.Driver != "file" || cfg.Device.Driver != "gpsd" {
		t.Errorf("unexpected defaults store=%q device=%q", cfg.Store.Driver, cfg.Device.Driver)
	}
}
