package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database.Path != "./data/fleetsim.db" {
		t.Errorf("database path = %q", cfg.Database.Path)
	}
	if cfg.API.Port != 8080 {
		t.Errorf("api port = %d", cfg.API.Port)
	}
	if cfg.Simulator.ReadTimeout != 6 {
		t.Errorf("read timeout = %d", cfg.Simulator.ReadTimeout)
	}
	if cfg.MQTT.Enabled || cfg.InfluxDB.Enabled {
		t.Error("optional integrations should default to disabled")
	}
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
api:
  port: 9090
simulator:
  read_timeout: 3
  passive_min_period: 2
  passive_max_period: 4
logging:
  level: debug
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.API.Port != 9090 {
		t.Errorf("api port = %d, want 9090", cfg.API.Port)
	}
	if cfg.Simulator.ReadTimeout != 3 {
		t.Errorf("read timeout = %d, want 3", cfg.Simulator.ReadTimeout)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("level = %q, want debug", cfg.Logging.Level)
	}
	// Untouched sections keep their defaults.
	if !cfg.Database.WALMode {
		t.Error("wal_mode default lost")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("FLEETSIM_DATABASE_PATH", "/tmp/override.db")
	t.Setenv("FLEETSIM_MQTT_PASSWORD", "hunter2")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database.Path != "/tmp/override.db" {
		t.Errorf("database path = %q", cfg.Database.Path)
	}
	if cfg.MQTT.Password != "hunter2" {
		t.Errorf("mqtt password not overridden")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty db path", func(c *Config) { c.Database.Path = "" }},
		{"bad api port", func(c *Config) { c.API.Port = 0 }},
		{"mqtt enabled without host", func(c *Config) { c.MQTT.Enabled = true; c.MQTT.Host = "" }},
		{"influx enabled without token", func(c *Config) { c.InfluxDB.Enabled = true }},
		{"zero read timeout", func(c *Config) { c.Simulator.ReadTimeout = 0 }},
		{"inverted passive periods", func(c *Config) { c.Simulator.PassiveMinPeriod = 30; c.Simulator.PassiveMaxPeriod = 5 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate accepted invalid config")
			}
		})
	}
}
