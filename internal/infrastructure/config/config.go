// Package config handles loading and validation of FleetSim configuration.
//
// Configuration is loaded from a YAML file with sensible defaults applied
// for any omitted section, then overridden by FLEETSIM_* environment
// variables for deployment-specific secrets (tokens, broker credentials).
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure, mapping config.yaml.
type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Logging   LoggingConfig   `yaml:"logging"`
	Simulator SimulatorConfig `yaml:"simulator"`
}

// DatabaseConfig configures the SQLite store.
type DatabaseConfig struct {
	// Path is the filesystem path to the SQLite database file.
	Path string `yaml:"path"`

	// WALMode enables Write-Ahead Logging for concurrent reads.
	WALMode bool `yaml:"wal_mode"`

	// BusyTimeout is the maximum wait for a database lock, in seconds.
	BusyTimeout int `yaml:"busy_timeout"`
}

// MQTTConfig configures the optional MQTT bridge.
type MQTTConfig struct {
	// Enabled toggles the bridge; the simulator runs fine without a broker.
	Enabled bool `yaml:"enabled"`

	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	ClientID string `yaml:"client_id"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`

	// QoS for published state updates (0, 1 or 2).
	QoS byte `yaml:"qos"`
}

// APIConfig configures the HTTP server.
type APIConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`

	// Timeouts in seconds.
	ReadTimeout  int `yaml:"read_timeout"`
	WriteTimeout int `yaml:"write_timeout"`
	IdleTimeout  int `yaml:"idle_timeout"`
}

// WebSocketConfig configures the live-update WebSocket endpoint.
type WebSocketConfig struct {
	// MaxMessageSize is the largest inbound client frame, in bytes.
	MaxMessageSize int64 `yaml:"max_message_size"`

	// PingInterval is how often the server pings idle clients, in seconds.
	PingInterval int `yaml:"ping_interval"`

	// WriteTimeout is the per-frame write deadline, in seconds.
	WriteTimeout int `yaml:"write_timeout"`

	// SendBuffer is the per-client outbound queue length. Broadcasts to
	// a client whose queue is full are dropped.
	SendBuffer int `yaml:"send_buffer"`
}

// InfluxDBConfig configures the optional time-series mirror.
type InfluxDBConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
	Token   string `yaml:"token"`
	Org     string `yaml:"org"`
	Bucket  string `yaml:"bucket"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	// Level is one of: debug, info, warn, error.
	Level string `yaml:"level"`

	// Format is "json" or "text".
	Format string `yaml:"format"`

	// Output is "stdout" or "stderr".
	Output string `yaml:"output"`
}

// SimulatorConfig tunes fleet-wide simulation behaviour.
type SimulatorConfig struct {
	// ReadTimeout bounds synchronous sensor reads, in seconds.
	ReadTimeout int `yaml:"read_timeout"`

	// PassiveMinPeriod and PassiveMaxPeriod bound the randomised flip
	// period of passive switches, in seconds.
	PassiveMinPeriod int `yaml:"passive_min_period"`
	PassiveMaxPeriod int `yaml:"passive_max_period"`

	// CorruptionProbability is the per-draw chance of each sensor
	// corruption mode. Zero means the built-in default (0.01); negative
	// disables corruption, which is useful in development.
	CorruptionProbability float64 `yaml:"corruption_probability"`
}

// Load reads configuration from the specified YAML file, applies
// environment variable overrides and validates the result.
//
// A missing file is not an error: defaults plus environment overrides
// apply, so the simulator runs out of the box.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// Fall through to defaults.
	default:
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// Default returns the configuration used when config.yaml is absent.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:        "./data/fleetsim.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Enabled:  false,
			Host:     "localhost",
			Port:     1883,
			ClientID: "fleetsim",
			QoS:      1,
		},
		API: APIConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30,
			WriteTimeout: 60,
			IdleTimeout:  60,
		},
		WebSocket: WebSocketConfig{
			MaxMessageSize: 8192,
			PingInterval:   30,
			WriteTimeout:   10,
			SendBuffer:     32,
		},
		InfluxDB: InfluxDBConfig{
			Enabled: false,
			URL:     "http://localhost:8086",
			Org:     "fleetsim",
			Bucket:  "devices",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Simulator: SimulatorConfig{
			ReadTimeout:      6,
			PassiveMinPeriod: 5,
			PassiveMaxPeriod: 60,
		},
	}
}

// applyEnvOverrides lets deployment environments inject secrets and
// endpoints without editing config.yaml.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("FLEETSIM_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("FLEETSIM_MQTT_HOST"); v != "" {
		cfg.MQTT.Host = v
	}
	if v := os.Getenv("FLEETSIM_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Username = v
	}
	if v := os.Getenv("FLEETSIM_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Password = v
	}
	if v := os.Getenv("FLEETSIM_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v := os.Getenv("FLEETSIM_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
}

// Validate checks the configuration for logical errors.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Database.BusyTimeout < 0 {
		return fmt.Errorf("database.busy_timeout must not be negative")
	}
	if c.API.Port < 1 || c.API.Port > 65535 {
		return fmt.Errorf("api.port must be between 1 and 65535")
	}
	if c.MQTT.Enabled {
		if c.MQTT.Host == "" {
			return fmt.Errorf("mqtt.host is required when mqtt is enabled")
		}
		if c.MQTT.Port < 1 || c.MQTT.Port > 65535 {
			return fmt.Errorf("mqtt.port must be between 1 and 65535")
		}
		if c.MQTT.QoS > 2 {
			return fmt.Errorf("mqtt.qos must be 0, 1 or 2")
		}
	}
	if c.InfluxDB.Enabled {
		if c.InfluxDB.URL == "" {
			return fmt.Errorf("influxdb.url is required when influxdb is enabled")
		}
		if c.InfluxDB.Token == "" {
			return fmt.Errorf("influxdb.token is required when influxdb is enabled")
		}
	}
	if c.Simulator.ReadTimeout < 1 {
		return fmt.Errorf("simulator.read_timeout must be at least 1 second")
	}
	if c.Simulator.PassiveMinPeriod < 1 || c.Simulator.PassiveMaxPeriod < c.Simulator.PassiveMinPeriod {
		return fmt.Errorf("simulator passive switch periods must satisfy 1 <= min <= max")
	}
	return nil
}

// GetReadTimeout returns the API read timeout as a duration.
func (c *APIConfig) GetReadTimeout() time.Duration {
	return time.Duration(c.ReadTimeout) * time.Second
}

// GetWriteTimeout returns the API write timeout as a duration.
func (c *APIConfig) GetWriteTimeout() time.Duration {
	return time.Duration(c.WriteTimeout) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a duration.
func (c *APIConfig) GetIdleTimeout() time.Duration {
	return time.Duration(c.IdleTimeout) * time.Second
}

// GetSensorReadTimeout returns the bounded-read timeout as a duration.
func (c *SimulatorConfig) GetSensorReadTimeout() time.Duration {
	return time.Duration(c.ReadTimeout) * time.Second
}
