// FleetSim - Home Automation Device Fleet Simulator
//
// FleetSim simulates a fleet of home-automation devices: drifting sensors,
// command-driven switches and self-toggling passive switches. The fleet is
// exposed over a REST API, a WebSocket event feed and (optionally) MQTT,
// with readings persisted to SQLite and mirrored to InfluxDB for telemetry.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	_ "github.com/nerrad567/fleetsim/migrations"

	"github.com/nerrad567/fleetsim/internal/api"
	"github.com/nerrad567/fleetsim/internal/device"
	"github.com/nerrad567/fleetsim/internal/infrastructure/config"
	"github.com/nerrad567/fleetsim/internal/infrastructure/database"
	"github.com/nerrad567/fleetsim/internal/infrastructure/influxdb"
	"github.com/nerrad567/fleetsim/internal/infrastructure/logging"
	"github.com/nerrad567/fleetsim/internal/infrastructure/mqtt"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting FleetSim",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)

	// Open database and bring the schema up to date
	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// The hub is built before the manager so device notifiers can
	// broadcast through it from the first production cycle.
	hub := api.NewHub(cfg.WebSocket, log)

	// Connect to MQTT broker (optional)
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttClient.SetLogger(log)
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Host, cfg.MQTT.Port),
			"client_id", cfg.MQTT.ClientID,
		)
	} else {
		log.Info("MQTT disabled")
	}

	// Connect to InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	} else {
		log.Info("InfluxDB disabled")
	}

	// Build the device fleet manager
	store := device.NewSQLiteStore(db.DB)
	manager := device.NewManager(store, buildNotifier(hub, mqttClient, influxClient, log))
	manager.SetLogger(log)
	manager.SetReadTimeout(cfg.Simulator.GetSensorReadTimeout())
	manager.SetPassiveSwitchConfig(device.PassiveSwitchConfig{
		MinPeriod: cfg.Simulator.PassiveMinPeriod,
		MaxPeriod: cfg.Simulator.PassiveMaxPeriod,
	})
	manager.SetCorruptionProbability(cfg.Simulator.CorruptionProbability)
	defer func() {
		log.Info("stopping device fleet")
		manager.Shutdown()
	}()

	// Replay the persisted fleet from metadata
	if loadErr := manager.Load(ctx); loadErr != nil {
		return fmt.Errorf("loading device fleet: %w", loadErr)
	}
	log.Info("device fleet loaded", "devices", manager.Count())

	// Accept switch commands over MQTT
	if mqttClient != nil {
		if subErr := subscribeSwitchCommands(ctx, mqttClient, manager, log); subErr != nil {
			return fmt.Errorf("subscribing to switch commands: %w", subErr)
		}
	}

	// Start the API server
	srv, err := api.New(api.Deps{
		Config:      cfg.API,
		WS:          cfg.WebSocket,
		Simulator:   cfg.Simulator,
		Logger:      log,
		Manager:     manager,
		DB:          db,
		MQTT:        mqttClient,
		ExternalHub: hub,
		Version:     version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if startErr := srv.Start(ctx); startErr != nil {
		return fmt.Errorf("starting API server: %w", startErr)
	}
	defer func() {
		if closeErr := srv.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// 1. API server
	// 2. Device fleet
	// 3. InfluxDB (if enabled)
	// 4. MQTT (if enabled)
	// 5. Database

	log.Info("FleetSim stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses FLEETSIM_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("FLEETSIM_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// buildNotifier fans device state changes out to every live consumer:
// WebSocket subscribers, MQTT state topics and the InfluxDB telemetry
// bucket. Any consumer may be nil.
func buildNotifier(hub *api.Hub, mqttClient *mqtt.Client, influxClient *influxdb.Client, log *logging.Logger) device.Notifier {
	topics := mqtt.Topics{}

	return device.Notifier{
		SensorUpdate: func(name string, r device.Reading) {
			payload := map[string]any{
				"name":       name,
				"value":      r.Value,
				"prev_value": r.PrevValue,
				"timestamp":  r.Timestamp,
			}
			hub.Broadcast(api.ChannelSensors, payload)

			if mqttClient != nil {
				publishJSON(mqttClient, topics.Sensor(name), payload, log)
			}
			if influxClient != nil {
				influxClient.WriteSensorReading(name, r.Value, r.Timestamp)
			}
		},
		SwitchUpdate: func(name string, st device.SwitchState) {
			payload := map[string]any{
				"name":      name,
				"on":        st.On,
				"timestamp": st.Timestamp,
			}
			hub.Broadcast(api.ChannelSwitches, payload)

			if mqttClient != nil {
				publishJSON(mqttClient, topics.Switch(name), payload, log)
			}
			if influxClient != nil {
				influxClient.WriteSwitchState(name, st.On, st.Timestamp)
			}
		},
	}
}

// publishJSON marshals payload and publishes it retained so late MQTT
// subscribers see the last known state of every device.
func publishJSON(client *mqtt.Client, topic string, payload any, log *logging.Logger) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Error("marshalling MQTT payload", "topic", topic, "error", err)
		return
	}
	if err := client.PublishRetained(topic, data); err != nil {
		log.Warn("MQTT publish failed", "topic", topic, "error", err)
	}
}

// subscribeSwitchCommands routes fleetsim/switch/{name}/set messages to the
// device manager. Payloads are either a JSON object {"on": bool} or the
// plain strings "on"/"off".
func subscribeSwitchCommands(ctx context.Context, mqttClient *mqtt.Client, manager *device.Manager, log *logging.Logger) error {
	topics := mqtt.Topics{}

	return mqttClient.Subscribe(topics.SwitchCommandWildcard(), 1, func(topic string, payload []byte) error {
		// Topic shape: fleetsim/switch/{name}/set
		parts := strings.Split(topic, "/")
		if len(parts) != 4 {
			log.Warn("unexpected switch command topic", "topic", topic)
			return nil
		}
		name := parts[2]

		on, err := parseSwitchCommand(payload)
		if err != nil {
			log.Warn("unparseable switch command", "topic", topic, "error", err)
			return nil
		}

		if err := manager.SetSwitch(ctx, name, on); err != nil {
			log.Warn("switch command rejected", "switch", name, "on", on, "error", err)
			return nil
		}
		log.Debug("switch command applied", "switch", name, "on", on)
		return nil
	})
}

// parseSwitchCommand accepts {"on": bool} JSON or plain "on"/"off".
func parseSwitchCommand(payload []byte) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(string(payload))) {
	case "on", "true", "1":
		return true, nil
	case "off", "false", "0":
		return false, nil
	}

	var cmd struct {
		On *bool `json:"on"`
	}
	if err := json.Unmarshal(payload, &cmd); err != nil {
		return false, fmt.Errorf("parsing command payload: %w", err)
	}
	if cmd.On == nil {
		return false, fmt.Errorf("command payload missing \"on\" field")
	}
	return *cmd.On, nil
}

// healthCheck verifies all infrastructure connections are healthy.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}
	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}
	return nil
}
