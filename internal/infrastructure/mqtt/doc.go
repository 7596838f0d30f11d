// Package mqtt wraps paho.mqtt.golang for the FleetSim broker bridge.
//
// The bridge mirrors every device update onto the broker so external
// consumers (dashboards, rule engines, recorders) can follow the fleet
// without touching the HTTP API, and accepts switch commands back over
// the command topics.
//
// Topic scheme:
//
//	fleetsim/sensor/{name}          sensor readings (retained)
//	fleetsim/switch/{name}          switch state (retained)
//	fleetsim/switch/{name}/set      inbound switch commands
//	fleetsim/system/status          online/offline status (retained, LWT)
//
// The client reconnects automatically with backoff and restores
// subscriptions on reconnect. All methods are safe for concurrent use.
package mqtt
