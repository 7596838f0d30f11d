package mqtt

import "fmt"

// TopicPrefix is the root of the FleetSim topic hierarchy.
const TopicPrefix = "fleetsim"

// Topics provides builders for FleetSim MQTT topics. Using these helpers
// keeps topic naming consistent between publishers and subscribers.
type Topics struct{}

// Sensor returns the state topic for a sensor.
//
// Example: fleetsim/sensor/temp-lounge
func (Topics) Sensor(name string) string {
	return fmt.Sprintf("%s/sensor/%s", TopicPrefix, name)
}

// Switch returns the state topic for a switch, active or passive.
//
// Example: fleetsim/switch/relay-hall
func (Topics) Switch(name string) string {
	return fmt.Sprintf("%s/switch/%s", TopicPrefix, name)
}

// SwitchCommand returns the inbound command topic for an active switch.
//
// Example: fleetsim/switch/relay-hall/set
func (Topics) SwitchCommand(name string) string {
	return fmt.Sprintf("%s/switch/%s/set", TopicPrefix, name)
}

// SwitchCommandWildcard matches every switch command topic.
func (Topics) SwitchCommandWildcard() string {
	return TopicPrefix + "/switch/+/set"
}

// SystemStatus returns the retained online/offline status topic.
//
// Example: fleetsim/system/status
func (Topics) SystemStatus() string {
	return TopicPrefix + "/system/status"
}
