package device

// Kind identifies a device variant. The set is closed: the Manager rejects
// anything it does not recognise.
type Kind string

// Device variants.
const (
	KindSensor        Kind = "sensor"
	KindSwitch        Kind = "active_switch"
	KindPassiveSwitch Kind = "passive_switch"
)

// FaultValue is the sentinel a faulted sensor reports instead of a real
// reading. It is always outside any configured sensor range.
const FaultValue float64 = -999999

// Device is the minimal contract every fleet member satisfies.
type Device interface {
	// Name returns the device's unique fleet-wide identifier.
	Name() string

	// Kind returns the device variant.
	Kind() Kind
}

// runner is implemented by devices that own a background production task.
type runner interface {
	Start()
	Stop()
}

// Reading is a snapshot of a sensor's observable state.
//
// Value is nil while the reading is missing (signal dropout); a present
// Value equal to FaultValue indicates a faulted probe. PrevValue holds the
// last healthy value and is nil only before the first healthy production.
type Reading struct {
	Value     *float64 `json:"value"`
	PrevValue *float64 `json:"prev_value"`
	Timestamp int64    `json:"timestamp"`
}

// SwitchState is a snapshot of a switch's observable state.
type SwitchState struct {
	On        bool  `json:"on"`
	Timestamp int64 `json:"timestamp"`
}

// Info is the directory entry the Manager reports for a registered device.
type Info struct {
	Name string `json:"name"`
	Kind Kind   `json:"kind"`
}

// SensorMetadata is the durable description of a sensor: everything needed
// to reconstruct it after a restart. Live values are deliberately excluded;
// a reconstructed sensor starts from its range midpoint.
type SensorMetadata struct {
	Name       string
	Min        float64
	Max        float64
	SampleRate int
}

// SwitchMetadata is the durable description of a switch.
type SwitchMetadata struct {
	Name string
	Kind Kind
}

func float64Ptr(v float64) *float64 { return &v }

// copyFloat returns an independent copy of p, or nil.
func copyFloat(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// clip constrains v to [min, max].
func clip(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
