package device

import (
	"context"
	"time"
)

// persistTimeout bounds each hook-driven gateway write. A slow store delays
// at most one cycle's persistence, never the producer's cadence beyond it.
const persistTimeout = 5 * time.Second

// SensorHooks carries the two independent notification slots a sensor fires
// after each production cycle. Either slot may be nil. The zero value is a
// fully inert hook set.
type SensorHooks struct {
	// Broadcast pushes the fresh reading to live consumers (WebSocket,
	// MQTT). It runs on the sensor's goroutine and should return quickly.
	Broadcast func(name string, r Reading)

	// Persist writes the reading to the durable store. Errors are logged
	// by the sensor and never abort the cycle.
	Persist func(ctx context.Context, name string, r Reading) error
}

// SwitchHooks is the switch-flavoured counterpart of SensorHooks.
type SwitchHooks struct {
	Broadcast func(name string, st SwitchState)
	Persist   func(ctx context.Context, name string, st SwitchState) error
}

// dispatch invokes both slots, containing panics and logging persistence
// failures. A misbehaving listener must never kill a device's cycle loop.
func (h SensorHooks) dispatch(name string, r Reading, log Logger) {
	defer func() {
		if p := recover(); p != nil {
			log.Error("sensor hook panicked", "sensor", name, "panic", p)
		}
	}()

	if h.Broadcast != nil {
		h.Broadcast(name, r)
	}
	if h.Persist != nil {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		if err := h.Persist(ctx, name, r); err != nil {
			log.Warn("sensor reading not persisted", "sensor", name, "error", err)
		}
	}
}

func (h SwitchHooks) dispatch(name string, st SwitchState, log Logger) {
	defer func() {
		if p := recover(); p != nil {
			log.Error("switch hook panicked", "switch", name, "panic", p)
		}
	}()

	if h.Broadcast != nil {
		h.Broadcast(name, st)
	}
	if h.Persist != nil {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		if err := h.Persist(ctx, name, st); err != nil {
			log.Warn("switch state not persisted", "switch", name, "error", err)
		}
	}
}
