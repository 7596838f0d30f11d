package device

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Notifier carries the live fan-out callbacks the Manager wires into every
// enabled device. Either slot may be nil.
type Notifier struct {
	SensorUpdate func(name string, r Reading)
	SwitchUpdate func(name string, st SwitchState)
}

// Manager owns the device fleet: a concurrency-safe name→device map plus
// lifecycle orchestration (hook wiring, background-task start/stop) and
// best-effort persistence through the Gateway.
//
// Persistence is availability-first: when a gateway write fails the
// in-memory mutation stands, the error is surfaced to the caller wrapped
// in ErrPersistence, and the fleet keeps running.
type Manager struct {
	mu      sync.RWMutex
	devices map[string]Device

	gateway  Gateway
	notifier Notifier
	logger   Logger

	readTimeout    time.Duration
	passiveCfg     PassiveSwitchConfig
	corruptionProb float64
}

// NewManager returns an empty fleet backed by gateway. The notifier's
// callbacks are wired into every device enabled through this manager.
func NewManager(gateway Gateway, notifier Notifier) *Manager {
	return &Manager{
		devices:     make(map[string]Device),
		gateway:     gateway,
		notifier:    notifier,
		logger:      noopLogger{},
		readTimeout: defaultReadTimeout,
	}
}

// SetLogger replaces the manager's logger and is propagated to devices as
// they are enabled. Pass nil to silence.
func (m *Manager) SetLogger(l Logger) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if l == nil {
		l = noopLogger{}
	}
	m.logger = l
}

// SetReadTimeout overrides the bound on synchronous sensor reads.
// Non-positive values are ignored.
func (m *Manager) SetReadTimeout(d time.Duration) {
	if d <= 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readTimeout = d
}

// SetPassiveSwitchConfig sets the flip-period bounds used when replaying
// passive switches from persisted metadata.
func (m *Manager) SetPassiveSwitchConfig(cfg PassiveSwitchConfig) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.passiveCfg = cfg
}

// SetCorruptionProbability sets the per-draw corruption chance used when
// replaying sensors from persisted metadata.
func (m *Manager) SetCorruptionProbability(p float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.corruptionProb = p
}

// Add registers a device under its name, enables it (hooks wired,
// background task started where the variant has one) and persists its
// metadata. Duplicate names are rejected with ErrExists regardless of
// variant.
//
// A persistence failure is returned but the device stays registered and
// running; the caller can retry or accept the volatile registration.
func (m *Manager) Add(ctx context.Context, dev Device) error {
	if dev == nil {
		return fmt.Errorf("%w: nil device", ErrInvalidName)
	}
	name := dev.Name()

	m.mu.Lock()
	if _, ok := m.devices[name]; ok {
		m.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrExists, name)
	}
	// Reject unknown variants before they occupy the name.
	switch dev.(type) {
	case *Sensor, *Switch, *PassiveSwitch:
	default:
		m.mu.Unlock()
		return fmt.Errorf("%w: unknown device variant %T", ErrWrongType, dev)
	}
	m.devices[name] = dev
	log := m.logger
	m.mu.Unlock()

	var persistErr error
	switch d := dev.(type) {
	case *Sensor:
		m.armSensor(d)
		persistErr = m.gateway.InsertSensorMetadata(ctx, SensorMetadata{
			Name:       d.Name(),
			Min:        d.Min(),
			Max:        d.Max(),
			SampleRate: d.SampleRate(),
		})
	case *PassiveSwitch:
		m.armPassiveSwitch(d)
		persistErr = m.gateway.InsertSwitchMetadata(ctx, SwitchMetadata{Name: name, Kind: KindPassiveSwitch})
	case *Switch:
		persistErr = m.gateway.InsertSwitchMetadata(ctx, SwitchMetadata{Name: name, Kind: KindSwitch})
	}

	if persistErr != nil {
		log.Error("device metadata not persisted", "device", name, "error", persistErr)
		return persistErr
	}
	log.Info("device added", "device", name, "kind", dev.Kind())
	return nil
}

// Remove stops the named device's background task, waits for it to exit,
// evicts it from the fleet and deletes its persisted records. After Remove
// returns no hook fires for the name and it is free for re-registration,
// with any variant.
func (m *Manager) Remove(ctx context.Context, name string) error {
	m.mu.Lock()
	dev, ok := m.devices[name]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	}

	// Stop under the lock: arming also runs under it, so once the task is
	// cancelled here nothing can restart it before the eviction below.
	if r, isRunner := dev.(runner); isRunner {
		r.Stop()
	}
	delete(m.devices, name)
	log := m.logger
	m.mu.Unlock()

	if err := m.gateway.DeleteDevice(ctx, name); err != nil {
		log.Error("device records not deleted", "device", name, "error", err)
		return err
	}
	log.Info("device removed", "device", name)
	return nil
}

// Devices lists the registered fleet sorted by name.
func (m *Manager) Devices() []Info {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Info, 0, len(m.devices))
	for _, d := range m.devices {
		out = append(out, Info{Name: d.Name(), Kind: d.Kind()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Count returns the number of registered devices.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.devices)
}

// EnableSensor re-arms the named sensor: stops any running task, rewires
// hooks against the manager's current notifier and gateway, and starts it.
// Strict: ErrNotFound if absent, ErrWrongType if not a sensor.
func (m *Manager) EnableSensor(name string) error {
	return m.enableSensor(name, true)
}

// EnableAllSensors sweeps the fleet re-arming every sensor. Devices of
// other variants are skipped silently.
func (m *Manager) EnableAllSensors() {
	for _, name := range m.names() {
		_ = m.enableSensor(name, false)
	}
}

// EnablePassiveSwitch re-arms the named passive switch. Strict variant
// checking, as EnableSensor.
func (m *Manager) EnablePassiveSwitch(name string) error {
	return m.enablePassiveSwitch(name, true)
}

// EnableAllSwitches sweeps the fleet re-arming every passive switch.
// Active switches have no background task and are skipped, as is every
// other variant.
func (m *Manager) EnableAllSwitches() {
	for _, name := range m.names() {
		_ = m.enablePassiveSwitch(name, false)
	}
}

// SensorData performs a timeout-bounded read of the named sensor. The
// bound covers the device's sporadic read stalls; on expiry the caller
// gets ErrReadTimeout while the abandoned read finishes harmlessly in the
// background. Strict: ErrNotFound / ErrWrongType on mismatch.
func (m *Manager) SensorData(ctx context.Context, name string) (Reading, error) {
	m.mu.RLock()
	dev, ok := m.devices[name]
	timeout := m.readTimeout
	m.mu.RUnlock()
	if !ok {
		return Reading{}, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	s, isSensor := dev.(*Sensor)
	if !isSensor {
		return Reading{}, fmt.Errorf("%w: %q is not a sensor", ErrWrongType, name)
	}
	return readWithTimeout(ctx, s, timeout)
}

// AllSensorData reads every sensor in the fleet, each under the bounded
// read. Non-sensor devices are skipped; a read timeout aborts the sweep.
func (m *Manager) AllSensorData(ctx context.Context) (map[string]Reading, error) {
	out := make(map[string]Reading)
	for _, name := range m.names() {
		m.mu.RLock()
		dev, ok := m.devices[name]
		timeout := m.readTimeout
		m.mu.RUnlock()
		if !ok {
			continue
		}
		s, isSensor := dev.(*Sensor)
		if !isSensor {
			continue
		}
		r, err := readWithTimeout(ctx, s, timeout)
		if err != nil {
			return nil, err
		}
		out[name] = r
	}
	return out, nil
}

// SetSensorSampleRate changes the named sensor's cadence. Strict variant
// checking; rates below one second return ErrInvalidSampleRate.
func (m *Manager) SetSensorSampleRate(name string, seconds int) error {
	m.mu.RLock()
	dev, ok := m.devices[name]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	s, isSensor := dev.(*Sensor)
	if !isSensor {
		return fmt.Errorf("%w: %q is not a sensor", ErrWrongType, name)
	}
	return s.SetSampleRate(seconds)
}

// SwitchState returns the named switch's position. Both active and passive
// switches qualify. Strict: ErrNotFound / ErrWrongType on mismatch.
func (m *Manager) SwitchState(name string) (SwitchState, error) {
	m.mu.RLock()
	dev, ok := m.devices[name]
	m.mu.RUnlock()
	if !ok {
		return SwitchState{}, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	switch d := dev.(type) {
	case *Switch:
		return d.State(), nil
	case *PassiveSwitch:
		return d.State(), nil
	default:
		return SwitchState{}, fmt.Errorf("%w: %q is not a switch", ErrWrongType, name)
	}
}

// AllSwitchStates reports the position of every switch in the fleet,
// active and passive alike. Other variants are skipped.
func (m *Manager) AllSwitchStates() map[string]SwitchState {
	out := make(map[string]SwitchState)
	m.mu.RLock()
	defer m.mu.RUnlock()
	for name, dev := range m.devices {
		switch d := dev.(type) {
		case *Switch:
			out[name] = d.State()
		case *PassiveSwitch:
			out[name] = d.State()
		}
	}
	return out
}

// SetSwitch commands the named active switch, then fans the change out to
// the notifier and persists it best-effort. Passive switches reject the
// command with ErrNotSupported; other variants with ErrWrongType.
//
// A persistence failure is surfaced wrapped in ErrPersistence, but the
// switch has already moved: commands are never rolled back.
func (m *Manager) SetSwitch(ctx context.Context, name string, on bool) error {
	return m.setSwitch(ctx, name, on, true)
}

// SetAllSwitches commands every active switch in the fleet. Passive
// switches and other variants are skipped silently. The first persistence
// failure is remembered and returned after the sweep completes.
func (m *Manager) SetAllSwitches(ctx context.Context, on bool) error {
	var firstErr error
	for _, name := range m.names() {
		if err := m.setSwitch(ctx, name, on, false); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Load replays persisted metadata through the normal Add path,
// reconstructing and enabling the fleet as it stood before restart. Live
// values are volatile: sensors restart from their midpoint, switches from
// off. Metadata inserts are idempotent so the replay re-persisting each
// device is harmless.
func (m *Manager) Load(ctx context.Context) error {
	m.mu.RLock()
	passiveCfg := m.passiveCfg
	corruption := m.corruptionProb
	log := m.logger
	m.mu.RUnlock()

	sensors, err := m.gateway.ListSensorMetadata(ctx)
	if err != nil {
		return fmt.Errorf("loading sensor metadata: %w", err)
	}
	for _, meta := range sensors {
		s, err := NewSensor(meta.Name, SensorConfig{
			Min:                   meta.Min,
			Max:                   meta.Max,
			SampleRate:            meta.SampleRate,
			CorruptionProbability: corruption,
		})
		if err != nil {
			return fmt.Errorf("replaying sensor %q: %w", meta.Name, err)
		}
		if err := m.Add(ctx, s); err != nil {
			return fmt.Errorf("replaying sensor %q: %w", meta.Name, err)
		}
	}

	switches, err := m.gateway.ListSwitchMetadata(ctx)
	if err != nil {
		return fmt.Errorf("loading switch metadata: %w", err)
	}
	for _, meta := range switches {
		var dev Device
		switch meta.Kind {
		case KindPassiveSwitch:
			p, err := NewPassiveSwitch(meta.Name, passiveCfg)
			if err != nil {
				return fmt.Errorf("replaying switch %q: %w", meta.Name, err)
			}
			dev = p
		case KindSwitch:
			sw, err := NewSwitch(meta.Name)
			if err != nil {
				return fmt.Errorf("replaying switch %q: %w", meta.Name, err)
			}
			dev = sw
		default:
			return fmt.Errorf("%w: persisted switch %q has unknown kind %q", ErrWrongType, meta.Name, meta.Kind)
		}
		if err := m.Add(ctx, dev); err != nil {
			return fmt.Errorf("replaying switch %q: %w", meta.Name, err)
		}
	}

	log.Info("fleet replayed from store", "sensors", len(sensors), "switches", len(switches))
	return nil
}

// Shutdown stops every background task and waits for each to exit. The
// fleet map is left intact; metadata stays persisted for the next start.
func (m *Manager) Shutdown() {
	m.mu.RLock()
	running := make([]runner, 0, len(m.devices))
	for _, dev := range m.devices {
		if r, ok := dev.(runner); ok {
			running = append(running, r)
		}
	}
	m.mu.RUnlock()
	for _, r := range running {
		r.Stop()
	}
}

// names snapshots the registered device names so sweeps never hold the
// fleet lock across per-device work.
func (m *Manager) names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.devices))
	for name := range m.devices {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (m *Manager) enableSensor(name string, strict bool) error {
	m.mu.RLock()
	dev, ok := m.devices[name]
	m.mu.RUnlock()
	if !ok {
		if strict {
			return fmt.Errorf("%w: %q", ErrNotFound, name)
		}
		return nil
	}
	s, isSensor := dev.(*Sensor)
	if !isSensor {
		if strict {
			return fmt.Errorf("%w: %q is not a sensor", ErrWrongType, name)
		}
		return nil
	}
	m.armSensor(s)
	return nil
}

func (m *Manager) enablePassiveSwitch(name string, strict bool) error {
	m.mu.RLock()
	dev, ok := m.devices[name]
	m.mu.RUnlock()
	if !ok {
		if strict {
			return fmt.Errorf("%w: %q", ErrNotFound, name)
		}
		return nil
	}
	p, isPassive := dev.(*PassiveSwitch)
	if !isPassive {
		if strict {
			return fmt.Errorf("%w: %q is not a passive switch", ErrWrongType, name)
		}
		return nil
	}
	m.armPassiveSwitch(p)
	return nil
}

// armSensor (re)wires a sensor's hooks and (re)starts its cycle loop.
// Stop-before-start guarantees at most one goroutine per device even when
// enable is called on an already running sensor, and the restart happens
// under the fleet lock so it cannot race Remove: a device that has been
// evicted (or replaced under the same name) is never restarted.
func (m *Manager) armSensor(s *Sensor) {
	s.Stop()

	m.mu.RLock()
	defer m.mu.RUnlock()
	if cur, ok := m.devices[s.Name()]; !ok || cur != Device(s) {
		return
	}
	s.SetLogger(m.logger)
	s.SetHooks(SensorHooks{
		Broadcast: m.notifier.SensorUpdate,
		Persist:   m.gateway.InsertSensorReading,
	})
	s.Start()
}

func (m *Manager) armPassiveSwitch(p *PassiveSwitch) {
	p.Stop()

	m.mu.RLock()
	defer m.mu.RUnlock()
	if cur, ok := m.devices[p.Name()]; !ok || cur != Device(p) {
		return
	}
	p.SetLogger(m.logger)
	p.SetHooks(SwitchHooks{
		Broadcast: m.notifier.SwitchUpdate,
		Persist:   m.gateway.InsertSwitchReading,
	})
	p.Start()
}

func (m *Manager) setSwitch(ctx context.Context, name string, on bool, strict bool) error {
	m.mu.RLock()
	dev, ok := m.devices[name]
	notifier := m.notifier
	log := m.logger
	m.mu.RUnlock()
	if !ok {
		if strict {
			return fmt.Errorf("%w: %q", ErrNotFound, name)
		}
		return nil
	}

	switch d := dev.(type) {
	case *Switch:
		st := d.SetState(on)
		if notifier.SwitchUpdate != nil {
			notifier.SwitchUpdate(name, st)
		}
		if err := m.gateway.InsertSwitchReading(ctx, name, st); err != nil {
			log.Warn("switch state not persisted", "switch", name, "error", err)
			return err
		}
		return nil
	case *PassiveSwitch:
		if strict {
			return fmt.Errorf("%w: %q is a passive switch", ErrNotSupported, name)
		}
		return nil
	default:
		if strict {
			return fmt.Errorf("%w: %q is not a switch", ErrWrongType, name)
		}
		return nil
	}
}
