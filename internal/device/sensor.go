package device

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"
)

// Sensor production and read-path tuning.
const (
	// defaultCorruptionProbability is the per-draw chance of each of the
	// two independent corruption modes (missing, faulted).
	defaultCorruptionProbability = 0.01

	// stallProbability is the per-draw chance of each of the two
	// independent read stalls.
	stallProbability = 0.01

	readStallShort = 5 * time.Second
	readStallLong  = 30 * time.Second
)

// SensorConfig describes a sensor at construction time.
type SensorConfig struct {
	// Min and Max bound every healthy reading, inclusive.
	Min float64
	Max float64

	// SampleRate is the production cadence in whole seconds. Must be >= 1.
	SampleRate int

	// CorruptionProbability overrides the default 1% per-draw corruption
	// chance. Zero means default; negative disables corruption entirely.
	CorruptionProbability float64
}

// Sensor simulates a numeric probe. Once started it produces a fresh
// reading every SampleRate seconds: the value drifts by -1%, 0 or +1% of
// Max per cycle, clipped to [Min, Max], and each cycle independently risks
// reporting a missing or faulted reading instead.
//
// All exported methods are safe for concurrent use. The background cycle
// loop is the sole mutator of the live value once started; ReadData only
// snapshots under the lock.
type Sensor struct {
	name string
	min  float64
	max  float64

	mu         sync.Mutex
	value      *float64
	prevValue  *float64
	timestamp  int64
	sampleRate int
	hooks      SensorHooks
	cancel     context.CancelFunc
	done       chan struct{}

	corruptProb float64
	logger      Logger

	// roll draws a uniform float in [0,1). Replaceable in tests to force
	// or forbid corruption without racing the cycle loop.
	roll func() float64

	// stall simulates the read path's sporadic latency. Replaceable in
	// tests so bounded-read behaviour can be exercised deterministically.
	stall func()
}

// NewSensor validates the configuration and returns an idle sensor. The
// initial value is the midpoint of [Min, Max]; there is no previous value
// until the first healthy cycle completes.
func NewSensor(name string, cfg SensorConfig) (*Sensor, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: name is empty", ErrInvalidName)
	}
	if cfg.Min > cfg.Max {
		return nil, fmt.Errorf("%w: min %.2f > max %.2f", ErrInvalidBounds, cfg.Min, cfg.Max)
	}
	if cfg.SampleRate < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidSampleRate, cfg.SampleRate)
	}

	prob := cfg.CorruptionProbability
	switch {
	case prob == 0:
		prob = defaultCorruptionProbability
	case prob < 0:
		prob = 0
	}

	s := &Sensor{
		name:        name,
		min:         cfg.Min,
		max:         cfg.Max,
		value:       float64Ptr((cfg.Min + cfg.Max) / 2),
		timestamp:   time.Now().Unix(),
		sampleRate:  cfg.SampleRate,
		corruptProb: prob,
		logger:      noopLogger{},
		roll:        rand.Float64,
	}
	s.stall = s.randomStall
	return s, nil
}

// Name returns the sensor's fleet-wide identifier.
func (s *Sensor) Name() string { return s.name }

// Kind returns KindSensor.
func (s *Sensor) Kind() Kind { return KindSensor }

// Min returns the lower bound of healthy readings.
func (s *Sensor) Min() float64 { return s.min }

// Max returns the upper bound of healthy readings.
func (s *Sensor) Max() float64 { return s.max }

// SampleRate returns the current production cadence in seconds.
func (s *Sensor) SampleRate() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sampleRate
}

// SetLogger replaces the sensor's logger. Pass nil to silence it.
func (s *Sensor) SetLogger(l Logger) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l == nil {
		l = noopLogger{}
	}
	s.logger = l
}

// SetHooks replaces the notification hook set. The new hooks take effect
// from the next production cycle.
func (s *Sensor) SetHooks(h SensorHooks) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks = h
}

// SetSampleRate changes the production cadence. Values below one second are
// rejected with ErrInvalidSampleRate and leave the current rate untouched.
// A running sensor picks up the new rate at its next cycle boundary; an
// in-flight sleep is not interrupted.
func (s *Sensor) SetSampleRate(seconds int) error {
	if seconds < 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidSampleRate, seconds)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sampleRate = seconds
	return nil
}

// Start launches the background cycle loop. Calling Start on a running
// sensor is a no-op.
func (s *Sensor) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done
	go s.run(ctx, done)
}

// Stop cancels the cycle loop and waits for it to exit. After Stop returns
// no further hook invocations occur. Stopping an idle sensor is a no-op.
func (s *Sensor) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Running reports whether the cycle loop is active.
func (s *Sensor) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil
}

// ReadData returns a snapshot of the live reading. The read path sporadically
// stalls (two independent 1% draws adding 5s and 30s respectively), which is
// why callers should go through the Manager's bounded read instead.
func (s *Sensor) ReadData() Reading {
	s.stall()
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Sensor) snapshotLocked() Reading {
	return Reading{
		Value:     copyFloat(s.value),
		PrevValue: copyFloat(s.prevValue),
		Timestamp: s.timestamp,
	}
}

func (s *Sensor) randomStall() {
	if rand.Float64() < stallProbability {
		s.logger.Warn("sensor read stalled", "sensor", s.name, "delay", readStallShort)
		time.Sleep(readStallShort)
	}
	if rand.Float64() < stallProbability {
		s.logger.Warn("sensor read stalled", "sensor", s.name, "delay", readStallLong)
		time.Sleep(readStallLong)
	}
}

// run is the cycle loop: produce, fan out, sleep, repeat. Production happens
// immediately on start so consumers see data without waiting a full cycle.
func (s *Sensor) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	for {
		reading, hooks, log := s.produce()
		hooks.dispatch(s.name, reading, log)

		s.mu.Lock()
		interval := time.Duration(s.sampleRate) * time.Second
		s.mu.Unlock()

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// produce advances the simulation by one cycle.
//
// Ordering matters and is load-bearing:
//  1. If the current value is healthy, promote it to prevValue.
//  2. Drift: healthy values step by a delta drawn from {-1%, 0, +1%} of
//     Max; missing or faulted values recover by stepping from prevValue
//     (or the range midpoint if no healthy value ever existed).
//  3. Clip into [Min, Max].
//  4. Two independent corruption draws may replace the result with a
//     missing reading or the fault sentinel.
func (s *Sensor) produce() (Reading, SensorHooks, Logger) {
	s.mu.Lock()
	defer s.mu.Unlock()

	healthy := s.value != nil && *s.value != FaultValue
	if healthy {
		s.prevValue = copyFloat(s.value)
	}

	delta := float64(rand.IntN(3)-1) * 0.01 * s.max

	var base float64
	switch {
	case healthy:
		base = *s.value
	case s.prevValue != nil:
		base = *s.prevValue
	default:
		base = (s.min + s.max) / 2
	}
	next := clip(base+delta, s.min, s.max)

	s.value = s.corrupt(next)
	s.timestamp = time.Now().Unix()
	return s.snapshotLocked(), s.hooks, s.logger
}

// corrupt subjects a freshly computed value to the two independent failure
// draws. Missing wins over faulted when both fire.
func (s *Sensor) corrupt(v float64) *float64 {
	if s.roll() < s.corruptProb {
		s.logger.Warn("sensor reading corrupted", "sensor", s.name, "mode", "missing")
		return nil
	}
	if s.roll() < s.corruptProb {
		s.logger.Warn("sensor reading corrupted", "sensor", s.name, "mode", "faulted")
		return float64Ptr(FaultValue)
	}
	return &v
}
