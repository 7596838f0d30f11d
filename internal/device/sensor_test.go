package device

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func newTestSensor(t *testing.T, cfg SensorConfig) *Sensor {
	t.Helper()
	if cfg.Max == 0 && cfg.Min == 0 {
		cfg.Min, cfg.Max = 0, 100
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 1
	}
	s, err := NewSensor("temp-lounge", cfg)
	if err != nil {
		t.Fatalf("NewSensor: %v", err)
	}
	s.stall = func() {} // deterministic reads
	return s
}

func TestNewSensorValidation(t *testing.T) {
	tests := []struct {
		testName string
		name     string
		cfg      SensorConfig
		wantErr  error
	}{
		{"empty name", "", SensorConfig{Min: 0, Max: 100, SampleRate: 1}, ErrInvalidName},
		{"blank name", "   ", SensorConfig{Min: 0, Max: 100, SampleRate: 1}, ErrInvalidName},
		{"inverted bounds", "s", SensorConfig{Min: 10, Max: 5, SampleRate: 1}, ErrInvalidBounds},
		{"zero sample rate", "s", SensorConfig{Min: 0, Max: 100, SampleRate: 0}, ErrInvalidSampleRate},
		{"negative sample rate", "s", SensorConfig{Min: 0, Max: 100, SampleRate: -3}, ErrInvalidSampleRate},
	}
	for _, tt := range tests {
		t.Run(tt.testName, func(t *testing.T) {
			if _, err := NewSensor(tt.name, tt.cfg); !errors.Is(err, tt.wantErr) {
				t.Errorf("got %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewSensorStartsAtMidpoint(t *testing.T) {
	s := newTestSensor(t, SensorConfig{Min: 20, Max: 80, SampleRate: 1})
	r := s.ReadData()
	if r.Value == nil || *r.Value != 50 {
		t.Fatalf("initial value = %v, want 50", r.Value)
	}
	if r.PrevValue != nil {
		t.Fatalf("initial prev value = %v, want nil", *r.PrevValue)
	}
}

func TestSensorProduceStaysWithinBounds(t *testing.T) {
	s := newTestSensor(t, SensorConfig{Min: 10, Max: 20, SampleRate: 1, CorruptionProbability: -1})
	for i := 0; i < 1000; i++ {
		r, _, _ := s.produce()
		if r.Value == nil {
			t.Fatalf("cycle %d: corruption disabled but value missing", i)
		}
		if *r.Value < 10 || *r.Value > 20 {
			t.Fatalf("cycle %d: value %v outside [10, 20]", i, *r.Value)
		}
	}
}

func TestSensorCorruptionMissing(t *testing.T) {
	s := newTestSensor(t, SensorConfig{CorruptionProbability: 1})
	r, _, _ := s.produce()
	if r.Value != nil {
		t.Fatalf("value = %v, want missing", *r.Value)
	}
	// First cycle promoted the healthy midpoint before corrupting.
	if r.PrevValue == nil || *r.PrevValue != 50 {
		t.Fatalf("prev value = %v, want 50", r.PrevValue)
	}
}

func TestSensorCorruptionFaulted(t *testing.T) {
	s := newTestSensor(t, SensorConfig{})
	s.corruptProb = 0.5
	draws := []float64{0.9, 0.1} // first draw misses, second fires
	s.roll = func() float64 {
		v := draws[0]
		draws = draws[1:]
		return v
	}
	r, _, _ := s.produce()
	if r.Value == nil || *r.Value != FaultValue {
		t.Fatalf("value = %v, want fault sentinel", r.Value)
	}
}

func TestSensorRecoversFromCorruption(t *testing.T) {
	s := newTestSensor(t, SensorConfig{Min: 0, Max: 100, CorruptionProbability: 1})
	if r, _, _ := s.produce(); r.Value != nil {
		t.Fatal("setup: expected missing value")
	}

	// Healthy cycles resume from the preserved previous value.
	s.corruptProb = 0
	r, _, _ := s.produce()
	if r.Value == nil {
		t.Fatal("expected recovery to a real value")
	}
	if diff := *r.Value - 50; diff < -1 || diff > 1 {
		t.Fatalf("recovered value %v, want within one step of 50", *r.Value)
	}
	// The corrupted cycle must not have clobbered the last healthy value.
	if r.PrevValue == nil || *r.PrevValue != 50 {
		t.Fatalf("prev value = %v, want 50", r.PrevValue)
	}
}

func TestSensorNeverBothAbsent(t *testing.T) {
	s := newTestSensor(t, SensorConfig{CorruptionProbability: 1})
	for i := 0; i < 50; i++ {
		r, _, _ := s.produce()
		if r.Value == nil && r.PrevValue == nil {
			t.Fatalf("cycle %d: value and prev value both absent", i)
		}
	}
}

func TestSetSampleRate(t *testing.T) {
	s := newTestSensor(t, SensorConfig{SampleRate: 5})

	if err := s.SetSampleRate(0); !errors.Is(err, ErrInvalidSampleRate) {
		t.Errorf("SetSampleRate(0) = %v, want ErrInvalidSampleRate", err)
	}
	if got := s.SampleRate(); got != 5 {
		t.Errorf("rate changed to %d on rejected input, want 5", got)
	}

	if err := s.SetSampleRate(2); err != nil {
		t.Fatalf("SetSampleRate(2): %v", err)
	}
	if got := s.SampleRate(); got != 2 {
		t.Errorf("rate = %d, want 2", got)
	}
}

func TestSensorStartStop(t *testing.T) {
	s := newTestSensor(t, SensorConfig{CorruptionProbability: -1})

	var fired atomic.Int64
	s.SetHooks(SensorHooks{
		Broadcast: func(string, Reading) { fired.Add(1) },
	})

	s.Start()
	s.Start() // second Start must not spawn a second loop
	if !s.Running() {
		t.Fatal("sensor not running after Start")
	}

	deadline := time.After(2 * time.Second)
	for fired.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("no hook fired within 2s of Start")
		case <-time.After(10 * time.Millisecond):
		}
	}

	s.Stop()
	if s.Running() {
		t.Fatal("sensor still running after Stop")
	}
	after := fired.Load()
	time.Sleep(50 * time.Millisecond)
	if got := fired.Load(); got != after {
		t.Fatalf("hook fired after Stop returned: %d -> %d", after, got)
	}

	s.Stop() // idempotent
}

func TestSensorHookPanicContained(t *testing.T) {
	s := newTestSensor(t, SensorConfig{CorruptionProbability: -1})
	var fired atomic.Int64
	s.SetHooks(SensorHooks{
		Broadcast: func(string, Reading) {
			fired.Add(1)
			panic("listener exploded")
		},
	})
	s.Start()
	defer s.Stop()

	deadline := time.After(3 * time.Second)
	for fired.Load() < 2 {
		select {
		case <-deadline:
			t.Fatalf("loop died after panic: %d firings", fired.Load())
		case <-time.After(10 * time.Millisecond):
		}
	}
}
