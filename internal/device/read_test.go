package device

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestReadWithTimeoutFastPath(t *testing.T) {
	s := newTestSensor(t, SensorConfig{Min: 20, Max: 80})

	r, err := readWithTimeout(context.Background(), s, 100*time.Millisecond)
	if err != nil {
		t.Fatalf("readWithTimeout: %v", err)
	}
	if r.Value == nil || *r.Value != 50 {
		t.Fatalf("value = %v, want 50", r.Value)
	}
}

func TestReadWithTimeoutExpires(t *testing.T) {
	s := newTestSensor(t, SensorConfig{})
	s.stall = func() { time.Sleep(500 * time.Millisecond) }

	start := time.Now()
	_, err := readWithTimeout(context.Background(), s, 50*time.Millisecond)
	if !errors.Is(err, ErrReadTimeout) {
		t.Fatalf("err = %v, want ErrReadTimeout", err)
	}
	if elapsed := time.Since(start); elapsed > 300*time.Millisecond {
		t.Fatalf("timeout not honoured: returned after %v", elapsed)
	}
}

func TestReadWithTimeoutHonoursContext(t *testing.T) {
	s := newTestSensor(t, SensorConfig{})
	s.stall = func() { time.Sleep(500 * time.Millisecond) }

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := readWithTimeout(ctx, s, 10*time.Second)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}
