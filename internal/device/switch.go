package device

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Switch is a command-driven on/off actuator. It owns no background task;
// its state only changes when SetState is called.
//
// All methods are safe for concurrent use.
type Switch struct {
	name string

	mu        sync.Mutex
	on        bool
	timestamp int64
}

// NewSwitch returns a switch in the off position.
func NewSwitch(name string) (*Switch, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: name is empty", ErrInvalidName)
	}
	return &Switch{
		name:      name,
		timestamp: time.Now().Unix(),
	}, nil
}

// Name returns the switch's fleet-wide identifier.
func (s *Switch) Name() string { return s.name }

// Kind returns KindSwitch.
func (s *Switch) Kind() Kind { return KindSwitch }

// State returns the current position and when it last changed.
func (s *Switch) State() SwitchState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SwitchState{On: s.on, Timestamp: s.timestamp}
}

// SetState moves the switch and stamps the change time. Position and
// timestamp update atomically.
func (s *Switch) SetState(on bool) SwitchState {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.on = on
	s.timestamp = time.Now().Unix()
	return SwitchState{On: s.on, Timestamp: s.timestamp}
}
