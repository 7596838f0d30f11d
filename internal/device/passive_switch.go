package device

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"
)

// Default flip-period bounds for passive switches, in seconds.
const (
	defaultPassiveMinPeriod = 5
	defaultPassiveMaxPeriod = 60
)

// PassiveSwitchConfig bounds the randomised flip period. A fresh period is
// drawn uniformly from [MinPeriod, MaxPeriod] seconds after every flip.
type PassiveSwitchConfig struct {
	MinPeriod int
	MaxPeriod int
}

// PassiveSwitch is an environment-driven switch: once started it toggles
// itself at randomised intervals and cannot be commanded. Think door
// contact or motion sensor output rather than a relay.
//
// All methods are safe for concurrent use.
type PassiveSwitch struct {
	name      string
	minPeriod int
	maxPeriod int

	mu        sync.Mutex
	on        bool
	timestamp int64
	hooks     SwitchHooks
	cancel    context.CancelFunc
	done      chan struct{}
	logger    Logger
}

// NewPassiveSwitch returns an idle passive switch in the off position.
// Zero-valued period bounds fall back to the 5–60 second defaults.
func NewPassiveSwitch(name string, cfg PassiveSwitchConfig) (*PassiveSwitch, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: name is empty", ErrInvalidName)
	}
	if cfg.MinPeriod <= 0 {
		cfg.MinPeriod = defaultPassiveMinPeriod
	}
	if cfg.MaxPeriod <= 0 {
		cfg.MaxPeriod = defaultPassiveMaxPeriod
	}
	if cfg.MinPeriod > cfg.MaxPeriod {
		return nil, fmt.Errorf("%w: flip period min %d > max %d", ErrInvalidBounds, cfg.MinPeriod, cfg.MaxPeriod)
	}
	return &PassiveSwitch{
		name:      name,
		minPeriod: cfg.MinPeriod,
		maxPeriod: cfg.MaxPeriod,
		timestamp: time.Now().Unix(),
		logger:    noopLogger{},
	}, nil
}

// Name returns the switch's fleet-wide identifier.
func (p *PassiveSwitch) Name() string { return p.name }

// Kind returns KindPassiveSwitch.
func (p *PassiveSwitch) Kind() Kind { return KindPassiveSwitch }

// State returns the current position and when it last flipped.
func (p *PassiveSwitch) State() SwitchState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return SwitchState{On: p.on, Timestamp: p.timestamp}
}

// SetState always fails: passive switches follow their environment, not
// commands.
func (p *PassiveSwitch) SetState(bool) error {
	return fmt.Errorf("%w: %q is a passive switch", ErrNotSupported, p.name)
}

// SetLogger replaces the switch's logger. Pass nil to silence it.
func (p *PassiveSwitch) SetLogger(l Logger) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if l == nil {
		l = noopLogger{}
	}
	p.logger = l
}

// SetHooks replaces the notification hook set, effective from the next flip.
func (p *PassiveSwitch) SetHooks(h SwitchHooks) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.hooks = h
}

// Start launches the background flip loop. Calling Start on a running
// switch is a no-op.
func (p *PassiveSwitch) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	p.cancel = cancel
	p.done = done
	go p.run(ctx, done)
}

// Stop cancels the flip loop and waits for it to exit. Idempotent.
func (p *PassiveSwitch) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Running reports whether the flip loop is active.
func (p *PassiveSwitch) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancel != nil
}

// run flips immediately on start, then waits a freshly drawn period between
// flips so the cadence never settles into a fixed rhythm.
func (p *PassiveSwitch) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	for {
		st, hooks, log := p.flip()
		hooks.dispatch(p.name, st, log)

		period := time.Duration(p.minPeriod+rand.IntN(p.maxPeriod-p.minPeriod+1)) * time.Second
		timer := time.NewTimer(period)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

func (p *PassiveSwitch) flip() (SwitchState, SwitchHooks, Logger) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.on = !p.on
	p.timestamp = time.Now().Unix()
	return SwitchState{On: p.on, Timestamp: p.timestamp}, p.hooks, p.logger
}
