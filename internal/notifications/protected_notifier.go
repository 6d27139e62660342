package notifications

import (
	"context"
	"errors"
	"sync"
	"time"
)

var ErrCircuitOpen = errors.New("notifier circuit open")

type ProtectedNotifierConfig struct {
	Timeout          time.Duration
	FailureThreshold int
	Cooldown         time.Duration
	HalfOpenMaxCalls int
}

type breakerState int

const (
	stateClosed breakerState = iota
	stateOpen
	stateHalfOpen
)

func (s breakerState) String() string {
	switch s {
	case stateOpen:
		return "open"
	case stateHalfOpen:
		return "half_open"
	}
	return "closed"
}

// ProtectedNotifier bounds each send with a timeout and stops calling the
// provider after FailureThreshold consecutive failures until Cooldown passes.
// Rejected messages say nothing about provider health and leave the breaker
// alone.
type ProtectedNotifier struct {
	inner Notifier
	cfg   ProtectedNotifierConfig
	now   func() time.Time

	mu       sync.Mutex
	state    breakerState
	failures int
	openedAt time.Time
	trials   int
}

func NewProtectedNotifier(inner Notifier, cfg ProtectedNotifierConfig) *ProtectedNotifier {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 3 * time.Second
	}
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 3
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 15 * time.Second
	}
	if cfg.HalfOpenMaxCalls <= 0 {
		cfg.HalfOpenMaxCalls = 1
	}
	return &ProtectedNotifier{inner: inner, cfg: cfg, now: time.Now}
}

func (n *ProtectedNotifier) Send(ctx context.Context, msg Message) error {
	if !n.acquire() {
		return ErrCircuitOpen
	}

	sendCtx, cancel := context.WithTimeout(ctx, n.cfg.Timeout)
	defer cancel()

	err := n.inner.Send(sendCtx, msg)
	n.release(err == nil || errors.Is(err, ErrRejected))

	return err
}

// State reports the breaker position for logs and tests.
func (n *ProtectedNotifier) State() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state.String()
}

func (n *ProtectedNotifier) acquire() bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.state == stateOpen {
		if n.now().Sub(n.openedAt) < n.cfg.Cooldown {
			return false
		}
		n.state = stateHalfOpen
		n.trials = 0
	}

	if n.state == stateHalfOpen {
		if n.trials >= n.cfg.HalfOpenMaxCalls {
			return false
		}
		n.trials++
	}
	return true
}

func (n *ProtectedNotifier) release(healthy bool) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.state == stateHalfOpen && n.trials > 0 {
		n.trials--
	}

	if healthy {
		n.failures = 0
		n.state = stateClosed
		return
	}

	n.failures++
	if n.state == stateHalfOpen || n.failures >= n.cfg.FailureThreshold {
		n.state = stateOpen
		n.openedAt = n.now()
	}
}
