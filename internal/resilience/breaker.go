// Package resilience guards remote speech providers with per-provider circuit
// breakers and bounded retries.
package resilience

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	apperrors "github.com/GriffinCanCode/pushtalk/internal/errors"
)

// State is a breaker position.
type State uint32

const (
	Closed   State = iota // calls pass through
	Open                  // calls fail fast
	HalfOpen              // probing recovery
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrOpen is the cause of every error returned while a breaker fails fast.
var ErrOpen = errors.New("circuit breaker open")

// TransitionFunc observes breaker state changes. It runs with the breaker
// lock released.
type TransitionFunc func(name string, from, to State)

// Breaker trips after consecutive failures of one provider so that a chain
// can move on to the next provider without waiting on retries.
type Breaker struct {
	name string
	cfg  Config
	now  func() time.Time

	mu        sync.Mutex
	state     State
	failures  int
	successes int
	openedAt  time.Time
	hook      TransitionFunc
}

// New creates a closed breaker named after the provider it guards.
func New(name string, cfg Config) *Breaker {
	return &Breaker{name: name, cfg: cfg.withDefaults(), now: time.Now}
}

// Name returns the guarded provider's name.
func (b *Breaker) Name() string { return b.name }

// OnTransition sets the state change callback.
func (b *Breaker) OnTransition(fn TransitionFunc) {
	b.mu.Lock()
	b.hook = fn
	b.mu.Unlock()
}

// SetClock replaces the time source. Intended for tests.
func (b *Breaker) SetClock(now func() time.Time) {
	b.mu.Lock()
	b.now = now
	b.mu.Unlock()
}

// Allow reports whether a call may proceed. An open breaker whose reset
// timeout has elapsed moves to half-open and lets the call through.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	if b.state == Open {
		if b.now().Sub(b.openedAt) < b.cfg.ResetTimeout {
			b.mu.Unlock()
			return apperrors.Wrapf(ErrOpen, apperrors.Unavailable, "%s: provider suspended after repeated failures", b.name)
		}
		b.mu.Unlock()
		b.transition(Open, HalfOpen)
		return nil
	}
	b.mu.Unlock()
	return nil
}

// Success records a completed call.
func (b *Breaker) Success() {
	b.mu.Lock()
	switch b.state {
	case Closed:
		b.failures = 0
	case HalfOpen:
		b.successes++
		if b.successes >= b.cfg.HalfOpenSuccesses {
			b.mu.Unlock()
			b.transition(HalfOpen, Closed)
			return
		}
	}
	b.mu.Unlock()
}

// Failure records a failed call.
func (b *Breaker) Failure() {
	b.mu.Lock()
	b.failures++
	from := b.state
	trip := from == HalfOpen || (from == Closed && b.failures >= b.cfg.Threshold)
	b.mu.Unlock()
	if trip {
		b.transition(from, Open)
	}
}

// State returns the current position.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Reset closes the breaker regardless of its position.
func (b *Breaker) Reset() {
	b.transition(b.State(), Closed)
}

// transition moves from -> to if the breaker is still at from.
func (b *Breaker) transition(from, to State) {
	b.mu.Lock()
	if b.state != from || from == to {
		b.mu.Unlock()
		return
	}
	b.state = to
	b.successes = 0
	switch to {
	case Closed:
		b.failures = 0
	case Open:
		b.openedAt = b.now()
	}
	failures, hook := b.failures, b.hook
	b.mu.Unlock()

	switch to {
	case Open:
		slog.Warn("provider breaker opened", "provider", b.name, "failures", failures)
	default:
		slog.Info("provider breaker "+to.String(), "provider", b.name)
	}
	if hook != nil {
		hook(b.name, from, to)
	}
}

// Do runs fn behind b, recording its outcome.
func Do[T any](b *Breaker, fn func() (T, error)) (T, error) {
	var zero T
	if err := b.Allow(); err != nil {
		return zero, err
	}
	v, err := fn()
	if err != nil {
		b.Failure()
		return zero, err
	}
	b.Success()
	return v, nil
}
