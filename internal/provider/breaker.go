package provider

import (
	"errors"
	"sync"
	"time"
)

// BreakerState is the circuit breaker's current mode.
type BreakerState int

const (
	BreakerClosed BreakerState = iota
	BreakerOpen
	BreakerHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrBreakerOpen is returned by Execute when the breaker is refusing calls.
var ErrBreakerOpen = errors.New("provider circuit breaker is open")

type breakerEventKind int

const (
	breakerAttempt breakerEventKind = iota
	breakerSuccess
	breakerFailure
)

type breakerEvent struct {
	at   time.Time
	kind breakerEventKind
}

// BreakerObserver is notified of state transitions, for metrics wiring.
// SetState is its only method. Passing a nil observer to NewBreaker is
// valid and simply means no one is watching.
type BreakerObserver interface {
	SetState(provider string, state BreakerState)
}

type noopObserver struct{}

func (noopObserver) SetState(string, BreakerState) {}

// Breaker is a sliding-window circuit breaker that trips a single
// upstream provider's calls off after a burst of technical failures,
// independent of the other providers in the registry.
type Breaker struct {
	mu sync.Mutex

	name     string
	observer BreakerObserver

	state    BreakerState
	openedAt time.Time

	events []breakerEvent
	window time.Duration

	threshold        int
	minAttempts      int
	successes        int
	successThreshold int
	resetTimeout     time.Duration

	now func() time.Time
}

// NewBreaker creates a breaker named name. Zero values for the thresholds
// fall back to conservative defaults.
func NewBreaker(name string, threshold, minAttempts int, window, resetTimeout time.Duration, observer BreakerObserver) *Breaker {
	if threshold <= 0 {
		threshold = 3
	}
	if minAttempts <= 0 {
		minAttempts = 5
	}
	if window <= 0 {
		window = 60 * time.Second
	}
	if resetTimeout <= 0 {
		resetTimeout = 30 * time.Second
	}
	if observer == nil {
		observer = noopObserver{}
	}
	return &Breaker{
		name:             name,
		observer:         observer,
		state:            BreakerClosed,
		threshold:        threshold,
		minAttempts:      minAttempts,
		window:           window,
		resetTimeout:     resetTimeout,
		successThreshold: 3,
		now:              time.Now,
	}
}

// Execute runs fn if the breaker currently allows it, recording the
// resulting success/failure against the sliding window.
func (b *Breaker) Execute(fn func() error) error {
	if !b.allow() {
		return ErrBreakerOpen
	}

	b.record(breakerAttempt)
	err := fn()
	if err != nil {
		b.record(breakerFailure)
		return err
	}
	b.record(breakerSuccess)
	return nil
}

func (b *Breaker) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.prune()

	switch b.state {
	case BreakerClosed:
		return true
	case BreakerOpen:
		if b.now().Sub(b.openedAt) >= b.resetTimeout {
			b.transition(BreakerHalfOpen)
			return true
		}
		return false
	default: // half-open
		return true
	}
}

func (b *Breaker) record(kind breakerEventKind) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.events = append(b.events, breakerEvent{at: b.now(), kind: kind})
	b.prune()

	switch kind {
	case breakerSuccess:
		if b.state == BreakerHalfOpen {
			b.successes++
			if b.successes >= b.successThreshold {
				b.transition(BreakerClosed)
			}
		}
	case breakerFailure:
		if b.state == BreakerHalfOpen {
			b.transition(BreakerOpen)
			return
		}
		b.evaluate()
	}
}

func (b *Breaker) prune() {
	cutoff := b.now().Add(-b.window)
	kept := b.events[:0]
	for _, e := range b.events {
		if !e.at.Before(cutoff) {
			kept = append(kept, e)
		}
	}
	b.events = kept
}

func (b *Breaker) evaluate() {
	if b.state != BreakerClosed {
		return
	}
	var attempts, failures int
	for _, e := range b.events {
		switch e.kind {
		case breakerAttempt:
			attempts++
		case breakerFailure:
			failures++
		}
	}
	if attempts >= b.minAttempts && failures >= b.threshold {
		b.transition(BreakerOpen)
	}
}

func (b *Breaker) transition(s BreakerState) {
	if b.state == s {
		return
	}
	b.state = s
	switch s {
	case BreakerOpen:
		b.openedAt = b.now()
	case BreakerHalfOpen:
		b.successes = 0
	case BreakerClosed:
		b.events = nil
	}
	b.observer.SetState(b.name, s)
}

// State returns the breaker's current state.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}
