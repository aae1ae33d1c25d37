// Package events forwards the tap-to-pay status stream to an external
// message broker. The broker is best-effort: events are advisory, so a
// broker outage must never back-pressure the payment flow.
package events

import (
	"sync"
	"time"
)

// BreakerState is the health state of the publish path.
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
		return "half_open"
	default:
		return "unknown"
	}
}

const (
	defaultFailureThreshold = 5
	defaultOpenTimeout      = 30 * time.Second
	defaultProbeSuccesses   = 2
)

// Breaker gates publishes to one downstream stream. After enough
// consecutive failures it opens and publishes are skipped instead of
// attempted; after the open timeout a few probe publishes are let through,
// and enough probe successes close it again.
type Breaker struct {
	mu sync.Mutex

	state       BreakerState
	failures    int
	probestreak int
	openUntil   time.Time

	failureThreshold int
	openTimeout      time.Duration
	probeSuccesses   int
}

// NewBreaker creates a Breaker with default thresholds.
func NewBreaker() *Breaker {
	return NewBreakerWithSettings(defaultFailureThreshold, defaultOpenTimeout, defaultProbeSuccesses)
}

// NewBreakerWithSettings creates a Breaker with explicit thresholds.
func NewBreakerWithSettings(failureThreshold int, openTimeout time.Duration, probeSuccesses int) *Breaker {
	return &Breaker{
		failureThreshold: failureThreshold,
		openTimeout:      openTimeout,
		probeSuccesses:   probeSuccesses,
	}
}

// Allow reports whether a publish should be attempted now. An open breaker
// whose timeout elapsed moves to half-open and allows probes.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case BreakerOpen:
		if time.Now().Before(b.openUntil) {
			return false
		}
		b.state = BreakerHalfOpen
		b.probestreak = 0
		return true
	default:
		return true
	}
}

// RecordSuccess feeds a publish result back into the state machine.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case BreakerClosed:
		b.failures = 0
	case BreakerHalfOpen:
		b.probestreak++
		if b.probestreak >= b.probeSuccesses {
			b.state = BreakerClosed
			b.failures = 0
			b.probestreak = 0
		}
	}
}

// RecordFailure feeds a failed publish back into the state machine. A
// failure during half-open reopens immediately.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case BreakerClosed:
		b.failures++
		if b.failures >= b.failureThreshold {
			b.state = BreakerOpen
			b.openUntil = time.Now().Add(b.openTimeout)
		}
	case BreakerHalfOpen:
		b.state = BreakerOpen
		b.openUntil = time.Now().Add(b.openTimeout)
		b.failures = 0
		b.probestreak = 0
	}
}

// State returns the current state without triggering transitions.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}
