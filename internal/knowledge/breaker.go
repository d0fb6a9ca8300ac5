package knowledge

import (
	"sync"
	"time"
)

// BreakerState is the circuit breaker lifecycle state.
type BreakerState int

const (
	BreakerClosed BreakerState = iota
	BreakerOpen
	BreakerHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half_open"
	default:
		return "closed"
	}
}

// Breaker is a per-provider circuit breaker. CLOSED passes calls through and
// counts consecutive failures; after failureThreshold of them the breaker
// OPENs and fails fast. Once recoveryTimeout has elapsed the next Allow
// transitions to HALF_OPEN and admits exactly one trial call, whose outcome
// either re-closes or re-opens the circuit.
//
// All state lives under one mutex; many concurrent triage runs share the
// breaker for a given provider.
type Breaker struct {
	mu sync.Mutex

	failureThreshold int
	recoveryTimeout  time.Duration
	now              func() time.Time

	state    BreakerState
	failures int
	openedAt time.Time
	trial    bool
}

// NewBreaker returns a closed breaker. Threshold values below 1 are raised
// to 1.
func NewBreaker(failureThreshold int, recoveryTimeout time.Duration) *Breaker {
	if failureThreshold < 1 {
		failureThreshold = 1
	}
	return &Breaker{
		failureThreshold: failureThreshold,
		recoveryTimeout:  recoveryTimeout,
		now:              time.Now,
	}
}

// Allow reports whether a call may proceed right now. In HALF_OPEN only the
// first caller gets through; everyone else fails fast until the trial call
// reports its outcome.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case BreakerClosed:
		return true
	case BreakerOpen:
		if b.now().Sub(b.openedAt) < b.recoveryTimeout {
			return false
		}
		b.state = BreakerHalfOpen
		b.trial = true
		return true
	case BreakerHalfOpen:
		if b.trial {
			return false
		}
		b.trial = true
		return true
	}
	return false
}

// Success records a successful call and closes the circuit.
func (b *Breaker) Success() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.state = BreakerClosed
	b.failures = 0
	b.trial = false
}

// Failure records a failed call. In HALF_OPEN the trial failed and the
// circuit re-opens; in CLOSED the circuit opens once the consecutive-failure
// threshold is hit.
func (b *Breaker) Failure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case BreakerHalfOpen:
		b.open()
	case BreakerClosed:
		b.failures++
		if b.failures >= b.failureThreshold {
			b.open()
		}
	case BreakerOpen:
		// late failure from a call admitted before opening, nothing to do
	}
}

func (b *Breaker) open() {
	b.state = BreakerOpen
	b.failures = 0
	b.trial = false
	b.openedAt = b.now()
}

// State returns the current lifecycle state.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}
