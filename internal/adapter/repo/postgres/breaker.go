package postgres

import (
	"sync"
	"time"

	"github.com/fairyhunter13/pgdeveloper/internal/adapter/observability"
)

// BreakerState is the state of a connect circuit breaker.
type BreakerState int

const (
	// BreakerClosed lets every attempt through.
	BreakerClosed BreakerState = iota
	// BreakerOpen rejects attempts until the cool-down passes.
	BreakerOpen
	// BreakerHalfOpen lets one trial request through.
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

// breaker trips after maxFailures consecutive connection failures for one
// profile so a dead server is not hammered by every tree refresh.
type breaker struct {
	name        string
	maxFailures int
	cooldown    time.Duration
	now         func() time.Time

	mu          sync.Mutex
	state       BreakerState
	failures    int
	openedAt    time.Time
	trialActive bool
}

func newBreaker(name string, maxFailures int, cooldown time.Duration, now func() time.Time) *breaker {
	if now == nil {
		now = time.Now
	}
	b := &breaker{name: name, maxFailures: maxFailures, cooldown: cooldown, now: now}
	observability.SetBreakerState(name, int(BreakerClosed))
	return b
}

// allow reports whether an attempt may proceed. In half-open only one trial request
// is admitted until it reports back.
func (b *breaker) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == BreakerOpen && b.now().Sub(b.openedAt) >= b.cooldown {
		b.setState(BreakerHalfOpen)
	}
	switch b.state {
	case BreakerClosed:
		return true
	case BreakerHalfOpen:
		if b.trialActive {
			return false
		}
		b.trialActive = true
		return true
	default:
		return false
	}
}

// record reports the outcome of an admitted attempt. Only connection
// failures count; a nil or non-connection error resets the breaker.
func (b *breaker) record(connFailure bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.trialActive = false
	if !connFailure {
		b.failures = 0
		b.setState(BreakerClosed)
		return
	}
	b.failures++
	if b.state == BreakerHalfOpen || b.failures >= b.maxFailures {
		b.openedAt = b.now()
		b.setState(BreakerOpen)
	}
}

func (b *breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *breaker) setState(s BreakerState) {
	if b.state != s {
		b.state = s
		observability.SetBreakerState(b.name, int(s))
	}
}
