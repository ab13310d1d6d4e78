package analyzer

import (
	"sync"
	"time"
)

const (
	StateClosed   = "closed"
	StateOpen     = "open"
	StateHalfOpen = "half-open"
)

// Breaker is a three-state circuit breaker guarding the provider path.
// Closed counts consecutive failures; Open rejects instantly until the
// cooldown elapses, then Half-Open admits a bounded probe quota. Any probe
// failure reopens the circuit; enough probe successes close it.
type Breaker struct {
	mu sync.Mutex

	threshold    int
	cooldown     time.Duration
	probeQuota   int
	successQuota int

	state     string
	failures  int
	probes    int
	successes int
	openedAt  time.Time
	now       func() time.Time
}

func NewBreaker(threshold int, cooldown time.Duration, probeQuota, successQuota int) *Breaker {
	return &Breaker{
		threshold:    threshold,
		cooldown:     cooldown,
		probeQuota:   probeQuota,
		successQuota: successQuota,
		state:        StateClosed,
		now:          time.Now,
	}
}

// Allow reports whether a provider call may proceed right now.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return true
	case StateOpen:
		if b.now().Sub(b.openedAt) < b.cooldown {
			return false
		}
		b.state = StateHalfOpen
		b.probes = 1
		b.successes = 0
		return true
	case StateHalfOpen:
		if b.probes >= b.probeQuota {
			return false
		}
		b.probes++
		return true
	}
	return false
}

// RecordSuccess feeds a successful provider call back into the breaker.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		b.failures = 0
	case StateHalfOpen:
		b.successes++
		if b.successes >= b.successQuota {
			b.state = StateClosed
			b.failures = 0
		}
	}
}

// RecordFailure feeds a failed provider call back into the breaker.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		b.failures++
		if b.failures >= b.threshold {
			b.trip()
		}
	case StateHalfOpen:
		b.trip()
	}
}

func (b *Breaker) trip() {
	b.state = StateOpen
	b.openedAt = b.now()
	b.failures = 0
	b.probes = 0
	b.successes = 0
}

// State returns the breaker state as the next caller would observe it: an
// Open circuit whose cooldown has elapsed reports Half-Open, since the next
// Allow admits a probe.
func (b *Breaker) State() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == StateOpen && b.now().Sub(b.openedAt) >= b.cooldown {
		return StateHalfOpen
	}
	return b.state
}
