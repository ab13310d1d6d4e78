package analyzer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestBreaker(clock *fakeClock) *Breaker {
	b := NewBreaker(3, 30*time.Second, 2, 2)
	b.now = clock.Now
	return b
}

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func TestBreaker_OpensAfterThreshold(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	b := newTestBreaker(clock)

	for i := 0; i < 3; i++ {
		assert.True(t, b.Allow())
		b.RecordFailure()
	}

	assert.Equal(t, StateOpen, b.State())
	assert.False(t, b.Allow())
}

func TestBreaker_RejectsForCooldownThenProbes(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	b := newTestBreaker(clock)

	for i := 0; i < 3; i++ {
		b.RecordFailure()
	}
	assert.False(t, b.Allow())

	clock.Advance(29 * time.Second)
	assert.False(t, b.Allow())

	clock.Advance(2 * time.Second)

	// Exactly the configured probe quota passes in half-open.
	assert.True(t, b.Allow())
	assert.Equal(t, StateHalfOpen, b.State())
	assert.True(t, b.Allow())
	assert.False(t, b.Allow())
}

func TestBreaker_StateReportsHalfOpenAfterCooldown(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	b := newTestBreaker(clock)

	for i := 0; i < 3; i++ {
		b.RecordFailure()
	}
	assert.Equal(t, StateOpen, b.State())

	clock.Advance(31 * time.Second)

	// a passive status read past the cooldown must not report the circuit
	// as still open
	assert.Equal(t, StateHalfOpen, b.State())
	assert.True(t, b.Allow())
}

func TestBreaker_HalfOpenFailureReopens(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	b := newTestBreaker(clock)

	for i := 0; i < 3; i++ {
		b.RecordFailure()
	}
	clock.Advance(31 * time.Second)
	assert.True(t, b.Allow())

	b.RecordFailure()

	assert.Equal(t, StateOpen, b.State())
	assert.False(t, b.Allow())
}

func TestBreaker_HalfOpenSuccessesClose(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	b := newTestBreaker(clock)

	for i := 0; i < 3; i++ {
		b.RecordFailure()
	}
	clock.Advance(31 * time.Second)

	assert.True(t, b.Allow())
	b.RecordSuccess()
	assert.True(t, b.Allow())
	b.RecordSuccess()

	assert.Equal(t, StateClosed, b.State())
	assert.True(t, b.Allow())
}

func TestBreaker_SuccessResetsClosedFailures(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	b := newTestBreaker(clock)

	b.RecordFailure()
	b.RecordFailure()
	b.RecordSuccess()
	b.RecordFailure()
	b.RecordFailure()

	assert.Equal(t, StateClosed, b.State())
}

func TestSlidingWindow_LimitAndExpiry(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	w := NewSlidingWindow(2, time.Minute)
	w.now = clock.Now

	assert.True(t, w.Allow())
	assert.True(t, w.Allow())
	assert.False(t, w.Allow())
	assert.Zero(t, w.Remaining())

	clock.Advance(61 * time.Second)

	assert.Equal(t, 2, w.Remaining())
	assert.True(t, w.Allow())
}
