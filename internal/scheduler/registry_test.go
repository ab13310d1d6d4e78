package scheduler

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSchedule_ReplacesExistingTimer(t *testing.T) {
	var fired atomic.Int32
	r := NewRegistry(func(_ context.Context, _, _ string) {
		fired.Add(1)
	}, testLogger())
	defer r.StopAll()

	r.Schedule("shop1", "whatsapp", time.Hour)
	r.Schedule("shop1", "whatsapp", 10*time.Millisecond)

	assert.Equal(t, 1, r.Count())

	assert.Eventually(t, func() bool {
		return fired.Load() >= 2
	}, time.Second, 5*time.Millisecond, "replacement timer should fire repeatedly")
}

func TestCancel_StopsTicks(t *testing.T) {
	var fired atomic.Int32
	r := NewRegistry(func(_ context.Context, _, _ string) {
		fired.Add(1)
	}, testLogger())

	r.Schedule("shop1", "instagram", 10*time.Millisecond)
	time.Sleep(35 * time.Millisecond)
	r.Cancel("shop1", "instagram")

	assert.False(t, r.Active("shop1", "instagram"))

	after := fired.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, after, fired.Load(), "no ticks after cancel")
}

func TestCancel_MissingKeyIsNoop(t *testing.T) {
	r := NewRegistry(func(context.Context, string, string) {}, testLogger())

	assert.NotPanics(t, func() {
		r.Cancel("ghost", "whatsapp")
	})
}

func TestFire_PanicDoesNotKillLoop(t *testing.T) {
	var fired atomic.Int32
	r := NewRegistry(func(_ context.Context, _, _ string) {
		fired.Add(1)
		panic("boom")
	}, testLogger())
	defer r.StopAll()

	r.Schedule("shop1", "whatsapp", 10*time.Millisecond)

	assert.Eventually(t, func() bool {
		return fired.Load() >= 3
	}, time.Second, 5*time.Millisecond, "ticks keep coming despite panics")
}

func TestRegistry_IndependentKeys(t *testing.T) {
	r := NewRegistry(func(context.Context, string, string) {}, testLogger())
	defer r.StopAll()

	r.Schedule("shop1", "whatsapp", time.Hour)
	r.Schedule("shop1", "instagram", time.Hour)
	r.Schedule("shop2", "whatsapp", time.Hour)

	assert.Equal(t, 3, r.Count())

	r.Cancel("shop1", "whatsapp")
	assert.Equal(t, 2, r.Count())
	assert.True(t, r.Active("shop2", "whatsapp"))
}
