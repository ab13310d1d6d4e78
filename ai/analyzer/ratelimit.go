package analyzer

import (
	"sync"
	"time"
)

// SlidingWindow is a non-blocking request budget: at most limit calls per
// window. Exhaustion is reported to the caller, never queued.
type SlidingWindow struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	stamps []time.Time
	now    func() time.Time
}

func NewSlidingWindow(limit int, window time.Duration) *SlidingWindow {
	return &SlidingWindow{
		limit:  limit,
		window: window,
		now:    time.Now,
	}
}

// Allow reports whether another call fits in the current window and records
// it if so.
func (w *SlidingWindow) Allow() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	cutoff := now.Add(-w.window)

	kept := w.stamps[:0]
	for _, ts := range w.stamps {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	w.stamps = kept

	if len(w.stamps) >= w.limit {
		return false
	}

	w.stamps = append(w.stamps, now)
	return true
}

// Remaining returns the unused budget in the current window.
func (w *SlidingWindow) Remaining() int {
	w.mu.Lock()
	defer w.mu.Unlock()

	cutoff := w.now().Add(-w.window)
	active := 0
	for _, ts := range w.stamps {
		if ts.After(cutoff) {
			active++
		}
	}
	if active >= w.limit {
		return 0
	}
	return w.limit - active
}
