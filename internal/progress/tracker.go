package progress

import (
	"sync"
	"time"
)

// Tracker holds the progress state of a single job. It clamps percentages to
// 0..100, drops values that do not advance, and suppresses a log line that
// repeats the previous one inside the dedup window.
type Tracker struct {
	sink   Reporter
	window time.Duration
	now    func() time.Time

	mu      sync.Mutex
	percent int
	lastMsg string
	lastAt  time.Time
}

func NewTracker(sink Reporter, window time.Duration) *Tracker {
	if sink == nil {
		sink = Discard
	}
	return &Tracker{sink: sink, window: window, now: time.Now, percent: -1}
}

// WithClock replaces the time source.
func (t *Tracker) WithClock(now func() time.Time) *Tracker {
	t.now = now
	return t
}

func (t *Tracker) Log(message string) {
	t.mu.Lock()
	now := t.now()
	if message == t.lastMsg && t.window > 0 && now.Sub(t.lastAt) < t.window {
		t.mu.Unlock()
		return
	}
	t.lastMsg = message
	t.lastAt = now
	t.mu.Unlock()

	t.sink.Log(message)
}

func (t *Tracker) Progress(percent int) {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	t.mu.Lock()
	if percent <= t.percent {
		t.mu.Unlock()
		return
	}
	t.percent = percent
	t.mu.Unlock()

	t.sink.Progress(percent)
}

// Percent returns the last value forwarded, or 0 before any.
func (t *Tracker) Percent() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.percent < 0 {
		return 0
	}
	return t.percent
}
