package clock

import (
	"sync"
	"time"
)

// Manual is a clock whose time only moves when Sleep or Advance is called.
// It satisfies both Clock and Sleeper so a whole session can be replayed
// without real waiting.
type Manual struct {
	mu    sync.Mutex
	now   time.Time
	slept []time.Duration
}

func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
}

func (m *Manual) Sleep(d time.Duration, abort <-chan struct{}) bool {
	select {
	case <-abort:
		return false
	default:
	}
	m.mu.Lock()
	if d > 0 {
		m.now = m.now.Add(d)
	}
	m.slept = append(m.slept, d)
	m.mu.Unlock()
	select {
	case <-abort:
		return false
	default:
		return true
	}
}

// Slept returns every duration passed to Sleep, in call order.
func (m *Manual) Slept() []time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]time.Duration, len(m.slept))
	copy(out, m.slept)
	return out
}
