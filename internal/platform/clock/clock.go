package clock

import "time"

// Clock abstracts time to keep the scheduler and the attempt loop deterministic in tests.
type Clock interface {
	Now() time.Time
}

// Sleeper blocks for d or until abort is closed. It reports false when the
// wait was cut short by abort.
type Sleeper interface {
	Sleep(d time.Duration, abort <-chan struct{}) bool
}

type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now()
}

// SystemSleeper waits on a real timer. Abort wakes it immediately, which is
// well inside the 100ms responsiveness the operator expects.
type SystemSleeper struct{}

func (SystemSleeper) Sleep(d time.Duration, abort <-chan struct{}) bool {
	select {
	case <-abort:
		return false
	default:
	}
	if d <= 0 {
		return true
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-abort:
		return false
	}
}
