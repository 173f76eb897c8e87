package domain

import (
	"fmt"
	"time"

	apperrors "queuebreaker/internal/platform/errors"
)

// Window is the burst window inside every hour, in minutes 0-59. Both bounds
// are inclusive; Start > End wraps across the top of the hour (58 -> 2).
type Window struct {
	Start int
	End   int
}

func (w Window) Validate() error {
	if w.Start < 0 || w.Start > 59 {
		return fmt.Errorf("%w: start minute %d outside 0-59", apperrors.ErrConfiguration, w.Start)
	}
	if w.End < 0 || w.End > 59 {
		return fmt.Errorf("%w: end minute %d outside 0-59", apperrors.ErrConfiguration, w.End)
	}
	return nil
}

func (w Window) Wraps() bool {
	return w.Start > w.End
}

// Contains reports whether minute falls inside the window.
func (w Window) Contains(minute int) bool {
	if w.Wraps() {
		return minute >= w.Start || minute <= w.End
	}
	return w.Start <= minute && minute <= w.End
}

func (w Window) String() string {
	return fmt.Sprintf(":%02d-:%02d", w.Start, w.End)
}

// InWindow is the pure window check on the minute component of now.
func InWindow(now time.Time, start, end int) bool {
	return Window{Start: start, End: end}.Contains(now.Minute())
}
