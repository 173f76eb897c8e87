package domain

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	apperrors "queuebreaker/internal/platform/errors"
)

type Mode string

const (
	ModeEveryHour     Mode = "every_hour"
	ModeSpecificHours Mode = "specific_hours"
)

func (m Mode) Validate() error {
	switch m {
	case ModeEveryHour, ModeSpecificHours:
		return nil
	default:
		return fmt.Errorf("%w: unknown schedule mode %q", apperrors.ErrConfiguration, string(m))
	}
}

// NeverOpens is returned by UntilNextWindow when no opening exists in the
// search horizon, e.g. specific_hours with no active hours.
const NeverOpens = time.Duration(math.MaxInt64)

// searchHorizon covers every combination of hour set and wrapping window.
const searchHorizon = 48 * time.Hour

// Gate decides whether an attempt may start at a given instant.
type Gate struct {
	Mode        Mode
	Window      Window
	ActiveHours []int
}

func NewGate(mode Mode, window Window, activeHours []int) Gate {
	hours := append([]int(nil), activeHours...)
	sort.Ints(hours)
	return Gate{Mode: mode, Window: window, ActiveHours: hours}
}

// Validate surfaces the configuration errors the loop must refuse to start with.
func (g Gate) Validate() error {
	if err := g.Mode.Validate(); err != nil {
		return err
	}
	if err := g.Window.Validate(); err != nil {
		return err
	}
	for _, h := range g.ActiveHours {
		if h < 0 || h > 23 {
			return fmt.Errorf("%w: active hour %d outside 0-23", apperrors.ErrConfiguration, h)
		}
	}
	if g.Mode == ModeSpecificHours && len(g.ActiveHours) == 0 {
		return fmt.Errorf("%w: active_hours is required for %s", apperrors.ErrConfiguration, ModeSpecificHours)
	}
	return nil
}

func (g Gate) hourActive(hour int) bool {
	switch g.Mode {
	case ModeEveryHour:
		return true
	case ModeSpecificHours:
		// Empty means closed, not every hour.
		for _, h := range g.ActiveHours {
			if h == hour {
				return true
			}
		}
		return false
	default:
		return false
	}
}

func (g Gate) MayAttemptNow(now time.Time) bool {
	return g.hourActive(now.Hour()) && g.Window.Contains(now.Minute())
}

// NextOpening returns the first instant at or after now at which the gate is
// open. The second result is false when the gate never opens.
func (g Gate) NextOpening(now time.Time) (time.Time, bool) {
	if g.MayAttemptNow(now) {
		return now, true
	}
	if g.Mode == ModeSpecificHours && len(g.ActiveHours) == 0 {
		return time.Time{}, false
	}
	candidate := now.Truncate(time.Minute)
	limit := now.Add(searchHorizon)
	for candidate.Before(limit) {
		candidate = candidate.Add(time.Minute)
		if g.MayAttemptNow(candidate) {
			return candidate, true
		}
	}
	return time.Time{}, false
}

// UntilNextWindow is zero while the gate is open and NeverOpens when it
// cannot open.
func (g Gate) UntilNextWindow(now time.Time) time.Duration {
	next, ok := g.NextOpening(now)
	if !ok {
		return NeverOpens
	}
	return next.Sub(now)
}

func (g Gate) Describe() string {
	if g.Mode == ModeSpecificHours {
		hours := make([]string, 0, len(g.ActiveHours))
		for _, h := range g.ActiveHours {
			hours = append(hours, fmt.Sprintf("%02d", h))
		}
		return fmt.Sprintf("%s %s at hours [%s]", g.Mode, g.Window, strings.Join(hours, ","))
	}
	return fmt.Sprintf("%s %s", g.Mode, g.Window)
}
