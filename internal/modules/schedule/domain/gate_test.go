package domain_test

import (
	"errors"
	"testing"
	"time"

	"queuebreaker/internal/modules/schedule/domain"
	apperrors "queuebreaker/internal/platform/errors"
)

func TestEveryHourIgnoresHour(t *testing.T) {
	t.Parallel()
	gate := domain.NewGate(domain.ModeEveryHour, domain.Window{Start: 58, End: 2}, nil)
	for hour := 0; hour < 24; hour++ {
		if !gate.MayAttemptNow(at(hour, 59)) {
			t.Fatalf("hour %d minute 59 should be open", hour)
		}
		if gate.MayAttemptNow(at(hour, 30)) {
			t.Fatalf("hour %d minute 30 should be closed", hour)
		}
	}
}

func TestSpecificHoursExamples(t *testing.T) {
	t.Parallel()
	gate := domain.NewGate(domain.ModeSpecificHours, domain.Window{Start: 58, End: 2}, []int{9})
	if !gate.MayAttemptNow(at(9, 59)) {
		t.Fatalf("09:59 should be open")
	}
	if gate.MayAttemptNow(at(10, 30)) {
		t.Fatalf("10:30 should be closed")
	}
	if gate.MayAttemptNow(at(9, 30)) {
		t.Fatalf("09:30 should be closed")
	}
}

func TestEmptyActiveHoursNeverOpens(t *testing.T) {
	t.Parallel()
	gate := domain.NewGate(domain.ModeSpecificHours, domain.Window{Start: 0, End: 59}, nil)
	start := at(0, 0)
	for m := 0; m < 24*60; m++ {
		now := start.Add(time.Duration(m) * time.Minute)
		if gate.MayAttemptNow(now) {
			t.Fatalf("gate opened at %s with no active hours", now.Format("15:04"))
		}
	}
	if got := gate.UntilNextWindow(start); got != domain.NeverOpens {
		t.Fatalf("expected NeverOpens, got %s", got)
	}
	if err := gate.Validate(); !errors.Is(err, apperrors.ErrConfiguration) {
		t.Fatalf("empty active hours must be a configuration error, got %v", err)
	}
}

func TestUntilNextWindow(t *testing.T) {
	t.Parallel()
	everyHour := domain.NewGate(domain.ModeEveryHour, domain.Window{Start: 58, End: 2}, nil)
	nineOnly := domain.NewGate(domain.ModeSpecificHours, domain.Window{Start: 58, End: 2}, []int{9})
	midnight := domain.NewGate(domain.ModeSpecificHours, domain.Window{Start: 58, End: 2}, []int{0})
	plain := domain.NewGate(domain.ModeEveryHour, domain.Window{Start: 10, End: 20}, nil)

	cases := []struct {
		name string
		gate domain.Gate
		now  time.Time
		want time.Duration
	}{
		{"open now", everyHour, at(10, 59), 0},
		{"same hour", everyHour, at(10, 30).Add(15 * time.Second), 27*time.Minute + 45*time.Second},
		{"minute wrap", plain, at(10, 21), 49 * time.Minute},
		{"later today", nineOnly, at(9, 30), 28 * time.Minute},
		{"next day", nineOnly, at(10, 30), 22*time.Hour + 30*time.Minute},
		{"across midnight", midnight, at(23, 30), 30 * time.Minute},
	}
	for _, tc := range cases {
		if got := tc.gate.UntilNextWindow(tc.now); got != tc.want {
			t.Fatalf("%s: got %s want %s", tc.name, got, tc.want)
		}
	}
}

func TestGateValidate(t *testing.T) {
	t.Parallel()
	valid := domain.NewGate(domain.ModeSpecificHours, domain.Window{Start: 58, End: 2}, []int{13, 9})
	if err := valid.Validate(); err != nil {
		t.Fatalf("expected valid gate: %v", err)
	}
	if valid.ActiveHours[0] != 9 {
		t.Fatalf("active hours should be sorted, got %v", valid.ActiveHours)
	}
	invalid := []domain.Gate{
		domain.NewGate("hourly", domain.Window{Start: 1, End: 2}, nil),
		domain.NewGate(domain.ModeEveryHour, domain.Window{Start: 61, End: 2}, nil),
		domain.NewGate(domain.ModeSpecificHours, domain.Window{Start: 1, End: 2}, []int{24}),
	}
	for _, g := range invalid {
		if err := g.Validate(); !errors.Is(err, apperrors.ErrConfiguration) {
			t.Fatalf("%+v: expected configuration error, got %v", g, err)
		}
	}
	if got := valid.Describe(); got != "specific_hours :58-:02 at hours [09,13]" {
		t.Fatalf("unexpected description %q", got)
	}
}
