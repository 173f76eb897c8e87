package domain_test

import (
	"errors"
	"testing"

	"queuebreaker/internal/modules/dialer/domain"
	apperrors "queuebreaker/internal/platform/errors"
)

func TestParseOutcome(t *testing.T) {
	t.Parallel()
	cases := map[string]domain.Outcome{
		"":          domain.OutcomeUnknown,
		"busy":      domain.OutcomeBusy,
		"voicemail": domain.OutcomeVoicemail,
		"human":     domain.OutcomeHuman,
		"no_answer": domain.OutcomeNoAnswer,
	}
	for raw, want := range cases {
		got, err := domain.ParseOutcome(raw)
		if err != nil || got != want {
			t.Fatalf("ParseOutcome(%q)=%q,%v want %q", raw, got, err, want)
		}
	}
	got, err := domain.ParseOutcome("fax")
	if !errors.Is(err, apperrors.ErrInvalidInput) || got != domain.OutcomeUnknown {
		t.Fatalf("expected invalid input with unknown fallback, got %q %v", got, err)
	}
}

func TestSettingsValidate(t *testing.T) {
	t.Parallel()
	if err := (domain.Settings{PhoneNumber: "123", WindowTitle: "Phone Link"}).Validate(); err != nil {
		t.Fatalf("expected valid settings: %v", err)
	}
	if err := (domain.Settings{WindowTitle: "Phone Link"}).Validate(); !errors.Is(err, apperrors.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}
