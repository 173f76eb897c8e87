package domain_test

import (
	"errors"
	"strings"
	"testing"

	"queuebreaker/internal/modules/classifier/domain"
	apperrors "queuebreaker/internal/platform/errors"
)

func TestManifestValidate(t *testing.T) {
	t.Parallel()
	valid := domain.Manifest{Binary: "/opt/classifier", SHA256: strings.Repeat("a", 64)}
	if err := valid.Validate(); err != nil {
		t.Fatalf("expected valid manifest: %v", err)
	}
	cases := []domain.Manifest{
		{SHA256: strings.Repeat("a", 64)},
		{Binary: "/opt/classifier", SHA256: strings.Repeat("A", 64)},
		{Binary: "/opt/classifier", SHA256: "abc"},
	}
	for _, m := range cases {
		if err := m.Validate(); !errors.Is(err, apperrors.ErrConfiguration) {
			t.Fatalf("%+v: expected configuration error, got %v", m, err)
		}
	}
}

func TestKnownLabel(t *testing.T) {
	t.Parallel()
	if !domain.KnownLabel("voicemail") || domain.KnownLabel("fax") {
		t.Fatalf("unexpected label membership")
	}
}
