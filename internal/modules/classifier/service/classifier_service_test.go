package service_test

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"queuebreaker/internal/modules/classifier/domain"
	"queuebreaker/internal/modules/classifier/dto"
	"queuebreaker/internal/modules/classifier/service"
	apperrors "queuebreaker/internal/platform/errors"
)

type fakeHost struct {
	label    string
	err      error
	calls    int
	snapshot string
}

func (f *fakeHost) CheckLifecycle(context.Context, domain.Manifest) error { return f.err }

func (f *fakeHost) GetMetadata(context.Context, domain.Manifest) (domain.Metadata, error) {
	if f.err != nil {
		return domain.Metadata{}, f.err
	}
	return domain.Metadata{Name: "fake", Version: "0.1.0", Labels: domain.Labels}, nil
}

func (f *fakeHost) Classify(_ context.Context, _ domain.Manifest, snapshot string) (string, error) {
	f.calls++
	f.snapshot = snapshot
	return f.label, f.err
}

func writeBinary(t *testing.T) (string, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "classifier")
	payload := []byte("#!/bin/sh\n")
	if err := os.WriteFile(path, payload, 0o755); err != nil {
		t.Fatalf("write binary: %v", err)
	}
	sum := sha256.Sum256(payload)
	return path, hex.EncodeToString(sum[:])
}

func TestCheckDetectsChecksumMismatch(t *testing.T) {
	t.Parallel()
	path, _ := writeBinary(t)
	svc := service.NewClassifierService(domain.Manifest{Binary: path, SHA256: strings.Repeat("0", 64)}, &fakeHost{})
	result, err := svc.Check(context.Background())
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !result.BinaryReachable || result.ChecksumValid || result.LifecycleOK {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestCheckReportsMetadata(t *testing.T) {
	t.Parallel()
	path, sum := writeBinary(t)
	svc := service.NewClassifierService(domain.Manifest{Binary: path, SHA256: sum}, &fakeHost{})
	result, err := svc.Check(context.Background())
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !result.ChecksumValid || !result.LifecycleOK || result.Name != "fake" {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestCheckWithoutBinary(t *testing.T) {
	t.Parallel()
	result, err := service.NewClassifierService(domain.Manifest{}, nil).Check(context.Background())
	if err != nil || result.Configured {
		t.Fatalf("expected unconfigured result, got %+v %v", result, err)
	}
}

func TestClassifyRefusesTamperedBinary(t *testing.T) {
	t.Parallel()
	path, _ := writeBinary(t)
	host := &fakeHost{label: "busy"}
	svc := service.NewClassifierService(domain.Manifest{Binary: path, SHA256: strings.Repeat("f", 64)}, host)
	out, err := svc.Classify(context.Background(), dto.ClassifyInput{Snapshot: "x"})
	if !errors.Is(err, domain.ErrChecksumMismatch) {
		t.Fatalf("expected checksum mismatch, got %v", err)
	}
	if out.Label != "unknown" || host.calls != 0 {
		t.Fatalf("plugin must not run when the checksum is wrong")
	}
}

func TestClassifyReturnsLabel(t *testing.T) {
	t.Parallel()
	path, sum := writeBinary(t)
	host := &fakeHost{label: "voicemail"}
	svc := service.NewClassifierService(domain.Manifest{Binary: path, SHA256: sum}, host)
	for i := 0; i < 2; i++ {
		out, err := svc.Classify(context.Background(), dto.ClassifyInput{Snapshot: "leave a message"})
		if err != nil {
			t.Fatalf("classify: %v", err)
		}
		if out.Label != "voicemail" {
			t.Fatalf("unexpected label %q", out.Label)
		}
	}
	if host.calls != 2 || host.snapshot != "leave a message" {
		t.Fatalf("unexpected host usage: calls=%d snapshot=%q", host.calls, host.snapshot)
	}
}

func TestClassifyRejectsUnknownLabelAndHostErrors(t *testing.T) {
	t.Parallel()
	path, sum := writeBinary(t)
	manifest := domain.Manifest{Binary: path, SHA256: sum}

	out, err := service.NewClassifierService(manifest, &fakeHost{label: "fax"}).Classify(context.Background(), dto.ClassifyInput{})
	if !errors.Is(err, apperrors.ErrInvalidInput) || out.Label != "unknown" {
		t.Fatalf("expected invalid label error, got %q %v", out.Label, err)
	}
	out, err = service.NewClassifierService(manifest, &fakeHost{err: errors.New("boom")}).Classify(context.Background(), dto.ClassifyInput{})
	if !errors.Is(err, apperrors.ErrClassifierUnavailable) || out.Label != "unknown" {
		t.Fatalf("expected unavailable error, got %q %v", out.Label, err)
	}
	_, err = service.NewClassifierService(domain.Manifest{}, nil).Classify(context.Background(), dto.ClassifyInput{})
	if !errors.Is(err, domain.ErrNotConfigured) {
		t.Fatalf("expected not configured, got %v", err)
	}
}
