package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"queuebreaker/internal/modules/classifier/domain"
	"queuebreaker/internal/modules/classifier/dto"
	classifierout "queuebreaker/internal/modules/classifier/port/out"
	apperrors "queuebreaker/internal/platform/errors"
)

type ClassifierService struct {
	manifest domain.Manifest
	host     classifierout.Host

	mu       sync.Mutex
	verified bool
}

func NewClassifierService(manifest domain.Manifest, host classifierout.Host) *ClassifierService {
	return &ClassifierService{manifest: manifest, host: host}
}

func (s *ClassifierService) Check(ctx context.Context) (dto.CheckResult, error) {
	result := dto.CheckResult{Configured: s.manifest.Configured(), Binary: s.manifest.Binary}
	if !result.Configured {
		return result, nil
	}
	if err := s.manifest.Validate(); err != nil {
		result.Error = err.Error()
		return result, nil
	}
	result.BinaryReachable = fileExists(s.manifest.Binary)
	if !result.BinaryReachable {
		result.Error = fmt.Sprintf("binary does not exist: %s", s.manifest.Binary)
		return result, nil
	}
	if err := checksumMatches(s.manifest.Binary, s.manifest.SHA256); err != nil {
		result.Error = "checksum mismatch"
		return result, nil
	}
	result.ChecksumValid = true
	if s.host == nil {
		return result, nil
	}
	meta, err := s.host.GetMetadata(ctx, s.manifest)
	if err != nil {
		result.Error = err.Error()
		return result, nil
	}
	result.LifecycleOK = true
	result.Name = meta.Name
	result.Version = meta.Version
	result.Labels = meta.Labels
	return result, nil
}

// Classify verifies the binary on first use, then asks the plugin for a label.
func (s *ClassifierService) Classify(ctx context.Context, input dto.ClassifyInput) (dto.ClassifyOutput, error) {
	if !s.manifest.Configured() || s.host == nil {
		return dto.ClassifyOutput{Label: "unknown"}, domain.ErrNotConfigured
	}
	if err := s.verify(); err != nil {
		return dto.ClassifyOutput{Label: "unknown"}, err
	}
	label, err := s.host.Classify(ctx, s.manifest, input.Snapshot)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return dto.ClassifyOutput{Label: "unknown"}, fmt.Errorf("%w: %v", domain.ErrClassifierTimeout, err)
		}
		return dto.ClassifyOutput{Label: "unknown"}, fmt.Errorf("%w: %v", apperrors.ErrClassifierUnavailable, err)
	}
	if !domain.KnownLabel(label) {
		return dto.ClassifyOutput{Label: "unknown"}, fmt.Errorf("%w: unsupported label %q", apperrors.ErrInvalidInput, label)
	}
	return dto.ClassifyOutput{Label: label}, nil
}

func (s *ClassifierService) verify() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.verified {
		return nil
	}
	if err := s.manifest.Validate(); err != nil {
		return err
	}
	if err := checksumMatches(s.manifest.Binary, s.manifest.SHA256); err != nil {
		return err
	}
	s.verified = true
	return nil
}

func checksumMatches(path string, expected string) error {
	payload, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: read classifier binary: %v", apperrors.ErrClassifierUnavailable, err)
	}
	hash := sha256.Sum256(payload)
	actual := hex.EncodeToString(hash[:])
	if actual != expected {
		return fmt.Errorf("%w: %s", domain.ErrChecksumMismatch, filepath.Base(path))
	}
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
