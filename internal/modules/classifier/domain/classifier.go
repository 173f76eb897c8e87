package domain

import (
	"errors"
	"fmt"
	"regexp"

	apperrors "queuebreaker/internal/platform/errors"
)

var (
	ErrChecksumMismatch  = errors.New("classifier checksum mismatch")
	ErrClassifierTimeout = errors.New("classifier timeout")
	ErrNotConfigured     = errors.New("no classifier configured")
)

var sha256Pattern = regexp.MustCompile(`^[a-f0-9]{64}$`)

// Labels a classifier may return. Anything else is treated as unknown.
var Labels = []string{"unknown", "busy", "voicemail", "human", "no_answer"}

// Manifest pins an out-of-process classifier binary to a checksum.
type Manifest struct {
	Binary string
	SHA256 string
}

func (m Manifest) Configured() bool {
	return m.Binary != ""
}

func (m Manifest) Validate() error {
	if m.Binary == "" {
		return fmt.Errorf("%w: classifier binary path is required", apperrors.ErrConfiguration)
	}
	if !sha256Pattern.MatchString(m.SHA256) {
		return fmt.Errorf("%w: classifier sha256 must be lowercase 64-char hex", apperrors.ErrConfiguration)
	}
	return nil
}

type Metadata struct {
	Name    string
	Version string
	Labels  []string
}

// KnownLabel reports whether label is one the session understands.
func KnownLabel(label string) bool {
	for _, l := range Labels {
		if l == label {
			return true
		}
	}
	return false
}
