package domain

import (
	"fmt"
	"time"

	apperrors "queuebreaker/internal/platform/errors"
)

// TerminationReason is why one attempt ended. Budget exhaustion is a session
// stop cause and never appears here.
type TerminationReason string

const (
	ReasonCompleted             TerminationReason = "completed"
	ReasonAborted               TerminationReason = "aborted"
	ReasonAutomationUnavailable TerminationReason = "automation_unavailable"
)

type Phase string

const (
	PhaseDialing   Phase = "dialing"
	PhaseObserving Phase = "observing"
	PhaseHangingUp Phase = "hanging_up"
	PhaseCompleted Phase = "completed"
	PhaseAborted   Phase = "aborted"
)

type Outcome string

const (
	OutcomeUnknown   Outcome = "unknown"
	OutcomeBusy      Outcome = "busy"
	OutcomeVoicemail Outcome = "voicemail"
	OutcomeHuman     Outcome = "human"
	OutcomeNoAnswer  Outcome = "no_answer"
)

func ParseOutcome(raw string) (Outcome, error) {
	switch o := Outcome(raw); o {
	case OutcomeUnknown, OutcomeBusy, OutcomeVoicemail, OutcomeHuman, OutcomeNoAnswer:
		return o, nil
	case "":
		return OutcomeUnknown, nil
	default:
		return OutcomeUnknown, fmt.Errorf("%w: unknown outcome %q", apperrors.ErrInvalidInput, raw)
	}
}

// AttemptRecord is the immutable result of one attempt. Snapshot is opaque
// and stored verbatim.
type AttemptRecord struct {
	Index     int
	StartedAt time.Time
	EndedAt   time.Time
	Duration  time.Duration
	Reason    TerminationReason
	Outcome   Outcome
	Snapshot  string
	Detail    string
	// Reached is the last phase the attempt entered before it finished.
	Reached Phase
}

// Shortcuts are key chords in xdotool key names.
type Shortcuts struct {
	DialPad []string
	Call    []string
	HangUp  []string
}

type Point struct {
	X int
	Y int
}

// Settings is what the executor needs from the session configuration.
type Settings struct {
	PhoneNumber      string
	WindowTitle      string
	ObservationDelay time.Duration
	Shortcuts        Shortcuts
	NumberFieldClick *Point
}

func (s Settings) Validate() error {
	if s.PhoneNumber == "" {
		return fmt.Errorf("%w: phone number is required", apperrors.ErrConfiguration)
	}
	if s.WindowTitle == "" {
		return fmt.Errorf("%w: window title is required", apperrors.ErrConfiguration)
	}
	if s.ObservationDelay < 0 {
		return fmt.Errorf("%w: observation delay must be >= 0", apperrors.ErrConfiguration)
	}
	return nil
}
