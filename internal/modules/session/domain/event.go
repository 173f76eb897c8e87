package domain

import (
	"time"

	dialerdomain "queuebreaker/internal/modules/dialer/domain"
)

type EventKind string

const (
	EventStatus          EventKind = "status"
	EventWaiting         EventKind = "waiting"
	EventAttemptStarted  EventKind = "attempt_started"
	EventAttemptPhase    EventKind = "attempt_phase"
	EventAttemptFinished EventKind = "attempt_finished"
	EventStopped         EventKind = "stopped"
)

// Event is a copy of what just happened in the loop. Observers never see the
// live State.
type Event struct {
	Kind      EventKind
	SessionID string
	At        time.Time
	Status    Status
	Attempts  int
	Phase     dialerdomain.Phase
	Record    dialerdomain.AttemptRecord
	// NextOpening is zero when the gate never opens.
	NextOpening time.Time
	Wait        time.Duration
	Cause       StopCause
}
