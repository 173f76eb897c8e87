package domain

import (
	"fmt"
	"time"

	dialerdomain "queuebreaker/internal/modules/dialer/domain"
	apperrors "queuebreaker/internal/platform/errors"
)

const SchemaVersion = 1

type Status string

const (
	StatusIdle             Status = "idle"
	StatusWaitingForWindow Status = "waiting_for_window"
	StatusAttempting       Status = "attempting"
	StatusStopped          Status = "stopped"
)

type StopCause string

const (
	CauseNone               StopCause = ""
	CauseMaxAttemptsReached StopCause = "max_attempts_reached"
	CauseAborted            StopCause = "aborted"
	CauseConfigurationError StopCause = "configuration_error"
)

// State is owned by the loop goroutine. Records only grow and Status never
// leaves stopped.
type State struct {
	ID        string
	Status    Status
	Counter   int
	Records   []dialerdomain.AttemptRecord
	Cause     StopCause
	StartedAt time.Time
	EndedAt   time.Time
}

func NewState(id string, startedAt time.Time) State {
	return State{ID: id, Status: StatusIdle, StartedAt: startedAt}
}

func allowed(from, to Status) bool {
	switch from {
	case StatusIdle:
		return to == StatusWaitingForWindow || to == StatusStopped
	case StatusWaitingForWindow:
		return to == StatusAttempting || to == StatusStopped
	case StatusAttempting:
		return to == StatusWaitingForWindow || to == StatusStopped
	default:
		return false
	}
}

// Transition moves to status to. Staying in the current status is a no-op.
func (s *State) Transition(to Status) error {
	if s.Status == to && to != StatusStopped {
		return nil
	}
	if s.Status == StatusStopped {
		return apperrors.ErrSessionAlreadyFinished
	}
	if !allowed(s.Status, to) {
		return fmt.Errorf("%w: transition %s -> %s", apperrors.ErrInvalidInput, s.Status, to)
	}
	s.Status = to
	return nil
}

// Append adds the next record. Indices must be contiguous from 1.
func (s *State) Append(rec dialerdomain.AttemptRecord) error {
	if s.Status == StatusStopped {
		return apperrors.ErrSessionAlreadyFinished
	}
	if want := len(s.Records) + 1; rec.Index != want {
		return fmt.Errorf("%w: attempt index %d, want %d", apperrors.ErrInvalidInput, rec.Index, want)
	}
	s.Records = append(s.Records, rec)
	return nil
}

func (s *State) Stop(cause StopCause, at time.Time) error {
	if err := s.Transition(StatusStopped); err != nil {
		return err
	}
	s.Cause = cause
	s.EndedAt = at
	return nil
}

// Summary is the per-session rollup kept in history and reports.
type Summary struct {
	ID        string
	StartedAt time.Time
	EndedAt   time.Time
	Cause     StopCause
	Attempts  int
	ByReason  map[dialerdomain.TerminationReason]int
	ByOutcome map[dialerdomain.Outcome]int
}

func (s State) Summarize() Summary {
	sum := Summary{
		ID:        s.ID,
		StartedAt: s.StartedAt,
		EndedAt:   s.EndedAt,
		Cause:     s.Cause,
		Attempts:  len(s.Records),
		ByReason:  map[dialerdomain.TerminationReason]int{},
		ByOutcome: map[dialerdomain.Outcome]int{},
	}
	for _, rec := range s.Records {
		sum.ByReason[rec.Reason]++
		sum.ByOutcome[rec.Outcome]++
	}
	return sum
}
