package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"queuebreaker/internal/modules/dialer/domain"
	dialerout "queuebreaker/internal/modules/dialer/port/out"
	"queuebreaker/internal/platform/abort"
	"queuebreaker/internal/platform/clock"
)

// PhaseFunc is told about every phase an attempt enters.
type PhaseFunc func(index int, phase domain.Phase)

// Executor runs one dial-observe-hang-up cycle. Automation failures are
// folded into the returned record and never returned as errors.
type Executor struct {
	clock      clock.Clock
	sleeper    clock.Sleeper
	abort      *abort.Signal
	automation dialerout.Automation
	classifier dialerout.Classifier
	settings   domain.Settings
	logger     zerolog.Logger
	onPhase    PhaseFunc
}

func NewExecutor(
	clk clock.Clock,
	sleeper clock.Sleeper,
	signal *abort.Signal,
	automation dialerout.Automation,
	classifier dialerout.Classifier,
	settings domain.Settings,
	logger zerolog.Logger,
) *Executor {
	return &Executor{
		clock:      clk,
		sleeper:    sleeper,
		abort:      signal,
		automation: automation,
		classifier: classifier,
		settings:   settings,
		logger:     logger.With().Str("component", "executor").Logger(),
	}
}

func (e *Executor) OnPhase(fn PhaseFunc) {
	e.onPhase = fn
}

// Validate checks the settings before any attempt is made.
func (e *Executor) Validate() error {
	return e.settings.Validate()
}

// RunAttempt runs one attempt. Automation steps and the classifier run
// detached from ctx cancellation; only the abort signal interrupts them.
func (e *Executor) RunAttempt(ctx context.Context, index int) domain.AttemptRecord {
	ctx = context.WithoutCancel(ctx)
	log := e.logger.With().Int("attempt", index).Logger()
	rec := domain.AttemptRecord{Index: index, StartedAt: e.clock.Now(), Outcome: domain.OutcomeUnknown}
	var details []string

	e.enter(&rec, domain.PhaseDialing)
	if e.abort.IsSet() {
		return e.finish(rec, domain.ReasonAborted, details)
	}

	found, err := e.automation.FocusTarget(ctx, e.settings.WindowTitle)
	if err != nil || !found {
		if err != nil {
			details = append(details, "focus: "+err.Error())
		} else {
			details = append(details, fmt.Sprintf("focus: window %q not found", e.settings.WindowTitle))
		}
		log.Warn().Err(err).Str("window", e.settings.WindowTitle).Msg("target window unavailable")
		rec.Snapshot = e.automation.CaptureSnapshot(ctx)
		return e.finish(rec, e.failureReason(), details)
	}

	if err := e.automation.Dial(ctx, e.settings.PhoneNumber, e.settings.Shortcuts, e.settings.NumberFieldClick); err != nil {
		details = append(details, "dial: "+err.Error())
		log.Warn().Err(err).Msg("dial failed")
		rec.Snapshot = e.automation.CaptureSnapshot(ctx)
		return e.finish(rec, e.failureReason(), details)
	}

	reason := domain.ReasonCompleted
	if e.abort.IsSet() {
		reason = domain.ReasonAborted
	} else if err := e.automation.TriggerCall(ctx, e.settings.Shortcuts); err != nil {
		// The call may or may not have been placed; hang up regardless.
		details = append(details, "call: "+err.Error())
		log.Warn().Err(err).Msg("trigger call failed")
		reason = e.failureReason()
	} else {
		e.enter(&rec, domain.PhaseObserving)
		if !e.sleeper.Sleep(e.settings.ObservationDelay, e.abort.Done()) {
			log.Info().Msg("abort requested while observing")
			reason = domain.ReasonAborted
		}
	}

	e.enter(&rec, domain.PhaseHangingUp)
	if err := e.automation.HangUp(ctx, e.settings.Shortcuts); err != nil {
		details = append(details, "hangup: "+err.Error())
		log.Error().Err(err).Msg("hang-up failed")
	}
	rec.Snapshot = e.automation.CaptureSnapshot(ctx)
	rec.Outcome = e.classify(ctx, rec.Snapshot, log)
	return e.finish(rec, reason, details)
}

// failureReason reports an automation failure that happened while abort was
// being raised as an abort.
func (e *Executor) failureReason() domain.TerminationReason {
	if e.abort.IsSet() {
		return domain.ReasonAborted
	}
	return domain.ReasonAutomationUnavailable
}

func (e *Executor) classify(ctx context.Context, snapshot string, log zerolog.Logger) domain.Outcome {
	if e.classifier == nil {
		return domain.OutcomeUnknown
	}
	outcome, err := e.classifier.Classify(ctx, snapshot)
	if err != nil {
		log.Warn().Err(err).Msg("classifier failed, outcome unknown")
		return domain.OutcomeUnknown
	}
	if outcome == "" {
		return domain.OutcomeUnknown
	}
	return outcome
}

func (e *Executor) enter(rec *domain.AttemptRecord, phase domain.Phase) {
	rec.Reached = phase
	if e.onPhase != nil {
		e.onPhase(rec.Index, phase)
	}
}

func (e *Executor) finish(rec domain.AttemptRecord, reason domain.TerminationReason, details []string) domain.AttemptRecord {
	rec.Reason = reason
	rec.Detail = strings.Join(details, "; ")
	rec.EndedAt = e.clock.Now()
	if rec.EndedAt.Before(rec.StartedAt) {
		rec.EndedAt = rec.StartedAt
	}
	rec.Duration = rec.EndedAt.Sub(rec.StartedAt)
	final := domain.PhaseCompleted
	if reason == domain.ReasonAborted {
		final = domain.PhaseAborted
	}
	if e.onPhase != nil {
		e.onPhase(rec.Index, final)
	}
	return rec
}
