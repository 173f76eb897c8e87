package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	dialerdomain "queuebreaker/internal/modules/dialer/domain"
	scheduledomain "queuebreaker/internal/modules/schedule/domain"
	sessiondomain "queuebreaker/internal/modules/session/domain"
	sessionout "queuebreaker/internal/modules/session/port/out"
	"queuebreaker/internal/platform/abort"
	"queuebreaker/internal/platform/clock"
	apperrors "queuebreaker/internal/platform/errors"
)

// Policy holds the loop's pacing and budget.
type Policy struct {
	// MaxAttempts of 0 means unlimited.
	MaxAttempts  int
	DelayBetween time.Duration
	PollInterval time.Duration
	// CountUnavailable decides whether automation_unavailable attempts use up
	// the budget.
	CountUnavailable bool
}

func (p Policy) Validate() error {
	if p.MaxAttempts < 0 {
		return fmt.Errorf("%w: max attempts must be >= 0", apperrors.ErrConfiguration)
	}
	if p.DelayBetween <= 0 {
		return fmt.Errorf("%w: delay between attempts must be positive", apperrors.ErrConfiguration)
	}
	if p.PollInterval <= 0 {
		return fmt.Errorf("%w: poll interval must be positive", apperrors.ErrConfiguration)
	}
	return nil
}

// Loop is the session state machine. It runs on the caller's goroutine and
// keeps at most one attempt in flight.
type Loop struct {
	clock     clock.Clock
	sleeper   clock.Sleeper
	abort     *abort.Signal
	gate      sessionout.Gate
	runner    sessionout.AttemptRunner
	log       sessionout.AttemptLog
	observers []sessionout.Observer
	policy    Policy
	logger    zerolog.Logger
}

func NewLoop(
	clk clock.Clock,
	sleeper clock.Sleeper,
	signal *abort.Signal,
	gate sessionout.Gate,
	runner sessionout.AttemptRunner,
	log sessionout.AttemptLog,
	policy Policy,
	logger zerolog.Logger,
	observers ...sessionout.Observer,
) *Loop {
	return &Loop{
		clock:     clk,
		sleeper:   sleeper,
		abort:     signal,
		gate:      gate,
		runner:    runner,
		log:       log,
		observers: observers,
		policy:    policy,
		logger:    logger.With().Str("component", "loop").Logger(),
	}
}

func (l *Loop) Validate() error {
	if err := l.policy.Validate(); err != nil {
		return err
	}
	if err := l.gate.Validate(); err != nil {
		return err
	}
	if v, ok := l.runner.(validator); ok {
		return v.Validate()
	}
	return nil
}

// validator is implemented by runners that can reject their settings up front.
type validator interface {
	Validate() error
}

// Run drives one session until the budget is spent or abort is raised. The
// returned state is always stopped; the error is only set for invalid
// configuration, in which case no attempt was made.
func (l *Loop) Run(ctx context.Context, sessionID string) (sessiondomain.State, error) {
	state := sessiondomain.NewState(sessionID, l.clock.Now())
	if err := l.Validate(); err != nil {
		l.stop(&state, sessiondomain.CauseConfigurationError)
		return state, err
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			l.abort.Set("context")
		case <-done:
		}
	}()

	l.setStatus(&state, sessiondomain.StatusWaitingForWindow)
	counted := 0
	needDelay := false
	for {
		if ctx.Err() != nil {
			l.abort.Set("context")
		}
		if l.abort.IsSet() {
			l.stop(&state, sessiondomain.CauseAborted)
			return state, nil
		}
		if l.policy.MaxAttempts > 0 && counted >= l.policy.MaxAttempts {
			l.stop(&state, sessiondomain.CauseMaxAttemptsReached)
			return state, nil
		}

		now := l.clock.Now()
		if !l.gate.MayAttemptNow(now) {
			l.setStatus(&state, sessiondomain.StatusWaitingForWindow)
			needDelay = false
			l.sleeper.Sleep(l.waitFor(&state, now), l.abort.Done())
			continue
		}
		if needDelay {
			needDelay = false
			l.sleeper.Sleep(l.policy.DelayBetween, l.abort.Done())
			continue
		}

		l.setStatus(&state, sessiondomain.StatusAttempting)
		rec := l.attempt(ctx, &state)
		if rec.Reason != dialerdomain.ReasonAutomationUnavailable || l.policy.CountUnavailable {
			counted++
		}
		needDelay = true
	}
}

func (l *Loop) attempt(ctx context.Context, state *sessiondomain.State) dialerdomain.AttemptRecord {
	state.Counter++
	l.publish(sessiondomain.Event{Kind: sessiondomain.EventAttemptStarted, SessionID: state.ID, At: l.clock.Now(), Status: state.Status, Attempts: state.Counter})

	rec := l.runner.RunAttempt(ctx, state.Counter)
	if err := state.Append(rec); err != nil {
		// only reachable if the runner ignores the index it was given
		l.logger.Error().Err(err).Int("attempt", rec.Index).Msg("attempt record rejected")
	}
	if l.log != nil {
		// The record of an aborted attempt is written after ctx may be gone.
		if err := l.log.Append(context.WithoutCancel(ctx), state.ID, rec); err != nil {
			l.logger.Error().Err(err).Int("attempt", rec.Index).Msg("append attempt log")
		}
	}
	l.publish(sessiondomain.Event{Kind: sessiondomain.EventAttemptFinished, SessionID: state.ID, At: rec.EndedAt, Status: state.Status, Attempts: state.Counter, Record: rec})
	return rec
}

// waitFor publishes the waiting event and returns how long to sleep before
// checking the gate again.
func (l *Loop) waitFor(state *sessiondomain.State, now time.Time) time.Duration {
	until := l.gate.UntilNextWindow(now)
	wait := l.policy.PollInterval
	if until < wait {
		wait = until
	}
	event := sessiondomain.Event{Kind: sessiondomain.EventWaiting, SessionID: state.ID, At: now, Status: state.Status, Attempts: state.Counter, Wait: wait}
	if until != scheduledomain.NeverOpens {
		event.NextOpening = now.Add(until)
	}
	l.publish(event)
	return wait
}

func (l *Loop) setStatus(state *sessiondomain.State, to sessiondomain.Status) {
	if state.Status == to {
		return
	}
	if err := state.Transition(to); err != nil {
		l.logger.Error().Err(err).Msg("status transition")
		return
	}
	l.logger.Debug().Str("status", string(to)).Msg("status changed")
	l.publish(sessiondomain.Event{Kind: sessiondomain.EventStatus, SessionID: state.ID, At: l.clock.Now(), Status: to, Attempts: state.Counter})
}

func (l *Loop) stop(state *sessiondomain.State, cause sessiondomain.StopCause) {
	now := l.clock.Now()
	if err := state.Stop(cause, now); err != nil {
		l.logger.Error().Err(err).Msg("stop session")
		return
	}
	l.publish(sessiondomain.Event{Kind: sessiondomain.EventStopped, SessionID: state.ID, At: now, Status: state.Status, Attempts: state.Counter, Cause: cause})
}

func (l *Loop) publish(event sessiondomain.Event) {
	for _, o := range l.observers {
		o.Observe(event)
	}
}
