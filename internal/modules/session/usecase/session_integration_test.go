package usecase_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	dialerdomain "queuebreaker/internal/modules/dialer/domain"
	dialerservice "queuebreaker/internal/modules/dialer/service"
	scheduledomain "queuebreaker/internal/modules/schedule/domain"
	sessionout "queuebreaker/internal/modules/session/adapter/out"
	sessiondto "queuebreaker/internal/modules/session/dto"
	sessionin "queuebreaker/internal/modules/session/port/in"
	"queuebreaker/internal/modules/session/service"
	"queuebreaker/internal/modules/session/usecase"
	"queuebreaker/internal/platform/abort"
	"queuebreaker/internal/platform/clock"
	apperrors "queuebreaker/internal/platform/errors"
)

type fixedID struct{}

func (fixedID) New() string { return "3f6c9b2e-0000-4000-8000-000000000001" }

type scriptedAutomation struct {
	mu      sync.Mutex
	hangups int
	dials   int
	focusOK func(dial int) bool
}

func (a *scriptedAutomation) FocusTarget(context.Context, string) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.dials++
	if a.focusOK != nil && !a.focusOK(a.dials) {
		return false, nil
	}
	return true, nil
}

func (a *scriptedAutomation) Dial(context.Context, string, dialerdomain.Shortcuts, *dialerdomain.Point) error {
	return nil
}

func (a *scriptedAutomation) TriggerCall(context.Context, dialerdomain.Shortcuts) error { return nil }

func (a *scriptedAutomation) HangUp(context.Context, dialerdomain.Shortcuts) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.hangups++
	return nil
}

func (a *scriptedAutomation) CaptureSnapshot(context.Context) string { return "Phone Link" }

// abortOnSecondObservation raises abort when the second observation wait begins.
type abortOnSecondObservation struct {
	signal *abort.Signal
	inner  *clock.Manual
	mu     sync.Mutex
	seen   int
}

func (s *abortOnSecondObservation) Sleep(d time.Duration, done <-chan struct{}) bool {
	s.mu.Lock()
	if d == 8*time.Second {
		s.seen++
		if s.seen == 2 {
			s.signal.Set("operator")
		}
	}
	s.mu.Unlock()
	return s.inner.Sleep(d, done)
}

type harness struct {
	uc         sessionin.Usecase
	automation *scriptedAutomation
	dir        string
}

func newHarness(t *testing.T, maxAttempts int, gate scheduledomain.Gate, sleeperFor func(*abort.Signal, *clock.Manual) clock.Sleeper, automation *scriptedAutomation) harness {
	t.Helper()
	dir := t.TempDir()
	clk := clock.NewManual(time.Date(2026, 3, 2, 9, 58, 0, 0, time.UTC))
	signal := abort.New()
	sleeper := clock.Sleeper(clk)
	if sleeperFor != nil {
		sleeper = sleeperFor(signal, clk)
	}
	settings := dialerdomain.Settings{
		PhoneNumber:      "18004803287",
		WindowTitle:      "Phone Link",
		ObservationDelay: 8 * time.Second,
		Shortcuts:        dialerdomain.Shortcuts{DialPad: []string{"ctrl", "shift", "d"}, Call: []string{"enter"}, HangUp: []string{"esc"}},
	}
	executor := dialerservice.NewExecutor(clk, sleeper, signal, automation, nil, settings, zerolog.Nop())

	textLog, err := sessionout.NewTextAttemptLog(filepath.Join(dir, "attempt_log.txt"))
	if err != nil {
		t.Fatalf("text log: %v", err)
	}
	t.Cleanup(func() { _ = textLog.Close() })
	store, err := sessionout.NewSQLiteStore(filepath.Join(dir, ".queuebreaker", "queuebreaker.db"))
	if err != nil {
		t.Fatalf("sqlite store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	policy := service.Policy{MaxAttempts: maxAttempts, DelayBetween: 7 * time.Second, PollInterval: 30 * time.Second, CountUnavailable: true}
	loop := service.NewLoop(clk, sleeper, signal, gate, executor, sessionout.NewMultiAttemptLog(textLog, store), policy, zerolog.Nop())
	uc := usecase.NewInteractor(loop, fixedID{}, store, sessionout.NewVaultReportStore(filepath.Join(dir, "sessions")), zerolog.Nop())
	return harness{dir: dir, automation: automation, uc: uc}
}

func everyHour() scheduledomain.Gate {
	return scheduledomain.NewGate(scheduledomain.ModeEveryHour, scheduledomain.Window{Start: 58, End: 2}, nil)
}

func TestRunThreeAttemptsEndToEnd(t *testing.T) {
	t.Parallel()
	h := newHarness(t, 3, everyHour(), nil, &scriptedAutomation{})
	ctx := context.Background()

	out, err := h.uc.Run(ctx, sessiondto.RunInput{})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if out.Attempts != 3 || out.Cause != "max_attempts_reached" || out.ByReason["completed"] != 3 {
		t.Fatalf("unexpected output %+v", out)
	}
	if h.automation.hangups != 3 {
		t.Fatalf("expected a hang-up per attempt, got %d", h.automation.hangups)
	}
	raw, err := os.ReadFile(filepath.Join(h.dir, "attempt_log.txt"))
	if err != nil {
		t.Fatalf("read text log: %v", err)
	}
	if strings.Count(string(raw), "\n") != 3 || !strings.Contains(string(raw), "Attempt 003 | Duration 8.0s | Termination completed") {
		t.Fatalf("unexpected text log:\n%s", raw)
	}
	if _, err := os.Stat(out.ReportPath); err != nil {
		t.Fatalf("report should exist: %v", err)
	}

	sessions, err := h.uc.ListSessions(ctx, sessiondto.ListSessionsInput{})
	if err != nil {
		t.Fatalf("list sessions: %v", err)
	}
	if len(sessions) != 1 || sessions[0].Cause != "max_attempts_reached" || sessions[0].Attempts != 3 {
		t.Fatalf("unexpected sessions %+v", sessions)
	}
	attempts, err := h.uc.ListAttempts(ctx, out.SessionID)
	if err != nil {
		t.Fatalf("list attempts: %v", err)
	}
	if len(attempts) != 3 || attempts[2].Index != 3 {
		t.Fatalf("unexpected attempts %+v", attempts)
	}
}

func TestRunAbortDuringSecondObservation(t *testing.T) {
	t.Parallel()
	sleeperFor := func(signal *abort.Signal, clk *clock.Manual) clock.Sleeper {
		return &abortOnSecondObservation{signal: signal, inner: clk}
	}
	h := newHarness(t, 10, everyHour(), sleeperFor, &scriptedAutomation{})
	out, err := h.uc.Run(context.Background(), sessiondto.RunInput{})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if out.Attempts != 2 || out.Cause != "aborted" || out.ByReason["aborted"] != 1 || out.ByReason["completed"] != 1 {
		t.Fatalf("unexpected output %+v", out)
	}
	if h.automation.hangups != 2 {
		t.Fatalf("hang-up must follow the aborted attempt, got %d", h.automation.hangups)
	}
}

func TestRunUnavailableThenProceeds(t *testing.T) {
	t.Parallel()
	automation := &scriptedAutomation{focusOK: func(dial int) bool { return dial != 1 }}
	h := newHarness(t, 2, everyHour(), nil, automation)
	out, err := h.uc.Run(context.Background(), sessiondto.RunInput{})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if out.Attempts != 2 || out.ByReason["automation_unavailable"] != 1 || out.ByReason["completed"] != 1 {
		t.Fatalf("unexpected output %+v", out)
	}
	attempts, err := h.uc.ListAttempts(context.Background(), out.SessionID)
	if err != nil {
		t.Fatalf("list attempts: %v", err)
	}
	if attempts[0].Reason != "automation_unavailable" || !strings.Contains(attempts[0].Detail, "not found") {
		t.Fatalf("first attempt should record the missing window: %+v", attempts[0])
	}
}

func TestRunConfigurationError(t *testing.T) {
	t.Parallel()
	gate := scheduledomain.NewGate(scheduledomain.ModeSpecificHours, scheduledomain.Window{Start: 58, End: 2}, nil)
	h := newHarness(t, 3, gate, nil, &scriptedAutomation{})
	out, err := h.uc.Run(context.Background(), sessiondto.RunInput{})
	if !errors.Is(err, apperrors.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if out.Cause != "configuration_error" || out.Attempts != 0 || h.automation.dials != 0 {
		t.Fatalf("nothing may run on a configuration error: %+v", out)
	}
}

func TestListAttemptsValidation(t *testing.T) {
	t.Parallel()
	h := newHarness(t, 1, everyHour(), nil, &scriptedAutomation{})
	if _, err := h.uc.ListAttempts(context.Background(), ""); !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	if _, err := h.uc.ListAttempts(context.Background(), "missing"); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
