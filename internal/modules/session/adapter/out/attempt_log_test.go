package out_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	dialerdomain "queuebreaker/internal/modules/dialer/domain"
	sessionout "queuebreaker/internal/modules/session/adapter/out"
	"queuebreaker/internal/modules/session/domain"
)

func record(index int, reason dialerdomain.TerminationReason) dialerdomain.AttemptRecord {
	started := time.Date(2026, 3, 2, 9, 58, 0, 0, time.UTC).Add(time.Duration(index-1) * 15 * time.Second)
	return dialerdomain.AttemptRecord{
		Index:     index,
		StartedAt: started,
		EndedAt:   started.Add(8100 * time.Millisecond),
		Duration:  8100 * time.Millisecond,
		Reason:    reason,
		Outcome:   dialerdomain.OutcomeUnknown,
		Snapshot:  "Phone Link\n| window=42",
	}
}

func TestFormatLine(t *testing.T) {
	t.Parallel()
	got := sessionout.FormatLine(record(1, dialerdomain.ReasonCompleted))
	want := "2026-03-02 09:58:08 | Attempt 001 | Duration 8.1s | Termination completed | Outcome unknown | Window Phone Link | window=42\n"
	if got != want {
		t.Fatalf("unexpected line\n got %q\nwant %q", got, want)
	}
	rec := record(12, dialerdomain.ReasonAutomationUnavailable)
	rec.Snapshot = ""
	rec.Detail = "focus: window \"Phone Link\" not found"
	got = sessionout.FormatLine(rec)
	if !strings.Contains(got, "| Window n/a |") || !strings.HasSuffix(got, "| Detail focus: window \"Phone Link\" not found\n") {
		t.Fatalf("unexpected line %q", got)
	}
}

func TestTextAttemptLogAppends(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "logs", "attempt_log.txt")
	log, err := sessionout.NewTextAttemptLog(path)
	if err != nil {
		t.Fatalf("open log: %v", err)
	}
	for i := 1; i <= 3; i++ {
		if err := log.Append(context.Background(), "s1", record(i, dialerdomain.ReasonCompleted)); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	if err := log.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	lines := strings.Split(strings.TrimSuffix(string(raw), "\n"), "\n")
	if len(lines) != 3 || !strings.Contains(lines[2], "Attempt 003") {
		t.Fatalf("unexpected log content:\n%s", raw)
	}

	// reopening appends instead of truncating
	again, err := sessionout.NewTextAttemptLog(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer again.Close()
	if err := again.Append(context.Background(), "s2", record(1, dialerdomain.ReasonAborted)); err != nil {
		t.Fatalf("append after reopen: %v", err)
	}
	raw, _ = os.ReadFile(path)
	if strings.Count(string(raw), "\n") != 4 {
		t.Fatalf("expected 4 lines after reopen, got:\n%s", raw)
	}
}

type failingLog struct{ err error }

func (f failingLog) Append(context.Context, string, dialerdomain.AttemptRecord) error { return f.err }

type countingLog struct{ n int }

func (c *countingLog) Append(context.Context, string, dialerdomain.AttemptRecord) error {
	c.n++
	return nil
}

func TestMultiAttemptLogWritesEverywhere(t *testing.T) {
	t.Parallel()
	boom := errors.New("disk full")
	counter := &countingLog{}
	multi := sessionout.NewMultiAttemptLog(failingLog{err: boom}, counter)
	err := multi.Append(context.Background(), "s1", record(1, dialerdomain.ReasonCompleted))
	if !errors.Is(err, boom) {
		t.Fatalf("expected joined error, got %v", err)
	}
	if counter.n != 1 {
		t.Fatalf("later logs must still receive the record")
	}
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	t.Parallel()
	store, err := sessionout.NewSQLiteStore(filepath.Join(t.TempDir(), ".queuebreaker", "queuebreaker.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()
	ctx := context.Background()

	first := record(1, dialerdomain.ReasonCompleted)
	second := record(2, dialerdomain.ReasonAutomationUnavailable)
	second.Detail = "dial: xdotool missing"
	for _, rec := range []dialerdomain.AttemptRecord{first, second} {
		if err := store.Append(ctx, "s1", rec); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	if err := store.Append(ctx, "s1", first); err == nil {
		t.Fatalf("duplicate attempt index must be rejected")
	}

	sessions, err := store.ListSessions(ctx, 10)
	if err != nil {
		t.Fatalf("list sessions: %v", err)
	}
	if len(sessions) != 1 || sessions[0].Attempts != 2 || sessions[0].Cause != domain.CauseNone {
		t.Fatalf("unexpected in-progress sessions %+v", sessions)
	}

	summary := domain.Summary{
		ID:        "s1",
		StartedAt: first.StartedAt,
		EndedAt:   second.EndedAt,
		Cause:     domain.CauseMaxAttemptsReached,
		Attempts:  2,
	}
	if err := store.SaveSession(ctx, summary); err != nil {
		t.Fatalf("save session: %v", err)
	}
	sessions, err = store.ListSessions(ctx, 10)
	if err != nil {
		t.Fatalf("list sessions: %v", err)
	}
	if sessions[0].Cause != domain.CauseMaxAttemptsReached || !sessions[0].EndedAt.Equal(second.EndedAt) {
		t.Fatalf("unexpected saved session %+v", sessions[0])
	}

	attempts, err := store.ListAttempts(ctx, "s1")
	if err != nil {
		t.Fatalf("list attempts: %v", err)
	}
	if len(attempts) != 2 {
		t.Fatalf("expected 2 attempts, got %d", len(attempts))
	}
	got := attempts[1]
	if got.Index != 2 || got.Reason != dialerdomain.ReasonAutomationUnavailable || got.Detail != second.Detail || got.Snapshot != second.Snapshot {
		t.Fatalf("unexpected attempt %+v", got)
	}
	if !got.StartedAt.Equal(second.StartedAt) || got.Duration != second.Duration {
		t.Fatalf("timing did not survive storage: %+v", got)
	}
}
