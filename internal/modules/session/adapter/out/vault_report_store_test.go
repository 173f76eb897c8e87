package out_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	dialerdomain "queuebreaker/internal/modules/dialer/domain"
	sessionout "queuebreaker/internal/modules/session/adapter/out"
	"queuebreaker/internal/modules/session/domain"
	"queuebreaker/internal/platform/markdown"
)

func stoppedState(id string, start time.Time, records ...dialerdomain.AttemptRecord) domain.State {
	state := domain.NewState(id, start)
	_ = state.Transition(domain.StatusWaitingForWindow)
	for _, rec := range records {
		_ = state.Append(rec)
	}
	_ = state.Stop(domain.CauseMaxAttemptsReached, start.Add(time.Minute))
	return state
}

func TestVaultReportStoreWritesNoteAndIndex(t *testing.T) {
	t.Parallel()
	root := filepath.Join(t.TempDir(), "sessions")
	store := sessionout.NewVaultReportStore(root)
	start := time.Date(2026, 3, 2, 9, 57, 30, 0, time.UTC)

	path, err := store.Save(context.Background(), stoppedState("0f3c2a9e-aaaa", start, record(1, dialerdomain.ReasonCompleted), record(2, dialerdomain.ReasonAborted)))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if want := filepath.Join(root, "2026", "03", "02", "095730-0f3c2a9e.md"); path != want {
		t.Fatalf("unexpected path %s", path)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read note: %v", err)
	}
	note, err := markdown.Parse(string(raw))
	if err != nil {
		t.Fatalf("parse note: %v", err)
	}
	if note.Meta["cause"] != "max_attempts_reached" || note.Meta["attempts"] != 2 {
		t.Fatalf("unexpected frontmatter %v", note.Meta)
	}
	if !strings.Contains(note.Body, "| 2 | 09:58:15 | 8.1s | aborted | unknown |") {
		t.Fatalf("attempt table missing:\n%s", note.Body)
	}

	later := start.Add(2 * time.Hour)
	if _, err := store.Save(context.Background(), stoppedState("7b", later)); err != nil {
		t.Fatalf("save second: %v", err)
	}
	indexPath := filepath.Join(root, "index.md")
	prefix := "# My calls\n\nnotes above the block\n"
	current, _ := os.ReadFile(indexPath)
	if err := os.WriteFile(indexPath, []byte(prefix+string(current)[len("# QueueBreaker sessions\n"):]), 0o644); err != nil {
		t.Fatalf("edit index: %v", err)
	}
	if _, err := store.Save(context.Background(), stoppedState("9c", later.Add(time.Hour))); err != nil {
		t.Fatalf("save third: %v", err)
	}
	index, err := os.ReadFile(indexPath)
	if err != nil {
		t.Fatalf("read index: %v", err)
	}
	text := string(index)
	if !strings.HasPrefix(text, prefix) {
		t.Fatalf("user text outside the managed block must survive:\n%s", text)
	}
	first := strings.Index(text, "2026/03/02/125730-9c.md")
	last := strings.Index(text, "2026/03/02/095730-0f3c2a9e.md")
	if first < 0 || last < 0 || first > last {
		t.Fatalf("index should list newest first:\n%s", text)
	}
}
