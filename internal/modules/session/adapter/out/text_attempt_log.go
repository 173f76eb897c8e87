package out

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	dialerdomain "queuebreaker/internal/modules/dialer/domain"
	sessionout "queuebreaker/internal/modules/session/port/out"
)

const textTimestampLayout = "2006-01-02 15:04:05"

// TextAttemptLog appends one human-readable line per attempt and syncs the
// file after each write so a crash never loses a finished attempt.
type TextAttemptLog struct {
	mu   sync.Mutex
	file *os.File
}

func NewTextAttemptLog(path string) (*TextAttemptLog, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create attempt log dir: %w", err)
	}
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open attempt log: %w", err)
	}
	return &TextAttemptLog{file: file}, nil
}

var _ sessionout.AttemptLog = (*TextAttemptLog)(nil)

func (l *TextAttemptLog) Append(_ context.Context, _ string, rec dialerdomain.AttemptRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, err := l.file.WriteString(FormatLine(rec)); err != nil {
		return fmt.Errorf("write attempt log: %w", err)
	}
	if err := l.file.Sync(); err != nil {
		return fmt.Errorf("sync attempt log: %w", err)
	}
	return nil
}

func (l *TextAttemptLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Close()
}

// FormatLine renders rec as a single log line ending in a newline.
func FormatLine(rec dialerdomain.AttemptRecord) string {
	window := oneLine(rec.Snapshot)
	if window == "" {
		window = "n/a"
	}
	line := fmt.Sprintf("%s | Attempt %03d | Duration %.1fs | Termination %s | Outcome %s | Window %s",
		rec.EndedAt.Format(textTimestampLayout), rec.Index, rec.Duration.Seconds(), rec.Reason, rec.Outcome, window)
	if rec.Detail != "" {
		line += " | Detail " + oneLine(rec.Detail)
	}
	return line + "\n"
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
