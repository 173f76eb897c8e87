package out

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"queuebreaker/internal/modules/session/domain"
	sessionout "queuebreaker/internal/modules/session/port/out"
	"queuebreaker/internal/platform/markdown"
	"queuebreaker/internal/platform/slug"
)

const (
	reportTimeLayout = "2006-01-02T15:04:05Z07:00"
	indexFileName    = "index.md"
	indexStart       = "<!-- queuebreaker:sessions:start -->"
	indexEnd         = "<!-- queuebreaker:sessions:end -->"
)

// VaultReportStore writes one markdown note per session under
// reports/YYYY/MM/DD and keeps a managed list of them in reports/index.md.
type VaultReportStore struct {
	mu   sync.Mutex
	root string
}

func NewVaultReportStore(root string) sessionout.ReportStore {
	return &VaultReportStore{root: root}
}

func (s *VaultReportStore) Save(_ context.Context, state domain.State) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	date := state.StartedAt
	dir := filepath.Join(s.root, date.Format("2006"), date.Format("01"), date.Format("02"))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}
	name := fmt.Sprintf("%s-%s.md", date.Format("150405"), slug.Make(shortID(state.ID)))
	path := filepath.Join(dir, name)

	summary := state.Summarize()
	note := markdown.Note{
		Meta: map[string]any{
			"schema_version": domain.SchemaVersion,
			"id":             state.ID,
			"started_at":     state.StartedAt.Format(reportTimeLayout),
			"ended_at":       state.EndedAt.Format(reportTimeLayout),
			"cause":          string(state.Cause),
			"attempts":       summary.Attempts,
			"by_reason":      stringCounts(summary.ByReason),
			"by_outcome":     stringCounts(summary.ByOutcome),
		},
		Body: reportBody(state),
	}
	rendered, err := note.Render()
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, []byte(rendered), 0o644); err != nil {
		return "", fmt.Errorf("write session report: %w", err)
	}
	if err := s.updateIndex(); err != nil {
		return path, err
	}
	return path, nil
}

func reportBody(state domain.State) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Session %s\n\n", state.ID)
	fmt.Fprintf(&b, "- Started: %s\n", state.StartedAt.Format(reportTimeLayout))
	fmt.Fprintf(&b, "- Ended: %s\n", state.EndedAt.Format(reportTimeLayout))
	fmt.Fprintf(&b, "- Stop cause: %s\n", state.Cause)
	fmt.Fprintf(&b, "- Attempts: %d\n\n", len(state.Records))
	if len(state.Records) == 0 {
		b.WriteString("No attempts were made.\n")
		return b.String()
	}
	b.WriteString("## Attempts\n\n")
	b.WriteString("| # | Started | Duration | Termination | Outcome | Detail |\n")
	b.WriteString("|---|---------|----------|-------------|---------|--------|\n")
	for _, rec := range state.Records {
		fmt.Fprintf(&b, "| %d | %s | %.1fs | %s | %s | %s |\n",
			rec.Index,
			rec.StartedAt.Format("15:04:05"),
			rec.Duration.Seconds(),
			rec.Reason,
			rec.Outcome,
			strings.ReplaceAll(oneLine(rec.Detail), "|", "/"),
		)
	}
	return b.String()
}

// updateIndex rebuilds the managed block from the notes on disk, newest first.
func (s *VaultReportStore) updateIndex() error {
	var notes []string
	err := filepath.WalkDir(s.root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != ".md" || filepath.Base(path) == indexFileName {
			return nil
		}
		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return err
		}
		notes = append(notes, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return fmt.Errorf("scan reports: %w", err)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(notes)))

	lines := make([]string, 0, len(notes))
	for _, rel := range notes {
		lines = append(lines, fmt.Sprintf("- [%s](%s)", strings.TrimSuffix(rel, ".md"), rel))
	}

	indexPath := filepath.Join(s.root, indexFileName)
	current, err := os.ReadFile(indexPath)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("read report index: %w", err)
	}
	doc := string(current)
	if doc == "" {
		doc = "# QueueBreaker sessions\n"
	}
	updated := markdown.UpsertBlock(doc, indexStart, indexEnd, strings.Join(lines, "\n"))
	if err := os.WriteFile(indexPath, []byte(updated), 0o644); err != nil {
		return fmt.Errorf("write report index: %w", err)
	}
	return nil
}

func stringCounts[K ~string](counts map[K]int) map[string]int {
	out := make(map[string]int, len(counts))
	for k, v := range counts {
		out[string(k)] = v
	}
	return out
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
