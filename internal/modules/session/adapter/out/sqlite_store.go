package out

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	dialerdomain "queuebreaker/internal/modules/dialer/domain"
	"queuebreaker/internal/modules/session/domain"
	sessionout "queuebreaker/internal/modules/session/port/out"
)

const timeLayout = time.RFC3339Nano

// SQLiteStore keeps every attempt and the per-session rollup. It serves as
// both an AttemptLog and the History behind the sessions/attempts commands.
type SQLiteStore struct {
	db *sql.DB
}

var (
	_ sessionout.AttemptLog = (*SQLiteStore)(nil)
	_ sessionout.History    = (*SQLiteStore)(nil)
)

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	store := &SQLiteStore{db: db}
	if err := store.ensureSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) ensureSchema(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS sessions (
  id TEXT PRIMARY KEY,
  started_at TEXT NOT NULL,
  ended_at TEXT,
  cause TEXT NOT NULL DEFAULT '',
  attempts INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS attempts (
  session_id TEXT NOT NULL,
  idx INTEGER NOT NULL,
  started_at TEXT NOT NULL,
  ended_at TEXT NOT NULL,
  duration_ms INTEGER NOT NULL,
  reason TEXT NOT NULL,
  outcome TEXT NOT NULL,
  snapshot TEXT NOT NULL,
  detail TEXT NOT NULL,
  PRIMARY KEY (session_id, idx)
);
`
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create tables: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Append(ctx context.Context, sessionID string, rec dialerdomain.AttemptRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin attempt tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO sessions (id, started_at) VALUES (?, ?)`,
		sessionID, rec.StartedAt.Format(timeLayout),
	); err != nil {
		return fmt.Errorf("insert session row: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
INSERT INTO attempts (session_id, idx, started_at, ended_at, duration_ms, reason, outcome, snapshot, detail)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sessionID,
		rec.Index,
		rec.StartedAt.Format(timeLayout),
		rec.EndedAt.Format(timeLayout),
		rec.Duration.Milliseconds(),
		string(rec.Reason),
		string(rec.Outcome),
		rec.Snapshot,
		rec.Detail,
	); err != nil {
		return fmt.Errorf("insert attempt %d: %w", rec.Index, err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE sessions SET attempts = attempts + 1 WHERE id = ?`, sessionID); err != nil {
		return fmt.Errorf("count attempt: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit attempt: %w", err)
	}
	return nil
}

func (s *SQLiteStore) SaveSession(ctx context.Context, summary domain.Summary) error {
	const stmt = `
INSERT INTO sessions (id, started_at, ended_at, cause, attempts)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
  started_at=excluded.started_at,
  ended_at=excluded.ended_at,
  cause=excluded.cause,
  attempts=excluded.attempts;
`
	if _, err := s.db.ExecContext(ctx, stmt,
		summary.ID,
		summary.StartedAt.Format(timeLayout),
		summary.EndedAt.Format(timeLayout),
		string(summary.Cause),
		summary.Attempts,
	); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListSessions(ctx context.Context, limit int) ([]domain.Summary, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, started_at, COALESCE(ended_at, ''), cause, attempts
FROM sessions
ORDER BY started_at DESC
LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Summary, 0)
	for rows.Next() {
		var (
			summary        domain.Summary
			started, ended string
			cause          string
		)
		if err := rows.Scan(&summary.ID, &started, &ended, &cause, &summary.Attempts); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		summary.Cause = domain.StopCause(cause)
		summary.StartedAt = parseTime(started)
		summary.EndedAt = parseTime(ended)
		out = append(out, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return out, nil
}

func (s *SQLiteStore) ListAttempts(ctx context.Context, sessionID string) ([]dialerdomain.AttemptRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT idx, started_at, ended_at, duration_ms, reason, outcome, snapshot, detail
FROM attempts
WHERE session_id = ?
ORDER BY idx`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query attempts: %w", err)
	}
	defer rows.Close()

	out := make([]dialerdomain.AttemptRecord, 0)
	for rows.Next() {
		var (
			rec             dialerdomain.AttemptRecord
			started, ended  string
			durationMS      int64
			reason, outcome string
		)
		if err := rows.Scan(&rec.Index, &started, &ended, &durationMS, &reason, &outcome, &rec.Snapshot, &rec.Detail); err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		rec.StartedAt = parseTime(started)
		rec.EndedAt = parseTime(ended)
		rec.Duration = time.Duration(durationMS) * time.Millisecond
		rec.Reason = dialerdomain.TerminationReason(reason)
		rec.Outcome = dialerdomain.Outcome(outcome)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attempts: %w", err)
	}
	return out, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func parseTime(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	t, err := time.Parse(timeLayout, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}
