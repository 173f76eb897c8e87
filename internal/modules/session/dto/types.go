package dto

import "time"

type RunInput struct {
	// SessionID is generated when empty.
	SessionID string
}

type RunOutput struct {
	SessionID  string
	Cause      string
	Attempts   int
	StartedAt  time.Time
	EndedAt    time.Time
	ReportPath string
	ByReason   map[string]int
	ByOutcome  map[string]int
}

type ListSessionsInput struct {
	Limit int
}

type SessionInfo struct {
	ID        string
	StartedAt time.Time
	EndedAt   time.Time
	Cause     string
	Attempts  int
}

type AttemptInfo struct {
	Index     int
	StartedAt time.Time
	Duration  time.Duration
	Reason    string
	Outcome   string
	Snapshot  string
	Detail    string
}
