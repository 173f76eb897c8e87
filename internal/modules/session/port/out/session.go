package out

import (
	"context"
	"time"

	dialerdomain "queuebreaker/internal/modules/dialer/domain"
	"queuebreaker/internal/modules/session/domain"
)

type Gate interface {
	Validate() error
	MayAttemptNow(now time.Time) bool
	UntilNextWindow(now time.Time) time.Duration
}

type AttemptRunner interface {
	RunAttempt(ctx context.Context, index int) dialerdomain.AttemptRecord
}

// AttemptLog receives every record once, in index order.
type AttemptLog interface {
	Append(ctx context.Context, sessionID string, rec dialerdomain.AttemptRecord) error
}

type Observer interface {
	Observe(event domain.Event)
}

type ReportStore interface {
	Save(ctx context.Context, state domain.State) (string, error)
}

type History interface {
	SaveSession(ctx context.Context, summary domain.Summary) error
	ListSessions(ctx context.Context, limit int) ([]domain.Summary, error)
	ListAttempts(ctx context.Context, sessionID string) ([]dialerdomain.AttemptRecord, error)
}
