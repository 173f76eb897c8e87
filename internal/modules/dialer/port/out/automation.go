package out

import (
	"context"

	"queuebreaker/internal/modules/dialer/domain"
)

// Automation drives the desktop calling application.
type Automation interface {
	// FocusTarget brings the window titled title to the foreground. It
	// reports false when no such window exists.
	FocusTarget(ctx context.Context, title string) (bool, error)
	// Dial opens the dial pad, clears the number field and types number.
	Dial(ctx context.Context, number string, shortcuts domain.Shortcuts, field *domain.Point) error
	TriggerCall(ctx context.Context, shortcuts domain.Shortcuts) error
	HangUp(ctx context.Context, shortcuts domain.Shortcuts) error
	// CaptureSnapshot returns a best-effort description of the window. An
	// empty string means nothing could be captured.
	CaptureSnapshot(ctx context.Context) string
}

type Classifier interface {
	Classify(ctx context.Context, snapshot string) (domain.Outcome, error)
}
