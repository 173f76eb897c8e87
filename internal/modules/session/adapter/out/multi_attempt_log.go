package out

import (
	"context"
	"errors"

	dialerdomain "queuebreaker/internal/modules/dialer/domain"
	sessionout "queuebreaker/internal/modules/session/port/out"
)

// MultiAttemptLog writes to every log and reports all failures together.
type MultiAttemptLog struct {
	logs []sessionout.AttemptLog
}

func NewMultiAttemptLog(logs ...sessionout.AttemptLog) sessionout.AttemptLog {
	return &MultiAttemptLog{logs: logs}
}

func (m *MultiAttemptLog) Append(ctx context.Context, sessionID string, rec dialerdomain.AttemptRecord) error {
	var errs []error
	for _, log := range m.logs {
		if err := log.Append(ctx, sessionID, rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
