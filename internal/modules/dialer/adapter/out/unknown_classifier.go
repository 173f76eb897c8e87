package out

import (
	"context"

	"queuebreaker/internal/modules/dialer/domain"
	dialerout "queuebreaker/internal/modules/dialer/port/out"
)

// UnknownClassifier is used when no classifier plugin is configured.
type UnknownClassifier struct{}

var _ dialerout.Classifier = UnknownClassifier{}

func (UnknownClassifier) Classify(context.Context, string) (domain.Outcome, error) {
	return domain.OutcomeUnknown, nil
}
