package out

import (
	"context"

	"queuebreaker/internal/modules/classifier/dto"
	classifierin "queuebreaker/internal/modules/classifier/port/in"
	"queuebreaker/internal/modules/dialer/domain"
	dialerout "queuebreaker/internal/modules/dialer/port/out"
)

// ClassifierBridge feeds attempt snapshots to the classifier module.
type ClassifierBridge struct {
	classifier classifierin.Usecase
}

func NewClassifierBridge(classifier classifierin.Usecase) dialerout.Classifier {
	return &ClassifierBridge{classifier: classifier}
}

func (b *ClassifierBridge) Classify(ctx context.Context, snapshot string) (domain.Outcome, error) {
	out, err := b.classifier.Classify(ctx, dto.ClassifyInput{Snapshot: snapshot})
	if err != nil {
		return domain.OutcomeUnknown, err
	}
	return domain.ParseOutcome(out.Label)
}
