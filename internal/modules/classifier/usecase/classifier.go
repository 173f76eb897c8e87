package usecase

import (
	"context"

	"queuebreaker/internal/modules/classifier/dto"
	classifierin "queuebreaker/internal/modules/classifier/port/in"
	"queuebreaker/internal/modules/classifier/service"
)

type Interactor struct {
	svc *service.ClassifierService
}

func NewInteractor(svc *service.ClassifierService) classifierin.Usecase {
	return &Interactor{svc: svc}
}

func (i *Interactor) Check(ctx context.Context) (dto.CheckResult, error) {
	return i.svc.Check(ctx)
}

func (i *Interactor) Classify(ctx context.Context, input dto.ClassifyInput) (dto.ClassifyOutput, error) {
	return i.svc.Classify(ctx, input)
}
