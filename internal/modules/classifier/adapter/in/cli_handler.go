package in

import (
	"context"

	"queuebreaker/internal/modules/classifier/dto"
	classifierin "queuebreaker/internal/modules/classifier/port/in"
)

type CLIHandler struct {
	usecase classifierin.Usecase
}

func NewCLIHandler(usecase classifierin.Usecase) CLIHandler {
	return CLIHandler{usecase: usecase}
}

func (h CLIHandler) Check(ctx context.Context) (dto.CheckResult, error) {
	return h.usecase.Check(ctx)
}

func (h CLIHandler) Classify(ctx context.Context, snapshot string) (dto.ClassifyOutput, error) {
	return h.usecase.Classify(ctx, dto.ClassifyInput{Snapshot: snapshot})
}
