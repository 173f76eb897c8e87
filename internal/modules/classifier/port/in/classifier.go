package in

import (
	"context"

	"queuebreaker/internal/modules/classifier/dto"
)

type Usecase interface {
	Check(ctx context.Context) (dto.CheckResult, error)
	Classify(ctx context.Context, input dto.ClassifyInput) (dto.ClassifyOutput, error)
}
