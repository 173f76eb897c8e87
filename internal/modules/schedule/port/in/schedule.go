package in

import (
	"context"

	"queuebreaker/internal/modules/schedule/dto"
)

type Usecase interface {
	Status(ctx context.Context) (dto.WindowStatus, error)
	Upcoming(ctx context.Context, input dto.UpcomingInput) (dto.UpcomingOutput, error)
}
