package in

import (
	"context"

	"queuebreaker/internal/modules/schedule/dto"
	schedulein "queuebreaker/internal/modules/schedule/port/in"
)

type CLIHandler struct {
	usecase schedulein.Usecase
}

func NewCLIHandler(usecase schedulein.Usecase) CLIHandler {
	return CLIHandler{usecase: usecase}
}

func (h CLIHandler) Status(ctx context.Context) (dto.WindowStatus, error) {
	return h.usecase.Status(ctx)
}

func (h CLIHandler) Upcoming(ctx context.Context, count int) (dto.UpcomingOutput, error) {
	return h.usecase.Upcoming(ctx, dto.UpcomingInput{Count: count})
}
