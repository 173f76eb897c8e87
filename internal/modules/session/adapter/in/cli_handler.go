package in

import (
	"context"

	sessiondto "queuebreaker/internal/modules/session/dto"
	sessionin "queuebreaker/internal/modules/session/port/in"
)

type CLIHandler struct {
	usecase sessionin.Usecase
}

func NewCLIHandler(usecase sessionin.Usecase) CLIHandler {
	return CLIHandler{usecase: usecase}
}

func (h CLIHandler) Run(ctx context.Context) (sessiondto.RunOutput, error) {
	return h.usecase.Run(ctx, sessiondto.RunInput{})
}

func (h CLIHandler) Sessions(ctx context.Context, limit int) ([]sessiondto.SessionInfo, error) {
	return h.usecase.ListSessions(ctx, sessiondto.ListSessionsInput{Limit: limit})
}

func (h CLIHandler) Attempts(ctx context.Context, sessionID string) ([]sessiondto.AttemptInfo, error) {
	return h.usecase.ListAttempts(ctx, sessionID)
}
