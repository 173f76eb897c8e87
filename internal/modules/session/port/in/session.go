package in

import (
	"context"

	"queuebreaker/internal/modules/session/dto"
)

type Usecase interface {
	Run(ctx context.Context, input dto.RunInput) (dto.RunOutput, error)
	ListSessions(ctx context.Context, input dto.ListSessionsInput) ([]dto.SessionInfo, error)
	ListAttempts(ctx context.Context, sessionID string) ([]dto.AttemptInfo, error)
}
