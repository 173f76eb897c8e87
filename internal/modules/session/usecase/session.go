package usecase

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	sessiondomain "queuebreaker/internal/modules/session/domain"
	sessiondto "queuebreaker/internal/modules/session/dto"
	sessionin "queuebreaker/internal/modules/session/port/in"
	sessionout "queuebreaker/internal/modules/session/port/out"
	"queuebreaker/internal/modules/session/service"
	apperrors "queuebreaker/internal/platform/errors"
	"queuebreaker/internal/platform/id"
)

const defaultListLimit = 20

type Interactor struct {
	loop    *service.Loop
	idGen   id.Generator
	history sessionout.History
	reports sessionout.ReportStore
	logger  zerolog.Logger
}

// NewInteractor wires a session runner. loop may be nil for read-only use
// (listing sessions and attempts).
func NewInteractor(loop *service.Loop, idGen id.Generator, history sessionout.History, reports sessionout.ReportStore, logger zerolog.Logger) sessionin.Usecase {
	return &Interactor{loop: loop, idGen: idGen, history: history, reports: reports, logger: logger}
}

func (i *Interactor) Run(ctx context.Context, input sessiondto.RunInput) (sessiondto.RunOutput, error) {
	if i.loop == nil {
		return sessiondto.RunOutput{}, fmt.Errorf("%w: session loop is not configured", apperrors.ErrConfiguration)
	}
	sessionID := input.SessionID
	if sessionID == "" {
		sessionID = i.idGen.New()
	}
	state, err := i.loop.Run(ctx, sessionID)
	out := toRunOutput(state)
	if err != nil {
		return out, err
	}

	// Persist even when ctx was cancelled by the abort that ended the session.
	persistCtx := context.WithoutCancel(ctx)
	if i.history != nil {
		if err := i.history.SaveSession(persistCtx, state.Summarize()); err != nil {
			i.logger.Error().Err(err).Str("session", sessionID).Msg("save session history")
		}
	}
	if i.reports != nil {
		path, err := i.reports.Save(persistCtx, state)
		if err != nil {
			i.logger.Error().Err(err).Str("session", sessionID).Msg("save session report")
		}
		out.ReportPath = path
	}
	return out, nil
}

func (i *Interactor) ListSessions(ctx context.Context, input sessiondto.ListSessionsInput) ([]sessiondto.SessionInfo, error) {
	if i.history == nil {
		return nil, fmt.Errorf("%w: session history is not configured", apperrors.ErrConfiguration)
	}
	limit := input.Limit
	if limit < 0 {
		return nil, fmt.Errorf("%w: limit must be >= 0", apperrors.ErrInvalidInput)
	}
	if limit == 0 {
		limit = defaultListLimit
	}
	summaries, err := i.history.ListSessions(ctx, limit)
	if err != nil {
		return nil, err
	}
	out := make([]sessiondto.SessionInfo, 0, len(summaries))
	for _, s := range summaries {
		out = append(out, sessiondto.SessionInfo{
			ID:        s.ID,
			StartedAt: s.StartedAt,
			EndedAt:   s.EndedAt,
			Cause:     string(s.Cause),
			Attempts:  s.Attempts,
		})
	}
	return out, nil
}

func (i *Interactor) ListAttempts(ctx context.Context, sessionID string) ([]sessiondto.AttemptInfo, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("%w: session id is required", apperrors.ErrInvalidInput)
	}
	if i.history == nil {
		return nil, fmt.Errorf("%w: session history is not configured", apperrors.ErrConfiguration)
	}
	records, err := i.history.ListAttempts(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: no attempts for session %s", apperrors.ErrNotFound, sessionID)
	}
	out := make([]sessiondto.AttemptInfo, 0, len(records))
	for _, rec := range records {
		out = append(out, sessiondto.AttemptInfo{
			Index:     rec.Index,
			StartedAt: rec.StartedAt,
			Duration:  rec.Duration,
			Reason:    string(rec.Reason),
			Outcome:   string(rec.Outcome),
			Snapshot:  rec.Snapshot,
			Detail:    rec.Detail,
		})
	}
	return out, nil
}

func toRunOutput(state sessiondomain.State) sessiondto.RunOutput {
	sum := state.Summarize()
	out := sessiondto.RunOutput{
		SessionID: state.ID,
		Cause:     string(state.Cause),
		Attempts:  sum.Attempts,
		StartedAt: state.StartedAt,
		EndedAt:   state.EndedAt,
		ByReason:  map[string]int{},
		ByOutcome: map[string]int{},
	}
	for k, v := range sum.ByReason {
		out.ByReason[string(k)] = v
	}
	for k, v := range sum.ByOutcome {
		out.ByOutcome[string(k)] = v
	}
	return out
}
