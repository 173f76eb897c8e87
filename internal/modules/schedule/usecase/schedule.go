package usecase

import (
	"context"
	"fmt"
	"time"

	"queuebreaker/internal/modules/schedule/domain"
	"queuebreaker/internal/modules/schedule/dto"
	schedulein "queuebreaker/internal/modules/schedule/port/in"
	"queuebreaker/internal/platform/clock"
	apperrors "queuebreaker/internal/platform/errors"
)

const maxUpcoming = 48

type Interactor struct {
	clock clock.Clock
	gate  domain.Gate
}

func NewInteractor(clock clock.Clock, gate domain.Gate) schedulein.Usecase {
	return &Interactor{clock: clock, gate: gate}
}

func (i *Interactor) Status(_ context.Context) (dto.WindowStatus, error) {
	if err := i.gate.Validate(); err != nil {
		return dto.WindowStatus{}, err
	}
	now := i.clock.Now()
	status := dto.WindowStatus{
		Now:    now,
		Policy: i.gate.Describe(),
		Open:   i.gate.MayAttemptNow(now),
	}
	next, ok := i.gate.NextOpening(now)
	if !ok {
		status.NeverOpens = true
		return status, nil
	}
	status.NextOpening = next
	status.Until = next.Sub(now)
	return status, nil
}

// Upcoming lists the start of the next distinct openings. An opening that is
// already in progress is reported with the current instant.
func (i *Interactor) Upcoming(_ context.Context, input dto.UpcomingInput) (dto.UpcomingOutput, error) {
	if input.Count <= 0 || input.Count > maxUpcoming {
		return dto.UpcomingOutput{}, fmt.Errorf("%w: count must be within 1-%d", apperrors.ErrInvalidInput, maxUpcoming)
	}
	if err := i.gate.Validate(); err != nil {
		return dto.UpcomingOutput{}, err
	}
	cursor := i.clock.Now()
	out := dto.UpcomingOutput{Openings: make([]time.Time, 0, input.Count)}
	for len(out.Openings) < input.Count {
		next, ok := i.gate.NextOpening(cursor)
		if !ok {
			break
		}
		out.Openings = append(out.Openings, next)
		cursor = next
		// skip to the first closed minute so the next search finds a new opening
		for i.gate.MayAttemptNow(cursor) {
			cursor = cursor.Truncate(time.Minute).Add(time.Minute)
		}
	}
	return out, nil
}
