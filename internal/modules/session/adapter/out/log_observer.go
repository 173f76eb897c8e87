package out

import (
	"github.com/rs/zerolog"

	"queuebreaker/internal/modules/session/domain"
	sessionout "queuebreaker/internal/modules/session/port/out"
)

// LogObserver writes loop events to the process logger.
type LogObserver struct {
	logger zerolog.Logger
}

func NewLogObserver(logger zerolog.Logger) sessionout.Observer {
	return &LogObserver{logger: logger.With().Str("component", "session").Logger()}
}

func (o *LogObserver) Observe(event domain.Event) {
	log := o.logger.With().Str("session", event.SessionID).Logger()
	switch event.Kind {
	case domain.EventStatus:
		log.Debug().Str("status", string(event.Status)).Msg("status")
	case domain.EventWaiting:
		ev := log.Info().Dur("sleep", event.Wait)
		if event.NextOpening.IsZero() {
			ev.Msg("window never opens with this schedule")
			return
		}
		ev.Time("next_opening", event.NextOpening).Msg("waiting for window")
	case domain.EventAttemptStarted:
		log.Info().Int("attempt", event.Attempts).Msg("attempt started")
	case domain.EventAttemptPhase:
		log.Debug().Int("attempt", event.Attempts).Str("phase", string(event.Phase)).Msg("phase")
	case domain.EventAttemptFinished:
		rec := event.Record
		ev := log.Info()
		if rec.Detail != "" {
			ev = log.Warn().Str("detail", rec.Detail)
		}
		ev.Int("attempt", rec.Index).
			Dur("duration", rec.Duration).
			Str("termination", string(rec.Reason)).
			Str("outcome", string(rec.Outcome)).
			Msg("attempt finished")
	case domain.EventStopped:
		if event.Cause == domain.CauseAborted {
			log.Warn().Int("attempts", event.Attempts).Msg("session aborted")
			return
		}
		log.Info().Int("attempts", event.Attempts).Str("cause", string(event.Cause)).Msg("session stopped")
	}
}
