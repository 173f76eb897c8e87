package out

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"queuebreaker/internal/modules/dialer/domain"
	dialerout "queuebreaker/internal/modules/dialer/port/out"
)

// DryRunAutomation logs every step instead of touching the desktop.
type DryRunAutomation struct {
	logger zerolog.Logger
	title  string
}

func NewDryRunAutomation(logger zerolog.Logger) *DryRunAutomation {
	return &DryRunAutomation{logger: logger.With().Str("component", "dry-run").Logger()}
}

var _ dialerout.Automation = (*DryRunAutomation)(nil)

func (a *DryRunAutomation) FocusTarget(_ context.Context, title string) (bool, error) {
	a.title = title
	a.logger.Info().Str("window", title).Msg("would focus window")
	return true, nil
}

func (a *DryRunAutomation) Dial(_ context.Context, number string, shortcuts domain.Shortcuts, field *domain.Point) error {
	ev := a.logger.Info().Str("dial_pad", strings.Join(shortcuts.DialPad, "+")).Str("number", number)
	if field != nil {
		ev = ev.Int("click_x", field.X).Int("click_y", field.Y)
	}
	ev.Msg("would dial")
	return nil
}

func (a *DryRunAutomation) TriggerCall(_ context.Context, shortcuts domain.Shortcuts) error {
	a.logger.Info().Str("keys", strings.Join(shortcuts.Call, "+")).Msg("would place call")
	return nil
}

func (a *DryRunAutomation) HangUp(_ context.Context, shortcuts domain.Shortcuts) error {
	a.logger.Info().Str("keys", strings.Join(shortcuts.HangUp, "+")).Msg("would hang up")
	return nil
}

func (a *DryRunAutomation) CaptureSnapshot(context.Context) string {
	return "dry-run | " + a.title
}
