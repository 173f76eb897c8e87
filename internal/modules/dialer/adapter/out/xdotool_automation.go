package out

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"queuebreaker/internal/modules/dialer/domain"
	dialerout "queuebreaker/internal/modules/dialer/port/out"
	apperrors "queuebreaker/internal/platform/errors"
)

const xdotool = "xdotool"

// typeDelayMS paces typed digits so the number field keeps up.
const typeDelayMS = 50

// XdotoolAutomation drives an X11 window with the xdotool CLI.
type XdotoolAutomation struct {
	exec   ExecFunc
	settle time.Duration
	logger zerolog.Logger
	window string
}

func NewXdotoolAutomation(settle time.Duration, logger zerolog.Logger) *XdotoolAutomation {
	return NewXdotoolAutomationWithExec(defaultExec, settle, logger)
}

func NewXdotoolAutomationWithExec(execFn ExecFunc, settle time.Duration, logger zerolog.Logger) *XdotoolAutomation {
	return &XdotoolAutomation{exec: execFn, settle: settle, logger: logger.With().Str("component", "xdotool").Logger()}
}

var _ dialerout.Automation = (*XdotoolAutomation)(nil)

// Available reports whether the xdotool binary is on PATH.
func Available() error {
	if _, err := exec.LookPath(xdotool); err != nil {
		return fmt.Errorf("%w: %s not found on PATH", apperrors.ErrAutomationUnavailable, xdotool)
	}
	return nil
}

func (a *XdotoolAutomation) FocusTarget(ctx context.Context, title string) (bool, error) {
	output, err := a.exec(ctx, xdotool, "search", "--onlyvisible", "--name", title)
	if err != nil {
		// search exits 1 with no output when nothing matches
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
			return false, nil
		}
		return false, fmt.Errorf("%w: search window: %v", apperrors.ErrAutomationUnavailable, err)
	}
	ids := strings.Fields(string(output))
	if len(ids) == 0 {
		return false, nil
	}
	window := ids[0]
	if _, err := a.exec(ctx, xdotool, "windowactivate", "--sync", window); err != nil {
		return false, fmt.Errorf("%w: activate window %s: %v", apperrors.ErrAutomationUnavailable, window, err)
	}
	a.window = window
	a.logger.Debug().Str("window_id", window).Msg("focused target window")
	return true, a.pause(ctx)
}

func (a *XdotoolAutomation) Dial(ctx context.Context, number string, shortcuts domain.Shortcuts, field *domain.Point) error {
	if err := a.key(ctx, shortcuts.DialPad); err != nil {
		return fmt.Errorf("open dial pad: %w", err)
	}
	if err := a.pause(ctx); err != nil {
		return err
	}
	if field != nil {
		if _, err := a.exec(ctx, xdotool, "mousemove", strconv.Itoa(field.X), strconv.Itoa(field.Y), "click", "1"); err != nil {
			// the dial pad usually focuses the field on its own
			a.logger.Debug().Err(err).Msg("number field click failed")
		}
	}
	if err := a.key(ctx, []string{"ctrl", "a"}); err != nil {
		return fmt.Errorf("select number field: %w", err)
	}
	if err := a.key(ctx, []string{"BackSpace"}); err != nil {
		return fmt.Errorf("clear number field: %w", err)
	}
	if _, err := a.exec(ctx, xdotool, "type", "--delay", strconv.Itoa(typeDelayMS), "--", number); err != nil {
		return fmt.Errorf("%w: type number: %v", apperrors.ErrAutomationUnavailable, err)
	}
	a.logger.Debug().Str("number", number).Msg("entered phone number")
	return nil
}

func (a *XdotoolAutomation) TriggerCall(ctx context.Context, shortcuts domain.Shortcuts) error {
	if err := a.key(ctx, shortcuts.Call); err != nil {
		return fmt.Errorf("trigger call: %w", err)
	}
	return nil
}

// HangUp uses a fresh context so a cancelled session still ends the call.
func (a *XdotoolAutomation) HangUp(ctx context.Context, shortcuts domain.Shortcuts) error {
	hangCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := a.key(hangCtx, shortcuts.HangUp); err != nil {
		return fmt.Errorf("hang up: %w", err)
	}
	return nil
}

func (a *XdotoolAutomation) CaptureSnapshot(ctx context.Context) string {
	output, err := a.exec(ctx, xdotool, "getactivewindow", "getwindowname")
	if err != nil {
		return ""
	}
	name := strings.TrimSpace(string(output))
	if name == "" {
		return ""
	}
	return fmt.Sprintf("%s | window=%s", name, a.window)
}

func (a *XdotoolAutomation) key(ctx context.Context, chord []string) error {
	if len(chord) == 0 {
		return fmt.Errorf("%w: empty shortcut", apperrors.ErrInvalidInput)
	}
	args := []string{"key", "--clearmodifiers"}
	if a.window != "" {
		args = append(args, "--window", a.window)
	}
	combo := keyCombo(chord)
	args = append(args, combo)
	if _, err := a.exec(ctx, xdotool, args...); err != nil {
		return fmt.Errorf("%w: key %s: %v", apperrors.ErrAutomationUnavailable, combo, err)
	}
	return nil
}

// keyAliases maps the friendly names used in the config file to X keysyms.
var keyAliases = map[string]string{
	"enter":     "Return",
	"return":    "Return",
	"esc":       "Escape",
	"escape":    "Escape",
	"backspace": "BackSpace",
	"tab":       "Tab",
	"space":     "space",
	"control":   "ctrl",
}

func keyCombo(chord []string) string {
	keys := make([]string, 0, len(chord))
	for _, k := range chord {
		if alias, ok := keyAliases[strings.ToLower(k)]; ok {
			k = alias
		}
		keys = append(keys, k)
	}
	return strings.Join(keys, "+")
}

func (a *XdotoolAutomation) pause(ctx context.Context) error {
	if a.settle <= 0 {
		return nil
	}
	timer := time.NewTimer(a.settle)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
