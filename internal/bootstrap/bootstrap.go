package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	classifierinadapter "queuebreaker/internal/modules/classifier/adapter/in"
	classifieroutadapter "queuebreaker/internal/modules/classifier/adapter/out"
	classifierdomain "queuebreaker/internal/modules/classifier/domain"
	classifierservice "queuebreaker/internal/modules/classifier/service"
	classifierusecase "queuebreaker/internal/modules/classifier/usecase"
	dialeroutadapter "queuebreaker/internal/modules/dialer/adapter/out"
	dialerdomain "queuebreaker/internal/modules/dialer/domain"
	dialerout "queuebreaker/internal/modules/dialer/port/out"
	dialerservice "queuebreaker/internal/modules/dialer/service"
	scheduleinadapter "queuebreaker/internal/modules/schedule/adapter/in"
	scheduledomain "queuebreaker/internal/modules/schedule/domain"
	scheduleusecase "queuebreaker/internal/modules/schedule/usecase"
	sessioninadapter "queuebreaker/internal/modules/session/adapter/in"
	sessionoutadapter "queuebreaker/internal/modules/session/adapter/out"
	sessiondomain "queuebreaker/internal/modules/session/domain"
	sessiondto "queuebreaker/internal/modules/session/dto"
	sessionout "queuebreaker/internal/modules/session/port/out"
	sessionservice "queuebreaker/internal/modules/session/service"
	sessionusecase "queuebreaker/internal/modules/session/usecase"
	"queuebreaker/internal/platform/abort"
	"queuebreaker/internal/platform/clock"
	"queuebreaker/internal/platform/config"
	"queuebreaker/internal/platform/id"
	uiapp "queuebreaker/internal/ui/app"
)

// Options are the run-time switches that do not belong in the config file.
type Options struct {
	// DryRun forces the dry-run automation backend.
	DryRun bool
	// TUI adds the dashboard observer.
	TUI bool
	// MetricsAddr serves /metrics while a session runs when set.
	MetricsAddr string
	// ClassifierLog receives the plugin host's own log output; nil discards it.
	ClassifierLog io.Writer
}

type App struct {
	Config config.Config
	Abort  *abort.Signal

	ScheduleCLI   scheduleinadapter.CLIHandler
	SessionCLI    sessioninadapter.CLIHandler
	ClassifierCLI classifierinadapter.CLIHandler

	logger  zerolog.Logger
	opts    Options
	metrics *sessionoutadapter.MetricsObserver
	feed    *uiapp.Feed
	closers []io.Closer
}

func New(cfg config.Config, opts Options, logger zerolog.Logger) (*App, error) {
	if opts.DryRun {
		cfg.Automation.Backend = config.BackendDryRun
	}
	clk := clock.SystemClock{}
	sleeper := clock.SystemSleeper{}
	signal := abort.New()
	app := &App{Config: cfg, Abort: signal, logger: logger, opts: opts}

	gate := scheduleGate(cfg)
	app.ScheduleCLI = scheduleinadapter.NewCLIHandler(scheduleusecase.NewInteractor(clk, gate))

	var hostLog io.Writer = io.Discard
	if opts.ClassifierLog != nil {
		hostLog = opts.ClassifierLog
	}
	manifest := classifierdomain.Manifest{Binary: cfg.Resolve(cfg.Classifier.Binary), SHA256: cfg.Classifier.SHA256}
	classifierUC := classifierusecase.NewInteractor(classifierservice.NewClassifierService(
		manifest,
		classifieroutadapter.NewGRPCHostWithLog(hostLog),
	))
	app.ClassifierCLI = classifierinadapter.NewCLIHandler(classifierUC)
	var outcomes dialerout.Classifier = dialeroutadapter.UnknownClassifier{}
	if manifest.Configured() {
		outcomes = dialeroutadapter.NewClassifierBridge(classifierUC)
	}

	executor := dialerservice.NewExecutor(clk, sleeper, signal, app.automation(cfg), outcomes, dialerSettings(cfg), logger)

	textLog, err := sessionoutadapter.NewTextAttemptLog(cfg.Resolve(cfg.Paths.AttemptLog))
	if err != nil {
		return nil, fmt.Errorf("open attempt log: %w", err)
	}
	app.closers = append(app.closers, textLog)
	store, err := sessionoutadapter.NewSQLiteStore(cfg.Resolve(cfg.Paths.Database))
	if err != nil {
		_ = app.Close()
		return nil, fmt.Errorf("open session store: %w", err)
	}
	app.closers = append(app.closers, store)

	app.metrics = sessionoutadapter.NewMetricsObserver(logger, "")
	observers := []sessionout.Observer{sessionoutadapter.NewLogObserver(logger), app.metrics}
	if opts.TUI {
		app.feed = uiapp.NewFeed()
		observers = append(observers, app.feed)
	}
	executor.OnPhase(func(index int, phase dialerdomain.Phase) {
		event := sessiondomain.Event{Kind: sessiondomain.EventAttemptPhase, At: clk.Now(), Status: sessiondomain.StatusAttempting, Attempts: index, Phase: phase}
		for _, o := range observers {
			o.Observe(event)
		}
	})

	loop := sessionservice.NewLoop(
		clk,
		sleeper,
		signal,
		gate,
		executor,
		sessionoutadapter.NewMultiAttemptLog(textLog, store),
		sessionservice.Policy{
			MaxAttempts:      cfg.MaxAttempts,
			DelayBetween:     cfg.DelayBetween(),
			PollInterval:     cfg.Poll(),
			CountUnavailable: cfg.CountUnavailableAttempts,
		},
		logger,
		observers...,
	)
	sessionUC := sessionusecase.NewInteractor(
		loop,
		id.UUID{},
		store,
		sessionoutadapter.NewVaultReportStore(cfg.Resolve(cfg.Paths.Reports)),
		logger,
	)
	app.SessionCLI = sessioninadapter.NewCLIHandler(sessionUC)
	return app, nil
}

func (a *App) automation(cfg config.Config) dialerout.Automation {
	if cfg.Automation.Backend == config.BackendDryRun {
		return dialeroutadapter.NewDryRunAutomation(a.logger)
	}
	if err := dialeroutadapter.Available(); err != nil {
		// Attempts still run and end as automation_unavailable.
		a.logger.Warn().Err(err).Msg("xdotool not found")
	}
	return dialeroutadapter.NewXdotoolAutomation(cfg.SettleDelay(), a.logger)
}

func scheduleGate(cfg config.Config) scheduledomain.Gate {
	return scheduledomain.NewGate(
		scheduledomain.Mode(cfg.ScheduleMode),
		scheduledomain.Window{Start: cfg.StartMinute, End: cfg.EndMinute},
		cfg.ActiveHours,
	)
}

func dialerSettings(cfg config.Config) dialerdomain.Settings {
	settings := dialerdomain.Settings{
		PhoneNumber:      cfg.PhoneNumber,
		WindowTitle:      cfg.Automation.WindowTitle,
		ObservationDelay: cfg.Observation(),
		Shortcuts: dialerdomain.Shortcuts{
			DialPad: cfg.Shortcuts.DialPad,
			Call:    cfg.Shortcuts.Call,
			HangUp:  cfg.Shortcuts.Hangup,
		},
	}
	if p := cfg.Automation.NumberFieldClick; len(p) == 2 {
		settings.NumberFieldClick = &dialerdomain.Point{X: p[0], Y: p[1]}
	}
	return settings
}

// Describe is the one-line schedule summary used by the dashboard and the
// window command.
func (a *App) Describe() string {
	return scheduleGate(a.Config).Describe()
}

// RunSession runs one session with the stop file watched and, when
// configured, metrics served.
func (a *App) RunSession(ctx context.Context) (sessiondto.RunOutput, error) {
	if stopFile := a.Config.Resolve(a.Config.Paths.StopFile); stopFile != "" {
		watcher, err := abort.NewStopFileWatcher(stopFile, a.Abort, a.logger)
		if err != nil {
			return sessiondto.RunOutput{}, err
		}
		watcher.Start(ctx)
		defer func() { _ = watcher.Close() }()
	}
	if a.opts.MetricsAddr != "" {
		srv := a.metrics.Serve(a.opts.MetricsAddr)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.logger.Warn().Err(err).Msg("metrics server shutdown")
			}
		}()
	}
	return a.SessionCLI.Run(ctx)
}

func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i].Close())
	}
	a.closers = nil
	return errors.Join(errs...)
}

// RunTUI runs the session behind the dashboard and returns its result once
// both the session and the program have finished.
func RunTUI(ctx context.Context, app *App) (sessiondto.RunOutput, error) {
	if app.feed == nil {
		return sessiondto.RunOutput{}, fmt.Errorf("bootstrap: app was built without the TUI observer")
	}
	model := uiapp.NewModel(uiapp.Info{
		Policy:      app.Describe(),
		PhoneNumber: app.Config.PhoneNumber,
		MaxAttempts: app.Config.MaxAttempts,
		Backend:     app.Config.Automation.Backend,
	}, func() { app.Abort.Set("tui") })
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	app.feed.Attach(program)

	type result struct {
		out sessiondto.RunOutput
		err error
	}
	done := make(chan result, 1)
	go func() {
		out, err := app.RunSession(ctx)
		program.Send(uiapp.DoneMsg{Out: out, Err: err})
		done <- result{out: out, err: err}
	}()

	_, uiErr := program.Run()
	if uiErr != nil {
		// The program is gone; make sure the session does not outlive it.
		app.Abort.Set("tui")
	}
	res := <-done
	if res.err != nil {
		return res.out, res.err
	}
	if uiErr != nil && !errors.Is(uiErr, tea.ErrProgramKilled) {
		return res.out, fmt.Errorf("run dashboard: %w", uiErr)
	}
	return res.out, nil
}
