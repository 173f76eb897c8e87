package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"queuebreaker/internal/bootstrap"
	sessiondto "queuebreaker/internal/modules/session/dto"
	"queuebreaker/internal/platform/abort"
	"queuebreaker/internal/platform/config"
	apperrors "queuebreaker/internal/platform/errors"
	"queuebreaker/internal/platform/logging"
)

const (
	exitFailure       = 1
	exitConfiguration = 2
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	if errors.Is(err, apperrors.ErrConfiguration) {
		return exitConfiguration
	}
	return exitFailure
}

type globalFlags struct {
	configPath string
	logLevel   string
	logJSON    bool
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:           "queuebreaker",
		Short:         "Redial a number through the desktop phone app during short hourly windows",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flags.configPath, "config", config.DefaultFileName, "settings file (created with defaults when missing)")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "info", "log level: trace|debug|info|warn|error")
	root.PersistentFlags().BoolVar(&flags.logJSON, "log-json", false, "log as JSON lines")

	root.AddCommand(newRunCmd(flags))
	root.AddCommand(newTUICmd(flags))
	root.AddCommand(newStopCmd(flags))
	root.AddCommand(newWindowCmd(flags))
	root.AddCommand(newConfigCmd(flags))
	root.AddCommand(newSessionsCmd(flags))
	root.AddCommand(newAttemptsCmd(flags))
	root.AddCommand(newClassifierCmd(flags))
	return root
}

func newLogger(flags *globalFlags, out, errOut io.Writer) (zerolog.Logger, error) {
	logger, err := logging.New(logging.Options{Level: flags.logLevel, JSON: flags.logJSON, Out: out, Err: errOut})
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("%w: %v", apperrors.ErrInvalidInput, err)
	}
	return logger, nil
}

func loadConfig(cmd *cobra.Command, flags *globalFlags) (config.Config, error) {
	cfg, created, err := config.Load(flags.configPath)
	if err != nil {
		return config.Config{}, err
	}
	if created {
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "wrote default settings to %s\n", flags.configPath)
	}
	return cfg, nil
}

func loadApp(cmd *cobra.Command, flags *globalFlags, opts bootstrap.Options, logger zerolog.Logger) (*bootstrap.App, error) {
	cfg, err := loadConfig(cmd, flags)
	if err != nil {
		return nil, err
	}
	return bootstrap.New(cfg, opts, logger)
}

type runFlags struct {
	tui         bool
	dryRun      bool
	metricsAddr string
}

func newRunCmd(flags *globalFlags) *cobra.Command {
	rf := &runFlags{}
	run := &cobra.Command{
		Use:   "run",
		Short: "Run one dialing session until the attempt budget is spent or it is aborted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSession(cmd, flags, *rf)
		},
	}
	run.Flags().BoolVar(&rf.tui, "tui", false, "show the live dashboard")
	run.Flags().BoolVar(&rf.dryRun, "dry-run", false, "log automation steps instead of driving the desktop")
	run.Flags().StringVar(&rf.metricsAddr, "metrics-addr", "", "serve prometheus metrics on this address while running, e.g. :9464")
	return run
}

func newTUICmd(flags *globalFlags) *cobra.Command {
	rf := &runFlags{tui: true}
	tui := &cobra.Command{
		Use:   "tui",
		Short: "Run a session with the live dashboard (same as run --tui)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSession(cmd, flags, *rf)
		},
	}
	tui.Flags().BoolVar(&rf.dryRun, "dry-run", false, "log automation steps instead of driving the desktop")
	tui.Flags().StringVar(&rf.metricsAddr, "metrics-addr", "", "serve prometheus metrics on this address while running")
	return tui
}

func runSession(cmd *cobra.Command, flags *globalFlags, rf runFlags) error {
	cfg, err := loadConfig(cmd, flags)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	out, errOut := cmd.OutOrStdout(), cmd.ErrOrStderr()
	if rf.tui {
		// The dashboard owns the terminal; logs go next to the database.
		logPath := cfg.Resolve(filepath.Join(config.StateDirName, "queuebreaker.log"))
		if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
			return fmt.Errorf("create log dir: %w", err)
		}
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer func() { _ = f.Close() }()
		out, errOut = f, f
	}
	logger, err := newLogger(flags, out, errOut)
	if err != nil {
		return err
	}

	app, err := bootstrap.New(cfg, bootstrap.Options{
		DryRun:        rf.dryRun,
		TUI:           rf.tui,
		MetricsAddr:   rf.metricsAddr,
		ClassifierLog: errOut,
	}, logger)
	if err != nil {
		return err
	}
	defer func() { _ = app.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info().
		Str("schedule", app.Describe()).
		Int("max_attempts", cfg.MaxAttempts).
		Str("backend", app.Config.Automation.Backend).
		Msg("session starting")

	var result sessiondto.RunOutput
	if rf.tui {
		result, err = bootstrap.RunTUI(ctx, app)
	} else {
		result, err = app.RunSession(ctx)
	}
	if err != nil {
		return err
	}
	printRunResult(cmd.OutOrStdout(), result)
	return nil
}

func printRunResult(w io.Writer, out sessiondto.RunOutput) {
	if out.Cause == "aborted" {
		_, _ = fmt.Fprintf(w, "ABORTED by operator: session %s after %d attempts\n", out.SessionID, out.Attempts)
	} else {
		_, _ = fmt.Fprintf(w, "session %s stopped: %s after %d attempts\n", out.SessionID, out.Cause, out.Attempts)
	}
	if len(out.ByReason) > 0 {
		_, _ = fmt.Fprintf(w, "terminations: %s\n", formatCounts(out.ByReason))
	}
	if len(out.ByOutcome) > 0 {
		_, _ = fmt.Fprintf(w, "outcomes: %s\n", formatCounts(out.ByOutcome))
	}
	if out.ReportPath != "" {
		_, _ = fmt.Fprintf(w, "report: %s\n", out.ReportPath)
	}
}

func formatCounts(counts map[string]int) string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%d", k, counts[k]))
	}
	return strings.Join(parts, " ")
}

func newStopCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Ask a running session to abort (emergency stop)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, flags)
			if err != nil {
				return err
			}
			path := cfg.Resolve(cfg.Paths.StopFile)
			if path == "" {
				return fmt.Errorf("%w: paths.stop_file is empty", apperrors.ErrConfiguration)
			}
			if err := abort.RequestStop(path); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "stop requested: %s\n", path)
			return nil
		},
	}
}

func newWindowCmd(flags *globalFlags) *cobra.Command {
	var upcoming int
	window := &cobra.Command{
		Use:   "window",
		Short: "Show whether the dialing window is open and when it opens next",
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger, err := newLogger(flags, cmd.OutOrStdout(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			app, err := loadApp(cmd, flags, bootstrap.Options{DryRun: true}, logger)
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()

			status, err := app.ScheduleCLI.Status(cmd.Context())
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(w, "now: %s\npolicy: %s\nopen: %t\n", status.Now.Format("2006-01-02 15:04:05"), status.Policy, status.Open)
			switch {
			case status.NeverOpens:
				_, _ = fmt.Fprintln(w, "next opening: never")
				return nil
			case !status.Open:
				_, _ = fmt.Fprintf(w, "next opening: %s (in %s)\n", status.NextOpening.Format("2006-01-02 15:04"), status.Until.Truncate(time.Second))
			}
			if upcoming > 0 {
				out, err := app.ScheduleCLI.Upcoming(cmd.Context(), upcoming)
				if err != nil {
					return err
				}
				for _, at := range out.Openings {
					_, _ = fmt.Fprintf(w, "upcoming: %s\n", at.Format("2006-01-02 15:04"))
				}
			}
			return nil
		},
	}
	window.Flags().IntVar(&upcoming, "upcoming", 0, "also list the next N openings (1-48)")
	return window
}

func newConfigCmd(flags *globalFlags) *cobra.Command {
	cfgCmd := &cobra.Command{Use: "config", Short: "Settings file operations"}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default settings file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := os.Stat(flags.configPath); err == nil && !force {
				return fmt.Errorf("%w: %s already exists (use --force to overwrite)", apperrors.ErrInvalidInput, flags.configPath)
			}
			if err := config.Write(flags.configPath, config.Default()); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", flags.configPath)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the effective settings",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, flags)
			if err != nil {
				return err
			}
			raw, err := config.Marshal(cfg)
			if err != nil {
				return err
			}
			_, _ = cmd.OutOrStdout().Write(raw)
			return nil
		},
	}

	validate := &cobra.Command{
		Use:   "validate",
		Short: "Check the settings file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, flags)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "settings ok")
			return nil
		},
	}

	cfgCmd.AddCommand(initCmd, show, validate)
	return cfgCmd
}

func newSessionsCmd(flags *globalFlags) *cobra.Command {
	var limit int
	sessions := &cobra.Command{
		Use:   "sessions",
		Short: "List recent sessions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger, err := newLogger(flags, cmd.OutOrStdout(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			app, err := loadApp(cmd, flags, bootstrap.Options{DryRun: true}, logger)
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()

			items, err := app.SessionCLI.Sessions(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(items) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "no sessions")
				return nil
			}
			for _, s := range items {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\t%d attempts\n", s.ID, s.StartedAt.Local().Format("2006-01-02 15:04:05"), s.Cause, s.Attempts)
			}
			return nil
		},
	}
	sessions.Flags().IntVar(&limit, "limit", 20, "number of sessions to list")
	return sessions
}

func newAttemptsCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "attempts <session-id>",
		Short: "List the attempts of one session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := newLogger(flags, cmd.OutOrStdout(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			app, err := loadApp(cmd, flags, bootstrap.Options{DryRun: true}, logger)
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()

			attempts, err := app.SessionCLI.Attempts(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			for _, a := range attempts {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%03d\t%s\t%.1fs\t%s\t%s", a.Index, a.StartedAt.Local().Format("15:04:05"), a.Duration.Seconds(), a.Reason, a.Outcome)
				if a.Detail != "" {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "\tdetail=%q", a.Detail)
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout())
			}
			return nil
		},
	}
}

func newClassifierCmd(flags *globalFlags) *cobra.Command {
	classifier := &cobra.Command{Use: "classifier", Short: "Outcome classifier plugin operations"}

	classifier.AddCommand(&cobra.Command{
		Use:   "check",
		Short: "Validate the classifier checksum and lifecycle",
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger, err := newLogger(flags, cmd.OutOrStdout(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			app, err := loadApp(cmd, flags, bootstrap.Options{DryRun: true, ClassifierLog: cmd.ErrOrStderr()}, logger)
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()

			r, err := app.ClassifierCLI.Check(cmd.Context())
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if !r.Configured {
				_, _ = fmt.Fprintln(w, "no classifier configured; outcomes are recorded as unknown")
				return nil
			}
			_, _ = fmt.Fprintf(w, "binary=%s reachable=%t checksum=%t lifecycle=%t", r.Binary, r.BinaryReachable, r.ChecksumValid, r.LifecycleOK)
			if r.Name != "" {
				_, _ = fmt.Fprintf(w, " name=%s version=%s labels=%s", r.Name, r.Version, strings.Join(r.Labels, ","))
			}
			if r.Error != "" {
				_, _ = fmt.Fprintf(w, " error=%q", r.Error)
			}
			_, _ = fmt.Fprintln(w)
			return nil
		},
	})

	classifier.AddCommand(&cobra.Command{
		Use:   "classify <snapshot>",
		Short: "Classify one snapshot string with the configured plugin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := newLogger(flags, cmd.OutOrStdout(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			app, err := loadApp(cmd, flags, bootstrap.Options{DryRun: true, ClassifierLog: cmd.ErrOrStderr()}, logger)
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()

			out, err := app.ClassifierCLI.Classify(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), out.Label)
			return nil
		},
	})
	return classifier
}
