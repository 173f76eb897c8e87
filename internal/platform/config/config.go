package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	apperrors "queuebreaker/internal/platform/errors"
)

const (
	DefaultFileName = "queuebreaker.yaml"
	StateDirName    = ".queuebreaker"

	ModeEveryHour     = "every_hour"
	ModeSpecificHours = "specific_hours"

	BackendXdotool = "xdotool"
	BackendDryRun  = "dry-run"
)

type Config struct {
	PhoneNumber              string     `yaml:"phone_number"`
	StartMinute              int        `yaml:"start_minute"`
	EndMinute                int        `yaml:"end_minute"`
	DelayBetweenAttempts     float64    `yaml:"delay_between_attempts"`
	MaxAttempts              int        `yaml:"max_attempts"`
	CallObservationDelay     float64    `yaml:"call_observation_delay"`
	ScheduleMode             string     `yaml:"schedule_mode"`
	ActiveHours              []int      `yaml:"active_hours"`
	CountUnavailableAttempts bool       `yaml:"count_unavailable_attempts"`
	PollInterval             float64    `yaml:"poll_interval"`
	Automation               Automation `yaml:"automation"`
	Shortcuts                Shortcuts  `yaml:"shortcuts"`
	Classifier               Classifier `yaml:"classifier"`
	Paths                    Paths      `yaml:"paths"`

	// Dir is the directory of the loaded file; relative paths resolve against it.
	Dir string `yaml:"-"`
}

type Automation struct {
	Backend          string `yaml:"backend"`
	WindowTitle      string `yaml:"window_title"`
	NumberFieldClick []int  `yaml:"number_field_click,omitempty"`
	SettleDelayMS    int    `yaml:"settle_delay_ms"`
}

type Shortcuts struct {
	DialPad []string `yaml:"dial_pad"`
	Call    []string `yaml:"call"`
	Hangup  []string `yaml:"hangup"`
}

type Classifier struct {
	Binary string `yaml:"binary,omitempty"`
	SHA256 string `yaml:"sha256,omitempty"`
}

type Paths struct {
	AttemptLog string `yaml:"attempt_log"`
	Database   string `yaml:"database"`
	Reports    string `yaml:"reports"`
	StopFile   string `yaml:"stop_file"`
}

// Default mirrors the settings the tool ships with: a 58->02 burst every hour.
func Default() Config {
	return Config{
		PhoneNumber:              "1-800-480-3287",
		StartMinute:              58,
		EndMinute:                2,
		DelayBetweenAttempts:     7,
		MaxAttempts:              40,
		CallObservationDelay:     8,
		ScheduleMode:             ModeEveryHour,
		ActiveHours:              []int{},
		CountUnavailableAttempts: true,
		PollInterval:             30,
		Automation: Automation{
			Backend:       BackendXdotool,
			WindowTitle:   "Phone Link",
			SettleDelayMS: 300,
		},
		Shortcuts: Shortcuts{
			DialPad: []string{"ctrl", "shift", "d"},
			Call:    []string{"enter"},
			Hangup:  []string{"esc"},
		},
		Paths: Paths{
			AttemptLog: "attempt_log.txt",
			Database:   filepath.Join(StateDirName, "queuebreaker.db"),
			Reports:    "sessions",
			StopFile:   filepath.Join(StateDirName, "stop"),
		},
	}
}

// Load reads path, writing the defaults first when the file does not exist.
// Keys missing from the file keep their default values. The returned bool is
// true when the file was created.
func Load(path string) (Config, bool, error) {
	if strings.TrimSpace(path) == "" {
		return Config{}, false, fmt.Errorf("%w: config path is required", apperrors.ErrInvalidInput)
	}
	cfg := Default()
	created := false
	raw, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		if err := Write(path, cfg); err != nil {
			return Config{}, false, err
		}
		created = true
	case err != nil:
		return Config{}, false, fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, false, fmt.Errorf("%w: decode %s: %v", apperrors.ErrConfiguration, path, err)
		}
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return Config{}, false, fmt.Errorf("resolve config path: %w", err)
	}
	cfg.Dir = filepath.Dir(abs)
	return cfg, created, nil
}

func Write(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	raw, err := Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func Marshal(cfg Config) ([]byte, error) {
	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return raw, nil
}

// Validate reports every problem at once; the error wraps ErrConfiguration.
func (c Config) Validate() error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if strings.TrimSpace(c.PhoneNumber) == "" {
		add("phone_number is required")
	}
	if c.StartMinute < 0 || c.StartMinute > 59 {
		add("start_minute must be within 0-59, got %d", c.StartMinute)
	}
	if c.EndMinute < 0 || c.EndMinute > 59 {
		add("end_minute must be within 0-59, got %d", c.EndMinute)
	}
	if c.DelayBetweenAttempts <= 0 {
		add("delay_between_attempts must be positive")
	}
	if c.MaxAttempts < 0 {
		add("max_attempts must be >= 0 (0 means unlimited)")
	}
	if c.CallObservationDelay < 0 {
		add("call_observation_delay must be >= 0")
	}
	if c.PollInterval <= 0 {
		add("poll_interval must be positive")
	}
	switch c.ScheduleMode {
	case ModeEveryHour:
	case ModeSpecificHours:
		if len(c.ActiveHours) == 0 {
			add("active_hours must be non-empty when schedule_mode is %s", ModeSpecificHours)
		}
	default:
		add("schedule_mode must be %s or %s, got %q", ModeEveryHour, ModeSpecificHours, c.ScheduleMode)
	}
	for _, h := range c.ActiveHours {
		if h < 0 || h > 23 {
			add("active_hours entries must be within 0-23, got %d", h)
		}
	}
	switch c.Automation.Backend {
	case BackendXdotool, BackendDryRun:
	default:
		add("automation.backend must be %s or %s, got %q", BackendXdotool, BackendDryRun, c.Automation.Backend)
	}
	if strings.TrimSpace(c.Automation.WindowTitle) == "" {
		add("automation.window_title is required")
	}
	if n := len(c.Automation.NumberFieldClick); n != 0 && n != 2 {
		add("automation.number_field_click must be [x, y]")
	}
	if c.Automation.SettleDelayMS < 0 {
		add("automation.settle_delay_ms must be >= 0")
	}
	if len(c.Shortcuts.DialPad) == 0 || len(c.Shortcuts.Call) == 0 || len(c.Shortcuts.Hangup) == 0 {
		add("shortcuts.dial_pad, shortcuts.call and shortcuts.hangup are required")
	}
	if c.Classifier.Binary != "" && c.Classifier.SHA256 == "" {
		add("classifier.sha256 is required when classifier.binary is set")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", apperrors.ErrConfiguration, strings.Join(problems, "; "))
	}
	return nil
}

// Resolve turns a configured path into an absolute one.
func (c Config) Resolve(path string) string {
	if path == "" || filepath.IsAbs(path) || c.Dir == "" {
		return path
	}
	return filepath.Join(c.Dir, path)
}

func Seconds(v float64) time.Duration {
	return time.Duration(v * float64(time.Second))
}

func (c Config) DelayBetween() time.Duration { return Seconds(c.DelayBetweenAttempts) }
func (c Config) Observation() time.Duration  { return Seconds(c.CallObservationDelay) }
func (c Config) Poll() time.Duration         { return Seconds(c.PollInterval) }
func (c Config) SettleDelay() time.Duration {
	return time.Duration(c.Automation.SettleDelayMS) * time.Millisecond
}
