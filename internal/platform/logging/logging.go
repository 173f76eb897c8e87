package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Options selects level and encoding for New.
type Options struct {
	Level string
	JSON  bool
	Out   io.Writer
	Err   io.Writer
}

// New builds the process logger. Console output sends debug/info/warn to Out
// and error and above to Err; JSON output writes everything to Out.
func New(opts Options) (zerolog.Logger, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return zerolog.Nop(), err
	}
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	errOut := opts.Err
	if errOut == nil {
		errOut = os.Stderr
	}

	var writer io.Writer
	if opts.JSON {
		writer = out
	} else {
		writer = zerolog.MultiLevelWriter(
			SpecificLevelWriter{
				Writer: zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339},
				Levels: []zerolog.Level{zerolog.DebugLevel, zerolog.InfoLevel, zerolog.WarnLevel},
			},
			SpecificLevelWriter{
				Writer: zerolog.ConsoleWriter{Out: errOut, TimeFormat: time.RFC3339},
				Levels: []zerolog.Level{zerolog.ErrorLevel, zerolog.FatalLevel, zerolog.PanicLevel},
			},
		)
	}
	return zerolog.New(writer).Level(level).With().Timestamp().Logger(), nil
}

func ParseLevel(raw string) (zerolog.Level, error) {
	if strings.TrimSpace(raw) == "" {
		return zerolog.InfoLevel, nil
	}
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(raw)))
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("parse log level %q: %w", raw, err)
	}
	return level, nil
}

// SpecificLevelWriter forwards only the listed levels to Writer.
type SpecificLevelWriter struct {
	io.Writer
	Levels []zerolog.Level
}

func (w SpecificLevelWriter) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	for _, l := range w.Levels {
		if l == level {
			return w.Write(p)
		}
	}
	return len(p), nil
}
