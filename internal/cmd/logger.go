package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/golang-cz/devslog"
	"github.com/k0kubun/pp"
	"github.com/mattn/go-isatty"
)

var ErrInvalidLogLevel = errors.New("invalid log level")

var logLevels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

func parseLevel(level string) (slog.Level, error) {
	parsed, ok := logLevels[level]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrInvalidLogLevel, level)
	}
	return parsed, nil
}

// newLogHandler writes human readable logs to terminals and JSON everywhere else. Logs go to stderr,
// stdout is kept for command output.
func newLogHandler(w io.Writer, tty bool, level slog.Level) slog.Handler {
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	if tty {
		return devslog.NewHandler(w, &devslog.Options{
			HandlerOptions: opts,
		})
	}
	return slog.NewJSONHandler(w, opts)
}

func initLogger(level, command string) error {
	parsedLevel, err := parseLevel(level)
	if err != nil {
		return err
	}

	handler := newLogHandler(os.Stderr, isatty.IsTerminal(os.Stderr.Fd()), parsedLevel)
	slog.SetDefault(slog.New(handler).With("version", VERSION, "command", command))

	pp.ColoringEnabled = isatty.IsTerminal(os.Stdout.Fd())

	return nil
}
