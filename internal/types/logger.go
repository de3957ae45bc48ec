package types

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

// LogLevel represents the logging level
type LogLevel int

// Log levels
const (
	LogLevelDebug LogLevel = iota
	LogLevelInfo
	LogLevelWarning
	LogLevelError
	LogLevelNone // Disables all logging
)

// ParseLogLevel parses the -log-level flag value.
func ParseLogLevel(s string) (LogLevel, error) {
	switch strings.ToLower(s) {
	case "debug":
		return LogLevelDebug, nil
	case "info", "":
		return LogLevelInfo, nil
	case "warn", "warning":
		return LogLevelWarning, nil
	case "error":
		return LogLevelError, nil
	case "none", "off":
		return LogLevelNone, nil
	}
	return LogLevelInfo, fmt.Errorf("invalid log level %q", s)
}

// Slog maps the level onto slog. LogLevelNone maps above every level slog emits.
func (l LogLevel) Slog() slog.Level {
	switch l {
	case LogLevelDebug:
		return slog.LevelDebug
	case LogLevelWarning:
		return slog.LevelWarn
	case LogLevelError:
		return slog.LevelError
	case LogLevelNone:
		return slog.LevelError + 100
	default:
		return slog.LevelInfo
	}
}

// InitLogger creates a tint-backed logger writing to output. Colors are only
// enabled when output is a terminal.
func InitLogger(level LogLevel, output io.Writer) *slog.Logger {
	noColor := true
	if output == nil {
		output = colorable.NewColorable(os.Stderr)
		noColor = !isatty.IsTerminal(os.Stderr.Fd())
	} else if f, ok := output.(*os.File); ok {
		noColor = !isatty.IsTerminal(f.Fd())
		output = colorable.NewColorable(f)
	}
	return slog.New(tint.NewHandler(output, &tint.Options{
		Level:      level.Slog(),
		TimeFormat: "15:04:05.000",
		NoColor:    noColor,
	}))
}
