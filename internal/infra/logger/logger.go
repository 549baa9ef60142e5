// Package logger provides structured logging using zerolog.
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
)

// Config represents logger configuration.
type Config struct {
	Output string // "stdout", "stderr", or a file path
	Level  string // "debug", "info", "warn", "error"
}

// Init initializes the global zerolog logger. Console output gets the
// human-readable writer; file output gets JSON. Caller info is attached only
// at debug level.
func Init(cfg Config) error {
	level := parseLevel(cfg.Level)
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.TimeOnly

	var logger zerolog.Logger
	switch strings.ToLower(cfg.Output) {
	case "stdout", "":
		logger = consoleLogger(os.Stdout, level)
	case "stderr":
		logger = consoleLogger(os.Stderr, level)
	default:
		f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return err
		}
		ctx := zerolog.New(f).With().Timestamp()
		if level == zerolog.DebugLevel {
			ctx = ctx.Caller()
		}
		logger = ctx.Logger()
	}

	zerolog.DefaultContextLogger = &logger
	zlog.Logger = logger
	return nil
}

func consoleLogger(w io.Writer, level zerolog.Level) zerolog.Logger {
	cw := zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly}
	ctx := zerolog.New(cw).With().Timestamp()
	if level == zerolog.DebugLevel {
		ctx = ctx.Caller()
	}
	return ctx.Logger()
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "info", "":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
