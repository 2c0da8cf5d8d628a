// Package logging provides the structured logger used across rsync-backup.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the logging surface every component receives.
// Arguments after msg are key/value pairs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	With(args ...any) Logger
}

// Config selects level and output format.
type Config struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json", "console"
}

// ZeroLogger implements Logger on top of zerolog.
type ZeroLogger struct {
	l zerolog.Logger
}

// New builds a logger writing to stderr in the configured format.
// Any extra writers (run log files) always receive JSON lines.
func New(cfg Config, extra ...io.Writer) *ZeroLogger {
	return NewTo(cfg, os.Stderr, extra...)
}

// NewTo is New with the console output redirected to w.
func NewTo(cfg Config, w io.Writer, extra ...io.Writer) *ZeroLogger {
	console := w
	if strings.EqualFold(cfg.Format, "console") {
		console = zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}
	}

	writers := append([]io.Writer{console}, extra...)
	var out io.Writer = console
	if len(writers) > 1 {
		out = zerolog.MultiLevelWriter(writers...)
	}

	zerolog.TimeFieldFormat = time.RFC3339
	l := zerolog.New(out).Level(parseLevel(cfg.Level)).With().Timestamp().Logger()
	return &ZeroLogger{l: l}
}

// Nop returns a logger that discards everything.
func Nop() *ZeroLogger {
	return &ZeroLogger{l: zerolog.Nop()}
}

func (z *ZeroLogger) Debug(msg string, args ...any) { z.l.Debug().Fields(args).Msg(msg) }
func (z *ZeroLogger) Info(msg string, args ...any)  { z.l.Info().Fields(args).Msg(msg) }
func (z *ZeroLogger) Warn(msg string, args ...any)  { z.l.Warn().Fields(args).Msg(msg) }
func (z *ZeroLogger) Error(msg string, args ...any) { z.l.Error().Fields(args).Msg(msg) }

// With returns a child logger carrying the given key/value pairs.
func (z *ZeroLogger) With(args ...any) Logger {
	return &ZeroLogger{l: z.l.With().Fields(args).Logger()}
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}
