// Package obs provides the structured logger and metrics adapters shared
// across the ingestion and retrieval pipeline.
package obs

import (
	"os"

	"github.com/rs/zerolog"
)

// Logger is the structured logging contract used throughout the pipeline.
// Fields are attached as a flat key/value map; callers are expected to
// pass small, serializable values (strings, numbers, durations as ms).
type Logger interface {
	Info(msg string, fields map[string]any)
	Error(msg string, fields map[string]any)
	Debug(msg string, fields map[string]any)
}

// ZeroLogger adapts zerolog to the Logger contract.
type ZeroLogger struct {
	log zerolog.Logger
}

// NewZeroLogger builds a ZeroLogger writing JSON lines to stdout. level
// is a zerolog level name ("debug", "info", "error"); an unrecognized or
// empty value defaults to info.
func NewZeroLogger(level string) *ZeroLogger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	l := zerolog.New(os.Stdout).Level(lvl).With().Timestamp().Logger()
	return &ZeroLogger{log: l}
}

func (z *ZeroLogger) Info(msg string, fields map[string]any)  { z.emit(z.log.Info(), msg, fields) }
func (z *ZeroLogger) Error(msg string, fields map[string]any) { z.emit(z.log.Error(), msg, fields) }
func (z *ZeroLogger) Debug(msg string, fields map[string]any) { z.emit(z.log.Debug(), msg, fields) }

func (z *ZeroLogger) emit(ev *zerolog.Event, msg string, fields map[string]any) {
	for k, v := range fields {
		ev = ev.Interface(k, v)
	}
	ev.Msg(msg)
}

// NoopLogger discards everything. Useful as a default when no logger is
// injected.
type NoopLogger struct{}

func (NoopLogger) Info(string, map[string]any)  {}
func (NoopLogger) Error(string, map[string]any) {}
func (NoopLogger) Debug(string, map[string]any) {}
