// Package logging adapts the core's minimal Logger interface (§9) to
// log/slog, the structured-logging library the teacher uses throughout
// (sink_node.go, server/*.go, bus/store_subscriber.go).
package logging

import (
	"log/slog"

	"github.com/fluxgate/decisionengine/core"
)

// SlogLogger implements core.Logger on top of a *slog.Logger.
type SlogLogger struct {
	logger *slog.Logger
}

// NewSlogLogger wraps l. A nil l falls back to slog.Default(), matching
// the teacher's convention of never requiring callers to construct a
// logger just to get one.
func NewSlogLogger(l *slog.Logger) *SlogLogger {
	if l == nil {
		l = slog.Default()
	}
	return &SlogLogger{logger: l}
}

func (s *SlogLogger) Debug(msg string, args ...any) {
	s.logger.Debug(msg, args...)
}

func (s *SlogLogger) Info(msg string, args ...any) {
	s.logger.Info(msg, args...)
}

func (s *SlogLogger) Warning(msg string, args ...any) {
	s.logger.Warn(msg, args...)
}

var _ core.Logger = (*SlogLogger)(nil)
