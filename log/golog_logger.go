package log

import (
	"github.com/kataras/golog"
)

// GologLogger adapts a *golog.Logger to the engine's Logger interface, for
// deployments that already run golog elsewhere (structured fields, hooks,
// multiple writers) and want the executor's node-dispatch logging to land
// on the same sink instead of a second, unrelated log stream.
type GologLogger struct {
	logger *golog.Logger
	level  LogLevel
}

var _ Logger = (*GologLogger)(nil)

// NewGologLogger wraps an existing golog.Logger (already configured with
// whatever prefix, level, and output the caller wants) as an engine Logger.
func NewGologLogger(logger *golog.Logger) *GologLogger {
	return &GologLogger{
		logger: logger,
		level:  LogLevelInfo,
	}
}

// Debug logs a node-dispatch or resolution trace line.
func (l *GologLogger) Debug(format string, v ...any) {
	if l.level <= LogLevelDebug {
		args := append([]any{format}, v...)
		l.logger.Debug(args...)
	}
}

// Info logs a run-level milestone (node stopped for human input).
func (l *GologLogger) Info(format string, v ...any) {
	if l.level <= LogLevelInfo {
		args := append([]any{format}, v...)
		l.logger.Info(args...)
	}
}

// Warn logs a recoverable condition. The engine itself logs nothing at
// this level.
func (l *GologLogger) Warn(format string, v ...any) {
	if l.level <= LogLevelWarn {
		args := append([]any{format}, v...)
		l.logger.Warn(args...)
	}
}

// Error logs a node-execution failure.
func (l *GologLogger) Error(format string, v ...any) {
	if l.level <= LogLevelError {
		args := append([]any{format}, v...)
		l.logger.Error(args...)
	}
}

// SetLevel sets this wrapper's own filtering level and mirrors it onto the
// underlying golog.Logger so golog's own formatting (colors, timestamps)
// stays consistent with what the engine actually emits.
func (l *GologLogger) SetLevel(level LogLevel) {
	l.level = level

	gologLevel := "info"
	switch level {
	case LogLevelDebug:
		gologLevel = "debug"
	case LogLevelInfo:
		gologLevel = "info"
	case LogLevelWarn:
		gologLevel = "warn"
	case LogLevelError:
		gologLevel = "error"
	case LogLevelNone:
		gologLevel = "disable"
	}

	l.logger.SetLevel(gologLevel)
}

// GetLevel returns the wrapper's current filtering level.
func (l *GologLogger) GetLevel() LogLevel {
	return l.level
}
