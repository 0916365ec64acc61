package logger

import (
	"log"
	"os"
)

// StdoutLogger writes logs to stdout using the standard log package.
// Messages below the configured minimum level are dropped.
// Safe for concurrent use across goroutines.
type StdoutLogger struct {
	logger   *log.Logger
	minLevel Level
}

var _ Logger = (*StdoutLogger)(nil)

// NewStdoutLogger creates a new logger that writes to stdout at info level and above
func NewStdoutLogger() *StdoutLogger {
	return NewStdoutLoggerWithLevel(LevelInfo)
}

// NewStdoutLoggerWithLevel creates a new stdout logger with a custom minimum level
func NewStdoutLoggerWithLevel(minLevel Level) *StdoutLogger {
	return &StdoutLogger{
		logger:   log.New(os.Stdout, "", log.LstdFlags),
		minLevel: minLevel,
	}
}

func (s *StdoutLogger) Type() LoggerType {
	return LoggerTypeStdout
}

func (s *StdoutLogger) Debugf(format string, args ...any) {
	s.emit(LevelDebug, format, args...)
}

func (s *StdoutLogger) Infof(format string, args ...any) {
	s.emit(LevelInfo, format, args...)
}

func (s *StdoutLogger) Warnf(format string, args ...any) {
	s.emit(LevelWarn, format, args...)
}

func (s *StdoutLogger) Errorf(format string, args ...any) {
	s.emit(LevelError, format, args...)
}

func (s *StdoutLogger) Close() error {
	return nil
}

func (s *StdoutLogger) emit(level Level, format string, args ...any) {
	if level < s.minLevel {
		return
	}
	s.logger.Printf("["+level.String()+"] "+format, args...)
}
