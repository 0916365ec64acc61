package logger

// Logger provides leveled logging for the relay and its components.
// All implementations must be safe for concurrent use across multiple goroutines.
type Logger interface {
	// Type returns the type of the logger
	Type() LoggerType
	// Debugf logs a formatted message at debug level
	Debugf(format string, args ...any)
	// Infof logs a formatted message at info level
	Infof(format string, args ...any)
	// Warnf logs a formatted message at warn level
	Warnf(format string, args ...any)
	// Errorf logs a formatted message at error level
	Errorf(format string, args ...any)
	// Close closes the logger
	Close() error
}

type LoggerType string

const (
	LoggerTypeStdout LoggerType = "stdout"
	LoggerTypeFile   LoggerType = "file"
	LoggerTypeNoop   LoggerType = "noop"
	LoggerTypeWriter LoggerType = "writer"
	LoggerTypeMulti  LoggerType = "multi"
)

// Level is the minimum severity a logger will emit.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// MultiLogger writes to multiple loggers simultaneously.
// Safe for concurrent use if all underlying loggers are safe.
type MultiLogger struct {
	loggers []Logger
}

// NewMultiLogger creates a logger that writes to multiple destinations
func NewMultiLogger(loggers ...Logger) *MultiLogger {
	return &MultiLogger{
		loggers: loggers,
	}
}

func (m *MultiLogger) Type() LoggerType {
	return LoggerTypeMulti
}

func (m *MultiLogger) Debugf(format string, args ...any) {
	for _, logger := range m.loggers {
		logger.Debugf(format, args...)
	}
}

func (m *MultiLogger) Infof(format string, args ...any) {
	for _, logger := range m.loggers {
		logger.Infof(format, args...)
	}
}

func (m *MultiLogger) Warnf(format string, args ...any) {
	for _, logger := range m.loggers {
		logger.Warnf(format, args...)
	}
}

func (m *MultiLogger) Errorf(format string, args ...any) {
	for _, logger := range m.loggers {
		logger.Errorf(format, args...)
	}
}

func (m *MultiLogger) Close() error {
	for _, logger := range m.loggers {
		logger.Close()
	}
	return nil
}
