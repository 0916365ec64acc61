package logger

import (
	"io"
	"log"
)

// WriterLogger adapts any io.Writer to the Logger interface.
// Thread safety depends on the underlying writer.
type WriterLogger struct {
	logger *log.Logger
}

var _ Logger = (*WriterLogger)(nil)

// NewWriterLogger creates a logger from any io.Writer
func NewWriterLogger(w io.Writer) *WriterLogger {
	return &WriterLogger{
		logger: log.New(w, "", log.LstdFlags),
	}
}

func (w *WriterLogger) Type() LoggerType {
	return LoggerTypeWriter
}

func (w *WriterLogger) Debugf(format string, args ...any) {
	w.logger.Printf("[DEBUG] "+format, args...)
}

func (w *WriterLogger) Infof(format string, args ...any) {
	w.logger.Printf("[INFO] "+format, args...)
}

func (w *WriterLogger) Warnf(format string, args ...any) {
	w.logger.Printf("[WARN] "+format, args...)
}

func (w *WriterLogger) Errorf(format string, args ...any) {
	w.logger.Printf("[ERROR] "+format, args...)
}

func (w *WriterLogger) Close() error {
	return nil
}
