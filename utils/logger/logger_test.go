package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestStdoutLogger(t *testing.T) {
	// Capture stdout
	old := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	logger := NewStdoutLogger()
	logger.Infof("test %s", "message")
	logger.Warnf("warn message")
	logger.Debugf("debug message") // below default level, dropped

	w.Close()
	os.Stdout = old

	var buf bytes.Buffer
	buf.ReadFrom(r)
	output := buf.String()

	if !strings.Contains(output, "[INFO] test message") {
		t.Errorf("Expected '[INFO] test message' in output, got: %s", output)
	}
	if !strings.Contains(output, "[WARN] warn message") {
		t.Errorf("Expected '[WARN] warn message' in output, got: %s", output)
	}
	if strings.Contains(output, "debug message") {
		t.Errorf("Debug message should be dropped at info level, got: %s", output)
	}
}

func TestFileLogger(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "relay.log")

	logger, err := NewFileLogger(tmpFile)
	if err != nil {
		t.Fatalf("Failed to create file logger: %v", err)
	}

	logger.Debugf("debug %s", "message")
	logger.Errorf("error message")

	// Close to flush
	logger.Close()

	content, err := os.ReadFile(tmpFile)
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}

	output := string(content)
	if !strings.Contains(output, "[DEBUG] debug message") {
		t.Errorf("Expected '[DEBUG] debug message' in file, got: %s", output)
	}
	if !strings.Contains(output, "[ERROR] error message") {
		t.Errorf("Expected '[ERROR] error message' in file, got: %s", output)
	}
}

func TestNoopLogger(t *testing.T) {
	logger := NewNoopLogger()
	// Should not panic
	logger.Debugf("test")
	logger.Infof("test %s", "message")
	logger.Warnf("test")
	logger.Errorf("test")
	if err := logger.Close(); err != nil {
		t.Errorf("Close should not error: %v", err)
	}
}

func TestWriterLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriterLogger(&buf)

	logger.Infof("hello %d", 42)

	if !strings.Contains(buf.String(), "[INFO] hello 42") {
		t.Errorf("Expected '[INFO] hello 42' in output, got: %s", buf.String())
	}
}

func TestMultiLogger(t *testing.T) {
	var bufA, bufB bytes.Buffer
	logger := NewMultiLogger(NewWriterLogger(&bufA), NewWriterLogger(&bufB))

	logger.Warnf("fan out")

	for name, buf := range map[string]*bytes.Buffer{"a": &bufA, "b": &bufB} {
		if !strings.Contains(buf.String(), "[WARN] fan out") {
			t.Errorf("Expected message in buffer %s, got: %s", name, buf.String())
		}
	}
}

func TestLevelString(t *testing.T) {
	cases := map[Level]string{
		LevelDebug: "DEBUG",
		LevelInfo:  "INFO",
		LevelWarn:  "WARN",
		LevelError: "ERROR",
	}
	for level, want := range cases {
		if got := level.String(); got != want {
			t.Errorf("Level(%d).String() = %s, want %s", level, got, want)
		}
	}
}
