package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// newBufferedLogger writes JSON log entries into the returned buffer so
// tests can assert on the encoded output.
func newBufferedLogger(t *testing.T) (*zap.Logger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer

	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		MessageKey:     "message",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
	}
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		zapcore.AddSync(&buf),
		zapcore.DebugLevel,
	)
	return zap.New(core), &buf
}

func decodeLogEntry(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log output is not valid JSON: %v\n%s", err, buf.String())
	}
	return entry
}

func TestNew_BuildsForEachEnvironment(t *testing.T) {
	for _, env := range []string{"production", "development", ""} {
		t.Run("env="+env, func(t *testing.T) {
			logger, err := New(env)
			if err != nil {
				t.Fatalf("New(%q) failed: %v", env, err)
			}
			if logger == nil {
				t.Fatal("expected a logger")
			}
			logger.Sync()
		})
	}
}

func TestLogEntries_AreStructuredJSON(t *testing.T) {
	tests := []struct {
		level string
		log   func(logger *zap.Logger, msg string)
	}{
		{"debug", func(l *zap.Logger, msg string) { l.Debug(msg) }},
		{"info", func(l *zap.Logger, msg string) { l.Info(msg) }},
		{"warn", func(l *zap.Logger, msg string) { l.Warn(msg) }},
		{"error", func(l *zap.Logger, msg string) { l.Error(msg) }},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			logger, buf := newBufferedLogger(t)
			tt.log(logger, "stock adjusted")
			logger.Sync()

			entry := decodeLogEntry(t, buf)
			if entry["level"] != tt.level {
				t.Errorf("expected level %q, got %v", tt.level, entry["level"])
			}
			if entry["message"] != "stock adjusted" {
				t.Errorf("expected message, got %v", entry["message"])
			}
			if _, ok := entry["timestamp"]; !ok {
				t.Error("expected a timestamp field")
			}
		})
	}
}

func TestLogEntries_CarryStructuredFields(t *testing.T) {
	logger, buf := newBufferedLogger(t)

	logger.Error("order creation failed",
		zap.String("order_id", "ord-1"),
		zap.Int("requested", 5),
	)
	logger.Sync()

	entry := decodeLogEntry(t, buf)
	if entry["order_id"] != "ord-1" {
		t.Errorf("expected order_id field, got %v", entry["order_id"])
	}
	if entry["requested"] != float64(5) {
		t.Errorf("expected requested field, got %v", entry["requested"])
	}
}
