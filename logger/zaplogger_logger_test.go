// zaplogger_logger_test.go
package logger

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newObservedLogger(level LogLevel) (Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zap.DebugLevel)
	return NewLogger(zap.New(core), level), logs
}

// TestConvertToZapLevel tests the conversion from custom LogLevel to zapcore.Level
func TestConvertToZapLevel(t *testing.T) {
	tests := []struct {
		name          string
		inputLevel    LogLevel
		expectedLevel zapcore.Level
	}{
		{"DebugLevel", LogLevelDebug, zap.DebugLevel},
		{"InfoLevel", LogLevelInfo, zap.InfoLevel},
		{"WarnLevel", LogLevelWarn, zap.WarnLevel},
		{"ErrorLevel", LogLevelError, zap.ErrorLevel},
		{"DPanicLevel", LogLevelDPanic, zap.DPanicLevel},
		{"PanicLevel", LogLevelPanic, zap.PanicLevel},
		{"FatalLevel", LogLevelFatal, zap.FatalLevel},
		{"UnknownLevel", LogLevel(999), zap.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expectedLevel, convertToZapLevel(tt.inputLevel))
		})
	}
}

func TestParseLogLevelFromString(t *testing.T) {
	for _, name := range ValidLogLevels {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, name, ParseLogLevelFromString(name).String())
		})
	}
	assert.Equal(t, LogLevelNone, ParseLogLevelFromString("verbose"))
}

// TestDefaultLogger_SetLevel tests the SetLevel method of defaultLogger
func TestDefaultLogger_SetLevel(t *testing.T) {
	dLogger := &defaultLogger{logger: zap.NewNop()}

	dLogger.SetLevel(LogLevelWarn)
	assert.Equal(t, LogLevelWarn, dLogger.GetLogLevel())
}

// TestDefaultLogger_With tests the With method functionality
func TestDefaultLogger_With(t *testing.T) {
	log, logs := newObservedLogger(LogLevelInfo)

	child := log.With(zap.String("component", "router"))
	child.Info("hello")

	assert.IsType(t, &defaultLogger{}, child)
	assert.Equal(t, LogLevelInfo, child.GetLogLevel())
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "router", logs.All()[0].ContextMap()["component"])
}

// TestDefaultLogger_LevelFiltering verifies each method only emits when the level allows it.
func TestDefaultLogger_LevelFiltering(t *testing.T) {
	tests := []struct {
		level    LogLevel
		expected []string
	}{
		{LogLevelDebug, []string{"debug", "info", "warn", "error"}},
		{LogLevelInfo, []string{"info", "warn", "error"}},
		{LogLevelWarn, []string{"warn", "error"}},
		{LogLevelError, []string{"error"}},
		{LogLevelNone, nil},
	}

	for _, tc := range tests {
		t.Run(fmt.Sprintf("LogLevel %s", tc.level), func(t *testing.T) {
			log, logs := newObservedLogger(tc.level)

			log.Debug("debug")
			log.Info("info")
			log.Warn("warn")
			_ = log.Error("error")

			var got []string
			for _, e := range logs.All() {
				got = append(got, e.Message)
			}
			assert.Equal(t, tc.expected, got)
		})
	}
}

// TestDefaultLogger_Error checks that Error returns an error carrying the message even when filtered.
func TestDefaultLogger_Error(t *testing.T) {
	log, logs := newObservedLogger(LogLevelNone)

	err := log.Error("error message", zap.Error(errors.New("boom")))

	assert.EqualError(t, err, "error message")
	assert.Equal(t, 0, logs.Len())
}

// TestDefaultLogger_Panic ensures Panic logs and panics.
func TestDefaultLogger_Panic(t *testing.T) {
	log, logs := newObservedLogger(LogLevelPanic)

	assert.Panics(t, func() { log.Panic("panic message") })
	assert.Equal(t, 1, logs.FilterMessage("panic message").Len())
}

func TestLogNavigation(t *testing.T) {
	log, logs := newObservedLogger(LogLevelDebug)

	LogNavigation(log, "/", "/dashboard/7", "/login", "LoginView")
	LogNavigation(log, "/login", "/", "/", "VMListView")

	all := logs.All()
	require.Len(t, all, 2)
	assert.Equal(t, "Navigation redirected", all[0].Message)
	assert.Equal(t, zapcore.InfoLevel, all[0].Level)
	assert.Equal(t, "/login", all[0].ContextMap()["location"])
	assert.Equal(t, "Navigation completed", all[1].Message)
	assert.Equal(t, zapcore.DebugLevel, all[1].Level)
}

func TestLogUnauthorized(t *testing.T) {
	log, logs := newObservedLogger(LogLevelInfo)

	LogUnauthorized(log, "req-1", "GET", "http://localhost:8000/vms", true)

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "unauthorized", fields["event"])
	assert.Equal(t, true, fields["had_credential"])
	assert.Equal(t, "req-1", fields["request_id"])
}

func TestEnsureLogFilePath(t *testing.T) {
	dir := t.TempDir()

	t.Run("existing directory gets a timestamped file", func(t *testing.T) {
		path, err := EnsureLogFilePath(dir)
		require.NoError(t, err)
		assert.Equal(t, dir, filepath.Dir(path))
		assert.True(t, strings.HasPrefix(filepath.Base(path), logFilePrefix))
	})

	t.Run("missing directory is created", func(t *testing.T) {
		target := filepath.Join(dir, "nested", "logs")
		path, err := EnsureLogFilePath(target)
		require.NoError(t, err)
		assert.Equal(t, target, filepath.Dir(path))
		info, err := os.Stat(target)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})

	t.Run("explicit log file is kept", func(t *testing.T) {
		target := filepath.Join(dir, "other", "console.log")
		path, err := EnsureLogFilePath(target)
		require.NoError(t, err)
		assert.Equal(t, target, path)
	})
}

func TestTimestampedLogName(t *testing.T) {
	ts := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
	assert.Equal(t, "vmconsole_20240506_070809.log", timestampedLogName(ts))
}
