// internal/observability/logger_test.go
package observability

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Techayguy01/KIOSK-FRONTEND-V1/internal/config"
)

// -- Test Helper Functions --

// lockedBuffer is a zapcore.WriteSyncer backed by a buffer, safe for concurrent writes.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) Sync() error { return nil }

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func (b *lockedBuffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]byte(nil), b.buf.Bytes()...)
}

var _ zapcore.WriteSyncer = (*lockedBuffer)(nil)

// -- Test Cases --

func TestInitialize(t *testing.T) {
	t.Cleanup(ResetForTest)

	t.Run("should initialize console logger with colors", func(t *testing.T) {
		ResetForTest()
		out := &lockedBuffer{}

		cfg := config.LoggerConfig{
			Level:       "debug",
			Format:      "console",
			ServiceName: "TestService",
			Colors:      config.ColorConfig{Info: "green"},
		}
		Initialize(cfg, out)
		GetLogger().Info("Scenario started.")
		Sync()

		output := out.String()
		assert.Contains(t, output, "INFO")
		assert.Contains(t, output, "Scenario started.")
		assert.Contains(t, output, ansi("green"), "Info level should be colorized green")
		assert.Contains(t, output, ansiReset)
		assert.Contains(t, output, "TestService.", "Console encoder suffixes the logger name")
	})

	t.Run("should initialize json logger", func(t *testing.T) {
		ResetForTest()
		out := &lockedBuffer{}

		cfg := config.LoggerConfig{
			Level:       "info",
			Format:      "json",
			ServiceName: "JSONTest",
		}
		Initialize(cfg, out)
		GetLogger().Warn("Candidate not found.", zap.String("locator", "xpath=/html/body"))
		Sync()

		var logEntry map[string]interface{}
		require.NoError(t, json.Unmarshal(out.Bytes(), &logEntry), "Log output should be valid JSON")

		assert.Equal(t, "WARN", logEntry["level"])
		assert.Equal(t, "JSONTest", logEntry["logger"])
		assert.Equal(t, "Candidate not found.", logEntry["msg"])
		assert.Equal(t, "xpath=/html/body", logEntry["locator"])
	})

	t.Run("should respect the configured level", func(t *testing.T) {
		ResetForTest()
		out := &lockedBuffer{}

		Initialize(config.LoggerConfig{Level: "warn", Format: "json"}, out)
		GetLogger().Info("hidden")
		GetLogger().Warn("shown")
		Sync()

		assert.NotContains(t, out.String(), "hidden")
		assert.Contains(t, out.String(), "shown")
	})

	t.Run("should write to a log file if configured", func(t *testing.T) {
		ResetForTest()
		logPath := filepath.Join(t.TempDir(), "kioskprobe.log")

		cfg := config.LoggerConfig{
			Level:   "debug",
			Format:  "json",
			LogFile: logPath,
			MaxSize: 1,
		}
		Initialize(cfg, &lockedBuffer{})
		GetLogger().Error("This should go to the file.")
		Sync()

		content, err := os.ReadFile(logPath)
		require.NoError(t, err)
		assert.Contains(t, string(content), "This should go to the file.")
	})

	t.Run("should only initialize once", func(t *testing.T) {
		ResetForTest()
		out := &lockedBuffer{}

		Initialize(config.LoggerConfig{Level: "info", ServiceName: "First"}, out)
		logger1 := GetLogger()

		Initialize(config.LoggerConfig{Level: "debug", ServiceName: "Second"}, out)
		logger2 := GetLogger()

		assert.Same(t, logger1, logger2)
		logger2.Info("test")
		Sync()

		assert.True(t, strings.Contains(out.String(), "First"))
		assert.False(t, strings.Contains(out.String(), "Second"))
	})
}

func TestNew(t *testing.T) {
	t.Run("should not replace the global logger", func(t *testing.T) {
		ResetForTest()
		t.Cleanup(ResetForTest)

		out := &lockedBuffer{}
		logger := New(config.LoggerConfig{Level: "info", Format: "json", ServiceName: "isolated"}, out)
		logger.Info("isolated message")

		assert.Nil(t, globalLogger.Load())
		assert.Contains(t, out.String(), "isolated message")
	})

	t.Run("should fall back to info on an unknown level", func(t *testing.T) {
		out := &lockedBuffer{}
		logger := New(config.LoggerConfig{Level: "chatty", Format: "json"}, out)
		logger.Debug("debug line")
		logger.Info("info line")

		assert.NotContains(t, out.String(), "debug line")
		assert.Contains(t, out.String(), "info line")
	})
}

func TestGetLogger(t *testing.T) {
	t.Cleanup(ResetForTest)

	t.Run("should return a fallback logger if not initialized", func(t *testing.T) {
		ResetForTest()
		require.NotNil(t, GetLogger())
	})

	t.Run("should return the global logger after initialization", func(t *testing.T) {
		ResetForTest()
		Initialize(config.LoggerConfig{Level: "info", ServiceName: "GlobalTest"}, &lockedBuffer{})
		assert.Equal(t, globalLogger.Load(), GetLogger())
	})
}

func TestPalette(t *testing.T) {
	t.Run("should skip unknown colour names", func(t *testing.T) {
		p := paletteFrom(config.ColorConfig{Info: "Cyan ", Warn: "mauve"})

		assert.Equal(t, "\x1b[36m", p[zapcore.InfoLevel])
		_, ok := p[zapcore.WarnLevel]
		assert.False(t, ok)
		assert.Len(t, p, 1)
	})
}

func TestIgnorableSyncError(t *testing.T) {
	t.Run("should ignore terminal sync errors", func(t *testing.T) {
		err := &os.PathError{Op: "sync", Path: "/dev/stderr", Err: syscall.EINVAL}
		assert.True(t, ignorableSyncError(err))
	})

	t.Run("should report real failures", func(t *testing.T) {
		err := &os.PathError{Op: "sync", Path: "/var/log/kioskprobe.log", Err: syscall.EIO}
		assert.False(t, ignorableSyncError(err))
	})
}
