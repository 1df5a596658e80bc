// internal/observability/logger.go
package observability

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/Techayguy01/KIOSK-FRONTEND-V1/internal/config"
)

var (
	globalLogger atomic.Pointer[zap.Logger]
	once         sync.Once
)

const (
	timeLayout = "2006-01-02T15:04:05.000Z07:00"
	ansiReset  = "\x1b[0m"
)

// ansiCodes maps the colour names accepted in logger.colors to SGR codes.
var ansiCodes = map[string]int{
	"black":   30,
	"red":     31,
	"green":   32,
	"yellow":  33,
	"blue":    34,
	"magenta": 35,
	"cyan":    36,
	"white":   37,
}

// ansi returns the escape sequence for a colour name, or "" if it is unknown.
func ansi(name string) string {
	code, ok := ansiCodes[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return ""
	}
	return fmt.Sprintf("\x1b[%dm", code)
}

// palette holds the escape sequence for every level that has a colour.
type palette map[zapcore.Level]string

func paletteFrom(c config.ColorConfig) palette {
	p := palette{}
	for level, name := range map[zapcore.Level]string{
		zapcore.DebugLevel:  c.Debug,
		zapcore.InfoLevel:   c.Info,
		zapcore.WarnLevel:   c.Warn,
		zapcore.ErrorLevel:  c.Error,
		zapcore.DPanicLevel: c.DPanic,
		zapcore.PanicLevel:  c.Panic,
		zapcore.FatalLevel:  c.Fatal,
	} {
		if seq := ansi(name); seq != "" {
			p[level] = seq
		}
	}
	return p
}

func (p palette) encodeLevel(level zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	label := level.CapitalString()
	if seq, ok := p[level]; ok {
		label = seq + label + ansiReset
	}
	enc.AppendString(label)
}

// Initialize installs the process-wide logger. Later calls are ignored until
// ResetForTest.
func Initialize(cfg config.LoggerConfig, consoleWriter zapcore.WriteSyncer) {
	once.Do(func() {
		logger := New(cfg, consoleWriter)
		globalLogger.Store(logger)
		zap.ReplaceGlobals(logger)
		zap.RedirectStdLog(logger)
	})
}

// New builds a logger that writes to consoleWriter and, when cfg.LogFile is
// set, to a rotating JSON file. The global logger is left alone.
func New(cfg config.LoggerConfig, consoleWriter zapcore.WriteSyncer) *zap.Logger {
	level := zap.NewAtomicLevelAt(zap.InfoLevel)
	if cfg.Level != "" {
		if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
			level.SetLevel(zap.InfoLevel)
		}
	}

	var consoleEnc zapcore.Encoder
	if strings.EqualFold(cfg.Format, "console") {
		consoleEnc = consoleEncoder(paletteFrom(cfg.Colors))
	} else {
		consoleEnc = jsonEncoder()
	}
	core := zapcore.NewCore(consoleEnc, consoleWriter, level)
	if cfg.LogFile != "" {
		core = zapcore.NewTee(core, rotatingCore(cfg, level))
	}

	opts := []zap.Option{zap.AddStacktrace(zap.ErrorLevel)}
	if cfg.AddSource {
		opts = append(opts, zap.AddCaller())
	}
	logger := zap.New(core, opts...)
	if cfg.ServiceName != "" {
		logger = logger.Named(cfg.ServiceName)
	}
	return logger
}

// InitializeLogger sends console output to stderr so stdout carries only reports.
func InitializeLogger(cfg config.LoggerConfig) {
	Initialize(cfg, zapcore.Lock(os.Stderr))
}

// ResetForTest clears the global logger. Tests only.
func ResetForTest() {
	globalLogger.Store(nil)
	once = sync.Once{}
}

func rotatingCore(cfg config.LoggerConfig, level zapcore.LevelEnabler) zapcore.Core {
	sink := &lumberjack.Logger{
		Filename:   cfg.LogFile,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   cfg.Compress,
	}
	return zapcore.NewCore(jsonEncoder(), zapcore.AddSync(sink), level)
}

func baseEncoderConfig() zapcore.EncoderConfig {
	ec := zap.NewProductionEncoderConfig()
	ec.EncodeTime = zapcore.TimeEncoderOfLayout(timeLayout)
	ec.EncodeDuration = zapcore.StringDurationEncoder
	return ec
}

func jsonEncoder() zapcore.Encoder {
	ec := baseEncoderConfig()
	ec.EncodeLevel = zapcore.CapitalLevelEncoder
	return zapcore.NewJSONEncoder(ec)
}

// consoleEncoder renders one line per entry, e.g.
// "... INFO kioskprobe.runner. Scenario started. {...}".
func consoleEncoder(p palette) zapcore.Encoder {
	ec := baseEncoderConfig()
	ec.EncodeLevel = p.encodeLevel
	ec.EncodeName = func(name string, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(name + ".")
	}
	return zapcore.NewConsoleEncoder(ec)
}

// GetLogger returns the global logger, or a development logger when
// Initialize has not run yet.
func GetLogger() *zap.Logger {
	if logger := globalLogger.Load(); logger != nil {
		return logger
	}
	l, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	l.Warn("Global logger requested before initialization; using fallback.")
	return l.Named("fallback")
}

// Sync flushes the global logger. Call it before exiting.
func Sync() {
	logger := globalLogger.Load()
	if logger == nil {
		return
	}
	if err := logger.Sync(); err != nil && !ignorableSyncError(err) {
		fmt.Fprintln(os.Stderr, "Error: failed to sync logger:", err)
	}
}

// ignorableSyncError reports whether err is the noise terminals and pipes
// return from fsync.
func ignorableSyncError(err error) bool {
	for _, errno := range []syscall.Errno{syscall.EINVAL, syscall.ENOTTY, syscall.ENOTSUP, syscall.EBADF} {
		if errors.Is(err, errno) {
			return true
		}
	}
	msg := err.Error()
	return strings.Contains(msg, "/dev/stdout") || strings.Contains(msg, "/dev/stderr")
}
