// Package logger provides the prefixed, colored component loggers used across the
// server. Every component gets its own named logger so interleaved output on a
// shared stdout stays readable.
package logger

import (
	"errors"
	"io"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const colorReset = "\033[0m"

// ErrNilWriter is returned when a logger is requested without an output.
var ErrNilWriter = errors.New("logger output is nil")

// Logger writes leveled messages for one component.
type Logger struct {
	z *zap.Logger
}

// New creates a logger that prefixes every line with the colored component name.
func New(prefix string, color string, w io.Writer) (*Logger, error) {
	if w == nil {
		return nil, ErrNilWriter
	}

	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	encCfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006/01/02 15:04:05")
	encCfg.CallerKey = ""

	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(w), zapcore.DebugLevel)
	return &Logger{z: zap.New(core).Named(color + "[" + prefix + "]" + colorReset)}, nil
}

// FromZap wraps an existing zap logger. Tests use it with zaptest.
func FromZap(z *zap.Logger) *Logger {
	return &Logger{z: z}
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{z: zap.NewNop()}
}

// Named returns a child logger whose prefix is extended with name.
func (l *Logger) Named(name string) *Logger {
	return &Logger{z: l.z.Named(name)}
}

func (l *Logger) Debug(msg string) { l.z.Debug(msg) }

func (l *Logger) Info(msg string) { l.z.Info(msg) }

func (l *Logger) Warning(msg string) { l.z.Warn(msg) }

func (l *Logger) Error(msg string) { l.z.Error(msg) }

// Sync flushes buffered output.
func (l *Logger) Sync() error {
	return l.z.Sync()
}
