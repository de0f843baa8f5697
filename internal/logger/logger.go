// Package logger wraps zap behind a small interface so packages can log
// without caring how the logger was built.
package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the logging surface used throughout darkroom.
type Logger interface {
	Debug(msg string, fields ...zap.Field)
	Info(msg string, fields ...zap.Field)
	Warn(msg string, fields ...zap.Field)
	Error(msg string, fields ...zap.Field)
}

// ZapLogger is the production implementation backed by *zap.Logger.
type ZapLogger struct {
	logger *zap.Logger
	level  zap.AtomicLevel
}

// New creates a JSON logger writing to the given file path.
// The TUI owns stdout, so logs go to a file rather than the terminal.
func New(path string, level string) (*ZapLogger, error) {
	atomic := zap.NewAtomicLevelAt(parseLevel(level))

	cfg := zap.NewProductionConfig()
	cfg.Level = atomic
	cfg.OutputPaths = []string{path}
	cfg.ErrorOutputPaths = []string{path}

	l, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return &ZapLogger{logger: l, level: atomic}, nil
}

// SetLevel changes the level at runtime (driven by config reload).
func (l *ZapLogger) SetLevel(level string) {
	l.level.SetLevel(parseLevel(level))
}

// Close flushes buffered log entries.
func (l *ZapLogger) Close() error {
	return l.logger.Sync()
}

func (l *ZapLogger) Debug(msg string, fields ...zap.Field) { l.logger.Debug(msg, fields...) }
func (l *ZapLogger) Info(msg string, fields ...zap.Field)  { l.logger.Info(msg, fields...) }
func (l *ZapLogger) Warn(msg string, fields ...zap.Field)  { l.logger.Warn(msg, fields...) }
func (l *ZapLogger) Error(msg string, fields ...zap.Field) { l.logger.Error(msg, fields...) }

func parseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// NopLogger discards everything. Used in tests.
type NopLogger struct{}

func Nop() *NopLogger { return &NopLogger{} }

func (*NopLogger) Debug(string, ...zap.Field) {}
func (*NopLogger) Info(string, ...zap.Field)  {}
func (*NopLogger) Warn(string, ...zap.Field)  {}
func (*NopLogger) Error(string, ...zap.Field) {}
