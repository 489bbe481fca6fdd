// Package logger wraps zap with key/value logging methods.
package logger

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is a sugared zap logger taking alternating key/value pairs
type Logger struct {
	SugaredLogger *zap.SugaredLogger
}

// New builds a logger. mode "prod" emits JSON, anything else console output.
// level is a zap level name; unknown names fall back to info.
func New(mode, level string) (*Logger, error) {
	var cfg zap.Config
	switch strings.ToLower(mode) {
	case "prod", "production":
		cfg = zap.NewProductionConfig()
	default:
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	lvl := zap.NewAtomicLevelAt(zap.InfoLevel)
	if level != "" {
		if parsed, err := zapcore.ParseLevel(level); err == nil {
			lvl = zap.NewAtomicLevelAt(parsed)
		}
	}
	cfg.Level = lvl
	// progress output belongs on stderr with the rest of the CLI chatter
	cfg.OutputPaths = []string{"stderr"}

	zapLogger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return &Logger{SugaredLogger: zapLogger.Sugar()}, nil
}

// Nop returns a logger that discards everything
func Nop() *Logger {
	return &Logger{SugaredLogger: zap.NewNop().Sugar()}
}

// Sync flushes buffered log entries
func (l *Logger) Sync() {
	_ = l.SugaredLogger.Sync()
}

// Debug logs msg with alternating key/value pairs at debug level
func (l *Logger) Debug(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Debugw(msg, keysAndValues...)
}

// Info logs at info level
func (l *Logger) Info(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Infow(msg, keysAndValues...)
}

// Warn logs at warn level
func (l *Logger) Warn(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Warnw(msg, keysAndValues...)
}

// Error logs at error level
func (l *Logger) Error(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Errorw(msg, keysAndValues...)
}

// With returns a child logger that adds the key/value pairs to every entry
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	return &Logger{SugaredLogger: l.SugaredLogger.With(keysAndValues...)}
}
