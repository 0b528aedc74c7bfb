// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package logger

import (
	"context"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type contextKey struct{}

var (
	once   sync.Once
	mu     sync.RWMutex
	global *zap.Logger
	level  = zap.NewAtomicLevelAt(zapcore.InfoLevel)
)

// New builds a JSON logger writing to standard error which logs at
// the levels enabled by lvl. A nil lvl means the shared atomic level
// controlled by SetLevel.
func New(lvl zapcore.LevelEnabler, opts ...zap.Option) *zap.Logger {
	if lvl == nil {
		lvl = level
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "ts"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		zapcore.Lock(os.Stderr),
		lvl,
	)

	return zap.New(core, opts...)
}

// ParseLogLevel parses a level name such as "debug" or " WARN ". The
// boolean result is false, and the level is info, if s is not a
// level name.
func ParseLogLevel(s string) (zapcore.Level, bool) {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(strings.ToLower(strings.TrimSpace(s)))); err != nil || strings.TrimSpace(s) == "" {
		return zapcore.InfoLevel, false
	}

	return lvl, true
}

// Logger returns the process-wide logger.
func Logger() *zap.Logger {
	once.Do(func() {
		mu.Lock()
		if global == nil {
			global = New(level, zap.AddCaller())
		}
		mu.Unlock()
	})

	mu.RLock()
	defer mu.RUnlock()
	return global
}

// SetLogger replaces the process-wide logger.
func SetLogger(l *zap.Logger) {
	if l == nil {
		panic("httpipe/logger: nil logger")
	}

	once.Do(func() {})
	mu.Lock()
	global = l
	mu.Unlock()
}

// Level returns the level of the shared atomic level.
func Level() zapcore.Level {
	return level.Level()
}

// SetLevel changes the shared atomic level. Loggers built by New with
// a nil level, including the default process-wide logger, follow it.
func SetLevel(lvl zapcore.Level) {
	level.SetLevel(lvl)
}

// IsDebug reports whether the shared level enables debug logging.
func IsDebug() bool {
	return level.Enabled(zapcore.DebugLevel)
}

// ToContext returns a child of ctx carrying l.
func ToContext(ctx context.Context, l *zap.Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, l)
}

// FromContext returns the logger carried by ctx, or the process-wide
// logger if ctx carries none.
func FromContext(ctx context.Context) *zap.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(contextKey{}).(*zap.Logger); ok && l != nil {
			return l
		}
	}

	return Logger()
}

// Debug logs a message at debug level.
func Debug(ctx context.Context, msg string) {
	FromContext(ctx).Debug(msg)
}

// Debugf logs a formatted message at debug level.
func Debugf(ctx context.Context, format string, args ...interface{}) {
	FromContext(ctx).Sugar().Debugf(format, args...)
}

// DebugKV logs a message with key-value pairs at debug level.
func DebugKV(ctx context.Context, msg string, kv ...interface{}) {
	FromContext(ctx).Sugar().Debugw(msg, kv...)
}

// Info logs a message at info level.
func Info(ctx context.Context, msg string) {
	FromContext(ctx).Info(msg)
}

// Infof logs a formatted message at info level.
func Infof(ctx context.Context, format string, args ...interface{}) {
	FromContext(ctx).Sugar().Infof(format, args...)
}

// InfoKV logs a message with key-value pairs at info level.
func InfoKV(ctx context.Context, msg string, kv ...interface{}) {
	FromContext(ctx).Sugar().Infow(msg, kv...)
}

// Warn logs a message at warn level.
func Warn(ctx context.Context, msg string) {
	FromContext(ctx).Warn(msg)
}

// Warnf logs a formatted message at warn level.
func Warnf(ctx context.Context, format string, args ...interface{}) {
	FromContext(ctx).Sugar().Warnf(format, args...)
}

// WarnKV logs a message with key-value pairs at warn level.
func WarnKV(ctx context.Context, msg string, kv ...interface{}) {
	FromContext(ctx).Sugar().Warnw(msg, kv...)
}

// Error logs a message at error level.
func Error(ctx context.Context, msg string) {
	FromContext(ctx).Error(msg)
}

// Errorf logs a formatted message at error level.
func Errorf(ctx context.Context, format string, args ...interface{}) {
	FromContext(ctx).Sugar().Errorf(format, args...)
}

// ErrorKV logs a message with key-value pairs at error level.
func ErrorKV(ctx context.Context, msg string, kv ...interface{}) {
	FromContext(ctx).Sugar().Errorw(msg, kv...)
}
