/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package logging provides component-scoped loggers backed by zap.
//
//  Basic Flow:
//  1) Build a Provider from the logging options
//  2) Ask it for a Logger per component (module)
//  3) Hand the Logger to the component at construction
package logging

import (
	"go.uber.org/zap"
)

// Logger is a leveled logger bound to one module
type Logger struct {
	module string
	sugar  *zap.SugaredLogger
}

// NewLogger returns a logger for module writing to the default console sink.
// Components use it when no Provider was supplied to them.
func NewLogger(module string) *Logger {
	return defaultProvider().Logger(module)
}

// Module returns the name the logger was created with
func (l *Logger) Module() string {
	return l.module
}

// With returns a logger that adds the given key/value pairs to every entry
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	return &Logger{module: l.module, sugar: l.sugar.With(keysAndValues...)}
}

// Zap returns the underlying zap logger, for libraries that take one
func (l *Logger) Zap() *zap.Logger {
	return l.sugar.Desugar().WithOptions(zap.AddCallerSkip(-1))
}

// IsEnabledFor reports whether entries at level would be written
func (l *Logger) IsEnabledFor(level Level) bool {
	return l.sugar.Desugar().Core().Enabled(level.zapLevel())
}

//Debug logs at debug level
func (l *Logger) Debug(args ...interface{}) {
	l.sugar.Debug(args...)
}

//Debugf logs a formatted message at debug level
func (l *Logger) Debugf(format string, args ...interface{}) {
	l.sugar.Debugf(format, args...)
}

//Info logs at info level
func (l *Logger) Info(args ...interface{}) {
	l.sugar.Info(args...)
}

//Infof logs a formatted message at info level
func (l *Logger) Infof(format string, args ...interface{}) {
	l.sugar.Infof(format, args...)
}

//Warn logs at warn level
func (l *Logger) Warn(args ...interface{}) {
	l.sugar.Warn(args...)
}

//Warnf logs a formatted message at warn level
func (l *Logger) Warnf(format string, args ...interface{}) {
	l.sugar.Warnf(format, args...)
}

//Error logs at error level
func (l *Logger) Error(args ...interface{}) {
	l.sugar.Error(args...)
}

//Errorf logs a formatted message at error level
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.sugar.Errorf(format, args...)
}
