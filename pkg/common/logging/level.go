/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package logging

import (
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap/zapcore"
)

// Level defines all available log levels for log messages.
type Level int

// Log levels.
const (
	CRITICAL Level = iota
	ERROR
	WARNING
	INFO
	DEBUG
)

var levelNames = []string{"critical", "error", "warn", "info", "debug"}

func (l Level) String() string {
	if l < CRITICAL || l > DEBUG {
		return "unknown"
	}
	return levelNames[l]
}

// ParseLevel returns the level for a case-insensitive name
func ParseLevel(name string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "critical", "fatal":
		return CRITICAL, nil
	case "error":
		return ERROR, nil
	case "warn", "warning":
		return WARNING, nil
	case "info":
		return INFO, nil
	case "debug":
		return DEBUG, nil
	}
	return INFO, errors.Errorf("invalid log level [%s]", name)
}

func (l Level) zapLevel() zapcore.Level {
	switch l {
	case CRITICAL:
		return zapcore.DPanicLevel
	case ERROR:
		return zapcore.ErrorLevel
	case WARNING:
		return zapcore.WarnLevel
	case DEBUG:
		return zapcore.DebugLevel
	default:
		return zapcore.InfoLevel
	}
}
