/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const moduleName = "module-xyz"

func TestConsoleLogging(t *testing.T) {
	var buf bytes.Buffer
	p, err := NewProvider(Options{Console: &buf})
	require.NoError(t, err)

	logger := p.Logger(moduleName)
	assert.Equal(t, moduleName, logger.Module())

	logger.Infof("hello %s", "world")
	logger.Debug("not shown")
	logger.Warn("careful")

	out := buf.String()
	assert.Contains(t, out, "hello world")
	assert.Contains(t, out, moduleName)
	assert.Contains(t, out, "WARN")
	assert.NotContains(t, out, "not shown")
}

func TestModuleLevels(t *testing.T) {
	var buf bytes.Buffer
	p, err := NewProvider(Options{Console: &buf, Level: "warn", Modules: map[string]string{"chatty": "debug"}})
	require.NoError(t, err)

	quiet := p.Logger("quiet")
	chatty := p.Logger("chatty")

	quiet.Info("quiet-info")
	chatty.Debug("chatty-debug")
	assert.NotContains(t, buf.String(), "quiet-info")
	assert.Contains(t, buf.String(), "chatty-debug")

	assert.False(t, quiet.IsEnabledFor(INFO))
	p.SetLevel("quiet", INFO)
	assert.True(t, quiet.IsEnabledFor(INFO))
	quiet.Info("quiet-info-now")
	assert.Contains(t, buf.String(), "quiet-info-now")

	assert.Equal(t, INFO, p.GetLevel("quiet"))
	assert.Equal(t, "debug", p.Levels()["chatty"])
}

func TestRoutesByLevel(t *testing.T) {
	dir := t.TempDir()
	debugFile := filepath.Join(dir, "debug.log")
	errorFile := filepath.Join(dir, "error.log")

	var console bytes.Buffer
	p, err := NewProvider(Options{
		Level:   "debug",
		Console: &console,
		Routes: map[string]string{
			"debug": debugFile,
			"info":  ConsoleSink,
			"error": errorFile,
		},
	})
	require.NoError(t, err)

	logger := p.Logger(moduleName)
	logger.Debug("debug-entry")
	logger.Info("info-entry")
	logger.Warn("warn-entry")
	logger.Error("error-entry")
	require.NoError(t, p.Close())

	debugOut, err := os.ReadFile(debugFile)
	require.NoError(t, err)
	errorOut, err := os.ReadFile(errorFile)
	require.NoError(t, err)

	assert.Contains(t, string(debugOut), "debug-entry")
	assert.NotContains(t, string(debugOut), "info-entry")
	assert.Contains(t, string(errorOut), "error-entry")
	assert.NotContains(t, string(errorOut), "debug-entry")
	assert.Contains(t, console.String(), "info-entry")
	assert.NotContains(t, console.String(), "error-entry")

	for _, out := range []string{string(debugOut), string(errorOut), console.String()} {
		assert.NotContains(t, out, "warn-entry", "warn has no route")
	}
}

func TestFormats(t *testing.T) {
	var buf bytes.Buffer
	p, err := NewProvider(Options{Console: &buf, Format: "logfmt"})
	require.NoError(t, err)
	p.Logger(moduleName).With("txid", "abc").Info("submitted")
	assert.True(t, strings.Contains(buf.String(), "txid=abc"), buf.String())

	buf.Reset()
	p, err = NewProvider(Options{Console: &buf, Format: "json"})
	require.NoError(t, err)
	p.Logger(moduleName).Info("submitted")
	assert.Contains(t, buf.String(), `"msg":"submitted"`)

	_, err = NewProvider(Options{Format: "xml"})
	assert.Error(t, err)
}

func TestInvalidOptions(t *testing.T) {
	_, err := NewProvider(Options{Level: "loud"})
	assert.Error(t, err)

	_, err = NewProvider(Options{Routes: map[string]string{"critical": ConsoleSink}})
	assert.Error(t, err)

	_, err = NewProvider(Options{Modules: map[string]string{"m": "x"}})
	assert.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	for name, want := range map[string]Level{"DEBUG": DEBUG, "info": INFO, "warning": WARNING, "warn": WARNING, "error": ERROR, "critical": CRITICAL} {
		l, err := ParseLevel(name)
		require.NoError(t, err)
		assert.Equal(t, want, l)
	}
	assert.Equal(t, "unknown", Level(42).String())
}

func TestDefaultLogger(t *testing.T) {
	l := NewLogger("default-module")
	assert.NotNil(t, l.Zap())
	assert.True(t, l.IsEnabledFor(INFO))
	assert.False(t, l.IsEnabledFor(DEBUG))
}
