/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package logging

import (
	"io"
	"os"
	"sort"
	"sync"

	"github.com/pkg/errors"
	zaplogfmt "github.com/sykesm/zap-logfmt"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ConsoleSink is the route value that selects the console writer
const ConsoleSink = "console"

// Options configures a Provider
type Options struct {
	// Level is the default level for modules without an override
	Level string
	// Format is one of console, json or logfmt
	Format string
	// Routes maps debug, info, warn and error to ConsoleSink or a file path.
	// When empty every level goes to the console.
	Routes map[string]string
	// Modules overrides the level per module name
	Modules map[string]string
	// Console replaces stdout as the console writer
	Console io.Writer
}

// Provider creates loggers that share the same sinks
type Provider struct {
	core         zapcore.Core
	defaultLevel Level

	mu      sync.RWMutex
	levels  map[string]zap.AtomicLevel
	closers []func()
}

var (
	defaultOnce sync.Once
	defaultProv *Provider
)

func defaultProvider() *Provider {
	defaultOnce.Do(func() {
		p, err := NewProvider(Options{})
		if err != nil {
			panic(err)
		}
		defaultProv = p
	})
	return defaultProv
}

// NewProvider builds a Provider from opts
func NewProvider(opts Options) (*Provider, error) {
	level := INFO
	if opts.Level != "" {
		l, err := ParseLevel(opts.Level)
		if err != nil {
			return nil, err
		}
		level = l
	}

	enc, err := newEncoder(opts.Format)
	if err != nil {
		return nil, err
	}

	console := zapcore.AddSync(os.Stdout)
	if opts.Console != nil {
		console = zapcore.AddSync(opts.Console)
	}

	p := &Provider{defaultLevel: level, levels: make(map[string]zap.AtomicLevel)}

	if len(opts.Routes) == 0 {
		p.core = zapcore.NewCore(enc, zapcore.Lock(console), zapcore.DebugLevel)
	} else if p.core, err = p.routedCore(enc, console, opts.Routes); err != nil {
		p.Close()
		return nil, err
	}

	for module, name := range opts.Modules {
		l, err := ParseLevel(name)
		if err != nil {
			p.Close()
			return nil, errors.WithMessagef(err, "module [%s]", module)
		}
		p.levels[module] = zap.NewAtomicLevelAt(l.zapLevel())
	}

	return p, nil
}

// routedCore tees one core per severity, each writing only its own level.
// The error route also takes anything more severe.
func (p *Provider) routedCore(enc zapcore.Encoder, console zapcore.WriteSyncer, routes map[string]string) (zapcore.Core, error) {
	sinks := make(map[string]zapcore.WriteSyncer)
	var cores []zapcore.Core

	names := make([]string, 0, len(routes))
	for name := range routes {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		target := routes[name]
		level, err := ParseLevel(name)
		if err != nil {
			return nil, err
		}
		if level == CRITICAL {
			return nil, errors.Errorf("level [%s] can not be routed, route [error] instead", name)
		}

		ws, ok := sinks[target]
		if !ok {
			if target == "" || target == ConsoleSink {
				ws = zapcore.Lock(console)
			} else {
				var closer func()
				ws, closer, err = zap.Open(target)
				if err != nil {
					return nil, errors.Wrapf(err, "opening log file for level [%s]", name)
				}
				p.closers = append(p.closers, closer)
			}
			sinks[target] = ws
		}

		zl := level.zapLevel()
		enabler := zap.LevelEnablerFunc(func(l zapcore.Level) bool {
			if zl == zapcore.ErrorLevel {
				return l >= zapcore.ErrorLevel
			}
			return l == zl
		})
		cores = append(cores, zapcore.NewCore(enc.Clone(), ws, enabler))
	}

	return zapcore.NewTee(cores...), nil
}

func newEncoder(format string) (zapcore.Encoder, error) {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "ts"
	cfg.NameKey = "module"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder

	switch format {
	case "", "console":
		cfg.EncodeLevel = zapcore.CapitalLevelEncoder
		return zapcore.NewConsoleEncoder(cfg), nil
	case "json":
		return zapcore.NewJSONEncoder(cfg), nil
	case "logfmt":
		return zaplogfmt.NewEncoder(cfg), nil
	}
	return nil, errors.Errorf("unsupported log format [%s]", format)
}

// Logger returns a logger for module
func (p *Provider) Logger(module string) *Logger {
	core := &moduleCore{Core: p.core, level: p.atomicLevel(module)}
	zl := zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1)).Named(module)
	return &Logger{module: module, sugar: zl.Sugar()}
}

func (p *Provider) atomicLevel(module string) zap.AtomicLevel {
	p.mu.RLock()
	l, ok := p.levels[module]
	p.mu.RUnlock()
	if ok {
		return l
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if l, ok = p.levels[module]; !ok {
		l = zap.NewAtomicLevelAt(p.defaultLevel.zapLevel())
		p.levels[module] = l
	}
	return l
}

// SetLevel changes the level of module, including loggers already handed out
func (p *Provider) SetLevel(module string, level Level) {
	p.atomicLevel(module).SetLevel(level.zapLevel())
}

// GetLevel returns the level of module
func (p *Provider) GetLevel(module string) Level {
	switch p.atomicLevel(module).Level() {
	case zapcore.DebugLevel:
		return DEBUG
	case zapcore.InfoLevel:
		return INFO
	case zapcore.WarnLevel:
		return WARNING
	case zapcore.ErrorLevel:
		return ERROR
	default:
		return CRITICAL
	}
}

// Levels returns the level of every module seen so far
func (p *Provider) Levels() map[string]string {
	p.mu.RLock()
	modules := make([]string, 0, len(p.levels))
	for m := range p.levels {
		modules = append(modules, m)
	}
	p.mu.RUnlock()

	spec := make(map[string]string, len(modules))
	for _, m := range modules {
		spec[m] = p.GetLevel(m).String()
	}
	return spec
}

// Sync flushes buffered entries
func (p *Provider) Sync() error {
	return p.core.Sync()
}

// Close flushes and releases any log files
func (p *Provider) Close() error {
	var err error
	if p.core != nil {
		err = multierr.Append(err, p.core.Sync())
	}
	for _, c := range p.closers {
		c()
	}
	p.closers = nil
	return err
}

// moduleCore applies a per-module level in front of the shared sinks
type moduleCore struct {
	zapcore.Core
	level zap.AtomicLevel
}

func (c *moduleCore) Enabled(l zapcore.Level) bool {
	return c.level.Enabled(l) && c.Core.Enabled(l)
}

func (c *moduleCore) With(fields []zapcore.Field) zapcore.Core {
	return &moduleCore{Core: c.Core.With(fields), level: c.level}
}

func (c *moduleCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if !c.level.Enabled(ent.Level) {
		return ce
	}
	return c.Core.Check(ent, ce)
}
