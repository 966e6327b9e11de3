// Package logger wraps github.com/charmbracelet/log behind a small
// interface so the rest of the engine never imports charmbracelet directly.
package logger

import (
	charmlog "github.com/charmbracelet/log"
)

// Logger is the structured logging surface every subsystem pulls from
// context.Context. Warnw exists alongside Warn so duck-typed consumers
// elsewhere in the engine (engine/match's `when` evaluator, in particular)
// can depend on a single-method interface without importing this package.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Warnw(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
	With(keysAndValues ...any) Logger
}

type charmLogger struct {
	base *charmlog.Logger
}

// NewLogger builds a Logger from cfg. A nil cfg uses TestConfig() under
// `go test` and DefaultConfig() otherwise, so test files that construct a
// logger without thinking about it don't spam stdout.
func NewLogger(cfg *Config) Logger {
	if cfg == nil {
		if IsTestEnvironment() {
			cfg = TestConfig()
		} else {
			cfg = DefaultConfig()
		}
	}
	handler := charmlog.NewWithOptions(cfg.Output, charmlog.Options{
		Level:           cfg.Level.ToCharmlogLevel(),
		ReportCaller:    cfg.AddSource,
		ReportTimestamp: true,
		TimeFormat:      cfg.TimeFormat,
		Formatter:       formatterFor(cfg.JSON),
	})
	return &charmLogger{base: handler}
}

func formatterFor(asJSON bool) charmlog.Formatter {
	if asJSON {
		return charmlog.JSONFormatter
	}
	return charmlog.TextFormatter
}

func (l *charmLogger) Debug(msg string, keysAndValues ...any) { l.base.Debug(msg, keysAndValues...) }
func (l *charmLogger) Info(msg string, keysAndValues ...any)  { l.base.Info(msg, keysAndValues...) }
func (l *charmLogger) Warn(msg string, keysAndValues ...any)  { l.base.Warn(msg, keysAndValues...) }
func (l *charmLogger) Warnw(msg string, keysAndValues ...any) { l.base.Warn(msg, keysAndValues...) }
func (l *charmLogger) Error(msg string, keysAndValues ...any) { l.base.Error(msg, keysAndValues...) }

func (l *charmLogger) With(keysAndValues ...any) Logger {
	return &charmLogger{base: l.base.With(keysAndValues...)}
}
