package gologger

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	job "github.com/goliatone/go-job"
	glog "github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-topgg/core"
)

// Loggers bundles the resolved glog pair with its go-job equivalents so the
// webhook, the client and queue workers share one sink.
type Loggers struct {
	Provider    glog.LoggerProvider
	Logger      glog.Logger
	JobProvider job.LoggerProvider
	JobLogger   job.Logger
}

// Named returns the logger for a component, e.g. "webhook" resolves to
// "topgg.webhook".
func (l Loggers) Named(component string) glog.Logger {
	name := componentName(component)
	if l.Provider != nil {
		if logger := l.Provider.GetLogger(name); logger != nil {
			return logger
		}
	}
	return glog.Ensure(l.Logger)
}

// Resolve uses deterministic precedence provider > logger > nop. An empty
// name falls back to the service name.
func Resolve(name string, provider glog.LoggerProvider, logger glog.Logger) (glog.LoggerProvider, glog.Logger) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = core.DefaultServiceName
	}
	resolvedProvider, resolved := glog.Resolve(name, provider, logger)
	return resolvedProvider, glog.Ensure(resolved)
}

func ToJobProvider(provider glog.LoggerProvider) job.LoggerProvider {
	if provider == nil {
		return nil
	}
	return job.GoLoggerProvider(provider)
}

func ToJobLogger(logger glog.Logger) job.Logger {
	if logger == nil {
		return nil
	}
	return job.GoLogger(logger)
}

func ResolveForJob(name string, provider glog.LoggerProvider, logger glog.Logger) Loggers {
	resolvedProvider, resolvedLogger := Resolve(name, provider, logger)
	return Loggers{
		Provider:    resolvedProvider,
		Logger:      resolvedLogger,
		JobProvider: ToJobProvider(resolvedProvider),
		JobLogger:   ToJobLogger(resolvedLogger),
	}
}

func componentName(component string) string {
	component = strings.TrimSpace(component)
	if component == "" {
		return core.DefaultServiceName
	}
	if strings.HasPrefix(component, core.DefaultServiceName+".") {
		return component
	}
	return core.DefaultServiceName + "." + component
}

// SlogLogger writes glog calls to a slog handler. Args follow the glog
// key/value convention; a dangling key is logged under "!BADKEY" by slog.
type SlogLogger struct {
	base *slog.Logger
	ctx  context.Context
}

func NewSlogLogger(base *slog.Logger) *SlogLogger {
	if base == nil {
		base = slog.Default()
	}
	return &SlogLogger{base: base}
}

func (l *SlogLogger) Trace(msg string, args ...any) {
	l.log(slog.LevelDebug-4, msg, args)
}

func (l *SlogLogger) Debug(msg string, args ...any) {
	l.log(slog.LevelDebug, msg, args)
}

func (l *SlogLogger) Info(msg string, args ...any) {
	l.log(slog.LevelInfo, msg, args)
}

func (l *SlogLogger) Warn(msg string, args ...any) {
	l.log(slog.LevelWarn, msg, args)
}

func (l *SlogLogger) Error(msg string, args ...any) {
	l.log(slog.LevelError, msg, args)
}

// Fatal logs at error level with a fatal marker. It does not exit the process.
func (l *SlogLogger) Fatal(msg string, args ...any) {
	l.log(slog.LevelError, msg, append([]any{"fatal", true}, args...))
}

func (l *SlogLogger) WithContext(ctx context.Context) glog.Logger {
	if l == nil {
		return glog.Nop()
	}
	return &SlogLogger{base: l.base, ctx: ctx}
}

func (l *SlogLogger) WithFields(fields map[string]any) glog.Logger {
	if l == nil {
		return glog.Nop()
	}
	args := make([]any, 0, len(fields)*2)
	for key, value := range fields {
		args = append(args, key, value)
	}
	return &SlogLogger{base: l.base.With(args...), ctx: l.ctx}
}

func (l *SlogLogger) GetLogger(name string) glog.Logger {
	if l == nil {
		return glog.Nop()
	}
	return &SlogLogger{base: l.base.With("logger", name), ctx: l.ctx}
}

func (l *SlogLogger) log(level slog.Level, msg string, args []any) {
	if l == nil || l.base == nil {
		return
	}
	ctx := l.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	if !l.base.Enabled(ctx, level) {
		return
	}
	if len(args)%2 != 0 {
		args = append(args, fmt.Sprintf("(missing value for %v)", args[len(args)-1]))
	}
	l.base.Log(ctx, level, msg, args...)
}

var (
	_ glog.Logger         = (*SlogLogger)(nil)
	_ glog.FieldsLogger   = (*SlogLogger)(nil)
	_ glog.LoggerProvider = (*SlogLogger)(nil)
)
