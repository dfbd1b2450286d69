package telemetry

import (
	"context"
	"log/slog"
	"os"
)

// Logger is the logging surface the engine accepts. It is adapted from
// the teacher's utils/logger.go: same shape, same Ctx-suffixed variants
// for pulling default fields out of a context.Context, renamed prefix.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	DebugCtx(ctx context.Context, msg string, args ...any)
	InfoCtx(ctx context.Context, msg string, args ...any)
	WarnCtx(ctx context.Context, msg string, args ...any)
	ErrorCtx(ctx context.Context, msg string, args ...any)
}

// NoopLogger discards everything. It is the engine's default Logger:
// operators are pure functions and must not require a logger to run, so
// a State built without WithLogger gets this instead of a nil panic.
type NoopLogger struct{}

func (NoopLogger) Debug(msg string, args ...any)                          {}
func (NoopLogger) Info(msg string, args ...any)                           {}
func (NoopLogger) Warn(msg string, args ...any)                           {}
func (NoopLogger) Error(msg string, args ...any)                          {}
func (NoopLogger) DebugCtx(ctx context.Context, msg string, args ...any)  {}
func (NoopLogger) InfoCtx(ctx context.Context, msg string, args ...any)   {}
func (NoopLogger) WarnCtx(ctx context.Context, msg string, args ...any)   {}
func (NoopLogger) ErrorCtx(ctx context.Context, msg string, args ...any)  {}

type DefaultLogger struct {
	logger *slog.Logger
}

func NewDefaultLogger(level slog.Level) *DefaultLogger {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	return &DefaultLogger{logger: logger}
}

const prefix = "[crdt] "

func (d *DefaultLogger) Debug(msg string, args ...any) {
	d.logger.Debug(prefix+msg, args...)
}

func (d *DefaultLogger) Info(msg string, args ...any) {
	d.logger.Info(prefix+msg, args...)
}

func (d *DefaultLogger) Warn(msg string, args ...any) {
	d.logger.Warn(prefix+msg, args...)
}

func (d *DefaultLogger) Error(msg string, args ...any) {
	d.logger.Error(prefix+msg, args...)
}

var defaultArgsKey int

func getDefaultArgs(ctx context.Context) []any {
	ctxargs := ctx.Value(&defaultArgsKey)
	if ctxargs == nil {
		return nil
	}
	return ctxargs.([]any)
}

// WithDefaultArgs returns a context that carries args, appended to every
// message logged through the Ctx-suffixed methods using that context.
func WithDefaultArgs(ctx context.Context, args ...any) context.Context {
	dargs := append(getDefaultArgs(ctx), args...)
	return context.WithValue(ctx, &defaultArgsKey, dargs)
}

func (d *DefaultLogger) DebugCtx(ctx context.Context, msg string, args ...any) {
	d.logger.Debug(prefix+msg, append(args, getDefaultArgs(ctx)...)...)
}

func (d *DefaultLogger) InfoCtx(ctx context.Context, msg string, args ...any) {
	d.logger.Info(prefix+msg, append(args, getDefaultArgs(ctx)...)...)
}

func (d *DefaultLogger) WarnCtx(ctx context.Context, msg string, args ...any) {
	d.logger.Warn(prefix+msg, append(args, getDefaultArgs(ctx)...)...)
}

func (d *DefaultLogger) ErrorCtx(ctx context.Context, msg string, args ...any) {
	d.logger.Error(prefix+msg, append(args, getDefaultArgs(ctx)...)...)
}
