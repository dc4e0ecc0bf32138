// Package observability carries per-request logging context through the
// service layers.
package observability

import (
	"context"
	"log/slog"
)

type loggerKey struct{}

type requestIDKey struct{}

type connectionKey struct{}

// ContextWithLogger attaches a non-nil logger to the context.
func ContextWithLogger(ctx context.Context, lg *slog.Logger) context.Context {
	if ctx == nil || lg == nil {
		return ctx
	}
	return context.WithValue(ctx, loggerKey{}, lg)
}

// LoggerFromContext returns the stored logger, or slog.Default. The logger is
// enriched with request_id and connection when those are present.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	if ctx == nil {
		return slog.Default()
	}
	lg, _ := ctx.Value(loggerKey{}).(*slog.Logger)
	if lg == nil {
		lg = slog.Default()
	}
	if rid := RequestIDFromContext(ctx); rid != "" {
		lg = lg.With(slog.String("request_id", rid))
	}
	if conn := ConnectionFromContext(ctx); conn != "" {
		lg = lg.With(slog.String("connection", conn))
	}
	return lg
}

// ContextWithRequestID stores a non-empty request id.
func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	if ctx == nil || requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// RequestIDFromContext returns the stored request id or "".
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	rid, _ := ctx.Value(requestIDKey{}).(string)
	return rid
}

// ContextWithConnection records the connection profile a request operates on.
func ContextWithConnection(ctx context.Context, name string) context.Context {
	if ctx == nil || name == "" {
		return ctx
	}
	return context.WithValue(ctx, connectionKey{}, name)
}

// ConnectionFromContext returns the stored profile name or "".
func ConnectionFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	name, _ := ctx.Value(connectionKey{}).(string)
	return name
}
