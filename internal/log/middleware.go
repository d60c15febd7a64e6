package log

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

type ctxKey struct{}

// NewContext returns a copy of ctx carrying logger.
func NewContext(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// FromContext extracts a logger from the context, falling back to the slog
// default.
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(ctxKey{}).(*Logger); ok {
		return logger
	}
	return &Logger{
		Logger:    slog.Default(),
		base:      slog.Default(),
		component: "unknown",
	}
}

// StructuredLogger writes the request and change records whose shape is
// fixed across the app.
type StructuredLogger struct {
	logger *Logger
}

func NewStructuredLogger(logger *Logger) *StructuredLogger {
	return &StructuredLogger{logger: logger}
}

// LogHTTPStart is a debug record of the incoming request.
func (sl *StructuredLogger) LogHTTPStart(ctx context.Context, r *http.Request, requestID, clientIP string) {
	a := attrs{}.
		add(FieldMethod, r.Method).
		add(FieldPath, r.URL.Path).
		addIf(FieldQuery, r.URL.RawQuery).
		addIf(FieldUserAgent, r.Header.Get("User-Agent")).
		addIf(FieldReferer, r.Header.Get("Referer")).
		addIf(FieldRequestID, requestID).
		add(FieldClientIP, clientIP)
	sl.logger.DebugContext(ctx, "HTTP request started", a...)
}

// LogHTTPEnd logs completion at info, warn for 4xx and error for 5xx.
func (sl *StructuredLogger) LogHTTPEnd(ctx context.Context, r *http.Request, requestID string, statusCode int, duration time.Duration, clientIP string) {
	level := slog.LevelInfo
	switch {
	case statusCode >= 500:
		level = slog.LevelError
	case statusCode >= 400:
		level = slog.LevelWarn
	}
	a := attrs{}.
		add(FieldMethod, r.Method).
		add(FieldPath, r.URL.Path).
		addIf(FieldQuery, r.URL.RawQuery).
		add(FieldStatusCode, statusCode).
		add(FieldDuration, duration.Milliseconds()).
		addIf(FieldRequestID, requestID).
		add(FieldClientIP, clientIP)
	sl.logger.Log(ctx, level, "HTTP request completed", a...)
}

// LogChange logs a successful write to a couple's data.
func (sl *StructuredLogger) LogChange(ctx context.Context, op, coupleID, entity, entityID string) {
	a := attrs{}.
		add(FieldCoupleID, coupleID).
		add(FieldEntity, entity).
		addIf(FieldEntityID, entityID).
		add(FieldOperation, op)
	sl.logger.InfoContext(ctx, "Record changed", a...)
}
