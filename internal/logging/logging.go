// Package logging provides structured, trace-aware logging for all services.
package logging

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type contextKey string

const (
	TraceIDKey  contextKey = "trace_id"
	UserIDKey   contextKey = "user_id"
	UsernameKey contextKey = "username"
)

// TraceIDHeader carries the trace ID between services.
const TraceIDHeader = "X-Trace-ID"

// Logger wraps logrus with the owning service name.
type Logger struct {
	*logrus.Logger
	service string
}

// New creates a logger writing to stdout. format is "json" or "text".
func New(service, level, format string) *Logger {
	return NewWithOutput(service, level, format, os.Stdout)
}

// NewWithOutput is New with an explicit writer.
func NewWithOutput(service, level, format string, out io.Writer) *Logger {
	l := logrus.New()
	l.SetOutput(out)

	lvl, err := logrus.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		lvl = logrus.InfoLevel
	}
	l.SetLevel(lvl)

	if strings.EqualFold(format, "text") {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		l.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	}

	return &Logger{Logger: l, service: service}
}

// NewNop returns a logger that discards everything. Used by tests.
func NewNop() *Logger {
	return NewWithOutput("test", "panic", "json", io.Discard)
}

// Service returns the service name this logger is bound to.
func (l *Logger) Service() string { return l.service }

// WithContext returns an entry annotated with the service and any trace/user IDs in ctx.
func (l *Logger) WithContext(ctx context.Context) *logrus.Entry {
	entry := l.Logger.WithField("service", l.service)
	if ctx == nil {
		return entry
	}
	if traceID := GetTraceID(ctx); traceID != "" {
		entry = entry.WithField("trace_id", traceID)
	}
	if userID := GetUserID(ctx); userID != "" {
		entry = entry.WithField("user_id", userID)
	}
	return entry
}

// LogRequest writes one access-log line.
func (l *Logger) LogRequest(ctx context.Context, method, path string, status int, duration time.Duration) {
	entry := l.WithContext(ctx).WithFields(logrus.Fields{
		"method":      method,
		"path":        path,
		"status":      status,
		"duration_ms": duration.Milliseconds(),
	})
	switch {
	case status >= 500:
		entry.Error("request completed")
	case status >= 400:
		entry.Warn("request completed")
	default:
		entry.Info("request completed")
	}
}

// LogSecurityEvent records authentication and authorization outcomes.
func (l *Logger) LogSecurityEvent(ctx context.Context, event string, fields map[string]interface{}) {
	l.WithContext(ctx).WithField("security_event", event).WithFields(fields).Warn("security event")
}

// NewTraceID generates a fresh trace identifier.
func NewTraceID() string {
	return uuid.NewString()
}

func WithTraceID(ctx context.Context, traceID string) context.Context {
	if traceID == "" {
		return ctx
	}
	return context.WithValue(ctx, TraceIDKey, traceID)
}

func GetTraceID(ctx context.Context) string {
	v, _ := ctx.Value(TraceIDKey).(string)
	return v
}

// WithUser stores the validated identity on the context.
func WithUser(ctx context.Context, userID, username string) context.Context {
	ctx = context.WithValue(ctx, UserIDKey, userID)
	return context.WithValue(ctx, UsernameKey, username)
}

func GetUserID(ctx context.Context) string {
	v, _ := ctx.Value(UserIDKey).(string)
	return v
}

func GetUsername(ctx context.Context) string {
	v, _ := ctx.Value(UsernameKey).(string)
	return v
}
