// Package logger provides the structured logger used across motoportal,
// built on log/slog.
//
// WithCtx returns a logger tagged with the request id carried in ctx, so the
// log line of a backend call can be matched with the X-Request-ID the backend
// saw:
//
//	log := logger.WithCtx(ctx)
//	log.Info("photo uploaded", "model_id", 12, "photo_id", 88)
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/vmcmoto/motoportal/config"
	"github.com/vmcmoto/motoportal/pkg/reqid"
)

var (
	mu sync.RWMutex
	L  = New(os.Stderr, config.AppEnv())
)

// New builds a logger writing to w. Production environments get JSON output
// at INFO, everything else human-readable text at DEBUG.
func New(w io.Writer, env string) *slog.Logger {
	return slog.New(NewHandler(w, env))
}

// NewHandler returns the handler New would use.
func NewHandler(w io.Writer, env string) slog.Handler {
	switch env {
	case "production", "prod":
		return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo})
	default:
		return slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug})
	}
}

// SetDefault replaces the package logger and slog's default.
func SetDefault(l *slog.Logger) {
	mu.Lock()
	L = l
	mu.Unlock()
	slog.SetDefault(l)
}

func base() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return L
}

// Discard silences logging; used by tests and the CLI --quiet flag.
func Discard() {
	SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// WithCtx returns the base logger tagged with the request id found in ctx.
// Without a request id the base logger is returned unchanged.
func WithCtx(ctx context.Context) *slog.Logger {
	if id := reqid.FromCtx(ctx); id != "" {
		return base().With("request_id", id)
	}
	return base()
}

func Debug(msg string, args ...any) { base().Debug(msg, args...) }
func Info(msg string, args ...any)  { base().Info(msg, args...) }
func Warn(msg string, args ...any)  { base().Warn(msg, args...) }
func Error(msg string, args ...any) { base().Error(msg, args...) }
