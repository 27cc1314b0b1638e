// Package reqid carries a correlation id for one editor operation.
//
// Every backend call made on behalf of an operation sends the same id in the
// X-Request-ID header, and logger.WithCtx(ctx) tags log lines with it:
//
//	ctx = reqid.Ensure(ctx)
//	log := logger.WithCtx(ctx)
//	log.Info("photos reordered", "model_id", 12)
//	// → time=... level=INFO msg="photos reordered" request_id=5b0c... model_id=12
package reqid

import (
	"context"

	"github.com/google/uuid"
)

type ctxKey struct{}

// Header is the HTTP header name used to propagate the request ID.
const Header = "X-Request-ID"

// New returns a random UUIDv4 string.
func New() string {
	return uuid.NewString()
}

// WithValue stores id in ctx and returns the new context.
func WithValue(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromCtx extracts the request ID from ctx.
// Returns an empty string if none is present.
func FromCtx(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if id, ok := ctx.Value(ctxKey{}).(string); ok {
		return id
	}
	return ""
}

// Ensure returns ctx unchanged when it already carries an id, otherwise a
// child context with a fresh one.
func Ensure(ctx context.Context) context.Context {
	if FromCtx(ctx) != "" {
		return ctx
	}
	return WithValue(ctx, New())
}
