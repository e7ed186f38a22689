package log

import (
	"context"

	"github.com/rs/zerolog"
)

type ctxKey struct{}

// WithLogger stores a logger in the context.
func WithLogger(ctx context.Context, logger zerolog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// Ctx retrieves the logger from the context.
// If no logger is found, the global logger is returned.
func Ctx(ctx context.Context) zerolog.Logger {
	if l, ok := ctx.Value(ctxKey{}).(zerolog.Logger); ok {
		return l
	}
	return L()
}

// WithConn derives a child of the context logger tagged with a connection id
// and returns both the new context and the child.
func WithConn(ctx context.Context, connID string) (context.Context, zerolog.Logger) {
	l := Ctx(ctx).With().Str(FieldConnID, connID).Logger()
	return WithLogger(ctx, l), l
}
