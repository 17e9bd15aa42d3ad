package logger

import "context"

type ctxKey struct{}

// WithContext stores l in ctx.
func WithContext(ctx context.Context, l Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext returns the logger stored in ctx, or base when there is none.
// A nil base yields a no-op logger.
func FromContext(ctx context.Context, base Logger) Logger {
	if l, ok := ctx.Value(ctxKey{}).(Logger); ok {
		return l
	}
	if base == nil {
		return NewNop()
	}
	return base
}

// WithFields attaches fields to the logger carried by ctx. Later calls to
// FromContext see them. ctx is returned unchanged when it carries no logger.
func WithFields(ctx context.Context, fields ...Field) context.Context {
	l, ok := ctx.Value(ctxKey{}).(Logger)
	if !ok || len(fields) == 0 {
		return ctx
	}
	return WithContext(ctx, l.With(fields...))
}
