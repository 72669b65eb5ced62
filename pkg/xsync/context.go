package xsync

import (
	"context"
)

type ctxKeyNoLogging struct{}

// WithNoLogging disables the trace logging of lock events for operations
// performed with the returned context (useful for hot paths).
func WithNoLogging(ctx context.Context, noLogging bool) context.Context {
	return context.WithValue(ctx, ctxKeyNoLogging{}, noLogging)
}

func IsNoLogging(ctx context.Context) bool {
	v, _ := ctx.Value(ctxKeyNoLogging{}).(bool)
	return v
}
