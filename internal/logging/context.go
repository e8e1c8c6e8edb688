package logging

import "context"

type ctxKey struct{}

// ContextWithRequestID returns a copy of ctx carrying a request id. Loggers
// add it to every entry written with that context.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// RequestIDFromContext returns the request id stored in ctx, if any.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// withContextArgs never writes into the caller's backing array.
func withContextArgs(ctx context.Context, args []any) []any {
	if id := RequestIDFromContext(ctx); id != "" {
		return append(args[:len(args):len(args)], "request_id", id)
	}
	return args
}
