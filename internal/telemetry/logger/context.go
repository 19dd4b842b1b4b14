package logger

import "context"

type ctxKey int

const (
	loggerKey ctxKey = iota
	connIDKey
)

const connIDAttr = "conn_id"

// WithLogger attaches l to ctx.
func WithLogger(ctx context.Context, l Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// FromContext returns the logger on ctx, or Default.
func FromContext(ctx context.Context) Logger {
	if ctx != nil {
		if l, ok := ctx.Value(loggerKey).(Logger); ok {
			return l
		}
	}
	return Default()
}

// WithConnID records the connection a piece of work runs on.
func WithConnID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, connIDKey, id)
}

// ConnIDFromContext returns the connection ID on ctx, or "".
func ConnIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(connIDKey).(string)
	return id
}

// L returns the context's logger bound to ctx. Records it emits carry
// the context's conn_id.
func L(ctx context.Context) Logger {
	return FromContext(ctx).WithContext(ctx)
}
