package rbac

import "context"

// ---- caller in context ----

type ctxKey struct{}

var ctxKeyCaller = ctxKey{}

// Caller is the authenticated user behind a request.
type Caller struct {
	ID       int64
	Username string
}

func WithCaller(ctx context.Context, c Caller) context.Context {
	return context.WithValue(ctx, ctxKeyCaller, c)
}

func CallerFromContext(ctx context.Context) (Caller, bool) {
	c, ok := ctx.Value(ctxKeyCaller).(Caller)
	if !ok || c.ID == 0 {
		return Caller{}, false
	}
	return c, true
}
