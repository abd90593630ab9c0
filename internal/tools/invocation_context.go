package tools

import (
	"context"
	"strings"
)

// RunIDHeader is sent by http.fetch so that servers can correlate requests
// with audit records.
const RunIDHeader = "X-Sentinex-Run-Id"

type invocationContextKey struct{}

// InvocationContext carries run metadata for tool execution.
type InvocationContext struct {
	RunID string
}

// WithInvocationContext stores invocation metadata in context for tools.
func WithInvocationContext(ctx context.Context, meta InvocationContext) context.Context {
	return context.WithValue(ctx, invocationContextKey{}, meta)
}

// InvocationFromContext reads invocation metadata from context.
func InvocationFromContext(ctx context.Context) InvocationContext {
	v := ctx.Value(invocationContextKey{})
	meta, ok := v.(InvocationContext)
	if !ok {
		return InvocationContext{}
	}
	meta.RunID = strings.TrimSpace(meta.RunID)
	return meta
}
