package tracing

import (
	"context"

	log "github.com/sirupsen/logrus"
)

// Scope carries the distributed-trace identifiers propagated with a
// notification. It is threaded explicitly through the per-message
// context and discarded with it, never kept in ambient global state.
type Scope struct {
	TraceID       string
	CorrelationID string
}

type contextKey struct{}

func NewContext(ctx context.Context, scope Scope) context.Context {
	return context.WithValue(ctx, contextKey{}, scope)
}

func FromContext(ctx context.Context) (Scope, bool) {
	scope, ok := ctx.Value(contextKey{}).(Scope)
	return scope, ok
}

// Fields returns the log fields for the scope in ctx, so every log
// entry emitted while a message is in flight carries its identifiers.
func Fields(ctx context.Context) log.Fields {
	scope, ok := FromContext(ctx)
	if !ok {
		return log.Fields{}
	}
	return log.Fields{
		"trace_id":       scope.TraceID,
		"correlation_id": scope.CorrelationID,
	}
}
