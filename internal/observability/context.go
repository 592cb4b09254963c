package observability

import (
	"context"

	"go.opentelemetry.io/otel/trace"
)

// DetachTraceContext returns a fresh context carrying the span context of the
// original. The auto-moderator loop runs in its own goroutine for the life
// of an interview; it should keep the session's trace linkage without
// inheriting a per-keystroke cancellation.
func DetachTraceContext(ctx context.Context) context.Context {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return context.Background()
	}
	return trace.ContextWithRemoteSpanContext(context.Background(), sc)
}
