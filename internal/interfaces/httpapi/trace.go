package httpapi

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

var (
	tracer     = otel.Tracer("lol-pickem/internal/interfaces/httpapi")
	noopTracer = noop.NewTracerProvider().Tracer("lol-pickem/internal/interfaces/httpapi")
)

// startSpan opens a span for handler entry points and skips plumbing
// helpers so traces stay readable.
func startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	if !shouldCreateHTTPAPISpan(name) {
		return noopTracer.Start(ctx, name)
	}
	return tracer.Start(ctx, name)
}

func shouldCreateHTTPAPISpan(name string) bool {
	return strings.HasPrefix(name, "httpapi.Handler.")
}
