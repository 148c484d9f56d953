package service

import (
	"context"

	"engagement/internal/observability"
)

// startCall opens the span of a service method and logs the call.
func startCall(ctx context.Context, service, method string, fields map[string]interface{}) (*observability.Span, context.Context) {
	span, ctx := observability.TraceServiceCall(ctx, service, method)
	observability.GlobalLogger.LogServiceCall(ctx, service, method, fields)
	return span, ctx
}
