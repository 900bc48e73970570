package tracing

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"kadrisk/internal/constants"
)

// GinMiddleware starts a server span per ops request.
func GinMiddleware(serviceName string) gin.HandlerFunc {
	return otelgin.Middleware(serviceName)
}

// StartSiteSpan opens a client span for one outbound attempt against the
// court site. kind is the logical request kind (search, card, acts, pdf).
func StartSiteSpan(ctx context.Context, kind string, req *http.Request) (context.Context, trace.Span) {
	return GetTracer(constants.ServiceName+"-site").Start(ctx, "kad."+kind,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("kad.kind", kind),
			attribute.String("http.request.method", req.Method),
			attribute.String("url.path", req.URL.Path),
			attribute.String("server.address", req.URL.Host),
		),
	)
}

// SetHTTPStatus records the response status on span.
func SetHTTPStatus(span trace.Span, status int) {
	span.SetAttributes(attribute.Int("http.response.status_code", status))
}
