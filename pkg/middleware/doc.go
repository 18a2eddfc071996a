// Package middleware wraps the server's live event handler with
// cross-cutting concerns.
//
// This package includes:
//   - OpenTelemetry tracing: one span per handled event
//   - Prometheus metrics: event counts and durations, open sockets,
//     CSRF rejections and remote-exec broadcasts
//
// Middleware compose with Chain; the first middleware is the outermost:
//
//	metrics := middleware.NewMetrics(middleware.WithNamespace("livehooks"))
//	h := middleware.Chain(handle,
//	    middleware.OpenTelemetry(),
//	    metrics.Middleware(),
//	)
//
// The tracer comes from the global OpenTelemetry provider; configure it
// with otel.SetTracerProvider before starting the server.
package middleware
