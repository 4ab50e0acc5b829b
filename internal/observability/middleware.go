package observability

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// Error classification values for the error.type span attribute.
const (
	ErrTypeValidation            = "validation"
	ErrTypeNotFound              = "not_found"
	ErrTypeDependencyUnavailable = "dependency_unavailable"
	ErrTypeInternal              = "internal"
	ErrTypePanic                 = "panic"
)

// Error origin values for the error.source span attribute.
const (
	ErrSourceClient     = "client"
	ErrSourceServer     = "server"
	ErrSourceDependency = "dependency"
)

const (
	httpStatusServerError = 500

	attrErrorType   = "error.type"
	attrErrorSource = "error.source"

	eventPanicStack = "panic.stack"
	attrStack       = "stack"

	msgAccessLog = "http.request"

	routeUnmatched = "unmatched"
)

// statusWriter wraps [http.ResponseWriter] to capture the status code.
type statusWriter struct {
	http.ResponseWriter

	statusCode int
	written    bool
}

// WriteHeader captures the status code before delegating to the wrapped writer.
func (sw *statusWriter) WriteHeader(code int) {
	if !sw.written {
		sw.statusCode = code
		sw.written = true
	}

	sw.ResponseWriter.WriteHeader(code)
}

func (sw *statusWriter) Write(buf []byte) (int, error) {
	if !sw.written {
		sw.statusCode = http.StatusOK
		sw.written = true
	}

	n, err := sw.ResponseWriter.Write(buf)
	if err != nil {
		return n, fmt.Errorf("write response: %w", err)
	}

	return n, nil
}

// RecordSpanError marks span as failed and classifies err. An empty source
// leaves error.source unset.
func RecordSpanError(span trace.Span, err error, errType, source string) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	span.SetAttributes(attribute.String(attrErrorType, errType))

	if source != "" {
		span.SetAttributes(attribute.String(attrErrorSource, source))
	}
}

// HTTPMiddleware creates a server span per request, turns handler panics
// into 500 responses and writes one access log line. When next is a
// [http.ServeMux], the span is named after the matched pattern and carries
// it as http.route; unmatched requests are named "METHOD unmatched" so raw
// paths never reach the span.
func HTTPMiddleware(tracer trace.Tracer, logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, hr *http.Request) {
		start := time.Now()

		parentCtx := otel.GetTextMapPropagator().Extract(hr.Context(), propagation.HeaderCarrier(hr.Header))

		ctx, span := tracer.Start(parentCtx, hr.Method+" "+routeUnmatched,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(semconv.HTTPRequestMethodKey.String(hr.Method)),
		)

		sw := &statusWriter{ResponseWriter: rw}
		routed := hr.WithContext(ctx)

		defer func() {
			if rec := recover(); rec != nil {
				span.AddEvent(eventPanicStack, trace.WithAttributes(
					attribute.String(attrStack, string(debug.Stack())),
				))
				RecordSpanError(span, fmt.Errorf("panic: %v", rec), ErrTypePanic, ErrSourceServer)

				if !sw.written {
					http.Error(sw, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				}

				logger.ErrorContext(ctx, "handler panic", "path", hr.URL.Path, "panic", rec)
			}

			if route := routePath(routed.Pattern); route != "" {
				span.SetName(hr.Method + " " + route)
				span.SetAttributes(semconv.HTTPRoute(route))
			}

			span.SetAttributes(semconv.HTTPResponseStatusCode(sw.statusCode))

			if sw.statusCode >= httpStatusServerError {
				span.SetStatus(codes.Error, http.StatusText(sw.statusCode))
			}

			span.End()

			logger.InfoContext(ctx, msgAccessLog,
				"method", hr.Method,
				"path", hr.URL.Path,
				"status", sw.statusCode,
				"duration_ms", time.Since(start).Milliseconds(),
			)
		}()

		next.ServeHTTP(sw, routed)

		if !sw.written {
			sw.statusCode = http.StatusOK
		}
	})
}

// routePath strips the method and host from a ServeMux pattern such as
// "GET /api/frame", leaving "/api/frame".
func routePath(pattern string) string {
	if _, rest, ok := strings.Cut(pattern, " "); ok {
		pattern = strings.TrimSpace(rest)
	}

	if idx := strings.Index(pattern, "/"); idx > 0 {
		pattern = pattern[idx:]
	}

	return pattern
}
