package observability_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/Sumatoshi-tech/timewarp/internal/observability"
)

var (
	errSnapshotServiceDown = errors.New("snapshot service unreachable")
	errBadColorMode        = errors.New("unknown color mode")
)

var discardLogger = slog.New(slog.NewTextHandler(bytes.NewBuffer(nil), nil))

// viewerMux mirrors the serve command's routes with trivial handlers.
func viewerMux() *http.ServeMux {
	ok := func(rw http.ResponseWriter, _ *http.Request) { rw.WriteHeader(http.StatusOK) }

	mux := http.NewServeMux()
	mux.HandleFunc("GET /frame.html", ok)
	mux.HandleFunc("GET /api/frame", ok)
	mux.HandleFunc("POST /api/pointer", ok)
	mux.HandleFunc("GET /api/status", func(rw http.ResponseWriter, _ *http.Request) {
		rw.WriteHeader(http.StatusServiceUnavailable)
	})
	mux.HandleFunc("POST /api/reset", func(http.ResponseWriter, *http.Request) {
		panic("session reset on closed source")
	})

	return mux
}

// serveTraced sends one request through the middleware and returns the
// recorder plus the single exported span.
func serveTraced(
	t *testing.T, logger *slog.Logger, method, target string, header http.Header,
) (*httptest.ResponseRecorder, tracetest.SpanStub) {
	t.Helper()

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))

	t.Cleanup(func() { require.NoError(t, tp.Shutdown(context.Background())) })

	mw := observability.HTTPMiddleware(tp.Tracer("test"), logger, viewerMux())

	req := httptest.NewRequest(method, target, http.NoBody)
	for key, values := range header {
		req.Header[key] = values
	}

	rec := httptest.NewRecorder()

	require.NotPanics(t, func() { mw.ServeHTTP(rec, req) })

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)

	return rec, spans[0]
}

func TestHTTPMiddleware_NamesSpanAfterRoute(t *testing.T) {
	t.Parallel()

	tests := []struct {
		method, target, wantName, wantRoute string
	}{
		{http.MethodGet, "/frame.html", "GET /frame.html", "/frame.html"},
		{http.MethodGet, "/api/frame?mode=churn", "GET /api/frame", "/api/frame"},
		{http.MethodPost, "/api/pointer", "POST /api/pointer", "/api/pointer"},
	}

	for _, tt := range tests {
		t.Run(tt.wantName, func(t *testing.T) {
			t.Parallel()

			rec, span := serveTraced(t, discardLogger, tt.method, tt.target, nil)

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tt.wantName, span.Name)
			assertAttribute(t, span.Attributes, "http.route", tt.wantRoute)
		})
	}
}

func TestHTTPMiddleware_UnmatchedPathStaysOutOfSpan(t *testing.T) {
	t.Parallel()

	rec, span := serveTraced(t, discardLogger, http.MethodGet, "/diff/a1/internal/billing/secrets.go", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "GET unmatched", span.Name)

	for _, attr := range span.Attributes {
		assert.NotContains(t, attr.Value.Emit(), "secrets.go", string(attr.Key))
		assert.NotEqual(t, "http.route", string(attr.Key))
	}
}

func TestHTTPMiddleware_ContinuesIncomingTrace(t *testing.T) {
	t.Parallel()

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	parentTraceID := "4bf92f3577b34da6a3ce929d0e0e4736"
	parentSpanID := "00f067aa0ba902b7"

	header := http.Header{}
	header.Set("Traceparent", "00-"+parentTraceID+"-"+parentSpanID+"-01")

	_, span := serveTraced(t, discardLogger, http.MethodGet, "/api/frame", header)

	assert.Equal(t, parentTraceID, span.SpanContext.TraceID().String())
	assert.Equal(t, parentSpanID, span.Parent.SpanID().String())
}

func TestHTTPMiddleware_PanicBecomes500(t *testing.T) {
	t.Parallel()

	rec, span := serveTraced(t, discardLogger, http.MethodPost, "/api/reset", nil)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "POST /api/reset", span.Name)
	assert.Equal(t, codes.Error, span.Status.Code)
	assertAttribute(t, span.Attributes, "error.type", observability.ErrTypePanic)
	assertAttribute(t, span.Attributes, "error.source", observability.ErrSourceServer)

	var stackEvent bool

	for _, event := range span.Events {
		if event.Name == "panic.stack" {
			stackEvent = true
		}
	}

	assert.True(t, stackEvent, "panic.stack event missing")
}

func TestHTTPMiddleware_ServerErrorMarksSpan(t *testing.T) {
	t.Parallel()

	rec, span := serveTraced(t, discardLogger, http.MethodGet, "/api/status", nil)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, codes.Error, span.Status.Code)
	assert.Equal(t, http.StatusText(http.StatusServiceUnavailable), span.Status.Description)
}

func TestHTTPMiddleware_WritesAccessLog(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	logger := slog.New(slog.NewTextHandler(&buf, nil))

	serveTraced(t, logger, http.MethodPost, "/api/pointer", nil)

	out := buf.String()
	assert.Contains(t, out, "msg=http.request")
	assert.Contains(t, out, "method=POST")
	assert.Contains(t, out, "path=/api/pointer")
	assert.Contains(t, out, "status=200")
	assert.Contains(t, out, "duration_ms=")
}

func TestRecordSpanError_ClassifiesSnapshotFailure(t *testing.T) {
	t.Parallel()

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))

	t.Cleanup(func() { require.NoError(t, tp.Shutdown(context.Background())) })

	_, span := tp.Tracer("test").Start(context.Background(), "timewarp.viewer.load")

	observability.RecordSpanError(span, errSnapshotServiceDown,
		observability.ErrTypeDependencyUnavailable, observability.ErrSourceDependency)
	span.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)

	assert.Equal(t, codes.Error, spans[0].Status.Code)
	assert.Equal(t, "snapshot service unreachable", spans[0].Status.Description)
	assertAttribute(t, spans[0].Attributes, "error.type", observability.ErrTypeDependencyUnavailable)
	assertAttribute(t, spans[0].Attributes, "error.source", observability.ErrSourceDependency)
}

func TestRecordSpanError_EmptySourceLeavesItUnset(t *testing.T) {
	t.Parallel()

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))

	t.Cleanup(func() { require.NoError(t, tp.Shutdown(context.Background())) })

	_, span := tp.Tracer("test").Start(context.Background(), "mcp.timewarp_frame")

	observability.RecordSpanError(span, errBadColorMode, observability.ErrTypeValidation, "")
	span.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)

	assertAttribute(t, spans[0].Attributes, "error.type", observability.ErrTypeValidation)

	for _, attr := range spans[0].Attributes {
		assert.NotEqual(t, "error.source", string(attr.Key))
	}
}

func assertAttribute(t *testing.T, attrs []attribute.KeyValue, key, wantValue string) {
	t.Helper()

	for _, attr := range attrs {
		if string(attr.Key) == key {
			assert.Equal(t, wantValue, attr.Value.Emit())

			return
		}
	}

	t.Errorf("attribute %q not found", key)
}
