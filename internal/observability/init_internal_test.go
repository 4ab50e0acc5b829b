package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// renderDecision asks the sampler chosen for cfg whether a root
// viewer.render span would be recorded.
func renderDecision(t *testing.T, cfg Config) sdktrace.SamplingDecision {
	t.Helper()

	traceID, err := trace.TraceIDFromHex("0af7651916cd43dd8448eb211c80319c")
	require.NoError(t, err)

	result := selectSampler(cfg).ShouldSample(sdktrace.SamplingParameters{
		ParentContext: context.Background(),
		TraceID:       traceID,
		Name:          "timewarp.viewer.render",
		Kind:          trace.SpanKindInternal,
	})

	return result.Decision
}

func TestBuildResource_CarriesModeAndVersion(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Mode = ModeMCP
	cfg.ServiceVersion = "1.2.3"
	cfg.Environment = "staging"

	res, err := buildResource(cfg)
	require.NoError(t, err)

	values := map[string]string{}
	for _, attr := range res.Attributes() {
		values[string(attr.Key)] = attr.Value.Emit()
	}

	assert.Equal(t, "mcp", values["app.mode"])
	assert.Equal(t, "timewarp", values["service.name"])
	assert.Equal(t, "1.2.3", values["service.version"])
	assert.Equal(t, "staging", values["deployment.environment"])
}

func TestBuildResource_OmitsUnsetVersion(t *testing.T) {
	t.Parallel()

	res, err := buildResource(Config{ServiceName: "timewarp-render"})
	require.NoError(t, err)

	values := map[string]string{}
	for _, attr := range res.Attributes() {
		values[string(attr.Key)] = attr.Value.Emit()
	}

	assert.Equal(t, "timewarp-render", values["service.name"])
	assert.NotContains(t, values, "service.version")
	assert.NotContains(t, values, "app.mode")
}

func TestSelectSampler_FromEnvironment(t *testing.T) {
	tests := []struct {
		sampler string
		arg     string
		want    sdktrace.SamplingDecision
	}{
		{samplerAlwaysOn, "", sdktrace.RecordAndSample},
		{samplerAlwaysOff, "", sdktrace.Drop},
		{samplerTraceIDRatio, "1.0", sdktrace.RecordAndSample},
		{samplerTraceIDRatio, "0", sdktrace.Drop},
		{samplerParentBasedAlwaysOff, "", sdktrace.Drop},
		{samplerParentBasedTraceIDRatio, "1", sdktrace.RecordAndSample},
		{samplerParentBasedAlwaysOn, "", sdktrace.RecordAndSample},
		{"unknown_sampler", "", sdktrace.RecordAndSample},
	}

	for _, tt := range tests {
		t.Run(tt.sampler+"/"+tt.arg, func(t *testing.T) {
			t.Setenv(envTracesSampler, tt.sampler)
			t.Setenv(envTracesSamplerArg, tt.arg)

			assert.Equal(t, tt.want, renderDecision(t, DefaultConfig()))
		})
	}
}

func TestSelectSampler_DebugTraceOverridesEnvironment(t *testing.T) {
	t.Setenv(envTracesSampler, samplerAlwaysOff)

	cfg := DefaultConfig()
	cfg.DebugTrace = true

	assert.Equal(t, sdktrace.RecordAndSample, renderDecision(t, cfg))
}

func TestSelectSampler_DefaultSamplesEverything(t *testing.T) {
	t.Parallel()

	assert.Equal(t, sdktrace.RecordAndSample, renderDecision(t, DefaultConfig()))
}

func TestParseRatio_FallsBackToOne(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 0.25, parseRatio("0.25"), 1e-9)
	assert.InDelta(t, 1.0, parseRatio("half"), 1e-9)
}
