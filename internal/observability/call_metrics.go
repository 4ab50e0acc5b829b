package observability

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricCallsTotal    = "timewarp.calls.total"
	metricCallDuration  = "timewarp.call.duration.seconds"
	metricCallFailures  = "timewarp.call.failures.total"
	metricCallsInFlight = "timewarp.calls.active"

	attrOp      = "op"
	attrOutcome = "outcome"

	outcomeOK     = "ok"
	outcomeFailed = "failed"

	unitCall = "{call}"
)

// callBucketBoundaries covers a local MCP tool call up to a retried snapshot fetch.
var callBucketBoundaries = []float64{0.001, 0.005, 0.025, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}

// CallMetrics records snapshot-service fetches and MCP tool calls. Op names
// are span-style identifiers such as "api.diff" or "mcp.timewarp_frame".
type CallMetrics struct {
	calls    metric.Int64Counter
	duration metric.Float64Histogram
	failures metric.Int64Counter
	active   metric.Int64UpDownCounter
}

// NewCallMetrics creates the call instruments from mt.
func NewCallMetrics(mt metric.Meter) (*CallMetrics, error) {
	calls, callsErr := mt.Int64Counter(metricCallsTotal,
		metric.WithDescription("Completed calls by outcome"), metric.WithUnit(unitCall))
	duration, durationErr := mt.Float64Histogram(metricCallDuration,
		metric.WithDescription("Call latency including retries"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(callBucketBoundaries...))
	failures, failuresErr := mt.Int64Counter(metricCallFailures,
		metric.WithDescription("Calls that returned an error"), metric.WithUnit(unitCall))
	active, activeErr := mt.Int64UpDownCounter(metricCallsInFlight,
		metric.WithDescription("Calls currently running"), metric.WithUnit(unitCall))

	err := errors.Join(
		instrumentErr(metricCallsTotal, callsErr),
		instrumentErr(metricCallDuration, durationErr),
		instrumentErr(metricCallFailures, failuresErr),
		instrumentErr(metricCallsInFlight, activeErr),
	)
	if err != nil {
		return nil, err
	}

	return &CallMetrics{calls: calls, duration: duration, failures: failures, active: active}, nil
}

// Start marks a call to op as running and returns the function that ends it.
// Passing true to that function counts the call as failed. A nil receiver
// returns a function that does nothing.
func (cm *CallMetrics) Start(ctx context.Context, op string) func(failed bool) {
	if cm == nil {
		return func(bool) {}
	}

	start := time.Now()
	opAttr := attribute.String(attrOp, op)

	cm.active.Add(ctx, 1, metric.WithAttributes(opAttr))

	return func(failed bool) {
		cm.active.Add(ctx, -1, metric.WithAttributes(opAttr))

		outcome := outcomeOK
		if failed {
			outcome = outcomeFailed

			cm.failures.Add(ctx, 1, metric.WithAttributes(opAttr))
		}

		attrs := metric.WithAttributes(opAttr, attribute.String(attrOutcome, outcome))

		cm.calls.Add(ctx, 1, attrs)
		cm.duration.Record(ctx, time.Since(start).Seconds(), attrs)
	}
}
