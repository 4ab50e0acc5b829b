package observability

import (
	"context"
	"errors"
	"math"
	runtimemetrics "runtime/metrics"

	"go.opentelemetry.io/otel/metric"
)

const (
	metricGoroutines = "timewarp.runtime.goroutines"
	metricHeapBytes  = "timewarp.runtime.heap.bytes"
	metricGCCycles   = "timewarp.runtime.gc.cycles"

	sampleGoroutines = "/sched/goroutines:goroutines"
	sampleHeapBytes  = "/memory/classes/heap/objects:bytes"
	sampleGCCycles   = "/gc/cycles/total:gc-cycles"
)

// RuntimeMetrics reports goroutine count, live heap and GC cycles from
// runtime/metrics on every collection.
type RuntimeMetrics struct {
	goroutines metric.Int64ObservableGauge
	heapBytes  metric.Int64ObservableGauge
	gcCycles   metric.Int64ObservableCounter
}

// NewRuntimeMetrics registers the runtime instruments on mt.
func NewRuntimeMetrics(mt metric.Meter) (*RuntimeMetrics, error) {
	goroutines, goroutinesErr := mt.Int64ObservableGauge(metricGoroutines,
		metric.WithDescription("Current number of live goroutines"), metric.WithUnit("{goroutine}"))
	heapBytes, heapErr := mt.Int64ObservableGauge(metricHeapBytes,
		metric.WithDescription("Bytes occupied by live and unswept heap objects"), metric.WithUnit("By"))
	gcCycles, gcErr := mt.Int64ObservableCounter(metricGCCycles,
		metric.WithDescription("Completed GC cycles since process start"), metric.WithUnit("{cycle}"))

	err := errors.Join(
		instrumentErr(metricGoroutines, goroutinesErr),
		instrumentErr(metricHeapBytes, heapErr),
		instrumentErr(metricGCCycles, gcErr),
	)
	if err != nil {
		return nil, err
	}

	rm := &RuntimeMetrics{goroutines: goroutines, heapBytes: heapBytes, gcCycles: gcCycles}

	_, err = mt.RegisterCallback(rm.observe, rm.goroutines, rm.heapBytes, rm.gcCycles)
	if err != nil {
		return nil, err
	}

	return rm, nil
}

func (rm *RuntimeMetrics) observe(_ context.Context, obs metric.Observer) error {
	samples := []runtimemetrics.Sample{
		{Name: sampleGoroutines},
		{Name: sampleHeapBytes},
		{Name: sampleGCCycles},
	}

	runtimemetrics.Read(samples)

	for idx := range samples {
		val, ok := sampleInt64Value(samples[idx].Value)
		if !ok {
			continue
		}

		switch samples[idx].Name {
		case sampleGoroutines:
			obs.ObserveInt64(rm.goroutines, val)
		case sampleHeapBytes:
			obs.ObserveInt64(rm.heapBytes, val)
		case sampleGCCycles:
			obs.ObserveInt64(rm.gcCycles, val)
		}
	}

	return nil
}

// sampleInt64Value extracts an int64 from a runtime/metrics value. Metrics
// the running Go version does not know report KindBad and are skipped.
func sampleInt64Value(val runtimemetrics.Value) (int64, bool) {
	switch val.Kind() {
	case runtimemetrics.KindUint64:
		u := val.Uint64()
		if u > uint64(math.MaxInt64) {
			return math.MaxInt64, true
		}

		return int64(u), true
	case runtimemetrics.KindFloat64:
		return int64(val.Float64()), true
	case runtimemetrics.KindBad, runtimemetrics.KindFloat64Histogram:
		return 0, false
	default:
		return 0, false
	}
}
