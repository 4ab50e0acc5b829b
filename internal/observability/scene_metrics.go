package observability

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricSceneFrames    = "timewarp.scene.frames.total"
	metricSceneFallbacks = "timewarp.scene.fallbacks.total"
	metricSceneReframes  = "timewarp.scene.reframes.total"
	metricSceneShown     = "timewarp.scene.files.shown"

	attrColorMode = "scene.color_mode"

	unitFrame = "{frame}"
)

// shownBucketBoundaries spans an empty frame up to a very large monorepo.
var shownBucketBoundaries = []float64{0, 1, 10, 50, 100, 500, 1000, 5000, 20000}

// FrameStats is what the viewer reports after assembling one frame.
type FrameStats struct {
	ColorMode    string
	Shown        int
	UsedFallback bool
	Reframed     bool
}

// SceneMetrics counts assembled frames, hotspot fallbacks and camera
// reframes, and records how many files each frame shows.
type SceneMetrics struct {
	frames    metric.Int64Counter
	fallbacks metric.Int64Counter
	reframes  metric.Int64Counter
	shown     metric.Float64Histogram
}

// NewSceneMetrics creates the scene instruments from mt.
func NewSceneMetrics(mt metric.Meter) (*SceneMetrics, error) {
	frames, framesErr := mt.Int64Counter(metricSceneFrames,
		metric.WithDescription("Frames assembled"), metric.WithUnit(unitFrame))
	fallbacks, fallbacksErr := mt.Int64Counter(metricSceneFallbacks,
		metric.WithDescription("Frames that fell back to the hottest files"), metric.WithUnit(unitFrame))
	reframes, reframesErr := mt.Int64Counter(metricSceneReframes,
		metric.WithDescription("Camera reframes"), metric.WithUnit(unitFrame))
	shown, shownErr := mt.Float64Histogram(metricSceneShown,
		metric.WithDescription("Files shown per frame"),
		metric.WithUnit("{file}"),
		metric.WithExplicitBucketBoundaries(shownBucketBoundaries...))

	err := errors.Join(
		instrumentErr(metricSceneFrames, framesErr),
		instrumentErr(metricSceneFallbacks, fallbacksErr),
		instrumentErr(metricSceneReframes, reframesErr),
		instrumentErr(metricSceneShown, shownErr),
	)
	if err != nil {
		return nil, err
	}

	return &SceneMetrics{frames: frames, fallbacks: fallbacks, reframes: reframes, shown: shown}, nil
}

// RecordFrame records one assembled frame. A nil receiver is a no-op.
func (sm *SceneMetrics) RecordFrame(ctx context.Context, stats FrameStats) {
	if sm == nil {
		return
	}

	attrs := metric.WithAttributes(attribute.String(attrColorMode, stats.ColorMode))

	sm.frames.Add(ctx, 1, attrs)
	sm.shown.Record(ctx, float64(stats.Shown), attrs)

	if stats.UsedFallback {
		sm.fallbacks.Add(ctx, 1, attrs)
	}

	if stats.Reframed {
		sm.reframes.Add(ctx, 1)
	}
}

// instrumentErr names the instrument a meter refused to create.
func instrumentErr(name string, err error) error {
	if err == nil {
		return nil
	}

	return fmt.Errorf("create %s: %w", name, err)
}
