package scene_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Sumatoshi-tech/timewarp/pkg/scene"
)

func cubeCorners(half float64) []scene.Vec3 {
	out := make([]scene.Vec3, 0, 8)

	for _, x := range []float64{-half, half} {
		for _, y := range []float64{-half, half} {
			for _, z := range []float64{-half, half} {
				out = append(out, scene.Vec3{X: x, Y: y, Z: z})
			}
		}
	}

	return out
}

func TestFrameCamera_Cube(t *testing.T) {
	t.Parallel()

	pose := scene.FrameCamera(cubeCorners(5), 70)
	wantFit := 10/(2*math.Tan(35*math.Pi/180)) + 5

	assert.InDelta(t, wantFit, pose.FitDistance, 1e-9)
	assert.InDelta(t, 12.14, pose.FitDistance, 0.01)
	assert.Equal(t, scene.Vec3{}, pose.Target)
	assert.InDelta(t, wantFit, pose.Position.Z, 1e-9)
	assert.InDelta(t, wantFit/100, pose.Near, 1e-12)
	assert.InDelta(t, wantFit*100, pose.Far, 1e-9)
	assert.InDelta(t, 70.0, pose.FOV, 0)
}

func TestFrameCamera_ContainsAllPoints(t *testing.T) {
	t.Parallel()

	points := scene.Positions(scene.Layout(sampleFiles()))
	points = append(points, cubeCorners(5)...)

	for _, fov := range []float64{30, 70, 120} {
		pose := scene.FrameCamera(points, fov)

		for _, p := range points {
			assert.True(t, pose.Contains(p, 1), "fov %v point %+v", fov, p)
		}
	}
}

func TestFrameCamera_OffCenterBox(t *testing.T) {
	t.Parallel()

	points := []scene.Vec3{{X: 10, Y: 20, Z: -4}, {X: 30, Y: 22, Z: 6}}
	pose := scene.FrameCamera(points, 70)

	assert.Equal(t, scene.Vec3{X: 20, Y: 21, Z: 1}, pose.Target)
	assert.InDelta(t, pose.Target.X, pose.Position.X, 0)
	assert.InDelta(t, pose.Target.Y, pose.Position.Y, 0)
	assert.InDelta(t, 1+pose.FitDistance, pose.Position.Z, 1e-12)
}

func TestFrameCamera_Empty(t *testing.T) {
	t.Parallel()

	pose := scene.FrameCamera(nil, 70)

	assert.Equal(t, scene.Vec3{}, pose.Target)
	assert.InDelta(t, scene.FitMargin, pose.FitDistance, 0)
	assert.InDelta(t, 0.1, pose.Near, 0)
	assert.InDelta(t, 500.0, pose.Far, 0)
}

func TestFrameCamera_NearFloor(t *testing.T) {
	t.Parallel()

	pose := scene.FrameCamera([]scene.Vec3{{X: 1, Y: 1, Z: 1}}, 70)

	assert.InDelta(t, 0.1, pose.Near, 0)
	assert.Less(t, pose.Near, pose.Far)
}

func TestCameraPose_ContainsRejectsOutside(t *testing.T) {
	t.Parallel()

	pose := scene.FrameCamera(cubeCorners(5), 70)

	assert.False(t, pose.Contains(scene.Vec3{X: 50}, 1))
	assert.False(t, pose.Contains(scene.Vec3{Z: pose.Position.Z + 1}, 1))
}

func TestBoundsOf(t *testing.T) {
	t.Parallel()

	b := scene.BoundsOf([]scene.Vec3{{X: 1, Y: -2, Z: 3}, {X: -1, Y: 4, Z: 0}})

	assert.Equal(t, scene.Vec3{X: -1, Y: -2, Z: 0}, b.Min)
	assert.Equal(t, scene.Vec3{X: 1, Y: 4, Z: 3}, b.Max)
	assert.Equal(t, scene.Vec3{X: 2, Y: 6, Z: 3}, b.Size())
	assert.InDelta(t, 6.0, b.Size().MaxComponent(), 0)
}

func TestFrameCamera_InvalidFOVUsesDefault(t *testing.T) {
	t.Parallel()

	points := []scene.Vec3{{X: 1}, {X: 2}}
	want := scene.FrameCamera(points, scene.DefaultFOV)

	for _, fov := range []float64{0, -30, 180, 270, math.NaN(), math.Inf(1)} {
		pose := scene.FrameCamera(points, fov)

		assert.Equal(t, want, pose, "fov %v", fov)
		assert.False(t, math.IsInf(pose.FitDistance, 0), "fov %v", fov)
	}
}
