package scene

import "math"

// Camera fitting constants.
const (
	// FitMargin is added to the fitted distance so edge items are not clipped.
	FitMargin = 5.0

	// DefaultFOV is the vertical field of view in degrees.
	DefaultFOV = 70.0

	maxFOV        = 180.0
	minNear       = 0.1
	clipPlaneSpan = 100.0
	degToRad      = math.Pi / 180
)

// CameraPose places the camera on +Z looking back at Target.
type CameraPose struct {
	Position    Vec3    `json:"position"     yaml:"position"`
	Target      Vec3    `json:"target"       yaml:"target"`
	Near        float64 `json:"near"         yaml:"near"`
	Far         float64 `json:"far"          yaml:"far"`
	FitDistance float64 `json:"fit_distance" yaml:"fit_distance"`
	FOV         float64 `json:"fov"          yaml:"fov"`
}

// Bounds is an axis-aligned bounding box.
type Bounds struct {
	Min Vec3
	Max Vec3
}

// Center returns the midpoint of the box.
func (b Bounds) Center() Vec3 { return b.Min.Add(b.Max).Scale(0.5) }

// Size returns the extents of the box.
func (b Bounds) Size() Vec3 { return b.Max.Sub(b.Min) }

// BoundsOf computes the bounding box of points. An empty input yields a
// degenerate box at the origin.
func BoundsOf(points []Vec3) Bounds {
	if len(points) == 0 {
		return Bounds{}
	}

	b := Bounds{Min: points[0], Max: points[0]}

	for _, p := range points[1:] {
		b.Min = Vec3{math.Min(b.Min.X, p.X), math.Min(b.Min.Y, p.Y), math.Min(b.Min.Z, p.Z)}
		b.Max = Vec3{math.Max(b.Max.X, p.X), math.Max(b.Max.Y, p.Y), math.Max(b.Max.Z, p.Z)}
	}

	return b
}

// FrameCamera fits a camera around points for a vertical field of view given
// in degrees. The camera sits on the +Z axis of the box center at
// maxDim / (2*tan(fov/2)) + FitMargin. A fov outside (0, 180), NaN included,
// is replaced by DefaultFOV.
func FrameCamera(points []Vec3, fovDegrees float64) CameraPose {
	if !(fovDegrees > 0 && fovDegrees < maxFOV) {
		fovDegrees = DefaultFOV
	}

	box := BoundsOf(points)
	center := box.Center()
	maxDim := box.Size().MaxComponent()

	halfFOV := fovDegrees * degToRad / 2
	fit := maxDim/(2*math.Tan(halfFOV)) + FitMargin

	return CameraPose{
		Position:    center.Add(Vec3{Z: fit}),
		Target:      center,
		Near:        math.Max(minNear, fit/clipPlaneSpan),
		Far:         fit * clipPlaneSpan,
		FitDistance: fit,
		FOV:         fovDegrees,
	}
}

// Contains reports whether p is inside the pose's view frustum for the given
// aspect ratio (width / height). A small tolerance absorbs rounding on the
// frustum walls.
func (c CameraPose) Contains(p Vec3, aspect float64) bool {
	const eps = 1e-9

	// Distance along the view direction (-Z) from the camera.
	depth := c.Position.Z - p.Z
	if depth < c.Near-eps || depth > c.Far+eps {
		return false
	}

	halfHeight := depth * math.Tan(c.FOV*degToRad/2)
	halfWidth := halfHeight * aspect

	return math.Abs(p.Y-c.Position.Y) <= halfHeight+eps &&
		math.Abs(p.X-c.Position.X) <= halfWidth+eps
}
