package scene

import (
	"fmt"
	"math"
)

// Vec3 is a point or extent in scene space.
type Vec3 struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
	Z float64 `json:"z" yaml:"z"`
}

// Add returns v + o.
func (v Vec3) Add(o Vec3) Vec3 { return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }

// Sub returns v - o.
func (v Vec3) Sub(o Vec3) Vec3 { return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }

// Scale returns v * s.
func (v Vec3) Scale(s float64) Vec3 { return Vec3{v.X * s, v.Y * s, v.Z * s} }

// MaxComponent returns the largest of the three components.
func (v Vec3) MaxComponent() float64 { return math.Max(v.X, math.Max(v.Y, v.Z)) }

// RotateY rotates v around the Y axis by angle radians (right-handed).
func (v Vec3) RotateY(angle float64) Vec3 {
	sin, cos := math.Sincos(angle)

	return Vec3{
		X: v.X*cos + v.Z*sin,
		Y: v.Y,
		Z: -v.X*sin + v.Z*cos,
	}
}

// Cube returns a Vec3 with all components set to s.
func Cube(s float64) Vec3 { return Vec3{s, s, s} }

// RGB is a linear color with channels in [0, 1].
type RGB struct {
	R float64 `json:"r" yaml:"r"`
	G float64 `json:"g" yaml:"g"`
	B float64 `json:"b" yaml:"b"`
}

const channelMax = 255

// Hex parses "#rrggbb". It panics on malformed input and is meant for
// package-level color constants.
func Hex(s string) RGB {
	var r, g, b uint8

	n, err := fmt.Sscanf(s, "#%02x%02x%02x", &r, &g, &b)
	if err != nil || n != 3 {
		panic(fmt.Sprintf("scene: bad hex color %q", s))
	}

	return RGB{float64(r) / channelMax, float64(g) / channelMax, float64(b) / channelMax}
}

// Lerp blends from a to b by t. It is written as a*(1-t) + b*t so that t=0
// and t=1 reproduce the endpoints exactly.
func Lerp(a, b RGB, t float64) RGB {
	u := 1 - t

	return RGB{
		R: a.R*u + b.R*t,
		G: a.G*u + b.G*t,
		B: a.B*u + b.B*t,
	}
}

// String formats the color as "#rrggbb".
func (c RGB) String() string {
	return fmt.Sprintf("#%02x%02x%02x", toByte(c.R), toByte(c.G), toByte(c.B))
}

func toByte(v float64) uint8 {
	return uint8(math.Round(ClampUnit(v) * channelMax))
}
