package scene

import (
	"math"

	"github.com/Sumatoshi-tech/timewarp/pkg/jitter"
)

// Spiral and sizing constants.
const (
	spiralTurns       = 6 * math.Pi
	spiralInnerRadius = 4.0
	spiralRadiusSpan  = 18.0
	planarJitterScale = 2.0
	depthJitterScale  = 8.0

	baseSize  = 1.6
	churnSize = 1.6
)

// PositionedFile is a record placed in scene space. Color and Emissive are
// filled by Classify; Layout leaves them zero.
type PositionedFile struct {
	Record      FileRecord `json:"record"             yaml:"record"`
	Position    Vec3       `json:"position"           yaml:"position"`
	Size        Vec3       `json:"size"               yaml:"size"`
	ChurnFactor float64    `json:"churn_factor"       yaml:"churn_factor"`
	Color       RGB        `json:"color"              yaml:"color"`
	Emissive    *RGB       `json:"emissive,omitempty" yaml:"emissive,omitempty"`
}

// Layout places files on a jittered spiral in input order. The i-th file's
// angle and radius grow with i/n, and its jitter depends only on its path.
// Sizes are cubes scaled by churn relative to the largest churn in the set.
func Layout(files []FileRecord) []PositionedFile {
	out := make([]PositionedFile, len(files))
	if len(files) == 0 {
		return out
	}

	n := float64(max(len(files), 1))
	maxChurn := float64(max(MaxChurn(files), 1))

	for i, f := range files {
		t := float64(i) / n
		angle := t * spiralTurns
		radius := spiralInnerRadius + t*spiralRadiusSpan

		churnFactor := math.Min(float64(max(f.Churn, 0))/maxChurn, 1)

		out[i] = PositionedFile{
			Record:      f,
			Position:    spiralPosition(f.Path, angle, radius),
			Size:        Cube(baseSize + churnFactor*churnSize),
			ChurnFactor: churnFactor,
		}
	}

	return out
}

// MaxChurn returns the largest churn in files, or 0 for an empty set.
func MaxChurn(files []FileRecord) int {
	best := 0

	for _, f := range files {
		best = max(best, f.Churn)
	}

	return best
}

// Positions extracts the positions of a layout.
func Positions(items []PositionedFile) []Vec3 {
	out := make([]Vec3, len(items))
	for i, it := range items {
		out[i] = it.Position
	}

	return out
}

func spiralPosition(path string, angle, radius float64) Vec3 {
	jx := jitter.Centered(path + "x")
	jy := jitter.Centered(path + "y")
	jz := jitter.Centered(path + "z")

	return Vec3{
		X: math.Cos(angle)*radius + jx*planarJitterScale,
		Y: math.Sin(angle)*radius + jy*planarJitterScale,
		Z: jz * depthJitterScale,
	}
}
