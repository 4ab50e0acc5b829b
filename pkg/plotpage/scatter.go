package plotpage

import (
	"fmt"
	"io"
	"math"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/Sumatoshi-tech/timewarp/pkg/scene"
	"github.com/Sumatoshi-tech/timewarp/pkg/viewer"
)

// Series names double as legend labels.
const (
	SeriesLowChurn  = "Low churn"
	SeriesHighChurn = "High churn (larger cubes)"
	SeriesHotspot   = "Hotspot ≥ τ"
)

const (
	// symbolPixelsPerUnit scales a cube edge (1.6 to 3.2 scene units) to a
	// point size in pixels.
	symbolPixelsPerUnit = 5

	// highChurnFactor splits the churn series.
	highChurnFactor = 0.5

	chartWidth  = "100%"
	chartHeight = "640px"
)

// symbolSizeFunc sizes each point by the cube edge carried in value[6].
const symbolSizeFunc = `function (v) { return v[6]; }`

// LegendEntry is one swatch of the legend strip.
type LegendEntry struct {
	Label string
	Color string
}

// DefaultLegend returns the fixed legend shown under the chart.
func DefaultLegend() []LegendEntry {
	return []LegendEntry{
		{Label: SeriesLowChurn, Color: scene.ChurnCold.String()},
		{Label: SeriesHighChurn, Color: scene.ChurnHot.String()},
		{Label: SeriesHotspot, Color: scene.Accent.String()},
	}
}

// BuildScatter turns a frame into a 3D scatter chart. Points use their world
// positions, so the chart shows the frame's current rotation. Each point keeps
// its classified color; series only group points for the legend.
func BuildScatter(frame scene.Frame, theme Theme) *charts.Scatter3D {
	co := NewChartOpts(theme)
	chart := charts.NewScatter3D()

	chart.SetGlobalOptions(
		charts.WithInitializationOpts(co.Init("TimeWarp "+frame.CommitID, chartWidth, chartHeight)),
		charts.WithTitleOpts(co.Title(frame.CommitID, fmt.Sprintf("color: %s", frame.ColorMode))),
		charts.WithTooltipOpts(co.Tooltip()),
		charts.WithLegendOpts(co.Legend()),
		charts.WithXAxis3DOpts(co.XAxis3D()),
		charts.WithYAxis3DOpts(co.YAxis3D()),
		charts.WithZAxis3DOpts(co.ZAxis3D()),
	)

	var low, high, hot []opts.Chart3DData

	for i := range frame.Items {
		item := frame.Items[i]
		point := scatterPoint(item, frame.WorldPosition(i))

		switch {
		case item.Emissive != nil:
			hot = append(hot, point)
		case item.ChurnFactor >= highChurnFactor:
			high = append(high, point)
		default:
			low = append(low, point)
		}
	}

	chart.AddSeries(SeriesLowChurn, low, withPointSizes())
	chart.AddSeries(SeriesHighChurn, high, withPointSizes())
	chart.AddSeries(SeriesHotspot, hot, withPointSizes())

	return chart
}

// RenderFrame writes frame as a complete HTML page framed by status.
func RenderFrame(w io.Writer, frame scene.Frame, status viewer.Status, theme Theme) error {
	page := NewPage("TimeWarp", status).
		WithTheme(theme).
		WithChart(BuildScatter(frame, theme))

	return page.Render(w)
}

func scatterPoint(item scene.PositionedFile, world scene.Vec3) opts.Chart3DData {
	return opts.Chart3DData{
		Name: item.Record.Path,
		Value: []any{
			world.X, world.Y, world.Z,
			item.Record.Path, item.Record.Churn, item.Record.HotspotScore,
			SymbolPixels(item),
		},
		ItemStyle: &opts.ItemStyle{Color: item.Color.String()},
	}
}

// SymbolPixels is the point size of item, proportional to its cube edge.
func SymbolPixels(item scene.PositionedFile) int {
	return int(math.Round(item.Size.X * symbolPixelsPerUnit))
}

func withPointSizes() charts.SeriesOpts {
	return func(s *charts.SingleSeries) {
		s.SymbolSize = opts.FuncOpts(symbolSizeFunc)
	}
}
