package plotpage_test

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/timewarp/pkg/plotpage"
	"github.com/Sumatoshi-tech/timewarp/pkg/scene"
	"github.com/Sumatoshi-tech/timewarp/pkg/viewer"
)

var errChartBroken = errors.New("chart broken")

type failingChart struct{}

func (failingChart) Render(io.Writer) error { return errChartBroken }

type fragmentChart struct{ html string }

func (f fragmentChart) Render(w io.Writer) error {
	_, err := io.WriteString(w, f.html)

	return err
}

func testFrame() scene.Frame {
	snap := &scene.Snapshot{
		CommitID: "c1a2b3c4d5",
		Files: []scene.FileRecord{
			{Path: "main.go", Churn: 1, HotspotScore: 0.1},
			{Path: "pkg/scene/layout.go", Churn: 10, HotspotScore: 0.2},
			{Path: "pkg/hot.go", Churn: 2, HotspotScore: 0.9},
		},
	}

	return scene.NewAssembler(scene.AssemblerOptions{}).Update(snap, scene.ViewState{
		Threshold: 0.5,
		ColorMode: scene.ColorByChurn,
	})
}

func TestRenderFrame_Page(t *testing.T) {
	t.Parallel()

	status := viewer.Status{
		Position: "1 / 3",
		Commit:   "2023-11-14 22:13:20 • c1a2b3c — initial import",
		Summary:  "Showing 3 / 3 files • τ=0.50",
		Banner:   "No files met hotspot threshold 0.5. Showing top hottest files.",
		Directories: []string{
			"pkg", "pkg/scene",
		},
	}

	var buf bytes.Buffer

	require.NoError(t, plotpage.RenderFrame(&buf, testFrame(), status, plotpage.ThemeDark))

	html := buf.String()

	assert.Contains(t, html, `class="dark"`)
	assert.Contains(t, html, "echarts-gl.min.js")
	assert.Contains(t, html, "1 / 3")
	assert.Contains(t, html, "Showing 3 / 3 files")
	assert.Contains(t, html, "No files met hotspot threshold 0.5.")
	assert.Contains(t, html, `class="echart-box"`)
	assert.Contains(t, html, "pkg/hot.go")
	assert.Contains(t, html, "pkg/scene")
	assert.NotContains(t, html, `class="tw-overlay"`)

	for _, entry := range plotpage.DefaultLegend() {
		assert.Contains(t, html, entry.Color)
	}
}

func TestRenderFrame_OverlayAndError(t *testing.T) {
	t.Parallel()

	status := viewer.Status{
		Position: "3 / 3",
		Summary:  "Showing 0 / 0 files • τ=0.50",
		Overlay:  "No files to display",
		Error:    "Failed to fetch snapshot",
	}

	var buf bytes.Buffer

	require.NoError(t, plotpage.RenderFrame(&buf, scene.Frame{Empty: true}, status, plotpage.ThemeLight))

	html := buf.String()

	assert.NotContains(t, html, `class="dark"`)
	assert.Contains(t, html, `class="tw-overlay"`)
	assert.Contains(t, html, "No files to display")
	assert.Contains(t, html, "Failed to fetch snapshot")
	assert.NotContains(t, html, `class="tw-banner"`)
}

func TestPageRender_EscapesStatus(t *testing.T) {
	t.Parallel()

	page := plotpage.NewPage("TimeWarp", viewer.Status{Commit: "<script>alert(1)</script>"})

	var buf bytes.Buffer

	require.NoError(t, page.Render(&buf))

	assert.NotContains(t, buf.String(), "<script>alert(1)</script>")
	assert.Contains(t, buf.String(), "&lt;script&gt;")
}

func TestPageRender_ChartError(t *testing.T) {
	t.Parallel()

	page := plotpage.NewPage("TimeWarp", viewer.Status{}).WithChart(failingChart{})

	err := page.Render(io.Discard)
	require.ErrorIs(t, err, errChartBroken)
}

func TestPageRender_FragmentPassesThrough(t *testing.T) {
	t.Parallel()

	page := plotpage.NewPage("TimeWarp", viewer.Status{}).
		WithChart(fragmentChart{html: `<div id="frag">x</div>`})

	var buf bytes.Buffer

	require.NoError(t, page.Render(&buf))
	assert.Contains(t, buf.String(), `<div id="frag">x</div>`)
}

func TestBuildScatter_GroupsSeries(t *testing.T) {
	t.Parallel()

	chart := plotpage.BuildScatter(testFrame(), plotpage.ThemeDark)
	require.Len(t, chart.MultiSeries, 3)

	points := map[string][]opts.Chart3DData{}

	for _, s := range chart.MultiSeries {
		data, ok := s.Data.([]opts.Chart3DData)
		require.True(t, ok)

		points[s.Name] = data
	}

	require.Len(t, points[plotpage.SeriesLowChurn], 1)
	require.Len(t, points[plotpage.SeriesHighChurn], 1)
	require.Len(t, points[plotpage.SeriesHotspot], 1)

	assert.Equal(t, "main.go", points[plotpage.SeriesLowChurn][0].Name)
	assert.Equal(t, "pkg/scene/layout.go", points[plotpage.SeriesHighChurn][0].Name)
	assert.Equal(t, "pkg/hot.go", points[plotpage.SeriesHotspot][0].Name)

	hot := points[plotpage.SeriesHotspot][0]
	require.Len(t, hot.Value, 7)
	assert.Equal(t, "pkg/hot.go", hot.Value[3])
}

func TestBuildScatter_PointSizeFollowsChurn(t *testing.T) {
	t.Parallel()

	frame := testFrame()
	chart := plotpage.BuildScatter(frame, plotpage.ThemeDark)

	sizes := map[string]any{}

	for _, s := range chart.MultiSeries {
		assert.Contains(t, fmt.Sprint(s.SymbolSize), "v[6]")

		for _, point := range s.Data.([]opts.Chart3DData) {
			sizes[point.Name] = point.Value[6]
		}
	}

	// Edges are 1.6 + churnFactor*1.6 scene units, churn max 10.
	assert.Equal(t, 9, sizes["main.go"])
	assert.Equal(t, 16, sizes["pkg/scene/layout.go"])
	assert.Equal(t, 10, sizes["pkg/hot.go"])

	for _, item := range frame.Items {
		assert.Equal(t, plotpage.SymbolPixels(item), sizes[item.Record.Path])
	}
}

func TestParseTheme(t *testing.T) {
	t.Parallel()

	assert.Equal(t, plotpage.ThemeLight, plotpage.ParseTheme("light"))
	assert.Equal(t, plotpage.ThemeDark, plotpage.ParseTheme("dark"))
	assert.Equal(t, plotpage.ThemeDark, plotpage.ParseTheme(""))
}
