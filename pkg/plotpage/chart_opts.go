package plotpage

import (
	"github.com/go-echarts/go-echarts/v2/opts"
)

// ChartOpts provides themed chart options based on the current theme.
type ChartOpts struct {
	theme ThemeConfig
}

// NewChartOpts creates a new ChartOpts with the given theme.
func NewChartOpts(theme Theme) *ChartOpts {
	return &ChartOpts{theme: GetThemeConfig(theme)}
}

// Init returns initialization options with themed background.
func (c *ChartOpts) Init(pageTitle, width, height string) opts.Initialization {
	return opts.Initialization{
		PageTitle:       pageTitle,
		Width:           width,
		Height:          height,
		BackgroundColor: c.theme.ChartBackground,
	}
}

// Title returns title options with themed text colors.
func (c *ChartOpts) Title(title, subtitle string) opts.Title {
	return opts.Title{
		Title:         title,
		Subtitle:      subtitle,
		Left:          "center",
		TitleStyle:    &opts.TextStyle{Color: c.theme.ChartText},
		SubtitleStyle: &opts.TextStyle{Color: c.theme.ChartTextMuted},
	}
}

// Legend returns legend options with themed text color.
func (c *ChartOpts) Legend() opts.Legend {
	return opts.Legend{
		Show:      opts.Bool(true),
		Top:       "bottom",
		Left:      "center",
		TextStyle: &opts.TextStyle{Color: c.theme.ChartTextMuted},
	}
}

// Tooltip returns tooltip options. The formatter reads the path and the
// scores carried after the coordinates of each point.
func (c *ChartOpts) Tooltip() opts.Tooltip {
	return opts.Tooltip{
		Show:      opts.Bool(true),
		Trigger:   "item",
		Formatter: opts.FuncOpts(tooltipFormatter),
	}
}

// XAxis3D returns the horizontal axis options. Scene coordinates carry no
// units, so axis names stay blank.
func (c *ChartOpts) XAxis3D() opts.XAxis3D { return opts.XAxis3D{Name: " "} }

// YAxis3D returns the vertical axis options.
func (c *ChartOpts) YAxis3D() opts.YAxis3D { return opts.YAxis3D{Name: " "} }

// ZAxis3D returns the depth axis options.
func (c *ChartOpts) ZAxis3D() opts.ZAxis3D { return opts.ZAxis3D{Name: " "} }

const tooltipFormatter = `function (p) {
  var v = p.value;
  return v[3] + '<br/>churn: ' + v[4] + '<br/>hotspot: ' + Number(v[5]).toFixed(2);
}`
