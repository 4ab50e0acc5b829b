// Package plotpage renders a scene frame as a standalone HTML page with an
// interactive 3D scatter chart.
package plotpage

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"strings"

	"github.com/Sumatoshi-tech/timewarp/pkg/viewer"
)

const styleTagLen = 8 // len("</style>").

// AssetsHost serves the echarts bundles referenced by the page.
const AssetsHost = "https://go-echarts.github.io/go-echarts-assets/assets/"

// Page is one rendered view of the timeline.
type Page struct {
	Title  string
	Theme  Theme
	Status viewer.Status
	Legend []LegendEntry
	Chart  Renderable
}

// NewPage creates a page with the dark theme and the standard legend.
func NewPage(title string, status viewer.Status) *Page {
	return &Page{
		Title:  title,
		Theme:  ThemeDark,
		Status: status,
		Legend: DefaultLegend(),
	}
}

// WithTheme sets the theme for the page.
func (p *Page) WithTheme(theme Theme) *Page {
	p.Theme = theme

	return p
}

// WithChart sets the chart rendered in the page body.
func (p *Page) WithChart(chart Renderable) *Page {
	p.Chart = chart

	return p
}

// Render writes the page as HTML.
func (p *Page) Render(w io.Writer) error {
	chartHTML, err := renderChart(p.Chart)
	if err != nil {
		return err
	}

	html, err := renderTemplate("page.html", pageData{
		Title:  p.Title,
		Dark:   p.Theme != ThemeLight,
		Theme:  GetThemeConfig(p.Theme),
		Assets: []string{AssetsHost + "echarts.min.js", AssetsHost + "echarts-gl.min.js"},
		Status: p.Status,
		Legend: p.Legend,
		Chart:  template.HTML(chartHTML), //nolint:gosec // echarts output is generated, not user input.
	})
	if err != nil {
		return fmt.Errorf("render page: %w", err)
	}

	_, err = w.Write(html)
	if err != nil {
		return fmt.Errorf("writing page: %w", err)
	}

	return nil
}

// Renderable is the interface for chart components.
type Renderable interface {
	Render(w io.Writer) error
}

func renderChart(chart Renderable) (string, error) {
	if chart == nil {
		return "", nil
	}

	var buf bytes.Buffer

	err := chart.Render(&buf)
	if err != nil {
		return "", fmt.Errorf("rendering chart: %w", err)
	}

	return extractChartContent(buf.String()), nil
}

// extractChartContent keeps the chart div and its script from a full echarts
// page. Fragments pass through unchanged.
func extractChartContent(html string) string {
	trimmed := strings.TrimSpace(html)
	if !strings.HasPrefix(trimmed, "<!DOCTYPE") && !strings.HasPrefix(trimmed, "<html") {
		return html
	}

	start := strings.Index(html, `<div class="container">`)
	if start == -1 {
		return html
	}

	end := strings.Index(html, `</body>`)
	if end == -1 {
		return html
	}

	content := html[start:end]
	content = strings.ReplaceAll(content, `class="container"`, `class="echart-box"`)

	return removeStyleTags(content)
}

func removeStyleTags(content string) string {
	for {
		i := strings.Index(content, `<style>`)
		if i == -1 {
			break
		}

		j := strings.Index(content[i:], `</style>`)
		if j == -1 {
			break
		}

		content = content[:i] + content[i+j+styleTagLen:]
	}

	return content
}
