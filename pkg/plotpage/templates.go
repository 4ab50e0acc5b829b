package plotpage

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"sync"

	"github.com/Sumatoshi-tech/timewarp/pkg/viewer"
)

//go:embed templates/*.html
var templateFS embed.FS

var (
	templates     *template.Template
	templatesOnce sync.Once
	errTemplates  error
)

// getTemplates returns the parsed templates, loading them once.
func getTemplates() (*template.Template, error) {
	templatesOnce.Do(func() {
		var parseErr error

		templates, parseErr = template.New("").ParseFS(templateFS, "templates/*.html")
		if parseErr != nil {
			errTemplates = fmt.Errorf("parsing templates: %w", parseErr)
		}
	})

	return templates, errTemplates
}

// renderTemplate renders a named template with the given data.
func renderTemplate(name string, data any) ([]byte, error) {
	tmpl, err := getTemplates()
	if err != nil {
		return nil, fmt.Errorf("loading templates: %w", err)
	}

	var buf bytes.Buffer

	err = tmpl.ExecuteTemplate(&buf, name, data)
	if err != nil {
		return nil, fmt.Errorf("executing template %s: %w", name, err)
	}

	return buf.Bytes(), nil
}

// pageData holds data for the page template.
type pageData struct {
	Title  string
	Dark   bool
	Theme  ThemeConfig
	Assets []string
	Status viewer.Status
	Legend []LegendEntry
	Chart  template.HTML
}
