package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"gopkg.in/yaml.v3"
)

// Output formats.
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
)

// ErrUnknownFormat is returned for an unsupported --format value.
var ErrUnknownFormat = errors.New("unknown output format")

func parseFormat(name string) (string, error) {
	switch format := strings.ToLower(strings.TrimSpace(name)); format {
	case "", FormatTable:
		return FormatTable, nil
	case FormatJSON, FormatYAML:
		return format, nil
	default:
		return "", fmt.Errorf("%w: %q (want table, json or yaml)", ErrUnknownFormat, name)
	}
}

// writeStructured encodes value as JSON or YAML.
func writeStructured(w io.Writer, format string, value any) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")

		err := enc.Encode(value)
		if err != nil {
			return fmt.Errorf("encode json: %w", err)
		}

		return nil
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		defer enc.Close()

		err := enc.Encode(value)
		if err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}

		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// newTable returns a borderless go-pretty table writing to w.
func newTable(w io.Writer) table.Writer {
	tbl := table.NewWriter()
	tbl.SetOutputMirror(w)
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.SeparateRows = false
	tbl.Style().Options.SeparateColumns = false
	tbl.Style().Options.DrawBorder = false

	return tbl
}

// printer writes colored notices; colors are dropped when disabled.
type printer struct {
	w       io.Writer
	noColor bool
}

func (p printer) colored(attr color.Attribute, format string, args ...any) {
	c := color.New(attr)
	if p.noColor {
		c.DisableColor()
	}

	c.Fprintf(p.w, format, args...) //nolint:errcheck // best-effort terminal output.
}

func (p printer) plain(format string, args ...any) {
	fmt.Fprintf(p.w, format, args...) //nolint:errcheck // best-effort terminal output.
}

func (p printer) warn(format string, args ...any) { p.colored(color.FgYellow, format, args...) }

func (p printer) fail(format string, args ...any) { p.colored(color.FgRed, format, args...) }

func (p printer) info(format string, args ...any) { p.colored(color.FgCyan, format, args...) }

func (p printer) ok(format string, args ...any) { p.colored(color.FgGreen, format, args...) }
