package scene

import (
	"errors"
	"fmt"
	"path"
	"strings"
)

// ColorMode selects how Classify colors a file.
type ColorMode string

// Supported color modes.
const (
	ColorByChurn    ColorMode = "churn"
	ColorByHotspot  ColorMode = "hotspot"
	ColorByFiletype ColorMode = "filetype"
)

// ErrUnknownColorMode is returned by ParseColorMode for unsupported names.
var ErrUnknownColorMode = errors.New("unknown color mode")

// ParseColorMode converts a user-facing name into a ColorMode.
func ParseColorMode(s string) (ColorMode, error) {
	switch mode := ColorMode(strings.ToLower(strings.TrimSpace(s))); mode {
	case ColorByChurn, ColorByHotspot, ColorByFiletype:
		return mode, nil
	default:
		return "", fmt.Errorf("%w: %q (want churn, hotspot or filetype)", ErrUnknownColorMode, s)
	}
}

// Fixed palette. Churn endpoints match the legend; hotspot endpoints and the
// filetype categories come from the dark chart palette.
var (
	ChurnCold   = Hex("#87cefa")
	ChurnHot    = Hex("#ff0000")
	HotspotLow  = Hex("#22c55e")
	HotspotHigh = Hex("#ef4444")
	Accent      = Hex("#ec4899")

	CodeColor   = Hex("#38bdf8")
	DocColor    = Hex("#a3e635")
	ConfigColor = Hex("#fbbf24")
	TestColor   = Hex("#a78bfa")
	OtherColor  = Hex("#a8a29e")
)

// FileCategory is the filetype bucket of a path.
type FileCategory string

// File categories, in lookup priority order.
const (
	CategoryTest   FileCategory = "test"
	CategoryCode   FileCategory = "code"
	CategoryDoc    FileCategory = "doc"
	CategoryConfig FileCategory = "config"
	CategoryOther  FileCategory = "other"
)

// testMarkers are matched against "/"+lowercased path, so "tests/x.py"
// and "pkg/tests/x.py" both hit "/tests/".
var testMarkers = []string{
	"_test.",
	".test.",
	".spec.",
	"/test/",
	"/tests/",
	"/__tests__/",
}

var categoryByExt = map[string]FileCategory{
	".go": CategoryCode, ".py": CategoryCode, ".js": CategoryCode, ".jsx": CategoryCode,
	".ts": CategoryCode, ".tsx": CategoryCode, ".java": CategoryCode, ".kt": CategoryCode,
	".rb": CategoryCode, ".rs": CategoryCode, ".c": CategoryCode, ".h": CategoryCode,
	".cc": CategoryCode, ".cpp": CategoryCode, ".hpp": CategoryCode, ".cs": CategoryCode,
	".swift": CategoryCode, ".php": CategoryCode, ".scala": CategoryCode, ".sh": CategoryCode,

	".md": CategoryDoc, ".rst": CategoryDoc, ".txt": CategoryDoc, ".adoc": CategoryDoc,

	".json": CategoryConfig, ".yaml": CategoryConfig, ".yml": CategoryConfig, ".toml": CategoryConfig,
	".ini": CategoryConfig, ".cfg": CategoryConfig, ".conf": CategoryConfig, ".env": CategoryConfig,
	".xml": CategoryConfig,
}

var categoryColor = map[FileCategory]RGB{
	CategoryTest:   TestColor,
	CategoryCode:   CodeColor,
	CategoryDoc:    DocColor,
	CategoryConfig: ConfigColor,
	CategoryOther:  OtherColor,
}

// Categorize buckets a path. Test markers win over extensions so that
// "foo_test.go" is a test, not code.
func Categorize(p string) FileCategory {
	lower := strings.ToLower(p)
	rooted := pathSeparator + lower

	for _, marker := range testMarkers {
		if strings.Contains(rooted, marker) {
			return CategoryTest
		}
	}

	if cat, ok := categoryByExt[path.Ext(lower)]; ok {
		return cat
	}

	return CategoryOther
}

// Appearance is the display color of one file.
type Appearance struct {
	Color    RGB
	Emissive *RGB
}

// Classify colors a file. The emissive accent is set whenever the hotspot
// score reaches the threshold, whatever the color mode.
func Classify(file FileRecord, churnFactor float64, mode ColorMode, threshold float64) Appearance {
	var color RGB

	switch mode {
	case ColorByHotspot:
		color = Lerp(HotspotLow, HotspotHigh, ClampUnit(file.HotspotScore))
	case ColorByFiletype:
		color = categoryColor[Categorize(file.Path)]
	case ColorByChurn:
		color = Lerp(ChurnCold, ChurnHot, ClampUnit(churnFactor))
	default:
		color = Lerp(ChurnCold, ChurnHot, ClampUnit(churnFactor))
	}

	app := Appearance{Color: color}

	if file.HotspotScore >= ClampUnit(threshold) {
		accent := Accent
		app.Emissive = &accent
	}

	return app
}

// Colorize applies Classify to every item of a layout in place.
func Colorize(items []PositionedFile, mode ColorMode, threshold float64) {
	for i := range items {
		app := Classify(items[i].Record, items[i].ChurnFactor, mode, threshold)
		items[i].Color = app.Color
		items[i].Emissive = app.Emissive
	}
}
