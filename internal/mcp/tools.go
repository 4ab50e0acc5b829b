package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Sumatoshi-tech/timewarp/pkg/scene"
	"github.com/Sumatoshi-tech/timewarp/pkg/viewer"
)

// Tool name constants.
const (
	ToolNameTimeline = "timewarp_timeline"
	ToolNameFrame    = "timewarp_frame"
	ToolNamePointer  = "timewarp_pointer"
)

// Paging limits.
const (
	// DefaultItemLimit caps the files returned by timewarp_frame.
	DefaultItemLimit = 200
	// DefaultCommitLimit caps the commits returned by timewarp_timeline.
	DefaultCommitLimit = 100
)

// Sentinel errors for tool input validation.
var (
	// ErrNegativePaging indicates a negative offset or limit.
	ErrNegativePaging = errors.New("offset and limit must not be negative")
	// ErrNoFrame indicates a pointer event arrived before any frame was rendered.
	ErrNoFrame = errors.New("no frame rendered yet; call timewarp_frame first")
	// ErrBadIndex indicates a timeline index outside the loaded commits.
	ErrBadIndex = errors.New("commit index out of range")
)

// Input types (auto-generate JSON schemas via struct tags).

// TimelineInput is the input schema for the timewarp_timeline tool.
type TimelineInput struct {
	Offset int `json:"offset,omitempty" jsonschema:"index of the first commit to return"`
	Limit  int `json:"limit,omitempty"  jsonschema:"maximum number of commits to return (default: 100)"`
}

// FrameInput is the input schema for the timewarp_frame tool. Unset fields
// keep the current view.
type FrameInput struct {
	Commit      string   `json:"commit,omitempty"       jsonschema:"commit id to show"`
	Index       *int     `json:"index,omitempty"        jsonschema:"zero-based timeline index to show"`
	HotspotOnly *bool    `json:"hotspot_only,omitempty" jsonschema:"show only files whose hotspot score reaches the threshold"`
	Threshold   *float64 `json:"threshold,omitempty"    jsonschema:"hotspot threshold in [0, 1]"`
	ColorMode   string   `json:"color_mode,omitempty"   jsonschema:"churn, hotspot or filetype"`
	Directories []string `json:"directories,omitempty"  jsonschema:"top-level directories to keep (empty list clears the filter)"`
	Include     []string `json:"include,omitempty"      jsonschema:"path globs to keep, e.g. pkg/**/*.go (empty list clears the filter)"`
	ResetCamera bool     `json:"reset_camera,omitempty" jsonschema:"reframe the camera around the shown files"`
	Ticks       int      `json:"ticks,omitempty"        jsonschema:"idle rotation frames to advance before rendering"`
	Limit       int      `json:"limit,omitempty"        jsonschema:"maximum number of files returned (default: 200)"`
}

// PointerInput is the input schema for the timewarp_pointer tool.
type PointerInput struct {
	Index int    `json:"index" jsonschema:"index of the file in the last frame"`
	Event string `json:"event" jsonschema:"enter, leave or click"`
}

// Output type (used as structured output for generic AddTool).

// ToolOutput is a generic wrapper for tool results.
type ToolOutput struct {
	Data any `json:"data"`
}

// Result helpers.

// errorResult builds a CallToolResult with isError set.
func errorResult(err error) (*mcpsdk.CallToolResult, ToolOutput, error) {
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: err.Error()},
		},
		IsError: true,
	}, ToolOutput{}, nil
}

// jsonResult builds a CallToolResult with JSON-encoded content.
func jsonResult(value any) (*mcpsdk.CallToolResult, ToolOutput, error) {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return errorResult(fmt.Errorf("encode result: %w", err))
	}

	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: string(data)},
		},
	}, ToolOutput{Data: value}, nil
}

// toolset binds the tool handlers to one viewer session.
type toolset struct {
	session *viewer.Session
	logger  *slog.Logger
}

// ensureLoaded fetches the timeline on first use.
func (t *toolset) ensureLoaded(ctx context.Context) error {
	if t.session.Loaded() {
		return nil
	}

	return t.session.Load(ctx)
}

// ItemView is one file of a frame as returned to the agent.
type ItemView struct {
	Index        int        `json:"index"`
	Path         string     `json:"path"`
	Churn        int        `json:"churn"`
	HotspotScore float64    `json:"hotspot_score"`
	Position     scene.Vec3 `json:"position"`
	Size         float64    `json:"size"`
	Color        string     `json:"color"`
	Hotspot      bool       `json:"hotspot"`
}

func itemViews(frame scene.Frame, limit int) []ItemView {
	n := min(len(frame.Items), limit)
	out := make([]ItemView, 0, n)

	for i := range n {
		item := frame.Items[i]
		out = append(out, ItemView{
			Index:        i,
			Path:         item.Record.Path,
			Churn:        item.Record.Churn,
			HotspotScore: item.Record.HotspotScore,
			Position:     frame.WorldPosition(i),
			Size:         item.Size.X,
			Color:        item.Color.String(),
			Hotspot:      item.Emissive != nil,
		})
	}

	return out
}
