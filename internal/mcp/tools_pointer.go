package mcp

import (
	"context"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Sumatoshi-tech/timewarp/pkg/scene"
	"github.com/Sumatoshi-tech/timewarp/pkg/viewer"
)

// PointerResult is the payload of timewarp_pointer.
type PointerResult struct {
	Event        string             `json:"event"`
	Hovered      *viewer.Tooltip    `json:"hovered,omitempty"`
	Selection    *scene.Selection   `json:"selection,omitempty"`
	Inspection   *viewer.Inspection `json:"inspection,omitempty"`
	InspectError string             `json:"inspect_error,omitempty"`
}

func (t *toolset) handlePointer(
	ctx context.Context,
	_ *mcpsdk.CallToolRequest,
	input PointerInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	event, err := scene.ParsePointerEvent(input.Event)
	if err != nil {
		return errorResult(err)
	}

	if _, rendered := t.session.Frame(); !rendered {
		return errorResult(ErrNoFrame)
	}

	result := PointerResult{Event: event.String()}

	sel, clicked := t.session.Pointer(ctx, input.Index, event)

	if tip, ok := t.session.Hovered(); ok {
		result.Hovered = &tip
	}

	if clicked {
		result.Selection = &sel

		inspection, inspectErr := t.session.Inspect(ctx, sel)
		if inspectErr != nil {
			result.InspectError = inspectErr.Error()
		} else {
			result.Inspection = &inspection
		}
	}

	return jsonResult(result)
}
