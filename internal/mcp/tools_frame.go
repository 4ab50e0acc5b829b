package mcp

import (
	"context"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Sumatoshi-tech/timewarp/pkg/scene"
	"github.com/Sumatoshi-tech/timewarp/pkg/viewer"
)

// FrameResult is the payload of timewarp_frame.
type FrameResult struct {
	Status       viewer.Status    `json:"status"`
	CommitID     string           `json:"commit_id"`
	View         scene.ViewState  `json:"view"`
	Camera       scene.CameraPose `json:"camera"`
	Rotation     float64          `json:"rotation"`
	UsedFallback bool             `json:"used_fallback"`
	Shown        int              `json:"shown"`
	Total        int              `json:"total"`
	Truncated    bool             `json:"truncated"`
	Items        []ItemView       `json:"items"`
}

func (t *toolset) handleFrame(
	ctx context.Context,
	_ *mcpsdk.CallToolRequest,
	input FrameInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	if input.Limit < 0 || input.Ticks < 0 {
		return errorResult(ErrNegativePaging)
	}

	err := t.ensureLoaded(ctx)
	if err != nil {
		return errorResult(err)
	}

	err = t.applyView(input)
	if err != nil {
		return errorResult(err)
	}

	for range input.Ticks {
		t.session.Tick()
	}

	frame, renderErr := t.session.Render(ctx)
	if renderErr != nil {
		// The stale frame is still returned; the status carries the error text.
		t.logger.WarnContext(ctx, "frame rendered from stale snapshot", "error", renderErr)
	}

	limit := input.Limit
	if limit == 0 {
		limit = DefaultItemLimit
	}

	return jsonResult(FrameResult{
		Status:       t.session.Status(),
		CommitID:     frame.CommitID,
		View:         t.session.View(),
		Camera:       frame.Camera,
		Rotation:     frame.Rotation,
		UsedFallback: frame.UsedFallback,
		Shown:        frame.Shown,
		Total:        frame.Total,
		Truncated:    len(frame.Items) > limit,
		Items:        itemViews(frame, limit),
	})
}

// applyView moves the session to the requested commit and view settings.
func (t *toolset) applyView(input FrameInput) error {
	if input.Commit != "" {
		err := t.session.SeekCommit(input.Commit)
		if err != nil {
			return err
		}
	}

	if input.Index != nil {
		n := len(t.session.Commits())
		if *input.Index < 0 || *input.Index >= n {
			return fmt.Errorf("%w: %d (have %d commits)", ErrBadIndex, *input.Index, n)
		}
	}

	var mode scene.ColorMode

	if input.ColorMode != "" {
		parsed, err := scene.ParseColorMode(input.ColorMode)
		if err != nil {
			return err
		}

		mode = parsed
	}

	err := t.session.Update(func(view *scene.ViewState) {
		if input.Index != nil {
			view.ActiveCommitIndex = *input.Index
		}

		if input.HotspotOnly != nil {
			view.HotspotOnly = *input.HotspotOnly
		}

		if input.Threshold != nil {
			view.Threshold = *input.Threshold
		}

		if mode != "" {
			view.ColorMode = mode
		}

		if input.Directories != nil {
			view.SelectedDirectories = input.Directories
		}

		if input.Include != nil {
			view.PathGlobs = input.Include
		}
	})
	if err != nil {
		return err
	}

	if input.ResetCamera {
		t.session.ResetCamera()
	}

	return nil
}
