package mcp

import (
	"context"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Sumatoshi-tech/timewarp/pkg/viewer"
)

// CommitView is one timeline entry.
type CommitView struct {
	Index   int    `json:"index"`
	ID      string `json:"id"`
	ShortID string `json:"short_id"`
	Time    string `json:"time"`
	Message string `json:"message"`
}

// TimelineResult is the payload of timewarp_timeline.
type TimelineResult struct {
	Total    int          `json:"total"`
	Active   int          `json:"active"`
	Position string       `json:"position"`
	Commits  []CommitView `json:"commits"`
}

func (t *toolset) handleTimeline(
	ctx context.Context,
	_ *mcpsdk.CallToolRequest,
	input TimelineInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	if input.Offset < 0 || input.Limit < 0 {
		return errorResult(ErrNegativePaging)
	}

	err := t.ensureLoaded(ctx)
	if err != nil {
		return errorResult(err)
	}

	limit := input.Limit
	if limit == 0 {
		limit = DefaultCommitLimit
	}

	commits := t.session.Commits()
	active := t.session.View().ActiveCommitIndex

	result := TimelineResult{
		Total:    len(commits),
		Active:   active,
		Position: viewer.PositionText(active, len(commits)),
		Commits:  []CommitView{},
	}

	start := min(input.Offset, len(commits))
	end := min(start+limit, len(commits))

	for i := start; i < end; i++ {
		c := commits[i]
		result.Commits = append(result.Commits, CommitView{
			Index:   i,
			ID:      c.ID,
			ShortID: c.ShortID(),
			Time:    time.Unix(c.Timestamp, 0).UTC().Format(time.RFC3339),
			Message: c.Message,
		})
	}

	return jsonResult(result)
}
