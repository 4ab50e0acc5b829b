package commands

import (
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/timewarp/internal/observability"
	"github.com/Sumatoshi-tech/timewarp/pkg/scene"
)

// timelineEntry is one row of `timewarp timeline`.
type timelineEntry struct {
	Index     int    `json:"index"     yaml:"index"`
	ID        string `json:"id"        yaml:"id"`
	Timestamp int64  `json:"timestamp" yaml:"timestamp"`
	Message   string `json:"message"   yaml:"message"`
}

// NewTimelineCommand creates the timeline command.
func NewTimelineCommand(opts *Options) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "timeline",
		Short: "List the commits of the timeline",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			outFormat, err := parseFormat(format)
			if err != nil {
				return err
			}

			a, err := opts.setup(observability.ModeCLI, false)
			if err != nil {
				return err
			}
			defer a.close()

			commits, err := a.source.Timeline(cmd.Context())
			if err != nil {
				return err
			}

			return writeTimeline(cmd, outFormat, commits, time.Now())
		},
	}

	cmd.Flags().StringVar(&format, flagFormat, FormatTable, "output format: table, json or yaml")

	return cmd
}

func writeTimeline(cmd *cobra.Command, format string, commits []scene.CommitRecord, now time.Time) error {
	out := cmd.OutOrStdout()

	if format != FormatTable {
		entries := make([]timelineEntry, len(commits))
		for i, c := range commits {
			entries[i] = timelineEntry{Index: i, ID: c.ID, Timestamp: c.Timestamp, Message: c.Message}
		}

		return writeStructured(out, format, entries)
	}

	tbl := newTable(out)
	tbl.AppendHeader(table.Row{"#", "Commit", "When", "Message"})

	for i, c := range commits {
		when := time.Unix(c.Timestamp, 0)
		tbl.AppendRow(table.Row{i, c.ShortID(), humanize.RelTime(when, now, "ago", "from now"), c.Message})
	}

	tbl.AppendFooter(table.Row{"", "", "", humanize.Comma(int64(len(commits))) + " commits"})
	tbl.Render()

	return nil
}
