package commands

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/timewarp/internal/observability"
	"github.com/Sumatoshi-tech/timewarp/pkg/scene"
	"github.com/Sumatoshi-tech/timewarp/pkg/viewer"
)

// frameReport is the structured output of `timewarp frame`.
type frameReport struct {
	Status viewer.Status `json:"status" yaml:"status"`
	Frame  scene.Frame   `json:"frame"  yaml:"frame"`
}

// NewFrameCommand creates the frame command.
func NewFrameCommand(opts *Options) *cobra.Command {
	var (
		flags  viewFlags
		format string
	)

	cmd := &cobra.Command{
		Use:   "frame",
		Short: "Assemble one frame and print its files, positions and colors",
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

			view, err := flags.view(cmd, a.cfg)
			if err != nil {
				return err
			}

			session, err := a.session(cmd.Context(), a.source, view, opts.SkipVendor)
			if err != nil {
				return err
			}

			err = flags.seek(cmd, session)
			if err != nil {
				return err
			}

			frame, err := session.Render(cmd.Context())
			if err != nil {
				return err
			}

			report := frameReport{Status: session.Status(), Frame: frame}

			if outFormat != FormatTable {
				return writeStructured(cmd.OutOrStdout(), outFormat, report)
			}

			writeFrameTable(printer{w: cmd.OutOrStdout(), noColor: opts.NoColor}, report)

			return nil
		},
	}

	flags.bind(cmd)
	cmd.Flags().StringVar(&format, flagFormat, FormatTable, "output format: table, json or yaml")

	return cmd
}

// writeStatus prints the status lines shown around the scene.
func writeStatus(p printer, st viewer.Status) {
	p.plain("%s  %s\n", st.Position, st.Commit)
	p.info("%s\n", st.Summary)

	if st.Banner != "" {
		p.warn("%s\n", st.Banner)
	}

	if st.Overlay != "" {
		p.warn("%s\n", st.Overlay)
	}

	if st.Error != "" {
		p.fail("%s\n", st.Error)
	}
}

func writeFrameTable(p printer, report frameReport) {
	writeStatus(p, report.Status)

	if len(report.Frame.Items) == 0 {
		return
	}

	tbl := newTable(p.w)
	tbl.AppendHeader(table.Row{"#", "Path", "Churn", "Hotspot", "Color", "Position"})

	for i, item := range report.Frame.Items {
		pos := report.Frame.WorldPosition(i)
		hotspot := fmt.Sprintf("%.2f", item.Record.HotspotScore)

		if item.Emissive != nil {
			hotspot += " *"
		}

		tbl.AppendRow(table.Row{
			i,
			item.Record.Path,
			humanize.Comma(int64(item.Record.Churn)),
			hotspot,
			item.Color.String(),
			fmt.Sprintf("(%.1f, %.1f, %.1f)", pos.X, pos.Y, pos.Z),
		})
	}

	tbl.Render()
}
