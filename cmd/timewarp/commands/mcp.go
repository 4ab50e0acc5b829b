package commands

import (
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/timewarp/internal/mcp"
	"github.com/Sumatoshi-tech/timewarp/internal/observability"
)

// NewMCPCommand creates the MCP server command.
func NewMCPCommand(opts *Options) *cobra.Command {
	var flags viewFlags

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start MCP server for AI agent integration",
		Long: `Start a Model Context Protocol (MCP) server on stdio transport.

The MCP server exposes the TimeWarp viewer as tools that AI agents can
discover and invoke:
  - timewarp_timeline: list the commits of the timeline
  - timewarp_frame: render the scene of a commit under a view (filters, colors)
  - timewarp_pointer: hover or click a file of the last frame; a click returns
    its line statistics

Logs go to stderr as JSON; stdout carries the protocol.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := opts.setup(observability.ModeMCP, false)
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

			srv, err := mcp.NewServer(mcp.ServerDeps{
				Session: session,
				Logger:  a.logger,
				Metrics: a.calls,
				Tracer:  a.providers.Tracer,
			})
			if err != nil {
				return err
			}

			return srv.Run(cmd.Context())
		},
	}

	flags.bind(cmd)

	return cmd
}
