package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/timewarp/pkg/version"
)

// NewRootCommand builds the timewarp command tree.
func NewRootCommand() *cobra.Command {
	opts := &Options{}

	rootCmd := &cobra.Command{
		Use:   "timewarp",
		Short: "TimeWarp - scrub a repository's history as a 3D churn scene",
		Long: `TimeWarp turns per-commit file churn into a 3D scene: every file is a cube on
a jittered spiral, sized and colored by churn, with hotspots highlighted.

Commands:
  timeline  list the commits
  frame     assemble one frame and print it
  render    write the scene as an interactive HTML page
  diff      line statistics of one file at one commit
  serve     interactive viewer over HTTP
  mcp       Model Context Protocol server on stdio`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	opts.BindPersistent(rootCmd)

	rootCmd.AddCommand(
		NewTimelineCommand(opts),
		NewFrameCommand(opts),
		NewRenderCommand(opts),
		NewDiffCommand(opts),
		NewServeCommand(opts),
		NewMCPCommand(opts),
		versionCmd(),
	)

	return rootCmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String()) //nolint:errcheck // best-effort terminal output.
		},
	}
}
