package commands

import (
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/timewarp/internal/observability"
	"github.com/Sumatoshi-tech/timewarp/pkg/diffstat"
	"github.com/Sumatoshi-tech/timewarp/pkg/viewer"
)

// diffReport is the structured output of `timewarp diff`.
type diffReport struct {
	Commit   string         `json:"commit"             yaml:"commit"`
	Path     string         `json:"path"               yaml:"path"`
	Language string         `json:"language,omitempty" yaml:"language,omitempty"`
	Stats    diffstat.Stats `json:"stats"              yaml:"stats"`
}

// NewDiffCommand creates the diff command.
func NewDiffCommand(opts *Options) *cobra.Command {
	var (
		format           string
		ignoreWhitespace bool
	)

	cmd := &cobra.Command{
		Use:   "diff <commit> <path>",
		Short: "Show line statistics of one file at one commit",
		Args:  cobra.ExactArgs(2), //nolint:mnd // commit and path.
		RunE: func(cmd *cobra.Command, args []string) error {
			outFormat, err := parseFormat(format)
			if err != nil {
				return err
			}

			a, err := opts.setup(observability.ModeCLI, false)
			if err != nil {
				return err
			}
			defer a.close()

			commit, path := args[0], args[1]

			diff, err := a.source.Diff(cmd.Context(), commit, path)
			if err != nil {
				return err
			}

			report := diffReport{
				Commit:   commit,
				Path:     path,
				Language: viewer.Language(path),
				Stats: diffstat.ComputeWith(diff.Before, diff.After, diffstat.Options{
					IgnoreWhitespace: ignoreWhitespace,
				}),
			}

			if outFormat != FormatTable {
				return writeStructured(cmd.OutOrStdout(), outFormat, report)
			}

			p := printer{w: cmd.OutOrStdout(), noColor: opts.NoColor}
			p.plain("%s @ %s", report.Path, commit)

			if report.Language != "" {
				p.plain(" (%s)", report.Language)
			}

			p.plain("\n")

			if report.Stats.Binary {
				p.warn("binary content\n")

				return nil
			}

			p.ok("+%d ", report.Stats.Added)
			p.fail("-%d ", report.Stats.Removed)
			p.warn("~%d", report.Stats.Changed)
			p.plain("  %d hunks, %d → %d lines\n", report.Stats.Hunks, report.Stats.OldLines, report.Stats.NewLines)

			return nil
		},
	}

	cmd.Flags().StringVar(&format, flagFormat, FormatTable, "output format: table, json or yaml")
	cmd.Flags().BoolVar(&ignoreWhitespace, "ignore-whitespace", false, "ignore whitespace-only line changes")

	return cmd
}
