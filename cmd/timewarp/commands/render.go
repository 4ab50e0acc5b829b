package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/timewarp/internal/observability"
	"github.com/Sumatoshi-tech/timewarp/pkg/plotpage"
	"github.com/Sumatoshi-tech/timewarp/pkg/scene"
	"github.com/Sumatoshi-tech/timewarp/pkg/snapshots"
	"github.com/Sumatoshi-tech/timewarp/pkg/viewer"
)

const (
	renderDirPerm     = 0o750
	renderFilePerm    = 0o600
	renderDefaultFile = "timewarp.html"
	renderDefaultDir  = "timewarp-html"
)

// ErrNoCommits is returned when the timeline has nothing to render.
var ErrNoCommits = errors.New("timeline is empty")

// renderFlags holds the render command flags.
type renderFlags struct {
	view   viewFlags
	output string
	all    bool
	jobs   int
	theme  string
}

// NewRenderCommand creates the render command.
func NewRenderCommand(opts *Options) *cobra.Command {
	var flags renderFlags

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render the 3D scene as an interactive HTML page",
		Long: `Render the scene of one commit as a standalone HTML page.

With --all, every commit of the timeline is rendered into its own page. The
snapshots are fetched concurrently first (see --jobs).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := opts.setup(observability.ModeCLI, false)
			if err != nil {
				return err
			}
			defer a.close()

			view, err := flags.view.view(cmd, a.cfg)
			if err != nil {
				return err
			}

			p := printer{w: cmd.OutOrStdout(), noColor: opts.NoColor}

			if flags.all {
				return renderAll(cmd.Context(), a, opts, view, flags, p)
			}

			session, err := a.session(cmd.Context(), a.source, view, opts.SkipVendor)
			if err != nil {
				return err
			}

			err = flags.view.seek(cmd, session)
			if err != nil {
				return err
			}

			output := flags.output
			if output == "" {
				output = renderDefaultFile
			}

			err = renderPage(cmd.Context(), session, output, plotpage.ParseTheme(flags.theme))
			if err != nil {
				return err
			}

			p.ok("wrote %s\n", output)

			return nil
		},
	}

	flags.view.bind(cmd)
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "output file, or directory with --all")
	cmd.Flags().BoolVar(&flags.all, "all", false, "render every commit of the timeline")
	cmd.Flags().IntVar(&flags.jobs, "jobs", snapshots.DefaultPreloadJobs, "concurrent snapshot fetches with --all")
	cmd.Flags().StringVar(&flags.theme, "theme", string(plotpage.ThemeDark), "page theme: dark or light")

	return cmd
}

func renderAll(ctx context.Context, a *app, opts *Options, view scene.ViewState, flags renderFlags, p printer) error {
	commits, err := a.source.Timeline(ctx)
	if err != nil {
		return err
	}

	if len(commits) == 0 {
		return ErrNoCommits
	}

	ids := make([]string, len(commits))
	for i, c := range commits {
		ids[i] = c.ID
	}

	preloaded, err := snapshots.Preload(ctx, a.source, ids, flags.jobs)
	if err != nil {
		return err
	}

	a.logger.DebugContext(ctx, "snapshots preloaded", "count", preloaded.Len())

	session, err := a.session(ctx, preloaded, view, opts.SkipVendor)
	if err != nil {
		return err
	}

	dir := flags.output
	if dir == "" {
		dir = renderDefaultDir
	}

	err = os.MkdirAll(dir, renderDirPerm)
	if err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	theme := plotpage.ParseTheme(flags.theme)

	for i, c := range session.Commits() {
		session.Seek(i)

		name := filepath.Join(dir, fmt.Sprintf("%03d-%s.html", i, c.ShortID()))

		err = renderPage(ctx, session, name, theme)
		if err != nil {
			return err
		}
	}

	p.ok("wrote %d pages to %s\n", len(commits), dir)

	return nil
}

// renderPage renders the session's active commit into path.
func renderPage(ctx context.Context, session *viewer.Session, path string, theme plotpage.Theme) error {
	frame, err := session.Render(ctx)
	if err != nil {
		return err
	}

	file, err := os.OpenFile(filepath.Clean(path), os.O_CREATE|os.O_TRUNC|os.O_WRONLY, renderFilePerm)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	err = plotpage.RenderFrame(file, frame, session.Status(), theme)
	if err != nil {
		_ = file.Close()

		return fmt.Errorf("render %s: %w", path, err)
	}

	err = file.Close()
	if err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}

	return nil
}
