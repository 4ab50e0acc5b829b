package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/timewarp/internal/observability"
	"github.com/Sumatoshi-tech/timewarp/pkg/plotpage"
)

const shutdownGrace = 5 * time.Second

// NewServeCommand creates the serve command.
func NewServeCommand(opts *Options) *cobra.Command {
	var (
		flags viewFlags
		host  string
		port  int
		theme string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the interactive scene over HTTP",
		Long: `Serve the scene as an HTML page at /frame.html, with a JSON API:

  GET  /api/timeline   commits in order
  GET  /api/frame      assemble a frame (query: commit, index, hotspot_only,
                       threshold, color_mode, dir, include, tick)
  GET  /api/status     status line of the last frame
  POST /api/pointer    {"index": 3, "event": "click"}
  POST /api/reset      reframe the camera

/healthz, /readyz and /metrics (Prometheus) are served alongside.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := opts.setup(observability.ModeServe, true)
			if err != nil {
				return err
			}
			defer a.close()

			if cmd.Flags().Changed("host") {
				a.cfg.Server.Host = host
			}

			if cmd.Flags().Changed("port") {
				a.cfg.Server.Port = port
			}

			if !a.cfg.Server.Prometheus {
				a.providers.MetricsHandler = nil
			}

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

			// The instruments report through their registered callback.
			_, err = observability.NewRuntimeMetrics(a.providers.Meter)
			if err != nil {
				return err
			}

			srv := &http.Server{
				Addr: a.cfg.Server.Addr(),
				Handler: NewServeHandler(ServeDeps{
					Session: session,
					Logger:  a.logger,
					Tracer:  a.providers.Tracer,
					Metrics: a.providers.MetricsHandler,
					Theme:   plotpage.ParseTheme(theme),
				}),
				ReadTimeout:       a.cfg.Server.ReadTimeout,
				ReadHeaderTimeout: a.cfg.Server.ReadTimeout,
			}

			p := printer{w: cmd.OutOrStdout(), noColor: opts.NoColor}
			p.ok("serving http://%s/frame.html\n", srv.Addr)

			return listenAndServe(cmd.Context(), srv)
		},
	}

	flags.bind(cmd)
	cmd.Flags().StringVar(&host, "host", "", "listen host (overrides server.host)")
	cmd.Flags().IntVar(&port, "port", 0, "listen port (overrides server.port)")
	cmd.Flags().StringVar(&theme, "theme", string(plotpage.ThemeDark), "page theme: dark or light")

	return cmd
}

// listenAndServe runs srv until ctx is canceled, then shuts it down.
func listenAndServe(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)

	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}

		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownGrace)
		defer cancel()

		err := srv.Shutdown(shutdownCtx)
		if err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}

		return nil
	}
}
