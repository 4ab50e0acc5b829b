// Package commands implements the timewarp CLI command handlers.
package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/timewarp/internal/observability"
	"github.com/Sumatoshi-tech/timewarp/pkg/config"
	"github.com/Sumatoshi-tech/timewarp/pkg/scene"
	"github.com/Sumatoshi-tech/timewarp/pkg/snapshots"
	"github.com/Sumatoshi-tech/timewarp/pkg/version"
	"github.com/Sumatoshi-tech/timewarp/pkg/viewer"
)

// Flag names shared by several commands.
const (
	flagConfig      = "config"
	flagAPI         = "api"
	flagFixture     = "fixture"
	flagLogLevel    = "log-level"
	flagLogJSON     = "log-json"
	flagNoColor     = "no-color"
	flagSkipVendor  = "skip-vendor"
	flagCommit      = "commit"
	flagIndex       = "index"
	flagHotspotOnly = "hotspot-only"
	flagThreshold   = "threshold"
	flagColorMode   = "color-mode"
	flagDir         = "dir"
	flagInclude     = "include"
	flagFormat      = "format"
)

// ErrIndexOutOfRange is returned when --index is outside the timeline.
var ErrIndexOutOfRange = errors.New("commit index out of range")

// Options holds the persistent flags of the root command.
type Options struct {
	ConfigPath string
	APIURL     string
	Fixture    string
	LogLevel   string
	LogJSON    bool
	NoColor    bool
	SkipVendor bool
}

// BindPersistent registers the global flags on root.
func (o *Options) BindPersistent(root *cobra.Command) {
	flags := root.PersistentFlags()
	flags.StringVar(&o.ConfigPath, flagConfig, "", "config file (default: timewarp.yaml in ., ./config or /etc/timewarp)")
	flags.StringVar(&o.APIURL, flagAPI, "", "TimeWarp API base URL (overrides api.base_url)")
	flags.StringVar(&o.Fixture, flagFixture, "", "read the timeline from a YAML/JSON fixture file instead of the API")
	flags.StringVar(&o.LogLevel, flagLogLevel, "", "log level: debug, info, warn or error (overrides logging.level)")
	flags.BoolVar(&o.LogJSON, flagLogJSON, false, "log as JSON")
	flags.BoolVar(&o.NoColor, flagNoColor, false, "disable colored output")
	flags.BoolVar(&o.SkipVendor, flagSkipVendor, false, "hide vendored and generated files")
}

// app is everything a command needs after flags and config are resolved.
type app struct {
	cfg       *config.Config
	providers observability.Providers
	logger    *slog.Logger
	source    snapshots.Source
	calls     *observability.CallMetrics
	scene     *observability.SceneMetrics
}

// setup loads config, starts observability and builds the snapshot source.
func (o *Options) setup(mode observability.AppMode, prometheus bool) (*app, error) {
	cfg, err := config.LoadConfig(o.ConfigPath)
	if err != nil {
		return nil, err
	}

	if o.APIURL != "" {
		cfg.API.BaseURL = o.APIURL
	}

	levelName := cfg.Logging.Level
	if o.LogLevel != "" {
		levelName = o.LogLevel
	}

	level, err := observability.ParseLevel(levelName)
	if err != nil {
		return nil, err
	}

	obsCfg := observability.DefaultConfig()
	obsCfg.ServiceVersion = version.Version
	obsCfg.Mode = mode
	obsCfg.Environment = os.Getenv("TIMEWARP_ENV")
	obsCfg.OTLPEndpoint = os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	obsCfg.OTLPHeaders = observability.ParseOTLPHeaders(os.Getenv("OTEL_EXPORTER_OTLP_HEADERS"))
	obsCfg.OTLPInsecure = os.Getenv("OTEL_EXPORTER_OTLP_INSECURE") == "true"
	obsCfg.Prometheus = prometheus
	obsCfg.LogLevel = level
	obsCfg.LogJSON = o.LogJSON || cfg.Logging.Format == config.LogFormatJSON || mode == observability.ModeMCP
	obsCfg.DebugTrace = level == slog.LevelDebug

	providers, err := observability.Init(obsCfg)
	if err != nil {
		return nil, fmt.Errorf("init observability: %w", err)
	}

	a := &app{cfg: cfg, providers: providers, logger: providers.Logger}

	a.calls, err = observability.NewCallMetrics(providers.Meter)
	if err != nil {
		a.close()

		return nil, err
	}

	a.scene, err = observability.NewSceneMetrics(providers.Meter)
	if err != nil {
		a.close()

		return nil, err
	}

	a.source, err = o.buildSource(a)
	if err != nil {
		a.close()

		return nil, err
	}

	return a, nil
}

func (o *Options) buildSource(a *app) (snapshots.Source, error) {
	if o.Fixture != "" {
		return snapshots.LoadFixture(o.Fixture, a.logger)
	}

	return snapshots.NewClient(snapshots.ClientOptions{
		BaseURL:    a.cfg.API.BaseURL,
		Timeout:    a.cfg.API.Timeout,
		MaxRetries: a.cfg.API.MaxRetries,
		RateLimit:  a.cfg.API.RateLimit,
		Burst:      a.cfg.API.Burst,
		Logger:     a.logger,
		Tracer:     a.providers.Tracer,
		Metrics:    a.calls,
	})
}

// close flushes telemetry.
func (a *app) close() {
	shutdownErr := a.providers.Shutdown(context.Background())
	if shutdownErr != nil {
		a.logger.Warn("observability shutdown failed", "error", shutdownErr)
	}
}

// session builds and loads a viewer session over src with view applied.
func (a *app) session(ctx context.Context, src snapshots.Source, view scene.ViewState, skipVendor bool) (*viewer.Session, error) {
	session, err := viewer.NewSession(viewer.Options{
		Source:       src,
		View:         view,
		FOV:          a.cfg.Scene.FOV,
		RotationStep: a.cfg.Scene.RotationStep,
		SkipVendor:   skipVendor || a.cfg.Scene.SkipVendor,
		Logger:       a.logger,
		Tracer:       a.providers.Tracer,
		Metrics:      a.scene,
	})
	if err != nil {
		return nil, err
	}

	err = session.Load(ctx)
	if err != nil {
		return nil, err
	}

	return session, nil
}

// viewFlags are the view-state flags shared by frame, render and serve.
type viewFlags struct {
	commit      string
	index       int
	hotspotOnly bool
	threshold   float64
	colorMode   string
	dirs        []string
	include     []string
}

func (v *viewFlags) bind(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&v.commit, flagCommit, "", "commit id to show (default: the first commit)")
	flags.IntVar(&v.index, flagIndex, 0, "zero-based timeline index to show")
	flags.BoolVar(&v.hotspotOnly, flagHotspotOnly, false, "show only files whose hotspot score reaches the threshold")
	flags.Float64Var(&v.threshold, flagThreshold, config.DefaultThreshold, "hotspot threshold in [0, 1] (overrides hotspot.threshold)")
	flags.StringVar(&v.colorMode, flagColorMode, "", "color mode: churn, hotspot or filetype (overrides scene.color_mode)")
	flags.StringSliceVar(&v.dirs, flagDir, nil, "keep only files under these top-level directories")
	flags.StringSliceVar(&v.include, flagInclude, nil, "keep only files matching these globs (e.g. 'pkg/**/*.go')")
}

// view merges config defaults with the flags the user set.
func (v *viewFlags) view(cmd *cobra.Command, cfg *config.Config) (scene.ViewState, error) {
	view := scene.ViewState{
		HotspotOnly:         cfg.Hotspot.Only,
		Threshold:           cfg.Hotspot.Threshold,
		ColorMode:           cfg.ColorMode(),
		SelectedDirectories: v.dirs,
		PathGlobs:           v.include,
	}

	flags := cmd.Flags()

	if flags.Changed(flagHotspotOnly) {
		view.HotspotOnly = v.hotspotOnly
	}

	if flags.Changed(flagThreshold) {
		view.Threshold = scene.ClampUnit(v.threshold)
	}

	if v.colorMode != "" {
		mode, err := scene.ParseColorMode(v.colorMode)
		if err != nil {
			return scene.ViewState{}, err
		}

		view.ColorMode = mode
	}

	return view, scene.ValidateGlobs(view.PathGlobs)
}

// seek moves session to the commit or index requested on the command line.
func (v *viewFlags) seek(cmd *cobra.Command, session *viewer.Session) error {
	if v.commit != "" {
		return session.SeekCommit(v.commit)
	}

	if cmd.Flags().Changed(flagIndex) {
		n := len(session.Commits())
		if v.index < 0 || v.index >= n {
			return fmt.Errorf("%w: %d (have %d commits)", ErrIndexOutOfRange, v.index, n)
		}

		session.Seek(v.index)
	}

	return nil
}
