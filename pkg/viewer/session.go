// Package viewer drives one interactive TimeWarp session: it owns the view
// state, resolves the active commit's snapshot through a snapshots.Source and
// turns every view change into a scene.Frame plus the status texts shown
// around it.
package viewer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"slices"
	"sync"

	"github.com/src-d/enry/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	"github.com/Sumatoshi-tech/timewarp/internal/cache"
	"github.com/Sumatoshi-tech/timewarp/internal/observability"
	"github.com/Sumatoshi-tech/timewarp/pkg/diffstat"
	"github.com/Sumatoshi-tech/timewarp/pkg/scene"
	"github.com/Sumatoshi-tech/timewarp/pkg/snapshots"
)

// Sentinel errors. The messages are what the viewer shows the user.
var (
	ErrTimelineFetch = errors.New("Failed to fetch timeline") //nolint:staticcheck // user-facing text.
	ErrSnapshotFetch = errors.New("Failed to fetch snapshot") //nolint:staticcheck // user-facing text.
	ErrNoSource      = errors.New("viewer: source is required")
	ErrNoCommits     = errors.New("viewer: timeline is empty")
)

// DefaultCacheFiles bounds the snapshot cache by total file records.
const DefaultCacheFiles = 500_000

const (
	tracerName  = "timewarp.viewer"
	spanLoad    = "timewarp.viewer.load"
	spanRender  = "timewarp.viewer.render"
	spanPointer = "timewarp.viewer.pointer"
	spanInspect = "timewarp.viewer.inspect"
)

// Options configures a Session.
type Options struct {
	// Source supplies timeline, snapshots and diffs. Required.
	Source snapshots.Source

	// View is the initial view state.
	View scene.ViewState

	// FOV and RotationStep configure the scene.Assembler.
	FOV          float64
	RotationStep float64

	// SkipVendor drops vendored and generated paths from every snapshot.
	SkipVendor bool

	// CacheFiles bounds the snapshot cache. Zero uses DefaultCacheFiles.
	CacheFiles int64

	// OnSelect is called for every click on a displayed file.
	OnSelect func(scene.Selection)

	Logger  *slog.Logger
	Tracer  trace.Tracer
	Metrics *observability.SceneMetrics
}

// Tooltip is the hover card of one file.
type Tooltip struct {
	scene.Tooltip `yaml:",inline"`

	Language string `json:"language,omitempty" yaml:"language,omitempty"`
}

// Inspection is the result of drilling into a clicked file.
type Inspection struct {
	Selection scene.Selection `json:"selection" yaml:"selection"`
	Stats     diffstat.Stats  `json:"stats"     yaml:"stats"`
	Diff      snapshots.Diff  `json:"diff"      yaml:"diff"`
}

// Session is safe for concurrent use; every method serializes on one lock.
type Session struct {
	mu sync.Mutex

	source     snapshots.Source
	assembler  *scene.Assembler
	dispatcher *scene.Dispatcher
	snapshots  *cache.LRU[string, *scene.Snapshot]
	skipVendor bool
	logger     *slog.Logger
	tracer     trace.Tracer
	metrics    *observability.SceneMetrics

	view     scene.ViewState
	commits  []scene.CommitRecord
	loaded   bool
	active   *scene.Snapshot
	frame    scene.Frame
	rendered bool
	lastErr  error
}

// NewSession builds a session. Call Load before Render.
func NewSession(opts Options) (*Session, error) {
	if opts.Source == nil {
		return nil, ErrNoSource
	}

	if err := scene.ValidateGlobs(opts.View.PathGlobs); err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	tracer := opts.Tracer
	if tracer == nil {
		tracer = nooptrace.NewTracerProvider().Tracer(tracerName)
	}

	cacheFiles := opts.CacheFiles
	if cacheFiles <= 0 {
		cacheFiles = DefaultCacheFiles
	}

	view := opts.View
	view.Threshold = scene.ClampUnit(view.Threshold)

	if view.ColorMode == "" {
		view.ColorMode = scene.ColorByChurn
	}

	s := &Session{
		source: opts.Source,
		assembler: scene.NewAssembler(scene.AssemblerOptions{
			FOV:          opts.FOV,
			RotationStep: opts.RotationStep,
		}),
		snapshots: cache.NewLRU[string, *scene.Snapshot](cacheFiles, func(snap *scene.Snapshot) int64 {
			return int64(len(snap.Files))
		}),
		skipVendor: opts.SkipVendor,
		logger:     logger,
		tracer:     tracer,
		metrics:    opts.Metrics,
		view:       view,
	}

	s.dispatcher = scene.NewDispatcher(opts.OnSelect)

	return s, nil
}

// Load fetches the timeline. On failure the previous timeline is kept and
// the returned error wraps ErrTimelineFetch.
func (s *Session) Load(ctx context.Context) error {
	ctx, span := s.tracer.Start(ctx, spanLoad)
	defer span.End()

	commits, err := s.source.Timeline(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.lastErr = ErrTimelineFetch
		observability.RecordSpanError(span, err, observability.ErrTypeDependencyUnavailable, observability.ErrSourceDependency)
		s.logger.ErrorContext(ctx, "timeline fetch failed", "error", err)

		return fmt.Errorf("%w: %w", ErrTimelineFetch, err)
	}

	s.commits = commits
	s.loaded = true
	s.lastErr = nil
	s.view.ActiveCommitIndex = clampIndex(s.view.ActiveCommitIndex, len(commits))

	span.SetAttributes(attribute.Int("timewarp.commits", len(commits)))
	s.logger.DebugContext(ctx, "timeline loaded", "commits", len(commits))

	return nil
}

// Loaded reports whether a timeline has been fetched successfully.
func (s *Session) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.loaded
}

// Commits returns a copy of the loaded timeline.
func (s *Session) Commits() []scene.CommitRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	return slices.Clone(s.commits)
}

// View returns the current view state.
func (s *Session) View() scene.ViewState {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.view
}

// Update applies fn to a copy of the view state. The result is normalized:
// the threshold is clamped, the commit index is clamped to the timeline and
// globs must be valid.
func (s *Session) Update(fn func(view *scene.ViewState)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.view
	next.SelectedDirectories = slices.Clone(next.SelectedDirectories)
	next.PathGlobs = slices.Clone(next.PathGlobs)

	fn(&next)

	if err := scene.ValidateGlobs(next.PathGlobs); err != nil {
		return err
	}

	if next.ColorMode == "" {
		next.ColorMode = scene.ColorByChurn
	}

	next.Threshold = scene.ClampUnit(next.Threshold)
	next.ActiveCommitIndex = clampIndex(next.ActiveCommitIndex, len(s.commits))
	s.view = next

	return nil
}

// Seek moves to commit index i, clamped to the timeline.
func (s *Session) Seek(i int) {
	_ = s.Update(func(view *scene.ViewState) { view.ActiveCommitIndex = i })
}

// SeekCommit moves to the commit with the given id.
func (s *Session) SeekCommit(id string) error {
	s.mu.Lock()
	idx := slices.IndexFunc(s.commits, func(c scene.CommitRecord) bool { return c.ID == id })
	s.mu.Unlock()

	if idx < 0 {
		return fmt.Errorf("%w: commit %q", snapshots.ErrNotFound, id)
	}

	s.Seek(idx)

	return nil
}

// ResetCamera requests a camera reframe on the next Render.
func (s *Session) ResetCamera() {
	_ = s.Update(func(view *scene.ViewState) { view.ResetCounter++ })
}

// Tick advances the idle rotation by one frame.
func (s *Session) Tick() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.assembler.Tick()
}

// Render resolves the active snapshot and assembles a frame. When the
// snapshot fetch fails, the last good snapshot stays on screen: the frame is
// still returned and the error wraps ErrSnapshotFetch.
func (s *Session) Render(ctx context.Context) (scene.Frame, error) {
	ctx, span := s.tracer.Start(ctx, spanRender)
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	var fetchErr error

	if len(s.commits) > 0 {
		commit := s.commits[s.view.ActiveCommitIndex]

		snap, err := s.snapshotLocked(ctx, commit.ID)
		if err != nil {
			fetchErr = fmt.Errorf("%w: %w", ErrSnapshotFetch, err)
			s.lastErr = ErrSnapshotFetch
			observability.RecordSpanError(span, err, observability.ErrTypeDependencyUnavailable, observability.ErrSourceDependency)
			s.logger.ErrorContext(ctx, "snapshot fetch failed", "commit", commit.ShortID(), "error", err)
		} else {
			s.active = snap
			s.lastErr = nil
		}
	} else {
		s.active = nil
	}

	frame := s.assembler.Update(s.active, s.view)
	if frame.Relaid {
		s.dispatcher.SetItems(frame.Items, frame.CommitID)
	}

	s.frame = frame
	s.rendered = true

	s.metrics.RecordFrame(ctx, observability.FrameStats{
		ColorMode:    string(frame.ColorMode),
		Shown:        frame.Shown,
		UsedFallback: frame.UsedFallback,
		Reframed:     frame.Reframed,
	})

	span.SetAttributes(
		attribute.Int("scene.files.shown", frame.Shown),
		attribute.Int("scene.files.total", frame.Total),
		attribute.Bool("scene.fallback", frame.UsedFallback),
	)

	return frame, fetchErr
}

// snapshotLocked returns the cached snapshot for id, fetching it on a miss.
// The same *Snapshot is returned for every hit so the assembler can skip
// relayout.
func (s *Session) snapshotLocked(ctx context.Context, id string) (*scene.Snapshot, error) {
	if snap, ok := s.snapshots.Get(id); ok {
		return snap, nil
	}

	snap, err := s.source.Snapshot(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.skipVendor {
		snap = withoutVendored(snap)
	}

	s.snapshots.Put(id, snap)

	return snap, nil
}

// Pointer routes a pointer event on the file at index of the last frame.
// Out-of-range indices are ignored. A click returns the selection.
func (s *Session) Pointer(ctx context.Context, index int, event scene.PointerEvent) (scene.Selection, bool) {
	_, span := s.tracer.Start(ctx, spanPointer, trace.WithAttributes(
		attribute.String("viewer.event", event.String()),
		attribute.Int("viewer.index", index),
	))
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.dispatcher.Dispatch(index, event)
}

// Hovered returns the tooltip of the hovered file, if any.
func (s *Session) Hovered() (Tooltip, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tip, ok := s.dispatcher.Hovered()
	if !ok {
		return Tooltip{}, false
	}

	return Tooltip{Tooltip: tip, Language: Language(tip.Path)}, true
}

// Inspect fetches the before/after content of a selected file and computes
// its line statistics.
func (s *Session) Inspect(ctx context.Context, sel scene.Selection) (Inspection, error) {
	ctx, span := s.tracer.Start(ctx, spanInspect, trace.WithAttributes(
		attribute.String("commit.id", sel.CommitID),
	))
	defer span.End()

	diff, err := s.source.Diff(ctx, sel.CommitID, sel.Path)
	if err != nil {
		errType := observability.ErrTypeDependencyUnavailable
		if errors.Is(err, snapshots.ErrNotFound) {
			errType = observability.ErrTypeNotFound
		}

		observability.RecordSpanError(span, err, errType, observability.ErrSourceDependency)

		return Inspection{}, fmt.Errorf("inspect %s: %w", sel.Path, err)
	}

	return Inspection{
		Selection: sel,
		Stats:     diffstat.Compute(diff.Before, diff.After),
		Diff:      diff,
	}, nil
}

// Frame returns the last rendered frame.
func (s *Session) Frame() (scene.Frame, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.frame, s.rendered
}

// Directories lists the top-level directories of the active snapshot.
func (s *Session) Directories() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active == nil {
		return []string{}
	}

	return scene.Directories(s.active.Files)
}

// CacheStats reports snapshot cache counters.
func (s *Session) CacheStats() cache.Stats {
	return s.snapshots.Stats()
}

// Language guesses the programming language of a path from its name.
func Language(p string) string {
	return enry.GetLanguage(path.Base(p), nil)
}

func withoutVendored(snap *scene.Snapshot) *scene.Snapshot {
	files := make([]scene.FileRecord, 0, len(snap.Files))

	for _, f := range snap.Files {
		if enry.IsVendor(f.Path) {
			continue
		}

		files = append(files, f)
	}

	return &scene.Snapshot{CommitID: snap.CommitID, Files: files}
}

func clampIndex(i, n int) int {
	if n == 0 || i < 0 {
		return 0
	}

	if i >= n {
		return n - 1
	}

	return i
}
