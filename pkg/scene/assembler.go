package scene

import (
	"slices"
	"strings"
)

// DefaultRotationStep is the per-tick rotation of the whole scene, in radians.
const DefaultRotationStep = 0.005

// ViewState is the UI-owned input of a frame. The Assembler only reads it.
type ViewState struct {
	ActiveCommitIndex   int       `json:"active_commit_index"  yaml:"active_commit_index"`
	HotspotOnly         bool      `json:"hotspot_only"         yaml:"hotspot_only"`
	Threshold           float64   `json:"threshold"            yaml:"threshold"`
	ColorMode           ColorMode `json:"color_mode"           yaml:"color_mode"`
	SelectedDirectories []string  `json:"selected_directories" yaml:"selected_directories"`
	PathGlobs           []string  `json:"path_globs"           yaml:"path_globs"`
	ResetCounter        int       `json:"reset_counter"        yaml:"reset_counter"`
}

// Frame is everything a renderer needs to draw one tick. Items are shared
// with the Assembler's cache and must be treated as read-only.
type Frame struct {
	CommitID     string           `json:"commit_id"     yaml:"commit_id"`
	Items        []PositionedFile `json:"items"         yaml:"items"`
	Camera       CameraPose       `json:"camera"        yaml:"camera"`
	Rotation     float64          `json:"rotation"      yaml:"rotation"`
	Threshold    float64          `json:"threshold"     yaml:"threshold"`
	ColorMode    ColorMode        `json:"color_mode"    yaml:"color_mode"`
	UsedFallback bool             `json:"used_fallback" yaml:"used_fallback"`
	Shown        int              `json:"shown"         yaml:"shown"`
	Total        int              `json:"total"         yaml:"total"`
	Empty        bool             `json:"empty"         yaml:"empty"`

	// Which stages ran for this frame.
	Relaid    bool `json:"-" yaml:"-"`
	Recolored bool `json:"-" yaml:"-"`
	Reframed  bool `json:"-" yaml:"-"`
}

// WorldPosition returns item i's position after the global rotation.
func (f *Frame) WorldPosition(i int) Vec3 {
	return f.Items[i].Position.RotateY(f.Rotation)
}

// AssemblerOptions configures an Assembler.
type AssemblerOptions struct {
	// FOV is the vertical field of view in degrees. Zero means DefaultFOV.
	FOV float64
	// RotationStep is added to the rotation on every Tick. Zero means
	// DefaultRotationStep; use a negative value to spin the other way.
	RotationStep float64
}

// selectionKey captures every input that changes which records are shown.
type selectionKey struct {
	snapshot    *Snapshot
	hotspotOnly bool
	threshold   float64
	dirs        string
	globs       string
}

// Assembler composes filter, layout, classification and camera framing.
// Each stage reruns only when its inputs differ from the last call, compared
// explicitly: the snapshot by pointer identity, the rest by value. The camera
// is refit only for a new filtered set or a bumped reset counter, so a pose
// set through SetCamera survives unrelated updates.
type Assembler struct {
	fov          float64
	rotationStep float64

	haveSelection bool
	selKey        selectionKey
	filtered      []FileRecord
	usedFallback  bool
	generation    uint64

	laidOutGen uint64
	items      []PositionedFile

	colorMode      ColorMode
	colorThreshold float64
	coloredGen     uint64

	framedGen uint64
	lastReset int
	camera    CameraPose

	rotation float64
}

// NewAssembler returns an Assembler with no cached state.
func NewAssembler(opts AssemblerOptions) *Assembler {
	fov := opts.FOV
	if fov <= 0 {
		fov = DefaultFOV
	}

	step := opts.RotationStep
	if step == 0 {
		step = DefaultRotationStep
	}

	return &Assembler{fov: fov, rotationStep: step}
}

// Update brings the cached stages up to date with snap and view and returns
// the resulting frame. A nil snap is an empty file set. Items of a returned
// frame are never modified by later calls.
func (a *Assembler) Update(snap *Snapshot, view ViewState) Frame {
	threshold := ClampUnit(view.Threshold)

	mode := view.ColorMode
	if mode == "" {
		mode = ColorByChurn
	}

	key := selectionKey{
		snapshot:    snap,
		hotspotOnly: view.HotspotOnly,
		dirs:        joinKey(view.SelectedDirectories),
		globs:       joinKey(view.PathGlobs),
	}

	// The threshold only shapes the selection while hotspot filtering is on.
	if view.HotspotOnly {
		key.threshold = threshold
	}

	if !a.haveSelection || key != a.selKey {
		a.selKey = key
		a.haveSelection = true
		a.filtered, a.usedFallback = selectFiles(snap, view, threshold)
		a.generation++
	}

	frame := Frame{
		Rotation:     a.rotation,
		Threshold:    threshold,
		ColorMode:    mode,
		UsedFallback: a.usedFallback,
		Shown:        len(a.filtered),
		Empty:        len(a.filtered) == 0,
	}

	if snap != nil {
		frame.CommitID = snap.CommitID
		frame.Total = len(snap.Files)
	}

	if a.laidOutGen != a.generation {
		a.items = Layout(a.filtered)
		a.laidOutGen = a.generation
		frame.Relaid = true
	}

	if a.coloredGen != a.generation || mode != a.colorMode || threshold != a.colorThreshold {
		// Frames already returned share a.items; recolor a private copy.
		if !frame.Relaid {
			a.items = slices.Clone(a.items)
		}

		Colorize(a.items, mode, threshold)
		a.coloredGen = a.generation
		a.colorMode = mode
		a.colorThreshold = threshold
		frame.Recolored = true
	}

	if a.framedGen != a.generation || view.ResetCounter != a.lastReset {
		a.camera = FrameCamera(Positions(a.items), a.fov)
		a.framedGen = a.generation
		a.lastReset = view.ResetCounter
		frame.Reframed = true
	}

	frame.Items = a.items
	frame.Camera = a.camera

	return frame
}

// Tick advances the global rotation by one step.
func (a *Assembler) Tick() {
	a.rotation += a.rotationStep
}

// Rotation returns the accumulated global rotation in radians.
func (a *Assembler) Rotation() float64 { return a.rotation }

// Camera returns the current camera pose.
func (a *Assembler) Camera() CameraPose { return a.camera }

// SetCamera records a pose produced by user manipulation (orbit, zoom, pan).
// It is kept until the filtered set changes or a reset is requested.
func (a *Assembler) SetCamera(pose CameraPose) { a.camera = pose }

// FOV returns the field of view used for framing, in degrees.
func (a *Assembler) FOV() float64 { return a.fov }

func selectFiles(snap *Snapshot, view ViewState, threshold float64) ([]FileRecord, bool) {
	if snap == nil {
		return []FileRecord{}, false
	}

	files := SelectDirectories(snap.Files, view.SelectedDirectories)
	files = MatchGlobs(files, view.PathGlobs)

	return Filter(files, view.HotspotOnly, threshold)
}

func joinKey(parts []string) string {
	if len(parts) == 0 {
		return ""
	}

	sorted := slices.Clone(parts)
	slices.Sort(sorted)

	return strings.Join(slices.Compact(sorted), "\x00")
}
