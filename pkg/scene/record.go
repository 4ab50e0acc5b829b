package scene

import (
	"math"
	"slices"
	"strings"
)

// RootDirectory is the directory key for paths without a separator.
const RootDirectory = "root"

const pathSeparator = "/"

// FileRecord is the churn state of one file as of a commit.
type FileRecord struct {
	Path         string  `json:"path"          yaml:"path"`
	Churn        int     `json:"churn"         yaml:"churn"`
	HotspotScore float64 `json:"hotspot_score" yaml:"hotspot_score"`
}

// CommitRecord is one entry of the timeline.
type CommitRecord struct {
	ID        string `json:"id"        yaml:"id"`
	Timestamp int64  `json:"timestamp" yaml:"timestamp"`
	Message   string `json:"message"   yaml:"message"`
}

// ShortID returns the first seven characters of the commit id.
func (c CommitRecord) ShortID() string {
	const shortLen = 7

	if len(c.ID) <= shortLen {
		return c.ID
	}

	return c.ID[:shortLen]
}

// Snapshot is the full record set of one commit. The Assembler treats a
// *Snapshot as an identity: handing it the same pointer again means
// "unchanged", a different pointer means "new file set".
type Snapshot struct {
	CommitID string
	Files    []FileRecord
}

// NewSnapshot builds a snapshot with normalized records.
func NewSnapshot(commitID string, files []FileRecord) *Snapshot {
	normalized := make([]FileRecord, len(files))
	for i, f := range files {
		normalized[i] = f.Normalize()
	}

	return &Snapshot{CommitID: commitID, Files: normalized}
}

// Normalize enforces the record invariants: churn is never negative and the
// hotspot score lies in [0, 1]. Non-finite scores become zero.
func (f FileRecord) Normalize() FileRecord {
	if f.Churn < 0 {
		f.Churn = 0
	}

	f.HotspotScore = ClampUnit(f.HotspotScore)

	return f
}

// ClampUnit clamps v into [0, 1]; NaN maps to 0.
func ClampUnit(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return 0
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

// Directory returns the grouping key of a path: its first segment, or
// RootDirectory when the path has no separator.
func Directory(path string) string {
	first, _, found := strings.Cut(path, pathSeparator)
	if !found {
		return RootDirectory
	}

	return first
}

// Directories returns the sorted distinct directory keys of files.
func Directories(files []FileRecord) []string {
	seen := make(map[string]struct{}, len(files))
	dirs := make([]string, 0)

	for _, f := range files {
		dir := Directory(f.Path)
		if _, ok := seen[dir]; ok {
			continue
		}

		seen[dir] = struct{}{}
		dirs = append(dirs, dir)
	}

	slices.Sort(dirs)

	return dirs
}

// SelectDirectories keeps the files whose directory is in dirs. An empty
// selection returns files itself so the caller's set identity is preserved.
func SelectDirectories(files []FileRecord, dirs []string) []FileRecord {
	if len(dirs) == 0 {
		return files
	}

	wanted := make(map[string]struct{}, len(dirs))
	for _, d := range dirs {
		wanted[d] = struct{}{}
	}

	out := make([]FileRecord, 0, len(files))

	for _, f := range files {
		if _, ok := wanted[Directory(f.Path)]; ok {
			out = append(out, f)
		}
	}

	return out
}
