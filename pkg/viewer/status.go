package viewer

import (
	"fmt"
	"strings"
	"time"

	"github.com/Sumatoshi-tech/timewarp/pkg/scene"
)

// MaxDirectoryChips caps the directory filter list.
const MaxDirectoryChips = 24

const (
	noFilesText  = "No files to display for this commit"
	commitLayout = "2006-01-02 15:04:05"
)

// Status is the text shown around the scene.
type Status struct {
	// Position is "index+1 / total", or "0 / 0" before the timeline loads.
	Position string `json:"position"`

	// Commit is "local time • short id — message" for the active commit.
	Commit string `json:"commit,omitempty"`

	// Summary is "Showing shown / total files • τ=0.50".
	Summary string `json:"summary"`

	// Banner explains a hotspot fallback. Empty otherwise.
	Banner string `json:"banner,omitempty"`

	// Overlay is set when a loaded timeline has nothing to show.
	Overlay string `json:"overlay,omitempty"`

	// Error is the last fetch failure shown to the user.
	Error string `json:"error,omitempty"`

	// Directories are the selectable top-level directories.
	Directories []string `json:"directories"`
}

// Status describes the last rendered frame.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Counts and τ both describe the last rendered frame.
	threshold := s.view.Threshold
	if s.rendered {
		threshold = s.frame.Threshold
	}

	st := Status{
		Position:    PositionText(s.view.ActiveCommitIndex, len(s.commits)),
		Summary:     SummaryText(s.frame.Shown, s.frame.Total, threshold),
		Directories: []string{},
	}

	if len(s.commits) > 0 {
		st.Commit = CommitText(s.commits[s.view.ActiveCommitIndex], time.Local)
	}

	if s.frame.UsedFallback {
		st.Banner = FallbackText(threshold)
	}

	if s.rendered && len(s.commits) > 0 && s.frame.Shown == 0 {
		st.Overlay = noFilesText
	}

	if s.lastErr != nil {
		st.Error = s.lastErr.Error()
	}

	if s.active != nil {
		dirs := scene.Directories(s.active.Files)
		st.Directories = dirs[:min(len(dirs), MaxDirectoryChips)]
	}

	return st
}

// PositionText renders the timeline position.
func PositionText(index, total int) string {
	if total == 0 {
		return "0 / 0"
	}

	return fmt.Sprintf("%d / %d", index+1, total)
}

// SummaryText renders the shown/total counter with the threshold.
func SummaryText(shown, total int, threshold float64) string {
	return fmt.Sprintf("Showing %d / %d files • τ=%.2f", shown, total, threshold)
}

// FallbackText is the banner shown when no file met the threshold.
func FallbackText(threshold float64) string {
	return fmt.Sprintf("No files met hotspot threshold %s. Showing top hottest files.", formatThreshold(threshold))
}

// CommitText renders a commit's time in loc, its short id and its message.
func CommitText(c scene.CommitRecord, loc *time.Location) string {
	when := time.Unix(c.Timestamp, 0).In(loc).Format(commitLayout)

	return fmt.Sprintf("%s • %s — %s", when, c.ShortID(), strings.TrimSpace(c.Message))
}

// formatThreshold prints the threshold without trailing zeros.
func formatThreshold(v float64) string {
	return fmt.Sprintf("%g", v)
}
