// Package diffstat computes line-level change statistics for the before and
// after contents of one file in one commit.
package diffstat

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// DefaultTimeout bounds a single diff computation.
const DefaultTimeout = time.Second

// sniffLength is how far into a side Compute looks for a NUL byte.
const sniffLength = 8000

// Options tune Compute.
type Options struct {
	// Timeout bounds the diff. Zero uses DefaultTimeout.
	Timeout time.Duration

	// IgnoreWhitespace drops spaces before comparing lines.
	IgnoreWhitespace bool

	// DisableCleanup skips the semantic cleanup pass.
	DisableCleanup bool
}

// Stats summarizes a line diff. A deleted line immediately replaced by an
// inserted one counts as Changed rather than as one Removed plus one Added.
type Stats struct {
	OldLines int `json:"old_lines" yaml:"old_lines"`
	NewLines int `json:"new_lines" yaml:"new_lines"`
	Added    int `json:"added"     yaml:"added"`
	Removed  int `json:"removed"   yaml:"removed"`
	Changed  int `json:"changed"   yaml:"changed"`
	Hunks    int `json:"hunks"     yaml:"hunks"`

	// Binary is set when either side holds a NUL byte. Line counts are then
	// left at zero.
	Binary bool `json:"binary,omitempty" yaml:"binary,omitempty"`
}

// Churn is the number of lines touched.
func (s Stats) Churn() int {
	return s.Added + s.Removed + s.Changed
}

// String renders the stats as "+added -removed ~changed".
func (s Stats) String() string {
	if s.Binary {
		return "binary"
	}

	return fmt.Sprintf("+%d -%d ~%d", s.Added, s.Removed, s.Changed)
}

// Compute diffs before against after line by line with default options.
func Compute(before, after string) Stats {
	return ComputeWith(before, after, Options{})
}

// ComputeWith diffs before against after line by line.
func ComputeWith(before, after string, opts Options) Stats {
	if isBinary(before) || isBinary(after) {
		return Stats{Binary: true}
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	dmp := diffmatchpatch.New()
	dmp.DiffTimeout = timeout

	src, dst, _ := dmp.DiffLinesToRunes(
		stripWhitespace(before, opts.IgnoreWhitespace),
		stripWhitespace(after, opts.IgnoreWhitespace),
	)

	diffs := dmp.DiffMainRunes(src, dst, false)
	if !opts.DisableCleanup {
		diffs = dmp.DiffCleanupMerge(dmp.DiffCleanupSemanticLossless(diffs))
	}

	stats := lineStats(diffs)
	stats.OldLines = len(src)
	stats.NewLines = len(dst)

	return stats
}

// lineStats walks line-mode diffs where each rune stands for one line.
func lineStats(diffs []diffmatchpatch.Diff) Stats {
	var (
		stats          Stats
		removedPending int
		inHunk         bool
	)

	for _, edit := range diffs {
		if edit.Type == diffmatchpatch.DiffEqual {
			stats.Removed += removedPending
			removedPending = 0
			inHunk = false

			continue
		}

		if !inHunk {
			stats.Hunks++
			inHunk = true
		}

		switch edit.Type {
		case diffmatchpatch.DiffInsert:
			delta := utf8.RuneCountInString(edit.Text)
			if removedPending > delta {
				stats.Changed += delta
				stats.Removed += removedPending - delta
			} else {
				stats.Changed += removedPending
				stats.Added += delta - removedPending
			}

			removedPending = 0
		case diffmatchpatch.DiffDelete:
			stats.Removed += removedPending
			removedPending = utf8.RuneCountInString(edit.Text)
		case diffmatchpatch.DiffEqual:
		}
	}

	stats.Removed += removedPending

	return stats
}

func isBinary(str string) bool {
	return strings.IndexByte(str[:min(len(str), sniffLength)], 0) >= 0
}

func stripWhitespace(str string, ignore bool) string {
	if ignore {
		return strings.ReplaceAll(str, " ", "")
	}

	return str
}
