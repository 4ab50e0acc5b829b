package scene

import (
	"errors"
	"fmt"

	"github.com/bmatcuk/doublestar/v4"
)

// ErrBadGlob is returned when a path glob cannot be parsed.
var ErrBadGlob = errors.New("invalid path glob")

// ValidateGlobs reports the first malformed pattern in globs.
func ValidateGlobs(globs []string) error {
	for _, g := range globs {
		if !doublestar.ValidatePattern(g) {
			return fmt.Errorf("%w: %q", ErrBadGlob, g)
		}
	}

	return nil
}

// MatchGlobs keeps the files whose path matches at least one of globs
// ("**" spans directories). With no globs it returns files unchanged.
// Malformed patterns match nothing; use ValidateGlobs to reject them early.
func MatchGlobs(files []FileRecord, globs []string) []FileRecord {
	if len(globs) == 0 {
		return files
	}

	out := make([]FileRecord, 0, len(files))

	for _, f := range files {
		if matchAny(globs, f.Path) {
			out = append(out, f)
		}
	}

	return out
}

func matchAny(globs []string, path string) bool {
	for _, g := range globs {
		ok, err := doublestar.Match(g, path)
		if err == nil && ok {
			return true
		}
	}

	return false
}
