package scene

import (
	"cmp"
	"slices"
)

// FallbackLimit caps the number of records a fallback result may hold.
const FallbackLimit = 50

// Filter applies the hotspot threshold to files.
//
// With hotspotOnly unset, files is returned unchanged. Otherwise records with
// HotspotScore >= threshold are kept. When nothing passes but files is not
// empty, the result degrades to the FallbackLimit hottest records (stable on
// ties) and usedFallback is true, so the caller can tell this apart from an
// empty user-driven result.
func Filter(files []FileRecord, hotspotOnly bool, threshold float64) (result []FileRecord, usedFallback bool) {
	if !hotspotOnly {
		return files, false
	}

	if len(files) == 0 {
		return []FileRecord{}, false
	}

	threshold = ClampUnit(threshold)

	primary := make([]FileRecord, 0, len(files))

	for _, f := range files {
		if f.HotspotScore >= threshold {
			primary = append(primary, f)
		}
	}

	if len(primary) > 0 {
		return primary, false
	}

	return Hottest(files, FallbackLimit), true
}

// Hottest returns up to limit records ordered by descending hotspot score.
// Records with equal scores keep their input order.
func Hottest(files []FileRecord, limit int) []FileRecord {
	ranked := slices.Clone(files)

	slices.SortStableFunc(ranked, func(a, b FileRecord) int {
		return cmp.Compare(b.HotspotScore, a.HotspotScore)
	})

	return ranked[:min(limit, len(ranked))]
}
