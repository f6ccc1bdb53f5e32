package lisa

import (
	"cmp"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Version identifies the Inovesa release that wrote an archive. Versions are
// totally ordered by major, minor and patch.
type Version struct {
	Major, Minor, Patch int
}

// Epoch boundaries that change how an archive is read.
var (
	// Versions below LegacyBefore (in practice v0.9.x) are legacy.
	LegacyBefore = Version{0, 10, 0}
	// SourceMapAfter: the source_map quantity exists in versions strictly
	// greater than this one.
	SourceMapAfter = Version{0, 13, 0}
	// LengthRecomputeFrom starts the era whose stored bunch length is
	// recomputed from the bunch profile.
	LengthRecomputeFrom = Version{0, 14, 0}
	// LengthFixed is the first release storing a usable bunch length.
	LengthFixed = Version{1, 0, 0}
	// UnitNamesRenamed is the first release using the short factor
	// attribute names (Meter instead of Factor4Meters).
	UnitNamesRenamed = Version{0, 15, 1}
)

// Compare returns -1, 0 or +1 depending on whether v is less than, equal to
// or greater than o.
func (v Version) Compare(o Version) int {
	if c := cmp.Compare(v.Major, o.Major); c != 0 {
		return c
	}
	if c := cmp.Compare(v.Minor, o.Minor); c != 0 {
		return c
	}
	return cmp.Compare(v.Patch, o.Patch)
}

// Less reports whether v sorts before o.
func (v Version) Less(o Version) bool { return v.Compare(o) < 0 }

// AtLeast reports whether v is o or later.
func (v Version) AtLeast(o Version) bool { return v.Compare(o) >= 0 }

// Legacy reports whether v belongs to the oldest supported era.
func (v Version) Legacy() bool { return v.Less(LegacyBefore) }

func (v Version) String() string {
	return fmt.Sprintf("v%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// ParseVersion parses "0.15.1", "v0.15.1", "0.15" and the short archive
// form "v15-1" (major 0, minor 15, patch 1).
func ParseVersion(s string) (Version, error) {
	orig := s
	s = strings.TrimPrefix(strings.TrimSpace(s), "v")

	var parts []string
	if strings.Contains(s, "-") && !strings.Contains(s, ".") {
		parts = append([]string{"0"}, strings.SplitN(s, "-", 2)...)
	} else {
		parts = strings.Split(s, ".")
	}
	if len(parts) < 2 || len(parts) > 3 {
		return Version{}, fmt.Errorf("invalid version %q", orig)
	}

	var nums [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return Version{}, fmt.Errorf("invalid version %q", orig)
		}
		nums[i] = n
	}
	return Version{nums[0], nums[1], nums[2]}, nil
}

// versionFromValues builds a version from the numeric tag stored in an
// archive. A missing patch component reads as zero.
func versionFromValues(vals []float64) (Version, error) {
	if len(vals) < 2 {
		return Version{}, fmt.Errorf("%w: version tag has %d components", ErrCorruptArchive, len(vals))
	}
	var nums [3]int
	for i := 0; i < len(vals) && i < 3; i++ {
		if vals[i] < 0 || vals[i] != math.Trunc(vals[i]) {
			return Version{}, fmt.Errorf("%w: version component %v", ErrCorruptArchive, vals[i])
		}
		nums[i] = int(vals[i])
	}
	return Version{nums[0], nums[1], nums[2]}, nil
}
