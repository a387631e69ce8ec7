package sources

import (
	"fmt"
	"strings"
)

// Location identifies one release pocket of the cloud archive, e.g.
// xenial-updates/mitaka.
type Location struct {
	Distribution string
	Release      string
}

func (l Location) String() string {
	return l.Distribution + "/" + l.Release
}

// Proposed reports whether the location lives in a -proposed pocket.
func (l Location) Proposed() bool {
	return strings.Index(l.Distribution, "-proposed") > 0
}

// DisplayRelease returns the release name as presented to users: the
// release, suffixed with -proposed for locations in a proposed pocket.
func (l Location) DisplayRelease() string {
	if l.Proposed() {
		return l.Release + "-proposed"
	}
	return l.Release
}

// scratchName is the file name the location's index is stored under within
// the scratch directory. It is unique per location.
func (l Location) scratchName(indexFile string) string {
	return fmt.Sprintf("%s_%s_%s", l.Distribution, l.Release, indexFile)
}
