package helpers

import (
	"strings"

	"loom/internal/shared/util"
)

func HasWildcard(pattern string) bool {
	return strings.ContainsAny(pattern, "*?[]{}")
}

// IsPathOverlap reports whether one path contains the other. Source
// roots must not overlap or a file would belong to two roots at once.
func IsPathOverlap(a, b string) bool {
	return util.HasPathPrefix(a, b) || util.HasPathPrefix(b, a)
}
