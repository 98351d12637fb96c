package httpmetrics

import "strings"

const idPlaceholder = "{id}"

// NormalizePath replaces numeric path segments so that /api/users/17 and
// /api/users/18 share one label value. Trailing slashes are dropped.
func NormalizePath(path string) string {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	for i, seg := range segments {
		if seg != "" && strings.TrimLeft(seg, "0123456789") == "" {
			segments[i] = idPlaceholder
		}
	}
	return "/" + strings.Join(segments, "/")
}
