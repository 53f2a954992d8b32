package content

import (
	"path"
	"strings"
)

// NormalizePath canonicalizes a route path: query and fragment are dropped,
// a leading slash is ensured and the result is cleaned. Only the root keeps a
// trailing slash.
func NormalizePath(p string) string {
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return path.Clean(p)
}
