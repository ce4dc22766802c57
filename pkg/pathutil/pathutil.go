package pathutil

import "strings"

// HasSegmentPrefix reports whether path starts with prefix on a segment
// boundary: "/v1/orders" matches "/v1/orders" and "/v1/orders/7" but not
// "/v1/ordersx". Matching is case-insensitive and ignores a trailing slash
// on prefix.
func HasSegmentPrefix(path, prefix string) bool {
	prefix = strings.TrimSuffix(prefix, "/")
	if prefix == "" {
		return true
	}

	if len(path) < len(prefix) || !strings.EqualFold(path[:len(prefix)], prefix) {
		return false
	}

	return len(path) == len(prefix) || path[len(prefix)] == '/'
}

// LongestMatch returns the index of the longest prefix in prefixes that
// matches path, or -1 when none does.
func LongestMatch(path string, prefixes []string) int {
	best := -1
	bestLen := -1

	for i, prefix := range prefixes {
		p := strings.TrimSuffix(prefix, "/")
		if len(p) > bestLen && HasSegmentPrefix(path, p) {
			best = i
			bestLen = len(p)
		}
	}

	return best
}

// Rewrite replaces the matched prefix of path with replacement.
func Rewrite(path, prefix, replacement string) string {
	prefix = strings.TrimSuffix(prefix, "/")
	rest := path[len(prefix):]

	replacement = strings.TrimSuffix(replacement, "/")
	out := replacement + rest
	if out == "" {
		return "/"
	}
	if out[0] != '/' {
		out = "/" + out
	}
	return out
}
