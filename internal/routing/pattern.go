// Package routing implements route path patterns: validation at control
// plane write time, matching and rewriting on the data plane read path.
//
// A pattern is a slash-separated template. Segments are literals, `{name}`
// variables matching exactly one segment, or a single trailing `*` matching
// the remainder of the path.
package routing

import (
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// ValidatePattern checks a route path pattern.
func ValidatePattern(pattern string) error {
	if pattern == "" || !strings.HasPrefix(pattern, "/") {
		return fmt.Errorf("path pattern must start with '/'")
	}
	segs := splitSegments(pattern)
	for i, seg := range segs {
		switch {
		case seg == "*":
			if i != len(segs)-1 {
				return fmt.Errorf("wildcard '*' is only allowed as the final segment")
			}
		case strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "}"):
			name := seg[1 : len(seg)-1]
			if name == "" {
				return fmt.Errorf("empty variable segment in pattern %q", pattern)
			}
		case seg == "":
			return fmt.Errorf("empty segment in pattern %q", pattern)
		case strings.ContainsAny(seg, "{}*"):
			return fmt.Errorf("segment %q mixes literals with pattern syntax", seg)
		}
	}
	return nil
}

// Match reports whether path matches pattern.
func Match(pattern, path string) bool {
	ok, err := doublestar.Match(toGlob(pattern), strings.Trim(path, "/"))
	return err == nil && ok
}

// toGlob converts a route pattern to doublestar syntax: `{name}` becomes a
// single-segment `*`, the trailing `*` becomes `**`.
func toGlob(pattern string) string {
	segs := splitSegments(pattern)
	out := make([]string, len(segs))
	for i, seg := range segs {
		switch {
		case seg == "*" && i == len(segs)-1:
			out[i] = "**"
		case strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "}"):
			out[i] = "*"
		default:
			out[i] = seg
		}
	}
	return strings.Join(out, "/")
}

// Overlaps reports whether two patterns can both match some path. The
// control plane rejects overlapping patterns within a tenant at write time,
// so request-time matches are unambiguous by construction.
func Overlaps(a, b string) bool {
	sa, wildA := trimWildcard(splitSegments(a))
	sb, wildB := trimWildcard(splitSegments(b))

	n := len(sa)
	if len(sb) < n {
		n = len(sb)
	}
	for i := 0; i < n; i++ {
		if isVar(sa[i]) || isVar(sb[i]) {
			continue
		}
		if sa[i] != sb[i] {
			return false
		}
	}

	switch {
	case len(sa) == len(sb):
		return true
	case len(sa) < len(sb):
		return wildA
	default:
		return wildB
	}
}

// MethodsOverlap reports whether two method lists share a method. An empty
// list means all methods.
func MethodsOverlap(a, b []string) bool {
	if len(a) == 0 || len(b) == 0 {
		return true
	}
	for _, m := range a {
		for _, n := range b {
			if m == n {
				return true
			}
		}
	}
	return false
}

// Rewrite computes the outbound path for a matched request. The static
// prefix of the pattern (segments before the first variable or wildcard) is
// replaced by rewritePrefix; the rest of the actual path is carried over.
// With an empty rewritePrefix the path is forwarded unchanged.
func Rewrite(pattern, rewritePrefix, path string) string {
	if rewritePrefix == "" {
		return path
	}

	static := 0
	for _, seg := range splitSegments(pattern) {
		if seg == "*" || isVar(seg) {
			break
		}
		static++
	}

	pathSegs := splitSegments(path)
	if static > len(pathSegs) {
		static = len(pathSegs)
	}
	suffix := strings.Join(pathSegs[static:], "/")
	if suffix == "" {
		return normalizeSlash(rewritePrefix)
	}
	return singleJoinSlash(normalizeSlash(rewritePrefix), suffix)
}

func splitSegments(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}

func trimWildcard(segs []string) ([]string, bool) {
	if len(segs) > 0 && segs[len(segs)-1] == "*" {
		return segs[:len(segs)-1], true
	}
	return segs, false
}

func isVar(seg string) bool {
	return strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "}")
}

func normalizeSlash(p string) string {
	if !strings.HasPrefix(p, "/") {
		return "/" + p
	}
	return p
}

// singleJoinSlash joins two URL path segments with exactly one slash.
func singleJoinSlash(a, b string) string {
	aslash := strings.HasSuffix(a, "/")
	bslash := strings.HasPrefix(b, "/")
	switch {
	case aslash && bslash:
		return a + b[1:]
	case !aslash && !bslash:
		return a + "/" + b
	}
	return a + b
}
