package triage

import (
	"path"
	"strings"
)

// matchPath reports whether a repository-relative file path matches pattern.
// Patterns ending in "/" or "/**" match everything below that directory;
// patterns without a slash also match against the file's base name.
func matchPath(pattern, p string) bool {
	pattern = strings.TrimPrefix(strings.TrimSpace(pattern), "/")
	p = strings.TrimPrefix(p, "/")
	if pattern == "" {
		return false
	}

	if strings.HasSuffix(pattern, "/**") {
		pattern = strings.TrimSuffix(pattern, "**")
	}
	if strings.HasSuffix(pattern, "/") {
		return strings.HasPrefix(p, pattern)
	}

	if ok, _ := path.Match(pattern, p); ok {
		return true
	}
	if !strings.Contains(pattern, "/") {
		ok, _ := path.Match(pattern, path.Base(p))
		return ok
	}
	return false
}

func matchAny(patterns []string, p string) bool {
	for _, pattern := range patterns {
		if matchPath(pattern, p) {
			return true
		}
	}
	return false
}

// patternSpecificity counts the literal (wildcard-free) segments of pattern.
// ".github/workflows/" scores 2, "docs/" 1, "*.md" 0.
func patternSpecificity(pattern string) int {
	pattern = strings.Trim(strings.TrimSpace(pattern), "/")
	var n int
	for _, seg := range strings.Split(pattern, "/") {
		if seg != "" && !strings.ContainsAny(seg, "*?[") {
			n++
		}
	}
	return n
}
