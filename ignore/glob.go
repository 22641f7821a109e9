package ignore

import (
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// MatchPath reports whether relativePath matches pattern either as written
// or in its "**/pattern" form, so bare patterns match at any depth.
func MatchPath(pattern string, relativePath string) bool {
	pattern = strings.ReplaceAll(strings.TrimSpace(pattern), "\\", "/")
	if pattern == "" {
		return true
	}
	if ok, _ := doublestar.Match(pattern, relativePath); ok {
		return true
	}
	if strings.HasPrefix(pattern, "**/") {
		return false
	}
	ok, _ := doublestar.Match("**/"+pattern, relativePath)
	return ok
}

// MatchesExclude reports whether relativePath is dropped by pattern: a plain
// substring of the path, or a glob matching the whole path or any segment.
func MatchesExclude(pattern string, relativePath string) bool {
	pattern = strings.ReplaceAll(strings.TrimSpace(pattern), "\\", "/")
	if pattern == "" {
		return false
	}
	if strings.Contains(relativePath, pattern) {
		return true
	}
	if ok, _ := doublestar.Match(pattern, relativePath); ok {
		return true
	}
	for _, segment := range strings.Split(relativePath, "/") {
		if ok, _ := doublestar.Match(pattern, segment); ok {
			return true
		}
	}
	return false
}

// ValidPattern reports whether pattern is a well-formed glob.
func ValidPattern(pattern string) bool {
	return doublestar.ValidatePattern(strings.ReplaceAll(pattern, "\\", "/"))
}
