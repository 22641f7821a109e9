package search

import (
	"slices"
	"time"

	"github.com/lexandro/localsearch-mcp/ignore"
	"github.com/lexandro/localsearch-mcp/language"
)

// filter is the conjunction of file-type, path-glob and exclude rules.
type filter struct {
	fileTypes       []string
	pathPattern     string
	excludePatterns []string
}

func newFilter(options Options) filter {
	return filter{
		fileTypes:       language.NormalizeFileTypes(options.FileTypes),
		pathPattern:     options.PathPattern,
		excludePatterns: options.ExcludePatterns,
	}
}

func (f filter) active() bool {
	return len(f.fileTypes) > 0 || f.pathPattern != "" || len(f.excludePatterns) > 0
}

func (f filter) accepts(path string) bool {
	if len(f.fileTypes) > 0 && !slices.Contains(f.fileTypes, language.FileType(path)) {
		return false
	}
	if f.pathPattern != "" && !ignore.MatchPath(f.pathPattern, path) {
		return false
	}
	for _, pattern := range f.excludePatterns {
		if ignore.MatchesExclude(pattern, path) {
			return false
		}
	}
	return true
}

// RecencyMultiplier favours recently modified files: x1.5 under a day,
// x1.3 under a week, x1.1 under thirty days, x1.0 otherwise.
func RecencyMultiplier(now time.Time, mtime int64) float64 {
	age := now.Sub(time.Unix(mtime, 0))
	switch {
	case age < 24*time.Hour:
		return 1.5
	case age < 7*24*time.Hour:
		return 1.3
	case age < 30*24*time.Hour:
		return 1.1
	default:
		return 1.0
	}
}
