// Package ignore decides which directories are descended into and which files are indexed.
package ignore

import (
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	gitignore "github.com/denormal/go-gitignore"

	"github.com/lexandro/localsearch-mcp/language"
)

// Matcher combines include/exclude rules with the workspace .gitignore.
// Thread-safe: Reload() acquires a write lock, the checks acquire a read lock.
type Matcher struct {
	mu               sync.RWMutex
	rootDir          string
	includeExt       map[string]struct{}
	includeNames     map[string]struct{}
	excludeDirs      map[string]struct{}
	excludeGlobs     []string
	respectGitignore bool
	gitIgnore        gitignore.GitIgnore
}

// MatcherOptions configures the matcher. Extensions may be given with or
// without the leading dot.
type MatcherOptions struct {
	RootDir           string
	IncludeExtensions []string
	IncludeFilenames  []string
	ExcludeDirs       []string
	ExcludeGlobs      []string
	RespectGitignore  bool
}

// NewMatcher builds a matcher from the given rules.
func NewMatcher(options MatcherOptions) *Matcher {
	matcher := &Matcher{
		rootDir:          options.RootDir,
		includeExt:       toSet(language.NormalizeFileTypes(options.IncludeExtensions)),
		includeNames:     toSet(options.IncludeFilenames),
		excludeDirs:      toSet(options.ExcludeDirs),
		respectGitignore: options.RespectGitignore,
	}
	for _, pattern := range options.ExcludeGlobs {
		pattern = strings.ReplaceAll(strings.TrimSpace(pattern), "\\", "/")
		if pattern != "" {
			matcher.excludeGlobs = append(matcher.excludeGlobs, pattern)
		}
	}
	if options.RespectGitignore {
		matcher.gitIgnore = loadIgnoreFile(filepath.Join(options.RootDir, ".gitignore"), options.RootDir)
	}
	return matcher
}

// ShouldSkipDir reports whether the directory at relativePath (forward
// slashes, relative to the root) must not be descended into.
func (m *Matcher) ShouldSkipDir(relativePath string) bool {
	if _, excluded := m.excludeDirs[path.Base(relativePath)]; excluded {
		return true
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.gitIgnore != nil {
		if match := m.gitIgnore.Relative(relativePath, true); match != nil && match.Ignore() {
			return true
		}
	}
	return false
}

// ShouldInclude reports whether the file at relativePath is indexed.
// Exclude globs are tested first, against both the bare name and the relative path.
func (m *Matcher) ShouldInclude(relativePath string) bool {
	name := path.Base(relativePath)
	if m.matchesExcludeGlob(name, relativePath) {
		return false
	}
	if !m.matchesInclude(name) {
		return false
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.gitIgnore != nil {
		if match := m.gitIgnore.Relative(relativePath, false); match != nil && match.Ignore() {
			return false
		}
	}
	return true
}

func (m *Matcher) matchesExcludeGlob(name string, relativePath string) bool {
	for _, pattern := range m.excludeGlobs {
		if ok, _ := doublestar.Match(pattern, name); ok {
			return true
		}
		if ok, _ := doublestar.Match(pattern, relativePath); ok {
			return true
		}
	}
	return false
}

func (m *Matcher) matchesInclude(name string) bool {
	if _, ok := m.includeNames[name]; ok {
		return true
	}
	fileType := language.FileType(name)
	if fileType == "" {
		return false
	}
	_, ok := m.includeExt[fileType]
	return ok
}

// Reload re-reads the root .gitignore. Scans pick it up on their next pass.
func (m *Matcher) Reload() {
	if !m.respectGitignore {
		return
	}
	newGitIgnore := loadIgnoreFile(filepath.Join(m.rootDir, ".gitignore"), m.rootDir)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.gitIgnore = newGitIgnore
}

// loadIgnoreFile reads an ignore file and creates a GitIgnore matcher from it.
// Uses io.Reader approach to ensure the file handle is properly closed on Windows.
func loadIgnoreFile(filePath string, baseDir string) gitignore.GitIgnore {
	f, err := os.Open(filePath)
	if err != nil {
		return nil
	}
	defer f.Close()

	return gitignore.New(f, baseDir, nil)
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			set[v] = struct{}{}
		}
	}
	return set
}
