// Package scanner walks a workspace and yields the files eligible for indexing.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"path/filepath"
	"time"

	"github.com/lexandro/localsearch-mcp/ignore"
)

// ErrRootUnreadable is returned when the walk cannot open the workspace root.
var ErrRootUnreadable = errors.New("workspace root unreadable")

// Candidate is a file that passed the include/exclude rules.
type Candidate struct {
	AbsPath string
	RelPath string // forward slashes, relative to the root
	Size    int64
	ModTime time.Time
}

// EntryError reports a file or directory the walk could not stat or read.
// A directory error means the subtree was not observed.
type EntryError struct {
	RelPath string
	IsDir   bool
	Err     error
}

func (e *EntryError) Error() string {
	return fmt.Sprintf("scanning %s: %v", e.RelPath, e.Err)
}

func (e *EntryError) Unwrap() error { return e.Err }

// Scanner walks one root with one set of rules.
type Scanner struct {
	rootDir string
	matcher *ignore.Matcher
}

// New creates a scanner for rootDir.
func New(rootDir string, matcher *ignore.Matcher) *Scanner {
	return &Scanner{rootDir: rootDir, matcher: matcher}
}

// Root returns the walked directory.
func (s *Scanner) Root() string { return s.rootDir }

// ReloadRules re-reads the root .gitignore before a pass.
func (s *Scanner) ReloadRules() { s.matcher.Reload() }

// Walk yields candidates depth-first in lexical order. Excluded directories
// are pruned before descent. Each call walks the tree from scratch.
// An unreadable root yields a single ErrRootUnreadable error.
func (s *Scanner) Walk(ctx context.Context) iter.Seq2[Candidate, error] {
	return func(yield func(Candidate, error) bool) {
		stopped := false
		walkErr := filepath.WalkDir(s.rootDir, func(path string, d fs.DirEntry, err error) error {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if path == s.rootDir {
				if err != nil {
					return fmt.Errorf("%w: %v", ErrRootUnreadable, err)
				}
				if !d.IsDir() {
					return fmt.Errorf("%w: not a directory", ErrRootUnreadable)
				}
				return nil
			}

			relPath, relErr := filepath.Rel(s.rootDir, path)
			if relErr != nil {
				return relErr
			}
			relPath = filepath.ToSlash(relPath)

			if err != nil {
				isDir := d == nil || d.IsDir()
				if !yield(Candidate{}, &EntryError{RelPath: relPath, IsDir: isDir, Err: err}) {
					stopped = true
					return fs.SkipAll
				}
				if isDir && d != nil {
					return fs.SkipDir
				}
				return nil
			}

			if d.IsDir() {
				if s.matcher.ShouldSkipDir(relPath) {
					return fs.SkipDir
				}
				return nil
			}
			if !d.Type().IsRegular() {
				return nil
			}
			if !s.matcher.ShouldInclude(relPath) {
				return nil
			}

			info, infoErr := d.Info()
			if infoErr != nil {
				if !yield(Candidate{}, &EntryError{RelPath: relPath, Err: infoErr}) {
					stopped = true
					return fs.SkipAll
				}
				return nil
			}

			candidate := Candidate{
				AbsPath: path,
				RelPath: relPath,
				Size:    info.Size(),
				ModTime: info.ModTime(),
			}
			if !yield(candidate, nil) {
				stopped = true
				return fs.SkipAll
			}
			return nil
		})
		if walkErr != nil && !stopped {
			yield(Candidate{}, walkErr)
		}
	}
}
