package index

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/lexandro/localsearch-mcp/ignore"
	"github.com/lexandro/localsearch-mcp/language"
)

const (
	DefaultListLimit = 100
	MaxListLimit     = 500
)

// ListOptions filters a metadata listing.
type ListOptions struct {
	Repo          string
	PathPattern   string
	FileTypes     []string
	IncludeHidden bool
	Limit         int
	Offset        int
}

// ListedFile is a metadata-only row.
type ListedFile struct {
	Repo     string `json:"repo"`
	Path     string `json:"path"`
	Mtime    int64  `json:"mtime"`
	Size     int64  `json:"size"`
	FileType string `json:"file_type"`
	Language string `json:"language"`
}

// RepoCount is one entry of the repo breakdown.
type RepoCount struct {
	Repo      string `json:"repo"`
	FileCount int    `json:"file_count"`
}

// ListResult is a page of files plus the summary of the whole listing.
type ListResult struct {
	Files         []ListedFile `json:"files"`
	Total         int          `json:"total"`
	Returned      int          `json:"returned"`
	Offset        int          `json:"offset"`
	Limit         int          `json:"limit"`
	Repos         []RepoCount  `json:"repos"`
	IncludeHidden bool         `json:"include_hidden"`
}

// ListFiles returns stored file metadata (never content) in repo, path order.
// Total counts every row passing the filters; Repos breaks down the whole index.
func (s *Store) ListFiles(ctx context.Context, options ListOptions) (ListResult, error) {
	if err := s.checkOpen(); err != nil {
		return ListResult{}, err
	}
	limit := options.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	limit = min(limit, MaxListLimit)
	offset := max(options.Offset, 0)

	pattern := strings.ReplaceAll(strings.TrimSpace(options.PathPattern), "\\", "/")
	if pattern != "" && !ignore.ValidPattern(pattern) {
		return ListResult{}, fmt.Errorf("invalid path pattern: %s", options.PathPattern)
	}
	fileTypes := language.NormalizeFileTypes(options.FileTypes)

	query := "SELECT repo, path, mtime, size FROM files"
	var args []any
	if options.Repo != "" {
		query += " WHERE repo = ?"
		args = append(args, options.Repo)
	}
	query += " ORDER BY repo, path"

	rows, err := s.reader.QueryContext(ctx, query, args...)
	if err != nil {
		return ListResult{}, fmt.Errorf("list files: %w", err)
	}
	defer rows.Close()

	result := ListResult{
		Files:         []ListedFile{},
		Offset:        offset,
		Limit:         limit,
		IncludeHidden: options.IncludeHidden,
	}
	for rows.Next() {
		var file ListedFile
		if err := rows.Scan(&file.Repo, &file.Path, &file.Mtime, &file.Size); err != nil {
			return ListResult{}, fmt.Errorf("scan listed file: %w", err)
		}
		if !options.IncludeHidden && language.IsHidden(file.Path) {
			continue
		}
		file.FileType = language.FileType(file.Path)
		file.Language = language.Detect(file.Path)
		if len(fileTypes) > 0 && !slices.Contains(fileTypes, file.FileType) {
			continue
		}
		if pattern != "" && !ignore.MatchPath(pattern, file.Path) {
			continue
		}
		if result.Total >= offset && len(result.Files) < limit {
			result.Files = append(result.Files, file)
		}
		result.Total++
	}
	if err := rows.Err(); err != nil {
		return ListResult{}, fmt.Errorf("list files: %w", err)
	}
	result.Returned = len(result.Files)

	result.Repos, err = s.repoCounts(ctx)
	if err != nil {
		return ListResult{}, err
	}
	return result, nil
}

func (s *Store) repoCounts(ctx context.Context) ([]RepoCount, error) {
	rows, err := s.reader.QueryContext(ctx,
		"SELECT repo, COUNT(1) AS file_count FROM files GROUP BY repo ORDER BY file_count DESC, repo")
	if err != nil {
		return nil, fmt.Errorf("repo breakdown: %w", err)
	}
	defer rows.Close()

	repos := []RepoCount{}
	for rows.Next() {
		var count RepoCount
		if err := rows.Scan(&count.Repo, &count.FileCount); err != nil {
			return nil, fmt.Errorf("scan repo count: %w", err)
		}
		repos = append(repos, count)
	}
	return repos, rows.Err()
}
