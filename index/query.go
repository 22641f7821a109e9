package index

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

const fileColumns = "f.path, f.repo, f.mtime, f.size, f.content"

// GetFileMeta returns the stored fingerprint of path. The bool is false
// when the path is not indexed.
func (s *Store) GetFileMeta(ctx context.Context, path string) (FileMeta, bool, error) {
	if err := s.checkOpen(); err != nil {
		return FileMeta{}, false, err
	}
	var meta FileMeta
	err := s.reader.QueryRowContext(ctx,
		"SELECT mtime, size FROM files WHERE path = ?", path).Scan(&meta.Mtime, &meta.Size)
	if errors.Is(err, sql.ErrNoRows) {
		return FileMeta{}, false, nil
	}
	if err != nil {
		return FileMeta{}, false, fmt.Errorf("get file meta %s: %w", path, err)
	}
	return meta, true, nil
}

// GetFile returns the stored row for path, including its redacted content.
func (s *Store) GetFile(ctx context.Context, path string) (IndexedFile, bool, error) {
	if err := s.checkOpen(); err != nil {
		return IndexedFile{}, false, err
	}
	row := s.reader.QueryRowContext(ctx, "SELECT "+fileColumns+" FROM files f WHERE f.path = ?", path)
	var file IndexedFile
	err := row.Scan(&file.Path, &file.Repo, &file.Mtime, &file.Size, &file.Content)
	if errors.Is(err, sql.ErrNoRows) {
		return IndexedFile{}, false, nil
	}
	if err != nil {
		return IndexedFile{}, false, fmt.Errorf("get file %s: %w", path, err)
	}
	return file, true, nil
}

// AllPaths returns every stored path in lexical order.
func (s *Store) AllPaths(ctx context.Context) ([]string, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	rows, err := s.reader.QueryContext(ctx, "SELECT path FROM files ORDER BY path")
	if err != nil {
		return nil, fmt.Errorf("list paths: %w", err)
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			return nil, fmt.Errorf("scan path: %w", err)
		}
		paths = append(paths, path)
	}
	return paths, rows.Err()
}

// FullTextQuery runs an FTS5 MATCH and returns rows ordered by relevance,
// ties broken by path. Score is the negated bm25 so higher is better.
// A query the engine rejects is reported as ErrQuerySyntax.
func (s *Store) FullTextQuery(ctx context.Context, query string, repo string, limit int) ([]ScoredFile, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	if !s.fullText {
		return nil, ErrFullTextUnavailable
	}

	var sb strings.Builder
	args := []any{query}
	sb.WriteString("SELECT " + fileColumns + ", -bm25(files_fts) AS score")
	sb.WriteString(" FROM files_fts JOIN files f ON f.id = files_fts.rowid")
	sb.WriteString(" WHERE files_fts MATCH ?")
	if repo != "" {
		sb.WriteString(" AND f.repo = ?")
		args = append(args, repo)
	}
	sb.WriteString(" ORDER BY bm25(files_fts), f.path")
	args = appendLimit(&sb, args, limit)

	rows, err := s.reader.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, classifyQueryError(err)
	}
	defer rows.Close()

	var results []ScoredFile
	for rows.Next() {
		var result ScoredFile
		if err := rows.Scan(&result.Path, &result.Repo, &result.Mtime, &result.Size, &result.Content, &result.Score); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		results = append(results, result)
	}
	if err := rows.Err(); err != nil {
		return nil, classifyQueryError(err)
	}
	return results, nil
}

// SubstringQuery returns rows containing every term in their content or
// path, ordered by path. Matching is case-insensitive unless requested.
// With no terms every row matches.
func (s *Store) SubstringQuery(ctx context.Context, options SubstringOptions) ([]ScoredFile, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	var sb strings.Builder
	var args []any
	sb.WriteString("SELECT " + fileColumns + " FROM files f WHERE 1=1")
	for _, term := range options.Terms {
		if options.CaseSensitive {
			sb.WriteString(" AND (instr(f.content, ?) > 0 OR instr(f.path, ?) > 0)")
		} else {
			term = strings.ToLower(term)
			sb.WriteString(" AND (instr(casefold(f.content), ?) > 0 OR instr(casefold(f.path), ?) > 0)")
		}
		args = append(args, term, term)
	}
	if options.Repo != "" {
		sb.WriteString(" AND f.repo = ?")
		args = append(args, options.Repo)
	}
	sb.WriteString(" ORDER BY f.path")
	args = appendLimit(&sb, args, options.Limit)

	files, err := s.queryFiles(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("substring query: %w", err)
	}
	results := make([]ScoredFile, len(files))
	for i, file := range files {
		results[i] = ScoredFile{IndexedFile: file}
	}
	return results, nil
}

// ScanFiles returns up to limit rows ordered by path, optionally within one repo.
func (s *Store) ScanFiles(ctx context.Context, repo string, limit int) ([]IndexedFile, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	var sb strings.Builder
	var args []any
	sb.WriteString("SELECT " + fileColumns + " FROM files f")
	if repo != "" {
		sb.WriteString(" WHERE f.repo = ?")
		args = append(args, repo)
	}
	sb.WriteString(" ORDER BY f.path")
	args = appendLimit(&sb, args, limit)

	files, err := s.queryFiles(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("scan files: %w", err)
	}
	return files, nil
}

// Stats returns row counts for status reporting.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	if err := s.checkOpen(); err != nil {
		return Stats{}, err
	}
	var stats Stats
	err := s.reader.QueryRowContext(ctx,
		"SELECT COUNT(1), COUNT(DISTINCT repo), COALESCE(SUM(size), 0), COALESCE(MAX(mtime), 0) FROM files",
	).Scan(&stats.Files, &stats.Repos, &stats.TotalBytes, &stats.LastMtime)
	if err != nil {
		return Stats{}, fmt.Errorf("stats: %w", err)
	}
	return stats, nil
}

func (s *Store) queryFiles(ctx context.Context, query string, args ...any) ([]IndexedFile, error) {
	rows, err := s.reader.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var files []IndexedFile
	for rows.Next() {
		var file IndexedFile
		if err := rows.Scan(&file.Path, &file.Repo, &file.Mtime, &file.Size, &file.Content); err != nil {
			return nil, err
		}
		files = append(files, file)
	}
	return files, rows.Err()
}

func appendLimit(sb *strings.Builder, args []any, limit int) []any {
	if limit <= 0 {
		return args
	}
	sb.WriteString(" LIMIT ?")
	return append(args, limit)
}

// classifyQueryError separates rejected MATCH expressions from I/O faults.
func classifyQueryError(err error) error {
	message := err.Error()
	for _, marker := range []string{"fts5", "syntax error", "no such column", "unterminated", "malformed MATCH"} {
		if strings.Contains(message, marker) {
			return fmt.Errorf("%w: %v", ErrQuerySyntax, err)
		}
	}
	return fmt.Errorf("full-text query: %w", err)
}
