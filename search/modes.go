package search

import (
	"context"
	"regexp"

	"github.com/lexandro/localsearch-mcp/index"
)

// queryMode is one way of answering a query, chosen once per call.
type queryMode interface {
	// fetch returns candidate rows in retrieval order; limit <= 0 is unlimited.
	fetch(ctx context.Context, limit int) ([]index.ScoredFile, error)
	// rank returns the base score and match count of a row; false drops it.
	rank(file index.ScoredFile) (score float64, matchCount int, keep bool)
	// locate finds the first match in content and the pattern to highlight.
	locate(content string) (offset int, highlight *regexp.Regexp, found bool)
	reason() string
}

// termMatcher finds literal terms; shared by the full-text and substring modes.
type termMatcher struct {
	patterns []*regexp.Regexp
}

func (e *Engine) newTermMatcher(terms []string, caseSensitive bool) termMatcher {
	var m termMatcher
	for _, term := range terms {
		expr := regexp.QuoteMeta(term)
		if !caseSensitive {
			expr = "(?i)" + expr
		}
		if re, err := e.compile(expr); err == nil {
			m.patterns = append(m.patterns, re)
		}
	}
	return m
}

func (m termMatcher) count(content string) int {
	total := 0
	for _, re := range m.patterns {
		total += len(re.FindAllStringIndex(content, -1))
	}
	return total
}

// locate reports the first term, in query order, that occurs in content.
func (m termMatcher) locate(content string) (int, *regexp.Regexp, bool) {
	for _, re := range m.patterns {
		if loc := re.FindStringIndex(content); loc != nil {
			return loc[0], re, true
		}
	}
	return 0, nil, false
}

// fullTextMode ranks with FTS5 bm25.
type fullTextMode struct {
	termMatcher
	reader Reader
	query  string
	repo   string
}

func (m *fullTextMode) fetch(ctx context.Context, limit int) ([]index.ScoredFile, error) {
	return m.reader.FullTextQuery(ctx, m.query, m.repo, limit)
}

func (m *fullTextMode) rank(file index.ScoredFile) (float64, int, bool) {
	return file.Score, m.count(file.Content), true
}

func (m *fullTextMode) reason() string { return "fts" }

// substringMode is literal containment of every term.
type substringMode struct {
	termMatcher
	reader  Reader
	options index.SubstringOptions
}

func (m *substringMode) fetch(ctx context.Context, limit int) ([]index.ScoredFile, error) {
	options := m.options
	options.Limit = limit
	return m.reader.SubstringQuery(ctx, options)
}

func (m *substringMode) rank(file index.ScoredFile) (float64, int, bool) {
	return 0, m.count(file.Content), true
}

func (m *substringMode) reason() string { return "substring" }

// regexMode scans a bounded window and scores by match count.
type regexMode struct {
	reader  Reader
	pattern *regexp.Regexp
	repo    string
}

func (m *regexMode) fetch(ctx context.Context, limit int) ([]index.ScoredFile, error) {
	files, err := m.reader.ScanFiles(ctx, m.repo, limit)
	if err != nil {
		return nil, err
	}
	results := make([]index.ScoredFile, len(files))
	for i, file := range files {
		results[i] = index.ScoredFile{IndexedFile: file}
	}
	return results, nil
}

func (m *regexMode) rank(file index.ScoredFile) (float64, int, bool) {
	count := len(m.pattern.FindAllStringIndex(file.Content, -1))
	return float64(count), count, count > 0
}

func (m *regexMode) locate(content string) (int, *regexp.Regexp, bool) {
	if loc := m.pattern.FindStringIndex(content); loc != nil {
		return loc[0], m.pattern, true
	}
	return 0, nil, false
}

func (m *regexMode) reason() string { return "regex" }
