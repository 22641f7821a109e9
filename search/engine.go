// Package search answers ranked, filtered text queries over the index store.
package search

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"slices"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/lexandro/localsearch-mcp/index"
	"github.com/lexandro/localsearch-mcp/language"
)

const regexCacheSize = 256

// Reader is the store surface the engine needs. *index.Store satisfies it.
type Reader interface {
	FullTextEnabled() bool
	FullTextQuery(ctx context.Context, query string, repo string, limit int) ([]index.ScoredFile, error)
	SubstringQuery(ctx context.Context, options index.SubstringOptions) ([]index.ScoredFile, error)
	ScanFiles(ctx context.Context, repo string, limit int) ([]index.IndexedFile, error)
}

// Engine composes store primitives into ranked, paginated hits. Every call
// re-reads the store; only compiled patterns are cached.
type Engine struct {
	reader  Reader
	logger  *slog.Logger
	regexes *lru.Cache[string, *regexp.Regexp]
	now     func() time.Time
}

// NewEngine creates an engine over reader.
func NewEngine(reader Reader, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	regexes, _ := lru.New[string, *regexp.Regexp](regexCacheSize)
	return &Engine{
		reader:  reader,
		logger:  logger,
		regexes: regexes,
		now:     time.Now,
	}
}

// FullTextEnabled reports the capability of the underlying store.
func (e *Engine) FullTextEnabled() bool { return e.reader.FullTextEnabled() }

func (e *Engine) compile(expr string) (*regexp.Regexp, error) {
	if re, ok := e.regexes.Get(expr); ok {
		return re, nil
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, err
	}
	e.regexes.Add(expr, re)
	return re, nil
}

type candidate struct {
	file       index.ScoredFile
	score      float64
	matchCount int
	boosted    bool
}

// Search runs one query. Malformed regexes and full-text failures are
// reported in Meta; only store I/O failures are returned as errors.
func (e *Engine) Search(ctx context.Context, options Options) ([]Hit, Meta, error) {
	options = options.Normalized()
	meta := Meta{TotalMode: options.TotalMode}
	query := strings.TrimSpace(options.Query)
	if query == "" {
		return []Hit{}, meta, nil
	}
	terms := ExtractTerms(query)
	rowFilter := newFilter(options)

	mode, err := e.selectMode(query, terms, options, &meta)
	if err != nil {
		meta.RegexError = err.Error()
		return []Hit{}, meta, nil
	}

	window := options.Offset + options.Limit
	fetchLimit := window
	switch {
	case meta.RegexMode || options.RecencyBoost:
		fetchLimit = rerankScanCap
	case rowFilter.active():
		fetchLimit = window * overFetchFactor
	}

	rows, err := mode.fetch(ctx, fetchLimit)
	if err != nil {
		if _, isFullText := mode.(*fullTextMode); !isFullText {
			return nil, meta, fmt.Errorf("search %q: %w", query, err)
		}
		e.logger.Debug("full-text query failed, falling back to substring", "query", query, "error", err)
		mode = e.newSubstringMode(terms, query, options)
		meta.FallbackUsed = true
		if rows, err = mode.fetch(ctx, fetchLimit); err != nil {
			return nil, meta, fmt.Errorf("search %q: %w", query, err)
		}
	}
	meta.TotalScanned = len(rows)

	candidates := e.rankRows(mode, rows, rowFilter, options.RecencyBoost)
	slices.SortStableFunc(candidates, func(a, b candidate) int {
		switch {
		case a.score > b.score:
			return -1
		case a.score < b.score:
			return 1
		default:
			return 0
		}
	})

	meta.Total = len(candidates)
	if options.TotalMode == TotalExact && len(rows) >= fetchLimit {
		total, err := e.exactTotal(ctx, mode, rowFilter)
		if err != nil {
			return nil, meta, fmt.Errorf("count %q: %w", query, err)
		}
		meta.Total = total
	}

	hits := []Hit{}
	if options.Offset < len(candidates) {
		page := candidates[options.Offset:min(len(candidates), options.Offset+options.Limit)]
		for _, c := range page {
			hits = append(hits, e.toHit(mode, c, options.SnippetLines))
		}
	}
	return hits, meta, nil
}

func (e *Engine) selectMode(query string, terms []string, options Options, meta *Meta) (queryMode, error) {
	if options.UseRegex {
		meta.RegexMode = true
		expr := query
		if !options.CaseSensitive {
			expr = "(?i)" + expr
		}
		pattern, err := e.compile(expr)
		if err != nil {
			return nil, err
		}
		return &regexMode{reader: e.reader, pattern: pattern, repo: options.Repo}, nil
	}
	if e.reader.FullTextEnabled() {
		return &fullTextMode{
			termMatcher: e.newTermMatcher(terms, false),
			reader:      e.reader,
			query:       query,
			repo:        options.Repo,
		}, nil
	}
	meta.FallbackUsed = true
	return e.newSubstringMode(terms, query, options), nil
}

func (e *Engine) newSubstringMode(terms []string, query string, options Options) *substringMode {
	if len(terms) == 0 {
		terms = []string{query}
	}
	return &substringMode{
		termMatcher: e.newTermMatcher(terms, options.CaseSensitive),
		reader:      e.reader,
		options: index.SubstringOptions{
			Terms:         terms,
			Repo:          options.Repo,
			CaseSensitive: options.CaseSensitive,
		},
	}
}

func (e *Engine) rankRows(mode queryMode, rows []index.ScoredFile, rowFilter filter, recencyBoost bool) []candidate {
	now := e.now()
	candidates := make([]candidate, 0, len(rows))
	for _, row := range rows {
		if !rowFilter.accepts(row.Path) {
			continue
		}
		score, matchCount, keep := mode.rank(row)
		if !keep {
			continue
		}
		c := candidate{file: row, score: score, matchCount: matchCount}
		if recencyBoost {
			multiplier := RecencyMultiplier(now, row.Mtime)
			if _, isSubstring := mode.(*substringMode); isSubstring {
				score = 1
			}
			c.score = score * multiplier
			c.boosted = multiplier > 1
		}
		candidates = append(candidates, c)
	}
	return candidates
}

// exactTotal counts every accepted row of an unlimited fetch.
func (e *Engine) exactTotal(ctx context.Context, mode queryMode, rowFilter filter) (int, error) {
	rows, err := mode.fetch(ctx, 0)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, row := range rows {
		if !rowFilter.accepts(row.Path) {
			continue
		}
		if _, _, keep := mode.rank(row); keep {
			total++
		}
	}
	return total, nil
}

func (e *Engine) toHit(mode queryMode, c candidate, snippetLines int) Hit {
	offset, highlight, found := mode.locate(c.file.Content)
	reason := mode.reason()
	if c.boosted {
		reason += "+recent"
	}
	return Hit{
		Repo:       c.file.Repo,
		Path:       c.file.Path,
		Score:      c.score,
		Snippet:    buildSnippet(c.file.Content, offset, highlight, found, snippetLines),
		Mtime:      c.file.Mtime,
		Size:       c.file.Size,
		MatchCount: c.matchCount,
		FileType:   language.FileType(c.file.Path),
		Reason:     reason,
	}
}
